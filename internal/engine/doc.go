// Package engine binds forms to records and runs the submission pipeline.
//
// A Form is a tree of declarations (fields, layouts, fieldsets and repeating
// groups) owned by one record type. The Engine offers two operations:
//
//	Bind:   stored data -> bound tree -> view with addresses, values,
//	        collections and attachment lists
//	Submit: submitted data -> reconcile groups -> cleanup removed items
//	        -> plan attachment actions -> save -> run deferred actions
//
// Everything that touches the attachment store for the owning record is
// queued and only runs once the record has been saved and has an id.
// Cleanup of removed items runs before the save, against the stored record.
//
// Deferred actions run after the save with no compensating transaction: if
// one fails, the record stays saved and the error is returned with the
// result.
package engine
