// Package repeater implements repeating groups and the items bound to them.
//
// A Group is a schema node representing an ordered list of structurally
// identical items. Its child schema is a list of declarations; every item
// binds fresh copies of them to an ItemScope keyed by the item's stable id.
//
// Item lifecycle:
//
//	absent -> present -> (edited)* -> removed
//
// Items become present on Add (fresh id) or when stored data is loaded
// (stored id, or the item's position for data written before ids existed).
// Reordering changes an item's Index, never its ID. Items are removed
// explicitly, by being left out of a submission, or by being pruned because
// every value they carry is empty.
//
// Stable ids are persisted in each item's own data under the "_id" key.
//
// Lists and Binders are request-scoped: build them per request, throw them
// away afterwards.
package repeater
