// Package store provides SQLite-backed record and attachment storage.
//
// Records are stored as canonical JSON (RFC 8785) keyed by (type, id),
// together with a content hash. Saving a payload whose hash did not change
// leaves the row untouched.
//
// Attachments are grouped into buckets identified by
// (owner_type, owner_id, collection). Uploads start pending (no owner) and
// are moved into a bucket by Attach. Lists are ordered by position, then id.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
