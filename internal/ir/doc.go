// Package ir provides the canonical value model for form data.
//
// Stored records and submitted payloads are both decoded into the sealed
// Value types defined here before any field binding happens. ir imports
// nothing internal; every other package builds on it.
//
// Key design constraints:
//   - Numbers keep their decimal text (Number) so 0.10 and 0.1 round-trip
//     exactly as submitted; there is no float64 anywhere in the model
//   - Null is a real value (a cleared input), distinct from an absent key
//   - Object iteration is always through SortedKeys for determinism
//   - Canonical JSON (RFC 8785 key order, NFC strings) is the only
//     serialization used for hashing
package ir
