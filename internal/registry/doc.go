// Package registry persists share records in SQLite and is their sole owner.
//
// A record binds an unguessable public token to an ordered list of vault item
// refs plus caption metadata. Records are created atomically when an upload
// session finishes and never mutate afterwards; the only write besides create
// is whole-record deletion, restricted to the owner. Token uniqueness is
// enforced by a unique index with regenerate-and-retry on the (negligible)
// collision path.
package registry
