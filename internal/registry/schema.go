package registry

// schemaVersion tracks the shares table layout. Bump it together with any
// change to the statements below.
const schemaVersion = 1

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS shares (
        id TEXT PRIMARY KEY,
        token TEXT NOT NULL UNIQUE,
        owner_id INTEGER NOT NULL,
        item_refs TEXT NOT NULL,
        item_count INTEGER NOT NULL,
        caption TEXT NOT NULL DEFAULT '',
        kind TEXT NOT NULL DEFAULT '',
        created_at TEXT NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_shares_owner ON shares(owner_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS schema_info (
        version INTEGER NOT NULL
    )`,
}
