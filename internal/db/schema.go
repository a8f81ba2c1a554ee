package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema. Documents themselves live in JSON files;
// the database only holds bookkeeping around them.
const schema = `
CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS backups (
    id         INTEGER PRIMARY KEY,
    collection TEXT NOT NULL,
    path       TEXT NOT NULL UNIQUE,
    size       INTEGER NOT NULL CHECK (size >= 0),
    taken_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_backups_collection_taken
    ON backups(collection, taken_at);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
