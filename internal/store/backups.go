package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Backup is a ledger entry for a backup copy taken by the document store.
type Backup struct {
	ID         int64     `json:"id"`
	Collection string    `json:"collection"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	TakenAt    time.Time `json:"takenAt"`
}

// RecordBackup adds a backup to the ledger. Recording the same path twice is a no-op.
func RecordBackup(ctx context.Context, db *sql.DB, collection, path string, size int64, takenAt time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO backups (collection, path, size, taken_at) VALUES (?, ?, ?, ?)`,
		collection, path, size, takenAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording backup: %w", err)
	}
	return nil
}

// ListBackups returns backups newest first, optionally restricted to one collection.
func ListBackups(ctx context.Context, db *sql.DB, collection string) ([]Backup, error) {
	var rows *sql.Rows
	var err error

	if collection != "" {
		rows, err = db.QueryContext(ctx,
			`SELECT id, collection, path, size, taken_at FROM backups
			 WHERE collection = ? ORDER BY taken_at DESC, id DESC`, collection,
		)
	} else {
		rows, err = db.QueryContext(ctx,
			`SELECT id, collection, path, size, taken_at FROM backups
			 ORDER BY taken_at DESC, id DESC`,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	defer rows.Close()

	var backups []Backup
	for rows.Next() {
		var b Backup
		if err := rows.Scan(&b.ID, &b.Collection, &b.Path, &b.Size, &b.TakenAt); err != nil {
			return nil, fmt.Errorf("scanning backup: %w", err)
		}
		backups = append(backups, b)
	}
	return backups, rows.Err()
}

// LatestBackup returns the newest backup of a collection, or nil if there is none.
func LatestBackup(ctx context.Context, db *sql.DB, collection string) (*Backup, error) {
	b := &Backup{}
	err := db.QueryRowContext(ctx,
		`SELECT id, collection, path, size, taken_at FROM backups
		 WHERE collection = ? ORDER BY taken_at DESC, id DESC LIMIT 1`, collection,
	).Scan(&b.ID, &b.Collection, &b.Path, &b.Size, &b.TakenAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting latest backup: %w", err)
	}
	return b, nil
}

// Ledger records document store backups in the database.
type Ledger struct {
	DB *sql.DB
}

// RecordBackup implements docstore.BackupRecorder.
func (l *Ledger) RecordBackup(ctx context.Context, collection, path string, size int64, takenAt time.Time) error {
	return RecordBackup(ctx, l.DB, collection, path, size, takenAt)
}
