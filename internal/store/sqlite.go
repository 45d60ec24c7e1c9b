package store

import (
	"context"
	"database/sql"

	"github.com/hpungsan/lcsync/internal/db"
)

// SQLiteStore implements SnapshotStore on the local lcsync database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite wraps an initialized database (see db.Init).
func NewSQLite(database *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: database}
}

// OpenSQLite initializes baseDir/lcsync.db and returns a store over it.
func OpenSQLite(baseDir string) (*SQLiteStore, error) {
	database, err := db.Init(baseDir)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: database}, nil
}

// DB exposes the underlying handle for pool configuration.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Save persists a snapshot in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) error {
	return db.ReplaceSnapshot(ctx, s.db, snap.Username, snap.Records, snap.SavedAt)
}

// Load returns the stored snapshot for username.
func (s *SQLiteStore) Load(ctx context.Context, username string) (*Snapshot, error) {
	recs, savedAt, err := db.LoadSnapshot(ctx, s.db, username)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Username: username, Records: recs, SavedAt: savedAt}, nil
}

// Delete removes the snapshot and its records.
func (s *SQLiteStore) Delete(ctx context.Context, username string) error {
	return db.DeleteSnapshot(ctx, s.db, username)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
