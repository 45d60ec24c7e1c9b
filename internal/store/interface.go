package store

import (
	"context"
	"time"

	"github.com/hpungsan/lcsync/internal/record"
)

// Snapshot is the last known completion table of one user.
type Snapshot struct {
	Username string          `json:"username"`
	Records  []record.Record `json:"records"`
	SavedAt  time.Time       `json:"savedAt"`
}

// SnapshotStore defines the interface for snapshot storage backends.
// Implementations must be safe for concurrent use.
type SnapshotStore interface {
	// Save persists a snapshot, replacing any previous one for the same user.
	// Record order is preserved.
	Save(ctx context.Context, snap Snapshot) error

	// Load returns the stored snapshot for username.
	// Returns a NOT_FOUND SyncError if none exists.
	Load(ctx context.Context, username string) (*Snapshot, error)

	// Delete removes the stored snapshot for username.
	// Deleting an absent snapshot is not an error.
	Delete(ctx context.Context, username string) error

	// Close releases any resources held by the store.
	Close() error
}
