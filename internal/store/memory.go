package store

import (
	"context"
	"sync"

	"github.com/hpungsan/lcsync/internal/errors"
	"github.com/hpungsan/lcsync/internal/record"
)

// MemoryStore implements SnapshotStore using an in-memory map.
// Snapshots do not survive the process.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]Snapshot
}

// NewMemory creates an empty in-memory snapshot store.
func NewMemory() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]Snapshot)}
}

// Save stores a copy of the snapshot.
func (s *MemoryStore) Save(_ context.Context, snap Snapshot) error {
	snap.Records = cloneRecords(snap.Records)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snap.Username] = snap
	return nil
}

// Load returns a copy of the stored snapshot.
func (s *MemoryStore) Load(_ context.Context, username string) (*Snapshot, error) {
	s.mu.RLock()
	snap, ok := s.snaps[username]
	s.mu.RUnlock()

	if !ok {
		return nil, errors.NewNotFound(username)
	}
	snap.Records = cloneRecords(snap.Records)
	return &snap, nil
}

// Delete removes the snapshot for username.
func (s *MemoryStore) Delete(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, username)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

func cloneRecords(recs []record.Record) []record.Record {
	out := make([]record.Record, len(recs))
	copy(out, recs)
	return out
}
