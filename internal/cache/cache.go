// Package cache holds the ordered local view of one user's completion records.
package cache

import (
	"sort"
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/hpungsan/lcsync/internal/record"
)

// Cache is a key-unique collection of records iterated in ascending
// RepeatDate order. Records with equal RepeatDate keep their relative
// position; a newly inserted record goes after existing ones with the same date.
// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	records *orderedmap.OrderedMap[string, record.Record]
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source used by WasCompletedWithin.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		records: orderedmap.New[string, record.Record](),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InsertOrReplace removes any entry with rec's ID, then inserts rec at its
// RepeatDate position.
func (c *Cache) InsertOrReplace(rec record.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records.Delete(rec.ID)

	// First entry due strictly later than rec; rec goes right before it.
	var mark *orderedmap.Pair[string, record.Record]
	for pair := c.records.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.RepeatDate.After(rec.RepeatDate.Time) {
			mark = pair
			break
		}
	}

	c.records.Set(rec.ID, rec)
	if mark != nil {
		// Both keys are present, so MoveBefore cannot fail.
		_ = c.records.MoveBefore(rec.ID, mark.Key)
	}
}

// Delete removes the entry for id. Absent ids are a no-op.
func (c *Cache) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records.Delete(id)
}

// ReplaceAll discards every entry and rebuilds the cache from recs.
// A later duplicate ID in recs overwrites an earlier one.
func (c *Cache) ReplaceAll(recs []record.Record) {
	lastIndex := make(map[string]int, len(recs))
	for i, rec := range recs {
		lastIndex[rec.ID] = i
	}

	unique := make([]record.Record, 0, len(lastIndex))
	for i, rec := range recs {
		if lastIndex[rec.ID] == i {
			unique = append(unique, rec)
		}
	}
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].RepeatDate.Before(unique[j].RepeatDate.Time)
	})

	rebuilt := orderedmap.New[string, record.Record](len(unique))
	for _, rec := range unique {
		rebuilt.Set(rec.ID, rec)
	}

	c.mu.Lock()
	c.records = rebuilt
	c.mu.Unlock()
}

// Get returns the record for id.
func (c *Cache) Get(id string) (record.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.records.Get(id)
}

// Len returns the number of records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.records.Len()
}

// Records returns a copy of all records in iteration order.
func (c *Cache) Records() []record.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]record.Record, 0, c.records.Len())
	for pair := c.records.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// WasCompletedWithin reports whether id has an entry whose LastCompletionDate
// is later than now minus window.
func (c *Cache) WasCompletedWithin(id string, window time.Duration) bool {
	rec, ok := c.Get(id)
	if !ok {
		return false
	}
	cutoff := c.now().Add(-window)
	return rec.LastCompletionDate.After(cutoff)
}
