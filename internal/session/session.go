package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hpungsan/lcsync/internal/cache"
	"github.com/hpungsan/lcsync/internal/config"
	"github.com/hpungsan/lcsync/internal/errors"
	"github.com/hpungsan/lcsync/internal/record"
	"github.com/hpungsan/lcsync/internal/store"
)

// Remote is the slice of the remote service the session depends on.
// *remote.Client satisfies it.
type Remote interface {
	InsertRow(ctx context.Context, username string, rec record.Record) error
	DeleteRow(ctx context.Context, username, problemID string) error
	GetTable(ctx context.Context, username string) ([]record.Record, error)
}

// UsernameSource reports the active username. ok=false is the valid
// "no user" answer, not an error.
type UsernameSource interface {
	Username(ctx context.Context) (name string, ok bool, err error)
}

// Info is a point-in-time view of the session.
type Info struct {
	Username string          `json:"username"`
	Records  []record.Record `json:"records"`
}

// Options configures a Manager. Remote and Usernames are required.
type Options struct {
	Remote    Remote
	Usernames UsernameSource

	// Store receives a snapshot after every successful operation. May be nil.
	Store store.SnapshotStore

	// GuardMode is config.GuardQueue (default) or config.GuardReject.
	GuardMode string

	Logger *slog.Logger
	Now    func() time.Time
}

// Manager owns the single Session of the running agent: the active
// username bound to its completion cache.
//
// Ensure, RecordCompletion and RemoveCompletion hold a single-slot guard
// for their whole duration, network wait included.
type Manager struct {
	remote    Remote
	usernames UsernameSource
	store     store.SnapshotStore
	reject    bool
	logger    *slog.Logger
	now       func() time.Time

	guard chan struct{}

	mu       sync.RWMutex
	username string
	loaded   bool
	cache    *cache.Cache
}

// New creates a Manager in the "no user" state.
func New(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	m := &Manager{
		remote:    opts.Remote,
		usernames: opts.Usernames,
		store:     opts.Store,
		reject:    opts.GuardMode == config.GuardReject,
		logger:    logger,
		now:       now,
		guard:     make(chan struct{}, 1),
	}
	m.cache = m.newCache()
	return m
}

func (m *Manager) newCache() *cache.Cache {
	return cache.New(cache.WithClock(m.now))
}

// acquire takes the guard slot. In reject mode a taken slot is a BUSY error;
// in queue mode the caller waits until the slot frees or ctx is done.
func (m *Manager) acquire(ctx context.Context, op string) error {
	if m.reject {
		select {
		case m.guard <- struct{}{}:
			return nil
		default:
			return errors.NewBusy(op)
		}
	}
	select {
	case m.guard <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: waiting for session: %w", op, ctx.Err())
	}
}

func (m *Manager) release() {
	<-m.guard
}

// Ensure materializes the session. The username source is consulted when
// there is no user, when refresh is set, or when the last table load failed;
// otherwise the current session is returned unchanged.
func (m *Manager) Ensure(ctx context.Context, refresh bool) (Info, error) {
	if err := m.acquire(ctx, "ensure"); err != nil {
		return Info{}, err
	}
	defer m.release()

	m.mu.RLock()
	current := m.username != "" && m.loaded
	m.mu.RUnlock()
	if current && !refresh {
		return m.info(), nil
	}

	name, ok, err := m.usernames.Username(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("resolve username: %w", err)
	}
	if !ok || name == "" {
		m.mu.Lock()
		m.username = ""
		m.loaded = false
		m.cache = m.newCache()
		m.mu.Unlock()
		m.logger.Debug("no active user")
		return m.info(), nil
	}

	fresh := m.newCache()
	m.mu.Lock()
	m.username = name
	m.loaded = false
	m.cache = fresh
	m.mu.Unlock()

	recs, err := m.remote.GetTable(ctx, name)
	if err != nil {
		m.logger.Warn("table load failed", "username", name, "error", err)
		return m.info(), err
	}
	fresh.ReplaceAll(recs)

	m.mu.Lock()
	m.loaded = true
	m.mu.Unlock()

	m.logger.Info("session loaded", "username", name, "records", fresh.Len())
	m.persist(ctx)
	return m.info(), nil
}

// RecordCompletion inserts rec remotely, then into the cache.
// The cache is untouched if the remote call fails.
func (m *Manager) RecordCompletion(ctx context.Context, rec record.Record) error {
	if err := rec.Validate(); err != nil {
		return errors.NewInvalidRequest(err.Error())
	}
	if err := m.acquire(ctx, "recordCompletion"); err != nil {
		return err
	}
	defer m.release()

	name, c := m.active()
	if name == "" {
		return errors.NewNoActiveSession()
	}
	if err := m.remote.InsertRow(ctx, name, rec); err != nil {
		return err
	}
	c.InsertOrReplace(rec)

	m.logger.Info("completion recorded", "username", name, "id", rec.ID)
	m.persist(ctx)
	return nil
}

// RemoveCompletion deletes id remotely, then from the cache.
// The cache is untouched if the remote call fails.
func (m *Manager) RemoveCompletion(ctx context.Context, id string) error {
	if id == "" {
		return errors.NewInvalidRequest("id is required")
	}
	if err := m.acquire(ctx, "removeCompletion"); err != nil {
		return err
	}
	defer m.release()

	name, c := m.active()
	if name == "" {
		return errors.NewNoActiveSession()
	}
	if err := m.remote.DeleteRow(ctx, name, id); err != nil {
		return err
	}
	c.Delete(id)

	m.logger.Info("completion removed", "username", name, "id", id)
	m.persist(ctx)
	return nil
}

// CompletedWithin reports whether id was completed within window of now.
// False with no active user.
func (m *Manager) CompletedWithin(id string, window time.Duration) bool {
	name, c := m.active()
	if name == "" {
		return false
	}
	return c.WasCompletedWithin(id, window)
}

// Username returns the active username, empty in the "no user" state.
func (m *Manager) Username() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.username
}

// Offline returns the last stored snapshot for username without touching
// the network.
func (m *Manager) Offline(ctx context.Context, username string) (Info, error) {
	if username == "" {
		return Info{}, errors.NewInvalidRequest("username is required")
	}
	if m.store == nil {
		return Info{}, errors.NewNotFound(username)
	}
	snap, err := m.store.Load(ctx, username)
	if err != nil {
		return Info{}, err
	}
	return Info{Username: snap.Username, Records: snap.Records}, nil
}

// Forget deletes the stored snapshot for username. The live session is
// not affected.
func (m *Manager) Forget(ctx context.Context, username string) error {
	if username == "" {
		return errors.NewInvalidRequest("username is required")
	}
	if m.store == nil {
		return nil
	}
	if err := m.store.Delete(ctx, username); err != nil {
		return err
	}
	m.logger.Info("snapshot forgotten", "username", username)
	return nil
}

func (m *Manager) active() (string, *cache.Cache) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.username, m.cache
}

func (m *Manager) info() Info {
	name, c := m.active()
	return Info{Username: name, Records: c.Records()}
}

// persist writes the current cache to the snapshot store. Failures are
// logged and never fail the operation. A session whose table never loaded
// holds a partial cache and leaves the stored snapshot alone.
func (m *Manager) persist(ctx context.Context) {
	if m.store == nil {
		return
	}
	m.mu.RLock()
	name, c, loaded := m.username, m.cache, m.loaded
	m.mu.RUnlock()
	if name == "" || !loaded {
		return
	}
	snap := store.Snapshot{Username: name, Records: c.Records(), SavedAt: m.now()}
	if err := m.store.Save(ctx, snap); err != nil {
		m.logger.Warn("snapshot save failed", "username", name, "error", err)
	}
}
