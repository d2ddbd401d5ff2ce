package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultIdleTTL matches the default snapshot TTL in Redis.
	DefaultIdleTTL     = 12 * time.Hour
	DefaultMaxSessions = 10000
)

// SnapshotRepository persists session snapshots beyond process lifetime.
// Load returns nil, nil when nothing is stored for sid.
type SnapshotRepository interface {
	Load(ctx context.Context, sid string) (*Snapshot, error)
	Save(ctx context.Context, sid string, snap Snapshot) error
	Delete(ctx context.Context, sid string) error
}

type session struct {
	store    *Store
	lastUsed time.Time
}

// Sessions keys one Store per editing session. Sessions idle for longer than
// the idle TTL are evicted from memory; with a repository configured they
// are rehydrated from their snapshot on next use.
type Sessions struct {
	mu        sync.Mutex
	stores    map[string]*session
	repo      SnapshotRepository
	storeOpts []Option
	clock     func() time.Time
	idleTTL   time.Duration
	max       int
	swept     time.Time
}

type SessionsOption func(*Sessions)

// WithIdleTTL sets how long an unused session stays in memory.
func WithIdleTTL(d time.Duration) SessionsOption {
	return func(s *Sessions) {
		if d > 0 {
			s.idleTTL = d
		}
	}
}

// WithMaxSessions caps the sessions held in memory. When full, the least
// recently used session is evicted to make room.
func WithMaxSessions(n int) SessionsOption {
	return func(s *Sessions) {
		if n > 0 {
			s.max = n
		}
	}
}

// WithStoreOptions applies opts to every Store the registry creates.
func WithStoreOptions(opts ...Option) SessionsOption {
	return func(s *Sessions) { s.storeOpts = append(s.storeOpts, opts...) }
}

// WithSessionClock overrides time.Now for idle tracking.
func WithSessionClock(now func() time.Time) SessionsOption {
	return func(s *Sessions) { s.clock = now }
}

// NewSessions creates a session registry. repo may be nil for process-local sessions.
func NewSessions(repo SnapshotRepository, opts ...SessionsOption) *Sessions {
	s := &Sessions{
		stores:  make(map[string]*session),
		repo:    repo,
		clock:   time.Now,
		idleTTL: DefaultIdleTTL,
		max:     DefaultMaxSessions,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get returns the store for sid, creating it (and rehydrating it from the
// repository when one is configured) on first use.
func (s *Sessions) Get(ctx context.Context, sid string) (*Store, error) {
	return s.get(ctx, sid, true)
}

// Find is Get for read-only callers: a session with nothing in memory and
// nothing stored is reported as nil and not registered.
func (s *Sessions) Find(ctx context.Context, sid string) (*Store, error) {
	return s.get(ctx, sid, false)
}

func (s *Sessions) get(ctx context.Context, sid string, create bool) (*Store, error) {
	if st := s.lookup(sid); st != nil {
		return st, nil
	}

	// The repository round-trip runs unlocked; a concurrent Get for the same
	// sid is resolved below by keeping whichever store was registered first.
	var snap *Snapshot
	if s.repo != nil {
		var err error
		if snap, err = s.repo.Load(ctx, sid); err != nil {
			return nil, fmt.Errorf("load session %s: %w", sid, err)
		}
	}
	if snap == nil && !create {
		return nil, nil
	}
	st := New(s.storeOpts...)
	if snap != nil {
		st.Restore(*snap)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	if e, ok := s.stores[sid]; ok {
		e.lastUsed = now
		return e.store, nil
	}
	if len(s.stores) >= s.max {
		s.evictOldest()
	}
	s.stores[sid] = &session{store: st, lastUsed: now}
	return st, nil
}

func (s *Sessions) lookup(sid string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	s.sweep(now)
	e, ok := s.stores[sid]
	if !ok {
		return nil
	}
	e.lastUsed = now
	return e.store
}

// sweep drops idle sessions. It scans at most once per idle TTL fraction.
func (s *Sessions) sweep(now time.Time) {
	every := s.idleTTL / 4
	if every > time.Minute {
		every = time.Minute
	}
	if now.Sub(s.swept) < every {
		return
	}
	s.swept = now
	for sid, e := range s.stores {
		if now.Sub(e.lastUsed) >= s.idleTTL {
			delete(s.stores, sid)
		}
	}
}

func (s *Sessions) evictOldest() {
	var (
		oldest string
		at     time.Time
	)
	for sid, e := range s.stores {
		if oldest == "" || e.lastUsed.Before(at) {
			oldest, at = sid, e.lastUsed
		}
	}
	delete(s.stores, oldest)
}

// Persist writes the current state of sid to the repository. An empty store
// removes the stored snapshot.
func (s *Sessions) Persist(ctx context.Context, sid string) error {
	if s.repo == nil {
		return nil
	}
	s.mu.Lock()
	e, ok := s.stores[sid]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	snap := e.store.Snapshot()
	if snap.Document == nil {
		return s.repo.Delete(ctx, sid)
	}
	return s.repo.Save(ctx, sid, snap)
}

// Drop forgets sid locally and in the repository.
func (s *Sessions) Drop(ctx context.Context, sid string) error {
	s.mu.Lock()
	delete(s.stores, sid)
	s.mu.Unlock()
	if s.repo == nil {
		return nil
	}
	return s.repo.Delete(ctx, sid)
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stores)
}
