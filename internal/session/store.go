package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"plotpilot/pkg/contracts/domain"
)

// Store errors
var (
	ErrNotFound  = errors.New("session not found")
	ErrStoreFull = errors.New("too many active sessions")
)

type entry struct {
	mu         sync.Mutex // serializes Update calls on this session
	session    *Session
	lastAccess time.Time
}

// MemoryStore keeps sessions in memory and evicts those idle for longer than the TTL
type MemoryStore struct {
	mu          sync.RWMutex
	entries     map[string]*entry
	ttl         time.Duration
	maxSessions int
	now         func() time.Time
	logger      *slog.Logger
	onEvict     func(id string)
}

// Option configures a MemoryStore
type Option func(*MemoryStore)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) { s.now = now }
}

// WithEvictHook is called with the ID of every session removed by Sweep
func WithEvictHook(fn func(id string)) Option {
	return func(s *MemoryStore) { s.onEvict = fn }
}

// NewMemoryStore creates a store. maxSessions <= 0 means unlimited.
func NewMemoryStore(ttl time.Duration, maxSessions int, logger *slog.Logger, opts ...Option) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &MemoryStore{
		entries:     make(map[string]*entry),
		ttl:         ttl,
		maxSessions: maxSessions,
		now:         time.Now,
		logger:      logger.With(slog.String("component", "session_store")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new session holding original and returns a snapshot of it
func (s *MemoryStore) Create(name string, original *domain.Table) (*Session, error) {
	now := s.now()
	sess := &Session{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Original:  original,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxSessions > 0 && len(s.entries) >= s.maxSessions {
		return nil, fmt.Errorf("%w: limit is %d", ErrStoreFull, s.maxSessions)
	}
	s.entries[sess.ID] = &entry{session: sess, lastAccess: now}
	return sess.clone(), nil
}

// lookup returns the live entry for id, treating expired sessions as absent
func (s *MemoryStore) lookup(id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

func (s *MemoryStore) expired(e *entry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.lastAccess) > s.ttl
}

// Get returns a snapshot of the session and refreshes its idle timer
func (s *MemoryStore) Get(id string) (*Session, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	now := s.now()
	if e.session == nil || s.expired(e, now) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e.lastAccess = now
	return e.session.clone(), nil
}

// Update applies fn to a copy of the session and stores the copy when fn
// succeeds. Updates of one session run one at a time; fn may block, for
// example on a cleaning run, without holding up other sessions.
func (s *MemoryStore) Update(id string, fn func(*Session) error) (*Session, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil || s.expired(e, s.now()) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := e.session.clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	now := s.now()
	next.ID = e.session.ID
	next.CreatedAt = e.session.CreatedAt
	next.UpdatedAt = now
	e.session = next
	e.lastAccess = now
	return next.clone(), nil
}

// Delete removes the session
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	e.mu.Lock()
	e.session = nil
	e.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions, expired ones included until swept
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Sweep removes sessions idle for longer than the TTL at now and returns their IDs
func (s *MemoryStore) Sweep(now time.Time) []string {
	s.mu.Lock()
	var evicted []string
	for id, e := range s.entries {
		// An entry locked by an in-flight Update is busy, not idle.
		if !e.mu.TryLock() {
			continue
		}
		if s.expired(e, now) {
			delete(s.entries, id)
			e.session = nil
			evicted = append(evicted, id)
		}
		e.mu.Unlock()
	}
	s.mu.Unlock()

	for _, id := range evicted {
		if s.onEvict != nil {
			s.onEvict(id)
		}
	}
	if len(evicted) > 0 {
		s.logger.Info("expired sessions evicted",
			slog.Int("evicted", len(evicted)),
			slog.Int("remaining", s.Len()))
	}
	return evicted
}

// Start sweeps every interval until ctx is cancelled
func (s *MemoryStore) Start(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("session sweeper started",
		slog.Duration("interval", interval),
		slog.Duration("ttl", s.ttl))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session sweeper stopped")
			return nil
		case <-ticker.C:
			s.Sweep(s.now())
		}
	}
}
