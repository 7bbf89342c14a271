package session

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StoreConfig holds session store configuration.
type StoreConfig struct {
	TTL             time.Duration // Idle time after which a session expires
	CleanupInterval time.Duration // How often expired sessions are swept (0 disables the sweeper)
}

// entry is one session. mu serializes every event for the session.
type entry struct {
	mu         sync.Mutex
	ctrl       *Controller
	lastAccess time.Time
	closed     bool
}

// Store maps session ids to controllers and expires idle ones.
type Store struct {
	mu            sync.Mutex
	sessions      map[string]*entry
	ttl           time.Duration
	newController func() *Controller
	now           func() time.Time
	cleanupTicker *time.Ticker
	cleanupStop   chan struct{}
	stopOnce      sync.Once
}

// NewStore creates a session store. newController builds the controller for each new session.
func NewStore(cfg StoreConfig, newController func() *Controller) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = 2 * time.Hour
	}
	s := &Store{
		sessions:      make(map[string]*entry),
		ttl:           cfg.TTL,
		newController: newController,
		now:           time.Now,
	}

	if cfg.CleanupInterval > 0 {
		s.cleanupTicker = time.NewTicker(cfg.CleanupInterval)
		s.cleanupStop = make(chan struct{})
		go s.cleanup()
	}

	return s
}

// Create starts a new session and returns its id.
func (s *Store) Create() string {
	id := uuid.New().String()
	e := &entry{ctrl: s.newController(), lastAccess: s.now()}

	s.mu.Lock()
	s.sessions[id] = e
	s.mu.Unlock()

	return id
}

// Exists reports whether id names a live session.
func (s *Store) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	return ok && !s.expired(e)
}

// Do runs fn with exclusive access to the session's controller.
func (s *Store) Do(id string, fn func(*Controller) error) error {
	s.mu.Lock()
	e, ok := s.sessions[id]
	if !ok || s.expired(e) {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	e.lastAccess = s.now()
	s.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrSessionNotFound
	}
	return fn(e.ctrl)
}

// Delete ends a session and frees its resources.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		closeEntry(e)
	}
}

// Len returns the number of sessions currently held, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Stop stops the sweeper and closes every session.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		if s.cleanupTicker != nil {
			s.cleanupTicker.Stop()
		}
		if s.cleanupStop != nil {
			close(s.cleanupStop)
		}

		s.mu.Lock()
		entries := make([]*entry, 0, len(s.sessions))
		for id, e := range s.sessions {
			entries = append(entries, e)
			delete(s.sessions, id)
		}
		s.mu.Unlock()

		for _, e := range entries {
			closeEntry(e)
		}
	})
}

// expired must be called with s.mu held.
func (s *Store) expired(e *entry) bool {
	return s.now().Sub(e.lastAccess) > s.ttl
}

func (s *Store) cleanup() {
	for {
		select {
		case <-s.cleanupTicker.C:
			s.cleanupExpired()
		case <-s.cleanupStop:
			return
		}
	}
}

// cleanupExpired removes sessions idle for longer than the TTL.
func (s *Store) cleanupExpired() int {
	s.mu.Lock()
	var expired []*entry
	for id, e := range s.sessions {
		if s.expired(e) {
			expired = append(expired, e)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, e := range expired {
		closeEntry(e)
	}
	if len(expired) > 0 {
		log.Printf("[session] expired %d idle session(s)", len(expired))
	}
	return len(expired)
}

func closeEntry(e *entry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.ctrl.Close()
}
