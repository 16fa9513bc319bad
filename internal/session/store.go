package session

import (
	"maps"
	"slices"
	"sync"
	"time"
)

// Store keeps sessions in memory and serializes all access per user.
// Handlers read-modify-write session state without further isolation, so
// the store guarantees that no two updates for the same user ever run
// concurrently. Different users proceed in parallel.
type Store struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

type entry struct {
	mu   sync.Mutex
	sess *Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{entries: make(map[int64]*entry)}
}

// Update runs fn under the user's lock. fn receives the current session
// (nil if none exists) and returns the session to keep; returning nil
// removes the session. The error is passed through unchanged.
func (s *Store) Update(userID int64, fn func(*Session) (*Session, error)) error {
	for {
		s.mu.Lock()
		e, ok := s.entries[userID]
		if !ok {
			e = &entry{}
			s.entries[userID] = e
		}
		s.mu.Unlock()

		e.mu.Lock()
		// The entry may have been evicted between the map lookup and the
		// lock acquisition; retry against the live entry in that case.
		s.mu.Lock()
		if s.entries[userID] != e {
			s.mu.Unlock()
			e.mu.Unlock()
			continue
		}
		s.mu.Unlock()

		next, err := fn(e.sess)
		if next != nil {
			next.LastSeen = time.Now()
		}
		e.sess = next
		e.mu.Unlock()
		return err
	}
}

// Peek returns a point-in-time copy of the user's session, or false if
// none. Surfaces, Titles, and PendingDeletions are cloned so the copy can
// be inspected freely; Queue and Current still point at the live round and
// must be treated as read-only.
func (s *Store) Peek(userID int64) (Session, bool) {
	s.mu.Lock()
	e, ok := s.entries[userID]
	s.mu.Unlock()
	if !ok {
		return Session{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess == nil {
		return Session{}, false
	}
	cp := *e.sess
	cp.Surfaces = maps.Clone(e.sess.Surfaces)
	cp.Titles = maps.Clone(e.sess.Titles)
	cp.PendingDeletions = slices.Clone(e.sess.PendingDeletions)
	return cp, true
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		e.mu.Lock()
		if e.sess != nil {
			n++
		}
		e.mu.Unlock()
	}
	return n
}

// EvictIdle removes sessions idle for longer than maxAge and empty entries.
// It returns the number of evicted sessions. Entries busy in a handler are
// skipped and picked up on the next sweep.
func (s *Store) EvictIdle(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	evicted := 0

	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, e := range s.entries {
		if !e.mu.TryLock() {
			continue
		}
		if e.sess == nil {
			delete(s.entries, userID)
		} else if e.sess.LastSeen.Before(cutoff) {
			e.sess = nil
			delete(s.entries, userID)
			evicted++
		}
		e.mu.Unlock()
	}
	return evicted
}
