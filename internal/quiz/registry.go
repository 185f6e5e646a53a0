package quiz

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgallion1/docquiz/internal/question"
	"github.com/google/uuid"
)

// Registry holds live sessions by id. A Session is single-writer state, so
// callers serialize access to one session through WithSession.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	limit    int
	now      func() time.Time
}

type entry struct {
	mu       sync.Mutex
	session  *Session
	lastUsed atomic.Int64 // unix nanoseconds
}

func (e *entry) touch(t time.Time) { e.lastUsed.Store(t.UnixNano()) }

func (e *entry) idle(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, e.lastUsed.Load()))
}

// NewRegistry returns a registry holding at most limit sessions. Starting one
// more drops the least recently used. A limit <= 0 means no cap.
func NewRegistry(limit int) *Registry {
	return &Registry{
		sessions: make(map[string]*entry),
		limit:    limit,
		now:      time.Now,
	}
}

// Start creates a session over questions and registers it under a new id.
func (r *Registry) Start(questions question.Bank) *Session {
	s := New(uuid.NewString(), questions)
	e := &entry{session: s}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	e.touch(now)
	if r.limit > 0 {
		for len(r.sessions) >= r.limit {
			r.evictOldestLocked(now)
		}
	}
	r.sessions[s.ID()] = e
	return s
}

func (r *Registry) evictOldestLocked(now time.Time) {
	var (
		oldest  string
		maxIdle time.Duration = -1
	)
	for id, e := range r.sessions {
		if idle := e.idle(now); idle > maxIdle {
			oldest, maxIdle = id, idle
		}
	}
	delete(r.sessions, oldest)
}

// WithSession runs fn with exclusive access to the session id and marks it
// used. It reports false when no such session exists.
func (r *Registry) WithSession(id string, fn func(*Session)) bool {
	r.mu.Lock()
	e, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch(r.now())
	fn(e.session)
	return true
}

// Cleanup removes sessions idle for longer than ttl and returns how many
// were dropped.
func (r *Registry) Cleanup(ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	n := 0
	for id, e := range r.sessions {
		if e.idle(now) > ttl {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// Remove drops one session.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Clear drops every session. Used when the bank they were built from is
// reset.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.sessions = make(map[string]*entry)
	r.mu.Unlock()
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
