package sockjs

import (
	"sync"

	"github.com/sockbridge/sockbridge/internal/metrics"
)

// registry maps session ids to sessions. Insert-if-absent and removal are
// atomic, everything heavier happens under the per-session lock so that
// unrelated sessions never serialize against each other.
type registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func newRegistry() *registry {
	return &registry{
		sessions: make(map[string]*session),
	}
}

// get returns a registered session by id.
func (r *registry) get(id string) (*session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// getOrCreate returns the session registered under id, creating it with
// the create callback when absent. The second return value reports whether
// a new session was created. The callback runs under the registry lock so
// concurrent calls for one id create exactly one session.
func (r *registry) getOrCreate(id string, create func() *session) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s, false
	}
	s := create()
	r.sessions[id] = s
	metrics.SessionsActive.Inc()
	return s, true
}

// remove deletes the session registered under id.
func (r *registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; ok {
		delete(r.sessions, id)
		metrics.SessionsActive.Dec()
	}
}

// length returns the number of registered sessions.
func (r *registry) length() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
