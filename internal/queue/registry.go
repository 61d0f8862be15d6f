package queue

import (
	"sync"

	"github.com/google/uuid"
)

// registry holds the in-flight job of each session. It is the dedup point of the queue.
type registry struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*Handle
}

func newRegistry() *registry {
	return &registry{jobs: make(map[uuid.UUID]*Handle)}
}

// reserve inserts the handle built by newHandle unless the session already has an active one.
// A handle whose run reached a terminal status is replaced even if its worker has not released it yet.
// It returns the handle that owns the session and whether it is the new one.
func (r *registry) reserve(sessionID uuid.UUID, newHandle func() *Handle) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, found := r.jobs[sessionID]; found && !h.Status().IsTerminal() {
		return h, false
	}

	h := newHandle()
	r.jobs[sessionID] = h
	return h, true
}

func (r *registry) get(sessionID uuid.UUID) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, found := r.jobs[sessionID]
	return h, found
}

// release forgets h. A newer handle of the same session is left untouched.
func (r *registry) release(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, found := r.jobs[h.SessionID]; found && current == h {
		delete(r.jobs, h.SessionID)
	}
}

func (r *registry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}
