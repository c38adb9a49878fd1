// Package cancel tracks the (process ID, secret key) pairs handed out to
// clients at startup so a later CancelRequest on a fresh connection (per
// spec.md §4.9) can be routed to the session it names, the same way
// PostgreSQL itself treats cancellation as an out-of-band side channel
// rather than an in-band message on the original connection.
package cancel

import "sync"

// Cancelable is the narrow surface a session exposes to the registry.
type Cancelable interface {
	Cancel()
}

type key struct {
	pid    int32
	secret uint32
}

// Registry maps (pid, secret) to the session that owns them. Lookups and
// registrations both take the same RWMutex; a CancelRequest is rare enough
// next to normal query traffic that a read lock on the hot path costs
// nothing worth avoiding.
type Registry struct {
	mu sync.RWMutex
	m  map[key]Cancelable
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{m: make(map[key]Cancelable)}
}

// Register records target under (pid, secret) and returns a func that
// removes it again; the caller defers the returned func for the lifetime
// of the session.
func (r *Registry) Register(pid int32, secret uint32, target Cancelable) func() {
	k := key{pid, secret}
	r.mu.Lock()
	r.m[k] = target
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.m, k)
		r.mu.Unlock()
	}
}

// Cancel looks up (pid, secret) and calls Cancel on the matching session,
// reporting whether a match was found. An unknown pair (stale, forged, or
// racing a session that already ended) is silently ignored, matching
// PostgreSQL's own CancelRequest semantics: the client gets no response
// either way.
func (r *Registry) Cancel(pid int32, secret uint32) bool {
	r.mu.RLock()
	target, ok := r.m[key{pid, secret}]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	target.Cancel()
	return true
}

// Len reports the number of tracked sessions, for metrics.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.m)
}
