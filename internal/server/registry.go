package server

import (
	"sync"
	"time"

	"github.com/drivesound/drivesound/internal/flow"
)

// entry holds one live session. mu serializes actions on the session;
// the controller itself is not safe for concurrent use.
type entry struct {
	mu       sync.Mutex
	c        *flow.Controller
	lastSeen time.Time
}

// registry maps session ids to live controllers.
type registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

func newRegistry() *registry {
	return &registry{entries: make(map[string]*entry), now: time.Now}
}

func (r *registry) add(c *flow.Controller) *entry {
	e := &entry{c: c, lastSeen: r.now()}
	r.mu.Lock()
	r.entries[c.Session().ID()] = e
	r.mu.Unlock()
	return e
}

// get returns the entry for id, locked. The caller must unlock it.
func (r *registry) get(id string) (*entry, bool) {
	r.mu.Lock()
	e, ok := r.entries[id]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	e.mu.Lock()

	// reap may have dropped the entry before we got its lock. reap only
	// TryLocks entries, so taking r.mu while holding e.mu cannot deadlock.
	r.mu.Lock()
	current := r.entries[id] == e
	if current {
		e.lastSeen = r.now()
	}
	r.mu.Unlock()
	if !current {
		e.mu.Unlock()
		return nil, false
	}
	return e, true
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// reap drops sessions idle for longer than maxIdle. Sessions that completed
// but whose write failed are kept so the write can still be retried.
func (r *registry) reap(maxIdle time.Duration) int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, e := range r.entries {
		if !e.mu.TryLock() {
			continue
		}
		idle := now.Sub(e.lastSeen) > maxIdle
		pending := e.c.Session().Completed() && !e.c.Persisted()
		e.mu.Unlock()
		if idle && !pending {
			delete(r.entries, id)
			n++
		}
	}
	return n
}
