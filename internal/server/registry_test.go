package server

import (
	"testing"
	"time"

	"github.com/drivesound/drivesound/internal/testutil"
)

func TestRegistryGetAfterReapRemoval(t *testing.T) {
	r := newRegistry()
	e := r.add(testutil.Controller(t, &testutil.MemPersister{}))
	id := e.c.Session().ID()

	// Hold the entry as an in-flight request would, so the next get blocks
	// on the entry lock after finding it.
	e.mu.Lock()
	got := make(chan bool, 1)
	go func() {
		ge, ok := r.get(id)
		if ok {
			ge.mu.Unlock()
		}
		got <- ok
	}()
	time.Sleep(20 * time.Millisecond)

	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
	e.mu.Unlock()

	if ok := <-got; ok {
		t.Error("get returned an entry that is no longer registered")
	}
	if _, ok := r.get(id); ok {
		t.Error("get found a removed session")
	}
}

func TestRegistryGetRefreshesLastSeen(t *testing.T) {
	r := newRegistry()
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return t0 }
	e := r.add(testutil.Controller(t, &testutil.MemPersister{}))
	id := e.c.Session().ID()

	r.now = func() time.Time { return t0.Add(time.Hour) }
	ge, ok := r.get(id)
	if !ok {
		t.Fatal("get did not find a registered session")
	}
	ge.mu.Unlock()
	if !ge.lastSeen.Equal(t0.Add(time.Hour)) {
		t.Errorf("lastSeen = %v, want %v", ge.lastSeen, t0.Add(time.Hour))
	}

	if n := r.reap(30 * time.Minute); n != 0 {
		t.Errorf("reap dropped %d sessions seen just now, want 0", n)
	}
	if r.len() != 1 {
		t.Errorf("len = %d, want 1", r.len())
	}
}
