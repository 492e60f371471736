package clock

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Timers keeps named timer handles so every pending wake-up can be found,
// replaced, or torn down by key. Scheduling a key that is already armed
// replaces the earlier timer.
type Timers struct {
	clock   Clock
	mu      sync.Mutex
	handles map[string]*handle
}

type handle struct {
	timer Timer
}

func NewTimers(c Clock) *Timers {
	return &Timers{
		clock:   c,
		handles: make(map[string]*handle),
	}
}

func (t *Timers) Schedule(key string, d time.Duration, f func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if old, ok := t.handles[key]; ok {
		old.timer.Stop()
	}
	h := &handle{}
	t.handles[key] = h
	// mu is held until h.timer is set, so a zero-delay real timer cannot observe
	// a half-built handle.
	h.timer = t.clock.AfterFunc(d, func() {
		t.mu.Lock()
		if cur, ok := t.handles[key]; !ok || cur != h {
			t.mu.Unlock()
			return
		}
		delete(t.handles, key)
		t.mu.Unlock()
		f()
	})
}

func (t *Timers) Cancel(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.handles[key]
	if !ok {
		return false
	}
	delete(t.handles, key)
	h.timer.Stop()
	return true
}

// CancelPrefix cancels every key starting with prefix and returns the count.
func (t *Timers) CancelPrefix(prefix string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for key, h := range t.handles {
		if strings.HasPrefix(key, prefix) {
			h.timer.Stop()
			delete(t.handles, key)
			n++
		}
	}
	return n
}

func (t *Timers) Has(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.handles[key]
	return ok
}

// Keys lists armed keys with the given prefix, sorted.
func (t *Timers) Keys(prefix string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	keys := make([]string, 0, len(t.handles))
	for key := range t.handles {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// StopAll cancels every outstanding timer.
func (t *Timers) StopAll() {
	t.CancelPrefix("")
}
