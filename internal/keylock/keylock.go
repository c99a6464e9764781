// Package keylock provides per-key mutual exclusion with FIFO fairness.
// Lock entries exist only while a key is held or contended; the registry
// is an injectable instance, not package-level state, so independent
// repositories never share locks.
package keylock

import "sync"

// entry tracks one contended key. held stays true from the first Acquire
// until the last release; waiters are woken in arrival order.
type entry struct {
	held    bool
	waiters []chan struct{}
}

// Manager grants exclusive, queued access to named resources. Callers for
// different keys never block each other.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New creates an empty lock manager.
func New() *Manager {
	return &Manager{entries: make(map[string]*entry)}
}

// Acquire blocks until the caller holds the exclusive lock for key, then
// returns the release function. Waiters for the same key are granted the
// lock strictly in the order they called Acquire. Calling the returned
// release more than once is a no-op. The manager imposes no timeout;
// callers needing bounded waits must cancel before calling Acquire.
func (m *Manager) Acquire(key string) (release func()) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &entry{}
		m.entries[key] = e
	}
	if !e.held {
		e.held = true
		m.mu.Unlock()
		return m.releaseFunc(key)
	}
	ch := make(chan struct{})
	e.waiters = append(e.waiters, ch)
	m.mu.Unlock()

	<-ch // woken by direct hand-off from the previous holder
	return m.releaseFunc(key)
}

// releaseFunc guards against double release with sync.Once.
func (m *Manager) releaseFunc(key string) func() {
	var once sync.Once
	return func() {
		once.Do(func() { m.release(key) })
	}
}

func (m *Manager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || !e.held {
		// Releasing a key that was never acquired is a programming
		// error; it is deliberately a no-op rather than a panic.
		return
	}
	if len(e.waiters) == 0 {
		delete(m.entries, key)
		return
	}
	// Hand the lock directly to the oldest waiter. held remains true so
	// that Acquire calls racing with this release still queue behind it.
	next := e.waiters[0]
	e.waiters = e.waiters[1:]
	close(next)
}

// Active returns the number of keys currently held or contended.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
