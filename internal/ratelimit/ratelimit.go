// Package ratelimit implements a windowed request counter over a pluggable
// counter store. The repository consults it before acquiring slug locks so
// abusive callers never contend for them.
package ratelimit

import (
	"log/slog"
	"sync"
	"time"
)

// Window is one counting window for a key.
type Window struct {
	Count   int
	ResetAt time.Time
}

// CounterStore is the capability interface for the limiter's storage
// backend: a counter service with get/set and TTL expiry.
type CounterStore interface {
	Get(key string) (Window, bool, error)
	Set(key string, w Window, ttl time.Duration) error
}

// Result reports the outcome of a rate-limit check.
type Result struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// Limiter counts requests per key within fixed windows. The first request
// for a key starts a window; requests within it increment the counter up
// to the maximum; further requests are rejected without incrementing; once
// the window expires the next call starts a fresh one.
type Limiter struct {
	mu    sync.Mutex
	store CounterStore
}

// New creates a Limiter over store. A nil store gets an in-memory one.
func New(store CounterStore) *Limiter {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Limiter{store: store}
}

// Check records a request for key and reports whether it is allowed under
// max requests per window. Store failures fail open: an unreachable
// counter backend degrades limiting, never availability.
func (l *Limiter) Check(key string, max int, window time.Duration) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	w, ok, err := l.store.Get(key)
	if err != nil {
		slog.Debug("rate limit store get failed, allowing", "key", key, "error", err)
		return Result{Allowed: true, Remaining: max - 1, ResetAt: now.Add(window)}
	}

	if !ok || now.After(w.ResetAt) {
		w = Window{Count: 1, ResetAt: now.Add(window)}
		if err := l.store.Set(key, w, window); err != nil {
			slog.Debug("rate limit store set failed", "key", key, "error", err)
		}
		return Result{Allowed: true, Remaining: max - 1, ResetAt: w.ResetAt}
	}

	if w.Count >= max {
		return Result{Allowed: false, Remaining: 0, ResetAt: w.ResetAt}
	}

	w.Count++
	if err := l.store.Set(key, w, time.Until(w.ResetAt)); err != nil {
		slog.Debug("rate limit store set failed", "key", key, "error", err)
	}
	return Result{Allowed: true, Remaining: max - w.Count, ResetAt: w.ResetAt}
}

// MemoryStore is the in-process CounterStore.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]storedWindow
}

type storedWindow struct {
	window  Window
	expires time.Time
}

// NewMemoryStore creates an empty in-process counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]storedWindow)}
}

func (s *MemoryStore) Get(key string) (Window, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.windows[key]
	if !ok || time.Now().After(stored.expires) {
		delete(s.windows, key)
		return Window{}, false, nil
	}
	return stored.window, true, nil
}

func (s *MemoryStore) Set(key string, w Window, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows[key] = storedWindow{window: w, expires: time.Now().Add(ttl)}
	return nil
}
