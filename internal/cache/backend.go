package cache

import (
	"sync"
	"time"
)

// Backend is the capability interface for the cache store. It is a
// best-effort external service: every error a backend returns is treated
// by the cache layer as a miss, never an operational failure.
type Backend interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
}

// NoopBackend always misses. It is the backend of choice for deployments
// without a cache; correctness never depends on cache hits.
type NoopBackend struct{}

func (NoopBackend) Get(string) ([]byte, bool, error)            { return nil, false, nil }
func (NoopBackend) Set(string, []byte, time.Duration) error     { return nil }
func (NoopBackend) Delete(string) error                         { return nil }

type memoryItem struct {
	value   []byte
	expires time.Time
}

// MemoryBackend is an in-process TTL cache.
type MemoryBackend struct {
	mu    sync.RWMutex
	items map[string]memoryItem
}

// NewMemoryBackend creates an empty in-process backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: make(map[string]memoryItem)}
}

func (b *MemoryBackend) Get(key string) ([]byte, bool, error) {
	b.mu.RLock()
	item, ok := b.items[key]
	b.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(item.expires) {
		b.mu.Lock()
		delete(b.items, key)
		b.mu.Unlock()
		return nil, false, nil
	}
	return item.value, true, nil
}

func (b *MemoryBackend) Set(key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	b.items[key] = memoryItem{value: value, expires: time.Now().Add(ttl)}
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Delete(key string) error {
	b.mu.Lock()
	delete(b.items, key)
	b.mu.Unlock()
	return nil
}

// Len returns the number of entries currently stored, expired or not.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}
