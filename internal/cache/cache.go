// Package cache implements the cache-aside layer for documents and the
// listing index. The filesystem is always the source of truth: a miss or
// a backend failure only costs a re-read, never correctness.
package cache

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lecternapp/lectern/cms"
)

const (
	documentKeyPrefix = "document:"
	indexKey          = "document-index"
)

// DefaultTTL bounds the staleness of cached entries.
const DefaultTTL = time.Minute

// DocumentCache caches single documents by slug and the full unfiltered
// listing under a fixed index key.
type DocumentCache struct {
	backend Backend
	ttl     time.Duration
}

// New creates a DocumentCache over backend. A nil backend or non-positive
// ttl fall back to NoopBackend and DefaultTTL.
func New(backend Backend, ttl time.Duration) *DocumentCache {
	if backend == nil {
		backend = NoopBackend{}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &DocumentCache{backend: backend, ttl: ttl}
}

// GetDocument returns the cached document for slug, or (nil, false) on any
// miss, decode failure or backend error.
func (c *DocumentCache) GetDocument(slug string) (*cms.Document, bool) {
	raw, ok, err := c.backend.Get(documentKeyPrefix + slug)
	if err != nil {
		slog.Debug("cache get failed, treating as miss", "slug", slug, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	doc := &cms.Document{}
	if err := json.Unmarshal(raw, doc); err != nil {
		slog.Debug("cache entry corrupt, treating as miss", "slug", slug, "error", err)
		return nil, false
	}
	return doc, true
}

// SetDocument upserts the cached copy of doc. Failures are swallowed,
// but a failed upsert drops the key: a cache that cannot take the fresh
// value must not keep serving the previous one.
func (c *DocumentCache) SetDocument(slug string, doc *cms.Document) {
	raw, err := json.Marshal(doc)
	if err != nil {
		slog.Debug("cache encode failed", "slug", slug, "error", err)
		return
	}
	if err := c.backend.Set(documentKeyPrefix+slug, raw, c.ttl); err != nil {
		slog.Debug("cache set failed, dropping entry", "slug", slug, "error", err)
		c.drop(documentKeyPrefix + slug)
	}
}

// InvalidateDocument drops the cached copy for slug.
func (c *DocumentCache) InvalidateDocument(slug string) {
	c.drop(documentKeyPrefix + slug)
}

// drop removes key from the backend. When the delete itself fails, the
// entry is overwritten with an empty payload instead: an undecodable
// entry reads as a miss, so a half-broken backend can never serve a
// stale document.
func (c *DocumentCache) drop(key string) {
	if err := c.backend.Delete(key); err == nil {
		return
	}
	if err := c.backend.Set(key, nil, time.Nanosecond); err != nil {
		slog.Debug("cache drop failed", "key", key, "error", err)
	}
}

// GetIndex returns the cached unfiltered listing, or (nil, false) on miss.
func (c *DocumentCache) GetIndex() ([]*cms.Document, bool) {
	raw, ok, err := c.backend.Get(indexKey)
	if err != nil {
		slog.Debug("cache get failed, treating as miss", "key", indexKey, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var docs []*cms.Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		slog.Debug("cache entry corrupt, treating as miss", "key", indexKey, "error", err)
		return nil, false
	}
	return docs, true
}

// SetIndex caches the full unfiltered listing. As with SetDocument, a
// failed upsert drops the key rather than leaving the old listing live.
func (c *DocumentCache) SetIndex(docs []*cms.Document) {
	raw, err := json.Marshal(docs)
	if err != nil {
		slog.Debug("cache encode failed", "key", indexKey, "error", err)
		return
	}
	if err := c.backend.Set(indexKey, raw, c.ttl); err != nil {
		slog.Debug("cache set failed, dropping entry", "key", indexKey, "error", err)
		c.drop(indexKey)
	}
}

// InvalidateIndex drops the cached listing.
func (c *DocumentCache) InvalidateIndex() {
	c.drop(indexKey)
}
