// Package search maintains the secondary searchable index that the sync
// queue mirrors repository mutations into. The index is entirely
// reconstructable from the filesystem, so it tolerates lost updates from
// failed sync jobs; the next mutation or a startup rebuild repairs it.
package search

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lecternapp/lectern/cms"
)

// Hit is one search result.
type Hit struct {
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	Excerpt      string    `json:"excerpt,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

type indexEntry struct {
	hit  Hit
	blob string // lowercased title + element text for substring matching
}

// Index is an in-memory searchable mirror of the document set.
type Index struct {
	mu      sync.RWMutex
	entries map[string]indexEntry
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{entries: make(map[string]indexEntry)}
}

// Upsert replaces the entry for doc's slug.
func (idx *Index) Upsert(doc *cms.Document) {
	var b strings.Builder
	b.WriteString(strings.ToLower(doc.Title))
	for _, el := range doc.Structure {
		b.WriteByte(' ')
		b.WriteString(strings.ToLower(el.Text))
		for _, item := range el.Items {
			b.WriteByte(' ')
			b.WriteString(strings.ToLower(item))
		}
	}

	idx.mu.Lock()
	idx.entries[doc.Slug] = indexEntry{
		hit: Hit{
			Slug:         doc.Slug,
			Title:        doc.Title,
			Excerpt:      doc.Excerpt,
			LastModified: doc.Metadata.LastModified,
		},
		blob: b.String(),
	}
	idx.mu.Unlock()
}

// Remove drops the entry for slug, tolerating its absence.
func (idx *Index) Remove(slug string) {
	idx.mu.Lock()
	delete(idx.entries, slug)
	idx.mu.Unlock()
}

// Search returns hits whose title or element text contains query,
// case-insensitively, newest first. An empty query matches nothing.
func (idx *Index) Search(query string) []Hit {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	idx.mu.RLock()
	var hits []Hit
	for _, e := range idx.entries {
		if strings.Contains(e.blob, query) {
			hits = append(hits, e.hit)
		}
	}
	idx.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		return hits[i].LastModified.After(hits[j].LastModified)
	})
	return hits
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}
