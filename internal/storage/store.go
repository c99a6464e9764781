// Package storage implements the file-backed article repository. Every
// document lives at <root>/<slug>.json with its immutable version history
// under <root>/history/<slug>/v<N>.json. The package owns these
// directories exclusively; nothing else writes to them.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lecternapp/lectern/cms"
	"github.com/lecternapp/lectern/cms/repository"
	"github.com/lecternapp/lectern/extract"
	"github.com/lecternapp/lectern/internal/atomicfile"
	"github.com/lecternapp/lectern/internal/cache"
	"github.com/lecternapp/lectern/internal/keylock"
)

const (
	historyDirName = "history"
	filePerm       = 0o644
	dirPerm        = 0o755
)

// Options configures the optional collaborators of an ArticleStore. Nil
// fields disable the corresponding concern: no cache means every read hits
// the disk, no limiter means mutations are never throttled, no scheduler
// means the secondary index is not kept in sync.
type Options struct {
	Cache           *cache.DocumentCache
	Limiter         repository.RateLimiter
	Scheduler       repository.SyncScheduler
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// ArticleStore is the file-backed implementation of
// repository.ArticleRepository. All mutating operations on the same slug
// are serialized through the lock manager; mutations on different slugs
// proceed in parallel; reads never take locks.
type ArticleStore struct {
	root      string
	locks     *keylock.Manager
	cache     *cache.DocumentCache
	limiter   repository.RateLimiter
	scheduler repository.SyncScheduler

	limitMax    int
	limitWindow time.Duration
}

var _ repository.ArticleRepository = (*ArticleStore)(nil)

// NewArticleStore creates the store rooted at root, creating the root and
// history directories if needed.
func NewArticleStore(root string, opts Options) (*ArticleStore, error) {
	if err := os.MkdirAll(filepath.Join(root, historyDirName), dirPerm); err != nil {
		return nil, fmt.Errorf("create article root %s: %w", root, err)
	}

	c := opts.Cache
	if c == nil {
		c = cache.New(cache.NoopBackend{}, cache.DefaultTTL)
	}

	return &ArticleStore{
		root:        root,
		locks:       keylock.New(),
		cache:       c,
		limiter:     opts.Limiter,
		scheduler:   opts.Scheduler,
		limitMax:    opts.RateLimitMax,
		limitWindow: opts.RateLimitWindow,
	}, nil
}

func (s *ArticleStore) documentPath(slug string) string {
	return filepath.Join(s.root, slug+".json")
}

func (s *ArticleStore) historyDir(slug string) string {
	return filepath.Join(s.root, historyDirName, slug)
}

func (s *ArticleStore) snapshotPath(slug string, version int) string {
	return filepath.Join(s.historyDir(slug), fmt.Sprintf("v%d.json", version))
}

// readDocument loads the canonical file for slug. fs.ErrNotExist passes
// through for callers to map to NOT_FOUND.
func (s *ArticleStore) readDocument(slug string) (*cms.Document, error) {
	raw, err := os.ReadFile(s.documentPath(slug))
	if err != nil {
		return nil, err
	}
	doc := &cms.Document{}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.documentPath(slug), err)
	}
	return doc, nil
}

// writeDocument persists doc atomically to its canonical path.
func (s *ArticleStore) writeDocument(doc *cms.Document) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", doc.Slug, err)
	}
	return atomicfile.WriteFile(s.documentPath(doc.Slug), raw, filePerm)
}

// readAllSorted loads every canonical document, newest first. Unreadable
// files are skipped with a warning rather than failing the listing.
func (s *ArticleStore) readAllSorted() ([]*cms.Document, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list article root %s: %w", s.root, err)
	}

	docs := make([]*cms.Document, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		slug := strings.TrimSuffix(entry.Name(), ".json")
		doc, err := s.readDocument(slug)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue // deleted between ReadDir and ReadFile
			}
			slog.Warn("skipping unreadable article file", "slug", slug, "error", err)
			continue
		}
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].Metadata.LastModified.After(docs[j].Metadata.LastModified)
	})
	return docs, nil
}

// derive recomputes the structure list and derived metadata from the body.
func (s *ArticleStore) derive(doc *cms.Document) {
	doc.Structure = extract.Extract(doc.Body)
	doc.Metadata.WordCount = extract.WordCount(doc.Body)
	doc.Metadata.ReadingTime = extract.ReadingTime(doc.Metadata.WordCount)
}

// allow consults the rate limiter before a mutation. Keys are per-slug so
// a hammered document never contends for its lock.
func (s *ArticleStore) allow(slug string) error {
	if s.limiter == nil || s.limitMax <= 0 {
		return nil
	}
	res := s.limiter.Check("article:"+slug, s.limitMax, s.limitWindow)
	if !res.Allowed {
		msg := fmt.Sprintf("rate limit exceeded for %q, retry after %s",
			slug, time.Until(res.ResetAt).Round(time.Second))
		return cms.NewOpError(cms.CodeRateLimited, msg, cms.ErrRateLimited)
	}
	return nil
}

func notFound(slug string) *cms.OpError {
	return cms.NewOpError(cms.CodeNotFound, fmt.Sprintf("article %q not found", slug), cms.ErrArticleNotFound)
}
