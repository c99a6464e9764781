// Package testutil provides test fixtures shared across packages.
package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/lecternapp/lectern/cms"
	"github.com/lecternapp/lectern/internal/cache"
	"github.com/lecternapp/lectern/internal/ratelimit"
	"github.com/lecternapp/lectern/internal/storage"
)

// RecordingScheduler captures sync requests instead of running them, so
// tests can assert on what the store scheduled.
type RecordingScheduler struct {
	mu      sync.Mutex
	Upserts []string
	Deletes []string
}

func (r *RecordingScheduler) ScheduleUpsert(doc *cms.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Upserts = append(r.Upserts, doc.Slug)
}

func (r *RecordingScheduler) ScheduleDelete(slug string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Deletes = append(r.Deletes, slug)
}

// UpsertCount returns the number of recorded upserts.
func (r *RecordingScheduler) UpsertCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Upserts)
}

// DeleteCount returns the number of recorded deletes.
func (r *RecordingScheduler) DeleteCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Deletes)
}

// TestStore bundles an ArticleStore with the collaborators tests commonly
// inspect.
type TestStore struct {
	Store     *storage.ArticleStore
	Root      string
	Backend   *cache.MemoryBackend
	Scheduler *RecordingScheduler
}

// SetupTestStore builds a file-backed store rooted in a temp directory,
// with an in-memory cache and a generous rate limit.
func SetupTestStore(t *testing.T) *TestStore {
	t.Helper()

	root := t.TempDir()
	backend := cache.NewMemoryBackend()
	scheduler := &RecordingScheduler{}

	store, err := storage.NewArticleStore(root, storage.Options{
		Cache:           cache.New(backend, time.Minute),
		Limiter:         ratelimit.New(ratelimit.NewMemoryStore()),
		Scheduler:       scheduler,
		RateLimitMax:    1000,
		RateLimitWindow: time.Minute,
	})
	if err != nil {
		t.Fatalf("failed to create article store: %v", err)
	}

	return &TestStore{
		Store:     store,
		Root:      root,
		Backend:   backend,
		Scheduler: scheduler,
	}
}

// SampleDocument returns a valid document for tests to mutate.
func SampleDocument(slug string) *cms.Document {
	doc := cms.NewDocument(slug, "Intro to Compilers",
		"<h2>Lexing</h2><p>A lexer splits source text into tokens.</p>")
	doc.AuthorID = "author-1"
	doc.Category = "computer-science"
	doc.Tags = []string{"compilers", "parsing"}
	return doc
}

// CreateTestArticle saves a sample document and returns the stored copy.
func CreateTestArticle(t *testing.T, store *storage.ArticleStore, slug string) *cms.Document {
	t.Helper()

	doc, err := store.Save(SampleDocument(slug))
	if err != nil {
		t.Fatalf("failed to save test article %q: %v", slug, err)
	}
	return doc
}

// RequestWithUser creates a request with a user context attached.
func RequestWithUser(r *http.Request, user *cms.User) *http.Request {
	ctx := context.WithValue(r.Context(), cms.UserKey, user)
	return r.WithContext(ctx)
}

// MakeTestRequest creates a test request with optional user context.
func MakeTestRequest(method, url string, user *cms.User) *http.Request {
	req := httptest.NewRequest(method, url, nil)
	if user == nil {
		user = cms.AnonymousUser()
	}
	return RequestWithUser(req, user)
}
