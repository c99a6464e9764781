package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/lecternapp/lectern/cms"
	"github.com/lecternapp/lectern/cms/service"
	"github.com/lecternapp/lectern/internal/search"
	"github.com/lecternapp/lectern/testutil"
)

func newTestApp(t *testing.T) (*App, *mux.Router) {
	t.Helper()

	ts := testutil.SetupTestStore(t)
	sanitizer := service.NewSanitizer(service.NewPolicy())

	app := &App{
		Articles:  service.NewArticleService(ts.Store, sanitizer),
		Rendering: service.NewRenderingService(sanitizer),
		Search:    search.NewIndex(),
		Config:    &cms.Config{},
	}

	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/api/articles", app.ListArticlesHandler).Methods("GET")
	router.HandleFunc("/api/articles", app.CreateArticleHandler).Methods("POST")
	router.HandleFunc("/api/articles/{slug}", app.GetArticleHandler).Methods("GET")
	router.HandleFunc("/api/articles/{slug}", app.UpdateArticleHandler).Methods("PUT")
	router.HandleFunc("/api/articles/{slug}", app.DeleteArticleHandler).Methods("DELETE")
	router.HandleFunc("/api/articles/{slug}/history", app.HistoryHandler).Methods("GET")
	router.HandleFunc("/api/articles/{slug}/restore/{version}", app.RestoreHandler).Methods("POST")
	router.HandleFunc("/api/articles/{slug}/diff", app.DiffHandler).Methods("GET")
	router.HandleFunc("/api/search", app.SearchHandler).Methods("GET")

	return app, router
}

func doJSON(t *testing.T, router *mux.Router, method, url string, payload any, user *cms.User) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = &bytes.Buffer{}
	}

	req := httptest.NewRequest(method, url, body)
	req.Header.Set("Content-Type", "application/json")
	req = testutil.RequestWithUser(req, userOrAnon(user))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func userOrAnon(user *cms.User) *cms.User {
	if user == nil {
		return cms.AnonymousUser()
	}
	return user
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func author() *cms.User {
	return &cms.User{ID: "author-1", ScreenName: "dana"}
}

func TestCreateArticleHandler(t *testing.T) {
	_, router := newTestApp(t)

	rec := doJSON(t, router, "POST", "/api/articles", map[string]any{
		"slug":  "intro-go",
		"title": "Intro to Go",
		"body":  "<p>Go is a compiled language.</p>",
	}, author())

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var doc cms.Document
	decodeBody(t, rec, &doc)
	if doc.Slug != "intro-go" || doc.Metadata.Version != 1 {
		t.Errorf("unexpected document: %+v", doc)
	}
	if doc.AuthorID != "author-1" {
		t.Errorf("author not taken from session user: %q", doc.AuthorID)
	}
}

func TestCreateArticleHandler_RendersMarkdown(t *testing.T) {
	_, router := newTestApp(t)

	rec := doJSON(t, router, "POST", "/api/articles", map[string]any{
		"slug":     "md-article",
		"title":    "Markdown",
		"markdown": "## Heading\n\nBody text.",
	}, author())

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var doc cms.Document
	decodeBody(t, rec, &doc)
	if !bytes.Contains([]byte(doc.Body), []byte("<h2")) {
		t.Errorf("markdown not rendered to HTML: %s", doc.Body)
	}
}

func TestCreateArticleHandler_ValidationFailure(t *testing.T) {
	_, router := newTestApp(t)

	rec := doJSON(t, router, "POST", "/api/articles", map[string]any{
		"slug":  "Bad Slug",
		"title": "T",
		"body":  "<p>b</p>",
	}, author())

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var errBody map[string]string
	decodeBody(t, rec, &errBody)
	if errBody["code"] != string(cms.CodeValidation) {
		t.Errorf("expected VALIDATION_ERROR code, got %v", errBody)
	}
}

func TestCreateArticleHandler_MalformedJSON(t *testing.T) {
	_, router := newTestApp(t)

	req := httptest.NewRequest("POST", "/api/articles", bytes.NewBufferString("{not json"))
	req = testutil.RequestWithUser(req, author())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed JSON, got %d", rec.Code)
	}
}

func TestGetArticleHandler(t *testing.T) {
	_, router := newTestApp(t)

	doJSON(t, router, "POST", "/api/articles", map[string]any{
		"slug": "findable", "title": "T", "body": "<p>b</p>",
	}, author())

	rec := doJSON(t, router, "GET", "/api/articles/findable", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, router, "GET", "/api/articles/ghost", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown slug, got %d", rec.Code)
	}
	var errBody map[string]string
	decodeBody(t, rec, &errBody)
	if errBody["code"] != string(cms.CodeNotFound) {
		t.Errorf("expected NOT_FOUND code, got %v", errBody)
	}
}

func TestUpdateArticleHandler_OwnershipEnforced(t *testing.T) {
	_, router := newTestApp(t)

	doJSON(t, router, "POST", "/api/articles", map[string]any{
		"slug": "guarded", "title": "T", "body": "<p>b</p>",
	}, author())

	rec := doJSON(t, router, "PUT", "/api/articles/guarded", map[string]any{
		"title": "Hijacked",
	}, &cms.User{ID: "stranger"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	rec = doJSON(t, router, "PUT", "/api/articles/guarded", map[string]any{
		"title": "Renamed",
	}, author())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner, got %d: %s", rec.Code, rec.Body.String())
	}

	var doc cms.Document
	decodeBody(t, rec, &doc)
	if doc.Title != "Renamed" || doc.Metadata.Version != 2 {
		t.Errorf("unexpected document after update: %+v", doc)
	}
}

func TestDeleteArticleHandler(t *testing.T) {
	_, router := newTestApp(t)

	doJSON(t, router, "POST", "/api/articles", map[string]any{
		"slug": "doomed", "title": "T", "body": "<p>b</p>",
	}, author())

	rec := doJSON(t, router, "DELETE", "/api/articles/doomed", nil, author())
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = doJSON(t, router, "GET", "/api/articles/doomed", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestHistoryAndRestoreHandlers(t *testing.T) {
	_, router := newTestApp(t)

	doJSON(t, router, "POST", "/api/articles", map[string]any{
		"slug": "versioned", "title": "One", "body": "<p>one</p>",
	}, author())
	doJSON(t, router, "PUT", "/api/articles/versioned", map[string]any{
		"title": "Two", "body": "<p>two</p>",
	}, author())

	rec := doJSON(t, router, "GET", "/api/articles/versioned/history", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snaps []cms.VersionSnapshot
	decodeBody(t, rec, &snaps)
	if len(snaps) != 2 || snaps[0].Version != 2 {
		t.Errorf("unexpected history: %+v", snaps)
	}

	rec = doJSON(t, router, "POST", "/api/articles/versioned/restore/1", nil, author())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var doc cms.Document
	decodeBody(t, rec, &doc)
	if doc.Metadata.Version != 3 || doc.Title != "One" {
		t.Errorf("unexpected restored document: %+v", doc)
	}

	rec = doJSON(t, router, "POST", "/api/articles/versioned/restore/zero", nil, author())
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-numeric version, got %d", rec.Code)
	}
}

func TestDiffHandler(t *testing.T) {
	_, router := newTestApp(t)

	doJSON(t, router, "POST", "/api/articles", map[string]any{
		"slug": "diffed", "title": "T", "body": "<p>the old text</p>",
	}, author())
	doJSON(t, router, "PUT", "/api/articles/diffed", map[string]any{
		"body": "<p>the new text</p>",
	}, author())

	rec := doJSON(t, router, "GET", "/api/articles/diffed/diff?from=1&to=2", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("<ins")) {
		t.Errorf("expected inline diff markup, got: %s", rec.Body.String())
	}

	rec = doJSON(t, router, "GET", "/api/articles/diffed/diff?from=x&to=2", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad version params, got %d", rec.Code)
	}
}

func TestListArticlesHandler_Filters(t *testing.T) {
	_, router := newTestApp(t)

	doJSON(t, router, "POST", "/api/articles", map[string]any{
		"slug": "pub", "title": "T", "body": "<p>b</p>", "published": true, "status": "published",
	}, author())
	doJSON(t, router, "POST", "/api/articles", map[string]any{
		"slug": "draft", "title": "T", "body": "<p>b</p>",
	}, &cms.User{ID: "author-2"})

	rec := doJSON(t, router, "GET", "/api/articles", nil, nil)
	var docs []cms.Document
	decodeBody(t, rec, &docs)
	if len(docs) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(docs))
	}

	rec = doJSON(t, router, "GET", "/api/articles?status=published", nil, nil)
	decodeBody(t, rec, &docs)
	if len(docs) != 1 || docs[0].Slug != "pub" {
		t.Errorf("status filter failed: %+v", docs)
	}

	rec = doJSON(t, router, "GET", "/api/articles?author=author-2", nil, nil)
	decodeBody(t, rec, &docs)
	if len(docs) != 1 || docs[0].Slug != "draft" {
		t.Errorf("author filter failed: %+v", docs)
	}

	rec = doJSON(t, router, "GET", "/api/articles?limit=1", nil, nil)
	decodeBody(t, rec, &docs)
	if len(docs) != 1 {
		t.Errorf("pagination failed, got %d docs", len(docs))
	}

	rec = doJSON(t, router, "GET", "/api/articles?status=bogus", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown status, got %d", rec.Code)
	}
}

func TestSearchHandler(t *testing.T) {
	app, router := newTestApp(t)

	doc := cms.NewDocument("indexed", "Compilers Course", "<p>b</p>")
	app.Search.Upsert(doc)

	rec := doJSON(t, router, "GET", "/api/search?q=compilers", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var hits []search.Hit
	decodeBody(t, rec, &hits)
	if len(hits) != 1 || hits[0].Slug != "indexed" {
		t.Errorf("unexpected hits: %+v", hits)
	}

	rec = doJSON(t, router, "GET", "/api/search?q=nothing-matches", nil, nil)
	var empty []search.Hit
	decodeBody(t, rec, &empty)
	if len(empty) != 0 {
		t.Errorf("expected empty results, got %+v", empty)
	}
}
