package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/lecternapp/lectern/cms"
	"github.com/lecternapp/lectern/internal/search"
)

// articleRequest is the JSON payload for creating an article. Markdown,
// when present, is rendered to HTML and takes precedence over Body.
type articleRequest struct {
	Title     string     `json:"title"`
	Slug      string     `json:"slug"`
	Body      string     `json:"body"`
	Markdown  string     `json:"markdown"`
	Excerpt   string     `json:"excerpt"`
	Category  string     `json:"category"`
	Tags      []string   `json:"tags"`
	SourceURL string     `json:"source_url"`
	Published bool       `json:"published"`
	Status    cms.Status `json:"status"`
}

func decodeJSON(req *http.Request, v any) error {
	defer req.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, req.Body, cms.MaxBodyBytes+64*1024))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// CreateArticleHandler handles POST /api/articles.
func (a *App) CreateArticleHandler(rw http.ResponseWriter, req *http.Request) {
	var payload articleRequest
	if err := decodeJSON(req, &payload); err != nil {
		writeError(rw, cms.NewOpError(cms.CodeValidation, "malformed article payload", err))
		return
	}

	body := payload.Body
	if payload.Markdown != "" {
		rendered, err := a.Rendering.Render(payload.Markdown)
		if err != nil {
			writeError(rw, cms.NewOpError(cms.CodeValidation, "failed to render markdown", err))
			return
		}
		body = rendered
	}

	candidate := cms.NewDocument(payload.Slug, payload.Title, body)
	candidate.Excerpt = payload.Excerpt
	candidate.Category = payload.Category
	candidate.Tags = payload.Tags
	candidate.SourceURL = payload.SourceURL
	candidate.Published = payload.Published
	if payload.Status != "" {
		candidate.Status = payload.Status
	}

	doc, err := a.Articles.Create(currentUser(req), candidate)
	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusCreated, doc)
}

// GetArticleHandler handles GET /api/articles/{slug}.
func (a *App) GetArticleHandler(rw http.ResponseWriter, req *http.Request) {
	doc, err := a.Articles.Get(mux.Vars(req)["slug"])
	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, doc)
}

// UpdateArticleHandler handles PUT /api/articles/{slug}.
func (a *App) UpdateArticleHandler(rw http.ResponseWriter, req *http.Request) {
	patch := &cms.DocumentPatch{}
	if err := decodeJSON(req, patch); err != nil {
		writeError(rw, cms.NewOpError(cms.CodeValidation, "malformed patch payload", err))
		return
	}

	doc, err := a.Articles.Update(currentUser(req), mux.Vars(req)["slug"], patch)
	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, doc)
}

// DeleteArticleHandler handles DELETE /api/articles/{slug}.
func (a *App) DeleteArticleHandler(rw http.ResponseWriter, req *http.Request) {
	if err := a.Articles.Delete(currentUser(req), mux.Vars(req)["slug"]); err != nil {
		writeError(rw, err)
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

// ListArticlesHandler handles GET /api/articles with optional filter and
// pagination query parameters.
func (a *App) ListArticlesHandler(rw http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()

	filter := cms.Filter{
		AuthorID: q.Get("author"),
		Status:   cms.Status(q.Get("status")),
		Category: q.Get("category"),
		Search:   q.Get("search"),
	}
	if filter.Status != "" && !cms.ValidStatus(filter.Status) {
		writeError(rw, cms.NewOpError(cms.CodeValidation,
			fmt.Sprintf("unknown status %q", filter.Status), nil))
		return
	}
	if published := q.Get("published"); published != "" {
		value := published == "true"
		filter.Published = &value
	}

	page := cms.Page{}
	if offset := q.Get("offset"); offset != "" {
		page.Offset, _ = strconv.Atoi(offset)
	}
	if limit := q.Get("limit"); limit != "" {
		page.Limit, _ = strconv.Atoi(limit)
	}

	docs, err := a.Articles.List(filter, page)
	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, docs)
}

// HistoryHandler handles GET /api/articles/{slug}/history.
func (a *App) HistoryHandler(rw http.ResponseWriter, req *http.Request) {
	snaps, err := a.Articles.History(mux.Vars(req)["slug"])
	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, snaps)
}

// RestoreHandler handles POST /api/articles/{slug}/restore/{version}.
func (a *App) RestoreHandler(rw http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	version, err := strconv.Atoi(vars["version"])
	if err != nil || version < 1 {
		writeError(rw, cms.NewOpError(cms.CodeValidation, "version must be a positive integer", err))
		return
	}

	doc, err := a.Articles.Restore(currentUser(req), vars["slug"], version)
	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, doc)
}

// DiffHandler handles GET /api/articles/{slug}/diff?from=N&to=M.
func (a *App) DiffHandler(rw http.ResponseWriter, req *http.Request) {
	from, err := strconv.Atoi(req.URL.Query().Get("from"))
	if err != nil {
		writeError(rw, cms.NewOpError(cms.CodeValidation, "from must be a version number", err))
		return
	}
	to, err := strconv.Atoi(req.URL.Query().Get("to"))
	if err != nil {
		writeError(rw, cms.NewOpError(cms.CodeValidation, "to must be a version number", err))
		return
	}

	diff, err := a.Articles.Diff(mux.Vars(req)["slug"], from, to)
	if err != nil {
		writeError(rw, err)
		return
	}

	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = rw.Write([]byte(diff))
}

// SearchHandler handles GET /api/search?q= against the secondary index.
func (a *App) SearchHandler(rw http.ResponseWriter, req *http.Request) {
	hits := a.Search.Search(req.URL.Query().Get("q"))
	if hits == nil {
		hits = []search.Hit{}
	}
	writeJSON(rw, http.StatusOK, hits)
}
