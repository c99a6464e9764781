package cms

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lecternapp/lectern/extract"
)

// Status is the lifecycle state of a document.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// Document is the canonical article as stored on disk. The Structure list
// is always recomputed from Body on write and never hand-edited.
type Document struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Slug      string            `json:"slug"`
	Body      string            `json:"body"`
	Excerpt   string            `json:"excerpt,omitempty"`
	Category  string            `json:"category,omitempty"`
	Tags      []string          `json:"tags,omitempty"`
	SourceURL string            `json:"source_url,omitempty"`
	AuthorID  string            `json:"author_id"`
	Published bool              `json:"published"`
	Status    Status            `json:"status"`
	Structure []extract.Element `json:"structure"`
	Metadata  Metadata          `json:"metadata"`
}

// Metadata holds the derived fields of a document. Version increases by
// exactly 1 on every successful mutation and never decreases.
type Metadata struct {
	WordCount    int       `json:"word_count"`
	ReadingTime  int       `json:"reading_time"` // minutes
	LastModified time.Time `json:"last_modified"`
	Version      int       `json:"version"`
}

// NewDocument creates a draft document candidate with a fresh ID.
func NewDocument(slug, title, body string) *Document {
	return &Document{
		ID:     uuid.NewString(),
		Slug:   slug,
		Title:  title,
		Body:   body,
		Status: StatusDraft,
	}
}

// VersionSnapshot is an immutable historical record of a document at a
// specific version. For a slug at version N, snapshots 1..N exist.
type VersionSnapshot struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
}

// DocumentPatch carries the fields of a partial update. Nil fields are
// left unchanged.
type DocumentPatch struct {
	Title     *string   `json:"title,omitempty"`
	Body      *string   `json:"body,omitempty"`
	Excerpt   *string   `json:"excerpt,omitempty"`
	Category  *string   `json:"category,omitempty"`
	Tags      *[]string `json:"tags,omitempty"`
	SourceURL *string   `json:"source_url,omitempty"`
	Published *bool     `json:"published,omitempty"`
	Status    *Status   `json:"status,omitempty"`
}

// Apply merges the patch over doc in place and reports whether the body
// changed (which requires structure re-extraction).
func (p *DocumentPatch) Apply(doc *Document) (bodyChanged bool) {
	if p.Title != nil {
		doc.Title = *p.Title
	}
	if p.Body != nil && *p.Body != doc.Body {
		doc.Body = *p.Body
		bodyChanged = true
	}
	if p.Excerpt != nil {
		doc.Excerpt = *p.Excerpt
	}
	if p.Category != nil {
		doc.Category = *p.Category
	}
	if p.Tags != nil {
		doc.Tags = *p.Tags
	}
	if p.SourceURL != nil {
		doc.SourceURL = *p.SourceURL
	}
	if p.Published != nil {
		doc.Published = *p.Published
	}
	if p.Status != nil {
		doc.Status = *p.Status
	}
	return bodyChanged
}

// Filter selects documents in listing queries. Zero-valued fields are
// ignored. Search matches case-insensitively against title, body and
// extracted element text.
type Filter struct {
	AuthorID  string
	Status    Status
	Category  string
	Published *bool
	Search    string
}

// IsZero reports whether the filter selects everything.
func (f Filter) IsZero() bool {
	return f.AuthorID == "" && f.Status == "" && f.Category == "" &&
		f.Published == nil && f.Search == ""
}

// Page describes an offset/limit window over a listing. A zero Page means
// no pagination.
type Page struct {
	Offset int
	Limit  int
}

// IsZero reports whether no pagination was requested.
func (p Page) IsZero() bool { return p.Offset == 0 && p.Limit == 0 }

// Slice applies the window to docs, clamping out-of-range bounds.
func (p Page) Slice(docs []*Document) []*Document {
	if p.IsZero() {
		return docs
	}
	start := p.Offset
	if start > len(docs) {
		start = len(docs)
	}
	end := len(docs)
	if p.Limit > 0 && start+p.Limit < end {
		end = start + p.Limit
	}
	return docs[start:end]
}

var titleCaser = cases.Title(language.English)

// InferTitle derives a human-readable title from a slug, e.g.
// "intro-react" becomes "Intro React". Used when a candidate carries no
// explicit title.
func InferTitle(slug string) string {
	return titleCaser.String(strings.ReplaceAll(slug, "-", " "))
}
