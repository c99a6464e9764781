package cms

import (
	"reflect"
	"testing"
)

func validDoc() *Document {
	doc := NewDocument("intro-compilers", "Intro to Compilers", "<p>body</p>")
	doc.AuthorID = "author-1"
	return doc
}

func TestDocumentPatch_Apply(t *testing.T) {
	doc := validDoc()
	doc.Tags = []string{"old"}

	title := "New Title"
	body := "<p>new body</p>"
	tags := []string{"new", "tags"}
	published := true

	patch := &DocumentPatch{
		Title:     &title,
		Body:      &body,
		Tags:      &tags,
		Published: &published,
	}

	if !patch.Apply(doc) {
		t.Error("expected bodyChanged to be true")
	}
	if doc.Title != title || doc.Body != body || !doc.Published {
		t.Errorf("patch not applied: %+v", doc)
	}
	if !reflect.DeepEqual(doc.Tags, tags) {
		t.Errorf("tags not replaced: %v", doc.Tags)
	}
}

func TestDocumentPatch_NilFieldsLeaveDocumentAlone(t *testing.T) {
	doc := validDoc()
	before := *doc

	if (&DocumentPatch{}).Apply(doc) {
		t.Error("empty patch must not report a body change")
	}
	if doc.Title != before.Title || doc.Body != before.Body || doc.Status != before.Status {
		t.Errorf("empty patch mutated the document: %+v", doc)
	}
}

func TestDocumentPatch_SameBodyIsNotAChange(t *testing.T) {
	doc := validDoc()
	same := doc.Body

	if (&DocumentPatch{Body: &same}).Apply(doc) {
		t.Error("re-submitting the identical body must not count as a change")
	}
}

func TestFilter_IsZero(t *testing.T) {
	if !(Filter{}).IsZero() {
		t.Error("empty filter should be zero")
	}
	published := true
	nonZero := []Filter{
		{AuthorID: "a"},
		{Status: StatusDraft},
		{Category: "math"},
		{Published: &published},
		{Search: "q"},
	}
	for i, f := range nonZero {
		if f.IsZero() {
			t.Errorf("filter %d should not be zero: %+v", i, f)
		}
	}
}

func TestPage_Slice(t *testing.T) {
	docs := []*Document{
		NewDocument("a", "A", "<p>a</p>"),
		NewDocument("b", "B", "<p>b</p>"),
		NewDocument("c", "C", "<p>c</p>"),
	}

	tests := []struct {
		name string
		page Page
		want []string
	}{
		{"zero page returns everything", Page{}, []string{"a", "b", "c"}},
		{"limit only", Page{Limit: 2}, []string{"a", "b"}},
		{"offset only", Page{Offset: 1}, []string{"b", "c"}},
		{"offset and limit", Page{Offset: 1, Limit: 1}, []string{"b"}},
		{"offset past end", Page{Offset: 10, Limit: 5}, []string{}},
		{"limit past end", Page{Offset: 2, Limit: 10}, []string{"c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.page.Slice(docs)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d docs, got %d", len(tt.want), len(got))
			}
			for i, doc := range got {
				if doc.Slug != tt.want[i] {
					t.Errorf("position %d: expected %s, got %s", i, tt.want[i], doc.Slug)
				}
			}
		})
	}
}

func TestInferTitle(t *testing.T) {
	tests := []struct {
		slug string
		want string
	}{
		{"intro-react", "Intro React"},
		{"css", "Css"},
		{"intro-to-compilers", "Intro To Compilers"},
	}
	for _, tt := range tests {
		if got := InferTitle(tt.slug); got != tt.want {
			t.Errorf("InferTitle(%q) = %q, want %q", tt.slug, got, tt.want)
		}
	}
}
