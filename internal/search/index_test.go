package search

import (
	"testing"
	"time"

	"github.com/lecternapp/lectern/cms"
	"github.com/lecternapp/lectern/extract"
)

func indexedDoc(slug, title string, modified time.Time) *cms.Document {
	doc := cms.NewDocument(slug, title, "<p>body</p>")
	doc.Metadata.LastModified = modified
	doc.Structure = []extract.Element{
		{Kind: extract.KindParagraph, Text: "A lexer splits source text into tokens."},
		{Kind: extract.KindList, Items: []string{"scanning", "tokenizing"}},
	}
	return doc
}

func TestIndex_UpsertAndSearch(t *testing.T) {
	idx := NewIndex()
	idx.Upsert(indexedDoc("lexing", "Introduction to Lexing", time.Now()))

	hits := idx.Search("lexing")
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].Slug != "lexing" {
		t.Errorf("unexpected hit: %+v", hits[0])
	}
}

func TestIndex_SearchMatchesElementText(t *testing.T) {
	idx := NewIndex()
	idx.Upsert(indexedDoc("lexing", "Compilers", time.Now()))

	if hits := idx.Search("TOKENS"); len(hits) != 1 {
		t.Errorf("expected case-insensitive match on paragraph text, got %d hits", len(hits))
	}
	if hits := idx.Search("tokenizing"); len(hits) != 1 {
		t.Errorf("expected match on list items, got %d hits", len(hits))
	}
}

func TestIndex_EmptyQueryMatchesNothing(t *testing.T) {
	idx := NewIndex()
	idx.Upsert(indexedDoc("lexing", "Compilers", time.Now()))

	if hits := idx.Search("  "); hits != nil {
		t.Errorf("expected nil for blank query, got %d hits", len(hits))
	}
}

func TestIndex_NewestFirst(t *testing.T) {
	idx := NewIndex()
	now := time.Now()
	idx.Upsert(indexedDoc("older", "Compilers One", now.Add(-time.Hour)))
	idx.Upsert(indexedDoc("newer", "Compilers Two", now))

	hits := idx.Search("compilers")
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Slug != "newer" || hits[1].Slug != "older" {
		t.Errorf("expected newest first, got %s then %s", hits[0].Slug, hits[1].Slug)
	}
}

func TestIndex_UpsertReplaces(t *testing.T) {
	idx := NewIndex()
	idx.Upsert(indexedDoc("lexing", "Old Title", time.Now()))
	idx.Upsert(indexedDoc("lexing", "New Title", time.Now()))

	if idx.Len() != 1 {
		t.Fatalf("expected 1 entry after re-upsert, got %d", idx.Len())
	}
	if hits := idx.Search("old title"); len(hits) != 0 {
		t.Error("stale blob should no longer match")
	}
	if hits := idx.Search("new title"); len(hits) != 1 {
		t.Error("replacement entry should match")
	}
}

func TestIndex_Remove(t *testing.T) {
	idx := NewIndex()
	idx.Upsert(indexedDoc("lexing", "Compilers", time.Now()))

	idx.Remove("lexing")
	idx.Remove("never-existed") // must not panic

	if idx.Len() != 0 {
		t.Errorf("expected empty index, got %d entries", idx.Len())
	}
}
