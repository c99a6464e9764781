package cms

import (
	"strings"
	"testing"
)

func TestDocument_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Document)
		wantErr bool
	}{
		{"valid", func(*Document) {}, false},
		{"missing slug", func(d *Document) { d.Slug = "" }, true},
		{"uppercase slug", func(d *Document) { d.Slug = "Intro" }, true},
		{"leading hyphen", func(d *Document) { d.Slug = "-intro" }, true},
		{"trailing hyphen", func(d *Document) { d.Slug = "intro-" }, true},
		{"double hyphen", func(d *Document) { d.Slug = "intro--react" }, true},
		{"slug with spaces", func(d *Document) { d.Slug = "intro react" }, true},
		{"missing title", func(d *Document) { d.Title = "" }, true},
		{"title too long", func(d *Document) { d.Title = strings.Repeat("x", 201) }, true},
		{"missing body", func(d *Document) { d.Body = "" }, true},
		{"body too large", func(d *Document) { d.Body = strings.Repeat("x", MaxBodyBytes+1) }, true},
		{"missing author", func(d *Document) { d.AuthorID = "" }, true},
		{"unknown status", func(d *Document) { d.Status = "pending" }, true},
		{"published status", func(d *Document) { d.Status = StatusPublished }, false},
		{"archived status", func(d *Document) { d.Status = StatusArchived }, false},
		{"numeric slug", func(d *Document) { d.Slug = "101" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDoc()
			tt.mutate(doc)
			err := doc.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []Status{StatusDraft, StatusPublished, StatusArchived} {
		if !ValidStatus(s) {
			t.Errorf("%s should be valid", s)
		}
	}
	for _, s := range []Status{"", "pending", "DRAFT"} {
		if ValidStatus(s) {
			t.Errorf("%q should be invalid", s)
		}
	}
}
