package cms

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// SlugPattern matches URL-safe slugs: lowercase alphanumerics separated by
// single hyphens, no leading or trailing hyphen.
var SlugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

const (
	maxTitleLength = 200
	maxSlugLength  = 120
	// MaxBodyBytes caps document bodies. Oversized content is rejected
	// before any lock is taken or file touched.
	MaxBodyBytes = 1 << 20
)

// Validate checks a document candidate. Input errors are rejected here,
// before locking or I/O.
func (d *Document) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.Slug,
			validation.Required,
			validation.Length(1, maxSlugLength),
			validation.Match(SlugPattern).Error("must be lowercase alphanumerics and hyphens"),
		),
		validation.Field(&d.Title, validation.Required, validation.Length(1, maxTitleLength)),
		validation.Field(&d.Body, validation.Required, validation.Length(1, MaxBodyBytes)),
		validation.Field(&d.AuthorID, validation.Required),
		validation.Field(&d.Status,
			validation.Required,
			validation.In(StatusDraft, StatusPublished, StatusArchived),
		),
	)
}

// ValidStatus reports whether s is one of the three lifecycle states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}
