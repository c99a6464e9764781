package repository

import "github.com/lecternapp/lectern/cms"

// ArticleRepository defines the persistence operations for documents.
// Every failure is an *cms.OpError carrying one of the uniform codes.
type ArticleRepository interface {
	// Save persists a new document at version 1. The slug must not exist.
	Save(doc *cms.Document) (*cms.Document, error)

	// Update merges a partial update over the existing document and
	// persists it at the next version.
	Update(slug string, patch *cms.DocumentPatch) (*cms.Document, error)

	// FindBySlug retrieves the current document for slug.
	FindBySlug(slug string) (*cms.Document, error)

	// FindAll lists documents matching filter, newest first, windowed by
	// page.
	FindAll(filter cms.Filter, page cms.Page) ([]*cms.Document, error)

	// Delete removes the document and all of its version history.
	Delete(slug string) error

	// Exists reports whether a current document exists for slug. It is
	// lock-free.
	Exists(slug string) bool

	// GetHistory lists all version snapshots for slug, newest first. A
	// slug with no history yields an empty list, not an error.
	GetHistory(slug string) ([]*cms.VersionSnapshot, error)

	// GetVersion retrieves one snapshot by number.
	GetVersion(slug string, version int) (*cms.VersionSnapshot, error)

	// RestoreVersion re-applies an old snapshot as a new version.
	RestoreVersion(slug string, version int) (*cms.Document, error)
}
