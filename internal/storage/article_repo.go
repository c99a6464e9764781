package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lecternapp/lectern/cms"
)

// Save persists a new document at version 1. The sequence inside the slug
// lock is: validate, derive structure, append the version snapshot, write
// the canonical file atomically, refresh the cache. The snapshot is
// appended before the canonical write; a crash landing exactly between
// the two leaves an orphan snapshot with no current file. That window is
// an accepted, documented limitation of the format, not a bug to silently
// repair.
func (s *ArticleStore) Save(doc *cms.Document) (*cms.Document, error) {
	if err := s.allow(doc.Slug); err != nil {
		return nil, err
	}

	release := s.locks.Acquire(doc.Slug)
	defer release()

	saved, err := s.saveLocked(doc)
	if err != nil {
		return nil, err
	}

	if s.scheduler != nil {
		s.scheduler.ScheduleUpsert(saved)
	}
	return saved, nil
}

func (s *ArticleStore) saveLocked(doc *cms.Document) (*cms.Document, error) {
	if doc.Status == "" {
		if doc.Published {
			doc.Status = cms.StatusPublished
		} else {
			doc.Status = cms.StatusDraft
		}
	}
	if err := doc.Validate(); err != nil {
		return nil, cms.NewOpError(cms.CodeValidation, err.Error(), err)
	}
	if s.Exists(doc.Slug) {
		msg := fmt.Sprintf("slug %q already exists", doc.Slug)
		return nil, cms.NewOpError(cms.CodeValidation, msg, cms.ErrSlugTaken)
	}

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	s.derive(doc)
	doc.Metadata.Version = 1
	doc.Metadata.LastModified = time.Now().UTC()

	if err := s.appendSnapshot(doc.Slug, snapshotOf(doc)); err != nil {
		return nil, cms.NewOpError(cms.CodeWrite, "failed to record version snapshot", err)
	}
	if err := s.writeDocument(doc); err != nil {
		return nil, cms.NewOpError(cms.CodeWrite, "failed to write article file", err)
	}

	s.cache.InvalidateIndex()
	s.cache.SetDocument(doc.Slug, doc)
	return doc, nil
}

// Update merges patch over the existing document and persists it at the
// next version. Structure and word count are recomputed only when the
// body changed; otherwise the prior derived fields carry over.
func (s *ArticleStore) Update(slug string, patch *cms.DocumentPatch) (*cms.Document, error) {
	if err := s.allow(slug); err != nil {
		return nil, err
	}

	release := s.locks.Acquire(slug)
	defer release()

	updated, err := s.updateLocked(slug, patch)
	if err != nil {
		return nil, err
	}

	if s.scheduler != nil {
		s.scheduler.ScheduleUpsert(updated)
	}
	return updated, nil
}

// updateLocked always loads the canonical file from disk. The cache is a
// read-path optimization only; trusting it here would let a stale entry
// re-mint an already-used version number and clobber its snapshot.
func (s *ArticleStore) updateLocked(slug string, patch *cms.DocumentPatch) (*cms.Document, error) {
	doc, err := s.readDocument(slug)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(slug)
	}
	if err != nil {
		return nil, cms.NewOpError(cms.CodeUpdate, "failed to load article", err)
	}

	bodyChanged := patch.Apply(doc)
	if err := doc.Validate(); err != nil {
		return nil, cms.NewOpError(cms.CodeValidation, err.Error(), err)
	}
	if bodyChanged {
		s.derive(doc)
	}
	doc.Metadata.Version++
	doc.Metadata.LastModified = time.Now().UTC()

	if err := s.appendSnapshot(slug, snapshotOf(doc)); err != nil {
		return nil, cms.NewOpError(cms.CodeUpdate, "failed to record version snapshot", err)
	}
	if err := s.writeDocument(doc); err != nil {
		return nil, cms.NewOpError(cms.CodeUpdate, "failed to write article file", err)
	}

	s.cache.InvalidateIndex()
	s.cache.SetDocument(slug, doc)
	return doc, nil
}

// FindBySlug retrieves the current document, cache-aside: cache first,
// disk on miss, cache populated afterward. Reads never take the slug lock;
// the atomic writer guarantees they see the pre- or post-mutation file in
// full.
func (s *ArticleStore) FindBySlug(slug string) (*cms.Document, error) {
	if doc, ok := s.cache.GetDocument(slug); ok {
		return doc, nil
	}

	doc, err := s.readDocument(slug)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(slug)
	}
	if err != nil {
		return nil, cms.NewOpError(cms.CodeNotFound, "failed to read article", err)
	}

	s.cache.SetDocument(slug, doc)
	return doc, nil
}

// FindAll lists documents matching filter, sorted by last-modified
// descending, then windowed by page. The unfiltered, unpaginated call is
// the only path eligible for full-index caching; filtered calls always
// recompute from the on-disk set.
func (s *ArticleStore) FindAll(filter cms.Filter, page cms.Page) ([]*cms.Document, error) {
	if filter.IsZero() && page.IsZero() {
		if docs, ok := s.cache.GetIndex(); ok {
			return docs, nil
		}
		docs, err := s.readAllSorted()
		if err != nil {
			return nil, cms.NewOpError(cms.CodeNotFound, "failed to list articles", err)
		}
		s.cache.SetIndex(docs)
		return docs, nil
	}

	docs, err := s.readAllSorted()
	if err != nil {
		return nil, cms.NewOpError(cms.CodeNotFound, "failed to list articles", err)
	}

	filtered := docs[:0:0]
	for _, doc := range docs {
		if matchesFilter(doc, filter) {
			filtered = append(filtered, doc)
		}
	}
	return page.Slice(filtered), nil
}

func matchesFilter(doc *cms.Document, f cms.Filter) bool {
	if f.AuthorID != "" && doc.AuthorID != f.AuthorID {
		return false
	}
	if f.Status != "" && doc.Status != f.Status {
		return false
	}
	if f.Category != "" && doc.Category != f.Category {
		return false
	}
	if f.Published != nil && doc.Published != *f.Published {
		return false
	}
	if f.Search != "" && !matchesSearch(doc, f.Search) {
		return false
	}
	return true
}

// matchesSearch checks title, raw body and extracted element text for a
// case-insensitive substring match.
func matchesSearch(doc *cms.Document, query string) bool {
	query = strings.ToLower(query)
	if strings.Contains(strings.ToLower(doc.Title), query) {
		return true
	}
	if strings.Contains(strings.ToLower(doc.Body), query) {
		return true
	}
	for _, el := range doc.Structure {
		if strings.Contains(strings.ToLower(el.Text), query) {
			return true
		}
		for _, item := range el.Items {
			if strings.Contains(strings.ToLower(item), query) {
				return true
			}
		}
	}
	return false
}

// Delete removes the canonical file and the slug's entire version
// history, tolerating already-absent history files.
func (s *ArticleStore) Delete(slug string) error {
	if err := s.allow(slug); err != nil {
		return err
	}

	release := s.locks.Acquire(slug)
	defer release()

	if err := s.deleteLocked(slug); err != nil {
		return err
	}

	if s.scheduler != nil {
		s.scheduler.ScheduleDelete(slug)
	}
	return nil
}

func (s *ArticleStore) deleteLocked(slug string) error {
	if !s.Exists(slug) {
		return notFound(slug)
	}
	if err := os.Remove(s.documentPath(slug)); err != nil {
		return cms.NewOpError(cms.CodeDelete, "failed to remove article file", err)
	}
	if err := os.RemoveAll(s.historyDir(slug)); err != nil {
		return cms.NewOpError(cms.CodeDelete, "failed to remove article history", err)
	}

	s.cache.InvalidateDocument(slug)
	s.cache.InvalidateIndex()
	return nil
}

// RestoreVersion re-applies the title and body of an old snapshot through
// Update, producing a new version number. Restoring never reuses or
// rewinds the version counter.
func (s *ArticleStore) RestoreVersion(slug string, version int) (*cms.Document, error) {
	snap, err := s.GetVersion(slug, version)
	if err != nil {
		return nil, err
	}
	return s.Update(slug, &cms.DocumentPatch{Title: &snap.Title, Body: &snap.Body})
}

// Exists is a lock-free presence check for the canonical file, used to
// enforce slug uniqueness before Save.
func (s *ArticleStore) Exists(slug string) bool {
	_, err := os.Stat(s.documentPath(slug))
	return err == nil
}
