package service

import (
	"bytes"
	"fmt"
	"html"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/lecternapp/lectern/cms"
	"github.com/lecternapp/lectern/cms/repository"
)

// ArticleService defines the operations exposed to transport handlers.
// Ownership checks live here, not in the repository: FORBIDDEN is a
// caller-side decision, produced in the same coded result shape as the
// repository's own failures.
type ArticleService interface {
	// Create sanitizes and persists a new article owned by user.
	Create(user *cms.User, candidate *cms.Document) (*cms.Document, error)

	// Update applies a partial update to an article user may edit.
	Update(user *cms.User, slug string, patch *cms.DocumentPatch) (*cms.Document, error)

	// Get retrieves an article by slug.
	Get(slug string) (*cms.Document, error)

	// List retrieves articles matching filter, newest first.
	List(filter cms.Filter, page cms.Page) ([]*cms.Document, error)

	// Delete removes an article user may edit, with its history.
	Delete(user *cms.User, slug string) error

	// History lists all version snapshots for slug, newest first.
	History(slug string) ([]*cms.VersionSnapshot, error)

	// Restore re-applies an old version as a new one.
	Restore(user *cms.User, slug string, version int) (*cms.Document, error)

	// Diff renders an HTML diff between two versions of an article.
	Diff(slug string, from, to int) (string, error)
}

// articleService is the default implementation of ArticleService.
type articleService struct {
	repo      repository.ArticleRepository
	sanitizer *Sanitizer
}

// NewArticleService creates a new ArticleService.
func NewArticleService(repo repository.ArticleRepository, sanitizer *Sanitizer) ArticleService {
	return &articleService{repo: repo, sanitizer: sanitizer}
}

func (s *articleService) Create(user *cms.User, candidate *cms.Document) (*cms.Document, error) {
	if user == nil {
		user = cms.AnonymousUser()
	}
	if candidate.AuthorID == "" {
		candidate.AuthorID = user.ID
	}
	if candidate.Title == "" {
		candidate.Title = cms.InferTitle(candidate.Slug)
	}
	candidate.Title = s.sanitizer.StripTags(candidate.Title)
	candidate.Excerpt = s.sanitizer.StripTags(candidate.Excerpt)

	safe, _ := s.sanitizer.Sanitize(candidate.Body)
	candidate.Body = safe

	// Slug conflicts are detected up front so they surface as input
	// errors, not write failures.
	if s.repo.Exists(candidate.Slug) {
		msg := fmt.Sprintf("slug %q already exists", candidate.Slug)
		return nil, cms.NewOpError(cms.CodeValidation, msg, cms.ErrSlugTaken)
	}

	return s.repo.Save(candidate)
}

func (s *articleService) Update(user *cms.User, slug string, patch *cms.DocumentPatch) (*cms.Document, error) {
	if err := s.authorize(user, slug); err != nil {
		return nil, err
	}
	if patch.Body != nil {
		safe, _ := s.sanitizer.Sanitize(*patch.Body)
		patch.Body = &safe
	}
	if patch.Title != nil {
		stripped := s.sanitizer.StripTags(*patch.Title)
		patch.Title = &stripped
	}
	return s.repo.Update(slug, patch)
}

func (s *articleService) Get(slug string) (*cms.Document, error) {
	return s.repo.FindBySlug(slug)
}

func (s *articleService) List(filter cms.Filter, page cms.Page) ([]*cms.Document, error) {
	return s.repo.FindAll(filter, page)
}

func (s *articleService) Delete(user *cms.User, slug string) error {
	if err := s.authorize(user, slug); err != nil {
		return err
	}
	return s.repo.Delete(slug)
}

func (s *articleService) History(slug string) ([]*cms.VersionSnapshot, error) {
	return s.repo.GetHistory(slug)
}

func (s *articleService) Restore(user *cms.User, slug string, version int) (*cms.Document, error) {
	if err := s.authorize(user, slug); err != nil {
		return nil, err
	}
	return s.repo.RestoreVersion(slug, version)
}

// authorize checks that user owns the article at slug or is an admin.
func (s *articleService) authorize(user *cms.User, slug string) error {
	existing, err := s.repo.FindBySlug(slug)
	if err != nil {
		return err
	}
	if user == nil {
		user = cms.AnonymousUser()
	}
	if existing.AuthorID != user.ID && !user.IsAdmin() {
		msg := fmt.Sprintf("you may not modify %q", slug)
		return cms.NewOpError(cms.CodeForbidden, msg, cms.ErrForbidden)
	}
	return nil
}

// Diff renders an inline HTML diff between the bodies of two versions.
func (s *articleService) Diff(slug string, from, to int) (string, error) {
	older, err := s.repo.GetVersion(slug, from)
	if err != nil {
		return "", err
	}
	newer, err := s.repo.GetVersion(slug, to)
	if err != nil {
		return "", err
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(older.Body, newer.Body, true)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var buff bytes.Buffer
	for _, diff := range diffs {
		text := html.EscapeString(diff.Text)
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			_, _ = buff.WriteString("<ins style=\"background:#e6ffe6;\">")
			_, _ = buff.WriteString(text)
			_, _ = buff.WriteString("</ins>")
		case diffmatchpatch.DiffDelete:
			_, _ = buff.WriteString("<del style=\"background:#ffe6e6;\">")
			_, _ = buff.WriteString(text)
			_, _ = buff.WriteString("</del>")
		case diffmatchpatch.DiffEqual:
			_, _ = buff.WriteString("<span>")
			_, _ = buff.WriteString(text)
			_, _ = buff.WriteString("</span>")
		}
	}
	return buff.String(), nil
}
