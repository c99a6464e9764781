package service

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// RenderingService converts markdown authoring input into sanitized HTML
// suitable for an article body.
type RenderingService interface {
	// Render converts markdown to sanitized HTML.
	Render(markdown string) (string, error)
}

// renderingService is the default implementation of RenderingService.
type renderingService struct {
	md        goldmark.Markdown
	sanitizer *Sanitizer
}

// NewRenderingService creates a RenderingService whose output has passed
// through sanitizer.
func NewRenderingService(sanitizer *Sanitizer) RenderingService {
	return &renderingService{
		md: goldmark.New(
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
			goldmark.WithExtensions(
				extension.Table,
				extension.Strikethrough,
			),
		),
		sanitizer: sanitizer,
	}
}

// Render converts markdown to sanitized HTML.
func (s *renderingService) Render(markdown string) (string, error) {
	buf := &bytes.Buffer{}
	if err := s.md.Convert([]byte(markdown), buf); err != nil {
		return "", fmt.Errorf("failed to Convert: %w", err)
	}
	safe, _ := s.sanitizer.Sanitize(buf.String())
	return safe, nil
}
