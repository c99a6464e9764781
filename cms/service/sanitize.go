package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// NewPolicy builds the sanitization policy for article bodies: the UGC
// baseline plus the attributes the structure extractor and diff views
// rely on.
func NewPolicy() *bluemonday.Policy {
	bm := bluemonday.UGCPolicy()

	bm.AllowAttrs("class").Globally()
	bm.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	bm.AllowAttrs("style").OnElements("ins", "del")
	bm.AllowAttrs("style").Matching(regexp.MustCompile(`^text-align:\s+(left|right|center);$`)).OnElements("td", "th")

	return bm
}

// disallowed lists element kinds whose removal is worth reporting to the
// caller as a policy violation.
var disallowed = []string{"script", "style", "iframe", "object", "embed", "form"}

// Sanitizer turns raw HTML into safe HTML, reporting what was removed.
// It is a pure function of its input: no I/O, no stored state beyond the
// immutable policy.
type Sanitizer struct {
	policy *bluemonday.Policy
	strip  *bluemonday.Policy
}

// NewSanitizer creates a Sanitizer over policy.
func NewSanitizer(policy *bluemonday.Policy) *Sanitizer {
	return &Sanitizer{policy: policy, strip: bluemonday.StrictPolicy()}
}

// Sanitize returns the safe form of raw plus a description of each
// disallowed construct that was removed.
func (s *Sanitizer) Sanitize(raw string) (safe string, violations []string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err == nil {
		for _, tag := range disallowed {
			if n := doc.Find(tag).Length(); n > 0 {
				violations = append(violations, fmt.Sprintf("removed %d <%s> element(s)", n, tag))
			}
		}
		doc.Find("a[href], img[src]").Each(func(_ int, sel *goquery.Selection) {
			href, _ := sel.Attr("href")
			src, _ := sel.Attr("src")
			for _, v := range []string{href, src} {
				if strings.HasPrefix(strings.ToLower(strings.TrimSpace(v)), "javascript:") {
					violations = append(violations, "removed javascript: URL")
				}
			}
		})
	}

	return s.policy.Sanitize(raw), violations
}

// StripTags removes all markup, for plain-text fields like titles and
// excerpts.
func (s *Sanitizer) StripTags(raw string) string {
	return s.strip.Sanitize(raw)
}
