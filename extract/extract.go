// Package extract parses a document body into a flat list of addressable
// structural elements. Extraction is a pure function of the body: the same
// input always yields the same elements with the same paths.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Kind tags a structural element.
type Kind string

const (
	KindHeading   Kind = "heading"
	KindParagraph Kind = "paragraph"
	KindLink      Kind = "link"
	KindImage     Kind = "image"
	KindList      Kind = "list"
	KindQuote     Kind = "quote"
	KindCode      Kind = "code"
)

// Element is one addressable structural element. Path is unique within a
// document and stable across re-extraction of unchanged content.
type Element struct {
	Path  string   `json:"path"`
	Kind  Kind     `json:"kind"`
	Level int      `json:"level,omitempty"`
	Text  string   `json:"text,omitempty"`
	Href  string   `json:"href,omitempty"`
	Src   string   `json:"src,omitempty"`
	Alt   string   `json:"alt,omitempty"`
	Items []string `json:"items,omitempty"`
}

// The single selector keeps elements in document discovery order.
const elementSelector = "h1, h2, h3, h4, h5, h6, p, a[href], img, ul, ol, blockquote, pre"

// Extract walks body and returns its structural elements in discovery
// order. Malformed or unbalanced markup degrades gracefully: html.Parse
// repairs what it can and anything unrecognizable is skipped.
func Extract(body string) []Element {
	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		// html.Parse only fails on reader errors, not bad markup.
		return nil
	}
	doc := goquery.NewDocumentFromNode(root)

	var elements []Element
	counts := map[Kind]int{}

	next := func(kind Kind) int {
		n := counts[kind]
		counts[kind]++
		return n
	}

	doc.Find(elementSelector).Each(func(_ int, s *goquery.Selection) {
		node := s.Nodes[0]
		switch node.Data {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			level := int(node.Data[1] - '0')
			text := cleanText(s.Text())
			n := next(KindHeading)
			elements = append(elements, Element{
				Path:  fmt.Sprintf("heading-%d-%s-%d", level, slugifyFragment(text), n),
				Kind:  KindHeading,
				Level: level,
				Text:  text,
			})
		case "p":
			// Paragraphs nested in quotes or list items are reported by
			// their containing element.
			if s.ParentsFiltered("blockquote, li").Length() > 0 {
				return
			}
			text := cleanText(s.Text())
			if text == "" {
				return
			}
			elements = append(elements, Element{
				Path: fmt.Sprintf("paragraph-%d", next(KindParagraph)),
				Kind: KindParagraph,
				Text: text,
			})
		case "a":
			href, _ := s.Attr("href")
			elements = append(elements, Element{
				Path: fmt.Sprintf("link-%d", next(KindLink)),
				Kind: KindLink,
				Href: href,
				Text: cleanText(s.Text()),
			})
		case "img":
			src, _ := s.Attr("src")
			alt, _ := s.Attr("alt")
			elements = append(elements, Element{
				Path: fmt.Sprintf("image-%d", next(KindImage)),
				Kind: KindImage,
				Src:  src,
				Alt:  alt,
			})
		case "ul", "ol":
			if s.ParentsFiltered("ul, ol").Length() > 0 {
				return // nested lists belong to their outermost list
			}
			var items []string
			s.Find("li").Each(func(_ int, li *goquery.Selection) {
				if text := cleanText(li.Text()); text != "" {
					items = append(items, text)
				}
			})
			elements = append(elements, Element{
				Path:  fmt.Sprintf("list-%d", next(KindList)),
				Kind:  KindList,
				Items: items,
			})
		case "blockquote":
			elements = append(elements, Element{
				Path: fmt.Sprintf("quote-%d", next(KindQuote)),
				Kind: KindQuote,
				Text: cleanText(s.Text()),
			})
		case "pre":
			elements = append(elements, Element{
				Path: fmt.Sprintf("code-%d", next(KindCode)),
				Kind: KindCode,
				Text: strings.TrimRight(s.Text(), "\n"),
			})
		}
	})

	return elements
}

// WordCount counts words in the text content of body, ignoring markup.
func WordCount(body string) int {
	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return 0
	}
	doc := goquery.NewDocumentFromNode(root)
	return len(strings.Fields(doc.Text()))
}

// wordsPerMinute is the assumed reading speed for the estimate.
const wordsPerMinute = 200

// ReadingTime estimates reading time in whole minutes, always at least 1.
func ReadingTime(wordCount int) int {
	minutes := (wordCount + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

var (
	whitespaceRun  = regexp.MustCompile(`\s+`)
	nonSlugChars   = regexp.MustCompile(`[^a-z0-9]+`)
	hyphenTrimming = regexp.MustCompile(`^-+|-+$`)
)

func cleanText(s string) string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
}

// slugifyFragment lowercases text and collapses everything that is not a
// lowercase alphanumeric into single hyphens, for use in heading paths.
func slugifyFragment(text string) string {
	s := nonSlugChars.ReplaceAllString(strings.ToLower(text), "-")
	s = hyphenTrimming.ReplaceAllString(s, "")
	if s == "" {
		return "untitled"
	}
	return s
}
