package document_text

import (
	"bytes"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"rubric-orchestrator/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// Extractor turns uploaded plain text, markdown and HTML files into section-ready text.
type Extractor struct {
	policy *bluemonday.Policy
}

func NewExtractor() *Extractor {
	return &Extractor{policy: bluemonday.StrictPolicy()}
}

// Supported reports whether filename has an extension the extractor can read.
func (e *Extractor) Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".html", ".htm":
		return true
	default:
		return false
	}
}

func (e *Extractor) Extract(filename string, content []byte) (string, error) {
	if !e.Supported(filename) {
		return "", domain.ErrUnsupportedDocument
	}
	if !utf8.Valid(content) {
		return "", domain.ErrUnsupportedDocument
	}

	var text string
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html", ".htm":
		text = e.extractHTML(content)
	default:
		text = string(content)
	}

	if strings.TrimSpace(text) == "" {
		return "", domain.ErrEmptyDocument
	}
	return text, nil
}

// extractHTML keeps headings, paragraphs, code blocks and list items in
// document order, one block per paragraph.
func (e *Extractor) extractHTML(content []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return e.stripTags(string(content))
	}

	doc.Find("head, script, style, noscript, nav, footer, iframe").Remove()

	var blocks []string
	doc.Find("h1, h2, h3, h4, h5, h6, p, pre, li").Each(func(_ int, s *goquery.Selection) {
		// Nested matches are covered by their outermost block.
		if s.ParentsFiltered("p, pre, li").Length() > 0 {
			return
		}
		if text := strings.TrimSpace(s.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})

	if len(blocks) == 0 {
		return e.stripTags(string(content))
	}
	return strings.Join(blocks, "\n\n")
}

func (e *Extractor) stripTags(raw string) string {
	return strings.Join(strings.Fields(e.policy.Sanitize(raw)), " ")
}

var _ domain.TextExtractor = (*Extractor)(nil)
