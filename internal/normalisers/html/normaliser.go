package html

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
	"github.com/custodia-labs/qagent/internal/markup"
	"github.com/custodia-labs/qagent/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedExtensions returns the extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".html", ".htm", ".xhtml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Format normaliser, higher than plaintext
}

// Normalise converts an HTML page to its feature summary.
// The decoded page is returned as Markup.
func (n *Normaliser) Normalise(_ context.Context, filename string, content []byte) (*driven.NormaliseResult, error) {
	if filename == "" {
		return nil, domain.ErrInvalidInput
	}

	page := plaintext.Decode(content)
	doc, err := markup.Parse(page)
	if err != nil {
		return nil, err
	}

	return &driven.NormaliseResult{
		Document: domain.SourceDocument{
			Filename: filename,
			Content:  describe(doc),
		},
		Markup: page,
	}, nil
}

// describe renders the page features followed by its visible text.
func describe(doc *goquery.Document) string {
	features := markup.Features(doc)
	text := visibleText(doc)
	if text == "" {
		return features
	}
	return features + "\n\nPage Text:\n" + text
}

// visibleText returns the body text with scripts and styles removed,
// one non-blank line per text run.
func visibleText(doc *goquery.Document) string {
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript, template, svg").Remove()

	var lines []string
	for _, line := range strings.Split(body.Text(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
