package markdown

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
	"github.com/custodia-labs/qagent/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedExtensions returns the extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".md", ".markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Format normaliser, higher than plaintext
}

// Normalise decodes a markdown document.
// Headings, lists and emphasis are kept as written.
func (n *Normaliser) Normalise(_ context.Context, filename string, content []byte) (*driven.NormaliseResult, error) {
	if filename == "" {
		return nil, domain.ErrInvalidInput
	}

	return &driven.NormaliseResult{
		Document: domain.SourceDocument{
			Filename: filename,
			Content:  simplify(plaintext.Decode(content)),
		},
	}, nil
}

// Pre-compiled regular expressions for markdown cleanup.
var (
	htmlComments  = regexp.MustCompile(`(?s)<!--.*?-->`)
	images        = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	links         = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	trailingSpace = regexp.MustCompile(`(?m)[ \t]+$`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// simplify removes comments, replaces images with their alt text and links
// with their label, and collapses runs of blank lines.
func simplify(content string) string {
	content = htmlComments.ReplaceAllString(content, "")
	content = images.ReplaceAllString(content, "$1")
	content = links.ReplaceAllString(content, "$1")
	content = trailingSpace.ReplaceAllString(content, "")
	content = multiNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
