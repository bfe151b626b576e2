// Package plaintext decodes text-like uploads that need no parsing.
package plaintext

import (
	"context"
	"strings"

	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// fallbackPriority ranks below every format-specific normaliser.
const fallbackPriority = 5

// Normaliser passes text through Decode. The registry also uses it for
// extensions no other normaliser claims.
type Normaliser struct{}

func New() *Normaliser {
	return &Normaliser{}
}

func (n *Normaliser) SupportedExtensions() []string {
	return []string{".txt", ".text", ".log", ".csv", ".yaml", ".yml", ".toml", ".xml"}
}

func (n *Normaliser) Priority() int {
	return fallbackPriority
}

// Normalise never fails on content; only a missing filename is rejected.
func (n *Normaliser) Normalise(_ context.Context, filename string, content []byte) (*driven.NormaliseResult, error) {
	if filename == "" {
		return nil, domain.ErrInvalidInput
	}
	doc := domain.SourceDocument{Filename: filename, Content: Decode(content)}
	return &driven.NormaliseResult{Document: doc}, nil
}

// Decode returns content as valid UTF-8 with any byte-order mark removed
// and CRLF line endings folded to LF. Invalid sequences become U+FFFD.
func Decode(content []byte) string {
	s := strings.ToValidUTF8(string(content), "\uFFFD")
	s = strings.TrimPrefix(s, "\uFEFF")
	return strings.ReplaceAll(s, "\r\n", "\n")
}
