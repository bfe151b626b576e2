package postprocessors

import (
	"context"
	"strings"

	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
)

var _ driven.PostProcessor = DropBlank{}

// DropBlank removes chunks holding only whitespace. They embed to noise
// and crowd real hits out of the retrieval window.
type DropBlank struct{}

// Name returns "drop-blank".
func (DropBlank) Name() string { return "drop-blank" }

// Process filters chunks in place.
func (DropBlank) Process(_ context.Context, _ *domain.SourceDocument, chunks []domain.Chunk) ([]domain.Chunk, error) {
	kept := chunks[:0]
	for _, c := range chunks {
		if strings.TrimSpace(c.Text) != "" {
			kept = append(kept, c)
		}
	}
	return kept, nil
}
