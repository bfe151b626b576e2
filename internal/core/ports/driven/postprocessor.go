package driven

import (
	"context"

	"github.com/custodia-labs/qagent/internal/core/domain"
)

// PostProcessor is one stage of chunking. The first stage gets nil chunks
// and creates them from doc; later stages filter or rewrite what they get.
type PostProcessor interface {
	Name() string
	Process(ctx context.Context, doc *domain.SourceDocument, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline turns a document into its final, positioned
// chunks.
type PostProcessorPipeline interface {
	Process(ctx context.Context, doc *domain.SourceDocument) ([]domain.Chunk, error)
}
