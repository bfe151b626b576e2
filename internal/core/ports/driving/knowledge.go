package driving

import (
	"context"

	"github.com/custodia-labs/qagent/internal/core/domain"
)

// KnowledgeService builds and queries a session's knowledge base.
type KnowledgeService interface {
	// Build chunks and embeds the documents and replaces the current index.
	// Returns the number of indexed chunks, or ErrNoDocuments for an empty list.
	Build(ctx context.Context, docs []domain.SourceDocument) (int, error)

	// Retrieve returns up to k hits nearest to query, most relevant first.
	// Before any Build it returns an empty slice and no error.
	Retrieve(ctx context.Context, query string, k int) ([]domain.RetrievalHit, error)

	// Stats summarises the current snapshot.
	Stats() domain.KnowledgeStats
}
