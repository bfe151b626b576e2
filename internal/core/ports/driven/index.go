package driven

import (
	"context"

	"github.com/custodia-labs/qagent/internal/core/domain"
)

// ChunkIndex stores embedded chunks and answers nearest-neighbour queries.
// The index is always rebuilt wholesale; there is no incremental update.
type ChunkIndex interface {
	// Replace discards every stored chunk and stores the given ones.
	// Implementations must make the replacement atomic.
	Replace(ctx context.Context, chunks []domain.IndexedChunk) error

	// Search returns up to k chunks nearest to the query vector,
	// sorted by ascending cosine distance.
	Search(ctx context.Context, query []float32, k int) ([]domain.RetrievalHit, error)

	// Count returns the number of stored chunks and distinct source documents.
	Count(ctx context.Context) (chunks, documents int, err error)

	// Close releases resources.
	Close() error
}

// CollectionStore lists and removes the knowledge bases kept by a
// persistent index.
type CollectionStore interface {
	// Collections returns the names of collections that hold chunks, sorted.
	Collections(ctx context.Context) ([]string, error)

	// DeleteCollection removes every chunk stored under name.
	DeleteCollection(ctx context.Context, name string) error
}
