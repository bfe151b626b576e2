package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/qagent/internal/adapters/driven/storage/cosine"
	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
)

// Ensure ChunkIndex implements the interface.
var _ driven.ChunkIndex = (*ChunkIndex)(nil)

// ChunkIndex is an in-memory implementation of driven.ChunkIndex.
// Search is an exact scan over all chunks.
type ChunkIndex struct {
	mu     sync.RWMutex
	chunks []domain.IndexedChunk
}

// NewChunkIndex creates a new in-memory chunk index.
func NewChunkIndex() *ChunkIndex {
	return &ChunkIndex{}
}

// Replace discards the current chunks and stores the given ones.
func (s *ChunkIndex) Replace(_ context.Context, chunks []domain.IndexedChunk) error {
	snapshot := make([]domain.IndexedChunk, len(chunks))
	copy(snapshot, chunks)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = snapshot
	return nil
}

// Search returns the k chunks nearest to query.
func (s *ChunkIndex) Search(ctx context.Context, query []float32, k int) ([]domain.RetrievalHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cosine.TopK(query, s.chunks, k), nil
}

// Count returns the number of chunks and distinct source documents.
func (s *ChunkIndex) Count(_ context.Context) (chunks, documents int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, c := range s.chunks {
		seen[c.SourceFilename] = struct{}{}
	}
	return len(s.chunks), len(seen), nil
}

// Close releases the stored chunks.
func (s *ChunkIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = nil
	return nil
}
