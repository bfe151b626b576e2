package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
	"github.com/custodia-labs/qagent/internal/core/ports/driving"
	"github.com/custodia-labs/qagent/internal/logger"
)

// Ensure KnowledgeStore implements the interface.
var _ driving.KnowledgeService = (*KnowledgeStore)(nil)

const (
	defaultEmbedConcurrency = 4
	defaultEmbedBatchSize   = 32
)

// KnowledgeStore chunks, embeds and indexes documents, and answers
// nearest-neighbour queries against the current index.
//
// Build replaces the whole index. Embedding happens before the write lock is
// taken, so readers are blocked only while the index is swapped and always
// see either the old or the new snapshot. Concurrent builds are serialised.
type KnowledgeStore struct {
	pipeline driven.PostProcessorPipeline
	embedder driven.EmbeddingService
	index    driven.ChunkIndex

	concurrency int
	batchSize   int
	limiter     *rate.Limiter

	buildMu sync.Mutex
	mu      sync.RWMutex
	stats   domain.KnowledgeStats

	log logger.Component
}

// KnowledgeOption configures a KnowledgeStore.
type KnowledgeOption func(*KnowledgeStore)

// WithEmbedConcurrency bounds the number of parallel embedding requests.
func WithEmbedConcurrency(n int) KnowledgeOption {
	return func(s *KnowledgeStore) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithEmbedBatchSize sets how many chunk texts go into one embedding request.
func WithEmbedBatchSize(n int) KnowledgeOption {
	return func(s *KnowledgeStore) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithRateLimit throttles embedding requests to rps per second.
// Zero or negative disables throttling.
func WithRateLimit(rps float64) KnowledgeOption {
	return func(s *KnowledgeStore) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			s.limiter = nil
		}
	}
}

// NewKnowledgeStore creates a knowledge store over the given ports.
func NewKnowledgeStore(
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	index driven.ChunkIndex,
	opts ...KnowledgeOption,
) *KnowledgeStore {
	s := &KnowledgeStore{
		pipeline:    pipeline,
		embedder:    embedder,
		index:       index,
		concurrency: defaultEmbedConcurrency,
		batchSize:   defaultEmbedBatchSize,
		log:         logger.For("knowledge"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.stats.EmbeddingModel = embedder.ModelName()
	return s
}

// Build chunks and embeds docs and replaces the current index.
// Returns the number of indexed chunks.
func (s *KnowledgeStore) Build(ctx context.Context, docs []domain.SourceDocument) (int, error) {
	if len(docs) == 0 {
		return 0, domain.ErrNoDocuments
	}

	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	logger.Section("Knowledge Base Build")
	s.log.Info("Building from %d documents", len(docs))

	var chunks []domain.Chunk
	for i := range docs {
		docChunks, err := s.pipeline.Process(ctx, &docs[i])
		if err != nil {
			return 0, fmt.Errorf("chunk %s: %w", docs[i].Filename, err)
		}
		s.log.Debug("%s: %d chunks", docs[i].Filename, len(docChunks))
		chunks = append(chunks, docChunks...)
	}

	vectors, err := s.embedAll(ctx, chunks)
	if err != nil {
		return 0, err
	}

	indexed := make([]domain.IndexedChunk, len(chunks))
	for i, c := range chunks {
		indexed[i] = domain.IndexedChunk{Chunk: c, Embedding: vectors[i]}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Replace(ctx, indexed); err != nil {
		return 0, fmt.Errorf("replace index: %w", err)
	}
	s.stats = domain.KnowledgeStats{
		Built:          true,
		Documents:      len(docs),
		Chunks:         len(indexed),
		EmbeddingModel: s.embedder.ModelName(),
	}

	s.log.Info("Indexed %d chunks", len(indexed))
	return len(indexed), nil
}

// embedAll embeds chunk texts in bounded parallel batches.
func (s *KnowledgeStore) embedAll(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))
	if len(chunks) == 0 {
		return vectors, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for start := 0; start < len(texts); start += s.batchSize {
		end := min(start+s.batchSize, len(texts))
		g.Go(func() error {
			if s.limiter != nil {
				if err := s.limiter.Wait(gctx); err != nil {
					return err
				}
			}
			batch, err := s.embedder.EmbedBatch(gctx, texts[start:end])
			if err != nil {
				return err
			}
			if len(batch) != end-start {
				return fmt.Errorf("embedder returned %d vectors for %d texts", len(batch), end-start)
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	return vectors, nil
}

// Retrieve returns up to k hits nearest to query, sorted by ascending distance.
// Before any build, or for k below 1, it returns an empty slice.
func (s *KnowledgeStore) Retrieve(ctx context.Context, query string, k int) ([]domain.RetrievalHit, error) {
	if k <= 0 || !s.Stats().Built {
		return []domain.RetrievalHit{}, nil
	}

	vec, err := s.embedder.Embed(ctx, strings.TrimSpace(query))
	if err != nil {
		return []domain.RetrievalHit{}, fmt.Errorf("embed query: %w", err)
	}

	s.mu.RLock()
	hits, err := s.index.Search(ctx, vec, k)
	s.mu.RUnlock()
	if err != nil {
		return []domain.RetrievalHit{}, fmt.Errorf("search index: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	s.log.Debug("Retrieved %d hits for %q", len(hits), query)
	return hits, nil
}

// Stats summarises the current snapshot.
func (s *KnowledgeStore) Stats() domain.KnowledgeStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Restore marks a persisted index as built, so it can be queried
// without rebuilding. It returns the number of chunks found.
func (s *KnowledgeStore) Restore(ctx context.Context) (int, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	chunks, documents, err := s.index.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count index: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if chunks > 0 {
		s.stats = domain.KnowledgeStats{
			Built:          true,
			Documents:      documents,
			Chunks:         chunks,
			EmbeddingModel: s.embedder.ModelName(),
		}
	}
	return chunks, nil
}

// Reset empties the index and marks the store as not built.
func (s *KnowledgeStore) Reset(ctx context.Context) error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.index.Replace(ctx, nil); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	s.stats = domain.KnowledgeStats{EmbeddingModel: s.embedder.ModelName()}
	return nil
}

// Close releases the index.
func (s *KnowledgeStore) Close() error {
	return s.index.Close()
}
