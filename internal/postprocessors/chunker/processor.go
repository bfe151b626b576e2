// Package chunker splits documents into overlapping, separator-aware chunks.
package chunker

import (
	"context"

	"github.com/google/uuid"

	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
)

var _ driven.PostProcessor = (*Processor)(nil)

// Defaults, in characters.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Processor is the pipeline stage that creates chunks. It ignores any
// chunks handed to it.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures a Processor.
type Option func(*Processor)

// WithChunkSize sets the soft maximum chunk length. Non-positive sizes
// keep the default.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets how many trailing characters repeat in the next chunk.
// Negative values keep the default.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New returns a Processor. An overlap that would leave no room for new
// text is cut to a quarter of the chunk size.
func New(opts ...Option) *Processor {
	p := &Processor{chunkSize: DefaultChunkSize, overlap: DefaultChunkOverlap}
	for _, opt := range opts {
		opt(p)
	}
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}
	return p
}

// Name returns "chunker".
func (p *Processor) Name() string { return "chunker" }

// ChunkSize returns the effective chunk size.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the effective overlap.
func (p *Processor) Overlap() int { return p.overlap }

// Process splits doc.Content. Each chunk gets a fresh ID.
func (p *Processor) Process(_ context.Context, doc *domain.SourceDocument, _ []domain.Chunk) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}

	texts := Split(doc.Content, p.chunkSize, p.overlap)
	if len(texts) == 0 {
		return nil, nil
	}
	chunks := make([]domain.Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, domain.Chunk{
			ID:             uuid.NewString(),
			Text:           text,
			SourceFilename: doc.Filename,
			ChunkIndex:     i,
			TotalChunks:    len(texts),
		})
	}
	return chunks, nil
}
