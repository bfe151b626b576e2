// Package postprocessors turns source documents into indexed chunks.
package postprocessors

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
	"github.com/custodia-labs/qagent/internal/logger"
	"github.com/custodia-labs/qagent/internal/postprocessors/chunker"
)

var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

var log = logger.For("pipeline")

// Pipeline runs processors in order. The first receives nil chunks and
// creates them; later ones rewrite, drop or add. Once all have run, every
// chunk is stamped with its position and, if unset, its source filename.
type Pipeline struct {
	processors []driven.PostProcessor
}

// NewPipeline returns a pipeline running processors in the given order.
func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{processors: processors}
}

// FromSettings returns the standard pipeline: split, then drop blank
// chunks.
func FromSettings(settings domain.ChunkingSettings) (*Pipeline, error) {
	if settings.ChunkSize < 0 || settings.Overlap < 0 {
		return nil, fmt.Errorf("%w: chunk size %d and overlap %d must not be negative",
			domain.ErrInvalidInput, settings.ChunkSize, settings.Overlap)
	}
	split := chunker.New(
		chunker.WithChunkSize(settings.ChunkSize),
		chunker.WithOverlap(settings.Overlap),
	)
	return NewPipeline(split, DropBlank{}), nil
}

// Process chunks doc.
func (p *Pipeline) Process(ctx context.Context, doc *domain.SourceDocument) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, errors.New("document is nil")
	}

	var chunks []domain.Chunk
	for _, proc := range p.processors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		if chunks, err = proc.Process(ctx, doc, chunks); err != nil {
			return nil, fmt.Errorf("processor %s: %w", proc.Name(), err)
		}
	}

	for i := range chunks {
		chunks[i].ChunkIndex = i
		chunks[i].TotalChunks = len(chunks)
		if chunks[i].SourceFilename == "" {
			chunks[i].SourceFilename = doc.Filename
		}
	}
	log.Debug("%s: %d chunks", doc.Filename, len(chunks))
	return chunks, nil
}

// Names returns the processor names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.processors))
	for i, proc := range p.processors {
		names[i] = proc.Name()
	}
	return names
}
