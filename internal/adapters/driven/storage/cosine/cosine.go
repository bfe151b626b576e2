// Package cosine ranks embedded chunks by cosine distance.
package cosine

import (
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/qagent/internal/core/domain"
)

// Distance returns 1 - cos(a, b). Zero vectors and mismatched lengths
// are maximally distant.
func Distance(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// TopK returns the k chunks nearest to query, nearest first.
// Ties keep insertion order.
func TopK(query []float32, chunks []domain.IndexedChunk, k int) []domain.RetrievalHit {
	if k <= 0 || len(chunks) == 0 {
		return []domain.RetrievalHit{}
	}

	hits := make([]domain.RetrievalHit, len(chunks))
	for i, c := range chunks {
		hits[i] = domain.RetrievalHit{
			Text:           c.Text,
			SourceFilename: c.SourceFilename,
			ChunkIndex:     c.ChunkIndex,
			TotalChunks:    c.TotalChunks,
			Distance:       Distance(query, c.Embedding),
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	return hits[:min(k, len(hits))]
}

// Dimensions returns the common vector width of chunks, or 0 for none.
// Chunks of differing widths fail with domain.ErrDimensionMismatch.
func Dimensions(chunks []domain.IndexedChunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	width := len(chunks[0].Embedding)
	for i, c := range chunks[1:] {
		if len(c.Embedding) != width {
			return 0, fmt.Errorf("%w: chunk %d has %d dimensions, chunk 0 has %d",
				domain.ErrDimensionMismatch, i+1, len(c.Embedding), width)
		}
	}
	return width, nil
}
