package domain

// SourceDocument is a named block of decoded text supplied by ingestion.
// It is immutable once created.
type SourceDocument struct {
	// Filename identifies the document and is used for source attribution.
	Filename string

	// Content is the decoded text content.
	Content string
}

// Chunk represents a retrievable unit within a document.
// Ordering within a document is preserved from source order.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// Text is the chunk content, including any overlap prefix.
	Text string

	// SourceFilename is the Filename of the originating SourceDocument.
	SourceFilename string

	// ChunkIndex is the zero-based position within the document.
	ChunkIndex int

	// TotalChunks is the number of chunks the document was split into.
	TotalChunks int
}

// IndexedChunk is a Chunk together with its embedding vector.
type IndexedChunk struct {
	Chunk

	// Embedding is the vector representation used for similarity search.
	Embedding []float32
}

// RetrievalHit is a chunk returned by a similarity query.
type RetrievalHit struct {
	// Text is the chunk content.
	Text string `json:"text"`

	// SourceFilename names the document the chunk came from.
	SourceFilename string `json:"source"`

	// ChunkIndex is the chunk's position within its document.
	ChunkIndex int `json:"chunk_index"`

	// TotalChunks is the number of chunks in the source document.
	TotalChunks int `json:"total_chunks"`

	// Distance is the cosine distance to the query. Lower is more relevant.
	Distance float64 `json:"distance"`
}

// Sources returns the distinct source filenames of the hits in rank order.
func Sources(hits []RetrievalHit) []string {
	seen := make(map[string]bool, len(hits))
	var out []string
	for _, h := range hits {
		if h.SourceFilename == "" || seen[h.SourceFilename] {
			continue
		}
		seen[h.SourceFilename] = true
		out = append(out, h.SourceFilename)
	}
	return out
}

// KnowledgeStats summarises the state of a knowledge store.
type KnowledgeStats struct {
	// Built reports whether at least one build has completed.
	Built bool `json:"built"`

	// Documents is the number of documents in the current snapshot.
	Documents int `json:"documents"`

	// Chunks is the number of indexed chunks in the current snapshot.
	Chunks int `json:"chunks"`

	// EmbeddingModel names the embedder used for the snapshot.
	EmbeddingModel string `json:"embedding_model"`
}
