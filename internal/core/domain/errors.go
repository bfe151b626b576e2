package domain

import "errors"

// Domain errors represent configuration-level failures.
// Every other failure in the generation pipeline degrades instead of erroring.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown file type or provider.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrNoDocuments indicates a build was requested without any documents.
	ErrNoDocuments = errors.New("no documents uploaded")

	// ErrNoMarkup indicates script generation was requested without page markup.
	ErrNoMarkup = errors.New("no page markup uploaded")

	// ErrKnowledgeBaseNotBuilt indicates generation was requested before a build.
	ErrKnowledgeBaseNotBuilt = errors.New("knowledge base not built")

	// ErrSessionNotFound indicates an unknown session ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Generation falls back to deterministic output.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrDimensionMismatch indicates vectors of different widths were
	// mixed, usually because the embedding model changed after a build.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
