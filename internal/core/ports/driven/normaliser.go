package driven

import (
	"context"

	"github.com/custodia-labs/qagent/internal/core/domain"
)

// Normaliser decodes an uploaded file into a source document.
// Each normaliser handles specific file extensions (e.g., .pdf, .md).
type Normaliser interface {
	// SupportedExtensions returns the lower-case extensions this normaliser handles,
	// including the leading dot.
	SupportedExtensions() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise decodes file content into a source document.
	Normalise(ctx context.Context, filename string, content []byte) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
// Note: Normalisation only produces document text.
// Chunking is handled by the PostProcessor pipeline.
type NormaliseResult struct {
	// Document is the decoded source document.
	Document domain.SourceDocument

	// Markup is set when the file is a page under test. It holds the raw markup.
	Markup string
}

// NormaliserRegistry selects the appropriate normaliser for a file.
type NormaliserRegistry interface {
	// Normalise decodes a file using the best matching normaliser.
	Normalise(ctx context.Context, filename string, content []byte) (*NormaliseResult, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedExtensions returns all extensions that can be normalised.
	SupportedExtensions() []string
}
