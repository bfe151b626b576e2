package driven

import (
	"context"

	"github.com/custodia-labs/qagent/internal/core/domain"
)

// EmbeddingService maps text to vectors. A knowledge base is only
// searchable with the service that built it: chunk and query vectors must
// come from the same model and dimension.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	Dimensions() int
	ModelName() string

	// Ping checks the provider is reachable without embedding anything.
	Ping(ctx context.Context) error
	Close() error
}

// LLMService completes prompts. It may be nil; generation then uses the
// deterministic fallback for every request.
type LLMService interface {
	// Generate returns the completion for prompt. Transport failures and
	// non-2xx responses are errors, which callers treat as a reason to
	// fall back. Implementations must return promptly once ctx is done;
	// the gateway stops waiting at its deadline but cannot stop the call.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	ModelName() string

	// Ping checks the provider is reachable without running inference.
	Ping(ctx context.Context) error
	Close() error
}

// GenerateOptions are sampling parameters for one completion. A zero
// MaxTokens leaves the limit to the provider; Temperature is always sent.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
	StopWords   []string
}

// AIConfigValidator probes provider settings before they are saved.
// Settings naming no usable provider are valid.
type AIConfigValidator interface {
	ValidateEmbedding(config *domain.EmbeddingSettings) error
	ValidateLLM(config *domain.LLMSettings) error
}
