package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider names a backend for embeddings or text generation.
type AIProvider string

const (
	AIProviderLocal     AIProvider = "local" // built-in hashing embedder
	AIProviderOllama    AIProvider = "ollama"
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderAnthropic AIProvider = "anthropic"
)

type providerInfo struct {
	description string
	needsKey    bool
	local       bool
}

var providers = map[AIProvider]providerInfo{
	AIProviderLocal:     {description: "Local (built-in hashing embedder)", local: true},
	AIProviderOllama:    {description: "Ollama (local)", local: true},
	AIProviderOpenAI:    {description: "OpenAI (cloud)", needsKey: true},
	AIProviderAnthropic: {description: "Anthropic (cloud)", needsKey: true},
}

// IsValid reports whether p is a known provider.
func (p AIProvider) IsValid() bool {
	_, ok := providers[p]
	return ok
}

// RequiresAPIKey reports whether p is a cloud API that needs a key.
func (p AIProvider) RequiresAPIKey() bool {
	return providers[p].needsKey
}

// IsLocal reports whether p runs without a cloud account.
func (p AIProvider) IsLocal() bool {
	return providers[p].local
}

func (p AIProvider) String() string {
	return string(p)
}

// Description is the label shown in provider menus.
func (p AIProvider) Description() string {
	if info, ok := providers[p]; ok {
		return info.description
	}
	return unknownDescription
}

// IndexBackend selects where indexed chunks are kept.
type IndexBackend string

const (
	IndexBackendMemory IndexBackend = "memory" // lost when the process exits
	IndexBackendSQLite IndexBackend = "sqlite" // survives restarts
)

// IsValid reports whether b is a known backend.
func (b IndexBackend) IsValid() bool {
	return b == IndexBackendMemory || b == IndexBackendSQLite
}

func (b IndexBackend) String() string {
	return string(b)
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// Timeout bounds a single generation call.
	Timeout time.Duration

	// Temperature controls sampling randomness.
	Temperature float64

	// MaxTokens caps the generated length.
	MaxTokens int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderLocal {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the vector size of the local embedder.
	Dimensions int

	// Concurrency bounds parallel embedding requests during a build.
	Concurrency int

	// RequestsPerSecond throttles embedding requests. Zero disables throttling.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// RetrievalSettings holds the retrieval window sizes for each generation task.
type RetrievalSettings struct {
	// CaseK is how many hits to retrieve for test-case generation.
	CaseK int

	// CaseContext is how many of those hits go into the prompt.
	CaseContext int

	// ScriptK is how many hits to retrieve for script generation.
	ScriptK int

	// ScriptContext is how many of those hits go into the prompt.
	ScriptContext int
}

// ChunkingSettings holds chunker parameters.
type ChunkingSettings struct {
	// ChunkSize is the soft maximum chunk length in characters.
	ChunkSize int

	// Overlap is how many trailing characters are repeated in the next chunk.
	Overlap int
}

// IndexSettings holds knowledge index storage configuration.
type IndexSettings struct {
	// Backend selects the index storage.
	Backend IndexBackend

	// Path is the directory holding the SQLite database (sqlite backend only).
	// Empty means ~/.qagent/data.
	Path string
}

// AppSettings holds all application settings.
type AppSettings struct {
	// LLM holds LLM provider settings.
	LLM LLMSettings

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// Retrieval holds retrieval window settings.
	Retrieval RetrievalSettings

	// Chunking holds chunker settings.
	Chunking ChunkingSettings

	// Index holds index storage settings.
	Index IndexSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// The LLM points at a local Ollama; if it is unreachable generation
// falls back to deterministic output, so the defaults work offline.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		LLM: LLMSettings{
			Provider:    AIProviderOllama,
			Model:       DefaultLLMModels()[AIProviderOllama],
			BaseURL:     "http://localhost:11434",
			Timeout:     120 * time.Second,
			Temperature: 0.7,
			MaxTokens:   2000,
		},
		Embedding: EmbeddingSettings{
			Provider:    AIProviderLocal,
			Model:       DefaultEmbeddingModels()[AIProviderLocal],
			Dimensions:  384,
			Concurrency: 4,
		},
		Retrieval: RetrievalSettings{
			CaseK:         10,
			CaseContext:   8,
			ScriptK:       5,
			ScriptContext: 3,
		},
		Chunking: ChunkingSettings{
			ChunkSize: 1000,
			Overlap:   200,
		},
		Index: IndexSettings{
			Backend: IndexBackendMemory,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderLocal,
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderLocal:  "feature-hash",
		AIProviderOllama: "all-minilm",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}
