package driving

import "github.com/custodia-labs/qagent/internal/core/domain"

// SettingsService reads and edits the persisted configuration. Keys are
// dotted ("llm.model"); Keys lists every one SetValue and GetValue accept.
type SettingsService interface {
	// Get returns stored values over the built-in defaults.
	Get() (*domain.AppSettings, error)
	Save(settings *domain.AppSettings) error
	GetDefaults() domain.AppSettings

	// SetLLMProvider and SetEmbeddingProvider switch provider, model and
	// key together. An empty model picks the provider's default.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetValue parses value for key's type before storing it.
	SetValue(key, value string) error
	GetValue(key string) (string, error)
	Keys() []string

	// Validate checks internal consistency without contacting providers.
	Validate() error

	// ValidateLLMConfig and ValidateEmbeddingConfig ping the configured
	// providers.
	ValidateLLMConfig() error
	ValidateEmbeddingConfig() error
}
