package services

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/mstoykov/envconfig"

	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
	"github.com/custodia-labs/qagent/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyLLMProvider      = "llm.provider"
	keyLLMModel         = "llm.model"
	keyLLMBaseURL       = "llm.base_url"
	keyLLMAPIKey        = "llm.api_key"
	keyLLMTimeout       = "llm.timeout"
	keyLLMTemperature   = "llm.temperature"
	keyLLMMaxTokens     = "llm.max_tokens"
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyEmbedDims        = "embedding.dimensions"
	keyEmbedConcurrency = "embedding.concurrency"
	keyEmbedRPS         = "embedding.requests_per_second"
	keyCaseK            = "retrieval.case_k"
	keyCaseContext      = "retrieval.case_context"
	keyScriptK          = "retrieval.script_k"
	keyScriptContext    = "retrieval.script_context"
	keyChunkSize        = "chunking.chunk_size"
	keyChunkOverlap     = "chunking.overlap"
	keyIndexBackend     = "index.backend"
	keyIndexPath        = "index.path"
)

const defaultOllamaURL = "http://localhost:11434"

// embeddingDimensions maps known embedding models to their vector sizes.
var embeddingDimensions = map[string]int{
	"feature-hash":           384,
	"all-minilm":             384,
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
}

// SettingKeys lists every key accepted by SetValue.
func SettingKeys() []string {
	return []string{
		keyLLMProvider, keyLLMModel, keyLLMBaseURL, keyLLMAPIKey,
		keyLLMTimeout, keyLLMTemperature, keyLLMMaxTokens,
		keyEmbedProvider, keyEmbedModel, keyEmbedBaseURL, keyEmbedAPIKey,
		keyEmbedDims, keyEmbedConcurrency, keyEmbedRPS,
		keyCaseK, keyCaseContext, keyScriptK, keyScriptContext,
		keyChunkSize, keyChunkOverlap,
		keyIndexBackend, keyIndexPath,
	}
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:       s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:     s.getString(keyLLMBaseURL, defaults.LLM.BaseURL),
			APIKey:      s.configStore.GetString(keyLLMAPIKey),
			Timeout:     s.getDuration(keyLLMTimeout, defaults.LLM.Timeout),
			Temperature: s.getFloat(keyLLMTemperature, defaults.LLM.Temperature),
			MaxTokens:   s.getInt(keyLLMMaxTokens, defaults.LLM.MaxTokens),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:             s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			Dimensions:        s.getInt(keyEmbedDims, defaults.Embedding.Dimensions),
			Concurrency:       s.getInt(keyEmbedConcurrency, defaults.Embedding.Concurrency),
			RequestsPerSecond: s.getFloat(keyEmbedRPS, defaults.Embedding.RequestsPerSecond),
		},
		Retrieval: domain.RetrievalSettings{
			CaseK:         s.getInt(keyCaseK, defaults.Retrieval.CaseK),
			CaseContext:   s.getInt(keyCaseContext, defaults.Retrieval.CaseContext),
			ScriptK:       s.getInt(keyScriptK, defaults.Retrieval.ScriptK),
			ScriptContext: s.getInt(keyScriptContext, defaults.Retrieval.ScriptContext),
		},
		Chunking: domain.ChunkingSettings{
			ChunkSize: s.getInt(keyChunkSize, defaults.Chunking.ChunkSize),
			Overlap:   s.getIntAllowZero(keyChunkOverlap, defaults.Chunking.Overlap),
		},
		Index: domain.IndexSettings{
			Backend: s.getBackend(defaults.Index.Backend),
			Path:    s.getString(keyIndexPath, defaults.Index.Path),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMTimeout, settings.LLM.Timeout.String()},
		{keyLLMTemperature, settings.LLM.Temperature},
		{keyLLMMaxTokens, settings.LLM.MaxTokens},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDims, settings.Embedding.Dimensions},
		{keyEmbedConcurrency, settings.Embedding.Concurrency},
		{keyEmbedRPS, settings.Embedding.RequestsPerSecond},
		{keyCaseK, settings.Retrieval.CaseK},
		{keyCaseContext, settings.Retrieval.CaseContext},
		{keyScriptK, settings.Retrieval.ScriptK},
		{keyScriptContext, settings.Retrieval.ScriptContext},
		{keyChunkSize, settings.Chunking.ChunkSize},
		{keyChunkOverlap, settings.Chunking.Overlap},
		{keyIndexBackend, settings.Index.Backend.String()},
		{keyIndexPath, settings.Index.Path},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// API keys are only written when present so a blank form never erases them.
	if settings.LLM.APIKey != "" {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else if defaultModel, ok := domain.DefaultEmbeddingModels()[provider]; ok {
		settings.Embedding.Model = defaultModel
	}

	switch {
	case provider == domain.AIProviderOllama:
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = defaultOllamaURL
		}
	default:
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey

	if d, ok := embeddingDimensions[settings.Embedding.Model]; ok {
		settings.Embedding.Dimensions = d
	}

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider

	if model != "" {
		settings.LLM.Model = model
	} else if defaultModel, ok := domain.DefaultLLMModels()[provider]; ok {
		settings.LLM.Model = defaultModel
	}

	if provider == domain.AIProviderOllama {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = defaultOllamaURL
		}
	} else {
		settings.LLM.BaseURL = ""
	}

	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetValue parses value for key and stores it.
func (s *SettingsService) SetValue(key, value string) error {
	value = strings.TrimSpace(value)

	var parsed any
	var err error
	switch key {
	case keyLLMProvider, keyEmbedProvider:
		p := domain.AIProvider(value)
		if !p.IsValid() {
			return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, value)
		}
		if key == keyEmbedProvider && !slices.Contains(domain.AllEmbeddingProviders(), p) {
			return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, p)
		}
		parsed = value
	case keyIndexBackend:
		if !domain.IndexBackend(value).IsValid() {
			return fmt.Errorf("%w: unknown index backend %q", domain.ErrInvalidInput, value)
		}
		parsed = value
	case keyLLMModel, keyLLMBaseURL, keyLLMAPIKey, keyEmbedModel, keyEmbedBaseURL, keyEmbedAPIKey, keyIndexPath:
		parsed = value
	case keyLLMTimeout:
		var d time.Duration
		if d, err = time.ParseDuration(value); err == nil && d <= 0 {
			err = fmt.Errorf("must be positive")
		}
		parsed = value
	case keyLLMTemperature, keyEmbedRPS:
		var f float64
		if f, err = strconv.ParseFloat(value, 64); err == nil && f < 0 {
			err = fmt.Errorf("must not be negative")
		}
		parsed = f
	case keyChunkOverlap:
		var n int
		if n, err = strconv.Atoi(value); err == nil && n < 0 {
			err = fmt.Errorf("must not be negative")
		}
		parsed = n
	case keyLLMMaxTokens, keyEmbedDims, keyEmbedConcurrency,
		keyCaseK, keyCaseContext, keyScriptK, keyScriptContext, keyChunkSize:
		var n int
		if n, err = strconv.Atoi(value); err == nil && n < 1 {
			err = fmt.Errorf("must be at least 1")
		}
		parsed = n
	default:
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}

	return s.configStore.Set(key, parsed)
}

// Keys lists every key accepted by SetValue and GetValue.
func (s *SettingsService) Keys() []string {
	return SettingKeys()
}

// GetValue returns the effective value of a single setting as text.
func (s *SettingsService) GetValue(key string) (string, error) {
	settings, err := s.Get()
	if err != nil {
		return "", err
	}

	switch key {
	case keyLLMProvider:
		return settings.LLM.Provider.String(), nil
	case keyLLMModel:
		return settings.LLM.Model, nil
	case keyLLMBaseURL:
		return settings.LLM.BaseURL, nil
	case keyLLMAPIKey:
		return settings.LLM.APIKey, nil
	case keyLLMTimeout:
		return settings.LLM.Timeout.String(), nil
	case keyLLMTemperature:
		return strconv.FormatFloat(settings.LLM.Temperature, 'g', -1, 64), nil
	case keyLLMMaxTokens:
		return strconv.Itoa(settings.LLM.MaxTokens), nil
	case keyEmbedProvider:
		return settings.Embedding.Provider.String(), nil
	case keyEmbedModel:
		return settings.Embedding.Model, nil
	case keyEmbedBaseURL:
		return settings.Embedding.BaseURL, nil
	case keyEmbedAPIKey:
		return settings.Embedding.APIKey, nil
	case keyEmbedDims:
		return strconv.Itoa(settings.Embedding.Dimensions), nil
	case keyEmbedConcurrency:
		return strconv.Itoa(settings.Embedding.Concurrency), nil
	case keyEmbedRPS:
		return strconv.FormatFloat(settings.Embedding.RequestsPerSecond, 'g', -1, 64), nil
	case keyCaseK:
		return strconv.Itoa(settings.Retrieval.CaseK), nil
	case keyCaseContext:
		return strconv.Itoa(settings.Retrieval.CaseContext), nil
	case keyScriptK:
		return strconv.Itoa(settings.Retrieval.ScriptK), nil
	case keyScriptContext:
		return strconv.Itoa(settings.Retrieval.ScriptContext), nil
	case keyChunkSize:
		return strconv.Itoa(settings.Chunking.ChunkSize), nil
	case keyChunkOverlap:
		return strconv.Itoa(settings.Chunking.Overlap), nil
	case keyIndexBackend:
		return settings.Index.Backend.String(), nil
	case keyIndexPath:
		return settings.Index.Path, nil
	default:
		return "", fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
}

// Validate checks if current settings are consistent.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return ValidateSettings(settings)
}

// ValidateSettings checks settings for values the pipeline cannot run with.
func ValidateSettings(settings *domain.AppSettings) error {
	if !settings.LLM.Provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", settings.LLM.Provider)
	}
	if settings.LLM.Provider.RequiresAPIKey() && settings.LLM.APIKey == "" {
		return fmt.Errorf("LLM provider %s requires an API key", settings.LLM.Provider)
	}
	if !slices.Contains(domain.AllEmbeddingProviders(), settings.Embedding.Provider) {
		return fmt.Errorf("invalid embedding provider: %s", settings.Embedding.Provider)
	}
	if settings.Embedding.Provider.RequiresAPIKey() && settings.Embedding.APIKey == "" {
		return fmt.Errorf("embedding provider %s requires an API key", settings.Embedding.Provider)
	}
	if settings.Chunking.ChunkSize < 1 {
		return fmt.Errorf("chunk size must be at least 1, got %d", settings.Chunking.ChunkSize)
	}
	if settings.Chunking.Overlap < 0 || settings.Chunking.Overlap >= settings.Chunking.ChunkSize {
		return fmt.Errorf("chunk overlap must be in [0, %d), got %d",
			settings.Chunking.ChunkSize, settings.Chunking.Overlap)
	}
	r := settings.Retrieval
	if r.CaseK < 1 || r.CaseContext < 1 || r.ScriptK < 1 || r.ScriptContext < 1 {
		return fmt.Errorf("retrieval sizes must be at least 1")
	}
	if !settings.Index.Backend.IsValid() {
		return fmt.Errorf("invalid index backend: %s", settings.Index.Backend)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// envOverrides holds QAGENT_* environment variables. Unset values are nil.
type envOverrides struct {
	LLMProvider       *string        `envconfig:"QAGENT_LLM_PROVIDER"`
	LLMModel          *string        `envconfig:"QAGENT_LLM_MODEL"`
	LLMBaseURL        *string        `envconfig:"QAGENT_LLM_BASE_URL"`
	LLMAPIKey         *string        `envconfig:"QAGENT_LLM_API_KEY"`
	LLMTimeout        *time.Duration `envconfig:"QAGENT_LLM_TIMEOUT"`
	LLMTemperature    *float64       `envconfig:"QAGENT_LLM_TEMPERATURE"`
	EmbeddingProvider *string        `envconfig:"QAGENT_EMBEDDING_PROVIDER"`
	EmbeddingModel    *string        `envconfig:"QAGENT_EMBEDDING_MODEL"`
	EmbeddingBaseURL  *string        `envconfig:"QAGENT_EMBEDDING_BASE_URL"`
	EmbeddingAPIKey   *string        `envconfig:"QAGENT_EMBEDDING_API_KEY"`
	ChunkSize         *int           `envconfig:"QAGENT_CHUNK_SIZE"`
	ChunkOverlap      *int           `envconfig:"QAGENT_CHUNK_OVERLAP"`
	IndexBackend      *string        `envconfig:"QAGENT_INDEX_BACKEND"`
	IndexPath         *string        `envconfig:"QAGENT_INDEX_PATH"`
}

// ApplyEnv overlays QAGENT_* environment variables onto settings.
// The stored configuration is not modified.
func ApplyEnv(settings *domain.AppSettings) error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}

	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	setString(&settings.LLM.Model, env.LLMModel)
	setString(&settings.LLM.BaseURL, env.LLMBaseURL)
	setString(&settings.LLM.APIKey, env.LLMAPIKey)
	setString(&settings.Embedding.Model, env.EmbeddingModel)
	setString(&settings.Embedding.BaseURL, env.EmbeddingBaseURL)
	setString(&settings.Embedding.APIKey, env.EmbeddingAPIKey)
	setString(&settings.Index.Path, env.IndexPath)

	if env.LLMProvider != nil {
		settings.LLM.Provider = domain.AIProvider(*env.LLMProvider)
	}
	if env.EmbeddingProvider != nil {
		settings.Embedding.Provider = domain.AIProvider(*env.EmbeddingProvider)
	}
	if env.IndexBackend != nil {
		settings.Index.Backend = domain.IndexBackend(*env.IndexBackend)
	}
	if env.LLMTimeout != nil {
		settings.LLM.Timeout = *env.LLMTimeout
	}
	if env.LLMTemperature != nil {
		settings.LLM.Temperature = *env.LLMTemperature
	}
	if env.ChunkSize != nil {
		settings.Chunking.ChunkSize = *env.ChunkSize
	}
	if env.ChunkOverlap != nil {
		settings.Chunking.Overlap = *env.ChunkOverlap
	}
	return nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.IndexBackend) domain.IndexBackend {
	val := s.configStore.GetString(keyIndexBackend)
	if val == "" {
		return defaultVal
	}
	backend := domain.IndexBackend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
