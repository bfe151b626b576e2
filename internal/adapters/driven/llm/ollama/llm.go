// Package ollama generates test cases and scripts with a local Ollama
// server through /api/generate.
package ollama

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/qagent/internal/adapters/driven/apiclient"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig configures the service. Every field has a default.
type LLMConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService is a non-streaming Ollama client.
type LLMService struct {
	api   *apiclient.Client
	model string
}

// generateRequest carries temperature and the token limit twice: older
// servers read the top-level fields, current ones read options.
type generateRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	Stream      bool     `json:"stream"`
	Temperature float64  `json:"temperature"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Options     *options `json:"options,omitempty"`
}

type options struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature float64  `json:"temperature"`
	Stop        []string `json:"stop,omitempty"`
}

// NewLLMService returns a service with defaults filled in.
func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	return &LLMService{
		api:   apiclient.New("ollama", cfg.BaseURL, cfg.Timeout),
		model: cfg.Model,
	}
}

// Generate returns the full completion for prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	res, err := s.api.Post(ctx, "/api/generate", generateRequest{
		Model:       s.model,
		Prompt:      prompt,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Options: &options{
			NumPredict:  opts.MaxTokens,
			Temperature: opts.Temperature,
			Stop:        opts.StopWords,
		},
	})
	if err != nil {
		return "", err
	}

	response := res.Get("response")
	if !response.Exists() {
		return "", fmt.Errorf("ollama: response field missing")
	}
	return response.String(), nil
}

// ModelName returns the configured model.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists local models through /api/tags.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Check(ctx, "/api/tags")
}

// Close is a no-op.
func (s *LLMService) Close() error {
	return nil
}
