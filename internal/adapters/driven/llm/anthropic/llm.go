// Package anthropic generates test cases and scripts with the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/custodia-labs/qagent/internal/adapters/driven/apiclient"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-3-5-sonnet-latest"
	DefaultTimeout = 120 * time.Second

	// DefaultMaxTokens is sent when no limit is configured; the API
	// rejects requests without one.
	DefaultMaxTokens = 2000

	// MaxTemperature is the upper bound the API accepts.
	MaxTemperature = 1.0

	anthropicVersion = "2023-06-01"
)

// Config configures the service. APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService calls /v1/messages.
type LLMService struct {
	api   *apiclient.Client
	model string
}

type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	Temperature float64           `json:"temperature"`
	StopSeqs    []string          `json:"stop_sequences,omitempty"`
}

type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewLLMService validates cfg and returns a service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	api := apiclient.New("anthropic", cfg.BaseURL, cfg.Timeout,
		apiclient.WithHeader("x-api-key", cfg.APIKey),
		apiclient.WithHeader("anthropic-version", anthropicVersion),
	)
	return &LLMService{api: api, model: cfg.Model}, nil
}

// Generate sends prompt as a single user message and joins the text blocks
// of the reply. Temperatures above MaxTemperature are clamped.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}

	res, err := s.api.Post(ctx, "/v1/messages", messagesRequest{
		Model:       s.model,
		Messages:    []messagesMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: min(opts.Temperature, MaxTemperature),
		StopSeqs:    opts.StopWords,
	})
	if err != nil {
		return "", err
	}

	blocks := res.Get(`content.#(type=="text")#.text`)
	if !blocks.IsArray() || len(blocks.Array()) == 0 {
		return "", errors.New("anthropic: no text content returned")
	}
	var out strings.Builder
	blocks.ForEach(func(_, text gjson.Result) bool {
		out.WriteString(text.String())
		return true
	})
	return out.String(), nil
}

// ModelName returns the configured model.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Check(ctx, "/v1/models")
}

// Close is a no-op.
func (s *LLMService) Close() error {
	return nil
}
