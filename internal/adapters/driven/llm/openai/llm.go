// Package openai generates test cases and scripts with the OpenAI chat
// completions API, or any server that speaks the same protocol.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/qagent/internal/adapters/driven/apiclient"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
	"github.com/custodia-labs/qagent/internal/logger"
)

var _ driven.LLMService = (*LLMService)(nil)

var log = logger.For("openai")

// Defaults.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig configures the service. APIKey is required; the rest default.
type LLMConfig struct {
	APIKey string

	// BaseURL may point at Azure OpenAI or a compatible gateway.
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService calls /chat/completions.
type LLMService struct {
	api   *apiclient.Client
	model string
}

type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature"`
	Stop        []string            `json:"stop,omitempty"`
}

type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewLLMService validates cfg and returns a service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	baseURL := orDefault(cfg.BaseURL, DefaultBaseURL)
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultLLMTimeout
	}
	return &LLMService{
		api:   apiclient.New("openai", baseURL, timeout, apiclient.WithBearer(cfg.APIKey)),
		model: orDefault(cfg.Model, DefaultLLMModel),
	}, nil
}

// Generate sends prompt as a single user message and returns the first
// choice.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	res, err := s.api.Post(ctx, "/chat/completions", chatCompletionRequest{
		Model:       s.model,
		Messages:    []chatCompletionMsg{{Role: "user", Content: prompt}},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Stop:        opts.StopWords,
	})
	if err != nil {
		return "", err
	}

	choice := res.Get("choices.0")
	if !choice.Exists() {
		return "", fmt.Errorf("openai: no response choices returned")
	}
	if reason := choice.Get("finish_reason").String(); reason == "length" {
		log.Warn("completion truncated at %d tokens", opts.MaxTokens)
	}
	return choice.Get("message.content").String(), nil
}

// ModelName returns the configured model.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Check(ctx, "/models")
}

// Close is a no-op.
func (s *LLMService) Close() error {
	return nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
