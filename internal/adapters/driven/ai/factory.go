// Package ai builds the embedding and LLM adapters named in settings and
// decides when to fall back to local behaviour.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/qagent/internal/adapters/driven/embedding/hashing"
	ollamaembed "github.com/custodia-labs/qagent/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/qagent/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/qagent/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/qagent/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/qagent/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
	"github.com/custodia-labs/qagent/internal/logger"
)

// DefaultPingTimeout bounds each connectivity probe.
const DefaultPingTimeout = 5 * time.Second

var log = logger.For("ai")

type embeddingBuilder func(*domain.EmbeddingSettings) (driven.EmbeddingService, error)

type llmBuilder func(*domain.LLMSettings) (driven.LLMService, error)

var embeddingProviders = map[domain.AIProvider]embeddingBuilder{
	domain.AIProviderLocal: func(s *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
		return hashing.NewEmbeddingService(s.Dimensions), nil
	},
	domain.AIProviderOllama: func(s *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    s.BaseURL,
			Model:      s.Model,
			Dimensions: s.Dimensions,
		}), nil
	},
	domain.AIProviderOpenAI: func(s *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     s.APIKey,
			BaseURL:    s.BaseURL,
			Model:      s.Model,
			Dimensions: s.Dimensions,
		})
	},
}

var llmProviders = map[domain.AIProvider]llmBuilder{
	domain.AIProviderOllama: func(s *domain.LLMSettings) (driven.LLMService, error) {
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: s.BaseURL,
			Model:   s.Model,
			Timeout: s.Timeout,
		}), nil
	},
	domain.AIProviderOpenAI: func(s *domain.LLMSettings) (driven.LLMService, error) {
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  s.APIKey,
			BaseURL: s.BaseURL,
			Model:   s.Model,
			Timeout: s.Timeout,
		})
	},
	domain.AIProviderAnthropic: func(s *domain.LLMSettings) (driven.LLMService, error) {
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  s.APIKey,
			BaseURL: s.BaseURL,
			Model:   s.Model,
			Timeout: s.Timeout,
		})
	},
}

// CreateEmbeddingService builds the embedder settings name. It returns nil
// when settings are not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}
	build, ok := embeddingProviders[settings.Provider]
	if !ok {
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
	return build(settings)
}

// CreateLLMService builds the LLM settings name. It returns nil when
// settings are not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}
	build, ok := llmProviders[settings.Provider]
	if !ok {
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
	return build(settings)
}

// InitResult holds the services chosen by Init.
type InitResult struct {
	EmbeddingService driven.EmbeddingService

	// LLMService is nil when generation must use the fallback.
	LLMService driven.LLMService

	// Warnings lists each degradation, in order.
	Warnings []string

	// FellBack reports that the local embedder replaced the configured one.
	FellBack bool
}

// Close closes whichever services were created.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		_ = r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		_ = r.LLMService.Close()
	}
}

func (r *InitResult) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Warn("%s", msg)
	r.Warnings = append(r.Warnings, msg)
}

// Init never fails. An embedding provider that cannot be built or reached
// is replaced by the hashing embedder, because chunks must be embedded to
// build a knowledge base at all. An LLM that cannot be built is left nil;
// one that is only unreachable is kept, since each generation falls back
// on its own.
func Init(ctx context.Context, settings *domain.AppSettings) *InitResult {
	result := &InitResult{}
	result.EmbeddingService = initEmbedder(ctx, result, &settings.Embedding)

	llm, err := CreateLLMService(&settings.LLM)
	if err != nil {
		result.warn("%v: %v; generation will use fallback output", domain.ErrLLMUnavailable, err)
	}
	result.LLMService = llm
	return result
}

func initEmbedder(ctx context.Context, result *InitResult, settings *domain.EmbeddingSettings) driven.EmbeddingService {
	embedder, err := CreateEmbeddingService(settings)
	if err == nil && embedder == nil {
		return hashing.NewEmbeddingService(settings.Dimensions)
	}
	if err == nil {
		if err = ping(ctx, embedder, DefaultPingTimeout); err == nil {
			return embedder
		}
		_ = embedder.Close()
		err = fmt.Errorf("service unreachable (%w)", err)
	}
	result.warn("%v: %v; using local %s embeddings", domain.ErrEmbeddingUnavailable, err, hashing.DefaultModel)
	result.FellBack = true
	return hashing.NewEmbeddingService(hashing.DefaultDimensions)
}

type pinger interface {
	Ping(ctx context.Context) error
}

func ping(ctx context.Context, svc pinger, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return svc.Ping(ctx)
}
