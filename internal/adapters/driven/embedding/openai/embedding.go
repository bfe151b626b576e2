// Package openai embeds chunks and queries with the OpenAI embeddings API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/custodia-labs/qagent/internal/adapters/driven/apiclient"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second

	// MaxBatchInputs is the most inputs sent in one request.
	MaxBatchInputs = 256

	fallbackDimensions = 1536
)

var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config configures the service. APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions shortens text-embedding-3-* vectors. Zero uses the
	// model's native size.
	Dimensions int
}

// EmbeddingService calls /embeddings.
type EmbeddingService struct {
	api        *apiclient.Client
	model      string
	dimensions int
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

// NewEmbeddingService validates cfg and returns a service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
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

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		if d, ok := modelDimensions[cfg.Model]; ok {
			dimensions = d
		} else {
			dimensions = fallbackDimensions
		}
	}

	return &EmbeddingService{
		api:        apiclient.New("openai", cfg.BaseURL, cfg.Timeout, apiclient.WithBearer(cfg.APIKey)),
		model:      cfg.Model,
		dimensions: dimensions,
	}, nil
}

// Embed embeds a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in requests of at most MaxBatchInputs inputs and
// returns the vectors in input order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += MaxBatchInputs {
		batch := texts[start:min(start+MaxBatchInputs, len(texts))]
		got, err := s.embed(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("embed texts %d-%d: %w", start, start+len(batch)-1, err)
		}
		vectors = append(vectors, got...)
	}
	return vectors, nil
}

func (s *EmbeddingService) embed(ctx context.Context, texts []string) ([][]float32, error) {
	req := embeddingRequest{Model: s.model, Input: texts}
	if strings.HasPrefix(s.model, "text-embedding-3-") {
		req.Dimensions = s.dimensions
	}

	res, err := s.api.Post(ctx, "/embeddings", req)
	if err != nil {
		return nil, err
	}

	// The API may return items out of order; place each by its index.
	vectors := make([][]float32, len(texts))
	var decodeErr error
	res.Get("data").ForEach(func(_, item gjson.Result) bool {
		idx := int(item.Get("index").Int())
		if idx < 0 || idx >= len(texts) {
			decodeErr = fmt.Errorf("openai: embedding index %d out of range", idx)
			return false
		}
		var v []float32
		if err := json.Unmarshal([]byte(item.Get("embedding").Raw), &v); err != nil {
			decodeErr = fmt.Errorf("decode embedding %d: %w", idx, err)
			return false
		}
		vectors[idx] = v
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("openai: no embedding returned for input %d", i)
		}
	}
	return vectors, nil
}

// Dimensions returns the vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the configured model.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.api.Check(ctx, "/models")
}

// Close is a no-op.
func (s *EmbeddingService) Close() error {
	return nil
}
