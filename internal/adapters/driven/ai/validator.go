package ai

import (
	"context"
	"time"

	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
)

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator checks provider settings by building the adapter and
// pinging it. Unconfigured settings are valid: there is nothing to reach.
type ConfigValidator struct {
	timeout time.Duration
}

// NewConfigValidator returns a validator using DefaultPingTimeout.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{timeout: DefaultPingTimeout}
}

// WithTimeout returns a copy of v that waits at most d per probe.
func (v *ConfigValidator) WithTimeout(d time.Duration) *ConfigValidator {
	return &ConfigValidator{timeout: d}
}

// ValidateEmbedding pings the embedding provider in config.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(config)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close() //nolint:errcheck
	return ping(context.Background(), svc, v.timeout)
}

// ValidateLLM pings the LLM provider in config.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	svc, err := CreateLLMService(config)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close() //nolint:errcheck
	return ping(context.Background(), svc, v.timeout)
}

// ValidateEmbeddingConfig validates config with the default timeout.
func ValidateEmbeddingConfig(config *domain.EmbeddingSettings) error {
	return NewConfigValidator().ValidateEmbedding(config)
}

// ValidateLLMConfig validates config with the default timeout.
func ValidateLLMConfig(config *domain.LLMSettings) error {
	return NewConfigValidator().ValidateLLM(config)
}
