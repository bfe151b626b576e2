package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
	"github.com/custodia-labs/qagent/internal/logger"
)

// DefaultGenerationTimeout bounds a single generation call.
const DefaultGenerationTimeout = 120 * time.Second

// Gateway calls the text-generation service with a timeout and substitutes
// deterministic fallback output when the call fails. It never returns an
// error and never retries.
type Gateway struct {
	llm     driven.LLMService
	timeout time.Duration
	log     logger.Component
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithTimeout sets the per-call generation timeout.
func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// NewGateway creates a generation gateway. llm may be nil, in which case
// every call uses the fallback generator.
func NewGateway(llm driven.LLMService, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		llm:     llm,
		timeout: DefaultGenerationTimeout,
		log:     logger.For("gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Timeout returns the per-call generation timeout.
func (g *Gateway) Timeout() time.Duration {
	return g.timeout
}

// ModelName returns the generation model name, or "fallback" without an LLM.
func (g *Gateway) ModelName() string {
	if g.llm == nil {
		return "fallback"
	}
	return g.llm.ModelName()
}

// Task is the kind of output a generation request asks for. It selects the
// fallback substituted when the model cannot answer.
type Task int

const (
	TaskTestCases Task = iota
	TaskScript
)

func (t Task) String() string {
	if t == TaskScript {
		return "script"
	}
	return "test cases"
}

type generateResult struct {
	text string
	err  error
}

// Generate returns the generated text for prompt, or the fallback output for
// task when the service is missing, fails, times out or returns nothing.
func (g *Gateway) Generate(ctx context.Context, task Task, prompt string, opts driven.GenerateOptions) domain.Generation {
	if g.llm == nil {
		return g.fallback(task, prompt, domain.ErrLLMUnavailable.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	g.log.Debug("Calling %s for %s (timeout %s, %d prompt chars)", g.llm.ModelName(), task, g.timeout, len(prompt))

	// The call runs in its own goroutine so the timeout holds even if the
	// service is slow to notice cancellation. The channel is buffered so the
	// goroutine exits once the service returns; services must honour ctx or
	// it outlives the request.
	done := make(chan generateResult, 1)
	go func() {
		text, err := g.llm.Generate(ctx, prompt, opts)
		done <- generateResult{text: text, err: err}
	}()

	var res generateResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = ctx.Err()
	}

	if res.err != nil {
		if isTimeout(res.err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return g.fallback(task, prompt, fmt.Sprintf("generation timed out after %s", g.timeout))
		}
		return g.fallback(task, prompt, fmt.Sprintf("generation failed: %v", res.err))
	}
	if strings.TrimSpace(res.text) == "" {
		return g.fallback(task, prompt, "generation returned an empty response")
	}

	g.log.Debug("Generated %d chars in %s", len(res.text), time.Since(start).Round(time.Millisecond))
	return domain.Generated(res.text)
}

func (g *Gateway) fallback(task Task, prompt, reason string) domain.Generation {
	g.log.Warn("Using fallback %s: %s", task, reason)
	return domain.FallbackUsed(FallbackResponse(task, prompt), reason)
}

// isTimeout matches both context deadlines and transport timeouts, such as
// an http.Client timeout firing before the gateway's own.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
