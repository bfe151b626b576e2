package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/custodia-labs/qagent/internal/adapters/driven/llm/ollama"
	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
)

const casePrompt = "Generate EXACTLY 3 test cases\n[Source: checkout.md]\nx\nUSER REQUEST: discounts\n"

func TestGateway_Success(t *testing.T) {
	llm := &mockLLMService{response: `{"test_cases": []}`}
	g := NewGateway(llm)

	gen := g.Generate(context.Background(), TaskTestCases, "prompt", driven.GenerateOptions{})

	assert.False(t, gen.Fallback)
	assert.Equal(t, `{"test_cases": []}`, gen.Text)
	assert.Empty(t, gen.Reason)
	assert.Equal(t, "prompt", llm.lastPrompt())
	assert.Equal(t, "mock-llm", g.ModelName())
}

func TestGateway_NilLLM(t *testing.T) {
	g := NewGateway(nil)

	gen := g.Generate(context.Background(), TaskTestCases, casePrompt, driven.GenerateOptions{})

	assert.True(t, gen.Fallback)
	assert.Equal(t, domain.ErrLLMUnavailable.Error(), gen.Reason)
	assert.Equal(t, "fallback", g.ModelName())

	var env caseEnvelope
	require.NoError(t, json.Unmarshal([]byte(gen.Text), &env))
	assert.Len(t, env.TestCases, 3)
}

func TestGateway_Error(t *testing.T) {
	g := NewGateway(&mockLLMService{err: errors.New("connection refused")})

	gen := g.Generate(context.Background(), TaskScript, "Write a script", driven.GenerateOptions{})

	assert.True(t, gen.Fallback)
	assert.Equal(t, "generation failed: connection refused", gen.Reason)
	assert.Equal(t, fallbackScript, gen.Text)
}

func TestGateway_EmptyResponse(t *testing.T) {
	g := NewGateway(&mockLLMService{response: "  \n"})

	gen := g.Generate(context.Background(), TaskTestCases, casePrompt, driven.GenerateOptions{})

	assert.True(t, gen.Fallback)
	assert.Equal(t, "generation returned an empty response", gen.Reason)
}

func TestGateway_Timeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	g := NewGateway(&mockLLMService{block: true}, WithTimeout(50*time.Millisecond))
	assert.Equal(t, 50*time.Millisecond, g.Timeout())

	start := time.Now()
	gen := g.Generate(context.Background(), TaskTestCases, casePrompt, driven.GenerateOptions{})
	elapsed := time.Since(start)

	assert.True(t, gen.Fallback)
	assert.Equal(t, "generation timed out after 50ms", gen.Reason)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestGateway_CallerCancellation(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	g := NewGateway(&mockLLMService{block: true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := g.Generate(ctx, TaskTestCases, casePrompt, driven.GenerateOptions{})

	assert.True(t, gen.Fallback)
	assert.Contains(t, gen.Reason, "generation failed")
}

func TestGateway_HungEndpointTimesOut(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	llm := ollama.NewLLMService(ollama.LLMConfig{BaseURL: srv.URL, Model: "llama3.2"})
	defer llm.Close()
	g := NewGateway(llm, WithTimeout(50*time.Millisecond))

	start := time.Now()
	gen := g.Generate(context.Background(), TaskTestCases, casePrompt, driven.GenerateOptions{})
	elapsed := time.Since(start)

	assert.True(t, gen.Fallback)
	assert.Equal(t, "generation timed out after 50ms", gen.Reason)
	assert.Less(t, elapsed, time.Second)

	var env caseEnvelope
	require.NoError(t, json.Unmarshal([]byte(gen.Text), &env))
	assert.Len(t, env.TestCases, 3)
}

func TestGateway_TransportTimeoutCountsAsTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	// The client gives up long before the gateway does.
	llm := ollama.NewLLMService(ollama.LLMConfig{BaseURL: srv.URL, Timeout: 30 * time.Millisecond})
	g := NewGateway(llm, WithTimeout(5*time.Second))

	gen := g.Generate(context.Background(), TaskScript, "Write a script", driven.GenerateOptions{})

	assert.True(t, gen.Fallback)
	assert.Contains(t, gen.Reason, "timed out")
	assert.Equal(t, fallbackScript, gen.Text)
}

func TestGateway_FallbackFollowsTask(t *testing.T) {
	// A script prompt whose documentation talks about test cases.
	prompt := "Generate a Selenium script.\n[Source: qa.md]\nOur QA team writes test cases for every release.\n" +
		"Generate EXACTLY 3 test cases\nUSER REQUEST: discounts\n"
	g := NewGateway(nil)

	assert.Equal(t, fallbackScript, g.Generate(context.Background(), TaskScript, prompt, driven.GenerateOptions{}).Text)

	var env caseEnvelope
	require.NoError(t, json.Unmarshal([]byte(g.Generate(context.Background(), TaskTestCases, prompt, driven.GenerateOptions{}).Text), &env))
	assert.Len(t, env.TestCases, 3)
}

func TestIsTimeout(t *testing.T) {
	tests := map[string]struct {
		err  error
		want bool
	}{
		"deadline":         {err: context.DeadlineExceeded, want: true},
		"wrapped deadline": {err: fmt.Errorf("send request: %w", context.DeadlineExceeded), want: true},
		"net timeout":      {err: fmt.Errorf("send request: %w", &net.DNSError{IsTimeout: true}), want: true},
		"cancelled":        {err: context.Canceled},
		"refused":          {err: errors.New("connection refused")},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTimeout(tt.err))
		})
	}
}

func TestWithTimeout_IgnoresNonPositive(t *testing.T) {
	g := NewGateway(nil, WithTimeout(0), WithTimeout(-time.Second))
	assert.Equal(t, DefaultGenerationTimeout, g.Timeout())
}
