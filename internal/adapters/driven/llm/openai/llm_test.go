package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qagent/internal/core/ports/driven"
)

func TestNewLLMService_RequiresKey(t *testing.T) {
	_, err := NewLLMService(LLMConfig{})
	assert.ErrorContains(t, err, "API key is required")
}

func TestGenerate(t *testing.T) {
	var got chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hello"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	s, err := NewLLMService(LLMConfig{APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)

	out, err := s.Generate(context.Background(), "prompt", driven.GenerateOptions{MaxTokens: 100, Temperature: 0.2})
	require.NoError(t, err)

	assert.Equal(t, "hello", out)
	assert.Equal(t, DefaultLLMModel, got.Model)
	assert.Equal(t, []chatCompletionMsg{{Role: "user", Content: "prompt"}}, got.Messages)
	assert.Equal(t, 100, got.MaxTokens)
	assert.Equal(t, 0.2, got.Temperature)
}

func TestGenerate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"auth"}}`))
	}))
	defer server.Close()

	s, err := NewLLMService(LLMConfig{APIKey: "sk-bad", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = s.Generate(context.Background(), "prompt", driven.GenerateOptions{})
	assert.ErrorContains(t, err, "bad key")
}

func TestGenerate_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	s, err := NewLLMService(LLMConfig{APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = s.Generate(context.Background(), "prompt", driven.GenerateOptions{})
	assert.ErrorContains(t, err, "no response choices")
}

func TestGenerate_SendsZeroTemperature(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"},"finish_reason":"length"}]}`))
	}))
	defer server.Close()

	s, err := NewLLMService(LLMConfig{APIKey: "sk-test", BaseURL: server.URL, Model: "gpt-4o"})
	require.NoError(t, err)

	out, err := s.Generate(context.Background(), "prompt", driven.GenerateOptions{})
	require.NoError(t, err)

	assert.Equal(t, "ok", out)
	assert.Equal(t, "gpt-4o", s.ModelName())
	assert.Contains(t, got, "temperature")
	assert.NotContains(t, got, "max_tokens")
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" || r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	s, err := NewLLMService(LLMConfig{APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)
	assert.NoError(t, s.Ping(context.Background()))

	bad, err := NewLLMService(LLMConfig{APIKey: "sk-other", BaseURL: server.URL})
	require.NoError(t, err)
	assert.ErrorContains(t, bad.Ping(context.Background()), "status 401")
}
