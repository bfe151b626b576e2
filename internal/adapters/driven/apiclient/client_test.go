package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPost_SendsJSONAndHeaders(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/things", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "2023", r.Header.Get("x-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"items":[{"name":"a"},{"name":"b"}]}`))
	}))
	defer server.Close()

	c := New("test", server.URL+"/", time.Second, WithBearer("tok"), WithHeader("x-version", "2023"))
	res, err := c.Post(context.Background(), "/v1/things", map[string]any{"n": 1})
	require.NoError(t, err)

	assert.Equal(t, float64(1), got["n"])
	assert.Equal(t, "b", res.Get("items.1.name").String())
	assert.Equal(t, server.URL, c.BaseURL())
	assert.Equal(t, time.Second, c.Timeout())
}

func TestPost_StatusErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "nested message", body: `{"error":{"message":"bad key"}}`, want: "bad key"},
		{name: "string error", body: `{"error":"model not found"}`, want: "model not found"},
		{name: "plain text", body: "upstream down\n", want: "upstream down"},
		{name: "empty", body: "", want: "empty response body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := New("prov", server.URL, time.Second).Post(context.Background(), "/", struct{}{})

			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, http.StatusBadGateway, statusErr.Code)
			assert.Equal(t, tt.want, statusErr.Message)
			assert.Contains(t, err.Error(), "prov: API returned status 502")
		})
	}
}

func TestStatusError_TruncatesLongBody(t *testing.T) {
	msg := errorMessage([]byte(strings.Repeat("x", 1000)))
	assert.Len(t, msg, maxErrorMessage+3)
	assert.True(t, strings.HasSuffix(msg, "..."))
}

func TestGet_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	_, err := New("prov", server.URL, time.Second).Get(context.Background(), "/")
	assert.ErrorIs(t, err, ErrInvalidJSON)
	assert.ErrorContains(t, err, "decode response")
}

func TestCheck_IgnoresBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	c := New("prov", server.URL, time.Second)
	assert.NoError(t, c.Check(context.Background(), "/health"))
	assert.ErrorContains(t, c.Check(context.Background(), "/missing"), "status 404")
}

func TestSend_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := New("prov", url, time.Second).Get(context.Background(), "/")
	assert.ErrorContains(t, err, "send request")
}

func TestWithHTTPClient(t *testing.T) {
	hc := &http.Client{Timeout: 5 * time.Second}
	c := New("prov", "http://example.invalid", time.Second, WithHTTPClient(hc))
	assert.Equal(t, 5*time.Second, c.Timeout())
}
