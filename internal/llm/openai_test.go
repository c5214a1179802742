package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindshear/mindshear-api/internal/apperr"
	"github.com/mindshear/mindshear-api/internal/config"
	"github.com/mindshear/mindshear-api/internal/retry"
)

const completionBody = `{
  "id": "gen-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "deepseek/deepseek-r1",
  "choices": [
    {"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "# Notes\n\nBody"}}
  ],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

func testConfig(baseURL string) config.LLMConfig {
	return config.LLMConfig{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		NotesModel: "default-model",
		MaxTokens:  256,
		Timeout:    2 * time.Second,
		SiteURL:    "http://localhost:8000",
		SiteName:   "MINDSHEAR.AI",
	}
}

func TestCompleteSendsChatRequest(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"messages"`
	}
	var headers http.Header

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		headers = r.Header.Clone()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	}))
	defer ts.Close()

	client, err := NewOpenAI(testConfig(ts.URL))
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), "system text", "user text", WithModel("deepseek/deepseek-r1"))
	require.NoError(t, err)

	assert.Equal(t, "# Notes\n\nBody", resp.Content)
	assert.Equal(t, int64(15), resp.Usage.TotalTokens)
	assert.Equal(t, "deepseek/deepseek-r1", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	require.Len(t, got.Messages[0].Content, 1)
	assert.Equal(t, "system text", got.Messages[0].Content[0].Text)
	assert.Equal(t, "user", got.Messages[1].Role)
	require.Len(t, got.Messages[1].Content, 1)
	assert.Equal(t, "user text", got.Messages[1].Content[0].Text)
	assert.Equal(t, "Bearer test-key", headers.Get("Authorization"))
	assert.Equal(t, "http://localhost:8000", headers.Get("HTTP-Referer"))
	assert.Equal(t, "MINDSHEAR.AI", headers.Get("X-Title"))
}

func TestCompleteDefaultsModel(t *testing.T) {
	var model string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		model, _ = body["model"].(string)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	}))
	defer ts.Close()

	client, err := NewOpenAI(testConfig(ts.URL + "/"))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "s", "u", WithModel(""))
	require.NoError(t, err)
	assert.Equal(t, "default-model", model)
}

func TestCompleteErrorStatusIsRejected(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "provider down"}}`))
	}))
	defer ts.Close()

	client, err := NewOpenAI(testConfig(ts.URL))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrUpstreamRejected)
	assert.False(t, apperr.Retryable(err))
	assert.Equal(t, 1, calls, "adapter must not retry internally")
}

func TestCompleteTransportFailureIsUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	client, err := NewOpenAI(testConfig(url))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
	assert.True(t, apperr.Retryable(err))
}

func TestCompleteSlowUpstreamIsTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer ts.Close()

	cfg := testConfig(ts.URL)
	cfg.Timeout = 50 * time.Millisecond
	client, err := NewOpenAI(cfg)
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrUpstreamTimeout)
	assert.True(t, apperr.Retryable(err))
}

func TestCompleteUndecodableReplyIsMalformed(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"truncated json", "application/json", `{"choices": [`},
		{"html page", "text/html", "<html><body>Bad gateway</body></html>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", tt.contentType)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			client, err := NewOpenAI(testConfig(ts.URL))
			require.NoError(t, err)

			policy := retry.Policy{MaxTries: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
			_, err = retry.Do(context.Background(), policy, "test", func(ctx context.Context) (*Response, error) {
				return client.Complete(ctx, "s", "u")
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrMalformedUpstreamResponse)
			assert.False(t, apperr.Retryable(err))
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestCompleteCancelledRequestIsNotRetryable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completionBody))
	}))
	defer ts.Close()

	client, err := NewOpenAI(testConfig(ts.URL))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.Complete(ctx, "s", "u")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, apperr.Retryable(err))
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	cfg := testConfig("http://localhost")
	cfg.APIKey = ""
	_, err := NewOpenAI(cfg)
	assert.Error(t, err)
}
