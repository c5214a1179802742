package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mindshear/mindshear-api/internal/apperr"
	"github.com/mindshear/mindshear-api/internal/config"
	"github.com/mindshear/mindshear-api/internal/metrics"
)

// OpenAI talks to any OpenAI-compatible chat completions API. It is built
// once at startup and shared read-only by every request.
type OpenAI struct {
	client  *openai.Client
	cfg     config.LLMConfig
	timeout time.Duration
}

func NewOpenAI(cfg config.LLMConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("completion API key cannot be empty")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("completion base URL cannot be empty")
	}

	// Relative endpoint paths resolve against the base only with a trailing slash.
	baseURL := cfg.BaseURL
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{}),
	}
	if cfg.SiteURL != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", cfg.SiteURL))
	}
	if cfg.SiteName != "" {
		opts = append(opts, option.WithHeader("X-Title", cfg.SiteName))
	}

	slog.Info("Creating completion client", "base_url", baseURL)
	return &OpenAI{
		client:  openai.NewClient(opts...),
		cfg:     cfg,
		timeout: cfg.Timeout,
	}, nil
}

func (o *OpenAI) Complete(ctx context.Context, systemPrompt, userPrompt string, opts ...Option) (*Response, error) {
	options := &Options{
		Model:       o.cfg.NotesModel,
		Temperature: 0.3,
		MaxTokens:   o.cfg.MaxTokens,
	}
	for _, opt := range opts {
		opt(options)
	}

	callCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.F(options.Model),
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		}),
		Temperature: openai.F(options.Temperature),
	}
	if options.MaxTokens > 0 {
		params.MaxTokens = openai.F(options.MaxTokens)
	}

	start := time.Now()
	resp, err := o.client.Chat.Completions.New(callCtx, params)
	if err != nil {
		err = classify(ctx, callCtx, err)
		metrics.ObserveUpstream("completion", start, err)
		slog.Error("Completion request failed", "model", options.Model, "error", err)
		return nil, err
	}
	metrics.ObserveUpstream("completion", start, nil)

	response := &Response{
		Model: resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	if len(resp.Choices) > 0 {
		response.Content = resp.Choices[0].Message.Content
	}

	slog.Debug("Completion request succeeded", "model", options.Model, "tokens", response.Usage.TotalTokens)
	return response, nil
}

// classify maps a client error to an error kind. parent is the caller's
// context and call the per-call context derived from it. Only network
// errors count as unavailable; anything else failed after a 2xx reply
// arrived and means the body could not be decoded.
func classify(parent, call context.Context, err error) error {
	var apiErr *openai.Error
	var netErr net.Error
	switch {
	case errors.As(err, &apiErr):
		return apperr.Wrap(apperr.ErrUpstreamRejected, err, fmt.Sprintf("completion API returned %d", apiErr.StatusCode))
	case parent.Err() != nil:
		// Inbound request aborted; not an upstream failure.
		return fmt.Errorf("completion request cancelled: %w", parent.Err())
	case errors.Is(call.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
		return apperr.Wrap(apperr.ErrUpstreamTimeout, err, "completion API call timed out")
	case errors.As(err, &netErr):
		return apperr.Wrap(apperr.ErrUpstreamUnavailable, err, "calling completion API")
	default:
		return apperr.Wrap(apperr.ErrMalformedUpstreamResponse, err, "decoding completion API response")
	}
}
