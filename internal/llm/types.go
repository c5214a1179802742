package llm

import "context"

type Provider interface {
	// Complete sends one system/user exchange and returns the raw text reply.
	// It does not retry; callers own the retry policy.
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts ...Option) (*Response, error)
}

type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

type Option func(*Options)

type Options struct {
	Model       string
	MaxTokens   int64
	Temperature float64
}

// WithModel selects the model for one call.
func WithModel(model string) Option {
	return func(o *Options) {
		if model != "" {
			o.Model = model
		}
	}
}

// WithTemperature sets the sampling temperature for one call.
func WithTemperature(t float64) Option {
	return func(o *Options) { o.Temperature = t }
}

type Response struct {
	Content string
	Model   string
	Usage   Usage
}
