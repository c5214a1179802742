// Package llmtest provides a testify mock of llm.Provider.
package llmtest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mindshear/mindshear-api/internal/llm"
)

// MockProvider records Complete calls as (ctx, systemPrompt, userPrompt, model).
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Complete(ctx context.Context, systemPrompt, userPrompt string, opts ...llm.Option) (*llm.Response, error) {
	var o llm.Options
	for _, opt := range opts {
		opt(&o)
	}
	args := m.Called(ctx, systemPrompt, userPrompt, o.Model)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.Response), args.Error(1)
}

// Reply builds a successful response carrying content.
func Reply(content string) *llm.Response {
	return &llm.Response{Content: content, Model: "mock"}
}
