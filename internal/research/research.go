// Package research answers paper search, paper analysis and literature
// review requests with one completion call each.
package research

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mindshear/mindshear-api/apimodels"
	"github.com/mindshear/mindshear-api/internal/apperr"
	"github.com/mindshear/mindshear-api/internal/llm"
	"github.com/mindshear/mindshear-api/internal/metrics"
	"github.com/mindshear/mindshear-api/internal/parse"
	"github.com/mindshear/mindshear-api/internal/prompts"
	"github.com/mindshear/mindshear-api/internal/retry"
)

type Researcher struct {
	llm   llm.Provider
	model string
	retry retry.Policy
}

func New(provider llm.Provider, model string, policy retry.Policy) *Researcher {
	return &Researcher{
		llm:   provider,
		model: model,
		retry: policy,
	}
}

// Search returns at most maxResults papers about query, in the order the
// model ranked them.
func (r *Researcher) Search(ctx context.Context, query string, maxResults int) ([]apimodels.PaperSummary, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperr.Invalid("query is required")
	}
	if maxResults <= 0 {
		return nil, apperr.Invalid("max_results must be positive, got %d", maxResults)
	}

	p, err := prompts.Search(query, maxResults)
	if err != nil {
		return nil, err
	}
	return observe(ctx, r, "search", p, func(raw string) ([]apimodels.PaperSummary, error) {
		return parse.Papers(raw, maxResults)
	})
}

// Analyze extracts the research question, methodology, findings and
// follow-ups of one paper.
func (r *Researcher) Analyze(ctx context.Context, paperContent string) (apimodels.PaperAnalysis, error) {
	if strings.TrimSpace(paperContent) == "" {
		return nil, apperr.Invalid("paper_content is required")
	}

	p, err := prompts.Analysis(paperContent)
	if err != nil {
		return nil, err
	}
	return observe(ctx, r, "analyze", p, parse.Analysis)
}

// LiteratureReview synthesizes a Markdown review of papers.
func (r *Researcher) LiteratureReview(ctx context.Context, topic string, papers []apimodels.PaperSummary) (string, error) {
	if strings.TrimSpace(topic) == "" {
		return "", apperr.Invalid("topic is required")
	}
	if len(papers) == 0 {
		return "", apperr.Invalid("papers must not be empty")
	}

	p, err := prompts.LiteratureReview(topic, papers)
	if err != nil {
		return "", err
	}
	return observe(ctx, r, "literature_review", p, parse.Markdown)
}

// observe runs one retried completion, decodes it with decode and records
// the outcome.
func observe[T any](ctx context.Context, r *Researcher, op string, p prompts.Prompt, decode func(string) (T, error)) (T, error) {
	reqID := middleware.GetReqID(ctx)
	slog.Info("Starting research request", "request_id", reqID, "operation", op, "model", r.model)
	start := time.Now()

	v, err := retry.Do(ctx, r.retry, "research."+op, func(ctx context.Context) (T, error) {
		resp, err := r.llm.Complete(ctx, p.System, p.User, llm.WithModel(r.model))
		if err != nil {
			var zero T
			return zero, err
		}
		return decode(resp.Content)
	})

	metrics.PipelineRuns.WithLabelValues("research_"+op, metrics.Outcome(err)).Inc()
	metrics.StageDuration.WithLabelValues("research", op).Observe(time.Since(start).Seconds())
	if err != nil {
		slog.Error("Research request failed", "request_id", reqID, "operation", op, "error", err)
		return v, err
	}
	slog.Info("Research request completed", "request_id", reqID, "operation", op, "duration", time.Since(start))
	return v, nil
}
