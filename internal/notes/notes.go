// Package notes implements the notes pipeline: generate the body text,
// resolve and validate image cues, generate tables, then assemble and
// publish the PDF.
package notes

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/mindshear/mindshear-api/apimodels"
	"github.com/mindshear/mindshear-api/internal/document"
	"github.com/mindshear/mindshear-api/internal/images"
	"github.com/mindshear/mindshear-api/internal/llm"
	"github.com/mindshear/mindshear-api/internal/metrics"
	"github.com/mindshear/mindshear-api/internal/parse"
	"github.com/mindshear/mindshear-api/internal/prompts"
	"github.com/mindshear/mindshear-api/internal/retry"
)

// AcceptThreshold is the relevance score an image must exceed to be kept.
const AcceptThreshold = 0.5

const pipelineName = "notes"

// Stage is a state of one notes request.
type Stage string

const (
	StageCreated           Stage = "created"
	StageTextGenerated     Stage = "text_generated"
	StageImagesResolved    Stage = "images_resolved"
	StageTablesGenerated   Stage = "tables_generated"
	StageDocumentAssembled Stage = "document_assembled"
	StageDone              Stage = "done"
	StageFailed            Stage = "failed"
)

// FailurePolicy decides what an error while entering a stage does to the request.
type FailurePolicy int

const (
	// FailRequest moves the request to StageFailed.
	FailRequest FailurePolicy = iota
	// DegradeItem drops the failing item and lets the stage complete.
	DegradeItem
)

func (p FailurePolicy) String() string {
	if p == DegradeItem {
		return "degrade_item"
	}
	return "fail_request"
}

// Policies maps each stage to the failure policy applied while entering it.
// A cue that cannot be resolved only costs its image; tables were asked for
// explicitly, so failing to produce them fails the request.
var Policies = map[Stage]FailurePolicy{
	StageTextGenerated:     FailRequest,
	StageImagesResolved:    DegradeItem,
	StageTablesGenerated:   FailRequest,
	StageDocumentAssembled: FailRequest,
}

// Publisher renders and stores a document, returning its reference.
type Publisher interface {
	Publish(ctx context.Context, doc document.Document) (string, error)
}

type Options struct {
	// Model is the completion model used for the body and tables.
	Model string

	// ImageConcurrency bounds how many cues are resolved at once.
	ImageConcurrency int

	Retry retry.Policy
}

// Generator runs the notes pipeline. It holds only immutable
// configuration and shared adapters, so one instance serves all requests.
type Generator struct {
	llm       llm.Provider
	searcher  images.Searcher
	scorer    images.Scorer
	publisher Publisher
	opts      Options
}

func NewGenerator(provider llm.Provider, searcher images.Searcher, scorer images.Scorer, publisher Publisher, opts Options) *Generator {
	if opts.ImageConcurrency < 1 {
		opts.ImageConcurrency = 1
	}
	return &Generator{
		llm:       provider,
		searcher:  searcher,
		scorer:    scorer,
		publisher: publisher,
		opts:      opts,
	}
}

// run is the state of one request.
type run struct {
	id    string
	req   apimodels.GenerationRequest
	stage Stage

	text       string
	candidates []apimodels.ImageCandidate
	tables     []apimodels.Table
	ref        string
}

// Generate produces notes for req. Any stage failure with the FailRequest
// policy aborts the request; the returned error wraps the originating cause.
func (g *Generator) Generate(ctx context.Context, req apimodels.GenerationRequest) (*apimodels.NotesResult, error) {
	if err := apimodels.Validate(req); err != nil {
		return nil, err
	}

	r := &run{id: middleware.GetReqID(ctx), req: req, stage: StageCreated}
	slog.Info("Starting notes generation", "request_id", r.id, "topic", req.Topic,
		"depth", req.Depth, "style", req.Style, "include_diagrams", req.IncludeDiagrams, "include_tables", req.IncludeTables)
	start := time.Now()

	steps := []struct {
		next Stage
		fn   func(context.Context, *run) error
	}{
		{StageTextGenerated, g.generateText},
		{StageImagesResolved, g.resolveImages},
		{StageTablesGenerated, g.generateTables},
		{StageDocumentAssembled, g.assemble},
	}
	for _, step := range steps {
		if err := g.advance(ctx, r, step.next, step.fn); err != nil {
			metrics.PipelineRuns.WithLabelValues(pipelineName, metrics.Outcome(err)).Inc()
			return nil, err
		}
	}
	r.stage = StageDone
	metrics.PipelineRuns.WithLabelValues(pipelineName, metrics.Outcome(nil)).Inc()

	result := &apimodels.NotesResult{
		PDFURL:      r.ref,
		TextContent: r.text,
		Images:      acceptedURLs(r.candidates),
		Tables:      r.tables,
	}
	if result.Tables == nil {
		result.Tables = []apimodels.Table{}
	}
	slog.Info("Notes generation completed", "request_id", r.id, "pdf", r.ref,
		"images", len(result.Images), "tables", len(result.Tables), "duration", time.Since(start))
	return result, nil
}

func (g *Generator) advance(ctx context.Context, r *run, next Stage, fn func(context.Context, *run) error) error {
	start := time.Now()
	err := fn(ctx, r)
	metrics.StageDuration.WithLabelValues(pipelineName, string(next)).Observe(time.Since(start).Seconds())
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		slog.Error("Notes generation failed", "request_id", r.id, "stage", r.stage, "next", next,
			"policy", Policies[next], "error", err)
		prev := r.stage
		r.stage = StageFailed
		return fmt.Errorf("notes %s -> %s: %w", prev, next, err)
	}
	slog.Info("Notes stage completed", "request_id", r.id, "stage", next, "duration", time.Since(start))
	r.stage = next
	return nil
}

func (g *Generator) generateText(ctx context.Context, r *run) error {
	p, err := prompts.Notes(r.req.Topic, r.req.Depth, r.req.Style)
	if err != nil {
		return err
	}
	r.text, err = retry.Do(ctx, g.opts.Retry, "notes.text", func(ctx context.Context) (string, error) {
		resp, err := g.llm.Complete(ctx, p.System, p.User, llm.WithModel(g.opts.Model))
		if err != nil {
			return "", err
		}
		return parse.Markdown(resp.Content)
	})
	return err
}

func (g *Generator) resolveImages(ctx context.Context, r *run) error {
	if !r.req.IncludeDiagrams {
		slog.Debug("Diagrams disabled, skipping image cues", "request_id", r.id)
		return nil
	}
	cues := parse.ImageCues(r.text)
	if len(cues) == 0 {
		return nil
	}

	candidates := make([]apimodels.ImageCandidate, len(cues))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.ImageConcurrency)
	for i, cue := range cues {
		eg.Go(func() error {
			c, err := g.resolveCue(egCtx, r.req.Topic, cue)
			if err != nil {
				if Policies[StageImagesResolved] != DegradeItem || egCtx.Err() != nil {
					return err
				}
				slog.Warn("Image cue degraded", "request_id", r.id, "cue", cue, "error", err)
				metrics.ImageCandidates.WithLabelValues("error").Inc()
				c = apimodels.ImageCandidate{Description: cue}
			}
			candidates[i] = c
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	r.candidates = candidates
	return nil
}

// resolveCue searches for an image matching cue and scores it.
func (g *Generator) resolveCue(ctx context.Context, topic, cue string) (apimodels.ImageCandidate, error) {
	c := apimodels.ImageCandidate{Description: cue}

	imageURL, err := g.searcher.SearchImage(ctx, topic+" "+cue)
	if err != nil {
		return c, err
	}
	if imageURL == "" {
		metrics.ImageCandidates.WithLabelValues("no_result").Inc()
		return c, nil
	}

	c.SourceURL = imageURL
	c.RelevanceScore = g.scorer.ScoreRelevance(ctx, imageURL, cue)
	c.Accepted = c.RelevanceScore > AcceptThreshold
	if c.Accepted {
		metrics.ImageCandidates.WithLabelValues("accepted").Inc()
	} else {
		metrics.ImageCandidates.WithLabelValues("rejected").Inc()
	}
	slog.Debug("Image cue scored", "cue", cue, "url", imageURL, "score", c.RelevanceScore, "accepted", c.Accepted)
	return c, nil
}

func (g *Generator) generateTables(ctx context.Context, r *run) error {
	if !r.req.IncludeTables {
		return nil
	}
	p, err := prompts.Tables(r.req.Topic, r.text)
	if err != nil {
		return err
	}
	r.tables, err = retry.Do(ctx, g.opts.Retry, "notes.tables", func(ctx context.Context) ([]apimodels.Table, error) {
		resp, err := g.llm.Complete(ctx, p.System, p.User, llm.WithModel(g.opts.Model))
		if err != nil {
			return nil, err
		}
		return parse.Tables(resp.Content)
	})
	return err
}

func (g *Generator) assemble(ctx context.Context, r *run) error {
	doc := document.Assemble(r.text, r.candidates, r.tables)
	ref, err := g.publisher.Publish(ctx, doc)
	if err != nil {
		return err
	}
	r.ref = ref
	return nil
}

func acceptedURLs(candidates []apimodels.ImageCandidate) []string {
	urls := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.Accepted {
			urls = append(urls, c.SourceURL)
		}
	}
	return urls
}
