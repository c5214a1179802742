// cmd/server/main.go
package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/mindshear/mindshear-api/internal/config"
	"github.com/mindshear/mindshear-api/internal/document"
	"github.com/mindshear/mindshear-api/internal/images"
	"github.com/mindshear/mindshear-api/internal/llm"
	"github.com/mindshear/mindshear-api/internal/notes"
	"github.com/mindshear/mindshear-api/internal/research"
	"github.com/mindshear/mindshear-api/internal/retry"
	"github.com/mindshear/mindshear-api/internal/server"
)

func main() {
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.Server.LogLevel),
	})))

	llmProvider, err := llm.NewOpenAI(cfg.LLM)
	if err != nil {
		log.Fatalf("failed to create LLM provider: %v", err)
	}

	httpClient := &http.Client{}
	searcher := images.NewSerpAPI(cfg.Images, httpClient)
	scorer := images.NewSimilarity(cfg.Images, httpClient)
	if cfg.Images.SerpAPIKey == "" {
		slog.Warn("SERPAPI_API_KEY is not set, image search is disabled")
	}
	if cfg.Images.SimilarityEndpoint == "" {
		slog.Warn("SIMILARITY_ENDPOINT is not set, every image will be rejected")
	}

	store, err := document.NewFileStore(cfg.Storage.UploadDir, cfg.Storage.StaticPrefix)
	if err != nil {
		log.Fatalf("failed to prepare artifact storage: %v", err)
	}

	policy := retry.Policy{
		MaxTries:        cfg.Pipeline.RetryMaxTries,
		InitialInterval: cfg.Pipeline.RetryInitialInterval,
		MaxInterval:     cfg.Pipeline.RetryMaxInterval,
	}

	generator := notes.NewGenerator(llmProvider, searcher, scorer, document.NewPublisher(store), notes.Options{
		Model:            cfg.LLM.NotesModel,
		ImageConcurrency: cfg.Pipeline.ImageConcurrency,
		Retry:            policy,
	})
	researcher := research.New(llmProvider, cfg.LLM.ResearchModel, policy)

	srv := server.New(*cfg, generator, researcher)
	slog.Info("starting server", "host", cfg.Server.Host, "port", cfg.Server.Port)
	if err := srv.Run(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
