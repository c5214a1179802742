package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mindshear/mindshear-api/apimodels"
	"github.com/mindshear/mindshear-api/internal/config"
)

// NotesGenerator runs the notes pipeline.
type NotesGenerator interface {
	Generate(ctx context.Context, req apimodels.GenerationRequest) (*apimodels.NotesResult, error)
}

// Researcher answers research requests.
type Researcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]apimodels.PaperSummary, error)
	Analyze(ctx context.Context, paperContent string) (apimodels.PaperAnalysis, error)
	LiteratureReview(ctx context.Context, topic string, papers []apimodels.PaperSummary) (string, error)
}

type Server struct {
	cfg      config.Config
	server   *http.Server
	notes    NotesGenerator
	research Researcher
}

func New(cfg config.Config, notes NotesGenerator, research Researcher) *Server {
	s := &Server{
		cfg:      cfg,
		notes:    notes,
		research: research,
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

// Handler returns the root handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.CORSAllowedOrigins,
		AllowedMethods:   s.cfg.Server.CORSAllowedMethods,
		AllowedHeaders:   s.cfg.Server.CORSAllowedHeaders,
		AllowCredentials: s.cfg.Server.CORSAllowCredentials,
		MaxAge:           300,
	}))

	r.Get("/", s.handleRoot)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			if s.cfg.Server.RequestTimeout > 0 {
				r.Use(requestDeadline(s.cfg.Server.RequestTimeout))
			}

			r.Post("/notes/generate", s.handleGenerateNotes)
			r.Post("/notes/customize", s.handleCustomizeNotes)

			r.Post("/research/search", s.handleSearch)
			r.Post("/research/analyze", s.handleAnalyze)
			r.Post("/research/literature-review", s.handleLiteratureReview)
		})
	})

	// Stored artifacts
	prefix := "/" + strings.Trim(s.cfg.Storage.StaticPrefix, "/")
	fs := http.FileServer(http.Dir(s.cfg.Storage.UploadDir))
	r.Handle(prefix+"/*", http.StripPrefix(prefix, fs))

	return r
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response wrapper to capture status code
		rw := &responseWriter{ResponseWriter: w}

		next.ServeHTTP(rw, r)

		slog.Info("HTTP request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// requestDeadline bounds the request context. Handlers report an expired
// deadline themselves through writeError, so nothing is written here.
func requestDeadline(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) Run() error {
	// Create a channel to listen for errors coming from the listener
	serverErrors := make(chan error, 1)

	go func() {
		slog.Info("Starting server", "address", s.server.Addr)
		serverErrors <- s.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		slog.Info("Starting shutdown", "signal", sig)

		// Give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	return nil
}

// Custom response writer to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.status == 0 {
		rw.status = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
