package images

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/mindshear/mindshear-api/internal/apperr"
	"github.com/mindshear/mindshear-api/internal/config"
	"github.com/mindshear/mindshear-api/internal/metrics"
)

// SerpAPI searches Google Images through serpapi.com.
type SerpAPI struct {
	apiKey   string
	endpoint string
	timeout  time.Duration
	client   *http.Client
	limiter  *rate.Limiter
}

type serpResponse struct {
	Error         string `json:"error"`
	ImagesResults []struct {
		Original  string `json:"original"`
		Thumbnail string `json:"thumbnail"`
	} `json:"images_results"`
}

func NewSerpAPI(cfg config.ImageConfig, client *http.Client) *SerpAPI {
	if client == nil {
		client = &http.Client{}
	}
	limit := rate.Inf
	if cfg.SearchRPS > 0 {
		limit = rate.Limit(cfg.SearchRPS)
	}
	return &SerpAPI{
		apiKey:   cfg.SerpAPIKey,
		endpoint: cfg.SearchEndpoint,
		timeout:  cfg.Timeout,
		client:   client,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

func (s *SerpAPI) SearchImage(ctx context.Context, query string) (string, error) {
	if s.apiKey == "" {
		slog.Debug("Image search disabled, no API key configured")
		return "", nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for image search rate limit: %w", err)
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	q := url.Values{}
	q.Set("engine", "google_images")
	q.Set("q", query)
	q.Set("api_key", s.apiKey)

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, s.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating image search request: %w", err)
	}

	start := time.Now()
	imageURL, err := s.do(req)
	metrics.ObserveUpstream("image_search", start, err)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", apperr.Wrap(apperr.ErrUpstreamTimeout, err, "image search timed out")
		}
		return "", err
	}
	return imageURL, nil
}

func (s *SerpAPI) do(req *http.Request) (string, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrUpstreamUnavailable, err, "calling image search API")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", apperr.Wrap(apperr.ErrUpstreamRejected, nil, fmt.Sprintf("image search API returned %d: %s", resp.StatusCode, body))
	}

	var parsed serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", apperr.Wrap(apperr.ErrMalformedUpstreamResponse, err, "decoding image search response")
	}
	if parsed.Error != "" {
		// SerpAPI reports an empty result set as an error string with status 200.
		slog.Debug("Image search returned no results", "reason", parsed.Error)
		return "", nil
	}

	for _, img := range parsed.ImagesResults {
		if img.Original != "" {
			return img.Original, nil
		}
	}
	return "", nil
}
