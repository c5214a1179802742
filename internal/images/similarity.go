package images

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"slices"
	"time"

	"github.com/mindshear/mindshear-api/internal/config"
	"github.com/mindshear/mindshear-api/internal/metrics"
)

// Similarity downloads an image and asks an external CLIP-style endpoint
// for its similarity to a text description.
type Similarity struct {
	endpoint     string
	apiKey       string
	model        string
	timeout      time.Duration
	maxBytes     int64
	allowedTypes []string
	client       *http.Client
}

type similarityRequest struct {
	Model string `json:"model,omitempty"`
	Image string `json:"image"`
	Text  string `json:"text"`
}

type similarityResponse struct {
	Score *float64 `json:"score"`
}

func NewSimilarity(cfg config.ImageConfig, client *http.Client) *Similarity {
	if client == nil {
		client = &http.Client{}
	}
	return &Similarity{
		endpoint:     cfg.SimilarityEndpoint,
		apiKey:       cfg.SimilarityAPIKey,
		model:        cfg.SimilarityModel,
		timeout:      cfg.Timeout,
		maxBytes:     cfg.MaxImageBytes,
		allowedTypes: cfg.AllowedTypes,
		client:       client,
	}
}

// ScoreRelevance fails closed: every error is logged and scored 0.
func (s *Similarity) ScoreRelevance(ctx context.Context, imageURL, description string) float64 {
	if s.endpoint == "" {
		slog.Debug("Relevance scoring disabled, rejecting image", "url", imageURL)
		return 0
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	score, err := s.score(callCtx, imageURL, description)
	metrics.ObserveUpstream("similarity", start, err)
	if err != nil {
		slog.Warn("Image relevance scoring failed, treating as not relevant", "url", imageURL, "error", err)
		return 0
	}
	return score
}

func (s *Similarity) score(ctx context.Context, imageURL, description string) (float64, error) {
	img, err := s.download(ctx, imageURL)
	if err != nil {
		return 0, err
	}

	body, err := json.Marshal(similarityRequest{
		Model: s.model,
		Image: base64.StdEncoding.EncodeToString(img),
		Text:  description,
	})
	if err != nil {
		return 0, fmt.Errorf("marshaling similarity request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("creating similarity request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("calling similarity endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("similarity endpoint returned %d", resp.StatusCode)
	}

	var parsed similarityResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decoding similarity response: %w", err)
	}
	if parsed.Score == nil {
		return 0, fmt.Errorf("similarity response has no score")
	}
	return clamp(*parsed.Score), nil
}

func (s *Similarity) download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating image request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download returned %d", resp.StatusCode)
	}
	if s.maxBytes > 0 && resp.ContentLength > s.maxBytes {
		return nil, fmt.Errorf("image is %d bytes, limit is %d", resp.ContentLength, s.maxBytes)
	}

	reader := io.Reader(resp.Body)
	if s.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, s.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", s.maxBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	} else {
		contentType = http.DetectContentType(data)
	}
	if len(s.allowedTypes) > 0 && !slices.Contains(s.allowedTypes, contentType) {
		return nil, fmt.Errorf("image type %q is not allowed", contentType)
	}
	return data, nil
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
