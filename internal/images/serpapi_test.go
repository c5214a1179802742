package images

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindshear/mindshear-api/internal/apperr"
	"github.com/mindshear/mindshear-api/internal/config"
)

func serpConfig(endpoint string) config.ImageConfig {
	return config.ImageConfig{
		SerpAPIKey:     "serp-key",
		SearchEndpoint: endpoint,
		Timeout:        time.Second,
	}
}

func TestSearchImageReturnsFirstOriginal(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "google_images", r.URL.Query().Get("engine"))
		assert.Equal(t, "photosynthesis chloroplast diagram", r.URL.Query().Get("q"))
		assert.Equal(t, "serp-key", r.URL.Query().Get("api_key"))
		_, _ = w.Write([]byte(`{"images_results": [{"thumbnail": "t0"}, {"original": "https://img.example/1.png"}, {"original": "https://img.example/2.png"}]}`))
	}))
	defer ts.Close()

	s := NewSerpAPI(serpConfig(ts.URL), ts.Client())
	url, err := s.SearchImage(context.Background(), "photosynthesis chloroplast diagram")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/1.png", url)
}

func TestSearchImageNoResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": "Google hasn't returned any results for this query."}`))
	}))
	defer ts.Close()

	s := NewSerpAPI(serpConfig(ts.URL), ts.Client())
	url, err := s.SearchImage(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestSearchImageEmptyResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"images_results": []}`))
	}))
	defer ts.Close()

	s := NewSerpAPI(serpConfig(ts.URL), ts.Client())
	url, err := s.SearchImage(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestSearchImageErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "Invalid API key"}`, http.StatusUnauthorized)
	}))
	defer ts.Close()

	s := NewSerpAPI(serpConfig(ts.URL), ts.Client())
	_, err := s.SearchImage(context.Background(), "q")
	assert.ErrorIs(t, err, apperr.ErrUpstreamRejected)
}

func TestSearchImageTransportFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := ts.URL
	ts.Close()

	s := NewSerpAPI(serpConfig(endpoint), nil)
	_, err := s.SearchImage(context.Background(), "q")
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
}

func TestSearchImageDisabledWithoutKey(t *testing.T) {
	cfg := serpConfig("http://127.0.0.1:1")
	cfg.SerpAPIKey = ""

	s := NewSerpAPI(cfg, nil)
	url, err := s.SearchImage(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, url)
}
