// Package images wraps the image search service and the image/text
// similarity scorer used to validate image cues.
package images

import "context"

// Searcher finds a best-match image URL for a query. An empty URL with a
// nil error means no result.
type Searcher interface {
	SearchImage(ctx context.Context, query string) (string, error)
}

// Scorer rates how well the image at imageURL matches description, in [0,1].
// It never fails: any download or scoring problem yields 0.
type Scorer interface {
	ScoreRelevance(ctx context.Context, imageURL, description string) float64
}
