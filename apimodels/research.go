package apimodels

// DefaultMaxResults is used when a search request omits max_results.
const DefaultMaxResults = 5

type ResearchQuery struct {
	Query      string `json:"query" validate:"required"`
	MaxResults int    `json:"max_results"`
}

// NewResearchQuery returns a query carrying the API defaults.
func NewResearchQuery() ResearchQuery {
	return ResearchQuery{MaxResults: DefaultMaxResults}
}

// PaperSummary is one search result, in the relevance order the completion
// service returned.
type PaperSummary struct {
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Abstract    string   `json:"abstract"`
	KeyFindings []string `json:"key_findings"`
	Citation    string   `json:"citation"`
}

type SearchResponse struct {
	Papers []PaperSummary `json:"papers"`
}

type AnalysisRequest struct {
	PaperContent string `json:"paper_content"`
}

// PaperAnalysis is the advisory analysis structure. Expected keys are
// research_question, methodology, key_findings, limitations,
// future_directions and applications; extra or missing keys are kept as-is.
type PaperAnalysis map[string]any

type LiteratureReviewRequest struct {
	Topic  string         `json:"topic" validate:"required"`
	Papers []PaperSummary `json:"papers"`
}

type LiteratureReview struct {
	// Review is the Markdown body of the review
	Review string `json:"review"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
