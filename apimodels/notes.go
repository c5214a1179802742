package apimodels

// Depth controls how deep generated notes go.
type Depth string

const (
	DepthBeginner     Depth = "beginner"
	DepthIntermediate Depth = "intermediate"
	DepthAdvanced     Depth = "advanced"
)

// Style controls the register of generated notes.
type Style string

const (
	StyleAcademic  Style = "academic"
	StyleCasual    Style = "casual"
	StyleTechnical Style = "technical"
)

type GenerationRequest struct {
	// Topic is the study topic to write notes about
	Topic string `json:"topic" validate:"required"`

	Depth Depth `json:"depth" validate:"oneof=beginner intermediate advanced"`

	// IncludeDiagrams enables image cue resolution
	IncludeDiagrams bool `json:"include_diagrams"`

	// IncludeTables enables the table generation step
	IncludeTables bool `json:"include_tables"`

	Style Style `json:"style" validate:"oneof=academic casual technical"`
}

// NewGenerationRequest returns a request carrying the API defaults. Decoding
// a JSON body into it overrides only the fields the caller sent.
func NewGenerationRequest() GenerationRequest {
	return GenerationRequest{
		Depth:           DepthIntermediate,
		IncludeDiagrams: true,
		IncludeTables:   true,
		Style:           StyleAcademic,
	}
}

// Table is a generated table. Every row has exactly len(Headers) cells.
type Table struct {
	Title   string     `json:"title"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// ImageCandidate is the evaluation of one image cue.
type ImageCandidate struct {
	Description    string  `json:"description"`
	SourceURL      string  `json:"source_url"`
	RelevanceScore float64 `json:"relevance_score"`
	Accepted       bool    `json:"accepted"`
}

type NotesResult struct {
	// PDFURL is the reference of the stored PDF artifact
	PDFURL string `json:"pdf_url"`

	TextContent string `json:"text_content"`

	// Images lists accepted image URLs in cue order
	Images []string `json:"images"`

	Tables []Table `json:"tables"`
}
