// Package prompts builds the instructions sent to the completion service.
// Every builder spells out the exact output format, since the model is the
// only thing that enforces the structure the parser expects.
package prompts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/mindshear/mindshear-api/apimodels"
)

// Prompt is a system/user message pair for one completion call.
type Prompt struct {
	System string
	User   string
}

const (
	notesSystem    = "You are an expert educator who writes clear, well-structured study notes."
	tablesSystem   = "You are an assistant that summarizes study material as data tables. You answer with JSON only."
	searchSystem   = "You are a research assistant specialized in academic paper analysis and summarization."
	analysisSystem = "You are a research analyst specialized in academic paper analysis."
	reviewSystem   = "You are a research synthesis expert specialized in literature reviews."
)

var notesTmpl = template.Must(template.New("notes").Parse(`Generate comprehensive study notes on the topic: {{.Topic}}
Depth level: {{.Depth}}
Style: {{.Style}}

Include:
1. Introduction and key concepts
2. Detailed explanations
3. Examples and applications
4. Image placeholders for relevant diagrams
5. Important formulas and equations
6. Summary and key takeaways

Mark every place where a diagram or picture would help with a placeholder on
its own line, written exactly as [IMAGE: short description of the image].
For example: [IMAGE: labeled diagram of a plant cell]

Format the content in markdown.
`))

var tablesTmpl = template.Must(template.New("tables").Parse(`Based on the following content about {{.Topic}}, generate relevant tables.

Content:
{{.Content}}

Respond with a JSON array of tables and nothing else. Each table has this shape:
[
  {
    "title": "Table Title",
    "headers": ["Header1", "Header2"],
    "rows": [["Data1", "Data2"], ["Data3", "Data4"]]
  }
]

Rules:
- every cell is a JSON string, including numbers
- every row has exactly as many cells as there are headers
- do not wrap the JSON in prose
`))

var searchTmpl = template.Must(template.New("search").Parse(`Search for research papers about: {{.Query}}

For each paper, provide:
1. Title
2. Authors
3. Abstract
4. Key findings
5. Citation

Format the response as a JSON array with the following structure:
[
  {
    "title": "Paper Title",
    "authors": ["Author 1", "Author 2"],
    "abstract": "Abstract text",
    "key_findings": ["Finding 1", "Finding 2"],
    "citation": "Citation in APA format"
  }
]

Limit to {{.MaxResults}} most relevant papers, ordered from most to least relevant.
Respond with the JSON array only.
`))

var analysisTmpl = template.Must(template.New("analysis").Parse(`Analyze the following research paper and provide:
1. Main research question
2. Methodology
3. Key findings
4. Limitations
5. Future research directions
6. Practical applications

Paper content:
{{.Content}}

Format the response as a JSON object with this structure and nothing else:
{
  "research_question": "string",
  "methodology": "string",
  "key_findings": ["string"],
  "limitations": ["string"],
  "future_directions": ["string"],
  "applications": ["string"]
}
`))

var reviewTmpl = template.Must(template.New("review").Parse(`Generate a comprehensive literature review on the topic: {{.Topic}}

Based on the following papers:
{{.Papers}}

Include:
1. Introduction to the topic
2. Synthesis of key findings
3. Comparison of methodologies
4. Identification of research gaps
5. Future research directions
6. Conclusion

Format the response in markdown.
`))

// Notes builds the prompt for the notes body.
func Notes(topic string, depth apimodels.Depth, style apimodels.Style) (Prompt, error) {
	return render(notesSystem, notesTmpl, struct {
		Topic string
		Depth apimodels.Depth
		Style apimodels.Style
	}{topic, depth, style})
}

// Tables builds the prompt that turns generated notes into tables.
func Tables(topic, content string) (Prompt, error) {
	return render(tablesSystem, tablesTmpl, struct{ Topic, Content string }{topic, content})
}

// Search builds the paper search prompt, capped at maxResults papers.
func Search(query string, maxResults int) (Prompt, error) {
	return render(searchSystem, searchTmpl, struct {
		Query      string
		MaxResults int
	}{query, maxResults})
}

// Analysis builds the single-paper analysis prompt.
func Analysis(paperContent string) (Prompt, error) {
	return render(analysisSystem, analysisTmpl, struct{ Content string }{paperContent})
}

// LiteratureReview builds the review prompt with the full paper set embedded as JSON.
func LiteratureReview(topic string, papers []apimodels.PaperSummary) (Prompt, error) {
	data, err := json.MarshalIndent(papers, "", "  ")
	if err != nil {
		return Prompt{}, fmt.Errorf("marshaling papers: %w", err)
	}
	return render(reviewSystem, reviewTmpl, struct{ Topic, Papers string }{topic, string(data)})
}

func render(system string, tmpl *template.Template, data any) (Prompt, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return Prompt{}, fmt.Errorf("rendering %s prompt: %w", tmpl.Name(), err)
	}
	return Prompt{System: system, User: buf.String()}, nil
}
