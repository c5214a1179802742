// Package document merges generated notes into a renderable document,
// renders it to PDF and stores the artifact.
package document

import (
	"fmt"
	"strings"

	"github.com/mindshear/mindshear-api/apimodels"
	"github.com/mindshear/mindshear-api/internal/parse"
)

// Document is the merged notes content ready for rendering.
type Document struct {
	// Body is Markdown with accepted images inlined at their cue positions
	// and every other placeholder removed.
	Body string

	// Tables follow the body in generation order.
	Tables []apimodels.Table
}

// Assemble replaces the k-th image placeholder in text with candidates[k]
// when that candidate was accepted and drops it otherwise. Candidates line
// up with parse.ImageCues(text); a nil slice drops every placeholder.
func Assemble(text string, candidates []apimodels.ImageCandidate, tables []apimodels.Table) Document {
	locs := parse.CueLocations(text)

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for k, loc := range locs {
		b.WriteString(text[last:loc[0]])
		if k < len(candidates) && candidates[k].Accepted && candidates[k].SourceURL != "" {
			c := candidates[k]
			fmt.Fprintf(&b, "![%s](<%s>)", escapeAlt(c.Description), escapeDestination(c.SourceURL))
		}
		last = loc[1]
	}
	b.WriteString(text[last:])

	return Document{
		Body:   b.String(),
		Tables: tables,
	}
}

func escapeAlt(s string) string {
	r := strings.NewReplacer("[", `\[`, "]", `\]`)
	return r.Replace(s)
}

// escapeDestination makes s safe inside an angle-bracket link destination,
// which may hold spaces and parentheses but no angle brackets, backslash
// escapes or line breaks.
func escapeDestination(s string) string {
	r := strings.NewReplacer("<", "%3C", ">", "%3E", `\`, "%5C", "\n", "%0A", "\r", "%0D")
	return r.Replace(s)
}
