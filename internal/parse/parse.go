// Package parse decodes completion output into typed results. JSON output
// is parsed strictly and then checked against an explicit schema; any
// mismatch is an apperr.ErrMalformedUpstreamResponse.
package parse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/mindshear/mindshear-api/apimodels"
	"github.com/mindshear/mindshear-api/internal/apperr"
)

var (
	imageCueRe = regexp.MustCompile(`\[IMAGE:[ \t]*([^\]\n]*?)[ \t]*\]`)

	// fenceRe matches a reply that is a single fenced code block.
	fenceRe = regexp.MustCompile("(?s)^```[a-zA-Z0-9_-]*[ \t]*\n(.*?)\n?```$")
)

// ImageCues returns the description of every [IMAGE: ...] placeholder in
// markdown, left to right, duplicates preserved. Empty descriptions are skipped.
func ImageCues(markdown string) []string {
	matches := imageCueRe.FindAllStringSubmatch(markdown, -1)
	cues := make([]string, 0, len(matches))
	for _, m := range matches {
		if m[1] == "" {
			continue
		}
		cues = append(cues, m[1])
	}
	return cues
}

// CueLocations returns the byte ranges of the placeholders ImageCues reports,
// in the same order.
func CueLocations(markdown string) [][]int {
	all := imageCueRe.FindAllStringSubmatchIndex(markdown, -1)
	locs := make([][]int, 0, len(all))
	for _, m := range all {
		if m[2] == m[3] {
			continue
		}
		locs = append(locs, []int{m[0], m[1]})
	}
	return locs
}

// Markdown checks that a Markdown reply is present.
func Markdown(raw string) (string, error) {
	body := strings.TrimSpace(raw)
	if body == "" {
		return "", apperr.Malformed("empty markdown response")
	}
	return body, nil
}

// JSON strictly decodes raw into v. A reply consisting of one fenced code
// block is unwrapped first; anything else around the JSON value is an error.
func JSON(raw string, v any) error {
	body := unfence(strings.TrimSpace(raw))
	if body == "" {
		return apperr.Malformed("empty response, expected JSON")
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	if err := dec.Decode(v); err != nil {
		return apperr.Wrap(apperr.ErrMalformedUpstreamResponse, err, "response is not valid JSON")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return apperr.Malformed("unexpected content after JSON value")
	}
	return nil
}

func unfence(s string) string {
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// Tables decodes a JSON array of tables and validates each one.
func Tables(raw string) ([]apimodels.Table, error) {
	var tables []apimodels.Table
	if err := JSON(raw, &tables); err != nil {
		return nil, err
	}
	if tables == nil {
		return nil, apperr.Malformed("tables: expected a JSON array")
	}
	for i, t := range tables {
		if err := validateTable(t); err != nil {
			return nil, apperr.Malformed("table %d: %v", i, err)
		}
	}
	return tables, nil
}

func validateTable(t apimodels.Table) error {
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("missing title")
	}
	if len(t.Headers) == 0 {
		return errors.New("missing headers")
	}
	if t.Rows == nil {
		return errors.New("missing rows")
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Headers) {
			return fmt.Errorf("row %d has %d cells, expected %d", i, len(row), len(t.Headers))
		}
	}
	return nil
}

// Papers decodes a JSON array of paper summaries. Results beyond max are
// dropped; order is kept as returned.
func Papers(raw string, max int) ([]apimodels.PaperSummary, error) {
	var papers []apimodels.PaperSummary
	if err := JSON(raw, &papers); err != nil {
		return nil, err
	}
	if papers == nil {
		return nil, apperr.Malformed("papers: expected a JSON array")
	}
	for i, p := range papers {
		if strings.TrimSpace(p.Title) == "" {
			return nil, apperr.Malformed("paper %d: missing title", i)
		}
	}
	if max > 0 && len(papers) > max {
		papers = papers[:max]
	}
	return papers, nil
}

// Analysis decodes a JSON object. Keys are advisory and not enforced.
func Analysis(raw string) (apimodels.PaperAnalysis, error) {
	var analysis apimodels.PaperAnalysis
	if err := JSON(raw, &analysis); err != nil {
		return nil, err
	}
	if analysis == nil {
		return nil, apperr.Malformed("analysis: expected a JSON object")
	}
	return analysis, nil
}
