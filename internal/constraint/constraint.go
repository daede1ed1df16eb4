// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package constraint turns retrieved evidence text into typed
// constraint tokens (campaign date ranges, category names, metric
// hints) and reconciles competing date ranges against the campaign
// calendar.
package constraint

import (
	"regexp"
	"strings"

	"github.com/pdiddy/retail-copilot/pkg/types"
)

var (
	// labeledDatePattern matches ranges announced with a "Dates:"
	// label, as the marketing calendar writes them.
	labeledDatePattern = regexp.MustCompile(`(?i)Dates?:\s*(\d{4}-\d{2}-\d{2})\s*to\s*(\d{4}-\d{2}-\d{2})`)

	// bareDatePattern matches any "YYYY-MM-DD to YYYY-MM-DD" range.
	bareDatePattern = regexp.MustCompile(`(?i)(\d{4}-\d{2}-\d{2})\s*to\s*(\d{4}-\d{2}-\d{2})`)
)

// categoryVocabulary lists the category names the marketing documents
// mention. Matched case-sensitively, as authored.
var categoryVocabulary = []string{
	"Beverages", "Condiments", "Confections", "Dairy Products",
}

// metricVocabulary maps metric phrasings (lowercased) to normalized
// metric names.
var metricVocabulary = []struct {
	phrase string
	metric string
}{
	{"average order value", "AOV"},
	{"aov", "AOV"},
	{"gross margin", "GrossMargin"},
}

// Extract scans chunks in order and returns tokens in discovery order.
// Both date patterns run over every chunk, so a labeled range also
// matches the bare pattern and appears twice; ApplyCalendar resolves
// the duplication.
func Extract(chunks []types.EvidenceChunk) []types.ConstraintToken {
	var tokens []types.ConstraintToken
	for _, chunk := range chunks {
		for _, pat := range []*regexp.Regexp{labeledDatePattern, bareDatePattern} {
			for _, m := range pat.FindAllStringSubmatch(chunk.Content, -1) {
				tokens = append(tokens,
					types.ConstraintToken{Kind: types.ConstraintDateStart, Value: m[1]},
					types.ConstraintToken{Kind: types.ConstraintDateEnd, Value: m[2]},
				)
			}
		}

		for _, cat := range categoryVocabulary {
			if strings.Contains(chunk.Content, cat) {
				tokens = append(tokens, types.ConstraintToken{
					Kind: types.ConstraintCategory, Value: cat,
				})
			}
		}

		lower := strings.ToLower(chunk.Content)
		for _, m := range metricVocabulary {
			if strings.Contains(lower, m.phrase) {
				tokens = append(tokens, types.ConstraintToken{
					Kind: types.ConstraintMetricHint, Value: m.metric,
				})
			}
		}
	}
	return tokens
}

// ApplyCalendar reconciles date tokens after extraction. When the
// question names a calendar window, only date tokens equal to that
// window's bounds survive, one start and one end; otherwise the first
// discovered start and end survive. Non-date tokens always pass
// through unchanged, in order.
func ApplyCalendar(question string, tokens []types.ConstraintToken, cal Calendar) []types.ConstraintToken {
	wantStart, wantEnd := "", ""
	if w, ok := cal.Match(question); ok {
		wantStart, wantEnd = w.Start, w.End
	}

	out := make([]types.ConstraintToken, 0, len(tokens))
	seenStart, seenEnd := false, false
	for _, t := range tokens {
		switch t.Kind {
		case types.ConstraintDateStart:
			if seenStart || (wantStart != "" && t.Value != wantStart) {
				continue
			}
			out = append(out, t)
			seenStart = true
		case types.ConstraintDateEnd:
			if seenEnd || (wantEnd != "" && t.Value != wantEnd) {
				continue
			}
			out = append(out, t)
			seenEnd = true
		default:
			out = append(out, t)
		}
	}
	return out
}

// RewriteQuery sharpens the retrieval query for known intents: a
// campaign mention retrieves that window's dates paragraph, and AOV
// questions retrieve the metric definition. Everything else retrieves
// on the question text itself.
func RewriteQuery(question string, cal Calendar) string {
	if w, ok := cal.Match(question); ok {
		return w.Name + " dates"
	}
	if strings.Contains(strings.ToLower(question), "aov") {
		return "Average Order Value AOV definition"
	}
	return question
}
