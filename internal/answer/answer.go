// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package answer assembles the final typed answer: shape validation of
// execution results, coercion into the hinted format, document-grounded
// answers for policy questions, and provenance citations with a
// confidence score.
package answer

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/retail-copilot/pkg/types"
)

// Binary confidence: fixed high when an answer was produced, fixed low
// when not, zero only for fatal workflow errors.
const (
	ConfidenceHigh  = 0.8
	ConfidenceLow   = 0.2
	ConfidenceFatal = 0.0
)

// recordListLimit caps how many rows a record-list answer keeps.
const recordListLimit = 3

// Validate checks an execution result's shape against the expected
// format and returns human-readable issues, empty when the shape fits.
// Only the first row's arity is inspected; cell-level coercion problems
// surface later in FromRows.
func Validate(rows [][]any, format types.FormatSpec) []string {
	if len(rows) == 0 {
		return []string{"query returned no rows"}
	}

	width := len(rows[0])
	switch {
	case format.Scalar() && width > 1:
		return []string{fmt.Sprintf("expected a single column for a scalar answer, got %d", width)}
	case format.Kind == types.FormatRecord && width < 2:
		return []string{fmt.Sprintf("expected at least 2 columns for a record answer, got %d", width)}
	}
	return nil
}

// FromRows coerces execution rows into the hinted format. Any
// coercion failure yields an absent answer rather than an error: the
// confidence score carries the signal.
func FromRows(rows [][]any, format types.FormatSpec) types.Answer {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return types.NoAnswer()
	}

	switch format.Kind {
	case types.FormatInt:
		f, err := toFloat(rows[0][0])
		if err != nil {
			return types.NoAnswer()
		}
		return types.IntAnswer(int64(f))

	case types.FormatFloat:
		f, err := toFloat(rows[0][0])
		if err != nil {
			return types.NoAnswer()
		}
		return types.FloatAnswer(round2(f))

	case types.FormatRecord:
		rec, err := buildRecord(rows[0], format.Fields)
		if err != nil {
			return types.NoAnswer()
		}
		return types.RecordAnswer(rec)

	case types.FormatRecordList:
		limit := len(rows)
		if limit > recordListLimit {
			limit = recordListLimit
		}
		recs := make([]types.Record, 0, limit)
		for _, row := range rows[:limit] {
			rec, err := buildRecord(row, format.Fields)
			if err != nil {
				return types.NoAnswer()
			}
			recs = append(recs, rec)
		}
		return types.RecordsAnswer(recs)
	}
	return types.NoAnswer()
}

// buildRecord maps row columns onto hint fields positionally.
func buildRecord(row []any, fields []types.FieldSpec) (types.Record, error) {
	if len(row) < len(fields) {
		return nil, fmt.Errorf("row has %d columns, format needs %d", len(row), len(fields))
	}

	rec := make(types.Record, 0, len(fields))
	for i, f := range fields {
		switch f.Type {
		case "str":
			rec = append(rec, types.Field{Name: f.Name, Value: toString(row[i])})
		case "int":
			v, err := toFloat(row[i])
			if err != nil {
				return nil, err
			}
			rec = append(rec, types.Field{Name: f.Name, Value: int64(v)})
		case "float":
			v, err := toFloat(row[i])
			if err != nil {
				return nil, err
			}
			rec = append(rec, types.Field{Name: f.Name, Value: round2(v)})
		default:
			return nil, fmt.Errorf("unsupported field type %q", f.Type)
		}
	}
	return rec, nil
}

// docTopics pairs a question keyword with the policy phrasing that
// carries its numeric answer.
var docTopics = []struct {
	keyword string
	pattern *regexp.Regexp
}{
	{"beverage", regexp.MustCompile(`(?i)Beverages?\s+unopened[:\s]+(\d+)\s*days?`)},
	{"condiment", regexp.MustCompile(`(?i)Condiments?\s+unopened[:\s]+(\d+)\s*days?`)},
	{"confection", regexp.MustCompile(`(?i)Confections?\s+unopened[:\s]+(\d+)\s*days?`)},
	{"dairy", regexp.MustCompile(`(?i)Dairy\s+Products?\s+unopened[:\s]+(\d+)\s*days?`)},
}

// FromDocs answers a policy question directly from retrieved chunks:
// return-window questions scan for the category's "unopened: N days"
// phrasing and answer with N. Anything else is absent.
func FromDocs(question string, chunks []types.EvidenceChunk) types.Answer {
	lower := strings.ToLower(question)
	if !strings.Contains(lower, "return window") && !strings.Contains(lower, "return days") {
		return types.NoAnswer()
	}

	for _, chunk := range chunks {
		for _, topic := range docTopics {
			if !strings.Contains(lower, topic.keyword) {
				continue
			}
			m := topic.pattern.FindStringSubmatch(chunk.Content)
			if m == nil {
				continue
			}
			n, err := strconv.ParseInt(m[1], 10, 64)
			if err != nil {
				continue
			}
			return types.IntAnswer(n)
		}
	}
	return types.NoAnswer()
}

// Citations returns the sorted, deduplicated union of evidence chunk
// IDs and touched table names. Never nil, even when empty.
func Citations(docIDs, tables []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(docIDs)+len(tables))
	for _, list := range [][]string{docIDs, tables} {
		for _, c := range list {
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// Input carries the final workflow state the synthesizer reads.
type Input struct {
	Question string
	Format   types.FormatSpec
	Route    types.Route
	Chunks   []types.EvidenceChunk
	DocIDs   []string
	Rows     [][]any
	Success  bool
	Tables   []string
	LastErr  string
}

// Output is the synthesized answer bundle.
type Output struct {
	Answer      types.Answer
	Explanation string
	Confidence  float64
	Citations   []string
}

// Synthesize produces the final typed answer with provenance. Answer
// presence alone decides confidence; a zero count is still an answer.
func Synthesize(in Input) Output {
	var ans types.Answer
	var explanation string

	if in.Route == types.RouteDocOnly {
		ans = FromDocs(in.Question, in.Chunks)
		explanation = "From docs"
	} else {
		if in.Success {
			ans = FromRows(in.Rows, in.Format)
		} else {
			ans = types.NoAnswer()
		}
		if ans.Present() {
			explanation = "From database"
		} else {
			lastErr := in.LastErr
			if lastErr == "" {
				lastErr = "Unknown"
			}
			explanation = "Failed: " + lastErr
		}
	}

	conf := ConfidenceLow
	if ans.Present() {
		conf = ConfidenceHigh
	}

	return Output{
		Answer:      ans,
		Explanation: explanation,
		Confidence:  conf,
		Citations:   Citations(in.DocIDs, in.Tables),
	}
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	case []byte:
		return strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
	}
	return 0, fmt.Errorf("cannot convert %T to a number", v)
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	}
	return fmt.Sprintf("%v", v)
}

// round2 rounds half away from zero to two decimals, matching the
// ROUND() the templates apply in SQL.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
