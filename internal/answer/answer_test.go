// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package answer

import (
	"reflect"
	"testing"

	"github.com/pdiddy/retail-copilot/pkg/types"
)

func mustFormat(t *testing.T, hint string) types.FormatSpec {
	t.Helper()
	spec, err := types.ParseFormatHint(hint)
	if err != nil {
		t.Fatalf("ParseFormatHint(%q): %v", hint, err)
	}
	return spec
}

// --- shape validation ---

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		rows   [][]any
		hint   string
		issues []string
	}{
		{
			name:   "no rows",
			rows:   nil,
			hint:   "int",
			issues: []string{"query returned no rows"},
		},
		{
			name:   "scalar with two columns",
			rows:   [][]any{{int64(1), int64(2)}},
			hint:   "int",
			issues: []string{"expected a single column for a scalar answer, got 2"},
		},
		{
			name:   "record with one column",
			rows:   [][]any{{"Chai"}},
			hint:   "{name: str, revenue: float}",
			issues: []string{"expected at least 2 columns for a record answer, got 1"},
		},
		{
			name: "scalar fits",
			rows: [][]any{{float64(12.5)}},
			hint: "float",
		},
		{
			name: "record fits",
			rows: [][]any{{"Chai", float64(100)}},
			hint: "{name: str, revenue: float}",
		},
		{
			name: "list tolerates extra columns",
			rows: [][]any{{"Chai", float64(100), int64(3)}},
			hint: "list[{name: str, revenue: float}]",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Validate(tc.rows, mustFormat(t, tc.hint))
			if !reflect.DeepEqual(got, tc.issues) {
				t.Fatalf("Validate = %v, want %v", got, tc.issues)
			}
		})
	}
}

// --- row coercion ---

func TestFromRowsScalars(t *testing.T) {
	cases := []struct {
		name string
		rows [][]any
		hint string
		want types.Answer
	}{
		{"int from int64", [][]any{{int64(42)}}, "int", types.IntAnswer(42)},
		{"int truncates float", [][]any{{float64(88.9)}}, "int", types.IntAnswer(88)},
		{"int from numeric text", [][]any{{"17"}}, "int", types.IntAnswer(17)},
		{"float rounds to cents", [][]any{{float64(1234.5678)}}, "float", types.FloatAnswer(1234.57)},
		{"float from int64", [][]any{{int64(9)}}, "float", types.FloatAnswer(9)},
		{"unparseable text is absent", [][]any{{"n/a"}}, "int", types.NoAnswer()},
		{"nil cell is absent", [][]any{{nil}}, "float", types.NoAnswer()},
		{"no rows is absent", nil, "int", types.NoAnswer()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FromRows(tc.rows, mustFormat(t, tc.hint))
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("FromRows = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestFromRowsRecord(t *testing.T) {
	format := mustFormat(t, "{name: str, revenue: float}")
	rows := [][]any{{"Côte de Blaye", float64(53265.8512)}}

	got := FromRows(rows, format)
	want := types.RecordAnswer(types.Record{
		{Name: "name", Value: "Côte de Blaye"},
		{Name: "revenue", Value: float64(53265.85)},
	})
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FromRows = %+v, want %+v", got, want)
	}
}

func TestFromRowsRecordListCapsAtThree(t *testing.T) {
	format := mustFormat(t, "list[{name: str, revenue: float}]")
	rows := [][]any{
		{"A", float64(5)},
		{"B", float64(4)},
		{"C", float64(3)},
		{"D", float64(2)},
		{"E", float64(1)},
	}

	got := FromRows(rows, format)
	if got.Kind != types.AnswerRecords {
		t.Fatalf("Kind = %v, want record list", got.Kind)
	}
	if len(got.Records) != 3 {
		t.Fatalf("kept %d records, want 3", len(got.Records))
	}
	if got.Records[2][0].Value != "C" {
		t.Fatalf("third record = %+v, want C", got.Records[2])
	}
}

func TestFromRowsRecordCoercionFailureIsAbsent(t *testing.T) {
	format := mustFormat(t, "{name: str, revenue: float}")
	rows := [][]any{{"Chai", "not a number"}}

	if got := FromRows(rows, format); got.Present() {
		t.Fatalf("FromRows = %+v, want absent", got)
	}
}

func TestFromRowsRecordShortRowIsAbsent(t *testing.T) {
	format := mustFormat(t, "{name: str, revenue: float}")
	rows := [][]any{{"Chai"}}

	if got := FromRows(rows, format); got.Present() {
		t.Fatalf("FromRows = %+v, want absent", got)
	}
}

func TestFromRowsBytesCells(t *testing.T) {
	format := mustFormat(t, "{customer: str, margin: float}")
	rows := [][]any{{[]byte("ALFKI"), []byte("123.456")}}

	got := FromRows(rows, format)
	want := types.RecordAnswer(types.Record{
		{Name: "customer", Value: "ALFKI"},
		{Name: "margin", Value: float64(123.46)},
	})
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FromRows = %+v, want %+v", got, want)
	}
}

// --- document answers ---

func policyChunks() []types.EvidenceChunk {
	return []types.EvidenceChunk{
		{
			ID:      "product_policy::chunk1",
			Content: "Return windows by category. Beverages unopened: 14 days. Condiments unopened: 30 days. Dairy Products unopened: 7 days.",
			Source:  "product_policy.md",
		},
	}
}

func TestFromDocsReturnWindow(t *testing.T) {
	cases := []struct {
		name     string
		question string
		want     types.Answer
	}{
		{"beverages", "What is the return window for unopened Beverages?", types.IntAnswer(14)},
		{"condiments", "How many return days do condiments get?", types.IntAnswer(30)},
		{"dairy", "What is the return window for dairy products?", types.IntAnswer(7)},
		{"not a policy question", "How many beverage orders were placed?", types.NoAnswer()},
		{"category not in docs", "What is the return window for seafood?", types.NoAnswer()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FromDocs(tc.question, policyChunks())
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("FromDocs = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestFromDocsNoChunks(t *testing.T) {
	got := FromDocs("What is the return window for Beverages?", nil)
	if got.Present() {
		t.Fatalf("FromDocs = %+v, want absent", got)
	}
}

// --- citations ---

func TestCitations(t *testing.T) {
	got := Citations(
		[]string{"product_policy::chunk1", "marketing_calendar::chunk1", "product_policy::chunk1"},
		[]string{"Orders", "Order Details", ""},
	)
	want := []string{
		"Order Details",
		"Orders",
		"marketing_calendar::chunk1",
		"product_policy::chunk1",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Citations = %v, want %v", got, want)
	}
}

func TestCitationsEmptyIsNotNil(t *testing.T) {
	got := Citations(nil, nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("Citations = %#v, want empty non-nil slice", got)
	}
}

// --- synthesis ---

func TestSynthesizeFromDatabase(t *testing.T) {
	out := Synthesize(Input{
		Question: "How many orders in June 2017?",
		Format:   mustFormat(t, "int"),
		Route:    types.RouteStoreOnly,
		Rows:     [][]any{{int64(3)}},
		Success:  true,
		Tables:   []string{"Orders"},
	})

	if !out.Answer.Present() || out.Answer.Int != 3 {
		t.Fatalf("Answer = %+v, want 3", out.Answer)
	}
	if out.Confidence != ConfidenceHigh {
		t.Fatalf("Confidence = %v, want %v", out.Confidence, ConfidenceHigh)
	}
	if out.Explanation != "From database" {
		t.Fatalf("Explanation = %q", out.Explanation)
	}
	if !reflect.DeepEqual(out.Citations, []string{"Orders"}) {
		t.Fatalf("Citations = %v", out.Citations)
	}
}

func TestSynthesizeZeroCountIsStillAnAnswer(t *testing.T) {
	out := Synthesize(Input{
		Format:  mustFormat(t, "int"),
		Route:   types.RouteStoreOnly,
		Rows:    [][]any{{int64(0)}},
		Success: true,
	})

	if out.Confidence != ConfidenceHigh {
		t.Fatalf("Confidence = %v, want %v for a zero count", out.Confidence, ConfidenceHigh)
	}
	if out.Answer.Int != 0 || out.Answer.Kind != types.AnswerInt {
		t.Fatalf("Answer = %+v, want int 0", out.Answer)
	}
}

func TestSynthesizeFromDocs(t *testing.T) {
	out := Synthesize(Input{
		Question: "What is the return window for unopened Beverages?",
		Format:   mustFormat(t, "int"),
		Route:    types.RouteDocOnly,
		Chunks:   policyChunks(),
		DocIDs:   []string{"product_policy::chunk1"},
	})

	if out.Answer.Int != 14 {
		t.Fatalf("Answer = %+v, want 14", out.Answer)
	}
	if out.Explanation != "From docs" {
		t.Fatalf("Explanation = %q", out.Explanation)
	}
	if out.Confidence != ConfidenceHigh {
		t.Fatalf("Confidence = %v", out.Confidence)
	}
	if !reflect.DeepEqual(out.Citations, []string{"product_policy::chunk1"}) {
		t.Fatalf("Citations = %v", out.Citations)
	}
}

func TestSynthesizeDocMissExplainsFromDocs(t *testing.T) {
	out := Synthesize(Input{
		Question: "What is the return window for seafood?",
		Format:   mustFormat(t, "int"),
		Route:    types.RouteDocOnly,
		Chunks:   policyChunks(),
		DocIDs:   []string{"product_policy::chunk1"},
	})

	if out.Answer.Present() {
		t.Fatalf("Answer = %+v, want absent", out.Answer)
	}
	if out.Confidence != ConfidenceLow {
		t.Fatalf("Confidence = %v, want %v", out.Confidence, ConfidenceLow)
	}
	if out.Explanation != "From docs" {
		t.Fatalf("Explanation = %q", out.Explanation)
	}
}

func TestSynthesizeExecutionFailure(t *testing.T) {
	out := Synthesize(Input{
		Format:  mustFormat(t, "float"),
		Route:   types.RouteStoreOnly,
		Success: false,
		LastErr: "no such table: Invoices",
		Tables:  []string{"Orders"},
	})

	if out.Answer.Present() {
		t.Fatalf("Answer = %+v, want absent", out.Answer)
	}
	if out.Explanation != "Failed: no such table: Invoices" {
		t.Fatalf("Explanation = %q", out.Explanation)
	}
	if out.Confidence != ConfidenceLow {
		t.Fatalf("Confidence = %v, want %v", out.Confidence, ConfidenceLow)
	}
}

func TestSynthesizeUnknownFailure(t *testing.T) {
	out := Synthesize(Input{
		Format:  mustFormat(t, "int"),
		Route:   types.RouteBoth,
		Success: true,
		Rows:    [][]any{{"not a number"}},
	})

	if out.Explanation != "Failed: Unknown" {
		t.Fatalf("Explanation = %q", out.Explanation)
	}
	if out.Confidence != ConfidenceLow {
		t.Fatalf("Confidence = %v", out.Confidence)
	}
}
