// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Route labels which evidence sources a question needs.
type Route string

const (
	// RouteDocOnly answers from policy and marketing documents alone.
	RouteDocOnly Route = "doc-only"

	// RouteStoreOnly answers from the sales database alone.
	RouteStoreOnly Route = "store-only"

	// RouteBoth consults documents to ground dates and definitions,
	// then queries the database.
	RouteBoth Route = "both"
)

// Valid reports whether r is one of the three recognized route labels.
func (r Route) Valid() bool {
	return r == RouteDocOnly || r == RouteStoreOnly || r == RouteBoth
}

// EvidenceChunk is one scored paragraph returned by the document
// retriever.
type EvidenceChunk struct {
	// ID identifies the chunk as "<source>::chunk<n>".
	ID string `json:"id" yaml:"id"`

	// Content is the paragraph text.
	Content string `json:"content" yaml:"content"`

	// Source is the originating document name without extension.
	Source string `json:"source" yaml:"source"`

	// Score is the cosine similarity against the query. Higher is more
	// relevant; zero means no term overlap.
	Score float64 `json:"score" yaml:"score"`
}

// ConstraintKind categorizes a constraint token extracted from
// evidence text.
type ConstraintKind string

const (
	ConstraintDateStart  ConstraintKind = "date-range-start"
	ConstraintDateEnd    ConstraintKind = "date-range-end"
	ConstraintCategory   ConstraintKind = "category"
	ConstraintMetricHint ConstraintKind = "metric-hint"
)

// ConstraintToken is a typed, normalized fact extracted from an
// evidence chunk. Tokens are collected in discovery order and never
// deduplicated at extraction time; redundant date pairs are resolved
// later against the campaign calendar.
type ConstraintToken struct {
	Kind  ConstraintKind `json:"kind" yaml:"kind"`
	Value string         `json:"value" yaml:"value"`
}
