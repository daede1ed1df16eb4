// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sqlgen turns a question plus constraint tokens into SQLite
// query text. A fixed template tier handles the recurring analytic
// questions deterministically; everything else falls back to the
// generative model, whose output is normalized by a repair pass before
// execution.
package sqlgen

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/retail-copilot/pkg/types"
)

// Source labels how query text was produced.
type Source string

const (
	// SourceTemplate means a deterministic template rule matched.
	SourceTemplate Source = "template"

	// SourceGenerated means the generative fallback produced the text.
	SourceGenerated Source = "generated"

	// SourcePlaceholder means generation failed and the trivial
	// placeholder was substituted.
	SourcePlaceholder Source = "placeholder"
)

// PlaceholderSQL runs when generation fails entirely, so the workflow
// reaches answer synthesis with a recorded error instead of aborting.
const PlaceholderSQL = "SELECT 1"

// Generator is the generative collaborator consulted when no template
// rule matches.
type Generator interface {
	GenerateQuery(ctx context.Context, question, schema, constraints string) (string, error)
}

// SchemaSource supplies the schema briefing for fallback prompts.
type SchemaSource interface {
	SchemaDescription(ctx context.Context) (string, error)
}

// Result is the synthesizer's output. Err is non-empty only when the
// placeholder was substituted.
type Result struct {
	SQL    string
	Source Source
	Err    string
}

// Synthesizer maps questions to query text.
type Synthesizer struct {
	generator Generator
	schema    SchemaSource
	logger    *zap.Logger
}

// New creates a synthesizer. generator and schema may be nil, in which
// case only the template tier is available.
func New(generator Generator, schema SchemaSource, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{generator: generator, schema: schema, logger: logger}
}

// Synthesize produces query text for the question. Template rules are
// tried first; the generative fallback runs otherwise, and its output
// always passes through Clean. prevErrors carries the error text of
// earlier failed attempts so regeneration can steer away from them.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, tokens []types.ConstraintToken, prevErrors []string) Result {
	if sql, ok := FromTemplate(question, tokens); ok {
		s.logger.Debug("template rule matched", zap.String("question", question))
		return Result{SQL: sql, Source: SourceTemplate}
	}

	if s.generator == nil {
		return Result{
			SQL:    PlaceholderSQL,
			Source: SourcePlaceholder,
			Err:    "query generation failed: no generator configured",
		}
	}

	schema := ""
	if s.schema != nil {
		text, err := s.schema.SchemaDescription(ctx)
		if err != nil {
			s.logger.Debug("schema briefing unavailable", zap.Error(err))
			return Result{
				SQL:    PlaceholderSQL,
				Source: SourcePlaceholder,
				Err:    "query generation failed: " + err.Error(),
			}
		}
		schema = text
	}

	raw, err := s.generator.GenerateQuery(ctx, question, schema, BuildInstructions(question, tokens, prevErrors))
	if err != nil {
		s.logger.Debug("fallback generation failed", zap.Error(err))
		return Result{
			SQL:    PlaceholderSQL,
			Source: SourcePlaceholder,
			Err:    "query generation failed: " + err.Error(),
		}
	}
	return Result{SQL: Clean(raw, tokens), Source: SourceGenerated}
}

// categoryCatalog lists every product category in the store, checked
// case-insensitively against question text. Wider than the extraction
// vocabulary on purpose: a question can name a category the documents
// never mention.
var categoryCatalog = []string{
	"Beverages", "Condiments", "Confections", "Dairy Products",
	"Grains/Cereals", "Meat/Poultry", "Produce", "Seafood",
}

var yearInQuestion = regexp.MustCompile(`20\d{2}`)

// FromTemplate returns query text when one of the fixed template rules
// matches, testing rules in priority order. Later rules share trigger
// words with earlier ones, so the order is authoritative.
func FromTemplate(question string, tokens []types.ConstraintToken) (string, bool) {
	lower := strings.ToLower(question)
	start, end, haveDates := datePair(tokens)

	// Highest-quantity category over a constrained window.
	if strings.Contains(lower, "category") && strings.Contains(lower, "quantity") &&
		strings.Contains(lower, "highest") && haveDates {
		return categoryQuantitySQL(start, end), true
	}

	// Average order value over a constrained window.
	if (strings.Contains(lower, "aov") || strings.Contains(lower, "average order value")) && haveDates {
		return aovSQL(start, end), true
	}

	// Top three products by all-time revenue.
	if strings.Contains(lower, "top 3") && strings.Contains(lower, "product") &&
		strings.Contains(lower, "revenue") && strings.Contains(lower, "all-time") {
		return topProductsSQL(), true
	}

	// Revenue for a named category over a constrained window.
	if strings.Contains(lower, "revenue") && haveDates {
		for _, cat := range categoryCatalog {
			if strings.Contains(lower, strings.ToLower(cat)) {
				return categoryRevenueSQL(cat, start, end), true
			}
		}
	}

	// Highest-margin customer for a year named in the question.
	if strings.Contains(lower, "customer") && strings.Contains(lower, "margin") {
		if year := yearInQuestion.FindString(question); year != "" {
			return customerMarginSQL(year), true
		}
	}

	return "", false
}

// datePair returns the first start and end date tokens.
func datePair(tokens []types.ConstraintToken) (start, end string, ok bool) {
	for _, t := range tokens {
		switch {
		case t.Kind == types.ConstraintDateStart && start == "":
			start = t.Value
		case t.Kind == types.ConstraintDateEnd && end == "":
			end = t.Value
		}
	}
	return start, end, start != "" && end != ""
}

func categoryQuantitySQL(start, end string) string {
	return fmt.Sprintf(`SELECT c.CategoryName, SUM(od.Quantity) as TotalQuantity
FROM "Order Details" od
JOIN Products p ON od.ProductID = p.ProductID
JOIN Categories c ON p.CategoryID = c.CategoryID
JOIN Orders o ON od.OrderID = o.OrderID
WHERE date(o.OrderDate) BETWEEN '%s' AND '%s'
GROUP BY c.CategoryName
ORDER BY TotalQuantity DESC
LIMIT 1`, start, end)
}

func aovSQL(start, end string) string {
	return fmt.Sprintf(`SELECT ROUND(SUM(od.UnitPrice * od.Quantity * (1 - od.Discount)) / COUNT(DISTINCT o.OrderID), 2) as AOV
FROM Orders o
JOIN "Order Details" od ON o.OrderID = od.OrderID
WHERE date(o.OrderDate) BETWEEN '%s' AND '%s'`, start, end)
}

func topProductsSQL() string {
	return `SELECT p.ProductName, ROUND(SUM(od.UnitPrice * od.Quantity * (1 - od.Discount)), 2) as Revenue
FROM "Order Details" od
JOIN Products p ON od.ProductID = p.ProductID
GROUP BY p.ProductName
ORDER BY Revenue DESC
LIMIT 3`
}

func categoryRevenueSQL(category, start, end string) string {
	return fmt.Sprintf(`SELECT ROUND(SUM(od.UnitPrice * od.Quantity * (1 - od.Discount)), 2) as Revenue
FROM "Order Details" od
JOIN Products p ON od.ProductID = p.ProductID
JOIN Categories c ON p.CategoryID = c.CategoryID
JOIN Orders o ON od.OrderID = o.OrderID
WHERE c.CategoryName = '%s'
  AND date(o.OrderDate) BETWEEN '%s' AND '%s'`, category, start, end)
}

func customerMarginSQL(year string) string {
	return fmt.Sprintf(`SELECT cu.CompanyName, ROUND(SUM((od.UnitPrice * 0.3) * od.Quantity * (1 - od.Discount)), 2) as GrossMargin
FROM "Order Details" od
JOIN Orders o ON od.OrderID = o.OrderID
JOIN Customers cu ON o.CustomerID = cu.CustomerID
WHERE strftime('%%Y', o.OrderDate) = '%s'
GROUP BY cu.CompanyName
ORDER BY GrossMargin DESC
LIMIT 1`, year)
}
