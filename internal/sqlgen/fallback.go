// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sqlgen

import (
	"fmt"
	"strings"

	"github.com/pdiddy/retail-copilot/pkg/types"
)

// BuildInstructions derives the mechanical briefing for the generative
// fallback: exact filter clauses from the constraint tokens, the
// arithmetic formula the question calls for, and the dialect rules the
// model most often breaks. Earlier failure text is appended so a
// regeneration attempt can steer away from it.
func BuildInstructions(question string, tokens []types.ConstraintToken, prevErrors []string) string {
	lower := strings.ToLower(question)
	var parts []string

	if start, end, ok := datePair(tokens); ok {
		parts = append(parts, fmt.Sprintf(
			"Filter by date range: WHERE date(o.OrderDate) BETWEEN '%s' AND '%s'", start, end))
	}

	if cats := categoryTokens(tokens); len(cats) > 0 {
		parts = append(parts, fmt.Sprintf(
			"Filter categories: WHERE c.CategoryName IN ('%s')", strings.Join(cats, "', '")))
	}

	if strings.Contains(lower, "revenue") {
		parts = append(parts,
			"Calculate revenue: SUM(od.UnitPrice * od.Quantity * (1 - od.Discount))",
			`Join path: "Order Details" od JOIN Products p JOIN Categories c JOIN Orders o`)
	}
	if strings.Contains(lower, "aov") || strings.Contains(lower, "average order value") ||
		hasMetric(tokens, "AOV") {
		parts = append(parts,
			"Calculate AOV: SUM(od.UnitPrice * od.Quantity * (1 - od.Discount)) / COUNT(DISTINCT o.OrderID)")
	}
	if strings.Contains(lower, "margin") || hasMetric(tokens, "GrossMargin") {
		parts = append(parts,
			"Calculate margin: SUM((od.UnitPrice * 0.3) * od.Quantity * (1 - od.Discount))",
			"Profit per item is UnitPrice * 30%; cost is the other 70%")
	}
	if strings.Contains(lower, "quantity") || strings.Contains(lower, "units") {
		parts = append(parts, "Sum quantities: SUM(od.Quantity)")
	}
	if strings.Contains(lower, "top 3") {
		parts = append(parts, "Return the top 3: ORDER BY the metric DESC LIMIT 3")
	}

	parts = append(parts,
		`CRITICAL: always quote "Order Details"`,
		"CRITICAL: wrap date comparisons in date()",
		"CRITICAL: JOIN Orders o ON od.OrderID = o.OrderID before filtering on o.OrderDate")

	for _, e := range prevErrors {
		parts = append(parts, "Previous attempt failed with: "+e)
	}

	return strings.Join(parts, " | ")
}

// categoryTokens returns the distinct category token values in
// discovery order.
func categoryTokens(tokens []types.ConstraintToken) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range tokens {
		if t.Kind == types.ConstraintCategory && !seen[t.Value] {
			seen[t.Value] = true
			out = append(out, t.Value)
		}
	}
	return out
}

func hasMetric(tokens []types.ConstraintToken, metric string) bool {
	for _, t := range tokens {
		if t.Kind == types.ConstraintMetricHint && t.Value == metric {
			return true
		}
	}
	return false
}
