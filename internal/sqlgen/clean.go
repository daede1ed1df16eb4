// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sqlgen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/retail-copilot/pkg/types"
)

var (
	fencePattern       = regexp.MustCompile("```(?:sql)?\n?")
	quotedAliasPattern = regexp.MustCompile(`"([a-z])"\.`)

	// orderDetailsPattern swallows any quoting already present, so
	// requoting an already-quoted name cannot double the quotes.
	orderDetailsPattern = regexp.MustCompile(`(?i)["']?\bOrder\s+Details\b["']?`)

	commentPattern = regexp.MustCompile(`--[^\n]*`)

	// dateComparePattern wraps OrderDate comparisons in date(). The
	// closing parenthesis after an already-wrapped OrderDate stops the
	// pattern from matching again.
	dateComparePattern = regexp.MustCompile(`(?i)\b(\w+\.)?OrderDate\s+(BETWEEN|>=|<=|>|<|=)`)

	// dateRangePattern finds a wrapped, aliased BETWEEN window whose
	// bounds can be replaced with the constraint dates.
	dateRangePattern = regexp.MustCompile(`(?i)date\(\s*(\w+)\.OrderDate\s*\)\s+BETWEEN\s+'[^']*'\s+AND\s+'[^']*'`)
)

// betweenTypos lists BETWEEN misspellings observed in small-model
// output.
var betweenTypos = []string{"BETWEWHEN", "BETWEWEN", "BETWEN", "BEWTEEN"}

// Clean normalizes generatively produced query text: markdown fences,
// leading prose, quoting mistakes, comment noise, a missing Orders
// join, and date-literal drift against the extracted constraints. The
// pass is pure text transformation and idempotent; cleaning clean SQL
// returns it unchanged.
func Clean(sql string, tokens []types.ConstraintToken) string {
	sql = fencePattern.ReplaceAllString(sql, "")
	sql = strings.TrimSpace(sql)

	// Drop any prose before the first SELECT.
	if idx := strings.Index(strings.ToUpper(sql), "SELECT"); idx > 0 {
		sql = sql[idx:]
	}

	for _, typo := range betweenTypos {
		sql = strings.ReplaceAll(sql, typo, "BETWEEN")
	}

	sql = strings.ReplaceAll(sql, `"""`, `"`)
	sql = strings.ReplaceAll(sql, `'''`, `'`)
	sql = quotedAliasPattern.ReplaceAllString(sql, "$1.")
	sql = orderDetailsPattern.ReplaceAllString(sql, `"Order Details"`)
	sql = commentPattern.ReplaceAllString(sql, "")

	// A SELECT with no FROM cannot run; recover the only table we can
	// infer.
	upper := strings.ToUpper(sql)
	if strings.Contains(upper, "SELECT") && !strings.Contains(upper, "FROM") &&
		strings.Contains(sql, `"Order Details"`) {
		sql = `SELECT * FROM "Order Details" od`
	}

	sql = injectOrdersJoin(sql)
	sql = dateComparePattern.ReplaceAllString(sql, "date(${1}OrderDate) ${2}")
	sql = rewriteDateRange(sql, tokens)

	sql = strings.TrimRight(strings.TrimSpace(sql), ";")
	return strings.TrimSpace(sql)
}

// injectOrdersJoin adds the Orders join when o.OrderDate is referenced
// without Orders being joined or selected from, immediately before the
// WHERE clause.
func injectOrdersJoin(sql string) string {
	if !strings.Contains(sql, "o.OrderDate") ||
		strings.Contains(sql, "JOIN Orders") || strings.Contains(sql, "FROM Orders") {
		return sql
	}
	wherePos := strings.Index(strings.ToUpper(sql), "WHERE")
	if wherePos < 0 {
		return sql
	}
	before := strings.TrimRight(sql[:wherePos], " \t\n")
	return before + "\nJOIN Orders o ON od.OrderID = o.OrderID\n" + sql[wherePos:]
}

// rewriteDateRange replaces the bounds of the first wrapped BETWEEN
// window with the extracted constraint dates. Only the first window is
// rewritten; later windows may be deliberate subqueries.
func rewriteDateRange(sql string, tokens []types.ConstraintToken) string {
	start, end, ok := datePair(tokens)
	if !ok {
		return sql
	}
	loc := dateRangePattern.FindStringSubmatchIndex(sql)
	if loc == nil {
		return sql
	}
	alias := sql[loc[2]:loc[3]]
	replacement := fmt.Sprintf("date(%s.OrderDate) BETWEEN '%s' AND '%s'", alias, start, end)
	return sql[:loc[0]] + replacement + sql[loc[1]:]
}
