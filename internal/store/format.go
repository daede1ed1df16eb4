// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// FormatTable writes a query result as a human-readable table.
func FormatTable(res QueryResult, w io.Writer) {
	if !res.Success {
		fmt.Fprintf(w, "Query failed: %s\n", res.Err)
		return
	}
	if res.RowCount == 0 {
		fmt.Fprintln(w, "No rows.")
		return
	}

	for _, col := range res.Columns {
		fmt.Fprintf(w, "%-24s ", truncateCell(col))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 25*len(res.Columns)))

	for _, row := range res.Rows {
		for _, val := range row {
			fmt.Fprintf(w, "%-24s ", truncateCell(formatCell(val)))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "\n%d rows\n", res.RowCount)
}

// FormatJSON writes a query result as indented JSON.
func FormatJSON(res QueryResult, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Columns  []string `json:"columns"`
		Rows     [][]any  `json:"rows"`
		RowCount int      `json:"row_count"`
	}{res.Columns, res.Rows, res.RowCount})
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case float64:
		return fmt.Sprintf("%.2f", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func truncateCell(s string) string {
	if len(s) <= 24 {
		return s
	}
	return s[:21] + "..."
}
