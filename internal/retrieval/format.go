// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieval

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/retail-copilot/pkg/types"
)

// FormatTable writes chunks as a human-readable table.
func FormatTable(chunks []types.EvidenceChunk, w io.Writer) {
	if len(chunks) == 0 {
		fmt.Fprintln(w, "No chunks found.")
		return
	}

	fmt.Fprintf(w, "%-4s %-28s %-7s %s\n", "#", "ID", "Score", "Content")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for i, chunk := range chunks {
		fmt.Fprintf(w, "%-4d %-28s %-7.3f %s\n",
			i+1, truncate(chunk.ID, 28), chunk.Score, truncate(flatten(chunk.Content), 68))
	}
	fmt.Fprintf(w, "\n%d chunks\n", len(chunks))
}

// FormatJSON writes chunks as indented JSON.
func FormatJSON(chunks []types.EvidenceChunk, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(chunks)
}

// truncate shortens s to max characters, appending "..." when cut.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

// flatten collapses newlines so a chunk fits on one table row.
func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
