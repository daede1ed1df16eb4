// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// knownTables maps upper-cased query substrings to canonical table
// names, for provenance reporting.
var knownTables = []struct {
	pattern string
	name    string
}{
	{"ORDERS", "Orders"},
	{"ORDER DETAILS", "Order Details"},
	{`"ORDER DETAILS"`, "Order Details"},
	{"PRODUCTS", "Products"},
	{"CUSTOMERS", "Customers"},
	{"CATEGORIES", "Categories"},
	{"SUPPLIERS", "Suppliers"},
	{"EMPLOYEES", "Employees"},
	{"SHIPPERS", "Shippers"},
}

// TablesReferenced reports which known tables a query mentions, as a
// sorted, deduplicated list of canonical names. Substring matching is
// deliberate: it tolerates aliases, quoting, and casing without
// parsing SQL.
func (s *Store) TablesReferenced(query string) []string {
	upper := strings.ToUpper(query)
	seen := make(map[string]bool)
	for _, t := range knownTables {
		if strings.Contains(upper, t.pattern) {
			seen[t.name] = true
		}
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SchemaDescription returns a plain-text schema briefing used to
// prompt the generative fallback: per-table columns and foreign keys
// from the live database, framed by the dialect rules the model most
// often gets wrong. The text is built once and cached.
func (s *Store) SchemaDescription(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schemaText != "" {
		return s.schemaText, nil
	}

	var b strings.Builder
	b.WriteString("Database Schema:\n")
	b.WriteString("\nIMPORTANT NOTES:\n")
	b.WriteString("- Table \"Order Details\" has a space in its name and MUST be quoted\n")
	b.WriteString("- OrderDate is stored as text; wrap comparisons in date()\n")
	b.WriteString("- SQLite has no YEAR(); use strftime('%Y', OrderDate)\n")
	b.WriteString("- Revenue = SUM(od.UnitPrice * od.Quantity * (1 - od.Discount))\n")

	tables, err := s.tableNames(ctx)
	if err != nil {
		return "", err
	}

	for _, table := range tables {
		fmt.Fprintf(&b, "\nTable: %s\n", table)
		if err := s.describeColumns(ctx, &b, table); err != nil {
			return "", err
		}
		if err := s.describeForeignKeys(ctx, &b, table); err != nil {
			return "", err
		}
	}

	b.WriteString("\nCOMMON QUERY PATTERNS:\n")
	b.WriteString("- Join path: \"Order Details\" od JOIN Products p ON od.ProductID = p.ProductID JOIN Categories c ON p.CategoryID = c.CategoryID JOIN Orders o ON od.OrderID = o.OrderID\n")
	b.WriteString("- Date window: WHERE date(o.OrderDate) BETWEEN 'YYYY-MM-DD' AND 'YYYY-MM-DD'\n")
	b.WriteString("- Order year: strftime('%Y', o.OrderDate) = 'YYYY'\n")

	s.schemaText = b.String()
	return s.schemaText, nil
}

func (s *Store) tableNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryxContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) describeColumns(ctx context.Context, b *strings.Builder, table string) error {
	rows, err := s.db.QueryxContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return fmt.Errorf("describing %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return fmt.Errorf("scanning column info for %s: %w", table, err)
		}
		// table_info columns: cid, name, type, notnull, dflt_value, pk.
		line := fmt.Sprintf("  - %s: %s", asString(vals[1]), asString(vals[2]))
		if asInt(vals[5]) > 0 {
			line += " (PRIMARY KEY)"
		}
		b.WriteString(line + "\n")
	}
	return rows.Err()
}

func (s *Store) describeForeignKeys(ctx context.Context, b *strings.Builder, table string) error {
	rows, err := s.db.QueryxContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%q)", table))
	if err != nil {
		return fmt.Errorf("listing foreign keys for %s: %w", table, err)
	}
	defer rows.Close()

	wroteHeader := false
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return fmt.Errorf("scanning foreign key for %s: %w", table, err)
		}
		if !wroteHeader {
			b.WriteString("  Foreign keys:\n")
			wroteHeader = true
		}
		// foreign_key_list columns: id, seq, table, from, to, ...
		fmt.Fprintf(b, "    - %s -> %s(%s)\n", asString(vals[3]), asString(vals[2]), asString(vals[4]))
	}
	return rows.Err()
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func asInt(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case []byte:
		var n int64
		fmt.Sscanf(string(x), "%d", &n)
		return n
	}
	return 0
}
