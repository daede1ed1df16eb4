// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

// analyticTables are the tables reported by Counts, in display order.
var analyticTables = []string{
	"Categories", "Products", "Customers", "Orders", "Order Details",
}

// TableCount is one row-count entry from Counts.
type TableCount struct {
	Name  string
	Count int64
}

// Counts returns row counts for the core analytic tables. Tables
// missing from this database are skipped rather than reported as
// errors.
func (s *Store) Counts(ctx context.Context) ([]TableCount, error) {
	var out []TableCount
	for _, table := range analyticTables {
		var n int64
		err := s.db.QueryRowxContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %q", table)).Scan(&n)
		if err != nil {
			continue
		}
		out = append(out, TableCount{Name: table, Count: n})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no analytic tables found in %s", s.path)
	}
	return out, nil
}

// DateRange returns the earliest and latest order dates.
func (s *Store) DateRange(ctx context.Context) (first, last string, err error) {
	var lo, hi sql.NullString
	err = s.db.QueryRowxContext(ctx,
		`SELECT MIN(OrderDate), MAX(OrderDate) FROM Orders WHERE OrderDate IS NOT NULL`).Scan(&lo, &hi)
	if err != nil {
		return "", "", fmt.Errorf("reading order date range: %w", err)
	}
	return lo.String, hi.String, nil
}

// AvailableYears returns the distinct order years in ascending order.
func (s *Store) AvailableYears(ctx context.Context) ([]int, error) {
	rows, err := s.db.QueryxContext(ctx,
		`SELECT DISTINCT strftime('%Y', OrderDate) AS y FROM Orders WHERE OrderDate IS NOT NULL ORDER BY y`)
	if err != nil {
		return nil, fmt.Errorf("reading order years: %w", err)
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var y sql.NullString
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("scanning order year: %w", err)
		}
		if !y.Valid {
			continue
		}
		n, err := strconv.Atoi(y.String)
		if err != nil {
			continue
		}
		years = append(years, n)
	}
	return years, rows.Err()
}

// CheckQuery validates a query without running it, via EXPLAIN QUERY
// PLAN. It returns the plan lines and any issues; an empty issues list
// means the query is valid.
func (s *Store) CheckQuery(ctx context.Context, query string) (plan, issues []string) {
	rows, err := s.db.QueryxContext(ctx, "EXPLAIN QUERY PLAN "+query)
	if err != nil {
		return nil, []string{err.Error()}
	}
	defer rows.Close()

	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return plan, []string{err.Error()}
		}
		// Plan columns: id, parent, notused, detail.
		if len(vals) >= 4 {
			plan = append(plan, asString(vals[3]))
		}
	}
	if err := rows.Err(); err != nil {
		return plan, []string{err.Error()}
	}
	return plan, nil
}
