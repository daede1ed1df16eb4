// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store executes analytic SQL against the retail SQLite
// database. Execution never panics and never returns a Go error to the
// workflow: every call produces a QueryResult whose Err field carries
// the failure text, so the engine can feed it back into query repair.
package store

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// maxAutoFix caps syntax-level retries inside a single Execute call.
const maxAutoFix = 1

// Store wraps the SQLite database. Safe for concurrent readers.
type Store struct {
	db     *sqlx.DB
	path   string
	logger *zap.Logger

	mu         sync.Mutex
	schemaText string
}

// Open opens an existing SQLite database. It fails when the file does
// not exist rather than letting the driver create an empty one.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database not found at %s: %w", path, err)
	}

	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return &Store{db: db, path: path, logger: logger}, nil
}

// newWithDB wraps an already-open connection. Used by tests to inject
// a mock driver.
func newWithDB(db *sqlx.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}
}

// Close releases the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// QueryResult is the outcome of one Execute call.
type QueryResult struct {
	// Success is true when the query ran without error.
	Success bool

	// Columns are the result column names, empty on failure.
	Columns []string

	// Rows holds the result values; cell types are int64, float64,
	// string, or nil.
	Rows [][]any

	// RowCount is len(Rows).
	RowCount int

	// Err is the database error text, empty on success.
	Err string

	// SQLUsed is the text that actually ran. It differs from the
	// submitted query only when an auto-fix retry succeeded.
	SQLUsed string
}

// Execute runs a query, retrying once with a syntax-level auto-fix
// when the error signature is recognized. Failures are reported in the
// result, never as a Go error.
func (s *Store) Execute(ctx context.Context, query string) QueryResult {
	submitted := query
	for attempt := 0; attempt <= maxAutoFix; attempt++ {
		cols, rows, err := s.run(ctx, query)
		if err == nil {
			return QueryResult{
				Success:  true,
				Columns:  cols,
				Rows:     rows,
				RowCount: len(rows),
				SQLUsed:  query,
			}
		}
		if attempt < maxAutoFix {
			if fixed := attemptFix(query, err.Error()); fixed != query {
				s.logger.Debug("retrying with auto-fixed query",
					zap.String("error", err.Error()))
				query = fixed
				continue
			}
		}
		return QueryResult{
			Success: false,
			Columns: []string{},
			Rows:    [][]any{},
			Err:     err.Error(),
			SQLUsed: submitted,
		}
	}
	return QueryResult{Success: false, Columns: []string{}, Rows: [][]any{}, Err: "retries exhausted", SQLUsed: submitted}
}

// run executes one query and materializes the result set.
func (s *Store) run(ctx context.Context, query string) ([]string, [][]any, error) {
	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	out := [][]any{}
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, nil, err
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return cols, out, nil
}

var (
	unquotedOrderDetails = regexp.MustCompile(`(?i)["']?\bOrder\s+Details\b["']?`)
	bareDateCompare      = regexp.MustCompile(`\b(\w+\.)?OrderDate\s*([<>=]+)\s*'(\d{4}-\d{2}-\d{2})`)
	yearFunction         = regexp.MustCompile(`(?i)YEAR\(([^)]+)\)`)
)

// attemptFix rewrites a failed query when the error matches one of the
// recognized signatures: the unquoted "Order Details" table name, text
// comparison against an unwrapped OrderDate, or a YEAR() call that
// SQLite does not have. Returns the query unchanged when nothing
// applies.
func attemptFix(query, errText string) string {
	lower := strings.ToLower(errText)

	if strings.Contains(lower, "no such table") && strings.Contains(lower, "order") {
		if fixed := unquotedOrderDetails.ReplaceAllString(query, `"Order Details"`); fixed != query {
			return fixed
		}
	}
	if strings.Contains(lower, "type") || strings.Contains(lower, "datatype") {
		if fixed := bareDateCompare.ReplaceAllString(query, `date(${1}OrderDate) ${2} '${3}`); fixed != query {
			return fixed
		}
	}
	if strings.Contains(lower, "year") || strings.Contains(lower, "no such function") {
		if fixed := yearFunction.ReplaceAllString(query, `strftime('%Y', $1)`); fixed != query {
			return fixed
		}
	}
	return query
}
