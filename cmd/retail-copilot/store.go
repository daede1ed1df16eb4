// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/retail-copilot/internal/store"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect and query the sales database",
	Long: `Store works directly with the sales SQLite database. Use subcommands to
print the schema briefing, summarize the data, validate a query without
running it, or run a SELECT statement.`,
}

// --- schema subcommand ---

var storeSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the schema briefing used for query generation",
	Long: `Schema prints the database description handed to the generative model:
tables, columns, foreign keys, and the query patterns that matter for
this schema (identifier quoting, date handling, the revenue formula).`,
	RunE: runStoreSchema,
}

func runStoreSchema(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	text, err := st.SchemaDescription(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

// --- inspect subcommand ---

var storeInspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Summarize the analytic tables",
	Long: `Inspect reports row counts for the analytic tables, the span of order
dates, and the order years present in the database.`,
	RunE: runStoreInspect,
}

func runStoreInspect(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	counts, err := st.Counts(ctx)
	if err != nil {
		return err
	}
	first, last, err := st.DateRange(ctx)
	if err != nil {
		return err
	}
	years, err := st.AvailableYears(ctx)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		tables := make(map[string]int64, len(counts))
		for _, c := range counts {
			tables[c.Name] = c.Count
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"tables":      tables,
			"first_order": first,
			"last_order":  last,
			"years":       years,
		})
	}

	fmt.Fprintf(os.Stdout, "%-16s  %s\n", "Table", "Rows")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 26))
	for _, c := range counts {
		fmt.Fprintf(os.Stdout, "%-16s  %d\n", c.Name, c.Count)
	}
	fmt.Fprintf(os.Stdout, "\nOrders span %s to %s; years %v\n", first, last, years)
	return nil
}

// --- query subcommand ---

var storeQueryCmd = &cobra.Command{
	Use:   "query [sql]",
	Short: "Run a SELECT statement against the database",
	Long: `Query runs a SELECT statement and prints the result as a table or as
JSON. Common small mistakes (an unquoted Order Details, YEAR() instead
of strftime) are fixed automatically, the same way the answering
workflow fixes them.`,
	RunE: runStoreQuery,
}

func runStoreQuery(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide a SELECT statement to run")
	}

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	res := st.Execute(cmd.Context(), strings.Join(args, " "))
	if !res.Success {
		return fmt.Errorf("query failed: %s", res.Err)
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return store.FormatJSON(res, os.Stdout)
	}
	store.FormatTable(res, os.Stdout)
	return nil
}

// --- check subcommand ---

var storeCheckCmd = &cobra.Command{
	Use:   "check [sql]",
	Short: "Validate a query without running it",
	Long: `Check plans a query with EXPLAIN QUERY PLAN and prints the plan. A query
that fails to plan is reported with the database error.`,
	RunE: runStoreCheck,
}

func runStoreCheck(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide a SELECT statement to check")
	}

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	plan, issues := st.CheckQuery(cmd.Context(), strings.Join(args, " "))
	if len(issues) > 0 {
		for _, issue := range issues {
			fmt.Fprintln(os.Stderr, issue)
		}
		return fmt.Errorf("query failed validation")
	}
	for _, line := range plan {
		fmt.Println(line)
	}
	return nil
}

// --- shared helpers ---

func openStore(cmd *cobra.Command) (*store.Store, error) {
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, err
	}
	cfg := pipelineConfig(cmd)
	return store.Open(cfg.Store.DBPath, logger)
}

func init() {
	storeQueryCmd.Flags().Bool("json", false, "output the result as JSON")
	storeInspectCmd.Flags().Bool("json", false, "output the summary as JSON")

	storeCmd.AddCommand(storeSchemaCmd)
	storeCmd.AddCommand(storeInspectCmd)
	storeCmd.AddCommand(storeQueryCmd)
	storeCmd.AddCommand(storeCheckCmd)

	rootCmd.AddCommand(storeCmd)
}
