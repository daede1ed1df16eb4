package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/retail-copilot/internal/agent"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Answer a JSONL file of questions",
	Long: `Batch reads one JSON question per line from --input, answers them on a
pool of workers, and writes one JSON result per line to --output in the
input order. Per-question progress goes to stderr.`,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().String("input", "", "JSONL file of questions (required)")
	batchCmd.Flags().String("output", "", "JSONL file for result records (required)")
	batchCmd.Flags().Int("workers", 0, "concurrent questions (default 1)")
	batchCmd.Flags().String("model", "", "model identifier for routing and query generation")
	batchCmd.Flags().String("base-url", "", "model server base URL")
	batchCmd.Flags().String("calendar", "", "campaign calendar YAML (default: built-in)")
	batchCmd.Flags().Bool("no-model", false, "disable the generative model; heuristics and templates only")

	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	inPath, _ := cmd.Flags().GetString("input")
	outPath, _ := cmd.Flags().GetString("output")
	if inPath == "" || outPath == "" {
		return fmt.Errorf("--input and --output are required")
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	engine, cleanup, err := buildEngine(cmd, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	workers, _ := cmd.Flags().GetInt("workers")
	if workers == 0 {
		workers = pipelineConfig(cmd).Agent.Workers
	}
	if workers < 1 {
		workers = 1
	}

	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}

	sum, err := agent.RunBatch(cmd.Context(), engine, in, out, os.Stderr, workers)
	if err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}

	if sum.Failed > 0 {
		return fmt.Errorf("%d question(s) failed", sum.Failed)
	}
	return nil
}
