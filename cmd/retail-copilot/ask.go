package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pdiddy/retail-copilot/pkg/types"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question",
	Long: `Ask answers one natural-language question against the document corpus
and the sales database, printing the result record as indented JSON on
stdout. With --trace the workflow stages go to stderr.`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().String("format", "int", "format hint: int, float, {name:type, ...}, or list[{...}]")
	askCmd.Flags().String("id", "", "question ID for the result record (default: generated)")
	askCmd.Flags().Bool("trace", false, "print the workflow trace to stderr")
	askCmd.Flags().String("model", "", "model identifier for routing and query generation")
	askCmd.Flags().String("base-url", "", "model server base URL")
	askCmd.Flags().String("calendar", "", "campaign calendar YAML (default: built-in)")
	askCmd.Flags().Bool("no-model", false, "disable the generative model; heuristics and templates only")

	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide a question to answer")
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

	id, _ := cmd.Flags().GetString("id")
	if id == "" {
		id = uuid.NewString()
	}
	formatHint, _ := cmd.Flags().GetString("format")

	rec, trace := engine.Run(cmd.Context(), types.Question{
		ID:         id,
		Text:       strings.Join(args, " "),
		FormatHint: formatHint,
	})

	if showTrace, _ := cmd.Flags().GetBool("trace"); showTrace {
		for _, line := range trace {
			fmt.Fprintln(os.Stderr, line)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}
