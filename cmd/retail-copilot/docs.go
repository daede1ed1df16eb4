package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/retail-copilot/internal/retrieval"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Search and inspect the document corpus",
	Long: `Docs works with the Markdown policy and marketing documents. Use search
to run the same retrieval the answering workflow uses, and chunks to
list the indexed paragraphs.`,
}

// --- search subcommand ---

var docsSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Retrieve the chunks most relevant to a query",
	RunE:  runDocsSearch,
}

func runDocsSearch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide a search query")
	}

	idx, err := openIndex(cmd)
	if err != nil {
		return err
	}

	topK, _ := cmd.Flags().GetInt("top-k")
	chunks := idx.Retrieve(strings.Join(args, " "), topK)

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return retrieval.FormatJSON(chunks, os.Stdout)
	}
	retrieval.FormatTable(chunks, os.Stdout)
	return nil
}

// --- chunks subcommand ---

var docsChunksCmd = &cobra.Command{
	Use:   "chunks",
	Short: "List every indexed document chunk",
	RunE:  runDocsChunks,
}

func runDocsChunks(cmd *cobra.Command, args []string) error {
	idx, err := openIndex(cmd)
	if err != nil {
		return err
	}

	chunks := idx.Chunks()
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return retrieval.FormatJSON(chunks, os.Stdout)
	}
	retrieval.FormatTable(chunks, os.Stdout)
	return nil
}

// --- shared helpers ---

func openIndex(cmd *cobra.Command) (*retrieval.Index, error) {
	return retrieval.Open(pipelineConfig(cmd).Retrieval)
}

func init() {
	docsSearchCmd.Flags().Int("top-k", 0, "number of chunks to return (default 5)")
	docsSearchCmd.Flags().Bool("json", false, "output chunks as JSON")
	docsChunksCmd.Flags().Bool("json", false, "output chunks as JSON")

	docsCmd.AddCommand(docsSearchCmd)
	docsCmd.AddCommand(docsChunksCmd)

	rootCmd.AddCommand(docsCmd)
}
