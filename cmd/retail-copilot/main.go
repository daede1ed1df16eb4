// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the retail-copilot CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/retail-copilot/internal/agent"
	"github.com/pdiddy/retail-copilot/internal/constraint"
	"github.com/pdiddy/retail-copilot/internal/llm"
	"github.com/pdiddy/retail-copilot/internal/retrieval"
	"github.com/pdiddy/retail-copilot/internal/route"
	"github.com/pdiddy/retail-copilot/internal/secrets"
	"github.com/pdiddy/retail-copilot/internal/sqlgen"
	"github.com/pdiddy/retail-copilot/internal/store"
	"github.com/pdiddy/retail-copilot/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// secretDefault returns fallback if non-empty, otherwise the named
// secret.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	return loadedSecrets.Get(key)
}

// rootCmd is the base command for the retail-copilot CLI.
var rootCmd = &cobra.Command{
	Use:   "retail-copilot",
	Short: "Question answering over retail policy docs and the sales database",
	Long: `retail-copilot answers retail-analytics questions by combining policy and
marketing documents with the Northwind-style sales database. Questions are
routed to the right evidence source, grounded with campaign dates from the
documents, answered with SQL, and returned as typed records with citations.

Use ask for a single question, batch for a JSONL file of questions, and
store / docs to inspect the underlying data.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./retail-copilot.yaml or ~/.config/retail-copilot/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
	rootCmd.PersistentFlags().String("docs-dir", "", "directory of Markdown policy and marketing docs (default: docs)")
	rootCmd.PersistentFlags().String("db", "", "path to the sales SQLite database (default: data/northwind.sqlite)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("retail-copilot")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "retail-copilot"))
		}
	}

	viper.SetEnvPrefix("RETAIL_COPILOT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the command logger: human-readable debug output
// with --verbose, silent otherwise.
func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewNop(), nil
}

// pipelineConfig assembles the pipeline configuration: flags win over
// config-file values, which win over built-in defaults.
func pipelineConfig(cmd *cobra.Command) types.PipelineConfig {
	docsDir, _ := cmd.Flags().GetString("docs-dir")
	if docsDir == "" {
		docsDir = viper.GetString("docs_dir")
	}
	if docsDir == "" {
		docsDir = "docs"
	}

	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		dbPath = viper.GetString("db_path")
	}
	if dbPath == "" {
		dbPath = filepath.Join("data", "northwind.sqlite")
	}

	topK := viper.GetInt("top_k")
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}

	maxRepairs := agent.DefaultMaxRepairs
	if viper.IsSet("max_repairs") {
		maxRepairs = viper.GetInt("max_repairs")
	}

	return types.PipelineConfig{
		Retrieval: types.RetrievalConfig{DocsDir: docsDir, TopK: topK},
		Store:     types.StoreConfig{DBPath: dbPath},
		AI: types.AIConfig{
			HTTPConfig: types.HTTPConfig{Timeout: viper.GetDuration("model_timeout")},
			Model:      viper.GetString("model"),
			BaseURL:    viper.GetString("base_url"),
			APIKey:     secretDefault("model-api-key", viper.GetString("api_key")),
			MaxRetries: viper.GetInt("max_retries"),
		},
		Agent: types.AgentConfig{
			MaxRepairs:   maxRepairs,
			CalendarPath: viper.GetString("calendar"),
			Workers:      viper.GetInt("workers"),
		},
	}
}

// buildEngine wires the full workflow for the ask and batch commands.
// The returned cleanup closes the database.
func buildEngine(cmd *cobra.Command, logger *zap.Logger) (*agent.Engine, func() error, error) {
	cfg := pipelineConfig(cmd)
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		cfg.AI.Model = model
	}
	if baseURL, _ := cmd.Flags().GetString("base-url"); baseURL != "" {
		cfg.AI.BaseURL = baseURL
	}
	if calPath, _ := cmd.Flags().GetString("calendar"); calPath != "" {
		cfg.Agent.CalendarPath = calPath
	}

	st, err := store.Open(cfg.Store.DBPath, logger)
	if err != nil {
		return nil, nil, err
	}

	cal, err := constraint.LoadCalendar(cfg.Agent.CalendarPath)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	// The document corpus is optional: without it every question is
	// answered from the database alone.
	var retriever agent.Retriever
	if idx, err := retrieval.Open(cfg.Retrieval); err != nil {
		fmt.Fprintf(os.Stderr, "warning: document retrieval disabled: %v\n", err)
	} else {
		retriever = idx
	}

	var (
		fallback  route.Classifier
		generator sqlgen.Generator
	)
	if noModel, _ := cmd.Flags().GetBool("no-model"); !noModel {
		client := llm.New(cfg.AI, logger)
		fallback = client
		generator = client
	}

	engine, err := agent.New(agent.Options{
		Router:      route.New(fallback, logger),
		Retriever:   retriever,
		Executor:    st,
		Synthesizer: sqlgen.New(generator, st, logger),
		Calendar:    cal,
		TopK:        cfg.Retrieval.TopK,
		MaxRepairs:  cfg.Agent.MaxRepairs,
		Logger:      logger,
	})
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return engine, st.Close, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
