package types

import "time"

// HTTPConfig holds shared HTTP settings for components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "retail-copilot/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// RetrievalConfig holds settings for the document retriever.
type RetrievalConfig struct {
	// DocsDir is the directory of Markdown policy and marketing
	// documents indexed at startup.
	DocsDir string `json:"docs_dir" yaml:"docs_dir"`

	// TopK is the number of chunks returned per retrieval (default 5).
	TopK int `json:"top_k" yaml:"top_k"`
}

// StoreConfig holds settings for the relational store.
type StoreConfig struct {
	// DBPath is the SQLite database file (e.g. "data/northwind.sqlite").
	// Opening fails when the file does not exist.
	DBPath string `json:"db_path" yaml:"db_path"`
}

// AIConfig holds shared settings for calls to the generative model
// service.
type AIConfig struct {
	HTTPConfig `yaml:",inline"`

	// Model is the model identifier (e.g. "phi3.5:3.8b-mini-instruct-q4_K_M").
	Model string `json:"model" yaml:"model"`

	// BaseURL is the model server endpoint (default "http://localhost:11434").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// APIKey is an optional key sent as a bearer token. Local model
	// servers typically need none.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls
	// (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// AgentConfig holds settings for the orchestration engine.
type AgentConfig struct {
	// MaxRepairs caps repair attempts after an execution or validation
	// failure (default 2).
	MaxRepairs int `json:"max_repairs" yaml:"max_repairs"`

	// CalendarPath optionally overrides the built-in campaign calendar
	// with a YAML file.
	CalendarPath string `json:"calendar_path,omitempty" yaml:"calendar_path,omitempty"`

	// Workers is the batch concurrency level (default 1).
	Workers int `json:"workers" yaml:"workers"`
}

// PipelineConfig groups all component configurations.
type PipelineConfig struct {
	Retrieval RetrievalConfig `json:"retrieval" yaml:"retrieval"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	AI        AIConfig        `json:"ai" yaml:"ai"`
	Agent     AgentConfig     `json:"agent" yaml:"agent"`
}
