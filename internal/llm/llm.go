// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm calls the generative model service used as a routing and
// SQL-generation fallback. The service is assumed unreliable: every
// method can fail, and callers must treat failure as a non-match
// rather than an abort.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/retail-copilot/internal/httputil"
	"github.com/pdiddy/retail-copilot/pkg/types"
)

const (
	defaultBaseURL    = "http://localhost:11434"
	defaultModel      = "phi3.5:3.8b-mini-instruct-q4_K_M"
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3

	// rateLimitRetries bounds 429 backoff within a single attempt;
	// the outer retry loop handles every other failure.
	rateLimitRetries = 2

	// Generation is kept near-deterministic and short: the callers
	// want a label or a single SELECT statement, not prose.
	generateTemperature = 0.1
	generateMaxTokens   = 500
)

// backoffBase is the base delay for exponential backoff between
// retries. Tests override this to avoid real sleeps.
var backoffBase = time.Second

// Client talks to an Ollama-style generate endpoint.
type Client struct {
	cfg    types.AIConfig
	client *http.Client
	logger *zap.Logger
}

// New creates a client, applying defaults for unset config fields.
func New(cfg types.AIConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// generate performs one bounded, retried completion call.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			c.logger.Debug("retrying model call",
				zap.Int("attempt", attempt), zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		out, err := c.doGenerate(ctx, prompt)
		if err == nil {
			return out, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("model call failed after %d retries: %w", c.cfg.MaxRetries, lastErr)
}

func (c *Client) doGenerate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: generateTemperature,
			NumPredict:  generateMaxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, c.client, req, rateLimitRetries)
	if err != nil {
		return "", fmt.Errorf("calling model server: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model server returned %d: %s", resp.StatusCode, truncateErr(data))
	}

	var out generateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if strings.TrimSpace(out.Response) == "" {
		return "", fmt.Errorf("model returned an empty response")
	}
	return out.Response, nil
}

// Classify asks the model to label a question's evidence needs. The
// returned label is trimmed and lowercased but not validated; the
// router discards labels it does not recognize.
func (c *Client) Classify(ctx context.Context, question string) (string, error) {
	prompt, err := renderPrompt(routePrompt, routeVars{Question: question})
	if err != nil {
		return "", err
	}
	out, err := c.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(out)), nil
}

// GenerateQuery asks the model for a single SELECT statement. The raw
// completion is returned untouched; the caller owns cleanup.
func (c *Client) GenerateQuery(ctx context.Context, question, schema, constraints string) (string, error) {
	prompt, err := renderPrompt(sqlPrompt, sqlVars{
		Question:    question,
		Schema:      schema,
		Constraints: constraints,
	})
	if err != nil {
		return "", err
	}
	return c.generate(ctx, prompt)
}

func truncateErr(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
