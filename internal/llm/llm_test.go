package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pdiddy/retail-copilot/internal/httputil"
	"github.com/pdiddy/retail-copilot/pkg/types"
)

func TestMain(m *testing.M) {
	// No real sleeps between retries in tests.
	backoffBase = time.Millisecond
	httputil.RetryBaseDelay = time.Millisecond
	os.Exit(m.Run())
}

// testClient starts a stub model server and returns a client pointed
// at it.
func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(types.AIConfig{Model: "test-model", BaseURL: srv.URL, MaxRetries: 1}, nil)
}

func respond(t *testing.T, w http.ResponseWriter, text string) {
	t.Helper()
	if err := json.NewEncoder(w).Encode(generateResponse{Response: text}); err != nil {
		t.Errorf("encoding stub response: %v", err)
	}
}

func TestClassify(t *testing.T) {
	var gotReq generateRequest
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		respond(t, w, "  Store-Only \n")
	}))

	label, err := c.Classify(context.Background(), "How many customers are there?")
	require.NoError(t, err)
	require.Equal(t, "store-only", label, "label should be trimmed and lowercased")

	require.Equal(t, "test-model", gotReq.Model)
	require.False(t, gotReq.Stream)
	require.Contains(t, gotReq.Prompt, "How many customers are there?")
	require.Contains(t, gotReq.Prompt, "doc-only")
}

func TestGenerateQueryPromptContents(t *testing.T) {
	var gotReq generateRequest
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		respond(t, w, "SELECT 1")
	}))

	out, err := c.GenerateQuery(context.Background(),
		"Total revenue during the campaign?",
		"Database Schema: Orders(OrderID, OrderDate)",
		"Filter by date range: BETWEEN '2017-06-01' AND '2017-06-30'")
	require.NoError(t, err)
	require.Equal(t, "SELECT 1", out)

	require.Contains(t, gotReq.Prompt, "Total revenue during the campaign?")
	require.Contains(t, gotReq.Prompt, "Database Schema: Orders(OrderID, OrderDate)")
	require.Contains(t, gotReq.Prompt, "BETWEEN '2017-06-01' AND '2017-06-30'")
}

func TestGenerateRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "model loading", http.StatusInternalServerError)
			return
		}
		respond(t, w, "both")
	}))

	label, err := c.Classify(context.Background(), "Revenue during summer 2017?")
	require.NoError(t, err)
	require.Equal(t, "both", label)
	require.Equal(t, int32(2), calls.Load())
}

func TestGenerateBacksOffOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		respond(t, w, "store-only")
	}))

	label, err := c.Classify(context.Background(), "How many orders shipped late?")
	require.NoError(t, err)
	require.Equal(t, "store-only", label)
	// The 429 is retried inside a single attempt, not by the outer loop.
	require.Equal(t, int32(2), calls.Load())
}

func TestGenerateExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))

	_, err := c.Classify(context.Background(), "anything")
	require.Error(t, err)
	require.Contains(t, err.Error(), "503")
	// Initial attempt plus one retry.
	require.Equal(t, int32(2), calls.Load())
}

func TestGenerateRejectsEmptyResponse(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, "   ")
	}))

	_, err := c.Classify(context.Background(), "anything")
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty response")
}

func TestGenerateSendsAuthHeaders(t *testing.T) {
	var gotAuth, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		respond(t, w, "doc-only")
	}))
	t.Cleanup(srv.Close)

	c := New(types.AIConfig{
		HTTPConfig: types.HTTPConfig{UserAgent: "retail-copilot/0.1"},
		Model:      "test-model",
		BaseURL:    srv.URL,
		APIKey:     "sk-test",
		MaxRetries: 1,
	}, nil)

	_, err := c.Classify(context.Background(), "anything")
	require.NoError(t, err)
	require.Equal(t, "Bearer sk-test", gotAuth)
	require.Equal(t, "retail-copilot/0.1", gotAgent)
}

func TestGenerateHonorsTimeout(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		respond(t, w, "too late")
	}))
	c.cfg.Timeout = 50 * time.Millisecond
	c.client.Timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := c.Classify(context.Background(), "anything")
	require.Error(t, err)
	require.Less(t, time.Since(start), time.Second, "call should abort at the timeout")
}

func TestGenerateHonorsCancel(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		respond(t, w, "too late")
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Classify(ctx, "anything")
	require.Error(t, err)
}

func TestNewDefaults(t *testing.T) {
	c := New(types.AIConfig{}, nil)
	require.Equal(t, defaultBaseURL, c.cfg.BaseURL)
	require.Equal(t, defaultModel, c.cfg.Model)
	require.Equal(t, defaultTimeout, c.cfg.Timeout)
	require.Equal(t, defaultMaxRetries, c.cfg.MaxRetries)
}
