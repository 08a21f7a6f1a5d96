// Package ollama talks to a local Ollama server for text generation and embeddings.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/raumania/assistant/internal/domain"
	"github.com/raumania/assistant/internal/observability"
)

// Client handles communication with the Ollama HTTP API.
// It performs a single request per call; retries belong to the caller.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	model       string
	temperature float64
	rateLimiter *rate.Limiter
	debug       bool
	logger      zerolog.Logger
}

// NewClient creates a new Ollama client for one model.
// requestsPerMinute <= 0 disables client-side rate limiting.
func NewClient(baseURL, model string, requestsPerMinute int, logger zerolog.Logger) *Client {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), max(requestsPerMinute/6, 1))
	}

	return &Client{
		httpClient: &http.Client{
			// Per-call deadlines come from the caller's context
			Timeout: 5 * time.Minute,
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		rateLimiter: limiter,
		logger:      observability.Component(logger, "ollama").With().Str("model", model).Logger(),
	}
}

// SetDebug enables or disables request/response debug logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// SetTemperature sets the sampling temperature used by Generate
func (c *Client) SetTemperature(t float64) {
	c.temperature = t
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Generate runs a non-streaming completion and returns the response text verbatim
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  false,
		Options: generateOptions{Temperature: c.temperature},
	}

	var resp generateResponse
	if err := c.post(ctx, "/api/generate", req, &resp); err != nil {
		return "", err
	}

	if c.debug {
		c.logger.Debug().Int("prompt_chars", len(prompt)).Int("response_chars", len(resp.Response)).Msg("generate completed")
	}
	return resp.Response, nil
}

// Embed returns one vector per input text, in input order
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp embedResponse
	if err := c.post(ctx, "/api/embed", embedRequest{Model: c.model, Input: texts}, &resp); err != nil {
		return nil, err
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: ollama returned %d embeddings for %d inputs",
			domain.ErrEmbeddingFailed, len(resp.Embeddings), len(texts))
	}

	if c.debug {
		c.logger.Debug().Int("inputs", len(texts)).Int("dims", len(resp.Embeddings[0])).Msg("embed completed")
	}
	return resp.Embeddings, nil
}

// post sends a JSON request and decodes a JSON response.
// Transport failures, 429 and 5xx are reported as ErrServiceUnavailable.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ollama rate limiter: %w", ctx.Err())
		}
		return fmt.Errorf("%w: %v", domain.ErrQuotaExhausted, err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "RaumaniaAssistant/1.0")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ollama %s: %w", path, ctx.Err())
		}
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrServiceUnavailable, err)
	}

	if c.debug {
		c.logger.Debug().
			Str("path", path).
			Int("status", resp.StatusCode).
			Dur("took", time.Since(start)).
			Msg("ollama response")
	}

	if resp.StatusCode != http.StatusOK {
		msg := apiError(data)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("%w: status %d: %s", domain.ErrServiceUnavailable, resp.StatusCode, msg)
		}
		return fmt.Errorf("ollama %s: status %d: %s", path, resp.StatusCode, msg)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// apiError extracts Ollama's {"error": "..."} message, falling back to the raw body
func apiError(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
