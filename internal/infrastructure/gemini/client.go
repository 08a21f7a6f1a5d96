// Package gemini adapts the Google Gemini API to the assistant's generator and embedder ports.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/raumania/assistant/internal/domain"
	"github.com/raumania/assistant/internal/observability"
)

// maxBatch is the largest number of texts BatchEmbedContents accepts
const maxBatch = 100

// Client wraps a genai client shared by the generator and the embedder
type Client struct {
	client *genai.Client
	logger zerolog.Logger
}

// NewClient creates a Gemini client authenticated with apiKey
func NewClient(ctx context.Context, apiKey string, logger zerolog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Client{
		client: client,
		logger: observability.Component(logger, "gemini"),
	}, nil
}

// Close releases the underlying connection
func (c *Client) Close() error {
	return c.client.Close()
}

// Generator produces answers with a Gemini text model
type Generator struct {
	model  *genai.GenerativeModel
	name   string
	logger zerolog.Logger
}

// Generator returns a generator for model with the given temperature
func (c *Client) Generator(model string, temperature float64) *Generator {
	m := c.client.GenerativeModel(model)
	m.SetTemperature(float32(temperature))
	return &Generator{model: m, name: model, logger: c.logger}
}

// Generate returns the text of the first candidate
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", classify(ctx, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini %s returned no candidates", g.name)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	g.logger.Debug().Str("model", g.name).Int("response_chars", sb.Len()).Msg("generate completed")
	return sb.String(), nil
}

// Embedder embeds texts with a Gemini embedding model
type Embedder struct {
	model *genai.EmbeddingModel
	name  string
}

// Embedder returns an embedder for model
func (c *Client) Embedder(model string) *Embedder {
	return &Embedder{model: c.client.EmbeddingModel(model), name: model}
}

// Embed returns one vector per text, in input order
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))

		batch := e.model.NewBatch()
		for _, t := range texts[start:end] {
			batch.AddContent(genai.Text(t))
		}

		resp, err := e.model.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, classify(ctx, err)
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("%w: gemini returned %d embeddings for %d inputs",
				domain.ErrEmbeddingFailed, len(resp.Embeddings), end-start)
		}
		for _, emb := range resp.Embeddings {
			out = append(out, emb.Values)
		}
	}
	return out, nil
}

// httpCoder is implemented by the gax API error type returned by genai
type httpCoder interface {
	HTTPCode() int
}

// classify marks transient API failures with ErrServiceUnavailable
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("gemini: %w", ctx.Err())
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("gemini: %w", err)
	}

	code := 0
	var gerr *googleapi.Error
	var coder httpCoder
	switch {
	case errors.As(err, &gerr):
		code = gerr.Code
	case errors.As(err, &coder):
		code = coder.HTTPCode()
	}

	switch {
	case code == 0, code == http.StatusTooManyRequests, code >= 500:
		return fmt.Errorf("%w: gemini: %v", domain.ErrServiceUnavailable, err)
	default:
		return fmt.Errorf("gemini: status %d: %w", code, err)
	}
}
