// Package chatbot is a client for a running assistant service. Callers that
// show replies to end users get a readable sentence instead of an error.
package chatbot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/raumania/assistant/internal/observability"
)

const (
	// ConnectionFailedMessage is returned when the service cannot be reached
	// or answers with an error
	ConnectionFailedMessage = "Sorry, there was an issue connecting to the chatbot."
	// NoAnswerMessage is returned when the service answers without text
	NoAnswerMessage = "Sorry, the chatbot could not provide an answer."
)

// Client posts questions to the /ask endpoint of an assistant service
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     zerolog.Logger
}

// NewClient creates a client for the service at baseURL
func NewClient(baseURL string, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     observability.Component(logger, "chatbot_client"),
	}
}

type askResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Ask sends prompt as a form field and returns the service's reply.
// It never fails: transport and service errors become ConnectionFailedMessage.
func (c *Client) Ask(ctx context.Context, prompt string) string {
	text, err := c.ask(ctx, prompt)
	if err != nil {
		c.logger.Error().Err(err).Msg("error while calling chatbot")
		return ConnectionFailedMessage
	}
	if text == "" {
		c.logger.Warn().Msg("chatbot returned no valid response")
		return NoAnswerMessage
	}
	return text
}

func (c *Client) ask(ctx context.Context, prompt string) (string, error) {
	form := url.Values{"prompt": {prompt}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ask", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	var out askResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chatbot returned status %d: %s", resp.StatusCode, out.Error)
	}

	return out.Response, nil
}
