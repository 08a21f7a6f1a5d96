package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/raumania/assistant/internal/domain"
)

type codedError struct{ code int }

func (e codedError) Error() string { return fmt.Sprintf("api error %d", e.code) }
func (e codedError) HTTPCode() int { return e.code }

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{name: "googleapi 503", err: &googleapi.Error{Code: http.StatusServiceUnavailable}, retryable: true},
		{name: "googleapi 429", err: &googleapi.Error{Code: http.StatusTooManyRequests}, retryable: true},
		{name: "googleapi 400", err: &googleapi.Error{Code: http.StatusBadRequest}, retryable: false},
		{name: "googleapi 403", err: &googleapi.Error{Code: http.StatusForbidden}, retryable: false},
		{name: "gax 500", err: codedError{code: 500}, retryable: true},
		{name: "gax 404", err: codedError{code: 404}, retryable: false},
		{name: "wrapped gax 404", err: fmt.Errorf("call: %w", codedError{code: 404}), retryable: false},
		{name: "transport failure", err: errors.New("connection reset by peer"), retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(context.Background(), tt.err)
			assert.Equal(t, tt.retryable, errors.Is(got, domain.ErrServiceUnavailable))
		})
	}
}

func TestClassify_ContextErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := classify(ctx, errors.New("rpc error"))
	assert.ErrorIs(t, got, context.Canceled)
	assert.NotErrorIs(t, got, domain.ErrServiceUnavailable)

	got = classify(context.Background(), fmt.Errorf("attempt: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, got, context.DeadlineExceeded)
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(context.Background(), "", zerolog.Nop())
	assert.Error(t, err)

	client, err := NewClient(context.Background(), "test-key", zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	gen := client.Generator("gemini-1.5-flash", 0.2)
	assert.Equal(t, "gemini-1.5-flash", gen.name)
	require.NotNil(t, gen.model.Temperature)
	assert.InDelta(t, 0.2, *gen.model.Temperature, 1e-6)

	emb := client.Embedder("text-embedding-004")
	assert.Equal(t, "text-embedding-004", emb.name)

	got, err := emb.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
