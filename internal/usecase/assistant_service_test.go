package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raumania/assistant/internal/domain"
)

// MockGenericAnswerer is a mock implementation of GenericAnswerer
type MockGenericAnswerer struct {
	answer    string
	err       error
	calls     int
	questions []string
}

func (m *MockGenericAnswerer) AnswerGeneric(ctx context.Context, question string, snap *Snapshot) (string, error) {
	m.calls++
	m.questions = append(m.questions, question)
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func testCatalogSource() *MockCatalogSource {
	return NewMockCatalogSource(
		[]domain.Entry{
			productEntry("Midnight Rose", "45", "50ml", "100ml", "Travel"),
			productEntry("Ocean Breeze", "60", "50ml", "100ml"),
			productEntry("Plain Musk", "19.99"),
		},
		[]domain.Entry{
			brandEntry("Lumen", "Midnight Rose", "Ocean Breeze"),
			brandEntry("Maison Noir", "Velvet Oud"),
		},
	)
}

func newTestAssistant(src domain.CatalogSource, fallback GenericAnswerer) *AssistantService {
	return NewAssistantService(
		NewCatalogStore(src, zerolog.Nop()),
		fallback,
		AssistantServiceConfig{MinOverlap: 0.5, Logger: zerolog.Nop()},
	)
}

func TestAssistantService_Scenarios(t *testing.T) {
	ctx := context.Background()

	t.Run("price question answers deterministically", func(t *testing.T) {
		fallback := &MockGenericAnswerer{answer: "generated"}
		svc := newTestAssistant(testCatalogSource(), fallback)

		reply, err := svc.Ask(ctx, "price of Midnight Rose?")
		require.NoError(t, err)
		assert.Equal(t, "The price of Midnight Rose is $45.", reply.Text)
		assert.Equal(t, domain.RouteDeterministic, reply.Route)
		assert.Equal(t, domain.IntentPrice, reply.Intent)
		assert.Zero(t, fallback.calls, "retrieval must not run on the price path")
	})

	t.Run("variant count equals list length", func(t *testing.T) {
		fallback := &MockGenericAnswerer{answer: "generated"}
		svc := newTestAssistant(testCatalogSource(), fallback)

		reply, err := svc.Ask(ctx, "how many variants does Ocean Breeze have")
		require.NoError(t, err)
		assert.Equal(t, "Ocean Breeze has 2 variants.", reply.Text)
		assert.Zero(t, fallback.calls)
	})

	t.Run("unknown brand is a terminal not-found reply", func(t *testing.T) {
		fallback := &MockGenericAnswerer{answer: "generated"}
		svc := newTestAssistant(testCatalogSource(), fallback)

		reply, err := svc.Ask(ctx, "products from Lumiere")
		require.NoError(t, err)
		assert.Equal(t, "I couldn't find a brand named 'Lumiere'. Please check the spelling and try again.", reply.Text)
		assert.Equal(t, domain.RouteNotFound, reply.Route)
		assert.Zero(t, fallback.calls, "generation must not run on a resolution miss")
	})

	t.Run("generic question goes to retrieval", func(t *testing.T) {
		fallback := &MockGenericAnswerer{answer: "Returns are accepted within 30 days."}
		svc := newTestAssistant(testCatalogSource(), fallback)

		reply, err := svc.Ask(ctx, "Tell me about your return policy")
		require.NoError(t, err)
		assert.Equal(t, "Returns are accepted within 30 days.", reply.Text)
		assert.Equal(t, domain.RouteGenerated, reply.Route)
		assert.Equal(t, domain.IntentGeneric, reply.Intent)
		assert.Equal(t, 1, fallback.calls)
		assert.Equal(t, []string{"Tell me about your return policy"}, fallback.questions)
	})
}

func TestAssistantService_Routing(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		question      string
		wantText      string
		wantRoute     domain.Route
		wantFallbacks int
	}{
		{
			name:      "variant list",
			question:  "What are the variants of midnight rose?",
			wantText:  "The variants of Midnight Rose are: 50ml, 100ml, Travel",
			wantRoute: domain.RouteDeterministic,
		},
		{
			name:      "brand list via fuzzy match",
			question:  "products from Maison Noir Paris",
			wantText:  "Products from Maison Noir: Velvet Oud",
			wantRoute: domain.RouteDeterministic,
		},
		{
			name:      "brand count",
			question:  "How many products does Lumen have?",
			wantText:  "Lumen has 2 products.",
			wantRoute: domain.RouteDeterministic,
		},
		{
			name:      "unknown variant product",
			question:  "variants of Amber Night",
			wantText:  "I couldn't find a product named 'Amber Night'. Please check the spelling and try again.",
			wantRoute: domain.RouteNotFound,
		},
		{
			name:          "price miss falls through to retrieval",
			question:      "how much is shipping?",
			wantText:      "generated",
			wantRoute:     domain.RouteGenerated,
			wantFallbacks: 1,
		},
		{
			name:          "variant on minimal product falls through",
			question:      "variants of Plain Musk",
			wantText:      "generated",
			wantRoute:     domain.RouteGenerated,
			wantFallbacks: 1,
		},
		{
			name:          "detected intent without fragment falls through",
			question:      "price of ?",
			wantText:      "generated",
			wantRoute:     domain.RouteGenerated,
			wantFallbacks: 1,
		},
		{
			name:          "score of exactly one half is not a match",
			question:      "price of Midnight Oud",
			wantText:      "generated",
			wantRoute:     domain.RouteGenerated,
			wantFallbacks: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fallback := &MockGenericAnswerer{answer: "generated"}
			svc := newTestAssistant(testCatalogSource(), fallback)

			reply, err := svc.Ask(ctx, tt.question)
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, reply.Text)
			assert.Equal(t, tt.wantRoute, reply.Route)
			assert.Equal(t, tt.wantFallbacks, fallback.calls)
		})
	}
}

func TestAssistantService_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects blank question", func(t *testing.T) {
		svc := newTestAssistant(testCatalogSource(), &MockGenericAnswerer{})
		for _, q := range []string{"", "   \n"} {
			_, err := svc.Ask(ctx, q)
			assert.ErrorIs(t, err, domain.ErrInvalidRequest)
		}
	})

	t.Run("surfaces unavailable catalog without fallback", func(t *testing.T) {
		src := testCatalogSource()
		src.versionErr = fmt.Errorf("%w: brand.json missing", domain.ErrCatalogUnavailable)
		fallback := &MockGenericAnswerer{answer: "generated"}
		svc := newTestAssistant(src, fallback)

		_, err := svc.Ask(ctx, "price of Midnight Rose")
		assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
		assert.Zero(t, fallback.calls)
	})

	t.Run("surfaces generation failure", func(t *testing.T) {
		fallback := &MockGenericAnswerer{err: fmt.Errorf("%w: timeout", domain.ErrGenerationFailed)}
		svc := newTestAssistant(testCatalogSource(), fallback)

		reply, err := svc.Ask(ctx, "Tell me about your return policy")
		assert.Nil(t, reply)
		assert.True(t, errors.Is(err, domain.ErrGenerationFailed))
	})
}

func TestAssistantService_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc := newTestAssistant(testCatalogSource(), &MockGenericAnswerer{answer: "generated"})

	for _, q := range []string{
		"price of Midnight Rose?",
		"how many variants does Ocean Breeze have",
		"products from Lumen",
		"products from Lumiere",
	} {
		first, err := svc.Ask(ctx, q)
		require.NoError(t, err)
		second, err := svc.Ask(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, first.Text, second.Text, q)
	}
}

func TestAssistantService_WithRetrievalPipeline(t *testing.T) {
	ctx := context.Background()
	gen := &MockGenerator{answer: "Ocean Breeze is our freshest scent."}
	retrieval := newTestRetrievalService(&MockEmbedder{}, gen, NewMockCacheRepository())
	svc := newTestAssistant(testCatalogSource(), retrieval)

	reply, err := svc.Ask(ctx, "Which scent reminds you of the ocean?")
	require.NoError(t, err)
	assert.Equal(t, "Ocean Breeze is our freshest scent.", reply.Text)
	require.Equal(t, 1, gen.callCount())
	assert.Contains(t, gen.prompts[0], "We currently offer 3 products.")
	assert.Contains(t, gen.prompts[0], "Ocean Breeze")

	// Deterministic questions never reach the generator
	_, err = svc.Ask(ctx, "price of Ocean Breeze")
	require.NoError(t, err)
	assert.Equal(t, 1, gen.callCount())
}
