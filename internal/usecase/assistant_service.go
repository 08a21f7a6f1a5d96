package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/raumania/assistant/internal/domain"
	"github.com/raumania/assistant/internal/observability"
)

// CatalogProvider yields the current catalog snapshot
type CatalogProvider interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// GenericAnswerer answers questions the deterministic path cannot
type GenericAnswerer interface {
	AnswerGeneric(ctx context.Context, question string, snap *Snapshot) (string, error)
}

// AssistantServiceConfig holds configuration for the assistant service
type AssistantServiceConfig struct {
	MinOverlap         float64
	EnableDebugLogging bool
	Logger             zerolog.Logger
}

// AssistantService routes a question to a deterministic answer or the retrieval fallback
type AssistantService struct {
	catalog    CatalogProvider
	fallback   GenericAnswerer
	classifier *IntentClassifier
	matcher    *MatchingService
	answerer   *Answerer
	logger     zerolog.Logger
}

// NewAssistantService creates a new assistant service with dependencies
func NewAssistantService(
	catalog CatalogProvider,
	fallback GenericAnswerer,
	config AssistantServiceConfig,
) *AssistantService {
	return &AssistantService{
		catalog:    catalog,
		fallback:   fallback,
		classifier: NewIntentClassifier(config.Logger, config.EnableDebugLogging),
		matcher: NewMatchingService(MatchConfig{
			MinOverlap:         config.MinOverlap,
			EnableDebugLogging: config.EnableDebugLogging,
			Logger:             config.Logger,
		}),
		answerer: NewAnswerer(),
		logger:   observability.Component(config.Logger, "assistant"),
	}
}

// Ask answers one question.
// Flow: load snapshot -> classify -> resolve -> deterministic answer | not found | fallback
func (s *AssistantService) Ask(ctx context.Context, question string) (*domain.Reply, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrInvalidRequest
	}

	start := time.Now()
	snap, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	c := s.classifier.Classify(question)
	reply := &domain.Reply{Intent: c.Intent, Fragment: c.Fragment}

	if c.Intent != domain.IntentGeneric {
		records := snap.Catalog.Products
		if c.Intent == domain.IntentBrand {
			records = snap.Catalog.Brands
		}

		match := s.matcher.Resolve(c.Fragment, records)
		switch {
		case match.Found:
			if a := s.answerer.Answer(c, question, match.Record); a.Applicable {
				reply.Text = a.Text
				reply.Route = domain.RouteDeterministic
				s.logReply(ctx, reply, start)
				return reply, nil
			}
			// Record does not fit the intent; fall through to retrieval
		case c.Intent != domain.IntentPrice:
			reply.Text = NotFoundMessage(c.Intent, c.Fragment)
			reply.Route = domain.RouteNotFound
			s.logReply(ctx, reply, start)
			return reply, nil
		}
	}

	text, err := s.fallback.AnswerGeneric(ctx, question, snap)
	if err != nil {
		return nil, err
	}
	reply.Text = text
	reply.Route = domain.RouteGenerated
	s.logReply(ctx, reply, start)
	return reply, nil
}

func (s *AssistantService) logReply(ctx context.Context, reply *domain.Reply, start time.Time) {
	logger := observability.WithRequest(ctx, s.logger)
	logger.Info().
		Str("intent", reply.Intent.String()).
		Str("route", string(reply.Route)).
		Str("fragment", reply.Fragment).
		Dur("took", time.Since(start)).
		Msg("question answered")
}
