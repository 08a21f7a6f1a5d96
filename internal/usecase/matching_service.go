package usecase

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/raumania/assistant/internal/domain"
	"github.com/raumania/assistant/internal/observability"
)

// defaultMinOverlap is the lexical-overlap score a fuzzy candidate must strictly exceed
const defaultMinOverlap = 0.5

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	MinOverlap         float64
	EnableDebugLogging bool
	Logger             zerolog.Logger
}

// MatchingService resolves a name fragment to a catalog record
type MatchingService struct {
	minOverlap         float64
	enableDebugLogging bool
	logger             zerolog.Logger
}

// NewMatchingService creates a new matching service with the given configuration
func NewMatchingService(config MatchConfig) *MatchingService {
	threshold := config.MinOverlap
	if threshold <= 0 {
		threshold = defaultMinOverlap
	}

	return &MatchingService{
		minOverlap:         threshold,
		enableDebugLogging: config.EnableDebugLogging,
		logger:             observability.Component(config.Logger, "matcher"),
	}
}

// Resolve finds the record named by fragment.
// An exact case-insensitive name match wins outright. Otherwise every record is scored
// by word overlap and the best one is accepted only when its score is strictly above
// the threshold. Ties go to the earliest record.
func (s *MatchingService) Resolve(fragment string, records []domain.Record) domain.MatchResult {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" || len(records) == 0 {
		return domain.MatchResult{}
	}

	for _, rec := range records {
		if strings.EqualFold(rec.Name(), fragment) {
			if s.enableDebugLogging {
				s.logger.Debug().Str("fragment", fragment).Str("match", rec.Name()).Msg("exact match")
			}
			return domain.MatchResult{Record: rec, Found: true, Score: 1, Exact: true}
		}
	}

	queryWords := wordsOf(fragment)
	var best domain.MatchResult
	highestScore := 0.0

	for _, rec := range records {
		score := overlapScore(queryWords, wordsOf(rec.Name()))

		if s.enableDebugLogging && score > 0 {
			s.logger.Debug().
				Str("fragment", fragment).
				Str("candidate", rec.Name()).
				Float64("score", score).
				Msg("fuzzy candidate")
		}

		if score > highestScore {
			highestScore = score
			best = domain.MatchResult{Record: rec, Score: score}
		}
	}

	if highestScore <= s.minOverlap {
		if s.enableDebugLogging {
			s.logger.Debug().Str("fragment", fragment).Float64("best_score", highestScore).Msg("no match above threshold")
		}
		return domain.MatchResult{Score: highestScore}
	}

	best.Found = true
	return best
}

// wordsOf returns the set of lowercase whitespace-separated words
func wordsOf(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// overlapScore computes |a ∩ b| / max(|a|, |b|)
func overlapScore(a, b map[string]struct{}) float64 {
	denom := max(len(a), len(b))
	if denom == 0 {
		return 0
	}

	common := 0
	for w := range a {
		if _, ok := b[w]; ok {
			common++
		}
	}
	return float64(common) / float64(denom)
}
