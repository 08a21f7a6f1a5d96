package usecase

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/raumania/assistant/internal/domain"
	"github.com/raumania/assistant/internal/observability"
)

// IntentPriority is the order in which intent families are tested.
// The first family with a matching detection pattern wins; no scoring between families.
var IntentPriority = []domain.Intent{
	domain.IntentVariant,
	domain.IntentBrand,
	domain.IntentPrice,
}

// intentRule is one row of the classification table.
// Extraction patterns must expose the entity fragment as the named group "name".
type intentRule struct {
	intent     domain.Intent
	detect     []*regexp.Regexp
	extract    []*regexp.Regexp
	qualifiers map[string]bool // trailing words stripped from the fragment
}

// Compiled rule table, keyed by intent and consulted in IntentPriority order
var intentRules = map[domain.Intent]intentRule{
	domain.IntentVariant: {
		intent: domain.IntentVariant,
		detect: compileAll(
			`how many variants? (?:does|has|have) .+`,
			`what (?:are|is) the variants? of .+`,
			`what variants? (?:are|is) available for .+`,
			`show me (?:all|the) variants? of .+`,
			`list (?:all|the) variants? of .+`,
			`variants? of .+`,
			`what (?:are|is) the names? of variants? of .+`,
		),
		extract: compileAll(
			`how many variants? (?:does|has|have) (?P<name>.+?)[?.!\s]*$`,
			`what (?:are|is) the variants? of (?P<name>.+?)[?.!\s]*$`,
			`what variants? (?:are|is) available for (?P<name>.+?)[?.!\s]*$`,
			`show me (?:all|the) variants? of (?P<name>.+?)[?.!\s]*$`,
			`list (?:all|the) variants? of (?P<name>.+?)[?.!\s]*$`,
			`variants? of (?P<name>.+?)[?.!\s]*$`,
			`what (?:are|is) the names? of variants? of (?P<name>.+?)[?.!\s]*$`,
		),
		qualifiers: wordSet("have", "has", "got", "offer"),
	},
	domain.IntentBrand: {
		intent: domain.IntentBrand,
		detect: compileAll(
			`how many products? (?:does|has|have) .+ (?:have|has|carry|offer)`,
			`how many products? (?:does|has|have) .+ (?:brand|company)`,
			`what products? (?:are|is) from .+`,
			`show me (?:all|the) products? (?:by|from) .+`,
			`list (?:all|the) products? (?:from|by) .+`,
			`what (?:does|do) .+ offer`,
			`products? (?:from|by) .+`,
			`how many products? does .+ has`,
		),
		extract: compileAll(
			`how many products? (?:does|has|have) (?P<name>.+?) (?:have|has|carry|offer)`,
			`how many products? (?:does|has|have) (?P<name>.+?) (?:brand|company)`,
			`what products? (?:are|is) from (?P<name>.+?)[?.!\s]*$`,
			`show me (?:all|the) products? (?:by|from) (?P<name>.+?)[?.!\s]*$`,
			`list (?:all|the) products? (?:from|by) (?P<name>.+?)[?.!\s]*$`,
			`what (?:does|do) (?P<name>.+?) offer`,
			`products? (?:from|by) (?P<name>.+?)[?.!\s]*$`,
			`how many products? does (?P<name>.+?) has`,
		),
		qualifiers: wordSet("have", "has", "carry", "offer", "sell", "brand", "company"),
	},
	domain.IntentPrice: {
		intent: domain.IntentPrice,
		detect: compileAll(
			`how much (?:is|does) .+`,
			`what (?:is|does) the price of .+`,
			`price of .+`,
			`how much for .+`,
			`cost of .+`,
		),
		extract: compileAll(
			`how much (?:is|does) (?:the )?(?P<name>.+?)[?.!\s]*$`,
			`what (?:is|does) the price of (?:the )?(?P<name>.+?)[?.!\s]*$`,
			`price of (?:the )?(?P<name>.+?)[?.!\s]*$`,
			`how much for (?:the )?(?P<name>.+?)[?.!\s]*$`,
			`cost of (?:the )?(?P<name>.+?)[?.!\s]*$`,
		),
		qualifiers: wordSet("cost", "costs", "price", "priced"),
	},
}

// compileAll compiles case-insensitive patterns
func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// IntentClassifier labels a question with an intent and extracts the entity-name fragment
type IntentClassifier struct {
	enableDebugLogging bool
	logger             zerolog.Logger
}

// NewIntentClassifier creates a new intent classifier
func NewIntentClassifier(logger zerolog.Logger, enableDebugLogging bool) *IntentClassifier {
	return &IntentClassifier{
		enableDebugLogging: enableDebugLogging,
		logger:             observability.Component(logger, "classifier"),
	}
}

// Classify returns the first intent family (in IntentPriority order) whose detection
// pattern matches the question. A family that matches but yields no fragment
// degrades to IntentGeneric.
func (c *IntentClassifier) Classify(question string) domain.Classification {
	for _, intent := range IntentPriority {
		rule := intentRules[intent]
		if !matchesAny(rule.detect, question) {
			continue
		}

		fragment := rule.extractFragment(question)
		if c.enableDebugLogging {
			c.logger.Debug().
				Str("intent", intent.String()).
				Str("fragment", fragment).
				Msg("intent detected")
		}
		if fragment == "" {
			return domain.Classification{Intent: domain.IntentGeneric}
		}
		return domain.Classification{Intent: intent, Fragment: fragment}
	}

	return domain.Classification{Intent: domain.IntentGeneric}
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// extractFragment tries extraction patterns in order and returns the first non-empty fragment
func (r intentRule) extractFragment(question string) string {
	for _, p := range r.extract {
		m := p.FindStringSubmatch(question)
		if m == nil {
			continue
		}
		idx := p.SubexpIndex("name")
		if idx < 0 || idx >= len(m) {
			continue
		}
		if fragment := r.cleanFragment(m[idx]); fragment != "" {
			return fragment
		}
	}
	return ""
}

// cleanFragment strips trailing punctuation and one trailing qualifier word
func (r intentRule) cleanFragment(s string) string {
	s = trimFragmentPunctuation(s)

	words := strings.Fields(s)
	if len(words) > 1 && r.qualifiers[strings.ToLower(words[len(words)-1])] {
		words = words[:len(words)-1]
	}

	return trimFragmentPunctuation(strings.Join(words, " "))
}

func trimFragmentPunctuation(s string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), `?.!,;:"'`))
}
