package domain

// Intent is the coarse category assigned to a question before answering
type Intent int

const (
	IntentGeneric Intent = iota
	IntentPrice
	IntentVariant
	IntentBrand
)

func (i Intent) String() string {
	switch i {
	case IntentPrice:
		return "price"
	case IntentVariant:
		return "variant"
	case IntentBrand:
		return "brand"
	default:
		return "generic"
	}
}

// Classification is the result of intent detection.
// Fragment is the raw name substring, empty for IntentGeneric.
type Classification struct {
	Intent   Intent
	Fragment string
}

// MatchResult is the outcome of entity resolution. Found is false when no
// candidate matched above threshold.
type MatchResult struct {
	Record Record
	Found  bool
	Score  float64 // 1 for exact matches
	Exact  bool
}

// Route records which branch of the orchestrator produced a reply
type Route string

const (
	RouteDeterministic Route = "deterministic"
	RouteNotFound      Route = "not_found"
	RouteGenerated     Route = "generated"
)

// Reply is the final answer to a question
type Reply struct {
	Text     string `json:"response"`
	Intent   Intent `json:"-"`
	Route    Route  `json:"-"`
	Fragment string `json:"-"`
}
