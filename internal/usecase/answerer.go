package usecase

import (
	"fmt"
	"strings"

	"github.com/raumania/assistant/internal/domain"
)

// maxListedProducts caps how many product names a brand listing prints
const maxListedProducts = 10

// Answer is the outcome of a deterministic answering attempt.
// Applicable is false when the record cannot answer the intent.
type Answer struct {
	Text       string
	Applicable bool
}

// NotApplicable is returned when the resolved record does not fit the intent
var NotApplicable = Answer{}

func applicable(text string) Answer {
	return Answer{Text: text, Applicable: true}
}

// Answerer formats replies directly from catalog records
type Answerer struct{}

// NewAnswerer creates a new deterministic answerer
func NewAnswerer() *Answerer {
	return &Answerer{}
}

// Answer formats the reply for a classified question and its resolved record
func (a *Answerer) Answer(c domain.Classification, question string, rec domain.Record) Answer {
	howMany := strings.Contains(strings.ToLower(question), "how many")

	switch c.Intent {
	case domain.IntentPrice:
		if rec.Kind != domain.RecordProduct || rec.Product.Price == "" {
			return NotApplicable
		}
		return applicable(fmt.Sprintf("The price of %s is $%s.", rec.Product.Name, rec.Product.Price))

	case domain.IntentVariant:
		if rec.Kind != domain.RecordProduct || rec.Product.VariantNames == nil {
			return NotApplicable
		}
		p := rec.Product
		if howMany {
			return applicable(fmt.Sprintf("%s has %d variants.", p.Name, len(p.VariantNames)))
		}
		return applicable(fmt.Sprintf("The variants of %s are: %s", p.Name, strings.Join(p.VariantNames, ", ")))

	case domain.IntentBrand:
		if rec.Kind != domain.RecordBrand || rec.Brand.ProductNames == nil {
			return NotApplicable
		}
		b := rec.Brand
		if howMany {
			return applicable(fmt.Sprintf("%s has %d products.", b.Name, len(b.ProductNames)))
		}
		if len(b.ProductNames) > maxListedProducts {
			listed := strings.Join(b.ProductNames[:maxListedProducts], ", ")
			return applicable(fmt.Sprintf("Some products from %s include: %s, and %d more.",
				b.Name, listed, len(b.ProductNames)-maxListedProducts))
		}
		return applicable(fmt.Sprintf("Products from %s: %s", b.Name, strings.Join(b.ProductNames, ", ")))
	}

	return NotApplicable
}

// NotFoundMessage is the terminal reply when a variant or brand fragment cannot be resolved
func NotFoundMessage(intent domain.Intent, fragment string) string {
	kind := "product"
	if intent == domain.IntentBrand {
		kind = "brand"
	}
	return fmt.Sprintf("I couldn't find a %s named '%s'. Please check the spelling and try again.", kind, fragment)
}
