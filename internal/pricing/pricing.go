// Package pricing maps model names to per-million-token USD rates and
// turns a token usage record into a dollar cost.
package pricing

import (
	"strings"

	"github.com/use-sonar/open-sonar/internal/transcript"
)

// Rates holds the four per-million-token USD rates for one pricing tier.
type Rates struct {
	InputPerMillion          float64
	OutputPerMillion         float64
	CacheReadPerMillion      float64
	CacheCreationPerMillion  float64
}

var (
	opusRates = Rates{
		InputPerMillion:         15.0,
		OutputPerMillion:        75.0,
		CacheReadPerMillion:     1.5,
		CacheCreationPerMillion: 18.75,
	}
	sonnetRates = Rates{
		InputPerMillion:         3.0,
		OutputPerMillion:        15.0,
		CacheReadPerMillion:     0.3,
		CacheCreationPerMillion: 3.75,
	}
	haikuRates = Rates{
		InputPerMillion:         0.25,
		OutputPerMillion:        1.25,
		CacheReadPerMillion:     0.025,
		CacheCreationPerMillion: 0.3125,
	}
)

// tiers is checked in order; the first substring match wins. A model name
// with no match falls back to sonnet rates.
var tiers = []struct {
	substr string
	rates  Rates
}{
	{"opus", opusRates},
	{"sonnet", sonnetRates},
	{"haiku", haikuRates},
}

// For returns the pricing tier for model by case-sensitive substring match,
// checked in opus, sonnet, haiku order. Unknown or empty model names fall
// back to the sonnet rates. For is pure and total: it never fails.
func For(model string) Rates {
	for _, t := range tiers {
		if strings.Contains(model, t.substr) {
			return t.rates
		}
	}
	return sonnetRates
}

// Cost returns the USD cost of usage priced at model's rates: the sum of
// four products, tokens/1_000_000 * rate, one per usage field. No rounding
// is applied; callers round only for display.
func Cost(usage transcript.TokenUsage, model string) float64 {
	r := For(model)
	const million = 1_000_000.0
	return float64(usage.InputTokens)/million*r.InputPerMillion +
		float64(usage.OutputTokens)/million*r.OutputPerMillion +
		float64(usage.CacheReadTokens)/million*r.CacheReadPerMillion +
		float64(usage.CacheCreationTokens)/million*r.CacheCreationPerMillion
}
