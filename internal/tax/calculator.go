package tax

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Rate is a single tax table row keyed by (country, state).
type Rate struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Rate            decimal.Decimal `json:"rate"` // percent, e.g. 8.5
	Country         string          `json:"country"`
	State           string          `json:"state,omitempty"`
	ApplyToShipping bool            `json:"applyToShipping"`
}

// Calculator resolves a single tax rate for a destination. Only one rate is
// ever applied; national and local rates never stack.
type Calculator struct {
	Enabled     bool            `json:"enabled"`
	Rates       []Rate          `json:"rates"`
	DefaultRate decimal.Decimal `json:"defaultRate"`
}

// Resolve returns the rate row for the destination, scored by specificity:
// country+state beats country-only beats the default rate. Rows with equal
// specificity resolve to the first in table order, which makes duplicate
// keys deterministic.
func (c Calculator) Resolve(country, state string) (Rate, bool) {
	best := Rate{}
	bestScore := -1
	for _, r := range c.Rates {
		score := matchScore(r, country, state)
		if score > bestScore && score >= 0 {
			best = r
			bestScore = score
		}
	}
	if bestScore < 0 {
		return Rate{}, false
	}
	return best, true
}

// Calculate computes tax on amount for the destination. Disabled tax and
// unknown destinations without a default rate both yield zero.
func (c Calculator) Calculate(amount decimal.Decimal, country, state string) decimal.Decimal {
	if !c.Enabled || amount.Sign() <= 0 {
		return decimal.Zero
	}
	rate := c.DefaultRate
	if row, ok := c.Resolve(country, state); ok {
		rate = row.Rate
	}
	return amount.Mul(rate).Div(decimal.NewFromInt(100))
}

// matchScore returns 2 for an exact country+state match, 1 for a
// country-wide row, and -1 when the row does not apply.
func matchScore(r Rate, country, state string) int {
	if !strings.EqualFold(strings.TrimSpace(r.Country), strings.TrimSpace(country)) {
		return -1
	}
	rowState := strings.TrimSpace(r.State)
	reqState := strings.TrimSpace(state)
	switch {
	case rowState == "":
		return 1
	case reqState != "" && strings.EqualFold(rowState, reqState):
		return 2
	default:
		return -1
	}
}
