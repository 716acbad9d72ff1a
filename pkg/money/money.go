package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// All monetary values are shopspring decimals carried at 2 decimal places.
// Balances and splits must reconcile exactly, so every rounding step goes
// through this package and remainders are assigned deterministically.

// Round2 rounds half-up at 2 decimal places
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ApplyRate returns amount * rate, rounded. rate is a fraction (0.15 = 15%).
func ApplyRate(amount, rate decimal.Decimal) decimal.Decimal {
	return Round2(amount.Mul(rate))
}

// Percent returns amount * pct / 100, rounded
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return Round2(amount.Mul(pct).Div(decimal.NewFromInt(100)))
}

// Allocate splits total across weights so the parts sum to total exactly.
// Each part is Round2(total * w / sum(weights)); the rounding remainder,
// positive or negative, lands on the first occurrence of the largest weight.
func Allocate(total decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	if len(weights) == 0 {
		return nil
	}

	sum := decimal.Zero
	for _, w := range weights {
		sum = sum.Add(w)
	}

	parts := make([]decimal.Decimal, len(weights))
	allocated := decimal.Zero
	largest := 0
	for i, w := range weights {
		if sum.IsZero() {
			parts[i] = decimal.Zero
		} else {
			parts[i] = Round2(total.Mul(w).Div(sum))
		}
		allocated = allocated.Add(parts[i])
		if w.GreaterThan(weights[largest]) {
			largest = i
		}
	}

	remainder := total.Sub(allocated)
	if !remainder.IsZero() {
		parts[largest] = parts[largest].Add(remainder)
	}
	return parts
}

// EqualWeights returns n identical weights for an even Allocate
func EqualWeights(n int) []decimal.Decimal {
	ws := make([]decimal.Decimal, n)
	for i := range ws {
		ws[i] = decimal.NewFromInt(1)
	}
	return ws
}

// MustFromString parses a decimal or panics. For configuration values only.
func MustFromString(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(fmt.Sprintf("invalid decimal %q: %v", s, err))
	}
	return d
}
