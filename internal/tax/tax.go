// Package tax is the single implementation of withholding (TDS) and output
// (GST) tax math. The wallet ledger and the payout workflow both call it, so
// rounding can never diverge between receipt taxation and withdrawal
// taxation. All results are rounded half-up at 2 decimal places.
package tax

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ledger-core/pkg/errno"
	"ledger-core/pkg/money"
)

// Type selects a tax rule
type Type string

const (
	TDS Type = "tds" // withholding, deducted at source before crediting
	GST Type = "gst" // output tax, added on top for remittance
)

// RateTable maps tax types to percentage rates (10 = 10%)
type RateTable map[Type]decimal.Decimal

// Result is the outcome of a single-tax computation
type Result struct {
	TaxAmount   decimal.Decimal
	TotalAmount decimal.Decimal // gross after the tax is applied per its rule
}

// Compute applies one tax type to a gross amount. Exemption bypasses
// withholding but never output tax.
func Compute(gross decimal.Decimal, typ Type, rates RateTable, exempt bool) (Result, error) {
	rate, ok := rates[typ]
	if !ok {
		return Result{}, errno.Errno{Code: errno.InternalServerError.Code, Message: "no rate configured for tax type " + string(typ)}
	}

	switch typ {
	case TDS:
		if exempt {
			return Result{TaxAmount: decimal.Zero, TotalAmount: gross}, nil
		}
		amt := money.Percent(gross, rate)
		return Result{TaxAmount: amt, TotalAmount: gross.Sub(amt)}, nil
	case GST:
		amt := money.Percent(gross, rate)
		return Result{TaxAmount: amt, TotalAmount: gross.Add(amt)}, nil
	default:
		return Result{}, errno.Errno{Code: errno.InternalServerError.Code, Message: "unknown tax type " + string(typ)}
	}
}

// Breakdown carries the full tax picture attached to a ledger entry or payout
type Breakdown struct {
	TDSAmount decimal.Decimal
	TDSRate   decimal.Decimal
	GSTAmount decimal.Decimal
	GSTRate   decimal.Decimal
	NetAmount decimal.Decimal // gross - TDS + GST, per the rules that apply
}

// ForWithdrawal computes the breakdown for a payout. A withdrawal is not a
// taxable supply, so only withholding applies: net = gross - TDS and the
// output-tax fields stay zero. The net amount never exceeds the gross, which
// keeps a request validated against the available balance processable.
func ForWithdrawal(gross decimal.Decimal, rates RateTable, exempt bool) (Breakdown, error) {
	tds, err := Compute(gross, TDS, rates, exempt)
	if err != nil {
		return Breakdown{}, err
	}

	b := Breakdown{
		TDSAmount: tds.TaxAmount,
		NetAmount: tds.TotalAmount,
	}
	if !exempt {
		b.TDSRate = rates[TDS]
	}
	return b, nil
}

// FinancialYear returns the Indian financial year bucket for t, e.g.
// "2025-26" for any instant between 2025-04-01 and 2026-03-31.
func FinancialYear(t time.Time) string {
	year := t.Year()
	if t.Month() < time.April {
		year--
	}
	return fmt.Sprintf("%d-%02d", year, (year+1)%100)
}

// Quarter returns the financial-year quarter of t (Q1 = Apr-Jun)
func Quarter(t time.Time) int {
	m := int(t.Month())
	// shift so April = 0
	shifted := (m + 8) % 12
	return shifted/3 + 1
}
