package service

import (
	"github.com/shopspring/decimal"

	"ledger-core/pkg/errno"
	"ledger-core/pkg/money"
)

// BonusPolicy selects how the bonus pool is apportioned across contributors
type BonusPolicy string

const (
	BonusEqual    BonusPolicy = "equal"
	BonusWeighted BonusPolicy = "weighted" // by contribution percentage
)

// BonusSource selects which stated figure funds the bonus pool
type BonusSource string

const (
	BonusFromRetention  BonusSource = "retention"
	BonusFromCommission BonusSource = "commission"
)

// CalcPolicy bundles the configurable distribution knobs
type CalcPolicy struct {
	BonusPolicy BonusPolicy
	BonusSource BonusSource
}

// Band is a template's allowed percentage range for a contributor
type Band struct {
	TemplateID uint64
	Min        decimal.Decimal
	Max        decimal.Decimal
}

// ContributorInput is one professional's negotiated or templated cut
type ContributorInput struct {
	ProfessionalID uint64
	Percentage     decimal.Decimal
	Hours          decimal.Decimal
	Band           *Band // nil when no template applies
	BandOverride   bool  // firm-admin override, recorded by the caller
}

// CalcInput is everything the calculator needs; it touches no storage
type CalcInput struct {
	TotalAmount          decimal.Decimal
	CommissionRate       decimal.Decimal // fraction, 0.15 = 15%
	RetentionRate        decimal.Decimal // fraction
	EarlyCompletionBonus decimal.Decimal
	QualityBonus         decimal.Decimal
	ReferralBonus        decimal.Decimal
	Contributors         []ContributorInput
	Policy               CalcPolicy
}

// ShareResult is one contributor's computed cut
type ShareResult struct {
	ProfessionalID uint64
	Percentage     decimal.Decimal
	BaseAmount     decimal.Decimal
	BonusAmount    decimal.Decimal
	TotalAmount    decimal.Decimal
}

// CalcResult reconciles exactly:
// PlatformCommission + FirmRetention + sum(share.TotalAmount) == TotalAmount.
type CalcResult struct {
	PlatformCommission decimal.Decimal
	FirmRetention      decimal.Decimal
	DistributionAmount decimal.Decimal
	BonusPool          decimal.Decimal
	Shares             []ShareResult
}

// Calculate computes commission, retention and per-contributor shares.
//
// Rounding remainders are assigned deterministically: the contributor with
// the largest base share absorbs them (ties break to the earliest in input
// order). When percentages sum below 100 the undistributed slice of the
// distributable amount accrues to firm retention, keeping the reconciliation
// exact for any valid input.
func Calculate(in CalcInput) (CalcResult, error) {
	if !in.TotalAmount.IsPositive() {
		return CalcResult{}, errno.ErrValidation
	}
	// One or more contributors; with nobody to apportion to, a funded bonus
	// pool would break the reconciliation.
	if len(in.Contributors) == 0 {
		return CalcResult{}, errno.ErrValidation
	}

	hundred := decimal.NewFromInt(100)
	pctSum := decimal.Zero
	for _, c := range in.Contributors {
		if c.Percentage.IsNegative() {
			return CalcResult{}, errno.ErrValidation
		}
		if c.Band != nil && !c.BandOverride {
			if c.Percentage.LessThan(c.Band.Min) || c.Percentage.GreaterThan(c.Band.Max) {
				return CalcResult{}, errno.ErrPercentageOutOfBand
			}
		}
		pctSum = pctSum.Add(c.Percentage)
	}
	if pctSum.GreaterThan(hundred) {
		return CalcResult{}, errno.ErrPercentageOverflow
	}

	commission := money.ApplyRate(in.TotalAmount, in.CommissionRate)
	retention := money.ApplyRate(in.TotalAmount, in.RetentionRate)
	distributable := in.TotalAmount.Sub(commission).Sub(retention)
	if distributable.IsNegative() {
		return CalcResult{}, errno.ErrValidation
	}

	// The bonus pool never increases the total: it is funded out of the
	// stated retention or commission figure.
	bonusPool := money.Round2(in.EarlyCompletionBonus.Add(in.QualityBonus).Add(in.ReferralBonus))
	if bonusPool.IsNegative() {
		return CalcResult{}, errno.ErrValidation
	}
	switch in.Policy.BonusSource {
	case BonusFromCommission:
		commission = commission.Sub(bonusPool)
		if commission.IsNegative() {
			return CalcResult{}, errno.ErrValidation
		}
	default: // retention
		retention = retention.Sub(bonusPool)
		if retention.IsNegative() {
			return CalcResult{}, errno.ErrValidation
		}
	}

	shares := make([]ShareResult, len(in.Contributors))
	baseSum := decimal.Zero
	largest := -1
	for i, c := range in.Contributors {
		base := money.Percent(distributable, c.Percentage)
		shares[i] = ShareResult{
			ProfessionalID: c.ProfessionalID,
			Percentage:     c.Percentage,
			BaseAmount:     base,
			BonusAmount:    decimal.Zero,
		}
		baseSum = baseSum.Add(base)
		if largest < 0 || base.GreaterThan(shares[largest].BaseAmount) {
			largest = i
		}
	}

	distributed := baseSum
	if pctSum.Equal(hundred) && largest >= 0 {
		// Full distribution: the rounding remainder, either sign, lands on
		// the largest base share.
		remainder := distributable.Sub(baseSum)
		if !remainder.IsZero() {
			shares[largest].BaseAmount = shares[largest].BaseAmount.Add(remainder)
		}
		distributed = distributable
	} else {
		// Partial distribution: whatever the contributors do not take stays
		// with the firm.
		retention = retention.Add(distributable.Sub(baseSum))
	}

	if bonusPool.IsPositive() && len(shares) > 0 {
		apportionBonus(shares, bonusPool, in.Policy.BonusPolicy, largest)
	}

	for i := range shares {
		shares[i].TotalAmount = shares[i].BaseAmount.Add(shares[i].BonusAmount)
	}

	// DistributionAmount is exactly what the shares sum to, bonuses
	// included, so TotalAmount == PlatformCommission + FirmRetention +
	// DistributionAmount holds with the post-bonus figures.
	return CalcResult{
		PlatformCommission: commission,
		FirmRetention:      retention,
		DistributionAmount: distributed.Add(bonusPool),
		BonusPool:          bonusPool,
		Shares:             shares,
	}, nil
}

// apportionBonus splits pool across shares per policy; the largest base
// share absorbs the rounding remainder
func apportionBonus(shares []ShareResult, pool decimal.Decimal, policy BonusPolicy, largest int) {
	weights := make([]decimal.Decimal, len(shares))
	switch policy {
	case BonusEqual:
		copy(weights, money.EqualWeights(len(shares)))
	default: // weighted
		for i, s := range shares {
			weights[i] = s.Percentage
		}
	}

	sum := decimal.Zero
	for _, w := range weights {
		sum = sum.Add(w)
	}
	if sum.IsZero() {
		copy(weights, money.EqualWeights(len(shares)))
		sum = decimal.NewFromInt(int64(len(shares)))
	}

	allocated := decimal.Zero
	for i := range shares {
		part := money.Round2(pool.Mul(weights[i]).Div(sum))
		shares[i].BonusAmount = part
		allocated = allocated.Add(part)
	}

	remainder := pool.Sub(allocated)
	if !remainder.IsZero() {
		if largest < 0 {
			largest = 0
		}
		shares[largest].BonusAmount = shares[largest].BonusAmount.Add(remainder)
	}
}
