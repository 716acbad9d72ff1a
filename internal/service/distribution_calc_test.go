package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-core/pkg/errno"
	"ledger-core/pkg/money"
)

func dec(s string) decimal.Decimal { return money.MustFromString(s) }

func baseInput() CalcInput {
	return CalcInput{
		TotalAmount:    dec("100000"),
		CommissionRate: dec("0.15"),
		RetentionRate:  dec("0.10"),
		Contributors: []ContributorInput{
			{ProfessionalID: 1, Percentage: dec("60")},
			{ProfessionalID: 2, Percentage: dec("40")},
		},
		Policy: CalcPolicy{BonusPolicy: BonusWeighted, BonusSource: BonusFromRetention},
	}
}

func shareSum(shares []ShareResult) decimal.Decimal {
	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(s.TotalAmount)
	}
	return sum
}

func TestCalculateStandardSplit(t *testing.T) {
	res, err := Calculate(baseInput())
	require.NoError(t, err)

	assert.True(t, res.PlatformCommission.Equal(dec("15000")))
	assert.True(t, res.FirmRetention.Equal(dec("10000")))
	assert.True(t, res.DistributionAmount.Equal(dec("75000")))

	require.Len(t, res.Shares, 2)
	assert.True(t, res.Shares[0].BaseAmount.Equal(dec("45000")))
	assert.True(t, res.Shares[1].BaseAmount.Equal(dec("30000")))

	// commission + retention + shares reconstruct the total exactly
	total := res.PlatformCommission.Add(res.FirmRetention).Add(shareSum(res.Shares))
	assert.True(t, total.Equal(dec("100000")))
}

func TestCalculateRemainderToLargestShare(t *testing.T) {
	in := baseInput()
	in.TotalAmount = dec("100.01")
	in.Contributors = []ContributorInput{
		{ProfessionalID: 1, Percentage: dec("33.33")},
		{ProfessionalID: 2, Percentage: dec("33.33")},
		{ProfessionalID: 3, Percentage: dec("33.34")},
	}

	res, err := Calculate(in)
	require.NoError(t, err)

	total := res.PlatformCommission.Add(res.FirmRetention).Add(shareSum(res.Shares))
	assert.True(t, total.Equal(in.TotalAmount), "got %s", total)

	// contributor 3 has the largest base, so any remainder landed there
	assert.True(t, res.Shares[2].BaseAmount.GreaterThanOrEqual(res.Shares[0].BaseAmount))
}

func TestCalculateRemainderDeterministic(t *testing.T) {
	in := baseInput()
	in.Contributors = []ContributorInput{
		{ProfessionalID: 1, Percentage: dec("50")},
		{ProfessionalID: 2, Percentage: dec("50")},
	}
	in.TotalAmount = dec("100.01")

	first, err := Calculate(in)
	require.NoError(t, err)
	second, err := Calculate(in)
	require.NoError(t, err)

	for i := range first.Shares {
		assert.True(t, first.Shares[i].TotalAmount.Equal(second.Shares[i].TotalAmount))
	}
	total := first.PlatformCommission.Add(first.FirmRetention).Add(shareSum(first.Shares))
	assert.True(t, total.Equal(in.TotalAmount))
}

func TestCalculatePercentageOverflow(t *testing.T) {
	in := baseInput()
	in.Contributors = []ContributorInput{
		{ProfessionalID: 1, Percentage: dec("70")},
		{ProfessionalID: 2, Percentage: dec("40")},
	}
	_, err := Calculate(in)
	assert.ErrorIs(t, err, errno.ErrPercentageOverflow)
}

func TestCalculatePartialDistributionAccruesToRetention(t *testing.T) {
	in := baseInput()
	in.Contributors = []ContributorInput{
		{ProfessionalID: 1, Percentage: dec("50")},
	}

	res, err := Calculate(in)
	require.NoError(t, err)

	// 50% of 75000 = 37500 distributed, the rest stays with the firm
	assert.True(t, res.Shares[0].BaseAmount.Equal(dec("37500")))
	assert.True(t, res.FirmRetention.Equal(dec("47500")))

	total := res.PlatformCommission.Add(res.FirmRetention).Add(shareSum(res.Shares))
	assert.True(t, total.Equal(dec("100000")))
}

func TestCalculateBandEnforcement(t *testing.T) {
	in := baseInput()
	band := &Band{TemplateID: 7, Min: dec("20"), Max: dec("50")}
	in.Contributors = []ContributorInput{
		{ProfessionalID: 1, Percentage: dec("60"), Band: band},
		{ProfessionalID: 2, Percentage: dec("40")},
	}

	_, err := Calculate(in)
	assert.ErrorIs(t, err, errno.ErrPercentageOutOfBand)

	// the same percentage passes with an explicit override
	in.Contributors[0].BandOverride = true
	_, err = Calculate(in)
	assert.NoError(t, err)
}

func TestCalculateNegativePercentage(t *testing.T) {
	in := baseInput()
	in.Contributors[0].Percentage = dec("-5")
	_, err := Calculate(in)
	assert.ErrorIs(t, err, errno.ErrValidation)
}

func TestCalculateNoContributors(t *testing.T) {
	in := baseInput()
	in.Contributors = nil
	_, err := Calculate(in)
	assert.ErrorIs(t, err, errno.ErrValidation)

	// A funded bonus pool with nobody to receive it must not silently
	// shrink retention.
	in = baseInput()
	in.Contributors = []ContributorInput{}
	in.QualityBonus = dec("1000")
	_, err = Calculate(in)
	assert.ErrorIs(t, err, errno.ErrValidation)
}

func TestCalculateZeroTotal(t *testing.T) {
	in := baseInput()
	in.TotalAmount = decimal.Zero
	_, err := Calculate(in)
	assert.ErrorIs(t, err, errno.ErrValidation)
}

func TestCalculateWeightedBonus(t *testing.T) {
	in := baseInput()
	in.QualityBonus = dec("1000")

	res, err := Calculate(in)
	require.NoError(t, err)

	assert.True(t, res.BonusPool.Equal(dec("1000")))
	// funded from retention: 10000 - 1000
	assert.True(t, res.FirmRetention.Equal(dec("9000")))
	// split 60/40 by percentage
	assert.True(t, res.Shares[0].BonusAmount.Equal(dec("600")))
	assert.True(t, res.Shares[1].BonusAmount.Equal(dec("400")))

	total := res.PlatformCommission.Add(res.FirmRetention).Add(shareSum(res.Shares))
	assert.True(t, total.Equal(dec("100000")))
}

func TestCalculateEqualBonus(t *testing.T) {
	in := baseInput()
	in.EarlyCompletionBonus = dec("999.99")
	in.Policy.BonusPolicy = BonusEqual

	res, err := Calculate(in)
	require.NoError(t, err)

	bonusSum := decimal.Zero
	for _, s := range res.Shares {
		bonusSum = bonusSum.Add(s.BonusAmount)
	}
	assert.True(t, bonusSum.Equal(dec("999.99")))

	total := res.PlatformCommission.Add(res.FirmRetention).Add(shareSum(res.Shares))
	assert.True(t, total.Equal(dec("100000")))
}

func TestCalculateBonusFromCommission(t *testing.T) {
	in := baseInput()
	in.ReferralBonus = dec("2000")
	in.Policy.BonusSource = BonusFromCommission

	res, err := Calculate(in)
	require.NoError(t, err)

	assert.True(t, res.PlatformCommission.Equal(dec("13000")))
	assert.True(t, res.FirmRetention.Equal(dec("10000")))

	total := res.PlatformCommission.Add(res.FirmRetention).Add(shareSum(res.Shares))
	assert.True(t, total.Equal(dec("100000")))
}

func TestCalculateBonusExceedsSource(t *testing.T) {
	in := baseInput()
	in.QualityBonus = dec("10001") // retention is only 10000
	_, err := Calculate(in)
	assert.ErrorIs(t, err, errno.ErrValidation)
}

func TestCalculateShareTotalsAreBasePlusBonus(t *testing.T) {
	in := baseInput()
	in.QualityBonus = dec("500")

	res, err := Calculate(in)
	require.NoError(t, err)
	for _, s := range res.Shares {
		assert.True(t, s.TotalAmount.Equal(s.BaseAmount.Add(s.BonusAmount)))
	}
}
