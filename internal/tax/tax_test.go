package tax

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-core/pkg/money"
)

func testRates() RateTable {
	return RateTable{
		TDS: money.MustFromString("10"),
		GST: money.MustFromString("18"),
	}
}

func TestComputeTDS(t *testing.T) {
	res, err := Compute(money.MustFromString("50000"), TDS, testRates(), false)
	require.NoError(t, err)
	assert.True(t, res.TaxAmount.Equal(money.MustFromString("5000")))
	assert.True(t, res.TotalAmount.Equal(money.MustFromString("45000")))
}

func TestComputeTDSExempt(t *testing.T) {
	res, err := Compute(money.MustFromString("50000"), TDS, testRates(), true)
	require.NoError(t, err)
	assert.True(t, res.TaxAmount.IsZero())
	assert.True(t, res.TotalAmount.Equal(money.MustFromString("50000")))
}

func TestComputeGST(t *testing.T) {
	res, err := Compute(money.MustFromString("1000"), GST, testRates(), false)
	require.NoError(t, err)
	assert.True(t, res.TaxAmount.Equal(money.MustFromString("180")))
	assert.True(t, res.TotalAmount.Equal(money.MustFromString("1180")))
}

func TestComputeGSTIgnoresExemption(t *testing.T) {
	// Exemption only bypasses withholding, never output tax
	res, err := Compute(money.MustFromString("1000"), GST, testRates(), true)
	require.NoError(t, err)
	assert.True(t, res.TaxAmount.Equal(money.MustFromString("180")))
}

func TestComputeMissingRate(t *testing.T) {
	_, err := Compute(money.MustFromString("100"), TDS, RateTable{}, false)
	assert.Error(t, err)
}

func TestForWithdrawal(t *testing.T) {
	b, err := ForWithdrawal(money.MustFromString("50000"), testRates(), false)
	require.NoError(t, err)
	assert.True(t, b.TDSAmount.Equal(money.MustFromString("5000")))
	assert.True(t, b.TDSRate.Equal(money.MustFromString("10")))
	// Only withholding applies on the way out: net = 50000 - 5000
	assert.True(t, b.NetAmount.Equal(money.MustFromString("45000")))
	assert.True(t, b.GSTAmount.IsZero())
	assert.True(t, b.GSTRate.IsZero())
}

func TestForWithdrawalExempt(t *testing.T) {
	b, err := ForWithdrawal(money.MustFromString("50000"), testRates(), true)
	require.NoError(t, err)
	assert.True(t, b.TDSAmount.IsZero())
	assert.True(t, b.TDSRate.IsZero())
	assert.True(t, b.NetAmount.Equal(money.MustFromString("50000")))
}

func TestForWithdrawalNeverExceedsGross(t *testing.T) {
	for _, amount := range []string{"100", "33.33", "50000", "0.01"} {
		b, err := ForWithdrawal(money.MustFromString(amount), testRates(), false)
		require.NoError(t, err)
		assert.True(t, b.NetAmount.LessThanOrEqual(money.MustFromString(amount)), "amount %s", amount)
	}
}

func TestComputeRounding(t *testing.T) {
	// 10% of 33.33 is 3.333, rounds to 3.33
	res, err := Compute(money.MustFromString("33.33"), TDS, testRates(), false)
	require.NoError(t, err)
	assert.True(t, res.TaxAmount.Equal(money.MustFromString("3.33")))
	assert.True(t, res.TotalAmount.Equal(money.MustFromString("30.00")))
}

func TestFinancialYear(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want string
	}{
		{"april starts the year", time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), "2025-26"},
		{"march belongs to prior year", time.Date(2026, time.March, 31, 23, 59, 0, 0, time.UTC), "2025-26"},
		{"mid year", time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC), "2025-26"},
		{"january", time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC), "2024-25"},
		{"decade rollover", time.Date(2029, time.June, 1, 0, 0, 0, 0, time.UTC), "2029-30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FinancialYear(tt.date))
		})
	}
}

func TestQuarter(t *testing.T) {
	tests := []struct {
		month time.Month
		want  int
	}{
		{time.April, 1}, {time.June, 1},
		{time.July, 2}, {time.September, 2},
		{time.October, 3}, {time.December, 3},
		{time.January, 4}, {time.March, 4},
	}
	for _, tt := range tests {
		got := Quarter(time.Date(2025, tt.month, 15, 0, 0, 0, 0, time.UTC))
		assert.Equal(t, tt.want, got, "month %s", tt.month)
	}
}
