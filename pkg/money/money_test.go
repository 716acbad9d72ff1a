package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound2(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"exact", "100.00", "100"},
		{"half rounds up", "0.125", "0.13"},
		{"below half rounds down", "0.124", "0.12"},
		{"negative half away from zero", "-0.125", "-0.13"},
		{"many places", "33.333333", "33.33"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Round2(MustFromString(tt.in))
			assert.True(t, got.Equal(MustFromString(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestApplyRate(t *testing.T) {
	got := ApplyRate(MustFromString("100000"), MustFromString("0.15"))
	assert.True(t, got.Equal(MustFromString("15000")))
}

func TestPercent(t *testing.T) {
	got := Percent(MustFromString("75000"), MustFromString("60"))
	assert.True(t, got.Equal(MustFromString("45000")))
}

func TestAllocateSumsExactly(t *testing.T) {
	tests := []struct {
		name    string
		total   string
		weights []string
	}{
		{"even split with remainder", "100.00", []string{"1", "1", "1"}},
		{"uneven weights", "99.99", []string{"60", "40"}},
		{"single weight", "0.01", []string{"7"}},
		{"tiny total many parts", "0.05", []string{"1", "1", "1", "1", "1", "1", "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			weights := make([]decimal.Decimal, len(tt.weights))
			for i, w := range tt.weights {
				weights[i] = MustFromString(w)
			}
			total := MustFromString(tt.total)

			parts := Allocate(total, weights)
			require.Len(t, parts, len(weights))

			sum := decimal.Zero
			for _, p := range parts {
				sum = sum.Add(p)
			}
			assert.True(t, sum.Equal(total), "parts sum %s, want %s", sum, total)
		})
	}
}

func TestAllocateRemainderGoesToLargestWeight(t *testing.T) {
	// 100 / 3 at 2dp leaves 0.01; the first (largest-weight tie) absorbs
	parts := Allocate(MustFromString("100.00"), EqualWeights(3))
	assert.True(t, parts[0].Equal(MustFromString("33.34")))
	assert.True(t, parts[1].Equal(MustFromString("33.33")))
	assert.True(t, parts[2].Equal(MustFromString("33.33")))
}

func TestAllocateDeterministic(t *testing.T) {
	weights := []decimal.Decimal{MustFromString("30"), MustFromString("40"), MustFromString("30")}
	first := Allocate(MustFromString("1000.01"), weights)
	second := Allocate(MustFromString("1000.01"), weights)
	for i := range first {
		assert.True(t, first[i].Equal(second[i]))
	}
}

func TestAllocateZeroWeights(t *testing.T) {
	parts := Allocate(MustFromString("50"), []decimal.Decimal{decimal.Zero, decimal.Zero})
	// all-zero weights yield zero parts plus the remainder on the first
	sum := parts[0].Add(parts[1])
	assert.True(t, sum.Equal(MustFromString("50")))
}

func TestMustFromStringPanics(t *testing.T) {
	assert.Panics(t, func() { MustFromString("not-a-number") })
}
