package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentTransitions(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		ok   bool
	}{
		{"pending to held", PaymentPending, PaymentHeld, true},
		{"pending to failed", PaymentPending, PaymentFailed, true},
		{"pending cannot release", PaymentPending, PaymentReleased, false},
		{"held to released", PaymentHeld, PaymentReleased, true},
		{"held to refunded", PaymentHeld, PaymentRefunded, true},
		{"released is terminal", PaymentReleased, PaymentRefunded, false},
		{"refunded is terminal", PaymentRefunded, PaymentReleased, false},
		{"failed cannot recover", PaymentFailed, PaymentHeld, false},
		{"unknown status", "bogus", PaymentHeld, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, PaymentCanTransition(tt.from, tt.to))
		})
	}
}

func TestPaymentIsTerminal(t *testing.T) {
	assert.True(t, PaymentIsTerminal(PaymentReleased))
	assert.True(t, PaymentIsTerminal(PaymentRefunded))
	assert.True(t, PaymentIsTerminal(PaymentFailed))
	assert.False(t, PaymentIsTerminal(PaymentPending))
	assert.False(t, PaymentIsTerminal(PaymentHeld))
	assert.False(t, PaymentIsTerminal("bogus"))
}

func TestPayoutTransitions(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		ok   bool
	}{
		{"requested to approved", PayoutRequested, PayoutApproved, true},
		{"requested to rejected", PayoutRequested, PayoutRejected, true},
		{"requested cannot process", PayoutRequested, PayoutProcessing, false},
		{"approved to processing", PayoutApproved, PayoutProcessing, true},
		{"approved to rejected", PayoutApproved, PayoutRejected, true},
		{"processing to completed", PayoutProcessing, PayoutCompleted, true},
		{"processing to failed", PayoutProcessing, PayoutFailed, true},
		{"processing cannot reject", PayoutProcessing, PayoutRejected, false},
		{"completed is terminal", PayoutCompleted, PayoutFailed, false},
		{"failed is terminal", PayoutFailed, PayoutProcessing, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, PayoutCanTransition(tt.from, tt.to))
		})
	}
}

func TestLedgerTypeSigns(t *testing.T) {
	credits := []string{TxPaymentReceived, TxDistributionReceived, TxBonusReceived, TxWithdrawalReversed}
	debits := []string{TxCommissionDeducted, TxDistributionPaid, TxWithdrawalRequested, TxWithdrawalCompleted, TxRefundIssued}

	for _, typ := range credits {
		assert.True(t, IsCreditType(typ), typ)
		assert.False(t, IsDebitType(typ), typ)
	}
	for _, typ := range debits {
		assert.True(t, IsDebitType(typ), typ)
		assert.False(t, IsCreditType(typ), typ)
	}

	// Adjustments carry their own sign and belong to neither set
	assert.False(t, IsCreditType(TxAdjustment))
	assert.False(t, IsDebitType(TxAdjustment))
	assert.True(t, KnownTxType(TxAdjustment))
	assert.False(t, KnownTxType("mystery_credit"))
}
