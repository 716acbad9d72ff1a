package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-core/internal/model"
	"ledger-core/pkg/errno"
)

func TestSignedAmount(t *testing.T) {
	tests := []struct {
		name      string
		entryType string
		amount    string
		want      string
		wantErr   error
	}{
		{name: "credit stays positive", entryType: model.TxPaymentReceived, amount: "500.00", want: "500.00"},
		{name: "debit is negated", entryType: model.TxWithdrawalRequested, amount: "200.00", want: "-200.00"},
		{name: "adjustment passes through positive", entryType: model.TxAdjustment, amount: "10.50", want: "10.50"},
		{name: "adjustment passes through negative", entryType: model.TxAdjustment, amount: "-10.50", want: "-10.50"},
		{name: "unknown type rejected", entryType: "mystery", amount: "1", wantErr: errno.ErrUnknownEntryType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SignedAmount(tt.entryType, dec(tt.amount))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(dec(tt.want)), "got %s", got)
		})
	}
}

func entry(typ, amount, before, after, status string) model.WalletTransaction {
	return model.WalletTransaction{
		Type:          typ,
		Amount:        dec(amount),
		BalanceBefore: dec(before),
		BalanceAfter:  dec(after),
		Status:        status,
	}
}

func TestFoldValidChain(t *testing.T) {
	entries := []model.WalletTransaction{
		entry(model.TxPaymentReceived, "1000.00", "0", "1000.00", model.TxCompleted),
		entry(model.TxCommissionDeducted, "150.00", "1000.00", "850.00", model.TxCompleted),
		entry(model.TxWithdrawalRequested, "500.00", "850.00", "350.00", model.TxCompleted),
	}

	balance, err := Fold(entries)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("350.00")))
}

func TestFoldSkipsFailedEntries(t *testing.T) {
	entries := []model.WalletTransaction{
		entry(model.TxPaymentReceived, "1000.00", "0", "1000.00", model.TxCompleted),
		// failed entries carry no balance effect; later entries continue
		// from the balance before the failed one
		entry(model.TxWithdrawalRequested, "400.00", "1000.00", "600.00", model.TxFailed),
		entry(model.TxDistributionReceived, "250.00", "1000.00", "1250.00", model.TxCompleted),
	}

	balance, err := Fold(entries)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("1250.00")))
}

func TestFoldIncludesPendingEntries(t *testing.T) {
	// A pending withdrawal lock is part of the chain until it settles.
	entries := []model.WalletTransaction{
		entry(model.TxPaymentReceived, "1000.00", "0", "1000.00", model.TxCompleted),
		entry(model.TxWithdrawalRequested, "400.00", "1000.00", "600.00", model.TxPending),
	}

	balance, err := Fold(entries)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("600.00")))
}

func TestFoldBrokenChain(t *testing.T) {
	entries := []model.WalletTransaction{
		entry(model.TxPaymentReceived, "1000.00", "0", "1000.00", model.TxCompleted),
		entry(model.TxCommissionDeducted, "150.00", "900.00", "750.00", model.TxCompleted),
	}

	_, err := Fold(entries)
	assert.ErrorIs(t, err, errno.ErrReconciliationMismatch)
}

func TestFoldEmptyLedger(t *testing.T) {
	balance, err := Fold(nil)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestFoldUnknownType(t *testing.T) {
	entries := []model.WalletTransaction{
		entry("mystery", "10.00", "0", "10.00", model.TxCompleted),
	}
	_, err := Fold(entries)
	assert.ErrorIs(t, err, errno.ErrUnknownEntryType)
}

func TestFoldAdjustment(t *testing.T) {
	entries := []model.WalletTransaction{
		entry(model.TxPaymentReceived, "100.00", "0", "100.00", model.TxCompleted),
		entry(model.TxAdjustment, "-25.00", "100.00", "75.00", model.TxCompleted),
	}

	balance, err := Fold(entries)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("75.00")))
}

func TestFoldRespectsZeroStart(t *testing.T) {
	entries := []model.WalletTransaction{
		entry(model.TxPaymentReceived, "100.00", "50.00", "150.00", model.TxCompleted),
	}
	// The first entry must start the chain at zero.
	_, err := Fold(entries)
	assert.ErrorIs(t, err, errno.ErrReconciliationMismatch)
}

func TestSignedAmountZero(t *testing.T) {
	got, err := SignedAmount(model.TxDistributionReceived, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}
