package service

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"ledger-core/internal/model"
	"ledger-core/internal/service/settlement"
	"ledger-core/internal/tax"
	"ledger-core/pkg/errno"
)

// The payout and escrow flows need real row locking and unique constraints,
// so these tests run against the database named by LEDGER_TEST_DSN and skip
// when none is provided.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("LEDGER_TEST_DSN")
	if dsn == "" {
		t.Skip("LEDGER_TEST_DSN not set; skipping database-backed test")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.AllModels()...))
	return db
}

// idSeq hands out identifiers that do not collide across runs against a
// shared test database.
var idSeq = uint64(time.Now().UnixNano())

func nextID() uint64 { return atomic.AddUint64(&idSeq, 1) }

type stubRail struct {
	ref   string
	err   error
	calls int
}

func (r *stubRail) Settle(_ context.Context, _ settlement.Instruction) (string, error) {
	r.calls++
	if r.err != nil {
		return "", r.err
	}
	return r.ref, nil
}

func newPayoutHarness(db *gorm.DB, rail settlement.Rail) (*WalletService, *PayoutService) {
	wallet := NewWalletService(db)
	payout := NewPayoutService(db, wallet, NewTaxRecordService(db), rail,
		tax.RateTable{
			tax.TDS: dec("10"),
			tax.GST: dec("18"),
		},
		dec("100"), 5*time.Second)
	return wallet, payout
}

func seedBalance(t *testing.T, wallet *WalletService, ownerID uint64, amount string) {
	t.Helper()
	_, err := wallet.Append(context.Background(), AppendInput{
		OwnerType:   model.OwnerProfessional,
		OwnerID:     ownerID,
		Type:        model.TxPaymentReceived,
		Amount:      dec(amount),
		Description: "seed",
		ProcessedBy: "test",
	})
	require.NoError(t, err)
}

func TestPayoutRequestAboveAvailableBalance(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	wallet, payout := newPayoutHarness(db, &stubRail{ref: "TRF-1"})
	owner := nextID()
	seedBalance(t, wallet, owner, "1000")

	_, err := payout.Request(ctx, RequestInput{
		OwnerType: model.OwnerProfessional, OwnerID: owner,
		Amount: dec("2000"), Method: model.PayoutMethodBank,
		PayeeName: "A Kumar", BankAccount: "0001", IFSCCode: "HDFC0000001",
	})
	assert.ErrorIs(t, err, errno.ErrInsufficientBalance)

	// The refused request leaves no payout row and no ledger entry behind.
	var payouts int64
	require.NoError(t, db.Model(&model.PayoutRequest{}).
		Where("owner_type = ? AND owner_id = ?", model.OwnerProfessional, owner).
		Count(&payouts).Error)
	assert.Zero(t, payouts)

	entries, err := wallet.Entries(ctx, model.OwnerProfessional, owner, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1) // the seed credit only
}

func TestPayoutRequestReservesOpenPayouts(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	wallet, payout := newPayoutHarness(db, &stubRail{ref: "TRF-1"})
	owner := nextID()
	seedBalance(t, wallet, owner, "1000")

	_, err := payout.Request(ctx, RequestInput{
		OwnerType: model.OwnerProfessional, OwnerID: owner,
		Amount: dec("700"), Method: model.PayoutMethodUPI,
		PayeeName: "A Kumar", UPIHandle: "akumar@upi",
	})
	require.NoError(t, err)

	// The open request holds its gross amount against the balance.
	_, err = payout.Request(ctx, RequestInput{
		OwnerType: model.OwnerProfessional, OwnerID: owner,
		Amount: dec("500"), Method: model.PayoutMethodUPI,
		PayeeName: "A Kumar", UPIHandle: "akumar@upi",
	})
	assert.ErrorIs(t, err, errno.ErrInsufficientBalance)
}

func TestPayoutCompleteSettlesLockingDebit(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	rail := &stubRail{ref: "TRF-9001"}
	wallet, payout := newPayoutHarness(db, rail)
	owner := nextID()
	seedBalance(t, wallet, owner, "50000")

	p, err := payout.Request(ctx, RequestInput{
		OwnerType: model.OwnerProfessional, OwnerID: owner,
		Amount: dec("50000"), Method: model.PayoutMethodBank,
		PayeeName: "A Kumar", BankAccount: "0001", IFSCCode: "HDFC0000001",
	})
	require.NoError(t, err)
	assert.True(t, p.TDSAmount.Equal(dec("5000")))
	assert.True(t, p.NetPayoutAmount.Equal(dec("45000")))
	assert.True(t, p.GSTAmount.IsZero())

	require.NoError(t, payout.Approve(ctx, p.ID, "admin"))
	require.NoError(t, payout.Process(ctx, p.ID, "admin"))
	assert.Equal(t, 1, rail.calls)
	require.NoError(t, payout.Complete(ctx, p.ID, "webhook"))

	done, err := payout.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PayoutCompleted, done.Status)
	assert.Equal(t, "TRF-9001", done.ExternalRef)

	// The pending lock settled as a completed withdrawal of the net amount.
	var entry model.WalletTransaction
	require.NoError(t, db.First(&entry, "id = ?", done.LedgerEntryID).Error)
	assert.Equal(t, model.TxWithdrawalCompleted, entry.Type)
	assert.Equal(t, model.TxCompleted, entry.Status)
	assert.True(t, entry.Amount.Equal(dec("45000")))

	folded, err := wallet.Reconcile(ctx, model.OwnerProfessional, owner)
	require.NoError(t, err)
	assert.True(t, folded.Equal(dec("5000")))

	var rec model.TaxRecord
	require.NoError(t, db.Where("owner_type = ? AND owner_id = ? AND tax_type = ?",
		model.OwnerProfessional, owner, model.TaxTDS).First(&rec).Error)
	assert.True(t, rec.TaxableAmount.Equal(dec("50000")))
	assert.True(t, rec.TaxAmount.Equal(dec("5000")))
}

func TestPayoutFailReversesLockingDebit(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	wallet, payout := newPayoutHarness(db, &stubRail{ref: "TRF-9002"})
	owner := nextID()
	seedBalance(t, wallet, owner, "50000")

	p, err := payout.Request(ctx, RequestInput{
		OwnerType: model.OwnerProfessional, OwnerID: owner,
		Amount: dec("50000"), Method: model.PayoutMethodBank,
		PayeeName: "A Kumar", BankAccount: "0001", IFSCCode: "HDFC0000001",
	})
	require.NoError(t, err)
	require.NoError(t, payout.Approve(ctx, p.ID, "admin"))
	require.NoError(t, payout.Process(ctx, p.ID, "admin"))
	require.NoError(t, payout.Fail(ctx, p.ID, "bank returned the transfer"))

	failed, err := payout.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PayoutFailed, failed.Status)
	assert.Equal(t, "bank returned the transfer", failed.FailureReason)

	// The reversing credit matches the locking debit's magnitude exactly
	// and the original entry is untouched apart from its status.
	var debit model.WalletTransaction
	require.NoError(t, db.First(&debit, "id = ?", failed.LedgerEntryID).Error)
	assert.Equal(t, model.TxWithdrawalRequested, debit.Type)
	assert.Equal(t, model.TxCompleted, debit.Status)

	var credit model.WalletTransaction
	require.NoError(t, db.Where(
		"owner_type = ? AND owner_id = ? AND type = ? AND reference_id = ?",
		model.OwnerProfessional, owner, model.TxWithdrawalReversed, p.ID).
		First(&credit).Error)
	assert.True(t, credit.Amount.Equal(debit.Amount))
	assert.True(t, credit.Amount.Equal(dec("45000")))

	folded, err := wallet.Reconcile(ctx, model.OwnerProfessional, owner)
	require.NoError(t, err)
	assert.True(t, folded.Equal(dec("50000")))
}

func TestFrozenWalletRefusesDebit(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	wallet := NewWalletService(db)
	owner := nextID()
	seedBalance(t, wallet, owner, "1000")

	wallet.freeze(ctx, model.OwnerProfessional, owner, "manual review")

	_, err := wallet.Append(ctx, AppendInput{
		OwnerType: model.OwnerProfessional, OwnerID: owner,
		Type: model.TxCommissionDeducted, Amount: dec("100"),
		Description: "debit against frozen wallet", ProcessedBy: "test",
	})
	assert.ErrorIs(t, err, errno.ErrWalletFrozen)

	// Credits still land so the owner is never locked out of incoming funds.
	_, err = wallet.Append(ctx, AppendInput{
		OwnerType: model.OwnerProfessional, OwnerID: owner,
		Type: model.TxPaymentReceived, Amount: dec("100"),
		Description: "credit against frozen wallet", ProcessedBy: "test",
	})
	assert.NoError(t, err)
}

func TestOpenPaymentUniquePerServiceRequest(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	wallet := NewWalletService(db)
	escrow := NewEscrowService(db, wallet, dec("0.15"),
		tax.RateTable{tax.TDS: dec("10"), tax.GST: dec("18")}, 0)
	sr := nextID()

	_, err := escrow.Create(ctx, sr, nextID(), 0, dec("1000"))
	require.NoError(t, err)

	_, err = escrow.Create(ctx, sr, nextID(), 0, dec("1000"))
	assert.ErrorIs(t, err, errno.ErrDuplicatePayment)

	// A racing insert that slips past the existence check is stopped by
	// the partial unique index on open payments.
	twin := model.Payment{
		ServiceRequestID: sr,
		FirmID:           nextID(),
		Amount:           dec("1000"),
		Status:           model.PaymentPending,
	}
	assert.ErrorIs(t, db.Create(&twin).Error, gorm.ErrDuplicatedKey)
}

func TestDistributionUniquePerPayment(t *testing.T) {
	db := testDB(t)
	paymentID := nextID()

	first := model.ProjectDistribution{
		ServiceRequestID:   nextID(),
		PaymentID:          paymentID,
		FirmID:             nextID(),
		TotalAmount:        dec("1000"),
		PlatformCommission: dec("150"),
		FirmRetention:      dec("100"),
		DistributionAmount: dec("750"),
	}
	require.NoError(t, db.Create(&first).Error)

	second := first
	second.ID = 0
	assert.ErrorIs(t, db.Create(&second).Error, gorm.ErrDuplicatedKey)
}
