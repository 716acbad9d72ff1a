package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ledger-core/internal/event"
	"ledger-core/internal/model"
	"ledger-core/internal/service/settlement"
	"ledger-core/internal/tax"
	"ledger-core/pkg/errno"
	"ledger-core/pkg/logger"
	"ledger-core/pkg/monitor"
)

// PayoutService drives withdrawal requests through admin review, ledger
// locking, external settlement and completion. Funds are only debited when
// processing starts; requested and approved payouts merely reduce the
// available balance.
type PayoutService struct {
	db                *gorm.DB
	wallet            *WalletService
	taxRecords        *TaxRecordService
	rail              settlement.Rail
	taxRates          tax.RateTable
	minAmount         decimal.Decimal
	settlementTimeout time.Duration
}

func NewPayoutService(db *gorm.DB, wallet *WalletService, taxRecords *TaxRecordService,
	rail settlement.Rail, taxRates tax.RateTable, minAmount decimal.Decimal,
	settlementTimeout time.Duration) *PayoutService {
	return &PayoutService{
		db:                db,
		wallet:            wallet,
		taxRecords:        taxRecords,
		rail:              rail,
		taxRates:          taxRates,
		minAmount:         minAmount,
		settlementTimeout: settlementTimeout,
	}
}

// RequestInput describes a new withdrawal
type RequestInput struct {
	OwnerType   model.OwnerType
	OwnerID     uint64
	Amount      decimal.Decimal
	Method      string
	PayeeName   string
	BankAccount string
	IFSCCode    string
	UPIHandle   string
	TaxExempt   bool
}

// Request validates the withdrawal against the available balance, computes
// the tax breakdown and stores the payout in requested. No ledger entry is
// written yet.
func (s *PayoutService) Request(ctx context.Context, in RequestInput) (*model.PayoutRequest, error) {
	if in.Method != model.PayoutMethodBank && in.Method != model.PayoutMethodUPI {
		return nil, errno.ErrValidation
	}
	if !in.Amount.IsPositive() {
		return nil, errno.ErrValidation
	}
	if in.Amount.LessThan(s.minAmount) {
		return nil, errno.ErrPayoutBelowMinimum
	}

	breakdown, err := tax.ForWithdrawal(in.Amount, s.taxRates, in.TaxExempt)
	if err != nil {
		return nil, err
	}

	var payout model.PayoutRequest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the wallet so concurrent requests cannot both pass the
		// available-balance check.
		if _, err := s.wallet.lockWallet(tx, in.OwnerType, in.OwnerID); err != nil {
			return err
		}
		available, err := s.wallet.availableBalanceTx(tx, in.OwnerType, in.OwnerID)
		if err != nil {
			return err
		}
		if available.LessThan(in.Amount) {
			return errno.ErrInsufficientBalance
		}

		payout = model.PayoutRequest{
			OwnerType:       in.OwnerType,
			OwnerID:         in.OwnerID,
			Amount:          in.Amount,
			Method:          in.Method,
			Status:          model.PayoutRequested,
			PayeeName:       in.PayeeName,
			BankAccount:     in.BankAccount,
			IFSCCode:        in.IFSCCode,
			UPIHandle:       in.UPIHandle,
			TDSAmount:       breakdown.TDSAmount,
			TDSRate:         breakdown.TDSRate,
			GSTAmount:       breakdown.GSTAmount,
			GSTRate:         breakdown.GSTRate,
			NetPayoutAmount: breakdown.NetAmount,
			RequestedAt:     time.Now(),
		}
		return tx.Create(&payout).Error
	})
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

// Approve moves a requested payout to approved
func (s *PayoutService) Approve(ctx context.Context, payoutID uint64, actor string) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&model.PayoutRequest{}).
		Where("id = ? AND status = ?", payoutID, model.PayoutRequested).
		Updates(map[string]interface{}{
			"status":      model.PayoutApproved,
			"approved_at": now,
			"approved_by": actor,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.transitionConflict(ctx, payoutID, model.PayoutApproved)
	}
	return nil
}

// Reject declines a payout still in requested or approved. Nothing was
// debited, so there is nothing to reverse.
func (s *PayoutService) Reject(ctx context.Context, payoutID uint64, actor, reason string) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&model.PayoutRequest{}).
		Where("id = ? AND status IN ?", payoutID,
			[]string{model.PayoutRequested, model.PayoutApproved}).
		Updates(map[string]interface{}{
			"status":           model.PayoutRejected,
			"rejected_at":      now,
			"rejected_by":      actor,
			"rejection_reason": reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.transitionConflict(ctx, payoutID, model.PayoutRejected)
	}
	return nil
}

// Process locks the funds in the ledger and submits the transfer to the
// settlement rail. The ledger debit commits before the rail is called; if
// the rail rejects or times out the payout fails and Fail reverses the
// debit. A rail success leaves the payout in processing until the provider
// confirms and Complete is called.
func (s *PayoutService) Process(ctx context.Context, payoutID uint64, actor string) error {
	var payout model.PayoutRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&payout, "id = ?", payoutID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errno.ErrPayoutNotFound
		}
		if err != nil {
			return err
		}
		if !model.PayoutCanTransition(payout.Status, model.PayoutProcessing) {
			return payoutConflict(payout.Status, model.PayoutProcessing)
		}

		entry, err := s.wallet.AppendTx(tx, AppendInput{
			OwnerType: payout.OwnerType, OwnerID: payout.OwnerID,
			Type: model.TxWithdrawalRequested, Amount: payout.NetPayoutAmount,
			Description:   "withdrawal locked for settlement",
			ReferenceType: "payout", ReferenceID: payout.ID,
			Tax: tax.Breakdown{
				TDSAmount: payout.TDSAmount, TDSRate: payout.TDSRate,
				GSTAmount: payout.GSTAmount, GSTRate: payout.GSTRate,
				NetAmount: payout.NetPayoutAmount,
			},
			ProcessedBy: actor,
		})
		if err != nil {
			return err
		}

		now := time.Now()
		payout.Status = model.PayoutProcessing
		payout.ProcessedAt = &now
		payout.LedgerEntryID = entry.ID
		return tx.Model(&model.PayoutRequest{}).
			Where("id = ?", payout.ID).
			Updates(map[string]interface{}{
				"status":          model.PayoutProcessing,
				"processed_at":    now,
				"ledger_entry_id": entry.ID,
			}).Error
	})
	s.wallet.FreezeOnMismatch(ctx, err, payout.OwnerType, payout.OwnerID)
	if err != nil {
		return err
	}

	railCtx, cancel := context.WithTimeout(ctx, s.settlementTimeout)
	defer cancel()
	ref, err := s.rail.Settle(railCtx, settlement.Instruction{
		PayoutID:       payout.ID,
		IdempotencyKey: uuid.NewString(),
		Amount:         payout.NetPayoutAmount,
		Method:         payout.Method,
		AccountNumber:  payout.BankAccount,
		IFSCCode:       payout.IFSCCode,
		UPIHandle:      payout.UPIHandle,
		PayeeName:      payout.PayeeName,
	})
	if err != nil {
		reason := "settlement submission failed: " + err.Error()
		if errors.Is(err, errno.ErrSettlementTimeout) {
			reason = "settlement submission timed out"
		} else if errors.Is(err, errno.ErrSettlementRejected) {
			reason = "settlement rejected by provider"
		}
		if failErr := s.Fail(ctx, payout.ID, reason); failErr != nil {
			logger.Error("failed to fail payout after settlement error",
				zap.Uint64("payout_id", payout.ID),
				zap.Error(failErr))
			return failErr
		}
		return err
	}

	if err := s.db.WithContext(ctx).Model(&model.PayoutRequest{}).
		Where("id = ?", payout.ID).
		Update("external_ref", ref).Error; err != nil {
		return err
	}
	logger.Info("payout submitted to settlement rail",
		zap.Uint64("payout_id", payout.ID),
		zap.String("external_ref", ref))
	return nil
}

// Complete settles a processing payout: the pending ledger debit completes,
// the TDS bucket accumulates and the completion event goes to the outbox.
func (s *PayoutService) Complete(ctx context.Context, payoutID uint64, actor string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payout model.PayoutRequest
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&payout, "id = ?", payoutID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errno.ErrPayoutNotFound
		}
		if err != nil {
			return err
		}
		if !model.PayoutCanTransition(payout.Status, model.PayoutCompleted) {
			return payoutConflict(payout.Status, model.PayoutCompleted)
		}

		// The pending lock settles as a withdrawal_completed debit; both
		// withdrawal types carry the same sign, so the chain is untouched.
		if err := s.wallet.CompleteEntry(tx, payout.LedgerEntryID, actor, model.TxWithdrawalCompleted); err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Model(&model.PayoutRequest{}).
			Where("id = ?", payout.ID).
			Updates(map[string]interface{}{
				"status":       model.PayoutCompleted,
				"completed_at": now,
			}).Error; err != nil {
			return err
		}

		if payout.TDSAmount.IsPositive() {
			if err := s.taxRecords.UpsertTx(tx, payout.OwnerType, payout.OwnerID,
				model.TaxTDS, payout.Amount, payout.TDSAmount, now); err != nil {
				return err
			}
		}

		monitor.Business.PayoutTotal.WithLabelValues("completed").Inc()
		return model.CreateOutboxMessage(tx, event.TopicPayoutCompleted,
			ownerKey(payout.OwnerType, payout.OwnerID),
			event.PayoutCompletedEvent{
				PayoutID:    payout.ID,
				OwnerType:   string(payout.OwnerType),
				OwnerID:     payout.OwnerID,
				NetAmount:   payout.NetPayoutAmount.String(),
				ExternalRef: payout.ExternalRef,
			})
	})
}

// Fail reverses a processing payout: the pending debit completes as part of
// history and a compensating withdrawal_reversed credit restores the funds.
func (s *PayoutService) Fail(ctx context.Context, payoutID uint64, reason string) error {
	var ownerType model.OwnerType
	var ownerID uint64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payout model.PayoutRequest
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&payout, "id = ?", payoutID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errno.ErrPayoutNotFound
		}
		if err != nil {
			return err
		}
		if !model.PayoutCanTransition(payout.Status, model.PayoutFailed) {
			return payoutConflict(payout.Status, model.PayoutFailed)
		}
		ownerType, ownerID = payout.OwnerType, payout.OwnerID

		// The original debit is kept as history and a compensating credit
		// restores the balance, so the fold still closes.
		if err := s.wallet.CompleteEntry(tx, payout.LedgerEntryID, "system", ""); err != nil {
			return err
		}
		if _, err := s.wallet.AppendTx(tx, AppendInput{
			OwnerType: payout.OwnerType, OwnerID: payout.OwnerID,
			Type: model.TxWithdrawalReversed, Amount: payout.NetPayoutAmount,
			Description:   "withdrawal reversed: " + reason,
			ReferenceType: "payout", ReferenceID: payout.ID,
			ProcessedBy:   "system",
		}); err != nil {
			return err
		}

		if err := tx.Model(&model.PayoutRequest{}).
			Where("id = ?", payout.ID).
			Updates(map[string]interface{}{
				"status":         model.PayoutFailed,
				"failure_reason": reason,
			}).Error; err != nil {
			return err
		}

		monitor.Business.PayoutTotal.WithLabelValues("failed").Inc()
		return model.CreateOutboxMessage(tx, event.TopicPayoutFailed,
			ownerKey(payout.OwnerType, payout.OwnerID),
			event.PayoutFailedEvent{
				PayoutID:  payout.ID,
				OwnerType: string(payout.OwnerType),
				OwnerID:   payout.OwnerID,
				NetAmount: payout.NetPayoutAmount.String(),
				Reason:    reason,
			})
	})
	s.wallet.FreezeOnMismatch(ctx, err, ownerType, ownerID)
	return err
}

// Get loads one payout
func (s *PayoutService) Get(ctx context.Context, payoutID uint64) (*model.PayoutRequest, error) {
	var payout model.PayoutRequest
	err := s.db.WithContext(ctx).First(&payout, "id = ?", payoutID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errno.ErrPayoutNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

// ListPending returns payouts awaiting admin action, oldest first
func (s *PayoutService) ListPending(ctx context.Context, limit int) ([]model.PayoutRequest, error) {
	var payouts []model.PayoutRequest
	q := s.db.WithContext(ctx).
		Where("status IN ?", []string{model.PayoutRequested, model.PayoutApproved}).
		Order("requested_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return payouts, q.Find(&payouts).Error
}

// ListByOwner returns an owner's payout history, newest first
func (s *PayoutService) ListByOwner(ctx context.Context, ownerType model.OwnerType, ownerID uint64, limit int) ([]model.PayoutRequest, error) {
	var payouts []model.PayoutRequest
	q := s.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		Order("requested_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return payouts, q.Find(&payouts).Error
}

// transitionConflict distinguishes a missing payout from an illegal
// transition after a conditional update matched no rows
func (s *PayoutService) transitionConflict(ctx context.Context, payoutID uint64, target string) error {
	var payout model.PayoutRequest
	err := s.db.WithContext(ctx).First(&payout, "id = ?", payoutID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errno.ErrPayoutNotFound
	}
	if err != nil {
		return err
	}
	return payoutConflict(payout.Status, target)
}

// payoutConflict classifies a refused transition against the payout state
// table. Reaching the target already, or any terminal state, reads as a
// repeat of work that is done; everything else is an illegal move.
func payoutConflict(current, target string) error {
	if current == target || model.PayoutIsTerminal(current) {
		return errno.ErrAlreadyProcessed
	}
	return errno.ErrInvalidState
}
