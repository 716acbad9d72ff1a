package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ledger-core/internal/model"
	"ledger-core/internal/tax"
	"ledger-core/pkg/errno"
	"ledger-core/pkg/logger"
	"ledger-core/pkg/monitor"
)

// WalletService owns the append-only ledger. The wallet row is the per-owner
// serialization point: every append locks it FOR UPDATE, cross-checks the
// cached balance against the last entry, and carries the balance forward in
// the same transaction. Appends for different owners never block each other.
type WalletService struct {
	db *gorm.DB
}

func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{db: db}
}

// ownerKey builds the MQ partition key for an owner so all events for one
// wallet land on the same partition
func ownerKey(ownerType model.OwnerType, ownerID uint64) string {
	return fmt.Sprintf("%s:%d", ownerType, ownerID)
}

// AppendInput describes one ledger entry to be written
type AppendInput struct {
	OwnerType     model.OwnerType
	OwnerID       uint64
	Type          string
	Amount        decimal.Decimal // positive magnitude; adjustments carry their own sign
	Description   string
	ReferenceType string
	ReferenceID   uint64
	Tax           tax.Breakdown
	ProcessedBy   string
}

// SignedAmount converts an entry's magnitude into its balance effect
func SignedAmount(entryType string, amount decimal.Decimal) (decimal.Decimal, error) {
	switch {
	case model.IsCreditType(entryType):
		return amount, nil
	case model.IsDebitType(entryType):
		return amount.Neg(), nil
	case entryType == model.TxAdjustment:
		return amount, nil
	default:
		return decimal.Zero, errno.ErrUnknownEntryType
	}
}

// Append writes one ledger entry in its own transaction
func (s *WalletService) Append(ctx context.Context, in AppendInput) (*model.WalletTransaction, error) {
	var entry *model.WalletTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.AppendTx(tx, in)
		return err
	})
	// The freeze must survive the rollback of the failed append, so it runs
	// in its own transaction afterwards.
	s.FreezeOnMismatch(ctx, err, in.OwnerType, in.OwnerID)
	return entry, err
}

// FreezeOnMismatch freezes the owner's wallet when err is a reconciliation
// mismatch. Callers composing AppendTx into their own transactions invoke
// this after the transaction has rolled back.
func (s *WalletService) FreezeOnMismatch(ctx context.Context, err error, ownerType model.OwnerType, ownerID uint64) {
	if !errors.Is(err, errno.ErrReconciliationMismatch) {
		return
	}
	s.freeze(ctx, ownerType, ownerID, "ledger fold does not reproduce wallet balance")
}

// AppendTx writes one ledger entry inside the caller's transaction. Callers
// composing several entries (distribution execution, payout locking) use this
// so all entries commit or none do.
func (s *WalletService) AppendTx(tx *gorm.DB, in AppendInput) (*model.WalletTransaction, error) {
	signed, err := SignedAmount(in.Type, in.Amount)
	if err != nil {
		return nil, err
	}
	if in.Type != model.TxAdjustment && !in.Amount.IsPositive() {
		return nil, errno.ErrValidation
	}

	wallet, err := s.lockWallet(tx, in.OwnerType, in.OwnerID)
	if err != nil {
		return nil, err
	}

	if wallet.IsFrozen && model.IsDebitType(in.Type) {
		return nil, errno.ErrWalletFrozen
	}

	balanceBefore, err := s.lastBalance(tx, in.OwnerType, in.OwnerID)
	if err != nil {
		return nil, err
	}

	// The cached wallet balance and the tail of the log must agree before
	// anything new is written. A mismatch means the log is corrupt: the
	// append is refused and the caller freezes the wallet via
	// FreezeOnMismatch once this transaction has rolled back.
	if !wallet.Balance.Equal(balanceBefore) {
		return nil, errno.ErrReconciliationMismatch
	}

	balanceAfter := balanceBefore.Add(signed)
	if balanceAfter.IsNegative() {
		if in.Type != model.TxAdjustment {
			return nil, errno.ErrInsufficientBalance
		}
		// Administrative corrections may overdraw, but never silently.
		monitor.Business.NegativeAdjustmentTotal.Inc()
		logger.Error("adjustment drove wallet balance negative",
			zap.String("owner_type", string(in.OwnerType)),
			zap.Uint64("owner_id", in.OwnerID),
			zap.String("amount", in.Amount.String()),
			zap.String("balance_after", balanceAfter.String()),
			zap.String("actor", in.ProcessedBy))
	}

	now := time.Now()
	entry := model.WalletTransaction{
		OwnerType:     in.OwnerType,
		OwnerID:       in.OwnerID,
		Type:          in.Type,
		Status:        model.TxCompleted,
		Amount:        in.Amount,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceAfter,
		Description:   in.Description,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		TDSAmount:     in.Tax.TDSAmount,
		TDSRate:       in.Tax.TDSRate,
		GSTAmount:     in.Tax.GSTAmount,
		GSTRate:       in.Tax.GSTRate,
		NetAmount:     in.Tax.NetAmount,
		ProcessedBy:   in.ProcessedBy,
	}
	// Withdrawal locks stay pending until settlement confirms
	if in.Type == model.TxWithdrawalRequested {
		entry.Status = model.TxPending
	} else {
		entry.ProcessedAt = &now
	}

	if err := tx.Create(&entry).Error; err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"balance": balanceAfter,
		"version": gorm.Expr("version + 1"),
	}
	if err := tx.Model(&model.Wallet{}).Where("id = ?", wallet.ID).Updates(updates).Error; err != nil {
		return nil, err
	}

	monitor.Business.LedgerEntriesTotal.WithLabelValues(in.Type).Inc()
	return &entry, nil
}

// CompleteEntry transitions a pending entry to completed. A non-empty
// finalType rewrites the entry type as it settles (a withdrawal lock becomes
// withdrawal_completed); the replacement must carry the same sign so the
// balance chain stays intact. Amounts and balances are never touched.
func (s *WalletService) CompleteEntry(tx *gorm.DB, entryID uint64, actor, finalType string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":       model.TxCompleted,
		"processed_at": now,
		"processed_by": actor,
	}
	if finalType != "" {
		updates["type"] = finalType
	}
	res := tx.Model(&model.WalletTransaction{}).
		Where("id = ? AND status = ?", entryID, model.TxPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errno.ErrAlreadyProcessed
	}
	return nil
}

// Balance returns the owner's wallet row, creating it lazily
func (s *WalletService) Balance(ctx context.Context, ownerType model.OwnerType, ownerID uint64) (*model.Wallet, error) {
	var w model.Wallet
	err := s.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		w = model.Wallet{OwnerType: ownerType, OwnerID: ownerID, Balance: decimal.Zero}
		if err := s.db.WithContext(ctx).Create(&w).Error; err != nil {
			return nil, err
		}
		return &w, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// AvailableBalance is the wallet balance minus the gross amounts of the
// owner's payouts still in requested/approved. Processing payouts have
// already debited the ledger, so they are not subtracted again.
func (s *WalletService) AvailableBalance(ctx context.Context, ownerType model.OwnerType, ownerID uint64) (decimal.Decimal, error) {
	return s.availableBalanceTx(s.db.WithContext(ctx), ownerType, ownerID)
}

func (s *WalletService) availableBalanceTx(tx *gorm.DB, ownerType model.OwnerType, ownerID uint64) (decimal.Decimal, error) {
	var w model.Wallet
	err := tx.Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}

	var locked decimal.NullDecimal
	err = tx.Model(&model.PayoutRequest{}).
		Select("SUM(amount)").
		Where("owner_type = ? AND owner_id = ? AND status IN ?",
			ownerType, ownerID, []string{model.PayoutRequested, model.PayoutApproved}).
		Scan(&locked).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !locked.Valid {
		return w.Balance, nil
	}
	return w.Balance.Sub(locked.Decimal), nil
}

// Entries returns the owner's ledger in creation order
func (s *WalletService) Entries(ctx context.Context, ownerType model.OwnerType, ownerID uint64, limit int) ([]model.WalletTransaction, error) {
	var entries []model.WalletTransaction
	q := s.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return entries, q.Find(&entries).Error
}

// Fold replays entries in order and returns the resulting balance. It also
// verifies the before/after chain of every non-failed entry.
func Fold(entries []model.WalletTransaction) (decimal.Decimal, error) {
	running := decimal.Zero
	for _, e := range entries {
		if e.Status == model.TxFailed {
			continue
		}
		signed, err := SignedAmount(e.Type, e.Amount)
		if err != nil {
			return decimal.Zero, err
		}
		if !e.BalanceBefore.Equal(running) || !e.BalanceAfter.Equal(running.Add(signed)) {
			return decimal.Zero, errno.ErrReconciliationMismatch
		}
		running = e.BalanceAfter
	}
	return running, nil
}

// Reconcile folds the owner's full ledger and compares it to the wallet row.
// A mismatch is fatal for the owner: the wallet freezes and all further
// debits are refused until manual review.
func (s *WalletService) Reconcile(ctx context.Context, ownerType model.OwnerType, ownerID uint64) (decimal.Decimal, error) {
	var folded decimal.Decimal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wallet, err := s.lockWallet(tx, ownerType, ownerID)
		if err != nil {
			return err
		}

		var entries []model.WalletTransaction
		if err := tx.Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
			Order("id ASC").Find(&entries).Error; err != nil {
			return err
		}

		folded, err = Fold(entries)
		if err != nil || !folded.Equal(wallet.Balance) {
			return errno.ErrReconciliationMismatch
		}
		return nil
	})
	s.FreezeOnMismatch(ctx, err, ownerType, ownerID)
	return folded, err
}

// Unfreeze clears a frozen wallet after manual review
func (s *WalletService) Unfreeze(ctx context.Context, ownerType model.OwnerType, ownerID uint64, actor string) error {
	res := s.db.WithContext(ctx).Model(&model.Wallet{}).
		Where("owner_type = ? AND owner_id = ? AND is_frozen = ?", ownerType, ownerID, true).
		Updates(map[string]interface{}{
			"is_frozen":     false,
			"frozen_reason": "",
			"frozen_at":     nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errno.ErrWalletNotFound
	}
	logger.Warn("wallet unfrozen",
		zap.String("owner_type", string(ownerType)),
		zap.Uint64("owner_id", ownerID),
		zap.String("actor", actor))
	return nil
}

// lastBalance reads the tail of the owner's ledger. An empty ledger folds
// to zero.
func (s *WalletService) lastBalance(tx *gorm.DB, ownerType model.OwnerType, ownerID uint64) (decimal.Decimal, error) {
	var last model.WalletTransaction
	err := tx.Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		Order("id DESC").First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return last.BalanceAfter, nil
}

func (s *WalletService) lockWallet(tx *gorm.DB, ownerType model.OwnerType, ownerID uint64) (*model.Wallet, error) {
	var w model.Wallet
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		w = model.Wallet{OwnerType: ownerType, OwnerID: ownerID, Balance: decimal.Zero}
		if err := tx.Create(&w).Error; err != nil {
			return nil, err
		}
		return &w, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *WalletService) freeze(ctx context.Context, ownerType model.OwnerType, ownerID uint64, reason string) {
	now := time.Now()
	err := s.db.WithContext(ctx).Model(&model.Wallet{}).
		Where("owner_type = ? AND owner_id = ? AND is_frozen = ?", ownerType, ownerID, false).
		Updates(map[string]interface{}{
			"is_frozen":     true,
			"frozen_reason": reason,
			"frozen_at":     now,
		}).Error
	if err != nil {
		logger.Error("failed to freeze wallet",
			zap.String("owner_type", string(ownerType)),
			zap.Uint64("owner_id", ownerID),
			zap.Error(err))
		return
	}
	monitor.Business.WalletFrozenTotal.Inc()
	logger.Error("wallet frozen",
		zap.String("owner_type", string(ownerType)),
		zap.Uint64("owner_id", ownerID),
		zap.String("reason", reason))
}
