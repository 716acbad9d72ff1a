package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ledger-core/internal/event"
	"ledger-core/internal/model"
	"ledger-core/internal/tax"
	"ledger-core/pkg/errno"
	"ledger-core/pkg/logger"
	"ledger-core/pkg/money"
	"ledger-core/pkg/monitor"
)

// EscrowService owns the payment lifecycle from capture to release or
// refund. Transitions race-safely via conditional updates: only one
// release or refund can win on a payment, the loser observes the terminal
// state. No external locking is involved.
type EscrowService struct {
	db             *gorm.DB
	wallet         *WalletService
	commissionRate decimal.Decimal
	taxRates       tax.RateTable
	sweepBatchSize int
}

func NewEscrowService(db *gorm.DB, wallet *WalletService, commissionRate decimal.Decimal, taxRates tax.RateTable, sweepBatchSize int) *EscrowService {
	if sweepBatchSize <= 0 {
		sweepBatchSize = 200
	}
	return &EscrowService{
		db:             db,
		wallet:         wallet,
		commissionRate: commissionRate,
		taxRates:       taxRates,
		sweepBatchSize: sweepBatchSize,
	}
}

// Create opens a pending payment for a service request. At most one
// non-terminal payment may exist per request.
func (s *EscrowService) Create(ctx context.Context, serviceRequestID, firmID, professionalID uint64, amount decimal.Decimal) (*model.Payment, error) {
	if !amount.IsPositive() {
		return nil, errno.ErrValidation
	}
	// Someone must be there to credit on release
	if firmID == 0 && professionalID == 0 {
		return nil, errno.ErrValidation
	}

	var p model.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Payment{}).
			Where("service_request_id = ? AND status IN ?", serviceRequestID,
				[]string{model.PaymentPending, model.PaymentHeld}).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errno.ErrDuplicatePayment
		}

		p = model.Payment{
			ServiceRequestID: serviceRequestID,
			FirmID:           firmID,
			ProfessionalID:   professionalID,
			Amount:           money.Round2(amount),
			Status:           model.PaymentPending,
			CreditedAmount:   decimal.Zero,
		}
		return tx.Create(&p).Error
	})
	// A concurrent twin can slip past the count; the partial unique index on
	// open payments is the backstop.
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, errno.ErrDuplicatePayment
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Capture moves a pending payment into escrow and fixes the auto-release
// deadline. The deadline is immutable thereafter.
func (s *EscrowService) Capture(ctx context.Context, paymentID uint64, autoReleaseAfter time.Duration) (*model.Payment, error) {
	now := time.Now()
	releaseAt := now.Add(autoReleaseAfter)

	res := s.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ? AND status = ?", paymentID, model.PaymentPending).
		Updates(map[string]interface{}{
			"status":          model.PaymentHeld,
			"captured_at":     now,
			"auto_release_at": releaseAt,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := s.Get(ctx, paymentID); err != nil {
			return nil, err
		}
		return nil, errno.ErrInvalidState
	}

	monitor.Business.EscrowCapturedTotal.Inc()
	return s.Get(ctx, paymentID)
}

// Release moves a held payment to released. Idempotent under races: the
// second caller observes the terminal state and no-ops (released=false,
// err=nil). For solo professionals the distributable amount, net of
// platform commission, is credited to their wallet in the same transaction.
func (s *EscrowService) Release(ctx context.Context, paymentID uint64, actor string) (bool, error) {
	released := false
	var p model.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&model.Payment{}).
			Where("id = ? AND status = ? AND escrow_released_at IS NULL", paymentID, model.PaymentHeld).
			Updates(map[string]interface{}{
				"status":                   model.PaymentReleased,
				"escrow_released_at":       now,
				"released_by":              actor,
				"released_to_professional": true,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race or illegal transition: look at what is there.
			if err := tx.First(&p, "id = ?", paymentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errno.ErrPaymentNotFound
				}
				return err
			}
			if p.Status == model.PaymentReleased {
				return nil // already released, no-op
			}
			return errno.ErrEscrowNotHeld
		}
		released = true

		if err := tx.First(&p, "id = ?", paymentID).Error; err != nil {
			return err
		}

		// Solo professionals are credited directly; firm projects are
		// credited when their distribution executes.
		if p.FirmID == 0 && p.ProfessionalID != 0 {
			commission := money.ApplyRate(p.Amount, s.commissionRate)
			credit := p.Amount.Sub(commission)

			gst, err := tax.Compute(credit, tax.GST, s.taxRates, false)
			if err != nil {
				return err
			}
			_, err = s.wallet.AppendTx(tx, AppendInput{
				OwnerType:     model.OwnerProfessional,
				OwnerID:       p.ProfessionalID,
				Type:          model.TxPaymentReceived,
				Amount:        credit,
				Description:   "escrow release, net of platform commission",
				ReferenceType: "payment",
				ReferenceID:   p.ID,
				Tax: tax.Breakdown{
					GSTAmount: gst.TaxAmount,
					GSTRate:   s.taxRates[tax.GST],
					NetAmount: credit,
				},
				ProcessedBy: actor,
			})
			if err != nil {
				return err
			}

			if err := tx.Model(&model.Payment{}).Where("id = ?", p.ID).
				Update("credited_amount", credit).Error; err != nil {
				return err
			}
			p.CreditedAmount = credit
		}

		return model.CreateOutboxMessage(tx, event.TopicEscrowReleased, ownerKey(model.OwnerProfessional, p.ProfessionalID),
			event.EscrowReleasedEvent{
				PaymentID:        p.ID,
				ServiceRequestID: p.ServiceRequestID,
				FirmID:           p.FirmID,
				ProfessionalID:   p.ProfessionalID,
				Amount:           p.Amount.String(),
				Cause:            actor,
			})
	})
	if err != nil {
		s.wallet.FreezeOnMismatch(ctx, err, model.OwnerProfessional, p.ProfessionalID)
		return false, err
	}

	if released {
		cause := "manual"
		if actor == AutoReleaseActor {
			cause = "auto"
		}
		monitor.Business.EscrowReleasedTotal.WithLabelValues(cause).Inc()
		logger.Info("escrow released",
			zap.Uint64("payment_id", paymentID),
			zap.String("actor", actor))
	}
	return released, nil
}

// Refund returns a held payment to the client. Disallowed once released.
func (s *EscrowService) Refund(ctx context.Context, paymentID uint64, actor, reason string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&model.Payment{}).
			Where("id = ? AND status = ? AND escrow_released_at IS NULL", paymentID, model.PaymentHeld).
			Updates(map[string]interface{}{
				"status":        model.PaymentRefunded,
				"refunded_at":   now,
				"refunded_by":   actor,
				"refund_reason": reason,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var p model.Payment
			if err := tx.First(&p, "id = ?", paymentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errno.ErrPaymentNotFound
				}
				return err
			}
			if p.Status == model.PaymentReleased {
				return errno.ErrInvalidState
			}
			return errno.ErrEscrowNotHeld
		}

		var p model.Payment
		if err := tx.First(&p, "id = ?", paymentID).Error; err != nil {
			return err
		}
		return model.CreateOutboxMessage(tx, event.TopicEscrowRefunded, ownerKey(model.OwnerFirm, p.FirmID),
			event.EscrowRefundedEvent{
				PaymentID:        p.ID,
				ServiceRequestID: p.ServiceRequestID,
				Amount:           p.Amount.String(),
				Reason:           reason,
			})
	})
	if err == nil {
		monitor.Business.EscrowRefundedTotal.Inc()
	}
	return err
}

// MarkFailed moves a pending payment to failed (gateway capture failure)
func (s *EscrowService) MarkFailed(ctx context.Context, paymentID uint64, reason string) error {
	res := s.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ? AND status = ?", paymentID, model.PaymentPending).
		Updates(map[string]interface{}{
			"status":         model.PaymentFailed,
			"failure_reason": reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errno.ErrInvalidState
	}
	return nil
}

// Get loads one payment
func (s *EscrowService) Get(ctx context.Context, paymentID uint64) (*model.Payment, error) {
	var p model.Payment
	err := s.db.WithContext(ctx).First(&p, "id = ?", paymentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errno.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// AutoReleaseActor is the cause recorded for sweep-driven releases
const AutoReleaseActor = "auto_release"

// SweepSummary reports one auto-release sweep run
type SweepSummary struct {
	Processed int          `json:"processed"`
	Released  int          `json:"released"`
	Failed    int          `json:"failed"`
	Errors    []SweepError `json:"errors,omitempty"`
}

// SweepError records one per-payment failure inside a sweep
type SweepError struct {
	PaymentID uint64 `json:"payment_id"`
	Reason    string `json:"reason"`
}

// AutoReleaseSweep releases every held payment whose deadline has passed.
// Failures are isolated per payment: one bad payment never blocks the rest.
// Safe to run concurrently with itself; the conditional update inside
// Release guarantees at most one release per payment.
func (s *EscrowService) AutoReleaseSweep(ctx context.Context, now time.Time) (SweepSummary, error) {
	start := time.Now()

	var due []model.Payment
	err := s.db.WithContext(ctx).
		Select("id").
		Where("status = ? AND auto_release_at <= ? AND escrow_released_at IS NULL", model.PaymentHeld, now).
		Order("auto_release_at ASC").
		Limit(s.sweepBatchSize).
		Find(&due).Error
	if err != nil {
		return SweepSummary{}, err
	}

	ids := make([]uint64, len(due))
	for i, p := range due {
		ids[i] = p.ID
	}

	summary := runSweep(ids, func(id uint64) (bool, error) {
		return s.Release(ctx, id, AutoReleaseActor)
	})

	monitor.Business.SweepDuration.Observe(time.Since(start).Seconds())
	if summary.Processed > 0 {
		logger.Info("auto-release sweep finished",
			zap.Int("processed", summary.Processed),
			zap.Int("released", summary.Released),
			zap.Int("failed", summary.Failed))
	}
	return summary, nil
}

// runSweep drives the per-item release loop. Split out so the failure
// isolation contract is testable without a database.
func runSweep(ids []uint64, release func(id uint64) (bool, error)) SweepSummary {
	summary := SweepSummary{Processed: len(ids)}
	for _, id := range ids {
		released, err := release(id)
		if err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, SweepError{PaymentID: id, Reason: err.Error()})
			monitor.Business.SweepFailedTotal.Inc()
			logger.Error("sweep: release failed", zap.Uint64("payment_id", id), zap.Error(err))
			continue
		}
		if released {
			summary.Released++
		}
	}
	return summary
}
