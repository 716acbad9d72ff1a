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
	"ledger-core/internal/tax"
	"ledger-core/pkg/errno"
	"ledger-core/pkg/logger"
	"ledger-core/pkg/monitor"
)

// DistributionService turns a completed service request into a persisted
// split and, once escrow is released and approvals are in, into wallet
// ledger entries.
type DistributionService struct {
	db               *gorm.DB
	wallet           *WalletService
	taxRecords       *TaxRecordService
	commissionRate   decimal.Decimal
	retentionRate    decimal.Decimal
	policy           CalcPolicy
	requiresApproval bool
	taxRates         tax.RateTable
}

func NewDistributionService(db *gorm.DB, wallet *WalletService, taxRecords *TaxRecordService,
	commissionRate, retentionRate decimal.Decimal, policy CalcPolicy, requiresApproval bool,
	taxRates tax.RateTable) *DistributionService {
	return &DistributionService{
		db:               db,
		wallet:           wallet,
		taxRecords:       taxRecords,
		commissionRate:   commissionRate,
		retentionRate:    retentionRate,
		policy:           policy,
		requiresApproval: requiresApproval,
		taxRates:         taxRates,
	}
}

// CreateFromCompletion builds and persists the distribution for a completed
// service request. Idempotent against MQ redelivery: an existing
// distribution for the payment is returned as-is.
func (s *DistributionService) CreateFromCompletion(ctx context.Context, evt event.ServiceRequestCompletedEvent) (*model.ProjectDistribution, error) {
	if evt.FirmID == 0 || len(evt.Contributors) == 0 {
		return nil, errno.ErrValidation
	}

	var payment model.Payment
	err := s.db.WithContext(ctx).
		Where("service_request_id = ? AND status IN ?", evt.ServiceRequestID,
			[]string{model.PaymentHeld, model.PaymentReleased}).
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errno.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}

	var existing model.ProjectDistribution
	err = s.db.WithContext(ctx).Preload("Shares").
		Where("payment_id = ?", payment.ID).First(&existing).Error
	if err == nil {
		logger.Debug("distribution already exists for payment", zap.Uint64("payment_id", payment.ID))
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	contributors, overrides, err := s.resolveContributors(ctx, evt)
	if err != nil {
		return nil, err
	}

	in := CalcInput{
		TotalAmount:          payment.Amount,
		CommissionRate:       s.commissionRate,
		RetentionRate:        s.retentionRate,
		EarlyCompletionBonus: parseAmount(evt.EarlyCompletionBonus),
		QualityBonus:         parseAmount(evt.QualityBonus),
		ReferralBonus:        parseAmount(evt.ReferralBonus),
		Contributors:         contributors,
		Policy:               s.policy,
	}
	result, err := Calculate(in)
	if err != nil {
		return nil, err
	}

	dist := model.ProjectDistribution{
		ServiceRequestID:     evt.ServiceRequestID,
		PaymentID:            payment.ID,
		FirmID:               evt.FirmID,
		TotalAmount:          payment.Amount,
		PlatformCommission:   result.PlatformCommission,
		FirmRetention:        result.FirmRetention,
		DistributionAmount:   result.DistributionAmount,
		BonusPool:            result.BonusPool,
		EarlyCompletionBonus: in.EarlyCompletionBonus,
		QualityBonus:         in.QualityBonus,
		ReferralBonus:        in.ReferralBonus,
		RequiresApproval:     s.requiresApproval,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&dist).Error; err != nil {
			return err
		}
		for i, share := range result.Shares {
			row := model.DistributionShare{
				DistributionID:    dist.ID,
				ProfessionalID:    share.ProfessionalID,
				Percentage:        share.Percentage,
				BaseAmount:        share.BaseAmount,
				BonusAmount:       share.BonusAmount,
				TotalAmount:       share.TotalAmount,
				ContributionHours: contributors[i].Hours,
				BandOverridden:    contributors[i].BandOverride,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			dist.Shares = append(dist.Shares, row)
		}
		for i := range overrides {
			overrides[i].DistributionID = dist.ID
			if err := tx.Create(&overrides[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	// Two concurrent redeliveries can both pass the existence check; the
	// unique index on payment_id lets exactly one insert win and the loser
	// returns the winner's row.
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		var winner model.ProjectDistribution
		if loadErr := s.db.WithContext(ctx).Preload("Shares").
			Where("payment_id = ?", payment.ID).First(&winner).Error; loadErr != nil {
			return nil, loadErr
		}
		logger.Debug("lost distribution create race, returning existing row",
			zap.Uint64("payment_id", payment.ID))
		return &winner, nil
	}
	if err != nil {
		return nil, err
	}
	return &dist, nil
}

// resolveContributors fills in template percentages and bands, collecting
// audit rows for any out-of-band override
func (s *DistributionService) resolveContributors(ctx context.Context, evt event.ServiceRequestCompletedEvent) ([]ContributorInput, []model.PercentageOverride, error) {
	contributors := make([]ContributorInput, 0, len(evt.Contributors))
	var overrides []model.PercentageOverride

	for _, c := range evt.Contributors {
		in := ContributorInput{
			ProfessionalID: c.ProfessionalID,
			Hours:          parseAmount(c.Hours),
		}

		var tpl model.DistributionTemplate
		err := s.db.WithContext(ctx).
			Where("firm_id = ? AND role = ?", evt.FirmID, c.Role).
			First(&tpl).Error
		hasTemplate := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, err
		}
		if hasTemplate && !tpl.IsActive {
			return nil, nil, errno.ErrTemplateInactive
		}

		if c.Percentage == "" {
			if !hasTemplate {
				return nil, nil, errno.ErrValidation
			}
			in.Percentage = tpl.DefaultPercentage
		} else {
			pct, err := decimal.NewFromString(c.Percentage)
			if err != nil {
				return nil, nil, errno.ErrValidation
			}
			in.Percentage = pct
		}

		if hasTemplate {
			in.Band = &Band{TemplateID: tpl.ID, Min: tpl.MinPercentage, Max: tpl.MaxPercentage}
			outOfBand := in.Percentage.LessThan(tpl.MinPercentage) || in.Percentage.GreaterThan(tpl.MaxPercentage)
			if outOfBand {
				// A negotiated percentage outside the band counts as a
				// firm-admin override. Allowed, but always recorded.
				in.BandOverride = true
				overrides = append(overrides, model.PercentageOverride{
					ProfessionalID: c.ProfessionalID,
					TemplateID:     tpl.ID,
					Percentage:     in.Percentage,
					MinPercentage:  tpl.MinPercentage,
					MaxPercentage:  tpl.MaxPercentage,
					Actor:          "firm_admin",
					Reason:         "negotiated percentage outside template band",
				})
				logger.Warn("percentage outside template band, recording override",
					zap.Uint64("professional_id", c.ProfessionalID),
					zap.String("percentage", in.Percentage.String()))
			}
		}

		contributors = append(contributors, in)
	}
	return contributors, overrides, nil
}

// ApproveShare records a contributing professional's sign-off on their cut.
// When every share is approved the distribution itself flips to approved.
func (s *DistributionService) ApproveShare(ctx context.Context, distributionID, professionalID uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&model.DistributionShare{}).
			Where("distribution_id = ? AND professional_id = ? AND approved_by_ca = ?",
				distributionID, professionalID, false).
			Updates(map[string]interface{}{
				"approved_by_ca":  true,
				"approved_at":     now,
				"signature_token": uuid.NewString(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			tx.Model(&model.DistributionShare{}).
				Where("distribution_id = ? AND professional_id = ?", distributionID, professionalID).
				Count(&count)
			if count == 0 {
				return errno.ErrDistributionNotFound
			}
			return errno.ErrAlreadyProcessed
		}

		var pending int64
		if err := tx.Model(&model.DistributionShare{}).
			Where("distribution_id = ? AND approved_by_ca = ?", distributionID, false).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending == 0 {
			return tx.Model(&model.ProjectDistribution{}).
				Where("id = ? AND is_approved = ?", distributionID, false).
				Updates(map[string]interface{}{
					"is_approved": true,
					"approved_at": now,
					"approved_by": "all_contributors",
				}).Error
		}
		return nil
	})
}

// OverrideApproval lets a firm admin approve on behalf of all contributors
func (s *DistributionService) OverrideApproval(ctx context.Context, distributionID uint64, actor string) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&model.ProjectDistribution{}).
		Where("id = ? AND is_approved = ? AND is_distributed = ?", distributionID, false, false).
		Updates(map[string]interface{}{
			"is_approved": true,
			"approved_at": now,
			"approved_by": actor,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errno.ErrAlreadyProcessed
	}
	logger.Warn("distribution approval overridden by admin",
		zap.Uint64("distribution_id", distributionID),
		zap.String("actor", actor))
	return nil
}

// Execute writes the ledger entries for an approved distribution. The firm
// is credited with the full project amount and debited the platform
// commission and every contributor's cut; contributors are credited base
// and bonus separately. All entries and the distributed flag commit
// atomically. Re-running fails with AlreadyProcessed and writes nothing.
func (s *DistributionService) Execute(ctx context.Context, distributionID uint64, actor string) error {
	var firmID uint64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dist model.ProjectDistribution
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&dist, "id = ?", distributionID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errno.ErrDistributionNotFound
		}
		if err != nil {
			return err
		}
		firmID = dist.FirmID

		if dist.IsDistributed {
			return errno.ErrAlreadyProcessed
		}
		if dist.RequiresApproval && !dist.IsApproved {
			return errno.ErrDistributionNotApproved
		}

		var payment model.Payment
		if err := tx.First(&payment, "id = ?", dist.PaymentID).Error; err != nil {
			return err
		}
		if payment.Status != model.PaymentReleased {
			return errno.ErrEscrowNotReleased
		}

		var shares []model.DistributionShare
		if err := tx.Where("distribution_id = ?", dist.ID).Order("id ASC").Find(&shares).Error; err != nil {
			return err
		}

		// Firm side: full amount in, commission and contributor cuts out.
		if _, err := s.wallet.AppendTx(tx, AppendInput{
			OwnerType: model.OwnerFirm, OwnerID: dist.FirmID,
			Type: model.TxPaymentReceived, Amount: dist.TotalAmount,
			Description:   "project payment received",
			ReferenceType: "payment", ReferenceID: payment.ID,
			ProcessedBy: actor,
		}); err != nil {
			return err
		}
		if dist.PlatformCommission.IsPositive() {
			if _, err := s.wallet.AppendTx(tx, AppendInput{
				OwnerType: model.OwnerFirm, OwnerID: dist.FirmID,
				Type: model.TxCommissionDeducted, Amount: dist.PlatformCommission,
				Description:   "platform commission",
				ReferenceType: "distribution", ReferenceID: dist.ID,
				ProcessedBy: actor,
			}); err != nil {
				return err
			}
		}

		now := time.Now()
		for _, share := range shares {
			if !share.TotalAmount.IsPositive() {
				continue
			}
			if _, err := s.wallet.AppendTx(tx, AppendInput{
				OwnerType: model.OwnerFirm, OwnerID: dist.FirmID,
				Type: model.TxDistributionPaid, Amount: share.TotalAmount,
				Description:   "contributor share paid out",
				ReferenceType: "distribution", ReferenceID: dist.ID,
				ProcessedBy: actor,
			}); err != nil {
				return err
			}

			gst, err := tax.Compute(share.BaseAmount, tax.GST, s.taxRates, false)
			if err != nil {
				return err
			}
			if _, err := s.wallet.AppendTx(tx, AppendInput{
				OwnerType: model.OwnerProfessional, OwnerID: share.ProfessionalID,
				Type: model.TxDistributionReceived, Amount: share.BaseAmount,
				Description:   "distribution share received",
				ReferenceType: "distribution", ReferenceID: dist.ID,
				Tax: tax.Breakdown{
					GSTAmount: gst.TaxAmount,
					GSTRate:   s.taxRates[tax.GST],
					NetAmount: share.BaseAmount,
				},
				ProcessedBy: actor,
			}); err != nil {
				return err
			}
			if err := s.taxRecords.UpsertTx(tx, model.OwnerProfessional, share.ProfessionalID,
				model.TaxGST, share.BaseAmount, gst.TaxAmount, now); err != nil {
				return err
			}

			if share.BonusAmount.IsPositive() {
				if _, err := s.wallet.AppendTx(tx, AppendInput{
					OwnerType: model.OwnerProfessional, OwnerID: share.ProfessionalID,
					Type: model.TxBonusReceived, Amount: share.BonusAmount,
					Description:   "distribution bonus received",
					ReferenceType: "distribution", ReferenceID: dist.ID,
					ProcessedBy: actor,
				}); err != nil {
					return err
				}
			}
		}

		if err := tx.Model(&model.ProjectDistribution{}).
			Where("id = ?", dist.ID).
			Updates(map[string]interface{}{
				"is_distributed": true,
				"distributed_at": now,
			}).Error; err != nil {
			return err
		}

		monitor.Business.DistributionAmountTotal.WithLabelValues("commission").
			Add(toFloat(dist.PlatformCommission))
		monitor.Business.DistributionAmountTotal.WithLabelValues("retention").
			Add(toFloat(dist.FirmRetention))
		monitor.Business.DistributionAmountTotal.WithLabelValues("shares").
			Add(toFloat(dist.DistributionAmount))

		return model.CreateOutboxMessage(tx, event.TopicDistributionExecuted,
			ownerKey(model.OwnerFirm, dist.FirmID),
			event.DistributionExecutedEvent{
				DistributionID:     dist.ID,
				ServiceRequestID:   dist.ServiceRequestID,
				FirmID:             dist.FirmID,
				TotalAmount:        dist.TotalAmount.String(),
				PlatformCommission: dist.PlatformCommission.String(),
				ContributorCount:   len(shares),
			})
	})
	s.wallet.FreezeOnMismatch(ctx, err, model.OwnerFirm, firmID)
	return err
}

// Get loads a distribution with its shares
func (s *DistributionService) Get(ctx context.Context, distributionID uint64) (*model.ProjectDistribution, error) {
	var dist model.ProjectDistribution
	err := s.db.WithContext(ctx).Preload("Shares").First(&dist, "id = ?", distributionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errno.ErrDistributionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &dist, nil
}

// PendingApprovals lists a firm's distributions still waiting on sign-off
func (s *DistributionService) PendingApprovals(ctx context.Context, firmID uint64) ([]model.ProjectDistribution, error) {
	var dists []model.ProjectDistribution
	err := s.db.WithContext(ctx).Preload("Shares").
		Where("firm_id = ? AND requires_approval = ? AND is_approved = ? AND is_distributed = ?",
			firmID, true, false, false).
		Order("id ASC").
		Find(&dists).Error
	return dists, err
}

func parseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
