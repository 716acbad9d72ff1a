package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ledger-core/internal/model"
	"ledger-core/internal/tax"
	"ledger-core/pkg/errno"
)

// TaxRecordService maintains per-owner TDS/GST rollups bucketed by Indian
// financial year, quarter and month. Rows accumulate additively so the same
// bucket can absorb any number of taxable events.
type TaxRecordService struct {
	db *gorm.DB
}

func NewTaxRecordService(db *gorm.DB) *TaxRecordService {
	return &TaxRecordService{db: db}
}

// UpsertTx folds one taxable event into its bucket inside the caller's
// transaction
func (s *TaxRecordService) UpsertTx(tx *gorm.DB, ownerType model.OwnerType, ownerID uint64,
	taxType string, taxable, taxAmount decimal.Decimal, at time.Time) error {
	record := model.TaxRecord{
		OwnerType:     ownerType,
		OwnerID:       ownerID,
		TaxType:       taxType,
		FinancialYear: tax.FinancialYear(at),
		Quarter:       tax.Quarter(at),
		Month:         int(at.Month()),
		TaxableAmount: taxable,
		TaxAmount:     taxAmount,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "owner_type"}, {Name: "owner_id"}, {Name: "tax_type"},
			{Name: "financial_year"}, {Name: "quarter"}, {Name: "month"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"taxable_amount": gorm.Expr("tax_records.taxable_amount + ?", taxable),
			"tax_amount":     gorm.Expr("tax_records.tax_amount + ?", taxAmount),
			"updated_at":     at,
		}),
	}).Create(&record).Error
}

// SetFiling records the certificate (TDS) or challan (GST) reference once
// the bucket has been filed with the tax authority
func (s *TaxRecordService) SetFiling(ctx context.Context, recordID uint64, certificate, challan string) error {
	now := time.Now()
	updates := map[string]interface{}{"filed_at": now}
	if certificate != "" {
		updates["certificate_number"] = certificate
	}
	if challan != "" {
		updates["challan_number"] = challan
	}
	res := s.db.WithContext(ctx).Model(&model.TaxRecord{}).
		Where("id = ?", recordID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errno.ErrValidation
	}
	return nil
}

// List returns an owner's buckets for one financial year, newest month first
func (s *TaxRecordService) List(ctx context.Context, ownerType model.OwnerType, ownerID uint64, financialYear string) ([]model.TaxRecord, error) {
	var records []model.TaxRecord
	q := s.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID)
	if financialYear != "" {
		q = q.Where("financial_year = ?", financialYear)
	}
	err := q.Order("financial_year DESC, quarter DESC, month DESC").Find(&records).Error
	return records, err
}

// Get loads one rollup row
func (s *TaxRecordService) Get(ctx context.Context, recordID uint64) (*model.TaxRecord, error) {
	var record model.TaxRecord
	err := s.db.WithContext(ctx).First(&record, "id = ?", recordID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errno.ErrValidation
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
