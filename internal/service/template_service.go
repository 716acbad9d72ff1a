package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"ledger-core/internal/model"
	"ledger-core/pkg/errno"
)

// TemplateService manages a firm's per-role percentage bands. Templates are
// never deleted, only deactivated, so historical overrides keep their
// referent.
type TemplateService struct {
	db *gorm.DB
}

func NewTemplateService(db *gorm.DB) *TemplateService {
	return &TemplateService{db: db}
}

// TemplateInput describes a band definition
type TemplateInput struct {
	FirmID            uint64
	Role              string
	DefaultPercentage decimal.Decimal
	MinPercentage     decimal.Decimal
	MaxPercentage     decimal.Decimal
}

func (in TemplateInput) validate() error {
	if in.FirmID == 0 || in.Role == "" {
		return errno.ErrValidation
	}
	hundred := decimal.NewFromInt(100)
	if in.MinPercentage.IsNegative() || in.MaxPercentage.GreaterThan(hundred) {
		return errno.ErrValidation
	}
	if in.MinPercentage.GreaterThan(in.MaxPercentage) {
		return errno.ErrValidation
	}
	if in.DefaultPercentage.LessThan(in.MinPercentage) || in.DefaultPercentage.GreaterThan(in.MaxPercentage) {
		return errno.ErrValidation
	}
	return nil
}

// Create adds a new active template for a firm role
func (s *TemplateService) Create(ctx context.Context, in TemplateInput) (*model.DistributionTemplate, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	tpl := model.DistributionTemplate{
		FirmID:            in.FirmID,
		Role:              in.Role,
		DefaultPercentage: in.DefaultPercentage,
		MinPercentage:     in.MinPercentage,
		MaxPercentage:     in.MaxPercentage,
		IsActive:          true,
	}
	if err := s.db.WithContext(ctx).Create(&tpl).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

// Update changes the band of an existing template
func (s *TemplateService) Update(ctx context.Context, templateID uint64, in TemplateInput) error {
	if err := in.validate(); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&model.DistributionTemplate{}).
		Where("id = ?", templateID).
		Updates(map[string]interface{}{
			"default_percentage": in.DefaultPercentage,
			"min_percentage":     in.MinPercentage,
			"max_percentage":     in.MaxPercentage,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errno.ErrDistributionNotFound
	}
	return nil
}

// Deactivate retires a template. New distributions can no longer reference
// it, existing rows are untouched.
func (s *TemplateService) Deactivate(ctx context.Context, templateID uint64) error {
	res := s.db.WithContext(ctx).Model(&model.DistributionTemplate{}).
		Where("id = ? AND is_active = ?", templateID, true).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errno.ErrTemplateInactive
	}
	return nil
}

// ListByFirm returns all of a firm's templates, active first
func (s *TemplateService) ListByFirm(ctx context.Context, firmID uint64) ([]model.DistributionTemplate, error) {
	var tpls []model.DistributionTemplate
	err := s.db.WithContext(ctx).
		Where("firm_id = ?", firmID).
		Order("is_active DESC, role ASC").
		Find(&tpls).Error
	return tpls, err
}

// Get loads one template
func (s *TemplateService) Get(ctx context.Context, templateID uint64) (*model.DistributionTemplate, error) {
	var tpl model.DistributionTemplate
	err := s.db.WithContext(ctx).First(&tpl, "id = ?", templateID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errno.ErrDistributionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}
