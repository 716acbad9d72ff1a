package request

import "github.com/shopspring/decimal"

type ContributorRequest struct {
	ProfessionalID uint64 `json:"professional_id" binding:"required"`
	Role           string `json:"role" binding:"required"`
	Percentage     string `json:"percentage"` // empty seeds from the firm template
	Hours          string `json:"hours"`
}

type CreateDistributionRequest struct {
	ServiceRequestID     uint64               `json:"service_request_id" binding:"required"`
	FirmID               uint64               `json:"firm_id" binding:"required"`
	Contributors         []ContributorRequest `json:"contributors" binding:"required,min=1,dive"`
	EarlyCompletionBonus string               `json:"early_completion_bonus"`
	QualityBonus         string               `json:"quality_bonus"`
	ReferralBonus        string               `json:"referral_bonus"`
}

type ApproveShareRequest struct {
	ProfessionalID uint64 `json:"professional_id" binding:"required"`
}

type TemplateRequest struct {
	FirmID            uint64          `json:"firm_id" binding:"required"`
	Role              string          `json:"role" binding:"required"`
	DefaultPercentage decimal.Decimal `json:"default_percentage" binding:"required"`
	MinPercentage     decimal.Decimal `json:"min_percentage"`
	MaxPercentage     decimal.Decimal `json:"max_percentage" binding:"required"`
}
