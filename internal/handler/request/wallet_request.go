package request

import "github.com/shopspring/decimal"

type AdjustmentRequest struct {
	OwnerType   string          `json:"owner_type" binding:"required,oneof=firm professional"`
	OwnerID     uint64          `json:"owner_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"` // signed, negative corrects downward
	Description string          `json:"description" binding:"required"`
}

type FilingRequest struct {
	CertificateNumber string `json:"certificate_number"`
	ChallanNumber     string `json:"challan_number"`
}
