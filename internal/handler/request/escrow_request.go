package request

import "github.com/shopspring/decimal"

type CreatePaymentRequest struct {
	ServiceRequestID uint64          `json:"service_request_id" binding:"required"`
	FirmID           uint64          `json:"firm_id"` // 0 for solo professionals
	ProfessionalID   uint64          `json:"professional_id"`
	Amount           decimal.Decimal `json:"amount" binding:"required"`
}

type RefundRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type MarkFailedRequest struct {
	Reason string `json:"reason" binding:"required"`
}
