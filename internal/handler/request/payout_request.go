package request

import "github.com/shopspring/decimal"

type CreatePayoutRequest struct {
	OwnerType   string          `json:"owner_type" binding:"required,oneof=firm professional"`
	OwnerID     uint64          `json:"owner_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Method      string          `json:"method" binding:"required,oneof=bank_transfer upi"`
	PayeeName   string          `json:"payee_name" binding:"required"`
	BankAccount string          `json:"bank_account"`
	IFSCCode    string          `json:"ifsc_code"`
	UPIHandle   string          `json:"upi_handle"`
	TaxExempt   bool            `json:"tax_exempt"`
}

type RejectPayoutRequest struct {
	Reason string `json:"reason" binding:"required"`
}
