package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OwnerType identifies which side of the marketplace holds a wallet.
// A wallet row, ledger entry or payout belongs to a firm XOR a professional.
type OwnerType string

const (
	OwnerFirm         OwnerType = "firm"
	OwnerProfessional OwnerType = "professional"
)

// Payment escrow record, one open payment per service request
type Payment struct {
	ID               uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ServiceRequestID uint64          `gorm:"not null;index;index:idx_payments_active_request,unique,where:status = 'pending' OR status = 'escrow_held'" json:"service_request_id"`
	FirmID           uint64          `gorm:"index" json:"firm_id"` // 0 for solo professionals
	ProfessionalID   uint64          `gorm:"index" json:"professional_id"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Status           string          `gorm:"type:varchar(32);not null;default:'pending';index" json:"status"` // pending, escrow_held, escrow_released, refunded, failed

	CapturedAt       *time.Time `json:"captured_at,omitempty"`
	AutoReleaseAt    *time.Time `gorm:"index" json:"auto_release_at,omitempty"` // immutable once captured
	EscrowReleasedAt *time.Time `json:"escrow_released_at,omitempty"`
	ReleasedBy       string     `gorm:"type:varchar(64)" json:"released_by,omitempty"` // actor or "auto_release"

	ReleasedToProfessional bool            `gorm:"not null;default:false" json:"released_to_professional"`
	CreditedAmount         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"credited_amount"`

	RefundedAt    *time.Time `json:"refunded_at,omitempty"`
	RefundedBy    string     `gorm:"type:varchar(64)" json:"refunded_by,omitempty"`
	RefundReason  string     `gorm:"type:text" json:"refund_reason,omitempty"`
	FailureReason string     `gorm:"type:text" json:"failure_reason,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Payment statuses
const (
	PaymentPending  = "pending"
	PaymentHeld     = "escrow_held"
	PaymentReleased = "escrow_released"
	PaymentRefunded = "refunded"
	PaymentFailed   = "failed"
)

// ProjectDistribution is the computed split of one completed service request.
// Invariant at creation: TotalAmount == PlatformCommission + FirmRetention + DistributionAmount.
// After bonus funding: PlatformCommission + FirmRetention + sum(share.TotalAmount) == TotalAmount.
type ProjectDistribution struct {
	ID               uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ServiceRequestID uint64 `gorm:"not null;index" json:"service_request_id"`
	PaymentID        uint64 `gorm:"not null;uniqueIndex" json:"payment_id"`
	FirmID           uint64 `gorm:"not null;index" json:"firm_id"`

	TotalAmount        decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total_amount"`
	PlatformCommission decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"platform_commission"`
	FirmRetention      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"firm_retention"`
	DistributionAmount decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"distribution_amount"`

	BonusPool            decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"bonus_pool"`
	EarlyCompletionBonus decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"early_completion_bonus"`
	QualityBonus         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"quality_bonus"`
	ReferralBonus        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"referral_bonus"`

	RequiresApproval bool       `gorm:"not null;default:true" json:"requires_approval"`
	IsApproved       bool       `gorm:"not null;default:false" json:"is_approved"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	ApprovedBy       string     `gorm:"type:varchar(64)" json:"approved_by,omitempty"`

	IsDistributed bool       `gorm:"not null;default:false" json:"is_distributed"`
	DistributedAt *time.Time `json:"distributed_at,omitempty"`

	Shares []DistributionShare `gorm:"foreignKey:DistributionID" json:"shares,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DistributionShare is one contributing professional's cut.
// Invariant: TotalAmount == BaseAmount + BonusAmount.
type DistributionShare struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	DistributionID uint64 `gorm:"not null;index" json:"distribution_id"`
	ProfessionalID uint64 `gorm:"not null;index" json:"professional_id"` // non-owning reference

	Percentage  decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"percentage"`
	BaseAmount  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"base_amount"`
	BonusAmount decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"bonus_amount"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_amount"`

	ContributionHours decimal.Decimal `gorm:"type:decimal(8,2);not null;default:0" json:"contribution_hours"`

	ApprovedByCA   bool       `gorm:"not null;default:false" json:"approved_by_ca"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	SignatureToken string     `gorm:"type:varchar(64)" json:"signature_token,omitempty"`

	BandOverridden bool   `gorm:"not null;default:false" json:"band_overridden"`
	OverriddenBy   string `gorm:"type:varchar(64)" json:"overridden_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DistributionTemplate is a firm's default percentage band per role.
// Never deleted, only deactivated.
type DistributionTemplate struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	FirmID uint64 `gorm:"not null;uniqueIndex:idx_firm_role" json:"firm_id"`
	Role   string `gorm:"type:varchar(64);not null;uniqueIndex:idx_firm_role" json:"role"`

	DefaultPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"default_percentage"`
	MinPercentage     decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"min_percentage"`
	MaxPercentage     decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"max_percentage"`

	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PercentageOverride records a firm-admin override outside the template band
type PercentageOverride struct {
	ID             uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	DistributionID uint64          `gorm:"not null;index" json:"distribution_id"`
	ProfessionalID uint64          `gorm:"not null" json:"professional_id"`
	TemplateID     uint64          `json:"template_id"`
	Percentage     decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"percentage"`
	MinPercentage  decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"min_percentage"`
	MaxPercentage  decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"max_percentage"`
	Actor          string          `gorm:"type:varchar(64);not null" json:"actor"`
	Reason         string          `gorm:"type:text" json:"reason"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Wallet is the per-owner serialization row. Balance here is a cache that
// must always equal the fold of the owner's ledger entries; every append
// locks this row, cross-checks it against the last entry and carries it
// forward. A mismatch freezes the wallet.
type Wallet struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerType OwnerType `gorm:"type:varchar(16);not null;uniqueIndex:idx_wallet_owner" json:"owner_type"`
	OwnerID   uint64    `gorm:"not null;uniqueIndex:idx_wallet_owner" json:"owner_id"`

	Balance decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"balance"`
	Version uint64          `gorm:"not null;default:0" json:"version"`

	IsFrozen     bool       `gorm:"not null;default:false" json:"is_frozen"`
	FrozenReason string     `gorm:"type:text" json:"frozen_reason,omitempty"`
	FrozenAt     *time.Time `json:"frozen_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WalletTransaction types
const (
	TxPaymentReceived      = "payment_received"
	TxCommissionDeducted   = "commission_deducted"
	TxDistributionReceived = "distribution_received"
	TxDistributionPaid     = "distribution_paid"
	TxWithdrawalRequested  = "withdrawal_requested"
	TxWithdrawalCompleted  = "withdrawal_completed"
	TxWithdrawalReversed   = "withdrawal_reversed"
	TxBonusReceived        = "bonus_received"
	TxRefundIssued         = "refund_issued"
	TxAdjustment           = "adjustment"
)

// WalletTransaction statuses
const (
	TxPending   = "pending"
	TxCompleted = "completed"
	TxFailed    = "failed"
)

// WalletTransaction is one immutable ledger entry. Amount is a positive
// magnitude except for adjustments, which carry their own sign. Rows are
// never updated after creation except to transition Status and stamp
// ProcessedAt / FailureReason.
type WalletTransaction struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerType OwnerType `gorm:"type:varchar(16);not null;index:idx_tx_owner" json:"owner_type"`
	OwnerID   uint64    `gorm:"not null;index:idx_tx_owner" json:"owner_id"`

	Type   string `gorm:"type:varchar(32);not null" json:"type"`
	Status string `gorm:"type:varchar(16);not null;default:'completed'" json:"status"`

	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	BalanceBefore decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"balance_before"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"balance_after"`

	Description   string `gorm:"type:text" json:"description"`
	ReferenceType string `gorm:"type:varchar(32)" json:"reference_type,omitempty"` // payment, distribution, payout
	ReferenceID   uint64 `gorm:"index" json:"reference_id,omitempty"`

	// Tax breakdown as applied at receipt/withdrawal time
	TDSAmount decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"tds_amount"`
	TDSRate   decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"tds_rate"`
	GSTAmount decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"gst_amount"`
	GSTRate   decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"gst_rate"`
	NetAmount decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"net_amount"`

	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	ProcessedBy   string     `gorm:"type:varchar(64)" json:"processed_by,omitempty"`
	FailureReason string     `gorm:"type:text" json:"failure_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// PayoutRequest statuses
const (
	PayoutRequested  = "requested"
	PayoutApproved   = "approved"
	PayoutProcessing = "processing"
	PayoutCompleted  = "completed"
	PayoutFailed     = "failed"
	PayoutRejected   = "rejected"
)

// Payout methods
const (
	PayoutMethodBank = "bank_transfer"
	PayoutMethodUPI  = "upi"
)

// PayoutRequest is one withdrawal attempt.
// Invariant: NetPayoutAmount == Amount - TDSAmount + GSTAmount, and since a
// withdrawal carries no output tax the GST fields stay zero, so the net
// never exceeds the requested amount.
type PayoutRequest struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerType OwnerType `gorm:"type:varchar(16);not null;index:idx_payout_owner" json:"owner_type"`
	OwnerID   uint64    `gorm:"not null;index:idx_payout_owner" json:"owner_id"`

	Amount decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Method string          `gorm:"type:varchar(16);not null" json:"method"`
	Status string          `gorm:"type:varchar(16);not null;default:'requested';index" json:"status"`

	PayeeName   string `gorm:"type:varchar(255)" json:"payee_name"`
	BankAccount string `gorm:"type:varchar(64)" json:"bank_account,omitempty"`
	IFSCCode    string `gorm:"type:varchar(16)" json:"ifsc_code,omitempty"`
	UPIHandle   string `gorm:"type:varchar(128)" json:"upi_handle,omitempty"`

	TDSAmount       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"tds_amount"`
	TDSRate         decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"tds_rate"`
	GSTAmount       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"gst_amount"`
	GSTRate         decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"gst_rate"`
	NetPayoutAmount decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"net_payout_amount"`

	LedgerEntryID uint64 `json:"ledger_entry_id,omitempty"` // entry locking the funds; settles as withdrawal_completed
	ExternalRef   string `gorm:"type:varchar(128)" json:"external_ref,omitempty"`

	RequestedAt     time.Time  `gorm:"not null" json:"requested_at"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	ApprovedBy      string     `gorm:"type:varchar(64)" json:"approved_by,omitempty"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectedBy      string     `gorm:"type:varchar(64)" json:"rejected_by,omitempty"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason,omitempty"`
	FailureReason   string     `gorm:"type:text" json:"failure_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tax types
const (
	TaxTDS = "tds"
	TaxGST = "gst"
)

// TaxRecord is a period-bucketed rollup of tax withheld/collected per owner,
// keyed by Indian financial year (April to March) and quarter/month.
type TaxRecord struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerType OwnerType `gorm:"type:varchar(16);not null;uniqueIndex:idx_tax_bucket" json:"owner_type"`
	OwnerID   uint64    `gorm:"not null;uniqueIndex:idx_tax_bucket" json:"owner_id"`
	TaxType   string    `gorm:"type:varchar(8);not null;uniqueIndex:idx_tax_bucket" json:"tax_type"`

	FinancialYear string `gorm:"type:varchar(8);not null;uniqueIndex:idx_tax_bucket" json:"financial_year"` // "2025-26"
	Quarter       int    `gorm:"not null;uniqueIndex:idx_tax_bucket" json:"quarter"`                        // 1..4, Q1 = Apr-Jun
	Month         int    `gorm:"not null;uniqueIndex:idx_tax_bucket" json:"month"`

	TaxableAmount decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"taxable_amount"`
	TaxAmount     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"tax_amount"`

	CertificateNumber string     `gorm:"type:varchar(64)" json:"certificate_number,omitempty"`
	ChallanNumber     string     `gorm:"type:varchar(64)" json:"challan_number,omitempty"`
	FiledAt           *time.Time `json:"filed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

func (ProjectDistribution) TableName() string {
	return "project_distributions"
}

func (DistributionShare) TableName() string {
	return "distribution_shares"
}

func (DistributionTemplate) TableName() string {
	return "distribution_templates"
}

func (PercentageOverride) TableName() string {
	return "percentage_overrides"
}

func (Wallet) TableName() string {
	return "wallets"
}

func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}

func (PayoutRequest) TableName() string {
	return "payout_requests"
}

func (TaxRecord) TableName() string {
	return "tax_records"
}
