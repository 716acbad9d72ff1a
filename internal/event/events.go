package event

// Topics
const (
	TopicEscrowReleased          = "ledger_events_escrow_released"
	TopicEscrowRefunded          = "ledger_events_escrow_refunded"
	TopicDistributionExecuted    = "ledger_events_distribution_executed"
	TopicPayoutCompleted         = "ledger_events_payout_completed"
	TopicPayoutFailed            = "ledger_events_payout_failed"
	TopicServiceRequestCompleted = "service_request_completed" // consumed, produced by the fulfillment subsystem
)

// EscrowReleasedEvent is published when a payment leaves escrow
type EscrowReleasedEvent struct {
	PaymentID        uint64 `json:"payment_id"`
	ServiceRequestID uint64 `json:"service_request_id"`
	FirmID           uint64 `json:"firm_id"`
	ProfessionalID   uint64 `json:"professional_id"`
	Amount           string `json:"amount"` // decimal string
	Cause            string `json:"cause"`  // actor id or "auto_release"
}

// EscrowRefundedEvent is published when escrow is returned to the client
type EscrowRefundedEvent struct {
	PaymentID        uint64 `json:"payment_id"`
	ServiceRequestID uint64 `json:"service_request_id"`
	Amount           string `json:"amount"`
	Reason           string `json:"reason"`
}

// DistributionExecutedEvent is published after ledger entries are written
type DistributionExecutedEvent struct {
	DistributionID     uint64 `json:"distribution_id"`
	ServiceRequestID   uint64 `json:"service_request_id"`
	FirmID             uint64 `json:"firm_id"`
	TotalAmount        string `json:"total_amount"`
	PlatformCommission string `json:"platform_commission"`
	ContributorCount   int    `json:"contributor_count"`
}

// PayoutCompletedEvent is published when a settlement confirms
type PayoutCompletedEvent struct {
	PayoutID    uint64 `json:"payout_id"`
	OwnerType   string `json:"owner_type"`
	OwnerID     uint64 `json:"owner_id"`
	NetAmount   string `json:"net_amount"`
	ExternalRef string `json:"external_ref"`
}

// PayoutFailedEvent is published when a settlement fails or times out
type PayoutFailedEvent struct {
	PayoutID  uint64 `json:"payout_id"`
	OwnerType string `json:"owner_type"`
	OwnerID   uint64 `json:"owner_id"`
	NetAmount string `json:"net_amount"`
	Reason    string `json:"reason"`
}

// ServiceRequestCompletedEvent arrives from the fulfillment subsystem and
// seeds a project distribution
type ServiceRequestCompletedEvent struct {
	ServiceRequestID     uint64        `json:"service_request_id"`
	FirmID               uint64        `json:"firm_id"`
	Contributors         []Contributor `json:"contributors"`
	EarlyCompletionBonus string        `json:"early_completion_bonus,omitempty"` // decimal strings
	QualityBonus         string        `json:"quality_bonus,omitempty"`
	ReferralBonus        string        `json:"referral_bonus,omitempty"`
}

// Contributor is one professional's negotiated cut of a completed request.
// Percentage empty means "seed from the firm's template for Role".
type Contributor struct {
	ProfessionalID uint64 `json:"professional_id"`
	Role           string `json:"role"`
	Percentage     string `json:"percentage,omitempty"` // decimal string
	Hours          string `json:"hours,omitempty"`
}
