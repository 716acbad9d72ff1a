package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"ledger-core/pkg/logger"
)

// Task types
const (
	TypePayoutStatusNotify   = "notify:payout_status"
	TypeEscrowReleasedNotify = "notify:escrow_released"
)

// PayoutStatusPayload tells an owner their payout changed state
type PayoutStatusPayload struct {
	PayoutID  uint64 `json:"payout_id"`
	OwnerType string `json:"owner_type"`
	OwnerID   uint64 `json:"owner_id"`
	Status    string `json:"status"`
	NetAmount string `json:"net_amount"`
	Reason    string `json:"reason,omitempty"`
}

// EscrowReleasedPayload tells the firm or professional funds left escrow
type EscrowReleasedPayload struct {
	PaymentID        uint64 `json:"payment_id"`
	ServiceRequestID uint64 `json:"service_request_id"`
	FirmID           uint64 `json:"firm_id"`
	ProfessionalID   uint64 `json:"professional_id"`
	Amount           string `json:"amount"`
}

func NewPayoutStatusTask(p PayoutStatusPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePayoutStatusNotify, payload,
		asynq.MaxRetry(5), asynq.Timeout(5*time.Minute), asynq.Queue("default")), nil
}

func NewEscrowReleasedTask(p EscrowReleasedPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeEscrowReleasedNotify, payload,
		asynq.MaxRetry(5), asynq.Timeout(5*time.Minute), asynq.Queue("low")), nil
}

// HandlePayoutStatusTask dispatches the notification to the owner's channel.
// Delivery itself lives in the notification subsystem; this hands off.
func HandlePayoutStatusTask(ctx context.Context, t *asynq.Task) error {
	var p PayoutStatusPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		// Malformed payloads never succeed on retry
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	logger.Info("payout status notification dispatched",
		zap.Uint64("payout_id", p.PayoutID),
		zap.String("owner_type", p.OwnerType),
		zap.Uint64("owner_id", p.OwnerID),
		zap.String("status", p.Status))
	return nil
}

func HandleEscrowReleasedTask(ctx context.Context, t *asynq.Task) error {
	var p EscrowReleasedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	logger.Info("escrow release notification dispatched",
		zap.Uint64("payment_id", p.PaymentID),
		zap.Uint64("service_request_id", p.ServiceRequestID))
	return nil
}
