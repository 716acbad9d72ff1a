package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ledger-core/pkg/errno"
	"ledger-core/pkg/logger"
)

// Instruction is one transfer handed to the external settlement rail
type Instruction struct {
	PayoutID       uint64          `json:"payout_id"`
	IdempotencyKey string          `json:"idempotency_key"`
	Amount         decimal.Decimal `json:"amount"`
	Method         string          `json:"method"` // bank_transfer | upi
	AccountNumber  string          `json:"account_number,omitempty"`
	IFSCCode       string          `json:"ifsc_code,omitempty"`
	UPIHandle      string          `json:"upi_handle,omitempty"`
	PayeeName      string          `json:"payee_name"`
}

// Rail submits settlement instructions to an external money-movement
// provider and reports the provider's transfer reference
type Rail interface {
	Settle(ctx context.Context, in Instruction) (ref string, err error)
}

// HTTPRail talks to the settlement provider's REST API. The caller bounds
// each attempt with a context deadline; a deadline hit maps to
// ErrSettlementTimeout so the payout can be failed and reversed.
type HTTPRail struct {
	baseURL    string
	apiKey     string
	merchantID string
	client     *http.Client
}

func NewHTTPRail(baseURL, apiKey, merchantID string) *HTTPRail {
	return &HTTPRail{
		baseURL:    baseURL,
		apiKey:     apiKey,
		merchantID: merchantID,
		// Per-call deadlines come from the caller's context; this is the
		// hard ceiling for a single request.
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

type settleRequest struct {
	MerchantID     string `json:"merchant_id"`
	ReferenceID    string `json:"reference_id"`
	IdempotencyKey string `json:"idempotency_key"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	Method         string `json:"method"`
	AccountNumber  string `json:"account_number,omitempty"`
	IFSCCode       string `json:"ifsc_code,omitempty"`
	UPIHandle      string `json:"upi_handle,omitempty"`
	PayeeName      string `json:"payee_name"`
}

type settleResponse struct {
	Status      string `json:"status"`
	TransferRef string `json:"transfer_ref"`
	Reason      string `json:"reason,omitempty"`
}

func (r *HTTPRail) Settle(ctx context.Context, in Instruction) (string, error) {
	payload := settleRequest{
		MerchantID:     r.merchantID,
		ReferenceID:    fmt.Sprintf("payout-%d", in.PayoutID),
		IdempotencyKey: in.IdempotencyKey,
		Amount:         in.Amount.StringFixed(2),
		Currency:       "INR",
		Method:         in.Method,
		AccountNumber:  in.AccountNumber,
		IFSCCode:       in.IFSCCode,
		UPIHandle:      in.UPIHandle,
		PayeeName:      in.PayeeName,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/transfers", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Idempotency-Key", in.IdempotencyKey)

	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logger.Warn("settlement request timed out",
				zap.Uint64("payout_id", in.PayoutID))
			return "", errno.ErrSettlementTimeout
		}
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	var result settleResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("decode settlement response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300 && result.Status != "rejected":
		return result.TransferRef, nil
	case resp.StatusCode == http.StatusUnprocessableEntity || result.Status == "rejected":
		logger.Warn("settlement rejected by provider",
			zap.Uint64("payout_id", in.PayoutID),
			zap.String("reason", result.Reason))
		return "", errno.ErrSettlementRejected
	default:
		return "", fmt.Errorf("settlement provider returned %d: %s", resp.StatusCode, result.Reason)
	}
}
