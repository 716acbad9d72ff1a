package settlement

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-core/pkg/errno"
)

func instruction() Instruction {
	return Instruction{
		PayoutID:       42,
		IdempotencyKey: "payout-42-attempt-1",
		Amount:         decimal.RequireFromString("4500.50"),
		Method:         "bank_transfer",
		AccountNumber:  "000111222333",
		IFSCCode:       "HDFC0001234",
		PayeeName:      "A Sharma",
	}
}

func TestSettleSuccess(t *testing.T) {
	var got settleRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/transfers", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "payout-42-attempt-1", r.Header.Get("Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(settleResponse{Status: "accepted", TransferRef: "TRF-9001"})
	}))
	defer srv.Close()

	rail := NewHTTPRail(srv.URL, "test-key", "merchant-7")
	ref, err := rail.Settle(context.Background(), instruction())
	require.NoError(t, err)
	assert.Equal(t, "TRF-9001", ref)

	assert.Equal(t, "merchant-7", got.MerchantID)
	assert.Equal(t, "payout-42", got.ReferenceID)
	assert.Equal(t, "4500.50", got.Amount)
	assert.Equal(t, "INR", got.Currency)
}

func TestSettleRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(settleResponse{Status: "rejected", Reason: "invalid account"})
	}))
	defer srv.Close()

	rail := NewHTTPRail(srv.URL, "test-key", "merchant-7")
	_, err := rail.Settle(context.Background(), instruction())
	assert.ErrorIs(t, err, errno.ErrSettlementRejected)
}

func TestSettleRejectedStatusInBody(t *testing.T) {
	// Some providers answer 200 with a rejected status in the body.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(settleResponse{Status: "rejected", Reason: "payee name mismatch"})
	}))
	defer srv.Close()

	rail := NewHTTPRail(srv.URL, "test-key", "merchant-7")
	_, err := rail.Settle(context.Background(), instruction())
	assert.ErrorIs(t, err, errno.ErrSettlementRejected)
}

func TestSettleTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	rail := NewHTTPRail(srv.URL, "test-key", "merchant-7")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := rail.Settle(ctx, instruction())
	assert.ErrorIs(t, err, errno.ErrSettlementTimeout)
}

func TestSettleServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(settleResponse{Reason: "upstream down"})
	}))
	defer srv.Close()

	rail := NewHTTPRail(srv.URL, "test-key", "merchant-7")
	_, err := rail.Settle(context.Background(), instruction())
	require.Error(t, err)
	assert.NotErrorIs(t, err, errno.ErrSettlementRejected)
	assert.NotErrorIs(t, err, errno.ErrSettlementTimeout)
	assert.Contains(t, err.Error(), "502")
}
