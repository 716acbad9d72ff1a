package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ledger-core/internal/model"
	"ledger-core/pkg/errno"
)

func TestPayoutConflict(t *testing.T) {
	tests := []struct {
		name    string
		current string
		target  string
		want    error
	}{
		{"repeat approve", model.PayoutApproved, model.PayoutApproved, errno.ErrAlreadyProcessed},
		{"complete a completed payout", model.PayoutCompleted, model.PayoutCompleted, errno.ErrAlreadyProcessed},
		{"reject after completion", model.PayoutCompleted, model.PayoutRejected, errno.ErrAlreadyProcessed},
		{"fail after rejection", model.PayoutRejected, model.PayoutFailed, errno.ErrAlreadyProcessed},
		{"process before approval", model.PayoutRequested, model.PayoutProcessing, errno.ErrInvalidState},
		{"complete before processing", model.PayoutApproved, model.PayoutCompleted, errno.ErrInvalidState},
		{"reject while processing", model.PayoutProcessing, model.PayoutRejected, errno.ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, payoutConflict(tt.current, tt.target), tt.want)
		})
	}
}
