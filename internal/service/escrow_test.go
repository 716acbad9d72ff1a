package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-core/pkg/errno"
)

func TestCreateRequiresAnOwner(t *testing.T) {
	// Validation runs before any storage access, so no database is needed.
	svc := NewEscrowService(nil, nil, dec("0.15"), nil, 0)

	_, err := svc.Create(context.Background(), 99, 0, 0, dec("1000"))
	assert.ErrorIs(t, err, errno.ErrValidation)

	_, err = svc.Create(context.Background(), 99, 7, 0, dec("0"))
	assert.ErrorIs(t, err, errno.ErrValidation)
}

func TestRunSweepIsolatesFailures(t *testing.T) {
	ids := []uint64{1, 2, 3, 4, 5}
	summary := runSweep(ids, func(id uint64) (bool, error) {
		if id == 3 {
			return false, errors.New("wallet frozen")
		}
		return true, nil
	})

	assert.Equal(t, 5, summary.Processed)
	assert.Equal(t, 4, summary.Released)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, uint64(3), summary.Errors[0].PaymentID)
	assert.Equal(t, "wallet frozen", summary.Errors[0].Reason)
}

func TestRunSweepSkipsAlreadyReleased(t *testing.T) {
	// A concurrent sweep may have won the conditional update; the release
	// callback reports (false, nil) and the item counts as neither
	// released nor failed.
	summary := runSweep([]uint64{10, 11}, func(id uint64) (bool, error) {
		return id == 10, nil
	})

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Released)
	assert.Equal(t, 0, summary.Failed)
	assert.Empty(t, summary.Errors)
}

func TestRunSweepEmpty(t *testing.T) {
	summary := runSweep(nil, func(uint64) (bool, error) {
		t.Fatal("release must not be called for an empty sweep")
		return false, nil
	})

	assert.Equal(t, SweepSummary{}, summary)
}
