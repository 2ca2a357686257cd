package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/domain"
	apperrors "github.com/quangdang46/gu-marketplace/shared/errors"
	"github.com/quangdang46/gu-marketplace/shared/resilience"
)

func TestActionExecutor_SkipsUnknownAndReportsStates(t *testing.T) {
	w := connectedWallet()
	w.On("SendTransaction", mock.Anything, buyer, mock.Anything).Return("0xa1", nil)
	w.On("TransactionReceipt", mock.Anything, "0xa1").Return(&domain.Receipt{Status: 1}, nil)
	w.On("SignTypedData", mock.Anything, buyer, mock.Anything).Return("0xsig", nil)

	exec := NewActionExecutor(w, &resilience.PollConfig{Interval: 0, MaxAttempts: 3, BackoffFactor: 1}, nil, nil)
	var states []domain.AttemptState
	res, err := exec.Execute(context.Background(), buyer, orderPlan(), apperrors.PurchaseFailed, func(s domain.AttemptState) {
		states = append(states, s)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []string{"0xa1", "0xa1"}, res.TxHashes)
	assert.Equal(t, []string{"0xsig"}, res.Signatures)
	assert.Equal(t, []domain.AttemptState{
		domain.StateConfirming, domain.StateAwaitingWalletActions,
		domain.StateConfirming, domain.StateAwaitingWalletActions,
	}, states)
}

func TestActionExecutor_InvalidSignable(t *testing.T) {
	w := connectedWallet()
	exec := NewActionExecutor(w, nil, nil, nil)

	plan := domain.ActionPlan{domain.ActionSignable{Purpose: "ORDER", Message: domain.TypedPayload{
		Domain: domain.TypedDomain{ChainID: "zkevm"},
		Types:  map[string][]domain.TypedField{"Order": {{Name: "id", Type: "string"}}},
	}}}
	res, err := exec.Execute(context.Background(), buyer, plan, apperrors.ListingFailed, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeListingFailed))
	assert.Empty(t, res.Signatures)
	w.AssertNotCalled(t, "SignTypedData", mock.Anything, mock.Anything, mock.Anything)
}
