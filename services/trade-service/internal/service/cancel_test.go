package service

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/domain"
	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/infrastructure/wallet"
	apperrors "github.com/quangdang46/gu-marketplace/shared/errors"
)

func expectCancel(backend *MockMarketplaceBackend, result domain.CancellationResult) {
	gomock.InOrder(
		backend.EXPECT().
			PrepareCancel(gomock.Any(), domain.CancelRequest{OrderIDs: []string{"o-1", "o-2"}, WalletAddress: buyer}).
			Return(&domain.CancelPrepareResponse{Success: true, RequiresSignature: true, Message: cancelPayload()}, nil),
		backend.EXPECT().
			ExecuteCancel(gomock.Any(), domain.CancelRequest{OrderIDs: []string{"o-1", "o-2"}, WalletAddress: buyer, Signature: "0xsig"}).
			Return(&domain.CancelExecuteResponse{Success: true, Result: result}, nil),
	)
}

func TestCancel_Succeeded(t *testing.T) {
	w := connectedWallet().onChain(target)
	deps, backend := newTestDeps(t, w)
	w.On("SignTypedData", mock.Anything, buyer, mock.Anything).Return("0xsig", nil).Once()
	expectCancel(backend, domain.CancellationResult{Successful: []string{"o-1", "o-2"}})

	listings := NewListingsClient(backend, nil)
	out := NewCancellationOrchestrator(deps, listings).Cancel(context.Background(), []string{"o-1", "o-2"})
	require.NoError(t, out.Err)
	assert.Equal(t, "Listing Cancelled", out.Title)
	assert.Equal(t, domain.StateSucceeded, out.Attempt.State)
	assert.False(t, out.Pending())
	assert.Equal(t, []string{"chainId", "sign:CancelPayload"}, w.Sequence())
}

func TestCancel_PartialFailureIsFailure(t *testing.T) {
	w := connectedWallet().onChain(target)
	deps, backend := newTestDeps(t, w)
	w.On("SignTypedData", mock.Anything, buyer, mock.Anything).Return("0xsig", nil)
	expectCancel(backend, domain.CancellationResult{
		Successful: []string{"o-1"},
		Failed:     []domain.FailedCancellation{{Order: "o-2", ReasonCode: "ORDER_NOT_ACTIVE"}},
	})

	out := NewCancellationOrchestrator(deps, nil).Cancel(context.Background(), []string{"o-1", "o-2"})
	require.Error(t, out.Err)
	assert.Equal(t, "Cancellation Failed", out.Title)
	assert.Equal(t, "Order o-2 could not be cancelled: ORDER_NOT_ACTIVE", out.Message)
	assert.Equal(t, domain.StateFailed, out.Attempt.State)
	assert.Equal(t, []string{"o-1"}, out.Result.Successful)
}

func TestCancel_PendingOnly(t *testing.T) {
	w := connectedWallet().onChain(target)
	deps, backend := newTestDeps(t, w)
	w.On("SignTypedData", mock.Anything, buyer, mock.Anything).Return("0xsig", nil)
	expectCancel(backend, domain.CancellationResult{Pending: []string{"o-1", "o-2"}})

	out := NewCancellationOrchestrator(deps, nil).Cancel(context.Background(), []string{"o-1", "o-2"})
	require.NoError(t, out.Err)
	assert.True(t, out.Pending())
	assert.Equal(t, "Cancellation Pending", out.Title)

	stored, err := deps.Status.GetAttempt(context.Background(), out.Attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePending, stored.State)
}

func TestCancel_EmptyResult(t *testing.T) {
	w := connectedWallet().onChain(target)
	deps, backend := newTestDeps(t, w)
	w.On("SignTypedData", mock.Anything, buyer, mock.Anything).Return("0xsig", nil)
	expectCancel(backend, domain.CancellationResult{})

	out := NewCancellationOrchestrator(deps, nil).Cancel(context.Background(), []string{"o-1", "o-2"})
	assert.True(t, apperrors.IsType(out.Err, apperrors.ErrorTypeCancellationFailed))
}

func TestCancel_SignatureRejected(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"user rejected code", &wallet.ProviderError{Code: wallet.CodeUserRejected, Message: "User rejected the request."}},
		{"empty error", errors.New("")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := connectedWallet().onChain(target)
			deps, backend := newTestDeps(t, w)
			backend.EXPECT().PrepareCancel(gomock.Any(), gomock.Any()).
				Return(&domain.CancelPrepareResponse{Success: true, RequiresSignature: true, Message: cancelPayload()}, nil)
			w.On("SignTypedData", mock.Anything, buyer, mock.Anything).Return("", tt.err)

			out := NewCancellationOrchestrator(deps, nil).Cancel(context.Background(), []string{"o-1"})
			assert.Equal(t, "Signature Rejected", out.Title)
			assert.Equal(t, "You rejected the signature request in your wallet.", out.Message)
		})
	}
}

func TestCancel_PrepareFailure(t *testing.T) {
	w := connectedWallet()
	deps, backend := newTestDeps(t, w)
	backend.EXPECT().PrepareCancel(gomock.Any(), gomock.Any()).
		Return(nil, &domain.BackendError{Status: 400, Message: "Order is not owned by wallet"})

	out := NewCancellationOrchestrator(deps, nil).Cancel(context.Background(), []string{"o-1"})
	assert.Equal(t, "Cancellation Failed", out.Title)
	assert.Equal(t, "Order is not owned by wallet", out.Message)
	assert.Empty(t, w.Sequence())
}

func TestCancel_MissingPayload(t *testing.T) {
	w := connectedWallet()
	deps, backend := newTestDeps(t, w)
	backend.EXPECT().PrepareCancel(gomock.Any(), gomock.Any()).
		Return(&domain.CancelPrepareResponse{Success: true}, nil)

	out := NewCancellationOrchestrator(deps, nil).Cancel(context.Background(), []string{"o-1"})
	assert.True(t, apperrors.IsType(out.Err, apperrors.ErrorTypeCancellationFailed))
	assert.Empty(t, w.Sequence())
}

func TestCancel_WrongNetwork(t *testing.T) {
	w := connectedWallet().onChain(ethereum)
	deps, backend := newTestDeps(t, w)
	backend.EXPECT().PrepareCancel(gomock.Any(), gomock.Any()).
		Return(&domain.CancelPrepareResponse{Success: true, Message: cancelPayload()}, nil)

	out := NewCancellationOrchestrator(deps, nil).Cancel(context.Background(), []string{"o-1"})
	assert.Equal(t, "Wrong Network", out.Title)
	w.AssertNotCalled(t, "SignTypedData", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancel_ExecuteBackendError(t *testing.T) {
	w := connectedWallet().onChain(target)
	deps, backend := newTestDeps(t, w)
	w.On("SignTypedData", mock.Anything, buyer, mock.Anything).Return("0xsig", nil)
	backend.EXPECT().PrepareCancel(gomock.Any(), gomock.Any()).
		Return(&domain.CancelPrepareResponse{Success: true, Message: cancelPayload()}, nil)
	backend.EXPECT().ExecuteCancel(gomock.Any(), gomock.Any()).
		Return(nil, &domain.BackendError{Status: 500, Message: "Orderbook unavailable"})

	out := NewCancellationOrchestrator(deps, nil).Cancel(context.Background(), []string{"o-1"})
	assert.Equal(t, "Cancellation Failed", out.Title)
	assert.Equal(t, "Orderbook unavailable", out.Message)
}
