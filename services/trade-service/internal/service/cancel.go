package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/domain"
	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/infrastructure/wallet"
	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/typeddata"
	apperrors "github.com/quangdang46/gu-marketplace/shared/errors"
)

const cancelTitle = "Cancellation Failed"

// CancelOutcome is the result of a cancellation attempt. Attempt.State is
// succeeded, pending or failed.
type CancelOutcome struct {
	Outcome
	Result domain.CancellationResult
}

// Pending reports a cancellation the backend accepted but has not finalised.
func (o CancelOutcome) Pending() bool { return o.Attempt.State == domain.StatePending }

// CancellationOrchestrator runs prepare, sign and execute for listing
// cancellations.
type CancellationOrchestrator struct {
	deps     Deps
	listings *ListingsClient
}

func NewCancellationOrchestrator(deps Deps, listings *ListingsClient) *CancellationOrchestrator {
	return &CancellationOrchestrator{deps: deps.withDefaults(), listings: listings}
}

func (c *CancellationOrchestrator) Cancel(ctx context.Context, orderIDs []string) CancelOutcome {
	addr, err := c.deps.checkWallet()
	if err == nil {
		err = ValidateOrderIDs(orderIDs)
	}
	if err != nil {
		return CancelOutcome{Outcome: c.deps.rejected(domain.AttemptCancellation, addr, orderIDs, err)}
	}

	t, ctx := c.deps.begin(ctx, domain.AttemptCancellation, addr, orderIDs)
	t.move(ctx, domain.StatePreparing)

	prep, err := c.deps.Backend.PrepareCancel(ctx, domain.CancelRequest{OrderIDs: orderIDs, WalletAddress: addr})
	if err != nil {
		return CancelOutcome{Outcome: t.fail(ctx, preparationError(err, cancelTitle))}
	}
	if prep.Message == nil {
		return CancelOutcome{Outcome: t.fail(ctx, apperrors.CancellationFailed("The marketplace did not return a cancellation payload."))}
	}
	doc, err := typeddata.BuildTypedData(*prep.Message, typeddata.CancelPayloadType)
	if err != nil {
		return CancelOutcome{Outcome: t.fail(ctx, apperrors.CancellationFailed(fmt.Sprintf("Invalid cancellation payload: %v", err)).WithCause(err))}
	}

	if err := c.deps.ensureChain(ctx); err != nil {
		return CancelOutcome{Outcome: t.fail(ctx, err)}
	}

	t.move(ctx, domain.StateAwaitingWalletActions)
	sig, err := c.deps.Wallet.SignTypedData(ctx, addr, doc)
	if err != nil {
		return CancelOutcome{Outcome: t.fail(ctx, wallet.SignError(err))}
	}

	exec, err := c.deps.Backend.ExecuteCancel(ctx, domain.CancelRequest{OrderIDs: orderIDs, WalletAddress: addr, Signature: sig})
	if err != nil {
		var be *domain.BackendError
		if errors.As(err, &be) {
			return CancelOutcome{Outcome: t.fail(ctx, apperrors.CancellationFailed(be.Message).WithCause(err))}
		}
		return CancelOutcome{Outcome: t.fail(ctx, apperrors.CancellationFailed(err.Error()).WithCause(err))}
	}

	result := exec.Result
	out := CancelOutcome{Result: result}
	fields := map[string]interface{}{
		"successful": result.Successful,
		"pending":    result.Pending,
	}

	switch {
	case len(result.Failed) > 0:
		first := result.Failed[0]
		err := apperrors.CancellationFailed(fmt.Sprintf("Order %s could not be cancelled: %s", first.Order, first.ReasonCode)).
			WithDetails("failed", result.Failed).
			WithDetails("successful", result.Successful)
		out.Outcome = t.fail(ctx, err)

	case len(result.Successful) > 0:
		c.removeListings(result.Successful)
		out.Outcome = t.finish(ctx, domain.StateSucceeded, "cancellation_completed", "Listing Cancelled", "Your listing has been cancelled.", fields)

	case len(result.Pending) > 0:
		out.Outcome = t.finish(ctx, domain.StatePending, "cancellation_pending", "Cancellation Pending", "Your cancellation was accepted and is awaiting confirmation.", fields)

	default:
		out.Outcome = t.fail(ctx, apperrors.CancellationFailed("The marketplace reported no cancellation result."))
	}
	return out
}

func (c *CancellationOrchestrator) removeListings(ids []string) {
	if c.listings == nil {
		return
	}
	for _, id := range ids {
		c.listings.RemoveListing(id)
	}
}
