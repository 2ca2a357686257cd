package service

import (
	"context"
	"fmt"

	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/domain"
	apperrors "github.com/quangdang46/gu-marketplace/shared/errors"
)

// PurchaseOutcome is the result of a buy attempt.
type PurchaseOutcome struct {
	Outcome
	TokenID      string
	Price        string
	Fee          string
	TotalWithFee string
}

// PurchaseOrchestrator prepares a fulfilment plan through the backend and
// drives the wallet through it.
type PurchaseOrchestrator struct {
	deps     Deps
	listings *ListingsClient
	exec     *ActionExecutor
}

func NewPurchaseOrchestrator(deps Deps, listings *ListingsClient) *PurchaseOrchestrator {
	deps = deps.withDefaults()
	return &PurchaseOrchestrator{
		deps:     deps,
		listings: listings,
		exec:     NewActionExecutor(deps.Wallet, deps.Poll, deps.Logger, deps.Metrics),
	}
}

// BuyNow buys the card's current cheapest listing.
func (p *PurchaseOrchestrator) BuyNow(ctx context.Context) PurchaseOutcome {
	addr, err := p.deps.checkWallet()
	if err != nil {
		return PurchaseOutcome{Outcome: p.deps.rejected(domain.AttemptPurchase, addr, nil, err)}
	}
	var cheapest *domain.Listing
	if p.listings != nil {
		cheapest = p.listings.Cheapest()
	}
	if cheapest == nil {
		return PurchaseOutcome{Outcome: p.deps.rejected(domain.AttemptPurchase, addr, nil, apperrors.NoListings())}
	}
	return p.buy(ctx, addr, []string{cheapest.ListingID})
}

// Buy fulfils the given order ids, one for a single buy or several for a
// bulk buy.
func (p *PurchaseOrchestrator) Buy(ctx context.Context, orderIDs []string) PurchaseOutcome {
	addr, err := p.deps.checkWallet()
	if err == nil {
		err = ValidateOrderIDs(orderIDs)
	}
	if err != nil {
		return PurchaseOutcome{Outcome: p.deps.rejected(domain.AttemptPurchase, addr, orderIDs, err)}
	}
	return p.buy(ctx, addr, orderIDs)
}

func (p *PurchaseOrchestrator) buy(ctx context.Context, addr domain.Address, orderIDs []string) PurchaseOutcome {
	t, ctx := p.deps.begin(ctx, domain.AttemptPurchase, addr, orderIDs)
	t.move(ctx, domain.StatePreparing)

	resp, err := p.deps.Backend.PrepareBuy(ctx, domain.BuyRequest{OrderIDs: orderIDs, WalletAddress: addr})
	if err != nil {
		return PurchaseOutcome{Outcome: t.fail(ctx, preparationError(err, "Purchase Failed"))}
	}
	out := PurchaseOutcome{
		TokenID:      resp.TokenID.String(),
		Price:        resp.Price.String(),
		Fee:          resp.Fee.String(),
		TotalWithFee: resp.TotalWithFee.String(),
	}
	t.log.WithFields(map[string]interface{}{
		"mode":    resp.Mode,
		"actions": len(resp.Actions),
		"total":   out.TotalWithFee,
	}).Info("purchase prepared")

	if err := p.deps.ensureChain(ctx); err != nil {
		out.Outcome = t.fail(ctx, err)
		return out
	}

	t.move(ctx, domain.StateAwaitingWalletActions)
	res, err := p.exec.Execute(ctx, addr, resp.Actions, apperrors.PurchaseFailed, func(s domain.AttemptState) { t.move(ctx, s) })
	if res != nil {
		t.attempt.TxHashes = res.TxHashes
		t.attempt.PendingTxHashes = res.PendingTxHashes
	}
	if err != nil {
		out.Outcome = t.fail(ctx, classify(err, apperrors.PurchaseFailed))
		return out
	}

	if p.listings != nil {
		for _, id := range orderIDs {
			p.listings.RemoveListing(id)
		}
	}

	msg := "Your purchase is complete."
	if out.TokenID != "" {
		msg = fmt.Sprintf("You bought token #%s.", out.TokenID)
	}
	if len(t.attempt.PendingTxHashes) > 0 {
		msg += " Some transactions are still confirming."
	}
	out.Outcome = t.finish(ctx, domain.StateSucceeded, "purchase_completed", "Purchase Successful", msg, map[string]interface{}{
		"token_id":       out.TokenID,
		"total_with_fee": out.TotalWithFee,
	})
	return out
}
