package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/domain"
	apperrors "github.com/quangdang46/gu-marketplace/shared/errors"
)

// Marketplace fees taken from a sale, in percent.
var (
	RoyaltyFeePercent  = decimal.RequireFromString("0.5")
	ProtocolFeePercent = decimal.RequireFromString("2")
	MakerFeePercent    = decimal.RequireFromString("1")
)

const (
	maxListingDays      = 180
	defaultListingDays  = 30
	lowestPriceDecimals = 8
)

var lowestDiscount = decimal.RequireFromString("0.99")

// TotalFeePercent is the aggregate fee deducted from a listing price.
func TotalFeePercent() decimal.Decimal {
	return RoyaltyFeePercent.Add(ProtocolFeePercent).Add(MakerFeePercent)
}

// Earnings is what the seller receives for price after fees.
func Earnings(price decimal.Decimal) decimal.Decimal {
	keep := decimal.NewFromInt(100).Sub(TotalFeePercent()).Div(decimal.NewFromInt(100))
	return price.Mul(keep)
}

// ListingOutcome is the result of a listing submission.
type ListingOutcome struct {
	Outcome
	TokenIDs   []string
	ListingIDs []string
}

// ListingCreationFlow holds the seller's listing form for one card and
// submits it through prepare, wallet actions and submit.
type ListingCreationFlow struct {
	deps   Deps
	prices domain.PriceFeed
	exec   *ActionExecutor

	mu        sync.Mutex
	inventory []domain.OwnedToken
	quantity  int
	price     decimal.Decimal
	currency  domain.Currency
	duration  int
}

func NewListingCreationFlow(deps Deps, prices domain.PriceFeed) *ListingCreationFlow {
	deps = deps.withDefaults()
	return &ListingCreationFlow{
		deps:     deps,
		prices:   prices,
		exec:     NewActionExecutor(deps.Wallet, deps.Poll, deps.Logger, deps.Metrics),
		currency: domain.CurrencyETH,
		duration: defaultListingDays,
	}
}

// LoadInventory reads the connected wallet's tokens of the card.
func (f *ListingCreationFlow) LoadInventory(ctx context.Context, contract, cardID string) ([]domain.OwnedToken, error) {
	addr, err := f.deps.checkWallet()
	if err != nil {
		return nil, err
	}
	if !IsValidEthereumAddress(contract) {
		return nil, apperrors.ValidationError("contractAddress", "must be a 0x-prefixed 20 byte address")
	}
	resp, err := f.deps.Backend.GetOwnedTokens(ctx, contract, cardID, addr)
	if err != nil {
		var be *domain.BackendError
		if errors.As(err, &be) {
			return nil, apperrors.OperationFailed(be.Message).WithCause(err)
		}
		return nil, apperrors.OperationFailed(err.Error()).WithCause(err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inventory = append([]domain.OwnedToken(nil), resp.NFTs...)
	if f.quantity > len(f.unlistedLocked()) {
		f.quantity = len(f.unlistedLocked())
	}
	return append([]domain.OwnedToken(nil), f.inventory...), nil
}

// Unlisted returns the tokens available to list.
func (f *ListingCreationFlow) Unlisted() []domain.OwnedToken {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unlistedLocked()
}

// Max sets the quantity to every unlisted token and returns it.
func (f *ListingCreationFlow) Max() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quantity = len(f.unlistedLocked())
	return f.quantity
}

func (f *ListingCreationFlow) SetQuantity(n int) {
	f.mu.Lock()
	f.quantity = n
	f.mu.Unlock()
}

// SetPrice parses a human-readable price such as "0.25".
func (f *ListingCreationFlow) SetPrice(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return apperrors.ValidationError("price", "must be a number")
	}
	f.mu.Lock()
	f.price = d
	f.mu.Unlock()
	return nil
}

func (f *ListingCreationFlow) SetCurrency(c domain.Currency) {
	f.mu.Lock()
	f.currency = c
	f.mu.Unlock()
}

func (f *ListingCreationFlow) SetDuration(days int) {
	f.mu.Lock()
	f.duration = days
	f.mu.Unlock()
}

func (f *ListingCreationFlow) Price() decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.price
}

func (f *ListingCreationFlow) Quantity() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quantity
}

// Earnings previews the seller's proceeds for the current price.
func (f *ListingCreationFlow) Earnings() decimal.Decimal {
	return Earnings(f.Price())
}

// Lowest prices the listing 1% under the cheapest existing listing in any
// currency, converted into the selected currency through USD rates. The
// price is set and returned with 8 decimal places.
func (f *ListingCreationFlow) Lowest(ctx context.Context, listings domain.ListingsByCurrency) (string, error) {
	f.mu.Lock()
	selected := f.currency
	f.mu.Unlock()

	rates, err := f.usdRates(ctx, listings, selected)
	if err != nil {
		return "", err
	}
	price, err := LowestPrice(listings, rates, selected)
	if err != nil {
		return "", err
	}
	formatted := price.StringFixed(lowestPriceDecimals)

	f.mu.Lock()
	f.price = decimal.RequireFromString(formatted)
	f.mu.Unlock()
	return formatted, nil
}

// LowestPrice finds the listing with the lowest USD value across all
// currencies and converts 99% of it into selected.
func LowestPrice(listings domain.ListingsByCurrency, rates map[domain.Currency]decimal.Decimal, selected domain.Currency) (decimal.Decimal, error) {
	target, ok := rates[selected]
	if !ok || !target.IsPositive() {
		return decimal.Zero, apperrors.OperationFailed(fmt.Sprintf("No USD rate available for %s.", selected))
	}

	var best decimal.Decimal
	found := false
	for currency, ls := range listings {
		rate, ok := rates[currency]
		if !ok || !rate.IsPositive() {
			continue
		}
		for _, l := range ls {
			usd := l.DisplayPrice().Mul(rate)
			if !found || usd.LessThan(best) {
				best = usd
				found = true
			}
		}
	}
	if !found {
		return decimal.Zero, apperrors.NoListings()
	}
	return best.DivRound(target, 18).Mul(lowestDiscount), nil
}

func (f *ListingCreationFlow) usdRates(ctx context.Context, listings domain.ListingsByCurrency, selected domain.Currency) (map[domain.Currency]decimal.Decimal, error) {
	if f.prices == nil || f.deps.Registry == nil {
		return nil, apperrors.OperationFailed("Exchange rates are unavailable.")
	}
	byFeed := map[string]domain.Currency{}
	var ids []string
	add := func(c domain.Currency) {
		token, ok := f.deps.Registry.Token(string(c))
		if !ok || token.PriceFeedID == "" {
			return
		}
		if _, dup := byFeed[token.PriceFeedID]; !dup {
			ids = append(ids, token.PriceFeedID)
		}
		byFeed[token.PriceFeedID] = c
	}
	add(selected)
	for c := range listings {
		add(c)
	}

	quotes, err := f.prices.USDPrices(ctx, ids)
	if err != nil {
		return nil, apperrors.OperationFailed("Could not fetch exchange rates.").WithCause(err)
	}
	rates := make(map[domain.Currency]decimal.Decimal, len(quotes))
	for id, v := range quotes {
		if c, ok := byFeed[id]; ok {
			rates[c] = v
		}
	}
	return rates, nil
}

// Validate checks the form against the loaded inventory.
func (f *ListingCreationFlow) Validate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return ValidateListingForm(f.price, f.currency, f.quantity, len(f.unlistedLocked()), f.duration)
}

// Submit lists the first Quantity unlisted tokens.
func (f *ListingCreationFlow) Submit(ctx context.Context) ListingOutcome {
	addr, err := f.deps.checkWallet()
	if err == nil {
		err = f.Validate()
	}
	if err != nil {
		return ListingOutcome{Outcome: f.deps.rejected(domain.AttemptListing, addr, nil, err)}
	}

	f.mu.Lock()
	unlisted := f.unlistedLocked()
	tokenIDs := make([]string, 0, f.quantity)
	for _, tok := range unlisted[:f.quantity] {
		tokenIDs = append(tokenIDs, tok.TokenID)
	}
	req := domain.CreateListingRequest{
		TokenIDs:      tokenIDs,
		WalletAddress: addr,
		Currency:      f.currency,
		Price:         f.price.String(),
		DurationDays:  f.duration,
	}
	f.mu.Unlock()

	out := ListingOutcome{TokenIDs: tokenIDs}
	t, ctx := f.deps.begin(ctx, domain.AttemptListing, addr, nil)
	t.move(ctx, domain.StatePreparing)

	prep, err := f.deps.Backend.PrepareListing(ctx, req)
	if err != nil {
		out.Outcome = t.fail(ctx, preparationError(err, "Listing Failed"))
		return out
	}

	if err := f.deps.ensureChain(ctx); err != nil {
		out.Outcome = t.fail(ctx, err)
		return out
	}

	t.move(ctx, domain.StateAwaitingWalletActions)
	res, err := f.exec.Execute(ctx, addr, prep.Actions, apperrors.ListingFailed, func(s domain.AttemptState) { t.move(ctx, s) })
	if res != nil {
		t.attempt.TxHashes = res.TxHashes
		t.attempt.PendingTxHashes = res.PendingTxHashes
	}
	if err != nil {
		out.Outcome = t.fail(ctx, classify(err, apperrors.ListingFailed))
		return out
	}
	if len(res.Signatures) == 0 {
		out.Outcome = t.fail(ctx, apperrors.ListingFailed("The marketplace did not request an order signature."))
		return out
	}

	submitted, err := f.deps.Backend.SubmitListing(ctx, domain.SubmitListingRequest{
		WalletAddress: addr,
		TokenIDs:      tokenIDs,
		Signatures:    res.Signatures,
	})
	if err != nil {
		var be *domain.BackendError
		if errors.As(err, &be) {
			out.Outcome = t.fail(ctx, apperrors.ListingFailed(be.Message).WithCause(err))
		} else {
			out.Outcome = t.fail(ctx, apperrors.ListingFailed(err.Error()).WithCause(err))
		}
		return out
	}
	out.ListingIDs = submitted.Result.ListingIDs
	f.markListed(tokenIDs, out.ListingIDs)

	msg := fmt.Sprintf("Listed %d token(s) at %s %s each.", len(tokenIDs), req.Price, req.Currency)
	out.Outcome = t.finish(ctx, domain.StateSucceeded, "listing_created", "Listing Created", msg, map[string]interface{}{
		"token_ids":   tokenIDs,
		"listing_ids": out.ListingIDs,
		"currency":    string(req.Currency),
		"price":       req.Price,
	})
	return out
}

func (f *ListingCreationFlow) markListed(tokenIDs, listingIDs []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, id := range tokenIDs {
		for j := range f.inventory {
			if f.inventory[j].TokenID != id {
				continue
			}
			f.inventory[j].Listed = true
			if i < len(listingIDs) {
				f.inventory[j].ListingID = listingIDs[i]
			}
		}
	}
	if n := len(f.unlistedLocked()); f.quantity > n {
		f.quantity = n
	}
}

func (f *ListingCreationFlow) unlistedLocked() []domain.OwnedToken {
	var out []domain.OwnedToken
	for _, t := range f.inventory {
		if !t.Listed {
			out = append(out, t)
		}
	}
	return out
}
