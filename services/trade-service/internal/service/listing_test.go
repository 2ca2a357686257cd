package service

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/domain"
	apperrors "github.com/quangdang46/gu-marketplace/shared/errors"
)

func inventory() *domain.OwnedTokensResponse {
	return &domain.OwnedTokensResponse{Success: true, NFTs: []domain.OwnedToken{
		{TokenID: "101"},
		{TokenID: "102", Listed: true, ListingID: "l-102"},
		{TokenID: "103"},
		{TokenID: "104"},
	}}
}

func rates() *fakePrices {
	return &fakePrices{quotes: map[string]decimal.Decimal{
		"ethereum":       decimal.NewFromInt(3000),
		"usd-coin":       decimal.NewFromInt(1),
		"immutable-x":    decimal.RequireFromString("0.5"),
		"gods-unchained": decimal.RequireFromString("0.2"),
	}}
}

func loadedFlow(t *testing.T, w *mockWallet) (*ListingCreationFlow, *MockMarketplaceBackend) {
	deps, backend := newTestDeps(t, w)
	backend.EXPECT().GetOwnedTokens(gomock.Any(), cards, "42", buyer).Return(inventory(), nil)
	f := NewListingCreationFlow(deps, rates())
	_, err := f.LoadInventory(context.Background(), cards, "42")
	require.NoError(t, err)
	return f, backend
}

func TestEarnings(t *testing.T) {
	assert.True(t, TotalFeePercent().Equal(decimal.RequireFromString("3.5")))
	assert.True(t, Earnings(decimal.NewFromInt(1)).Equal(decimal.RequireFromString("0.965")))
	assert.True(t, Earnings(decimal.NewFromInt(200)).Equal(decimal.RequireFromString("193")))
}

func TestListingFlow_Max(t *testing.T) {
	f, _ := loadedFlow(t, connectedWallet())

	assert.Len(t, f.Unlisted(), 3)
	assert.Equal(t, 3, f.Max())
	assert.Equal(t, 3, f.Quantity())
}

func TestListingFlow_Lowest(t *testing.T) {
	f, _ := loadedFlow(t, connectedWallet())
	listings := domain.ListingsByCurrency{
		domain.CurrencyETH:  {listing("l-eth", domain.CurrencyETH, "500000000000000000")},
		domain.CurrencyUSDC: {listing("l-usdc", domain.CurrencyUSDC, "1000000000")},
	}

	price, err := f.Lowest(context.Background(), listings)
	require.NoError(t, err)
	assert.Equal(t, "0.33000000", price)
	assert.True(t, f.Price().Equal(decimal.RequireFromString("0.33")))

	f.SetCurrency(domain.CurrencyUSDC)
	price, err = f.Lowest(context.Background(), listings)
	require.NoError(t, err)
	assert.Equal(t, "990.00000000", price)
}

func TestListingFlow_LowestWithoutListings(t *testing.T) {
	f, _ := loadedFlow(t, connectedWallet())

	_, err := f.Lowest(context.Background(), domain.ListingsByCurrency{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNoListings))
}

func TestListingFlow_LowestRateFailure(t *testing.T) {
	deps, _ := newTestDeps(t, connectedWallet())
	f := NewListingCreationFlow(deps, &fakePrices{err: errors.New("rate limited")})

	_, err := f.Lowest(context.Background(), domain.ListingsByCurrency{
		domain.CurrencyETH: {listing("l-eth", domain.CurrencyETH, "1")},
	})
	require.Error(t, err)
	title, msg := apperrors.Present(err)
	assert.Equal(t, "Operation Failed", title)
	assert.Equal(t, "Could not fetch exchange rates.", msg)
}

func TestListingFlow_Validate(t *testing.T) {
	f, _ := loadedFlow(t, connectedWallet())

	tests := []struct {
		name     string
		price    string
		currency domain.Currency
		quantity int
		days     int
		field    string
	}{
		{"zero price", "0", domain.CurrencyETH, 1, 30, "price"},
		{"too precise for usdc", "1.0000001", domain.CurrencyUSDC, 1, 30, "price"},
		{"no quantity", "1", domain.CurrencyETH, 0, 30, "quantity"},
		{"more than unlisted", "1", domain.CurrencyETH, 4, 30, "quantity"},
		{"duration too long", "1", domain.CurrencyETH, 1, 181, "duration"},
		{"all is not a currency", "1", domain.CurrencyAll, 1, 30, "currency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, f.SetPrice(tt.price))
			f.SetCurrency(tt.currency)
			f.SetQuantity(tt.quantity)
			f.SetDuration(tt.days)

			err := f.Validate()
			e, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.field, e.Details["field"])
		})
	}

	assert.Error(t, f.SetPrice("abc"))
}

func TestListingFlow_Submit(t *testing.T) {
	w := connectedWallet().onChain(target)
	f, backend := loadedFlow(t, w)
	require.NoError(t, f.SetPrice("0.25"))
	f.SetQuantity(2)

	plan := domain.ActionPlan{
		domain.ActionTransaction{Purpose: "APPROVAL", To: "0x0000000000000000000000000000000000000a01", Data: "0xa22cb465"},
		domain.ActionSignable{Purpose: "CREATE_LISTING", Message: *cancelPayload()},
	}
	gomock.InOrder(
		backend.EXPECT().PrepareListing(gomock.Any(), domain.CreateListingRequest{
			TokenIDs:      []string{"101", "103"},
			WalletAddress: buyer,
			Currency:      domain.CurrencyETH,
			Price:         "0.25",
			DurationDays:  30,
		}).Return(&domain.CreateListingPrepareResponse{Success: true, Actions: plan}, nil),
		backend.EXPECT().SubmitListing(gomock.Any(), domain.SubmitListingRequest{
			WalletAddress: buyer,
			TokenIDs:      []string{"101", "103"},
			Signatures:    []string{"0xsig"},
		}).DoAndReturn(func(ctx context.Context, req domain.SubmitListingRequest) (*domain.SubmitListingResponse, error) {
			resp := &domain.SubmitListingResponse{Success: true}
			resp.Result.ListingIDs = []string{"l-101", "l-103"}
			return resp, nil
		}),
	)
	w.On("SendTransaction", mock.Anything, buyer, mock.Anything).Return("0xa1", nil)
	w.On("TransactionReceipt", mock.Anything, "0xa1").Return(&domain.Receipt{Status: 1}, nil)
	w.On("SignTypedData", mock.Anything, buyer, mock.Anything).Return("0xsig", nil)

	out := f.Submit(context.Background())
	require.NoError(t, out.Err)
	assert.Equal(t, "Listing Created", out.Title)
	assert.Equal(t, "Listed 2 token(s) at 0.25 ETH each.", out.Message)
	assert.Equal(t, []string{"l-101", "l-103"}, out.ListingIDs)

	unlisted := f.Unlisted()
	require.Len(t, unlisted, 1)
	assert.Equal(t, "104", unlisted[0].TokenID)
	assert.Equal(t, 1, f.Quantity())

	calls := w.Sequence()
	assert.Less(t, indexOf(calls, "chainId"), indexOf(calls, "send:APPROVAL"))
	assert.Less(t, indexOf(calls, "receipt:0xa1"), indexOf(calls, "sign:CancelPayload"))
}

func TestListingFlow_SubmitWithoutSignature(t *testing.T) {
	w := connectedWallet().onChain(target)
	f, backend := loadedFlow(t, w)
	require.NoError(t, f.SetPrice("1"))
	f.SetQuantity(1)

	backend.EXPECT().PrepareListing(gomock.Any(), gomock.Any()).
		Return(&domain.CreateListingPrepareResponse{Success: true}, nil)

	out := f.Submit(context.Background())
	assert.Equal(t, "Listing Failed", out.Title)
	assert.Equal(t, domain.StateFailed, out.Attempt.State)
}

func TestListingFlow_SubmitInvalidFormMakesNoCalls(t *testing.T) {
	w := connectedWallet()
	f, _ := loadedFlow(t, w)

	out := f.Submit(context.Background())
	assert.Equal(t, "Invalid Input", out.Title)
	assert.Empty(t, w.Sequence())
}
