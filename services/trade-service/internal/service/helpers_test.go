package service

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/domain"
	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/status"
	"github.com/quangdang46/gu-marketplace/shared/config"
	"github.com/quangdang46/gu-marketplace/shared/resilience"
)

//go:generate mockgen -destination=mock_backend_test.go -package=service github.com/quangdang46/gu-marketplace/services/trade-service/internal/domain MarketplaceBackend

const (
	buyer    = "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb2"
	cards    = "0xacb3c6a43d15b907e8433077b6d38ae40936fe2c"
	target   = "0x343b"
	ethereum = "0x1"
)

// mockWallet records the order of wallet calls on top of testify's mock.
type mockWallet struct {
	mock.Mock
	mu    sync.Mutex
	calls []string
}

func (w *mockWallet) record(call string) {
	w.mu.Lock()
	w.calls = append(w.calls, call)
	w.mu.Unlock()
}

func (w *mockWallet) Sequence() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.calls...)
}

func (w *mockWallet) Address() domain.Address {
	return w.Called().String(0)
}

func (w *mockWallet) HasProvider() bool {
	return w.Called().Bool(0)
}

func (w *mockWallet) ChainID(ctx context.Context) (domain.ChainID, error) {
	w.record("chainId")
	args := w.Called(ctx)
	return args.String(0), args.Error(1)
}

func (w *mockWallet) SendTransaction(ctx context.Context, from domain.Address, tx domain.ActionTransaction) (string, error) {
	w.record("send:" + tx.Purpose)
	args := w.Called(ctx, from, tx)
	return args.String(0), args.Error(1)
}

func (w *mockWallet) TransactionReceipt(ctx context.Context, hash string) (*domain.Receipt, error) {
	w.record("receipt:" + hash)
	args := w.Called(ctx, hash)
	r, _ := args.Get(0).(*domain.Receipt)
	return r, args.Error(1)
}

func (w *mockWallet) SignTypedData(ctx context.Context, from domain.Address, doc apitypes.TypedData) (string, error) {
	w.record("sign:" + doc.PrimaryType)
	args := w.Called(ctx, from, doc)
	return args.String(0), args.Error(1)
}

func connectedWallet() *mockWallet {
	w := &mockWallet{}
	w.On("Address").Return(buyer)
	w.On("HasProvider").Return(true)
	return w
}

func (w *mockWallet) onChain(chainID string) *mockWallet {
	w.On("ChainID", mock.Anything).Return(chainID, nil)
	return w
}

type fakePrices struct {
	quotes map[string]decimal.Decimal
	err    error
}

func (f *fakePrices) USDPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]decimal.Decimal{}
	for _, id := range ids {
		if v, ok := f.quotes[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func testRegistry() *config.Registry {
	return &config.Registry{
		Chain: config.ChainConfig{
			ChainID:        config.TargetChainID,
			ChainName:      "Immutable zkEVM",
			RPCURL:         "https://rpc.immutable.com",
			ExplorerURL:    "https://explorer.immutable.com",
			NativeCurrency: config.NativeCurrency{Name: "IMX", Symbol: "IMX", Decimals: 18},
		},
		Tokens: []config.TokenConfig{
			{Symbol: "IMX", Decimals: 18, PriceFeedID: "immutable-x", Native: true},
			{Symbol: "ETH", Address: "0x52a6c53869ce09a731cd772f245b97a4401d3348", Decimals: 18, PriceFeedID: "ethereum"},
			{Symbol: "USDC", Address: "0x6de8acc0d406837030ce4dd28e7c08c5a96a30d2", Decimals: 6, PriceFeedID: "usd-coin"},
			{Symbol: "GODS", Address: "0xe0e0981d19ef2e0a57cc48ca60d9454ed2d53feb", Decimals: 18, PriceFeedID: "gods-unchained"},
		},
	}
}

func newTestDeps(t *testing.T, w domain.Wallet) (Deps, *MockMarketplaceBackend) {
	ctrl := gomock.NewController(t)
	backend := NewMockMarketplaceBackend(ctrl)
	var n int
	return Deps{
		Backend:  backend,
		Wallet:   w,
		Registry: testRegistry(),
		Status:   status.NewStatusCache(nil, nil),
		Poll:     &resilience.PollConfig{Interval: time.Millisecond, MaxAttempts: 60, BackoffFactor: 1},
		NewID: func() string {
			n++
			return fmt.Sprintf("attempt-%d", n)
		},
	}, backend
}

func wei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(s)
	}
	return v
}

func listing(id string, currency domain.Currency, total string) domain.Listing {
	return domain.Listing{
		ListingID:     id,
		TokenID:       "t-" + id,
		SellerAddress: "0x0000000000000000000000000000000000000005",
		Currency:      currency,
		BasePrice:     wei(total),
		TotalWithFees: wei(total),
		Status:        "ACTIVE",
	}
}

func indexOf(calls []string, call string) int {
	for i, c := range calls {
		if c == call {
			return i
		}
	}
	return -1
}

func lastIndexOf(calls []string, call string) int {
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i] == call {
			return i
		}
	}
	return -1
}

func cancelPayload() *domain.TypedPayload {
	return &domain.TypedPayload{
		Domain: domain.TypedDomain{Name: "ImmutableOrderbook", Version: "1", ChainID: "13371"},
		Types:  map[string][]domain.TypedField{"CancelPayload": {{Name: "orders", Type: "string[]"}}},
		Value:  map[string]interface{}{"orders": []interface{}{"o-1"}},
	}
}
