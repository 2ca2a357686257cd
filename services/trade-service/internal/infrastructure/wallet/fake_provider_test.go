package wallet

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/quangdang46/gu-marketplace/shared/config"
)

type handlerFunc func(params []interface{}) (interface{}, error)

type fakeCall struct {
	method string
	params []interface{}
}

type fakeProvider struct {
	mu       sync.Mutex
	calls    []fakeCall
	handlers map[string]handlerFunc
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{handlers: map[string]handlerFunc{}}
}

func (f *fakeProvider) on(method string, h handlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = h
}

func (f *fakeProvider) Request(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{method: method, params: params})
	h, ok := f.handlers[method]
	f.mu.Unlock()

	if !ok {
		return providerError(CodeUnsupported, "method %s not supported", method)
	}
	v, err := h(params)
	if err != nil {
		return err
	}
	return assign(result, v)
}

func (f *fakeProvider) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.method)
	}
	return out
}

func (f *fakeProvider) callsTo(method string) []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fakeCall
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

type eventfulProvider struct {
	*fakeProvider
	events chan ProviderEvent
}

func (e *eventfulProvider) Events() <-chan ProviderEvent { return e.events }

type fakePrices struct {
	prices map[string]decimal.Decimal
	err    error
}

func (f fakePrices) USDPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	return f.prices, f.err
}

const (
	ethToken  = "0x52A6c53869Ce09a731CD772f245b97A4401d3348"
	usdcToken = "0x6de8aCC0D406837030CE4dd28e7c08C5a96a30d2"
	godsToken = "0xE0e0981d19eF2E0a57Cc48CA60D9454ed2D53fEB"
)

func testRegistry() *config.Registry {
	return &config.Registry{
		Chain: config.ChainConfig{
			ChainID:        "0x343B",
			ChainName:      "Immutable zkEVM",
			RPCURL:         "https://rpc.immutable.com",
			ExplorerURL:    "https://explorer.immutable.com",
			NativeCurrency: config.NativeCurrency{Name: "IMX", Symbol: "IMX", Decimals: 18},
		},
		Tokens: []config.TokenConfig{
			{Symbol: "IMX", Decimals: 18, PriceFeedID: "immutable-x", Native: true},
			{Symbol: "ETH", Address: ethToken, Decimals: 18, PriceFeedID: "ethereum"},
			{Symbol: "USDC", Address: usdcToken, Decimals: 6, PriceFeedID: "usd-coin"},
			{Symbol: "GODS", Address: godsToken, Decimals: 18, PriceFeedID: "gods-unchained"},
		},
	}
}
