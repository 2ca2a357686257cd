package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/joho/godotenv"

	"github.com/quangdang46/gu-marketplace/shared/env"
)

// ChainConfig holds the target chain settings. The same values are offered
// to wallets through wallet_addEthereumChain and shown in the manual setup view.
type ChainConfig struct {
	ChainID        string         `json:"chain_id"` // 0x-prefixed hex, as returned by eth_chainId
	ChainName      string         `json:"chain_name"`
	RPCURL         string         `json:"rpc_url"`
	ExplorerURL    string         `json:"explorer_url"`
	NativeCurrency NativeCurrency `json:"native_currency"`
}

// NativeCurrency mirrors the nativeCurrency object of wallet_addEthereumChain.
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// TokenConfig describes a currency tradable on the marketplace.
type TokenConfig struct {
	Symbol      string `json:"symbol"`
	Address     string `json:"address"` // empty for the native token
	Decimals    int    `json:"decimals"`
	PriceFeedID string `json:"price_feed_id"`
	Native      bool   `json:"native"`
}

// Registry is the chain plus the ordered token list.
type Registry struct {
	Chain  ChainConfig   `json:"chain"`
	Tokens []TokenConfig `json:"tokens"`
}

// TargetChainID is Immutable zkEVM mainnet (13371).
const TargetChainID = "0x343B"

// LoadChainConfig loads .env when present and builds the registry, letting
// every default be overridden from the environment.
func LoadChainConfig() (*Registry, error) {
	_ = godotenv.Load()

	reg := &Registry{
		Chain: ChainConfig{
			ChainID:     env.GetString("CHAIN_ID", TargetChainID),
			ChainName:   env.GetString("CHAIN_NAME", "Immutable zkEVM"),
			RPCURL:      env.GetString("CHAIN_RPC_URL", "https://rpc.immutable.com"),
			ExplorerURL: env.GetString("CHAIN_EXPLORER_URL", "https://explorer.immutable.com"),
			NativeCurrency: NativeCurrency{
				Name:     env.GetString("CHAIN_NATIVE_NAME", "IMX"),
				Symbol:   env.GetString("CHAIN_NATIVE_SYMBOL", "IMX"),
				Decimals: env.GetInt("CHAIN_NATIVE_DECIMALS", 18),
			},
		},
		Tokens: []TokenConfig{
			{
				Symbol:      "IMX",
				Decimals:    18,
				PriceFeedID: env.GetString("PRICE_ID_IMX", "immutable-x"),
				Native:      true,
			},
			{
				Symbol:      "ETH",
				Address:     env.GetString("TOKEN_ETH_ADDRESS", "0x52A6c53869Ce09a731CD772f245b97A4401d3348"),
				Decimals:    18,
				PriceFeedID: env.GetString("PRICE_ID_ETH", "ethereum"),
			},
			{
				Symbol:      "USDC",
				Address:     env.GetString("TOKEN_USDC_ADDRESS", "0x6de8aCC0D406837030CE4dd28e7c08C5a96a30d2"),
				Decimals:    6,
				PriceFeedID: env.GetString("PRICE_ID_USDC", "usd-coin"),
			},
			{
				Symbol:      "GODS",
				Address:     env.GetString("TOKEN_GODS_ADDRESS", "0xE0e0981d19eF2E0a57Cc48CA60D9454ed2D53fEB"),
				Decimals:    18,
				PriceFeedID: env.GetString("PRICE_ID_GODS", "gods-unchained"),
			},
		},
	}

	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}

// Validate checks the chain id parses and every ERC20 has an address.
func (r *Registry) Validate() error {
	if _, err := ParseChainID(r.Chain.ChainID); err != nil {
		return fmt.Errorf("invalid CHAIN_ID: %w", err)
	}
	if r.Chain.RPCURL == "" {
		return fmt.Errorf("CHAIN_RPC_URL is required")
	}
	for _, t := range r.Tokens {
		if !t.Native && t.Address == "" {
			return fmt.Errorf("token %s has no contract address", t.Symbol)
		}
	}
	return nil
}

// Token looks a currency up by symbol, case-insensitively.
func (r *Registry) Token(symbol string) (TokenConfig, bool) {
	for _, t := range r.Tokens {
		if strings.EqualFold(t.Symbol, symbol) {
			return t, true
		}
	}
	return TokenConfig{}, false
}

// ChainIDBig returns the numeric chain id. Validate guarantees it parses.
func (r *Registry) ChainIDBig() *big.Int {
	id, _ := ParseChainID(r.Chain.ChainID)
	return id
}

// ParseChainID accepts "0x343B", "0x343b" or "13371".
func ParseChainID(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty chain id")
	}
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	id, ok := new(big.Int).SetString(s, base)
	if !ok || id.Sign() <= 0 {
		return nil, fmt.Errorf("malformed chain id %q", s)
	}
	return id, nil
}

// SameChain compares two chain ids regardless of hex case or base.
func SameChain(a, b string) bool {
	x, err := ParseChainID(a)
	if err != nil {
		return false
	}
	y, err := ParseChainID(b)
	if err != nil {
		return false
	}
	return x.Cmp(y) == 0
}
