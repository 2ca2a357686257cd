package domain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/shopspring/decimal"
)

// NetworkStatus is the result of a chain check.
type NetworkStatus int

const (
	OnCorrectChain NetworkStatus = iota
	WrongChain
)

func (s NetworkStatus) String() string {
	if s == OnCorrectChain {
		return "on_correct_chain"
	}
	return "wrong_chain"
}

type TokenBalance struct {
	Symbol    Currency        `json:"symbol"`
	Balance   *big.Int        `json:"balance"`
	Formatted decimal.Decimal `json:"formatted"`
	USDValue  decimal.Decimal `json:"usdValue"`
	// Err is set when the balance is a zero placeholder for a failed lookup.
	Err string `json:"error,omitempty"`
}

// ZeroBalance is the placeholder used when a token lookup fails.
func ZeroBalance(symbol Currency, err error) TokenBalance {
	tb := TokenBalance{Symbol: symbol, Balance: new(big.Int), Formatted: decimal.Zero, USDValue: decimal.Zero}
	if err != nil {
		tb.Err = err.Error()
	}
	return tb
}

// WalletSession is the connected account and network.
type WalletSession struct {
	Address       Address                   `json:"address,omitempty"`
	ChainID       ChainID                   `json:"chainId,omitempty"`
	NetworkLabel  string                    `json:"networkLabel,omitempty"`
	TokenBalances map[Currency]TokenBalance `json:"tokenBalances,omitempty"`
}

func (s WalletSession) Connected() bool { return s.Address != "" }

// Receipt is the subset of a transaction receipt the client reads.
type Receipt struct {
	TxHash      string
	Status      uint64
	BlockNumber uint64
}

const (
	ReceiptStatusFailed     uint64 = 0
	ReceiptStatusSuccessful uint64 = 1
)

func (r Receipt) Succeeded() bool { return r.Status == ReceiptStatusSuccessful }

// Wallet is the surface orchestrators drive. Implemented by the wallet
// session.
type Wallet interface {
	// Address is empty when no account is connected.
	Address() Address
	HasProvider() bool
	ChainID(ctx context.Context) (ChainID, error)
	SendTransaction(ctx context.Context, from Address, tx ActionTransaction) (string, error)
	// TransactionReceipt returns nil, nil while the transaction is unmined.
	TransactionReceipt(ctx context.Context, txHash string) (*Receipt, error)
	SignTypedData(ctx context.Context, from Address, doc apitypes.TypedData) (string, error)
}

// PriceFeed returns USD prices keyed by price-feed id.
type PriceFeed interface {
	USDPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error)
}
