package blockchain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/patrickmn/go-cache"
)

// TxState is the on-chain state of a submitted transaction.
type TxState string

const (
	TxNotFound  TxState = "not_found"
	TxPending   TxState = "pending"
	TxConfirmed TxState = "confirmed"
	TxReverted  TxState = "reverted"
)

// ChainReader is the part of ethclient the verifier uses.
type ChainReader interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
}

// TxStatus describes a transaction as seen by the chain node.
type TxStatus struct {
	Hash        string
	State       TxState
	BlockNumber uint64
	To          string
	GasUsed     uint64
	ExplorerURL string
	// Mismatch is set when the transaction went to another contract than
	// the caller expected.
	Mismatch string
}

// TxVerifier reads transactions straight from a chain node, independent of
// the wallet. Mined results are cached.
type TxVerifier struct {
	client   ChainReader
	cache    *cache.Cache
	explorer string
}

// Dial connects to the node at rpcURL.
func Dial(ctx context.Context, rpcURL, explorerURL string) (*TxVerifier, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", rpcURL, err)
	}
	return NewTxVerifier(client, explorerURL), nil
}

func NewTxVerifier(client ChainReader, explorerURL string) *TxVerifier {
	return &TxVerifier{
		client:   client,
		cache:    cache.New(5*time.Minute, 10*time.Minute),
		explorer: strings.TrimRight(explorerURL, "/"),
	}
}

// Verify looks up hash. expectedTo, when set, is compared with the
// transaction's recipient.
func (v *TxVerifier) Verify(ctx context.Context, hash, expectedTo string) (TxStatus, error) {
	raw, err := hexutil.Decode(hash)
	if err != nil || len(raw) != common.HashLength {
		return TxStatus{}, fmt.Errorf("invalid transaction hash %q", hash)
	}
	h := common.BytesToHash(raw)

	key := h.Hex()
	if cached, ok := v.cache.Get(key); ok {
		return v.withExpectation(cached.(TxStatus), expectedTo), nil
	}

	status := TxStatus{Hash: h.Hex(), ExplorerURL: v.explorerLink(h)}

	tx, pending, err := v.client.TransactionByHash(ctx, h)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			status.State = TxNotFound
			return status, nil
		}
		return TxStatus{}, fmt.Errorf("failed to get transaction: %w", err)
	}
	if tx.To() != nil {
		status.To = tx.To().Hex()
	}
	if pending {
		status.State = TxPending
		return v.withExpectation(status, expectedTo), nil
	}

	receipt, err := v.client.TransactionReceipt(ctx, h)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			status.State = TxPending
			return v.withExpectation(status, expectedTo), nil
		}
		return TxStatus{}, fmt.Errorf("failed to get transaction receipt: %w", err)
	}

	status.State = TxReverted
	if receipt.Status == types.ReceiptStatusSuccessful {
		status.State = TxConfirmed
	}
	if receipt.BlockNumber != nil {
		status.BlockNumber = receipt.BlockNumber.Uint64()
	}
	status.GasUsed = receipt.GasUsed
	v.cache.SetDefault(key, status)

	return v.withExpectation(status, expectedTo), nil
}

func (v *TxVerifier) withExpectation(s TxStatus, expectedTo string) TxStatus {
	s.Mismatch = ""
	if expectedTo != "" && s.To != "" && !strings.EqualFold(s.To, expectedTo) {
		s.Mismatch = fmt.Sprintf("transaction to wrong contract: expected %s, got %s", expectedTo, s.To)
	}
	return s
}

func (v *TxVerifier) explorerLink(h common.Hash) string {
	if v.explorer == "" {
		return ""
	}
	return v.explorer + "/tx/" + h.Hex()
}
