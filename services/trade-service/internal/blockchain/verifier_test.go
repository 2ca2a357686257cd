package blockchain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seaport = "0x0000000000000000000000000000000000000A02"

type fakeChain struct {
	tx       *types.Transaction
	pending  bool
	receipt  *types.Receipt
	txErr    error
	receipts int
}

func (f *fakeChain) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	if f.txErr != nil {
		return nil, false, f.txErr
	}
	return f.tx, f.pending, nil
}

func (f *fakeChain) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	f.receipts++
	if f.receipt == nil {
		return nil, ethereum.NotFound
	}
	return f.receipt, nil
}

func fulfilTx() *types.Transaction {
	to := common.HexToAddress(seaport)
	return types.NewTx(&types.DynamicFeeTx{ChainID: big.NewInt(13371), To: &to, Gas: 21000})
}

var hash = common.HexToHash("0x01").Hex()

func TestVerifyConfirmedIsCached(t *testing.T) {
	chain := &fakeChain{
		tx:      fulfilTx(),
		receipt: &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(42), GasUsed: 90000},
	}
	v := NewTxVerifier(chain, "https://explorer.immutable.com/")

	s, err := v.Verify(context.Background(), hash, seaport)
	require.NoError(t, err)
	assert.Equal(t, TxConfirmed, s.State)
	assert.EqualValues(t, 42, s.BlockNumber)
	assert.Empty(t, s.Mismatch)
	assert.Equal(t, "https://explorer.immutable.com/tx/"+hash, s.ExplorerURL)

	s, err = v.Verify(context.Background(), hash, "0x0000000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, 1, chain.receipts)
	assert.Contains(t, s.Mismatch, "wrong contract")
}

func TestVerifyStates(t *testing.T) {
	tests := []struct {
		name  string
		chain *fakeChain
		want  TxState
	}{
		{"not found", &fakeChain{txErr: ethereum.NotFound}, TxNotFound},
		{"pending in pool", &fakeChain{tx: fulfilTx(), pending: true}, TxPending},
		{"mined without receipt yet", &fakeChain{tx: fulfilTx()}, TxPending},
		{"reverted", &fakeChain{tx: fulfilTx(), receipt: &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(1)}}, TxReverted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewTxVerifier(tt.chain, "").Verify(context.Background(), hash, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.State)
		})
	}
}

func TestVerifyErrors(t *testing.T) {
	v := NewTxVerifier(&fakeChain{txErr: errors.New("connection refused")}, "")

	_, err := v.Verify(context.Background(), "0x1234", "")
	assert.Error(t, err)

	_, err = v.Verify(context.Background(), hash, "")
	assert.ErrorContains(t, err, "connection refused")
}
