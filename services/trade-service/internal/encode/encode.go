package encode

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const erc20ABI = `[
	{
		"constant": true,
		"inputs": [{"name": "owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

var (
	parsedOnce sync.Once
	parsedERC  abi.ABI
	parseErr   error
)

func erc20() (abi.ABI, error) {
	parsedOnce.Do(func() {
		parsedERC, parseErr = abi.JSON(strings.NewReader(erc20ABI))
	})
	return parsedERC, parseErr
}

// BalanceOf returns calldata for ERC20 balanceOf(owner).
func BalanceOf(owner string) ([]byte, error) {
	if !common.IsHexAddress(owner) {
		return nil, fmt.Errorf("invalid owner address %q", owner)
	}
	parsed, err := erc20()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	data, err := parsed.Pack("balanceOf", common.HexToAddress(owner))
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}
	return data, nil
}

// DecodeBalance unpacks the eth_call result of balanceOf.
func DecodeBalance(result string) (*big.Int, error) {
	raw, err := hexutil.Decode(result)
	if err != nil {
		return nil, fmt.Errorf("decode call result: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty balanceOf result")
	}
	parsed, err := erc20()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	out, err := parsed.Unpack("balanceOf", raw)
	if err != nil {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf output %T", out[0])
	}
	return v, nil
}
