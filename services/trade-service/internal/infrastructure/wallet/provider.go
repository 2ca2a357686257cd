package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/quangdang46/gu-marketplace/shared/config"
	apperrors "github.com/quangdang46/gu-marketplace/shared/errors"
)

// EIP-1193 and JSON-RPC error codes the client reacts to.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupported       = 4200
	CodeUnrecognizedChain = 4902
	CodeInvalidParams     = -32602
	CodeInternal          = -32603
)

// Provider is an EIP-1193 style wallet: every interaction is a JSON-RPC
// request whose result is decoded into result.
type Provider interface {
	Request(ctx context.Context, result interface{}, method string, params ...interface{}) error
}

// EventSource is implemented by providers that push account and chain
// changes.
type EventSource interface {
	Events() <-chan ProviderEvent
}

const (
	EventAccountsChanged = "accountsChanged"
	EventChainChanged    = "chainChanged"
)

type ProviderEvent struct {
	Name     string
	Accounts []string
	ChainID  string
}

// ProviderError is a wallet error carrying an EIP-1193 code. It satisfies
// go-ethereum's rpc.Error.
type ProviderError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ProviderError) Error() string  { return e.Message }
func (e *ProviderError) ErrorCode() int { return e.Code }

var _ rpc.Error = (*ProviderError)(nil)

func providerError(code int, format string, args ...interface{}) *ProviderError {
	return &ProviderError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the provider error code from err's chain.
func CodeOf(err error) (int, bool) {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode(), true
	}
	return 0, false
}

// isEmptyError matches the message-less errors some wallets return when a
// signature prompt is dismissed.
func isEmptyError(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := CodeOf(err); ok && code != 0 {
		return false
	}
	return strings.TrimSpace(err.Error()) == ""
}

// SendError maps an eth_sendTransaction failure to the user-facing taxonomy.
// Unclassified failures go through fallback with the wallet's message.
func SendError(err error, fallback func(message string) *apperrors.Error) *apperrors.Error {
	code, _ := CodeOf(err)
	switch code {
	case CodeUserRejected:
		return apperrors.UserRejected().WithCause(err)
	case CodeInternal:
		return apperrors.InsufficientFunds().WithCause(err)
	case CodeInvalidParams:
		return apperrors.InvalidParameters().WithCause(err)
	}
	msg := err.Error()
	if strings.TrimSpace(msg) == "" {
		msg = "The transaction could not be sent."
	}
	if fallback == nil {
		fallback = apperrors.OperationFailed
	}
	return fallback(msg).WithCause(err)
}

// SignError maps an eth_signTypedData_v4 failure. Code 4001 and empty
// errors are both rejections.
func SignError(err error) *apperrors.Error {
	if code, _ := CodeOf(err); code == CodeUserRejected || isEmptyError(err) {
		return apperrors.SignatureRejected().WithCause(err)
	}
	return apperrors.OperationFailed(err.Error()).WithCause(err)
}

// TxArgs is the eth_sendTransaction parameter object.
type TxArgs struct {
	From  string          `json:"from"`
	To    string          `json:"to"`
	Data  string          `json:"data,omitempty"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Gas   *hexutil.Uint64 `json:"gas,omitempty"`
}

type CallArgs struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

type switchChainParams struct {
	ChainID string `json:"chainId"`
}

// AddChainParams is the wallet_addEthereumChain parameter object.
type AddChainParams struct {
	ChainID           string                `json:"chainId"`
	ChainName         string                `json:"chainName"`
	NativeCurrency    config.NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string              `json:"rpcUrls"`
	BlockExplorerURLs []string              `json:"blockExplorerUrls,omitempty"`
}

// ChainParams builds wallet_addEthereumChain parameters for chain.
func ChainParams(chain config.ChainConfig) AddChainParams {
	p := AddChainParams{
		ChainID:        strings.ToLower(chain.ChainID),
		ChainName:      chain.ChainName,
		NativeCurrency: chain.NativeCurrency,
		RPCURLs:        []string{chain.RPCURL},
	}
	if chain.ExplorerURL != "" {
		p.BlockExplorerURLs = []string{chain.ExplorerURL}
	}
	return p
}

// ManualSetupError is returned when the wallet cannot be switched
// automatically. It carries the parameters the user must enter by hand.
type ManualSetupError struct {
	Params AddChainParams
	Cause  error
}

func (e *ManualSetupError) Error() string {
	return fmt.Sprintf("switch to %s failed, add the network manually: %v", e.Params.ChainName, e.Cause)
}

func (e *ManualSetupError) Unwrap() error { return e.Cause }

// Instructions renders the copyable connection parameters.
func (e *ManualSetupError) Instructions() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Network name:    %s\n", e.Params.ChainName)
	for _, u := range e.Params.RPCURLs {
		fmt.Fprintf(&b, "RPC URL:         %s\n", u)
	}
	id, err := config.ParseChainID(e.Params.ChainID)
	if err == nil {
		fmt.Fprintf(&b, "Chain ID:        %s\n", id.String())
	}
	fmt.Fprintf(&b, "Currency symbol: %s\n", e.Params.NativeCurrency.Symbol)
	for _, u := range e.Params.BlockExplorerURLs {
		fmt.Fprintf(&b, "Block explorer:  %s\n", u)
	}
	return b.String()
}
