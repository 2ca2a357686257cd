package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/shopspring/decimal"

	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/domain"
	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/encode"
	"github.com/quangdang46/gu-marketplace/shared/config"
	apperrors "github.com/quangdang46/gu-marketplace/shared/errors"
	"github.com/quangdang46/gu-marketplace/shared/logging"
	"github.com/quangdang46/gu-marketplace/shared/metrics"
)

// Connector performs wallet operations against a Provider. A nil provider
// means no wallet is installed.
type Connector struct {
	provider Provider
	registry *config.Registry
	prices   domain.PriceFeed
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

func NewConnector(provider Provider, registry *config.Registry, prices domain.PriceFeed, logger *logging.Logger, m *metrics.Metrics) *Connector {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Connector{
		provider: provider,
		registry: registry,
		prices:   prices,
		logger:   logger,
		metrics:  m,
	}
}

func (c *Connector) HasProvider() bool { return c.provider != nil }

func (c *Connector) Provider() Provider { return c.provider }

func (c *Connector) request(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	if c.provider == nil {
		return apperrors.ProviderMissing()
	}
	start := time.Now()
	err := c.provider.Request(ctx, result, method, params...)
	c.metrics.RecordWalletRequest(method, time.Since(start), err)

	log := c.logger.WithField("method", method)
	if err != nil {
		code, _ := CodeOf(err)
		log.WithField("code", code).WithError(err).Debug("wallet request failed")
		return err
	}
	log.Debug("wallet request")
	return nil
}

// Connect requests account access and returns the primary address.
func (c *Connector) Connect(ctx context.Context) (domain.Address, error) {
	if c.provider == nil {
		return "", apperrors.ProviderMissing()
	}
	var accounts []string
	if err := c.request(ctx, &accounts, "eth_requestAccounts"); err != nil {
		if code, _ := CodeOf(err); code == CodeUserRejected {
			return "", apperrors.UserRejected().WithCause(err)
		}
		return "", apperrors.OperationFailed(fmt.Sprintf("Could not connect wallet: %v", err)).WithCause(err)
	}
	if len(accounts) == 0 {
		return "", apperrors.WalletNotConnected()
	}
	return accounts[0], nil
}

// Accounts returns the accounts already exposed to this client, without
// prompting.
func (c *Connector) Accounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := c.request(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (c *Connector) ChainID(ctx context.Context) (domain.ChainID, error) {
	var id string
	if err := c.request(ctx, &id, "eth_chainId"); err != nil {
		return "", err
	}
	return id, nil
}

// CheckNetwork compares the wallet's chain with the target chain.
func (c *Connector) CheckNetwork(ctx context.Context) (domain.NetworkStatus, domain.ChainID, error) {
	id, err := c.ChainID(ctx)
	if err != nil {
		return domain.WrongChain, "", err
	}
	if config.SameChain(id, c.registry.Chain.ChainID) {
		return domain.OnCorrectChain, id, nil
	}
	return domain.WrongChain, id, nil
}

// NetworkLabel names chain for display.
func (c *Connector) NetworkLabel(chainID domain.ChainID) string {
	if config.SameChain(chainID, c.registry.Chain.ChainID) {
		return c.registry.Chain.ChainName
	}
	if id, err := config.ParseChainID(chainID); err == nil {
		return fmt.Sprintf("Unsupported network (%s)", id)
	}
	return "Unknown network"
}

// SwitchNetwork asks the wallet to move to the target chain, registering
// the chain first when the wallet does not know it. A user rejection is a
// no-op; any other failure returns *ManualSetupError.
func (c *Connector) SwitchNetwork(ctx context.Context) error {
	params := ChainParams(c.registry.Chain)
	err := c.switchChain(ctx, params.ChainID)
	if err == nil {
		return nil
	}

	code, _ := CodeOf(err)
	switch code {
	case CodeUserRejected:
		c.logger.Info("network switch declined by user")
		return nil
	case CodeUnrecognizedChain:
		if addErr := c.request(ctx, nil, "wallet_addEthereumChain", params); addErr != nil {
			if addCode, _ := CodeOf(addErr); addCode == CodeUserRejected {
				c.logger.Info("add network declined by user")
				return nil
			}
			return &ManualSetupError{Params: params, Cause: addErr}
		}
		if retryErr := c.switchChain(ctx, params.ChainID); retryErr != nil {
			if retryCode, _ := CodeOf(retryErr); retryCode == CodeUserRejected {
				return nil
			}
			return &ManualSetupError{Params: params, Cause: retryErr}
		}
		return nil
	default:
		return &ManualSetupError{Params: params, Cause: err}
	}
}

func (c *Connector) switchChain(ctx context.Context, chainID string) error {
	return c.request(ctx, nil, "wallet_switchEthereumChain", switchChainParams{ChainID: chainID})
}

// FetchBalances reads every registry token for address. A failed token is
// reported as a zero placeholder; a failed price lookup leaves USD values
// at zero.
func (c *Connector) FetchBalances(ctx context.Context, address domain.Address) map[domain.Currency]domain.TokenBalance {
	out := make(map[domain.Currency]domain.TokenBalance, len(c.registry.Tokens))
	var feedIDs []string

	for _, token := range c.registry.Tokens {
		symbol := domain.Currency(token.Symbol)
		bal, err := c.tokenBalance(ctx, address, token)
		if err != nil {
			c.logger.WithField("token", token.Symbol).WithError(err).Warn("balance lookup failed")
			out[symbol] = domain.ZeroBalance(symbol, err)
			continue
		}
		out[symbol] = domain.TokenBalance{
			Symbol:    symbol,
			Balance:   bal,
			Formatted: decimal.NewFromBigInt(bal, -int32(token.Decimals)),
			USDValue:  decimal.Zero,
		}
		if token.PriceFeedID != "" {
			feedIDs = append(feedIDs, token.PriceFeedID)
		}
	}

	if c.prices == nil || len(feedIDs) == 0 {
		return out
	}
	prices, err := c.prices.USDPrices(ctx, feedIDs)
	if err != nil {
		c.logger.WithError(err).Warn("price lookup failed, balances shown without USD values")
		return out
	}
	for _, token := range c.registry.Tokens {
		symbol := domain.Currency(token.Symbol)
		tb, ok := out[symbol]
		price, priced := prices[token.PriceFeedID]
		if !ok || !priced || tb.Err != "" {
			continue
		}
		tb.USDValue = tb.Formatted.Mul(price).Round(2)
		out[symbol] = tb
	}
	return out
}

func (c *Connector) tokenBalance(ctx context.Context, address domain.Address, token config.TokenConfig) (*big.Int, error) {
	if token.Native {
		var bal hexutil.Big
		if err := c.request(ctx, &bal, "eth_getBalance", address, "latest"); err != nil {
			return nil, err
		}
		return bal.ToInt(), nil
	}

	data, err := encode.BalanceOf(address)
	if err != nil {
		return nil, err
	}
	var result string
	call := CallArgs{To: token.Address, Data: hexutil.Encode(data)}
	if err := c.request(ctx, &result, "eth_call", call, "latest"); err != nil {
		return nil, err
	}
	return encode.DecodeBalance(result)
}

// SendTransaction submits tx from the given account. Value and gas are
// only included when set.
func (c *Connector) SendTransaction(ctx context.Context, from domain.Address, tx domain.ActionTransaction) (string, error) {
	args := TxArgs{From: from, To: tx.To, Data: tx.Data}
	if tx.HasValue() {
		args.Value = (*hexutil.Big)(tx.Value)
	}
	if tx.GasLimit > 0 {
		gas := hexutil.Uint64(tx.GasLimit)
		args.Gas = &gas
	}
	var hash string
	if err := c.request(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return "", err
	}
	return hash, nil
}

type rpcReceipt struct {
	TransactionHash string          `json:"transactionHash"`
	Status          *hexutil.Uint64 `json:"status"`
	BlockNumber     *hexutil.Uint64 `json:"blockNumber"`
}

func (c *Connector) TransactionReceipt(ctx context.Context, txHash string) (*domain.Receipt, error) {
	var r *rpcReceipt
	if err := c.request(ctx, &r, "eth_getTransactionReceipt", txHash); err != nil {
		return nil, err
	}
	if r == nil || r.BlockNumber == nil {
		return nil, nil
	}
	out := &domain.Receipt{TxHash: r.TransactionHash, BlockNumber: uint64(*r.BlockNumber), Status: domain.ReceiptStatusSuccessful}
	// Pre-Byzantium receipts carry a state root instead of a status. Being
	// mined is all they can report.
	if r.Status != nil {
		out.Status = uint64(*r.Status)
	} else {
		c.logger.WithField("tx_hash", txHash).Warn("receipt has no status field, treating as included")
	}
	return out, nil
}

// SignTypedData requests an eth_signTypedData_v4 signature over td.
func (c *Connector) SignTypedData(ctx context.Context, from domain.Address, td apitypes.TypedData) (string, error) {
	doc, err := json.Marshal(td)
	if err != nil {
		return "", fmt.Errorf("encode typed data: %w", err)
	}
	var sig string
	if err := c.request(ctx, &sig, "eth_signTypedData_v4", from, string(doc)); err != nil {
		return "", err
	}
	return sig, nil
}
