package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/quangdang46/gu-marketplace/shared/config"
)

// Approver is asked before the wallet exposes accounts, switches chain,
// sends or signs. Returning false rejects with code 4001.
type Approver func(ctx context.Context, method, summary string) bool

// AutoApprove accepts every request.
func AutoApprove(context.Context, string, string) bool { return true }

type KeyProviderOption func(*KeyProvider)

func WithApprover(a Approver) KeyProviderOption {
	return func(p *KeyProvider) { p.approve = a }
}

// WithNode uses client for chain-reads of the initial chain instead of
// dialing its RPC URL.
func WithNode(client *rpc.Client) KeyProviderOption {
	return func(p *KeyProvider) { p.nodes[p.chainID.String()] = client }
}

// KeyProvider is a local wallet holding secp256k1 keys. Chain reads and
// raw transaction broadcast go to the selected chain's node.
type KeyProvider struct {
	mu         sync.Mutex
	keys       []*ecdsa.PrivateKey
	addrs      []common.Address
	active     int
	authorized bool
	chainID    *big.Int
	chains     map[string]AddChainParams
	nodes      map[string]*rpc.Client
	approve    Approver
	events     chan ProviderEvent
}

func NewKeyProvider(hexKeys []string, chain config.ChainConfig, opts ...KeyProviderOption) (*KeyProvider, error) {
	if len(hexKeys) == 0 {
		return nil, fmt.Errorf("no private keys configured")
	}
	id, err := config.ParseChainID(chain.ChainID)
	if err != nil {
		return nil, err
	}

	p := &KeyProvider{
		chainID: id,
		chains:  map[string]AddChainParams{id.String(): ChainParams(chain)},
		nodes:   map[string]*rpc.Client{},
		approve: AutoApprove,
		events:  make(chan ProviderEvent, 16),
	}
	for i, h := range hexKeys {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(h), "0x"))
		if err != nil {
			return nil, fmt.Errorf("private key %d: %w", i, err)
		}
		p.keys = append(p.keys, key)
		p.addrs = append(p.addrs, crypto.PubkeyToAddress(key.PublicKey))
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *KeyProvider) Events() <-chan ProviderEvent { return p.events }

// SelectAccount makes account i the primary one and notifies listeners.
func (p *KeyProvider) SelectAccount(i int) error {
	p.mu.Lock()
	if i < 0 || i >= len(p.addrs) {
		p.mu.Unlock()
		return fmt.Errorf("account index %d out of range", i)
	}
	p.active = i
	accounts := p.accountsLocked()
	p.mu.Unlock()

	p.emit(ProviderEvent{Name: EventAccountsChanged, Accounts: accounts})
	return nil
}

// Disconnect revokes account access.
func (p *KeyProvider) Disconnect() {
	p.mu.Lock()
	p.authorized = false
	p.mu.Unlock()
	p.emit(ProviderEvent{Name: EventAccountsChanged, Accounts: []string{}})
}

func (p *KeyProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.nodes {
		c.Close()
	}
}

func (p *KeyProvider) Request(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	switch method {
	case "eth_requestAccounts":
		if !p.approve(ctx, method, "connect "+p.primary().Hex()) {
			return providerError(CodeUserRejected, "User rejected the request.")
		}
		p.mu.Lock()
		p.authorized = true
		accounts := p.accountsLocked()
		p.mu.Unlock()
		return assign(result, accounts)

	case "eth_accounts":
		p.mu.Lock()
		accounts := []string{}
		if p.authorized {
			accounts = p.accountsLocked()
		}
		p.mu.Unlock()
		return assign(result, accounts)

	case "eth_chainId":
		p.mu.Lock()
		id := hexutil.EncodeBig(p.chainID)
		p.mu.Unlock()
		return assign(result, id)

	case "wallet_switchEthereumChain":
		return p.switchChain(ctx, result, params)

	case "wallet_addEthereumChain":
		return p.addChain(ctx, result, params)

	case "eth_sendTransaction":
		return p.sendTransaction(ctx, result, params)

	case "eth_signTypedData_v4":
		return p.signTypedData(ctx, result, params)

	default:
		node, err := p.node(ctx)
		if err != nil {
			return err
		}
		return node.CallContext(ctx, result, method, params...)
	}
}

func (p *KeyProvider) switchChain(ctx context.Context, result interface{}, params []interface{}) error {
	var req switchChainParams
	if err := decodeParam(params, 0, &req); err != nil {
		return err
	}
	id, err := config.ParseChainID(req.ChainID)
	if err != nil {
		return providerError(CodeInvalidParams, "invalid chainId %q", req.ChainID)
	}

	p.mu.Lock()
	_, known := p.chains[id.String()]
	same := p.chainID.Cmp(id) == 0
	p.mu.Unlock()

	if !known {
		return providerError(CodeUnrecognizedChain, "Unrecognized chain ID %q. Try adding the chain using wallet_addEthereumChain first.", req.ChainID)
	}
	if same {
		return assign(result, nil)
	}
	if !p.approve(ctx, "wallet_switchEthereumChain", "switch to chain "+id.String()) {
		return providerError(CodeUserRejected, "User rejected the request.")
	}

	p.mu.Lock()
	p.chainID = id
	p.mu.Unlock()
	p.emit(ProviderEvent{Name: EventChainChanged, ChainID: hexutil.EncodeBig(id)})
	return assign(result, nil)
}

func (p *KeyProvider) addChain(ctx context.Context, result interface{}, params []interface{}) error {
	var req AddChainParams
	if err := decodeParam(params, 0, &req); err != nil {
		return err
	}
	id, err := config.ParseChainID(req.ChainID)
	if err != nil || len(req.RPCURLs) == 0 {
		return providerError(CodeInvalidParams, "chainId and rpcUrls are required")
	}
	if !p.approve(ctx, "wallet_addEthereumChain", "add network "+req.ChainName) {
		return providerError(CodeUserRejected, "User rejected the request.")
	}

	p.mu.Lock()
	p.chains[id.String()] = req
	p.mu.Unlock()
	return assign(result, nil)
}

func (p *KeyProvider) sendTransaction(ctx context.Context, result interface{}, params []interface{}) error {
	var args TxArgs
	if err := decodeParam(params, 0, &args); err != nil {
		return err
	}
	key, from, err := p.keyFor(args.From)
	if err != nil {
		return err
	}
	if !common.IsHexAddress(args.To) {
		return providerError(CodeInvalidParams, "invalid 'to' address %q", args.To)
	}
	var data []byte
	if args.Data != "" && args.Data != "0x" {
		if data, err = hexutil.Decode(args.Data); err != nil {
			return providerError(CodeInvalidParams, "invalid data: %v", err)
		}
	}
	value := new(big.Int)
	if args.Value != nil {
		value = args.Value.ToInt()
	}
	to := common.HexToAddress(args.To)

	if !p.approve(ctx, "eth_sendTransaction", fmt.Sprintf("send to %s value %s", to.Hex(), value)) {
		return providerError(CodeUserRejected, "User denied transaction signature.")
	}

	node, err := p.node(ctx)
	if err != nil {
		return err
	}
	ec := ethclient.NewClient(node)

	nonce, err := ec.PendingNonceAt(ctx, from)
	if err != nil {
		return classifyNodeError(err)
	}
	tip, err := ec.SuggestGasTipCap(ctx)
	if err != nil {
		return classifyNodeError(err)
	}
	price, err := ec.SuggestGasPrice(ctx)
	if err != nil {
		return classifyNodeError(err)
	}
	feeCap := new(big.Int).Mul(price, big.NewInt(2))
	if feeCap.Cmp(tip) < 0 {
		feeCap = new(big.Int).Set(tip)
	}

	var gas uint64
	if args.Gas != nil {
		gas = uint64(*args.Gas)
	} else {
		gas, err = ec.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Value: value, Data: data})
		if err != nil {
			return classifyNodeError(err)
		}
	}

	p.mu.Lock()
	chainID := new(big.Int).Set(p.chainID)
	p.mu.Unlock()

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return fmt.Errorf("sign transaction: %w", err)
	}
	if err := ec.SendTransaction(ctx, signed); err != nil {
		return classifyNodeError(err)
	}
	return assign(result, signed.Hash().Hex())
}

func (p *KeyProvider) signTypedData(ctx context.Context, result interface{}, params []interface{}) error {
	var addr string
	if err := decodeParam(params, 0, &addr); err != nil {
		return err
	}
	key, _, err := p.keyFor(addr)
	if err != nil {
		return err
	}

	var td apitypes.TypedData
	if err := decodeParam(params, 1, &td); err != nil {
		return err
	}
	if !p.approve(ctx, "eth_signTypedData_v4", "sign "+td.PrimaryType) {
		return providerError(CodeUserRejected, "User denied message signature.")
	}

	hash, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return providerError(CodeInvalidParams, "invalid typed data: %v", err)
	}
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return fmt.Errorf("sign typed data: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return assign(result, hexutil.Encode(sig))
}

func (p *KeyProvider) keyFor(addr string) (*ecdsa.PrivateKey, common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.authorized {
		return nil, common.Address{}, providerError(CodeUnauthorized, "The requested account has not been authorized.")
	}
	for i, a := range p.addrs {
		if strings.EqualFold(a.Hex(), addr) {
			return p.keys[i], a, nil
		}
	}
	return nil, common.Address{}, providerError(CodeUnauthorized, "Unknown account %s", addr)
}

func (p *KeyProvider) node(ctx context.Context) (*rpc.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := p.chainID.String()
	if c, ok := p.nodes[key]; ok {
		return c, nil
	}
	params, ok := p.chains[key]
	if !ok || len(params.RPCURLs) == 0 || params.RPCURLs[0] == "" {
		return nil, providerError(CodeUnsupported, "no RPC endpoint for chain %s", key)
	}
	c, err := rpc.DialContext(ctx, params.RPCURLs[0])
	if err != nil {
		return nil, fmt.Errorf("dial chain node: %w", err)
	}
	p.nodes[key] = c
	return c, nil
}

func (p *KeyProvider) primary() common.Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addrs[p.active]
}

// accountsLocked lists addresses with the active one first.
func (p *KeyProvider) accountsLocked() []string {
	out := []string{p.addrs[p.active].Hex()}
	for i, a := range p.addrs {
		if i != p.active {
			out = append(out, a.Hex())
		}
	}
	return out
}

func (p *KeyProvider) emit(ev ProviderEvent) {
	select {
	case p.events <- ev:
	default:
	}
}

// classifyNodeError reports balance and gas failures with the internal
// error code wallets use for them.
func classifyNodeError(err error) error {
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"insufficient funds", "gas required exceeds", "intrinsic gas too low"} {
		if strings.Contains(msg, s) {
			return &ProviderError{Code: CodeInternal, Message: err.Error()}
		}
	}
	return err
}

func decodeParam(params []interface{}, i int, out interface{}) error {
	if len(params) <= i {
		return providerError(CodeInvalidParams, "missing parameter %d", i)
	}
	var raw []byte
	if s, ok := params[i].(string); ok {
		if _, wantString := out.(*string); wantString {
			*out.(*string) = s
			return nil
		}
		raw = []byte(s)
	} else {
		b, err := json.Marshal(params[i])
		if err != nil {
			return providerError(CodeInvalidParams, "parameter %d: %v", i, err)
		}
		raw = b
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return providerError(CodeInvalidParams, "parameter %d: %v", i, err)
	}
	return nil
}

func assign(result, v interface{}) error {
	if result == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, result)
}
