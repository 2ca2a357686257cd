package wallet

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
)

// RPCProvider talks to an external wallet daemon over any transport
// go-ethereum's rpc package supports (http, ws, ipc). Error codes from the
// daemon surface unchanged through rpc.Error.
type RPCProvider struct {
	client *rpc.Client
	url    string
}

func DialRPCProvider(ctx context.Context, url string) (*RPCProvider, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial wallet rpc %s: %w", url, err)
	}
	return &RPCProvider{client: client, url: url}, nil
}

func (p *RPCProvider) Request(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	return p.client.CallContext(ctx, result, method, params...)
}

func (p *RPCProvider) Close() {
	p.client.Close()
}
