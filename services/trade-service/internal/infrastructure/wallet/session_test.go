package wallet

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/domain"
)

const otherAccount = "0x0000000000000000000000000000000000000002"

type walletState struct {
	mu       sync.Mutex
	accounts []string
	chain    string
}

func (w *walletState) set(accounts []string, chain string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.accounts, w.chain = accounts, chain
}

func scriptedProvider(state *walletState) *fakeProvider {
	p := newFakeProvider()
	accounts := func([]interface{}) (interface{}, error) {
		state.mu.Lock()
		defer state.mu.Unlock()
		return state.accounts, nil
	}
	p.on("eth_requestAccounts", accounts)
	p.on("eth_accounts", accounts)
	p.on("eth_chainId", func([]interface{}) (interface{}, error) {
		state.mu.Lock()
		defer state.mu.Unlock()
		return state.chain, nil
	})
	p.on("eth_getBalance", func([]interface{}) (interface{}, error) { return "0x1", nil })
	p.on("eth_call", func([]interface{}) (interface{}, error) { return word(0), nil })
	return p
}

func TestSession_Connect(t *testing.T) {
	state := &walletState{accounts: []string{buyer}, chain: "0x343b"}
	s := NewSession(NewConnector(scriptedProvider(state), testRegistry(), nil, nil, nil), nil)

	snap, err := s.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, buyer, snap.Address)
	assert.Equal(t, "Immutable zkEVM", snap.NetworkLabel)
	assert.Len(t, snap.TokenBalances, 4)
	assert.True(t, snap.Connected())
}

func TestSession_AccountsChangedEvent(t *testing.T) {
	state := &walletState{accounts: []string{buyer}, chain: "0x343b"}
	p := &eventfulProvider{fakeProvider: scriptedProvider(state), events: make(chan ProviderEvent, 4)}
	s := NewSession(NewConnector(p, testRegistry(), nil, nil, nil), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer func() { cancel(); s.Wait() }()
	s.Start(ctx, 0)

	_, err := s.Connect(ctx)
	require.NoError(t, err)

	p.events <- ProviderEvent{Name: EventAccountsChanged, Accounts: []string{otherAccount}}
	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return snap.Address == otherAccount && len(snap.TokenBalances) == 4
	}, time.Second, 5*time.Millisecond)

	p.events <- ProviderEvent{Name: EventAccountsChanged, Accounts: []string{}}
	require.Eventually(t, func() bool { return !s.Snapshot().Connected() }, time.Second, 5*time.Millisecond)
	assert.Empty(t, s.Snapshot().TokenBalances)
}

func TestSession_ChainChangedReloads(t *testing.T) {
	state := &walletState{accounts: []string{buyer}, chain: "0x343b"}
	s := NewSession(NewConnector(scriptedProvider(state), testRegistry(), nil, nil, nil), nil)

	reloaded := make(chan domain.WalletSession, 1)
	s.OnReload(func(ctx context.Context, snap domain.WalletSession) { reloaded <- snap })

	ctx, cancel := context.WithCancel(context.Background())
	defer func() { cancel(); s.Wait() }()
	s.Start(ctx, 0)
	_, err := s.Connect(ctx)
	require.NoError(t, err)

	state.set([]string{buyer}, "0x1")
	require.NoError(t, s.Dispatch(ProviderEvent{Name: EventChainChanged, ChainID: "0x1"}))

	select {
	case snap := <-reloaded:
		assert.Equal(t, "0x1", snap.ChainID)
		assert.Equal(t, "Unsupported network (1)", snap.NetworkLabel)
		assert.Equal(t, buyer, snap.Address)
	case <-time.After(time.Second):
		t.Fatal("reload hook not called")
	}
}

func TestSession_PollingWatcher(t *testing.T) {
	state := &walletState{accounts: []string{buyer}, chain: "0x343b"}
	s := NewSession(NewConnector(scriptedProvider(state), testRegistry(), nil, nil, nil), nil)

	_, err := s.Connect(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer func() { cancel(); s.Wait() }()
	s.Start(ctx, 5*time.Millisecond)

	state.set([]string{otherAccount}, "0x343b")
	require.Eventually(t, func() bool { return s.Address() == otherAccount }, time.Second, 5*time.Millisecond)

	state.set(nil, "0x343b")
	require.Eventually(t, func() bool { return s.Address() == "" }, time.Second, 5*time.Millisecond)
}

func TestSession_UpdatesPublished(t *testing.T) {
	state := &walletState{accounts: []string{buyer}, chain: "0x343b"}
	s := NewSession(NewConnector(scriptedProvider(state), testRegistry(), nil, nil, nil), nil)

	_, err := s.Connect(context.Background())
	require.NoError(t, err)

	select {
	case snap := <-s.Updates():
		assert.Equal(t, buyer, snap.Address)
	default:
		t.Fatal("no update published after connect")
	}
}

func TestSession_DispatchNeverBlocks(t *testing.T) {
	s := NewSession(NewConnector(nil, testRegistry(), nil, nil, nil), nil)
	ev := ProviderEvent{Name: EventAccountsChanged, Accounts: []string{buyer}}

	for i := 0; i < cap(s.events); i++ {
		require.NoError(t, s.Dispatch(ev))
	}
	assert.ErrorIs(t, s.Dispatch(ev), ErrSessionStopped)

	stopped := NewSession(NewConnector(nil, testRegistry(), nil, nil, nil), nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped.Start(ctx, 0)
	cancel()
	stopped.Wait()
	assert.ErrorIs(t, stopped.Dispatch(ev), ErrSessionStopped)
}
