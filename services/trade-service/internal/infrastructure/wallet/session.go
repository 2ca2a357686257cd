package wallet

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/domain"
	"github.com/quangdang46/gu-marketplace/shared/logging"
)

// ReloadFunc runs after a chain change has reset the session.
type ReloadFunc func(ctx context.Context, session domain.WalletSession)

// Session is the wallet store handed to orchestrators. Provider events are
// queued on a channel and applied by a single dispatch goroutine; nothing
// else mutates the state except Connect and the refresh helpers.
type Session struct {
	connector *Connector
	logger    *logging.Logger

	mu      sync.RWMutex
	state   domain.WalletSession
	reload  ReloadFunc
	events  chan ProviderEvent
	updates chan domain.WalletSession
	done    chan struct{}
	wg      sync.WaitGroup
}

// ErrSessionStopped is returned by Dispatch when no dispatch loop will
// consume the event.
var ErrSessionStopped = errors.New("wallet session is not running")

var _ domain.Wallet = (*Session)(nil)

func NewSession(connector *Connector, logger *logging.Logger) *Session {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Session{
		connector: connector,
		logger:    logger,
		events:    make(chan ProviderEvent, 32),
		updates:   make(chan domain.WalletSession, 8),
	}
}

// OnReload registers the hook invoked after chainChanged.
func (s *Session) OnReload(fn ReloadFunc) {
	s.mu.Lock()
	s.reload = fn
	s.mu.Unlock()
}

// Start runs the dispatch loop until ctx is done. Providers that push
// events are forwarded; others are polled every pollInterval.
func (s *Session) Start(ctx context.Context, pollInterval time.Duration) {
	done := make(chan struct{})
	s.mu.Lock()
	s.done = done
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(done)
		s.dispatch(ctx)
	}()

	if src, ok := s.connector.Provider().(EventSource); ok {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.forward(ctx, src.Events())
		}()
		return
	}
	if s.connector.HasProvider() && pollInterval > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.poll(ctx, pollInterval)
		}()
	}
}

// Wait blocks until every goroutine started by Start has returned.
func (s *Session) Wait() { s.wg.Wait() }

// Dispatch queues an event for the dispatch loop. Before Start, events
// are buffered up to the queue size; once the loop has stopped, or the
// buffer is full with no loop running, ErrSessionStopped is returned.
func (s *Session) Dispatch(ev ProviderEvent) error {
	s.mu.RLock()
	done := s.done
	s.mu.RUnlock()

	if done == nil {
		select {
		case s.events <- ev:
			return nil
		default:
			return ErrSessionStopped
		}
	}
	select {
	case <-done:
		return ErrSessionStopped
	default:
	}
	select {
	case s.events <- ev:
		return nil
	case <-done:
		return ErrSessionStopped
	}
}

// Updates delivers a snapshot after every state change. Slow readers miss
// intermediate snapshots.
func (s *Session) Updates() <-chan domain.WalletSession { return s.updates }

func (s *Session) forward(ctx context.Context, in <-chan ProviderEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			s.enqueue(ctx, ev)
		}
	}
}

func (s *Session) enqueue(ctx context.Context, ev ProviderEvent) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}

func (s *Session) poll(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastAccount := s.Address()
	lastChain := s.Snapshot().ChainID

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if accounts, err := s.connector.Accounts(ctx); err == nil {
			current := ""
			if len(accounts) > 0 {
				current = accounts[0]
			}
			if !strings.EqualFold(current, lastAccount) {
				lastAccount = current
				s.enqueue(ctx, ProviderEvent{Name: EventAccountsChanged, Accounts: accounts})
			}
		}
		if chainID, err := s.connector.ChainID(ctx); err == nil {
			if lastChain != "" && !strings.EqualFold(chainID, lastChain) {
				s.enqueue(ctx, ProviderEvent{Name: EventChainChanged, ChainID: chainID})
			}
			lastChain = chainID
		}
	}
}

func (s *Session) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.events:
			s.handle(ctx, ev)
		}
	}
}

func (s *Session) handle(ctx context.Context, ev ProviderEvent) {
	log := s.logger.WithField("event", ev.Name)
	switch ev.Name {
	case EventAccountsChanged:
		if len(ev.Accounts) == 0 {
			log.Info("wallet disconnected, clearing session")
			s.mu.Lock()
			s.state = domain.WalletSession{}
			s.mu.Unlock()
			s.publish()
			return
		}
		log.WithField("wallet_address", ev.Accounts[0]).Info("account changed")
		s.mu.Lock()
		s.state.Address = ev.Accounts[0]
		s.state.TokenBalances = nil
		s.mu.Unlock()
		s.RefreshBalances(ctx)

	case EventChainChanged:
		log.WithField("chain_id", ev.ChainID).Info("chain changed, reloading session")
		s.reinit(ctx)
		s.mu.RLock()
		reload, snapshot := s.reload, s.snapshotLocked()
		s.mu.RUnlock()
		if reload != nil {
			reload(ctx, snapshot)
		}

	default:
		log.Warn("ignoring unknown provider event")
	}
}

// reinit rebuilds the session from scratch without prompting the user.
func (s *Session) reinit(ctx context.Context) {
	s.mu.Lock()
	s.state = domain.WalletSession{}
	s.mu.Unlock()

	accounts, err := s.connector.Accounts(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("reading accounts after chain change failed")
	}
	if len(accounts) > 0 {
		s.mu.Lock()
		s.state.Address = accounts[0]
		s.mu.Unlock()
	}
	if _, err := s.CheckNetwork(ctx); err != nil {
		s.logger.WithError(err).Warn("network check after chain change failed")
	}
	if s.Address() != "" {
		s.RefreshBalances(ctx)
		return
	}
	s.publish()
}

// Connect prompts for account access, checks the network and loads
// balances.
func (s *Session) Connect(ctx context.Context) (domain.WalletSession, error) {
	addr, err := s.connector.Connect(ctx)
	if err != nil {
		return s.Snapshot(), err
	}
	s.mu.Lock()
	s.state.Address = addr
	s.mu.Unlock()

	if _, err := s.CheckNetwork(ctx); err != nil {
		s.logger.WithError(err).Warn("network check failed")
	}
	s.RefreshBalances(ctx)
	return s.Snapshot(), nil
}

// CheckNetwork reads the chain and updates the network label.
func (s *Session) CheckNetwork(ctx context.Context) (domain.NetworkStatus, error) {
	status, chainID, err := s.connector.CheckNetwork(ctx)
	if err != nil {
		return status, err
	}
	s.mu.Lock()
	s.state.ChainID = chainID
	s.state.NetworkLabel = s.connector.NetworkLabel(chainID)
	s.mu.Unlock()
	return status, nil
}

func (s *Session) SwitchNetwork(ctx context.Context) error {
	if err := s.connector.SwitchNetwork(ctx); err != nil {
		return err
	}
	_, err := s.CheckNetwork(ctx)
	return err
}

// RefreshBalances reloads balances for the current address.
func (s *Session) RefreshBalances(ctx context.Context) {
	addr := s.Address()
	if addr == "" {
		return
	}
	balances := s.connector.FetchBalances(ctx, addr)

	s.mu.Lock()
	// The account may have changed while balances were loading.
	if strings.EqualFold(s.state.Address, addr) {
		s.state.TokenBalances = balances
	}
	s.mu.Unlock()
	s.publish()
}

func (s *Session) publish() {
	snap := s.Snapshot()
	select {
	case s.updates <- snap:
	default:
	}
}

func (s *Session) Snapshot() domain.WalletSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() domain.WalletSession {
	out := s.state
	if s.state.TokenBalances != nil {
		out.TokenBalances = make(map[domain.Currency]domain.TokenBalance, len(s.state.TokenBalances))
		for k, v := range s.state.TokenBalances {
			out.TokenBalances[k] = v
		}
	}
	return out
}

func (s *Session) Address() domain.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Address
}

func (s *Session) HasProvider() bool { return s.connector.HasProvider() }

// ChainID always asks the wallet; the cached value may be stale.
func (s *Session) ChainID(ctx context.Context) (domain.ChainID, error) {
	return s.connector.ChainID(ctx)
}

func (s *Session) SendTransaction(ctx context.Context, from domain.Address, tx domain.ActionTransaction) (string, error) {
	return s.connector.SendTransaction(ctx, from, tx)
}

func (s *Session) TransactionReceipt(ctx context.Context, txHash string) (*domain.Receipt, error) {
	return s.connector.TransactionReceipt(ctx, txHash)
}

func (s *Session) SignTypedData(ctx context.Context, from domain.Address, td apitypes.TypedData) (string, error) {
	return s.connector.SignTypedData(ctx, from, td)
}
