package domain

import (
	"fmt"
	"time"
)

type AttemptKind string

const (
	AttemptPurchase     AttemptKind = "purchase"
	AttemptCancellation AttemptKind = "cancellation"
	AttemptListing      AttemptKind = "listing"
)

type AttemptState string

const (
	StateIdle                  AttemptState = "idle"
	StatePreparing             AttemptState = "preparing"
	StateAwaitingWalletActions AttemptState = "awaiting_wallet_actions"
	StateConfirming            AttemptState = "confirming"
	StateSucceeded             AttemptState = "succeeded"
	StateFailed                AttemptState = "failed"
	// StatePending is a cancellation the backend accepted but has not finalised.
	StatePending AttemptState = "pending"
)

var transitions = map[AttemptState][]AttemptState{
	StateIdle:                  {StatePreparing, StateFailed},
	StatePreparing:             {StateAwaitingWalletActions, StateSucceeded, StateFailed, StatePending},
	StateAwaitingWalletActions: {StateConfirming, StatePreparing, StateSucceeded, StateFailed, StatePending},
	StateConfirming:            {StateAwaitingWalletActions, StateSucceeded, StateFailed},
}

// Terminal reports whether no further transition is possible.
func (s AttemptState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StatePending
}

// Attempt is one purchase, cancellation or listing run. It is never
// persisted beyond the status cache TTL.
type Attempt struct {
	ID              string       `json:"id"`
	Kind            AttemptKind  `json:"kind"`
	State           AttemptState `json:"state"`
	OrderIDs        []string     `json:"orderIds,omitempty"`
	Wallet          Address      `json:"wallet,omitempty"`
	TxHashes        []string     `json:"txHashes,omitempty"`
	PendingTxHashes []string     `json:"pendingTxHashes,omitempty"`
	ErrorCode       string       `json:"errorCode,omitempty"`
	Error           string       `json:"error,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

func NewAttempt(id string, kind AttemptKind, wallet Address, orderIDs []string) *Attempt {
	now := time.Now()
	return &Attempt{
		ID:        id,
		Kind:      kind,
		State:     StateIdle,
		OrderIDs:  orderIDs,
		Wallet:    wallet,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition moves the attempt to the next state.
func (a *Attempt) Transition(to AttemptState) error {
	for _, allowed := range transitions[a.State] {
		if allowed == to {
			a.State = to
			a.UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("attempt %s: invalid transition %s -> %s", a.ID, a.State, to)
}

// Fail records err and moves the attempt to StateFailed from any
// non-terminal state.
func (a *Attempt) Fail(code, message string) {
	if a.State.Terminal() {
		return
	}
	a.State = StateFailed
	a.ErrorCode = code
	a.Error = message
	a.UpdatedAt = time.Now()
}
