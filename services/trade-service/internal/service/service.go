package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/domain"
	"github.com/quangdang46/gu-marketplace/shared/config"
	apperrors "github.com/quangdang46/gu-marketplace/shared/errors"
	"github.com/quangdang46/gu-marketplace/shared/logging"
	"github.com/quangdang46/gu-marketplace/shared/metrics"
	"github.com/quangdang46/gu-marketplace/shared/monitoring"
	"github.com/quangdang46/gu-marketplace/shared/resilience"
)

// Deps are the collaborators shared by the orchestrators. Status, Metrics,
// Reporter and Logger are optional.
type Deps struct {
	Backend  domain.MarketplaceBackend
	Wallet   domain.Wallet
	Registry *config.Registry
	Status   domain.StatusCache
	Poll     *resilience.PollConfig
	Logger   *logging.Logger
	Metrics  *metrics.Metrics
	Reporter monitoring.Reporter
	NewID    func() string
}

func (d Deps) withDefaults() Deps {
	if d.Poll == nil {
		d.Poll = resilience.DefaultPollConfig()
	}
	if d.Logger == nil {
		d.Logger = logging.Nop()
	}
	if d.Reporter == nil {
		d.Reporter = monitoring.NopReporter{}
	}
	if d.NewID == nil {
		d.NewID = func() string { return uuid.New().String() }
	}
	return d
}

func (d Deps) targetChain() string {
	if d.Registry == nil || d.Registry.Chain.ChainID == "" {
		return config.TargetChainID
	}
	return d.Registry.Chain.ChainID
}

// Outcome is the terminal result of an attempt together with the
// (title, message) pair shown to the user.
type Outcome struct {
	Attempt domain.Attempt
	Title   string
	Message string
	Err     error
}

func (o Outcome) Succeeded() bool { return o.Err == nil }

// checkWallet runs the local preconditions shared by every flow. It never
// touches the network.
func (d Deps) checkWallet() (domain.Address, error) {
	if d.Wallet == nil {
		return "", apperrors.ProviderMissing()
	}
	addr := d.Wallet.Address()
	if addr == "" {
		return "", apperrors.WalletNotConnected()
	}
	if !d.Wallet.HasProvider() {
		return "", apperrors.ProviderMissing()
	}
	return addr, nil
}

// ensureChain aborts with WrongNetwork unless the wallet is on the target
// chain. Called after preparation and before any send or sign.
func (d Deps) ensureChain(ctx context.Context) error {
	current, err := d.Wallet.ChainID(ctx)
	if err != nil {
		return apperrors.OperationFailed("Could not read the wallet network.").WithCause(err)
	}
	if !config.SameChain(current, d.targetChain()) {
		return apperrors.WrongNetwork(d.targetChain(), current)
	}
	return nil
}

// rejected builds the outcome of an attempt refused before any network call.
// It is logged and counted but never stored.
func (d Deps) rejected(kind domain.AttemptKind, wallet domain.Address, orderIDs []string, err error) Outcome {
	a := domain.NewAttempt(d.NewID(), kind, wallet, orderIDs)
	a.Fail(apperrors.GetCode(err), err.Error())
	d.Metrics.RecordError(string(kind), apperrors.GetCode(err))
	d.Metrics.RecordAttempt(string(kind), string(a.State), 0)
	d.Logger.WithFields(map[string]interface{}{
		"attempt_id": a.ID,
		"kind":       kind,
		"code":       apperrors.GetCode(err),
	}).Info("attempt rejected before start")

	title, msg := apperrors.Present(err)
	return Outcome{Attempt: *a, Title: title, Message: msg, Err: err}
}

// tracker drives one attempt through its states, mirroring every change to
// the logs, metrics and status cache.
type tracker struct {
	deps    Deps
	attempt *domain.Attempt
	log     *logging.Logger
	start   time.Time
}

func (d Deps) begin(ctx context.Context, kind domain.AttemptKind, wallet domain.Address, orderIDs []string) (*tracker, context.Context) {
	a := domain.NewAttempt(d.NewID(), kind, wallet, orderIDs)
	ctx = logging.ContextWithAttempt(ctx, a.ID, wallet)
	t := &tracker{
		deps:    d,
		attempt: a,
		log:     d.Logger.WithContext(ctx).WithField("kind", string(kind)),
		start:   time.Now(),
	}
	t.save(ctx)
	return t, ctx
}

func (t *tracker) move(ctx context.Context, to domain.AttemptState) {
	if err := t.attempt.Transition(to); err != nil {
		t.log.WithError(err).Warn("ignoring invalid attempt transition")
		return
	}
	t.log.WithField("state", string(to)).Info("attempt state changed")
	t.deps.Metrics.RecordTransition(string(t.attempt.Kind), string(to))
	t.save(ctx)
}

func (t *tracker) save(ctx context.Context) {
	if t.deps.Status == nil {
		return
	}
	if err := t.deps.Status.SetAttempt(ctx, *t.attempt, domain.DefaultAttemptTTL); err != nil {
		t.log.WithError(err).Warn("failed to store attempt status")
	}
}

// fail records err as the terminal failure and returns its outcome.
func (t *tracker) fail(ctx context.Context, err error) Outcome {
	code := apperrors.GetCode(err)
	t.attempt.Fail(code, err.Error())
	kind := string(t.attempt.Kind)

	t.log.WithError(err).WithField("code", code).Error("attempt failed")
	t.deps.Metrics.RecordTransition(kind, string(domain.StateFailed))
	t.deps.Metrics.RecordError(kind, code)
	t.deps.Metrics.RecordAttempt(kind, string(domain.StateFailed), time.Since(t.start))
	t.deps.Reporter.Report(err, map[string]string{"kind": kind}, map[string]interface{}{
		"attempt_id": t.attempt.ID,
		"order_ids":  t.attempt.OrderIDs,
		"tx_hashes":  t.attempt.TxHashes,
	})
	t.save(ctx)

	title, msg := apperrors.Present(err)
	return Outcome{Attempt: *t.attempt, Title: title, Message: msg, Err: err}
}

// finish moves the attempt to a terminal non-failure state and writes the
// audit record.
func (t *tracker) finish(ctx context.Context, state domain.AttemptState, event, title, message string, fields map[string]interface{}) Outcome {
	t.move(ctx, state)
	t.deps.Metrics.RecordAttempt(string(t.attempt.Kind), string(state), time.Since(t.start))

	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["attempt_id"] = t.attempt.ID
	fields["wallet_address"] = t.attempt.Wallet
	fields["order_ids"] = t.attempt.OrderIDs
	fields["tx_hashes"] = t.attempt.TxHashes
	fields["state"] = string(state)
	t.log.Audit(event, fields)

	return Outcome{Attempt: *t.attempt, Title: title, Message: message}
}

// classify keeps typed errors and wraps anything else with fallback.
func classify(err error, fallback func(string) *apperrors.Error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return fallback(err.Error()).WithCause(err)
}

// preparationError maps a failed prepare call. Backend failures carry their
// message verbatim.
func preparationError(err error, title string) error {
	var be *domain.BackendError
	if errors.As(err, &be) {
		return apperrors.PreparationFailed(be.Message).WithTitle(title).WithCause(err)
	}
	return apperrors.PreparationFailed(fmt.Sprintf("Could not reach the marketplace: %v", err)).WithTitle(title).WithCause(err)
}
