package service

import (
	"context"
	"fmt"
	"time"

	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/domain"
	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/infrastructure/wallet"
	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/typeddata"
	apperrors "github.com/quangdang46/gu-marketplace/shared/errors"
	"github.com/quangdang46/gu-marketplace/shared/logging"
	"github.com/quangdang46/gu-marketplace/shared/metrics"
	"github.com/quangdang46/gu-marketplace/shared/resilience"
)

const slowReceiptWait = 30 * time.Second

// ExecutionResult collects what the wallet produced while running a plan.
type ExecutionResult struct {
	TxHashes []string
	// PendingTxHashes were sent but not mined before polling gave up.
	PendingTxHashes []string
	Signatures      []string
	Skipped         int
}

// ActionExecutor runs an action plan against the wallet strictly in order.
// Each transaction's receipt wait resolves before the next action starts.
type ActionExecutor struct {
	wallet  domain.Wallet
	poll    *resilience.PollConfig
	logger  *logging.Logger
	metrics *metrics.Metrics
}

func NewActionExecutor(w domain.Wallet, poll *resilience.PollConfig, logger *logging.Logger, m *metrics.Metrics) *ActionExecutor {
	if poll == nil {
		poll = resilience.DefaultPollConfig()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &ActionExecutor{wallet: w, poll: poll, logger: logger, metrics: m}
}

// Execute runs plan as from. onState is told when a receipt wait starts
// and ends. Send failures the wallet does not classify are built with
// fallback. The partial result is returned with any error.
func (e *ActionExecutor) Execute(ctx context.Context, from domain.Address, plan domain.ActionPlan, fallback func(string) *apperrors.Error, onState func(domain.AttemptState)) (*ExecutionResult, error) {
	if onState == nil {
		onState = func(domain.AttemptState) {}
	}
	log := e.logger.WithContext(ctx)
	res := &ExecutionResult{}

	for i, action := range plan {
		step := i + 1
		switch a := action.(type) {
		case domain.ActionTransaction:
			hash, err := e.wallet.SendTransaction(ctx, from, a)
			if err != nil {
				return res, fmt.Errorf("action %d (%s): %w", step, a.Purpose, wallet.SendError(err, fallback))
			}
			res.TxHashes = append(res.TxHashes, hash)
			log.WithFields(map[string]interface{}{"step": step, "purpose": a.Purpose, "tx_hash": hash}).Info("transaction submitted")

			onState(domain.StateConfirming)
			confirmed, err := e.awaitReceipt(ctx, hash)
			if err != nil {
				return res, fmt.Errorf("action %d (%s): %w", step, a.Purpose, err)
			}
			if !confirmed {
				res.PendingTxHashes = append(res.PendingTxHashes, hash)
			}
			onState(domain.StateAwaitingWalletActions)

		case domain.ActionSignable:
			doc, err := typeddata.BuildTypedData(a.Message, "")
			if err != nil {
				return res, fmt.Errorf("action %d (%s): %w", step, a.Purpose, fallback(fmt.Sprintf("Invalid signature request: %v", err)).WithCause(err))
			}
			sig, err := e.wallet.SignTypedData(ctx, from, doc)
			if err != nil {
				return res, fmt.Errorf("action %d (%s): %w", step, a.Purpose, wallet.SignError(err))
			}
			res.Signatures = append(res.Signatures, sig)
			log.WithFields(map[string]interface{}{"step": step, "purpose": a.Purpose}).Info("payload signed")

		case domain.ActionUnknown:
			res.Skipped++
			log.WithFields(map[string]interface{}{"step": step, "type": a.Kind}).Warn("skipping unknown action type")

		default:
			return res, fmt.Errorf("action %d: unhandled action %T", step, action)
		}
	}
	return res, nil
}

// awaitReceipt polls for the receipt of hash. It reports false when polling
// timed out without a receipt, which is not an error.
func (e *ActionExecutor) awaitReceipt(ctx context.Context, hash string) (bool, error) {
	result, err := resilience.Poll(ctx, e.poll, func(ctx context.Context, attempt int) (resilience.Outcome, error) {
		r, err := e.wallet.TransactionReceipt(ctx, hash)
		if err != nil {
			return resilience.OutcomePending, err
		}
		if r == nil {
			return resilience.OutcomePending, nil
		}
		if r.Succeeded() {
			return resilience.OutcomeConfirmed, nil
		}
		return resilience.OutcomeFailed, nil
	})
	e.metrics.RecordReceiptPoll(result.Outcome.String(), result.Attempts)

	log := e.logger.WithContext(ctx)
	log.Performance("receipt_wait", result.Elapsed, slowReceiptWait, map[string]interface{}{
		"tx_hash":  hash,
		"attempts": result.Attempts,
		"outcome":  result.Outcome.String(),
	})
	if err != nil {
		return false, apperrors.OperationFailed("Stopped waiting for the transaction.").WithCause(err)
	}

	switch result.Outcome {
	case resilience.OutcomeConfirmed:
		return true, nil
	case resilience.OutcomeFailed:
		return false, apperrors.TransactionFailed(hash)
	default:
		log.WithError(result.LastErr).WithField("tx_hash", hash).Warn("no receipt before polling gave up, continuing")
		return false, nil
	}
}
