package resilience

import (
	"context"
	"fmt"
	"time"
)

// Outcome is the terminal result of a poll.
type Outcome int

const (
	// OutcomePending is returned by a CheckFunc to keep polling.
	OutcomePending Outcome = iota
	OutcomeConfirmed
	OutcomeFailed
	OutcomeTimedOut
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeFailed:
		return "failed"
	case OutcomeTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// PollConfig defines the cadence of a poll. A BackoffFactor of 1 keeps a
// fixed interval.
type PollConfig struct {
	Interval      time.Duration
	MaxAttempts   int
	BackoffFactor float64
	MaxInterval   time.Duration
}

// DefaultPollConfig matches receipt polling: every second, 60 attempts.
func DefaultPollConfig() *PollConfig {
	return &PollConfig{
		Interval:      1 * time.Second,
		MaxAttempts:   60,
		BackoffFactor: 1.0,
		MaxInterval:   1 * time.Second,
	}
}

// PollResult reports how a poll ended.
type PollResult struct {
	Outcome  Outcome
	Attempts int
	Elapsed  time.Duration
	// LastErr is the most recent check error. Check errors never end a poll
	// on their own.
	LastErr error
}

// CheckFunc performs one attempt.
type CheckFunc func(ctx context.Context, attempt int) (Outcome, error)

// Poll calls check until it reports Confirmed or Failed, or until
// MaxAttempts is exhausted, which yields TimedOut. Only context
// cancellation produces an error.
func Poll(ctx context.Context, config *PollConfig, check CheckFunc) (PollResult, error) {
	if config == nil {
		config = DefaultPollConfig()
	}

	start := time.Now()
	res := PollResult{Outcome: OutcomeTimedOut}
	delay := config.Interval

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			res.Elapsed = time.Since(start)
			return res, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		res.Attempts = attempt
		outcome, err := check(ctx, attempt)
		if err != nil {
			res.LastErr = err
		} else if outcome == OutcomeConfirmed || outcome == OutcomeFailed {
			res.Outcome = outcome
			res.Elapsed = time.Since(start)
			return res, nil
		}

		if attempt >= config.MaxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			res.Elapsed = time.Since(start)
			return res, fmt.Errorf("context cancelled during poll: %w", ctx.Err())
		case <-timer.C:
		}
		delay = nextDelay(delay, config)
	}

	res.Elapsed = time.Since(start)
	return res, nil
}

func nextDelay(current time.Duration, config *PollConfig) time.Duration {
	if config.BackoffFactor <= 1 {
		return current
	}
	next := time.Duration(float64(current) * config.BackoffFactor)
	if config.MaxInterval > 0 && next > config.MaxInterval {
		next = config.MaxInterval
	}
	return next
}
