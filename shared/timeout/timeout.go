package timeout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// TimeoutConfig holds per-dependency timeouts for one CLI command.
type TimeoutConfig struct {
	Default time.Duration
	Backend time.Duration
	Redis   time.Duration
	Wallet  time.Duration
	// Trade bounds a whole buy, cancel or list run, which includes waiting
	// for the user in the wallet and for receipts.
	Trade time.Duration
}

// DefaultTimeoutConfig returns default timeout configuration
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		Default: 30 * time.Second,
		Backend: 30 * time.Second,
		Redis:   2 * time.Second,
		Wallet:  2 * time.Minute,
		Trade:   15 * time.Minute,
	}
}

// WithTimeout creates a context with timeout
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

// ErrTimeout is wrapped by every error Run returns on expiry.
var ErrTimeout = errors.New("operation timed out")

// Run calls fn with a context bounded by d. An expiry is reported as
// ErrTimeout naming the operation.
func Run(ctx context.Context, operation string, d time.Duration, fn func(context.Context) error) error {
	ctx, cancel := WithTimeout(ctx, d)
	defer cancel()

	err := fn(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w after %v: %v", operation, ErrTimeout, d, err)
	}
	return err
}

// RedisTimeout wraps Redis operations with timeout
func RedisTimeout(ctx context.Context, config *TimeoutConfig, fn func(context.Context) error) error {
	return Run(ctx, "redis", config.Redis, fn)
}

// TimeoutTracker tracks operation timeouts for monitoring
type TimeoutTracker struct {
	mu         sync.Mutex
	operations map[string]*OperationStats
}

// OperationStats holds timeout statistics for an operation
type OperationStats struct {
	TotalCalls    int64
	TimeoutCount  int64
	SuccessCount  int64
	TotalDuration time.Duration
}

func NewTimeoutTracker() *TimeoutTracker {
	return &TimeoutTracker{operations: make(map[string]*OperationStats)}
}

func (t *TimeoutTracker) Track(operation string, duration time.Duration, timedOut bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats, ok := t.operations[operation]
	if !ok {
		stats = &OperationStats{}
		t.operations[operation] = stats
	}
	stats.TotalCalls++
	stats.TotalDuration += duration
	if timedOut {
		stats.TimeoutCount++
	} else {
		stats.SuccessCount++
	}
}

// GetStats returns a copy of the stats for operation.
func (t *TimeoutTracker) GetStats(operation string) (OperationStats, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.operations[operation]
	if !ok {
		return OperationStats{}, false
	}
	return *s, true
}
