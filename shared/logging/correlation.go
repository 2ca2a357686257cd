package logging

import (
	"context"
	"net/http"
)

type ctxKey string

const (
	attemptIDKey ctxKey = "attempt_id"
	walletKey    ctxKey = "wallet_address"

	// CorrelationHeader carries the attempt id on marketplace requests.
	CorrelationHeader = "X-Correlation-ID"
)

// ContextWithAttempt tags ctx with the trade attempt id and wallet.
func ContextWithAttempt(ctx context.Context, attemptID, wallet string) context.Context {
	ctx = context.WithValue(ctx, attemptIDKey, attemptID)
	return context.WithValue(ctx, walletKey, wallet)
}

func AttemptID(ctx context.Context) string {
	v, _ := ctx.Value(attemptIDKey).(string)
	return v
}

func WalletAddress(ctx context.Context) string {
	v, _ := ctx.Value(walletKey).(string)
	return v
}

// InjectCorrelation copies the attempt id from ctx onto h. Requests made
// outside an attempt are left untouched.
func InjectCorrelation(ctx context.Context, h http.Header) {
	if id := AttemptID(ctx); id != "" {
		h.Set(CorrelationHeader, id)
	}
}
