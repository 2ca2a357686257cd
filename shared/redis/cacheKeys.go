package redis

import (
	"strings"
)

var (
	App     = "gumkt" // project code
	Env     = "dev"   // dev|stg|prod
	Version = "v1"    // schema version for easy bust
)

func join(parts ...string) string {
	return strings.Join(parts, ":")
}

func pfx() string {
	return join(App, Env, Version)
}

func NormalizeAddress(addr string) string { return strings.ToLower(addr) }

// AttemptKey holds the JSON snapshot of a trade attempt.
func AttemptKey(attemptID string) string {
	return join(pfx(), "attempt", attemptID)
}

// WalletAttemptsKey is the set of attempt ids started by a wallet.
func WalletAttemptsKey(wallet string) string {
	return join(pfx(), "wallet", NormalizeAddress(wallet), "attempts")
}

