//go:build integration

package status

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/domain"
	"github.com/quangdang46/gu-marketplace/shared/testutil"
)

func TestRedisStatusCache(t *testing.T) {
	ctx := context.Background()
	tr, err := testutil.SetupTestRedis(ctx)
	require.NoError(t, err)
	defer tr.Cleanup(ctx)

	s := NewStatusCache(tr.Client, nil)

	a := domain.NewAttempt("r-1", domain.AttemptPurchase, "0xBuyer", []string{"o-1", "o-2"})
	require.NoError(t, a.Transition(domain.StatePreparing))
	require.NoError(t, a.Transition(domain.StateAwaitingWalletActions))
	a.TxHashes = []string{"0xaaa"}
	require.NoError(t, s.SetAttempt(ctx, *a, time.Minute))

	b := domain.NewAttempt("r-2", domain.AttemptCancellation, "0xbuyer", []string{"o-3"})
	b.CreatedAt = a.CreatedAt.Add(time.Second)
	require.NoError(t, s.SetAttempt(ctx, *b, time.Minute))

	got, err := s.GetAttempt(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateAwaitingWalletActions, got.State)
	assert.Equal(t, []string{"0xaaa"}, got.TxHashes)

	list, err := s.ListByWallet(ctx, "0xBUYER")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r-1", list[0].ID)

	_, err = s.GetAttempt(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRedisStatusCache_Expiry(t *testing.T) {
	ctx := context.Background()
	tr, err := testutil.SetupTestRedis(ctx)
	require.NoError(t, err)
	defer tr.Cleanup(ctx)

	s := NewStatusCache(tr.Client, nil)
	a := domain.NewAttempt("r-ttl", domain.AttemptListing, "0xseller", nil)
	require.NoError(t, s.SetAttempt(ctx, *a, time.Second))

	require.Eventually(t, func() bool {
		list, err := s.ListByWallet(ctx, "0xseller")
		return err == nil && len(list) == 0
	}, 5*time.Second, 100*time.Millisecond)
}
