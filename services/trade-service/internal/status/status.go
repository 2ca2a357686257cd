package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/domain"
	"github.com/quangdang46/gu-marketplace/shared/metrics"
	"github.com/quangdang46/gu-marketplace/shared/redis"
)

const cacheName = "attempt_status"

// StatusCache keeps attempt snapshots in Redis, or in process memory when
// no Redis client is configured.
type StatusCache struct {
	redis   *redis.Redis
	local   *cache.Cache
	mu      sync.Mutex
	metrics *metrics.Metrics
}

var _ domain.StatusCache = (*StatusCache)(nil)

func NewStatusCache(r *redis.Redis, m *metrics.Metrics) *StatusCache {
	return &StatusCache{
		redis:   r,
		local:   cache.New(domain.DefaultAttemptTTL, 10*time.Minute),
		metrics: m,
	}
}

// SetAttempt stores the attempt snapshot and indexes it under its wallet.
func (s *StatusCache) SetAttempt(ctx context.Context, a domain.Attempt, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = domain.DefaultAttemptTTL
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}

	key := redis.AttemptKey(a.ID)
	if s.redis == nil {
		s.local.Set(key, data, ttl)
		if a.Wallet != "" {
			s.addLocal(redis.WalletAttemptsKey(string(a.Wallet)), a.ID, ttl)
		}
		return nil
	}

	if err := s.redis.Set(ctx, key, string(data), ttl); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	if a.Wallet != "" {
		if err := s.redis.SAdd(ctx, redis.WalletAttemptsKey(string(a.Wallet)), ttl, a.ID); err != nil {
			return fmt.Errorf("redis sadd: %w", err)
		}
	}
	return nil
}

// GetAttempt returns domain.ErrNotFound for unknown or expired ids.
func (s *StatusCache) GetAttempt(ctx context.Context, id string) (*domain.Attempt, error) {
	data, err := s.raw(ctx, redis.AttemptKey(id))
	if err != nil {
		return nil, err
	}
	var a domain.Attempt
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("unmarshal attempt %s: %w", id, err)
	}
	return &a, nil
}

// ListByWallet returns the wallet's attempts still in the cache, oldest first.
func (s *StatusCache) ListByWallet(ctx context.Context, wallet domain.Address) ([]domain.Attempt, error) {
	key := redis.WalletAttemptsKey(string(wallet))

	var ids []string
	if s.redis == nil {
		if v, ok := s.local.Get(key); ok {
			ids = append(ids, v.([]string)...)
		}
	} else {
		members, err := s.redis.SMembers(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("redis smembers: %w", err)
		}
		ids = members
	}

	out := make([]domain.Attempt, 0, len(ids))
	for _, id := range ids {
		a, err := s.GetAttempt(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *StatusCache) raw(ctx context.Context, key string) ([]byte, error) {
	if s.redis == nil {
		v, ok := s.local.Get(key)
		s.metrics.RecordCacheLookup(cacheName, ok)
		if !ok {
			return nil, domain.ErrNotFound
		}
		return v.([]byte), nil
	}

	v, err := s.redis.Get(ctx, key)
	if errors.Is(err, redis.ErrNotFound) {
		s.metrics.RecordCacheLookup(cacheName, false)
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	s.metrics.RecordCacheLookup(cacheName, true)
	return []byte(v), nil
}

func (s *StatusCache) addLocal(key, id string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	if v, ok := s.local.Get(key); ok {
		ids = v.([]string)
	}
	for _, existing := range ids {
		if existing == id {
			s.local.Set(key, ids, ttl)
			return
		}
	}
	next := make([]string, len(ids), len(ids)+1)
	copy(next, ids)
	s.local.Set(key, append(next, id), ttl)
}
