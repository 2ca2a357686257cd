package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("redis: key not found")

type RedisConfig struct {
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int
}

type Redis struct {
	conn *redis.Client
}

func NewRedis(cfg RedisConfig) *Redis {
	addr := fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort)
	conn := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &Redis{conn: conn}
}

// NewRedisFromURL parses a redis:// connection string.
func NewRedisFromURL(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Redis{conn: redis.NewClient(opts)}, nil
}

func (r *Redis) HealthCheck(ctx context.Context) error {
	return r.conn.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// Set sets a key-value pair
func (r *Redis) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	return r.conn.Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value by key
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.conn.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

// SAdd adds members to a set and refreshes its expiry.
func (r *Redis) SAdd(ctx context.Context, key string, expiration time.Duration, members ...interface{}) error {
	pipe := r.conn.TxPipeline()
	pipe.SAdd(ctx, key, members...)
	if expiration > 0 {
		pipe.Expire(ctx, key, expiration)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// SMembers returns all members of a set
func (r *Redis) SMembers(ctx context.Context, key string) ([]string, error) {
	return r.conn.SMembers(ctx, key).Result()
}
