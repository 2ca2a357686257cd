package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/quangdang46/gu-marketplace/shared/redis"
)

// TestRedis is a throwaway Redis server for integration tests.
type TestRedis struct {
	Container *tcredis.RedisContainer
	URL       string
	Client    *redis.Redis
}

// SetupTestRedis starts a Redis container and connects a client to it.
func SetupTestRedis(ctx context.Context) (*TestRedis, error) {
	container, err := tcredis.Run(ctx, "redis:7-alpine",
		testcontainers.WithWaitStrategy(wait.ForListeningPort("6379/tcp").WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start redis container: %w", err)
	}

	url, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get redis connection string: %w", err)
	}

	client, err := redis.NewRedisFromURL(url)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}
	if err := client.HealthCheck(ctx); err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("redis not ready: %w", err)
	}

	return &TestRedis{Container: container, URL: url, Client: client}, nil
}

// Cleanup closes the client and terminates the container
func (tr *TestRedis) Cleanup(ctx context.Context) error {
	if tr.Client != nil {
		tr.Client.Close()
		tr.Client = nil
	}
	if tr.Container != nil {
		err := tr.Container.Terminate(ctx)
		tr.Container = nil
		return err
	}
	return nil
}
