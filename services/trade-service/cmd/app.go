package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/urfave/cli/v2"

	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/config"
	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/infrastructure/backend"
	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/infrastructure/pricefeed"
	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/infrastructure/wallet"
	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/service"
	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/status"
	sharedconfig "github.com/quangdang46/gu-marketplace/shared/config"
	"github.com/quangdang46/gu-marketplace/shared/logging"
	"github.com/quangdang46/gu-marketplace/shared/metrics"
	"github.com/quangdang46/gu-marketplace/shared/monitoring"
	"github.com/quangdang46/gu-marketplace/shared/recovery"
	"github.com/quangdang46/gu-marketplace/shared/redis"
	"github.com/quangdang46/gu-marketplace/shared/resilience"
	"github.com/quangdang46/gu-marketplace/shared/timeout"
)

// app is everything one command needs, built from the environment.
type app struct {
	cfg      *config.Config
	registry *sharedconfig.Registry
	logger   *logging.Logger
	metrics  *metrics.Metrics
	reporter monitoring.Reporter
	redis    *redis.Redis
	status   *status.StatusCache
	backend  *backend.Client
	prices   *pricefeed.Client
	session  *wallet.Session
	timeouts *timeout.TimeoutConfig

	closers []func()
}

var tracker = timeout.NewTimeoutTracker()

// command wraps an action with app construction, panic recovery and
// shutdown.
func command(name string, action func(c *cli.Context, a *app) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		a, err := newApp(c)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		defer a.close()

		panics := recovery.NewPanicHandler(
			recovery.WithStackLogging(false),
			recovery.WithPanicCallback(func(recovered interface{}, stack []byte) {
				a.logger.WithFields(map[string]interface{}{
					"command": name,
					"panic":   fmt.Sprint(recovered),
					"stack":   string(stack),
				}).Error("command panicked")
			}),
		)

		start := time.Now()
		err = panics.Run(name, func() error { return action(c, a) })
		tracker.Track(name, time.Since(start), errors.Is(err, timeout.ErrTimeout))
		if stats, ok := tracker.GetStats(name); ok {
			a.logger.WithFields(map[string]interface{}{
				"command":  name,
				"duration": time.Since(start).String(),
				"timeouts": stats.TimeoutCount,
			}).Debug("command finished")
		}
		return err
	}
}

func newApp(c *cli.Context) (*app, error) {
	ctx := c.Context
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	registry, err := sharedconfig.LoadChainConfig()
	if err != nil {
		return nil, fmt.Errorf("chain config: %w", err)
	}

	logCfg := logging.DefaultConfig("gumarket")
	if lvl := c.String("log-level"); lvl != "" {
		logCfg.Level = logging.LogLevel(lvl)
	}
	a := &app{
		cfg:      cfg,
		registry: registry,
		logger:   logging.NewLogger(logCfg),
		metrics:  metrics.NewMetrics("gumarket", "trade"),
		reporter: monitoring.NopReporter{},
		timeouts: timeout.DefaultTimeoutConfig(),
	}

	enabled, err := monitoring.InitSentry(&monitoring.SentryConfig{DSN: cfg.SentryDSN, ServiceName: "gumarket"})
	if err != nil {
		a.logger.WithError(err).Warn("sentry disabled")
	} else if enabled {
		a.reporter = monitoring.SentryReporter{}
		a.closers = append(a.closers, func() { monitoring.FlushSentry(2 * time.Second) })
	}

	if cfg.UseRedis {
		r := redis.NewRedis(cfg.Redis)
		if err := timeout.RedisTimeout(ctx, a.timeouts, r.HealthCheck); err != nil {
			a.logger.WithError(err).Warn("redis unavailable, keeping attempt status in memory")
			_ = r.Close()
		} else {
			a.redis = r
			a.closers = append(a.closers, func() { _ = r.Close() })
		}
	}
	a.status = status.NewStatusCache(a.redis, a.metrics)

	a.backend = backend.NewClient(cfg.BackendURL, cfg.HTTP.Timeout, cfg.HTTP.RetryMax, a.logger, a.metrics)
	a.prices = pricefeed.NewClient(cfg.PriceFeedURL, pricefeed.Options{
		Timeout:         cfg.HTTP.Timeout,
		RetryMax:        cfg.HTTP.RetryMax,
		CacheTTL:        cfg.PriceFeed.CacheTTL,
		RatePerSecond:   cfg.PriceFeed.RatePerSecond,
		Burst:           cfg.PriceFeed.Burst,
		BreakerFailures: cfg.PriceFeed.BreakerFailures,
	}, a.logger, a.metrics)

	provider, err := a.dialProvider(ctx, c.Bool("yes"))
	if err != nil {
		a.logger.WithError(err).Warn("no wallet provider available")
		provider = nil
	}
	connector := wallet.NewConnector(provider, registry, a.prices, a.logger, a.metrics)
	a.session = wallet.NewSession(connector, a.logger)
	return a, nil
}

func (a *app) dialProvider(ctx context.Context, autoApprove bool) (wallet.Provider, error) {
	switch a.cfg.Wallet.Mode {
	case config.WalletModeKey:
		opts := []wallet.KeyProviderOption{wallet.WithApprover(a.approver(autoApprove))}
		if a.cfg.Wallet.NodeURL != "" {
			node, err := rpc.DialContext(ctx, a.cfg.Wallet.NodeURL)
			if err != nil {
				return nil, fmt.Errorf("dial chain node: %w", err)
			}
			opts = append(opts, wallet.WithNode(node))
		}
		p, err := wallet.NewKeyProvider(a.cfg.Wallet.PrivateKeys, a.registry.Chain, opts...)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, p.Close)
		return p, nil
	default:
		p, err := wallet.DialRPCProvider(ctx, a.cfg.Wallet.RPCURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, p.Close)
		return p, nil
	}
}

// approver prompts on the terminal before a key-mode wallet acts.
func (a *app) approver(auto bool) wallet.Approver {
	if auto || a.cfg.Wallet.AutoApprove {
		return wallet.AutoApprove
	}
	in := bufio.NewReader(os.Stdin)
	return func(ctx context.Context, method, summary string) bool {
		fmt.Fprintf(os.Stderr, "Wallet request %s: %s\nApprove? [y/N] ", method, summary)
		line, err := in.ReadString('\n')
		if err != nil {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}
}

func (a *app) deps() service.Deps {
	return service.Deps{
		Backend:  a.backend,
		Wallet:   a.session,
		Registry: a.registry,
		Status:   a.status,
		Poll: &resilience.PollConfig{
			Interval:      a.cfg.Polling.Interval,
			MaxAttempts:   a.cfg.Polling.MaxAttempts,
			BackoffFactor: 1,
		},
		Logger:   a.logger,
		Metrics:  a.metrics,
		Reporter: a.reporter,
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
