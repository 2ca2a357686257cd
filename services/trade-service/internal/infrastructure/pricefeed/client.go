package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/domain"
	"github.com/quangdang46/gu-marketplace/shared/logging"
	"github.com/quangdang46/gu-marketplace/shared/metrics"
	"github.com/quangdang46/gu-marketplace/shared/resilience"
)

const cacheName = "usd_price"

type Options struct {
	Timeout         time.Duration
	RetryMax        int
	CacheTTL        time.Duration
	RatePerSecond   float64
	Burst           int
	BreakerFailures int
	BreakerReset    time.Duration
}

// Client fetches USD quotes from a CoinGecko-compatible simple/price
// endpoint. Quotes are cached per feed id, requests are rate limited and
// a run of failures opens a circuit breaker.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
	cache   *cache.Cache
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	logger  *logging.Logger
	metrics *metrics.Metrics
}

var _ domain.PriceFeed = (*Client)(nil)

func NewClient(baseURL string, opts Options, logger *logging.Logger, m *metrics.Metrics) *Client {
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Minute
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 0.5
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.BreakerReset <= 0 {
		opts.BreakerReset = 30 * time.Second
	}

	hc := retryablehttp.NewClient()
	hc.HTTPClient.Timeout = opts.Timeout
	hc.RetryMax = opts.RetryMax
	hc.Logger = logger.Leveled()
	hc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	log := logger.WithField("component", "pricefeed")
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		cache:   cache.New(opts.CacheTTL, 2*opts.CacheTTL),
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
		breaker: resilience.NewCircuitBreaker(&resilience.CircuitBreakerConfig{
			Name:         "pricefeed",
			MaxFailures:  opts.BreakerFailures,
			ResetTimeout: opts.BreakerReset,
			OnStateChange: func(name string, from, to resilience.State) {
				log.WithFields(map[string]interface{}{"from": from.String(), "to": to.String()}).Warn("price feed breaker state changed")
			},
		}),
		logger:  log,
		metrics: m,
	}
}

// USDPrices returns the USD quote for each feed id. Ids the feed does not
// know are absent from the result.
func (c *Client) USDPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(ids))
	var missing []string
	seen := map[string]bool{}
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if v, ok := c.cache.Get(id); ok {
			out[id] = v.(decimal.Decimal)
			c.metrics.RecordCacheLookup(cacheName, true)
			continue
		}
		c.metrics.RecordCacheLookup(cacheName, false)
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}
	sort.Strings(missing)

	var fetched map[string]decimal.Decimal
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		fetched, err = c.fetch(ctx, missing)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("usd prices: %w", err)
	}

	for id, v := range fetched {
		c.cache.SetDefault(id, v)
		out[id] = v
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	q := url.Values{"ids": {strings.Join(ids, ",")}, "vs_currencies": {"usd"}}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordHTTPRequest(http.MethodGet, "/simple/price", "error", time.Since(start))
		return nil, err
	}
	defer resp.Body.Close()
	c.metrics.RecordHTTPRequest(http.MethodGet, "/simple/price", fmt.Sprint(resp.StatusCode), time.Since(start))

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("price feed returned %s", resp.Status)
	}

	var body map[string]map[string]json.Number
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode price feed response: %w", err)
	}

	out := make(map[string]decimal.Decimal, len(body))
	for id, quotes := range body {
		raw, ok := quotes["usd"]
		if !ok {
			continue
		}
		v, err := decimal.NewFromString(raw.String())
		if err != nil {
			c.logger.WithField("feed_id", id).WithError(err).Warn("skipping unparsable quote")
			continue
		}
		out[id] = v
	}
	return out, nil
}
