package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/domain"
	"github.com/quangdang46/gu-marketplace/shared/logging"
	"github.com/quangdang46/gu-marketplace/shared/metrics"
)

const maxBodySize = 4 << 20

// Client talks to the marketplace REST API. Reads are retried on
// transport errors and 5xx; mutations are sent exactly once.
type Client struct {
	baseURL string
	reads   *retryablehttp.Client
	writes  *retryablehttp.Client
	logger  *logging.Logger
	metrics *metrics.Metrics
}

var _ domain.MarketplaceBackend = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration, retryMax int, logger *logging.Logger, m *metrics.Metrics) *Client {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		reads:   newRetryClient(timeout, retryMax, logger),
		writes:  newRetryClient(timeout, 0, logger),
		logger:  logger.WithField("component", "backend"),
		metrics: m,
	}
}

func newRetryClient(timeout time.Duration, retryMax int, logger *logging.Logger) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.HTTPClient.Timeout = timeout
	c.RetryMax = retryMax
	c.RetryWaitMin = 200 * time.Millisecond
	c.RetryWaitMax = 2 * time.Second
	c.Logger = logger.Leveled()
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return c
}

func (c *Client) GetListings(ctx context.Context, contract, cardID string) (*domain.ListingsResponse, error) {
	q := url.Values{"contractAddress": {contract}, "cardId": {cardID}}
	var out domain.ListingsResponse
	if err := c.do(ctx, http.MethodGet, "/api/listings", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetOwnedTokens(ctx context.Context, contract, cardID string, owner domain.Address) (*domain.OwnedTokensResponse, error) {
	q := url.Values{"contractAddress": {contract}, "cardId": {cardID}, "owner": {string(owner)}}
	var out domain.OwnedTokensResponse
	if err := c.do(ctx, http.MethodGet, "/api/nfts", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PrepareBuy(ctx context.Context, req domain.BuyRequest) (*domain.BuyResponse, error) {
	var out domain.BuyResponse
	if err := c.do(ctx, http.MethodPost, "/api/listing/buy", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PrepareCancel(ctx context.Context, req domain.CancelRequest) (*domain.CancelPrepareResponse, error) {
	req.Signature = ""
	var out domain.CancelPrepareResponse
	if err := c.do(ctx, http.MethodPost, "/api/listing/cancel", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ExecuteCancel(ctx context.Context, req domain.CancelRequest) (*domain.CancelExecuteResponse, error) {
	var out domain.CancelExecuteResponse
	if err := c.do(ctx, http.MethodPut, "/api/listing/cancel", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PrepareListing(ctx context.Context, req domain.CreateListingRequest) (*domain.CreateListingPrepareResponse, error) {
	var out domain.CreateListingPrepareResponse
	if err := c.do(ctx, http.MethodPost, "/api/listing/create", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SubmitListing(ctx context.Context, req domain.SubmitListingRequest) (*domain.SubmitListingResponse, error) {
	var out domain.SubmitListingResponse
	if err := c.do(ctx, http.MethodPut, "/api/listing/create", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetOrders(ctx context.Context, orderIDs []string) (*domain.OrdersResponse, error) {
	if len(orderIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one order id is required", domain.ErrInvalidInput)
	}
	q := url.Values{"orderId": orderIDs}
	var out domain.OrdersResponse
	if err := c.do(ctx, http.MethodGet, "/api/order/batch", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetOrderDetails(ctx context.Context, orderIDs []string) (*domain.OrdersResponse, error) {
	if len(orderIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one order id is required", domain.ErrInvalidInput)
	}
	body := struct {
		OrderIDs []string `json:"orderIds"`
	}{orderIDs}
	var out domain.OrdersResponse
	if err := c.do(ctx, http.MethodPost, "/api/order/details", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// envelope is the part of every response used to detect failure.
type envelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e envelope) text() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var raw []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		raw = b
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, raw)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	logging.InjectCorrelation(ctx, req.Header)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := c.writes
	if method == http.MethodGet {
		client = c.reads
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		c.metrics.RecordHTTPRequest(method, path, "error", time.Since(start))
		c.logger.WithError(err).WithField("path", path).Warn("backend request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.metrics.RecordHTTPRequest(method, path, strconv.Itoa(resp.StatusCode), time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(data, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.text()
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &domain.BackendError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, decodeErr)
	}
	if env.Success != nil && !*env.Success {
		msg := env.text()
		if msg == "" {
			msg = "Request failed"
		}
		return &domain.BackendError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
