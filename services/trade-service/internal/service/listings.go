package service

import (
	"context"
	"sync"

	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/domain"
	apperrors "github.com/quangdang46/gu-marketplace/shared/errors"
	"github.com/quangdang46/gu-marketplace/shared/logging"
)

// ListingsClient holds the displayed order book of one card. A failed
// refresh keeps the previous listings.
type ListingsClient struct {
	backend domain.MarketplaceBackend
	logger  *logging.Logger

	mu       sync.RWMutex
	listings domain.ListingsByCurrency
	cheapest *domain.Listing
	loading  bool
	lastErr  error
}

func NewListingsClient(backend domain.MarketplaceBackend, logger *logging.Logger) *ListingsClient {
	if logger == nil {
		logger = logging.Nop()
	}
	return &ListingsClient{
		backend:  backend,
		logger:   logger.WithField("component", "listings"),
		listings: domain.ListingsByCurrency{},
	}
}

// GetListingsForCard fetches the card's listings and replaces the displayed
// set. Listings that break the fee invariant are dropped.
func (c *ListingsClient) GetListingsForCard(ctx context.Context, contract, cardID string) (domain.ListingsByCurrency, *domain.Listing, error) {
	if !IsValidEthereumAddress(contract) {
		return nil, nil, apperrors.ValidationError("contractAddress", "must be a 0x-prefixed 20 byte address")
	}
	if cardID == "" {
		return nil, nil, apperrors.ValidationError("cardId", "is required")
	}

	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()

	resp, err := c.backend.GetListings(ctx, contract, cardID)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		c.lastErr = err
		c.logger.WithError(err).WithField("card_id", cardID).Warn("listings refresh failed, keeping previous listings")
		return c.snapshotLocked(), c.cheapestLocked(), err
	}

	valid := domain.ListingsByCurrency{}
	for _, ls := range resp.Listings {
		for _, l := range ls {
			if err := l.Validate(); err != nil {
				c.logger.WithError(err).Warn("dropping invalid listing")
				continue
			}
			valid[l.Currency] = append(valid[l.Currency], l)
		}
	}

	var cheapest *domain.Listing
	if resp.CheapestListing != nil {
		if err := resp.CheapestListing.Validate(); err != nil {
			c.logger.WithError(err).Warn("ignoring invalid cheapest listing")
		} else {
			l := *resp.CheapestListing
			cheapest = &l
		}
	}

	c.listings = valid
	c.cheapest = cheapest
	c.lastErr = nil
	return c.snapshotLocked(), c.cheapestLocked(), nil
}

// Loading reports whether a refresh is in flight.
func (c *ListingsClient) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// LastError is the error of the most recent refresh, nil after a success.
func (c *ListingsClient) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

func (c *ListingsClient) Listings() domain.ListingsByCurrency {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// Filter returns one currency partition, or every listing for CurrencyAll.
func (c *ListingsClient) Filter(currency domain.Currency) []domain.Listing {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if currency == domain.CurrencyAll {
		return c.listings.All()
	}
	return append([]domain.Listing(nil), c.listings[currency]...)
}

func (c *ListingsClient) Cheapest() *domain.Listing {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cheapestLocked()
}

// RemoveListing drops a bought or cancelled listing from the displayed set
// until the next refresh.
func (c *ListingsClient) RemoveListing(listingID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for currency, ls := range c.listings {
		kept := ls[:0:0]
		for _, l := range ls {
			if l.ListingID != listingID {
				kept = append(kept, l)
			}
		}
		if len(kept) == 0 {
			delete(c.listings, currency)
		} else {
			c.listings[currency] = kept
		}
	}
	if c.cheapest != nil && c.cheapest.ListingID == listingID {
		c.cheapest = nil
	}
}

func (c *ListingsClient) snapshotLocked() domain.ListingsByCurrency {
	out := make(domain.ListingsByCurrency, len(c.listings))
	for k, v := range c.listings {
		out[k] = append([]domain.Listing(nil), v...)
	}
	return out
}

func (c *ListingsClient) cheapestLocked() *domain.Listing {
	if c.cheapest == nil {
		return nil
	}
	l := *c.cheapest
	return &l
}
