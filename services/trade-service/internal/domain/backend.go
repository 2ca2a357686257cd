package domain

import (
	"context"
	"fmt"
	"time"
)

// BackendError is a non-2xx response or a success:false body.
type BackendError struct {
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend error (status %d): %s", e.Status, e.Message)
}

type ListingsResponse struct {
	Success         bool               `json:"success"`
	Listings        ListingsByCurrency `json:"listings"`
	CheapestListing *Listing           `json:"cheapestListing"`
}

type OwnedTokensResponse struct {
	Success bool         `json:"success"`
	NFTs    []OwnedToken `json:"nfts"`
}

type BuyRequest struct {
	OrderIDs      []string `json:"orderIds"`
	WalletAddress Address  `json:"walletAddress"`
}

type BuyResponse struct {
	Success       bool       `json:"success"`
	Mode          string     `json:"mode"`
	Actions       ActionPlan `json:"actions"`
	Price         FlexString `json:"price"`
	Fee           FlexString `json:"fee"`
	FeePercentage FlexString `json:"feePercentage"`
	TotalWithFee  FlexString `json:"totalWithFee"`
	TokenID       FlexString `json:"tokenId"`
}

type CancelRequest struct {
	OrderIDs      []string `json:"orderIds"`
	WalletAddress Address  `json:"walletAddress"`
	Signature     string   `json:"signature,omitempty"`
}

type CancelPrepareResponse struct {
	Success           bool          `json:"success"`
	RequiresSignature bool          `json:"requiresSignature"`
	Message           *TypedPayload `json:"message"`
}

type FailedCancellation struct {
	Order      string `json:"order"`
	ReasonCode string `json:"reason_code"`
}

type CancellationResult struct {
	Successful []string             `json:"successful_cancellations"`
	Failed     []FailedCancellation `json:"failed_cancellations"`
	Pending    []string             `json:"pending_cancellations"`
}

type CancelExecuteResponse struct {
	Success bool               `json:"success"`
	Result  CancellationResult `json:"result"`
}

type CreateListingRequest struct {
	TokenIDs      []string `json:"tokenIds"`
	WalletAddress Address  `json:"walletAddress"`
	Currency      Currency `json:"currency"`
	Price         string   `json:"price"`
	DurationDays  int      `json:"durationDays"`
}

type CreateListingPrepareResponse struct {
	Success bool       `json:"success"`
	Actions ActionPlan `json:"actions"`
}

type SubmitListingRequest struct {
	WalletAddress Address  `json:"walletAddress"`
	TokenIDs      []string `json:"tokenIds"`
	Signatures    []string `json:"signatures"`
}

type SubmitListingResponse struct {
	Success bool `json:"success"`
	Result  struct {
		ListingIDs []string `json:"listingIds"`
	} `json:"result"`
}

type OrdersResponse struct {
	Success bool    `json:"success"`
	Orders  []Order `json:"orders"`
}

// MarketplaceBackend is the REST API the client orchestrates against.
// Every method returns *BackendError for non-2xx or success:false.
type MarketplaceBackend interface {
	GetListings(ctx context.Context, contract, cardID string) (*ListingsResponse, error)
	GetOwnedTokens(ctx context.Context, contract, cardID string, owner Address) (*OwnedTokensResponse, error)
	PrepareBuy(ctx context.Context, req BuyRequest) (*BuyResponse, error)
	PrepareCancel(ctx context.Context, req CancelRequest) (*CancelPrepareResponse, error)
	ExecuteCancel(ctx context.Context, req CancelRequest) (*CancelExecuteResponse, error)
	PrepareListing(ctx context.Context, req CreateListingRequest) (*CreateListingPrepareResponse, error)
	SubmitListing(ctx context.Context, req SubmitListingRequest) (*SubmitListingResponse, error)
	GetOrders(ctx context.Context, orderIDs []string) (*OrdersResponse, error)
	GetOrderDetails(ctx context.Context, orderIDs []string) (*OrdersResponse, error)
}

// StatusCache keeps attempt snapshots for observers.
type StatusCache interface {
	SetAttempt(ctx context.Context, a Attempt, ttl time.Duration) error
	GetAttempt(ctx context.Context, id string) (*Attempt, error)
	ListByWallet(ctx context.Context, wallet Address) ([]Attempt, error)
}

const DefaultAttemptTTL = 6 * time.Hour
