package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Address = string
type ChainID = string

// TargetChainID is the only chain trades may run on (Immutable zkEVM).
const TargetChainID ChainID = "0x343B"

type Currency string

const (
	CurrencyAll  Currency = "ALL"
	CurrencyIMX  Currency = "IMX"
	CurrencyETH  Currency = "ETH"
	CurrencyUSDC Currency = "USDC"
	CurrencyGODS Currency = "GODS"
)

// Currencies lists every tradeable currency in display order.
var Currencies = []Currency{CurrencyIMX, CurrencyETH, CurrencyUSDC, CurrencyGODS}

func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case CurrencyAll, CurrencyIMX, CurrencyETH, CurrencyUSDC, CurrencyGODS:
		return c, nil
	}
	return "", fmt.Errorf("unknown currency %q", s)
}

// Decimals returns the token's on-chain decimals.
func (c Currency) Decimals() int32 {
	if c == CurrencyUSDC {
		return 6
	}
	return 18
}

// Native reports whether c is the chain's gas token.
func (c Currency) Native() bool { return c == CurrencyIMX }

type Fee struct {
	Amount    *big.Int `json:"-"`
	Recipient Address  `json:"recipient"`
	Type      string   `json:"type"`
}

// Listing is one sellable unit of a card. Amounts are in the currency's
// smallest unit.
type Listing struct {
	ListingID     string    `json:"listingId"`
	TokenID       string    `json:"tokenId"`
	SellerAddress Address   `json:"sellerAddress"`
	Currency      Currency  `json:"currency"`
	BasePrice     *big.Int  `json:"-"`
	Fees          []Fee     `json:"-"`
	TotalWithFees *big.Int  `json:"-"`
	StartAt       time.Time `json:"startAt"`
	EndAt         time.Time `json:"endAt"`
	Status        string    `json:"status"`
}

type wireFee struct {
	Amount    FlexString `json:"amount"`
	Recipient Address    `json:"recipient"`
	Type      string     `json:"type"`
}

type wireListing struct {
	ListingID     string     `json:"listingId"`
	TokenID       FlexString `json:"tokenId"`
	SellerAddress Address    `json:"sellerAddress"`
	Currency      Currency   `json:"currency"`
	BasePrice     FlexString `json:"basePrice"`
	FeeBreakdown  []wireFee  `json:"feeBreakdown"`
	TotalWithFees FlexString `json:"totalWithFees"`
	StartAt       time.Time  `json:"startAt"`
	EndAt         time.Time  `json:"endAt"`
	Status        string     `json:"status"`
}

func (l *Listing) UnmarshalJSON(b []byte) error {
	var w wireListing
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	base, err := ParseAmount(string(w.BasePrice))
	if err != nil {
		return fmt.Errorf("listing %s basePrice: %w", w.ListingID, err)
	}
	total, err := ParseAmount(string(w.TotalWithFees))
	if err != nil {
		return fmt.Errorf("listing %s totalWithFees: %w", w.ListingID, err)
	}
	fees := make([]Fee, 0, len(w.FeeBreakdown))
	for i, f := range w.FeeBreakdown {
		amt, err := ParseAmount(string(f.Amount))
		if err != nil {
			return fmt.Errorf("listing %s fee %d: %w", w.ListingID, i, err)
		}
		fees = append(fees, Fee{Amount: amt, Recipient: f.Recipient, Type: f.Type})
	}
	*l = Listing{
		ListingID:     w.ListingID,
		TokenID:       string(w.TokenID),
		SellerAddress: w.SellerAddress,
		Currency:      Currency(strings.ToUpper(string(w.Currency))),
		BasePrice:     base,
		Fees:          fees,
		TotalWithFees: total,
		StartAt:       w.StartAt,
		EndAt:         w.EndAt,
		Status:        w.Status,
	}
	return nil
}

func (l Listing) MarshalJSON() ([]byte, error) {
	fees := make([]wireFee, 0, len(l.Fees))
	for _, f := range l.Fees {
		fees = append(fees, wireFee{Amount: FlexString(amountString(f.Amount)), Recipient: f.Recipient, Type: f.Type})
	}
	return json.Marshal(wireListing{
		ListingID:     l.ListingID,
		TokenID:       FlexString(l.TokenID),
		SellerAddress: l.SellerAddress,
		Currency:      l.Currency,
		BasePrice:     FlexString(amountString(l.BasePrice)),
		FeeBreakdown:  fees,
		TotalWithFees: FlexString(amountString(l.TotalWithFees)),
		StartAt:       l.StartAt,
		EndAt:         l.EndAt,
		Status:        l.Status,
	})
}

// FeeSum adds up the fee breakdown.
func (l Listing) FeeSum() *big.Int {
	sum := new(big.Int)
	for _, f := range l.Fees {
		if f.Amount != nil {
			sum.Add(sum, f.Amount)
		}
	}
	return sum
}

// Validate checks the currency and that totalWithFees == basePrice +
// sum(fees) exactly.
func (l Listing) Validate() error {
	if c, err := ParseCurrency(string(l.Currency)); err != nil || c == CurrencyAll {
		return fmt.Errorf("listing %s: unsupported currency %q", l.ListingID, l.Currency)
	}
	if l.BasePrice == nil || l.TotalWithFees == nil {
		return fmt.Errorf("listing %s: missing price", l.ListingID)
	}
	expected := new(big.Int).Add(l.BasePrice, l.FeeSum())
	if expected.Cmp(l.TotalWithFees) != 0 {
		return fmt.Errorf("listing %s: totalWithFees %s != basePrice %s + fees %s",
			l.ListingID, l.TotalWithFees, l.BasePrice, l.FeeSum())
	}
	return nil
}

// DisplayPrice is TotalWithFees scaled down by the currency's decimals.
func (l Listing) DisplayPrice() decimal.Decimal {
	if l.TotalWithFees == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(l.TotalWithFees, -l.Currency.Decimals())
}

// ListingsByCurrency partitions a card's order book.
type ListingsByCurrency map[Currency][]Listing

// All flattens the partitions in currency display order.
func (m ListingsByCurrency) All() []Listing {
	var out []Listing
	for _, c := range Currencies {
		out = append(out, m[c]...)
	}
	return out
}

// OwnedToken is one token of a card held by a wallet.
type OwnedToken struct {
	TokenID   string `json:"tokenId"`
	Listed    bool   `json:"listed"`
	ListingID string `json:"listingId,omitempty"`
}

// Order is an order-book entry with computed fees.
type Order struct {
	OrderID        string     `json:"orderId"`
	Price          FlexString `json:"price"`
	Fee            FlexString `json:"fee"`
	MarketplaceFee FlexString `json:"marketplaceFee"`
	Total          FlexString `json:"total"`
	Currency       string     `json:"currency"`
	Status         string     `json:"status"`
}

// ParseAmount parses a non-negative integer in decimal or 0x-hex.
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int), false
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, ok = v.SetString(s[2:], 16)
	} else {
		v, ok = v.SetString(s, 10)
	}
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// FlexString decodes a JSON string or number into its textual form.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }
