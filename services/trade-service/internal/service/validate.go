package service

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/domain"
	apperrors "github.com/quangdang46/gu-marketplace/shared/errors"
)

const maxOrdersPerRequest = 50

// ValidateOrderIDs checks a buy or cancel request's order ids.
func ValidateOrderIDs(ids []string) error {
	if len(ids) == 0 {
		return apperrors.ValidationError("orderIds", "at least one order id is required")
	}
	if len(ids) > maxOrdersPerRequest {
		return apperrors.ValidationError("orderIds", "too many orders (max 50)")
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return apperrors.ValidationError("orderIds", "order ids cannot be empty")
		}
		if seen[id] {
			return apperrors.ValidationError("orderIds", "duplicate order id "+id)
		}
		seen[id] = true
	}
	return nil
}

// ValidateListingForm checks the listing form before submission.
func ValidateListingForm(price decimal.Decimal, currency domain.Currency, quantity, available, durationDays int) error {
	if !price.IsPositive() {
		return apperrors.ValidationError("price", "must be greater than 0")
	}
	if _, err := domain.ParseCurrency(string(currency)); err != nil || currency == domain.CurrencyAll {
		return apperrors.ValidationError("currency", "choose IMX, ETH, USDC or GODS")
	}
	if !price.Equal(price.Truncate(currency.Decimals())) {
		return apperrors.ValidationError("price", "too many decimal places for "+string(currency))
	}
	if quantity < 1 {
		return apperrors.ValidationError("quantity", "must be at least 1")
	}
	if quantity > available {
		return apperrors.ValidationError("quantity", "exceeds the number of unlisted tokens")
	}
	if durationDays < 1 || durationDays > maxListingDays {
		return apperrors.ValidationError("duration", "must be between 1 and 180 days")
	}
	return nil
}

// IsValidEthereumAddress validates if a string is a valid Ethereum address
func IsValidEthereumAddress(address string) bool {
	if len(address) != 42 {
		return false
	}
	if !strings.HasPrefix(address, "0x") {
		return false
	}
	for _, char := range address[2:] {
		if !((char >= '0' && char <= '9') ||
			(char >= 'a' && char <= 'f') ||
			(char >= 'A' && char <= 'F')) {
			return false
		}
	}
	return true
}
