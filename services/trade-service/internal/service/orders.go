package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/domain"
	apperrors "github.com/quangdang46/gu-marketplace/shared/errors"
)

// OrderLookup reads orders with their computed marketplace fee and total.
type OrderLookup struct {
	backend domain.MarketplaceBackend
}

func NewOrderLookup(backend domain.MarketplaceBackend) *OrderLookup {
	return &OrderLookup{backend: backend}
}

// Orders uses the batch endpoint, or the details endpoint when details is set.
func (o *OrderLookup) Orders(ctx context.Context, orderIDs []string, details bool) ([]domain.Order, error) {
	if err := ValidateOrderIDs(orderIDs); err != nil {
		return nil, err
	}

	var (
		resp *domain.OrdersResponse
		err  error
	)
	if details {
		resp, err = o.backend.GetOrderDetails(ctx, orderIDs)
	} else {
		resp, err = o.backend.GetOrders(ctx, orderIDs)
	}
	if err != nil {
		var be *domain.BackendError
		if errors.As(err, &be) {
			if be.Status == http.StatusNotFound {
				return nil, apperrors.OperationFailed(be.Message).WithTitle("Order Not Found").WithCause(err)
			}
			return nil, apperrors.OperationFailed(be.Message).WithCause(err)
		}
		return nil, apperrors.OperationFailed(err.Error()).WithCause(err)
	}
	return resp.Orders, nil
}
