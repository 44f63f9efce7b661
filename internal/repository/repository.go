package repository

import (
	"context"

	"myretail/internal/model"
)

// PriceRepository defines the interface for price data access operations.
type PriceRepository interface {
	// FindByProductID retrieves every price owned by the given product.
	// It returns an empty slice, not an error, when there are none.
	FindByProductID(ctx context.Context, productID int) ([]model.Price, error)

	// SaveAll upserts the given prices keyed by their IDs and returns the
	// persisted records. Prices without an ID are assigned a new one.
	SaveAll(ctx context.Context, prices []model.Price) ([]model.Price, error)
}
