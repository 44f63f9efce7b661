package service

import (
	"context"

	"myretail/internal/model"
)

// ProductService combines catalog names with stored prices.
type ProductService interface {
	// GetProduct assembles the product view for productID.
	GetProduct(ctx context.Context, productID int) (*model.Product, error)

	// UpdateProduct persists the prices of product under productID and returns
	// the freshly read view. A submission equal to the current view is returned
	// as-is without writing.
	UpdateProduct(ctx context.Context, productID int, product *model.Product) (*model.Product, error)
}
