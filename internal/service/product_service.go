package service

import (
	"context"
	"errors"
	"fmt"

	"myretail/internal/catalog"
	"myretail/internal/model"
	"myretail/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// productService implements ProductService.
type productService struct {
	catalog   catalog.Client
	priceRepo repository.PriceRepository
	logger    zerolog.Logger
}

// NewProductService creates a new product service.
func NewProductService(catalogClient catalog.Client, priceRepo repository.PriceRepository, logger zerolog.Logger) ProductService {
	return &productService{
		catalog:   catalogClient,
		priceRepo: priceRepo,
		logger:    logger.With().Str("service", "product").Logger(),
	}
}

// GetProduct fetches the catalog name and the stored prices concurrently.
// A catalog failure takes precedence over a store failure, so a product the
// catalog does not know is reported as not found even if prices exist for it.
// Only a catalog failure cancels the sibling lookup.
func (s *productService) GetProduct(ctx context.Context, productID int) (*model.Product, error) {
	s.logger.Debug().Int("product_id", productID).Msg("getting product")

	var (
		name       string
		prices     []model.Price
		catalogErr error
		storeErr   error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		name, catalogErr = s.catalog.FetchDisplayName(gctx, productID)
		return catalogErr
	})
	g.Go(func() error {
		prices, storeErr = s.priceRepo.FindByProductID(gctx, productID)
		return nil
	})
	_ = g.Wait()

	if catalogErr != nil {
		return nil, s.classifyCatalogError(productID, catalogErr)
	}
	if storeErr != nil {
		s.logger.Error().Err(storeErr).Int("product_id", productID).Msg("failed to load prices")
		return nil, model.WrapDomainError(
			model.ErrCodeStoreUnavailable,
			fmt.Sprintf("unable to load prices for productId: %d", productID),
			storeErr,
		)
	}
	if prices == nil {
		prices = []model.Price{}
	}

	product := &model.Product{
		ID:           productID,
		Name:         name,
		CurrentPrice: prices,
	}

	s.logger.Debug().
		Int("product_id", productID).
		Str("name", name).
		Int("price_count", len(prices)).
		Msg("retrieved product")

	return product, nil
}

// UpdateProduct validates and stores the submitted prices.
func (s *productService) UpdateProduct(ctx context.Context, productID int, product *model.Product) (*model.Product, error) {
	s.logger.Debug().Int("product_id", productID).Msg("updating product")

	if product == nil {
		return nil, model.NewDomainError(model.ErrCodeInvalidUpdateRequest, "product body is required")
	}

	existing, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if existing.Equal(product) {
		s.logger.Debug().Int("product_id", productID).Msg("submitted product unchanged, skipping write")
		return product, nil
	}

	if err := validateOwnership(productID, product); err != nil {
		s.logger.Warn().Err(err).Int("product_id", productID).Msg("rejected product update")
		return nil, err
	}

	if _, err := s.priceRepo.SaveAll(ctx, product.CurrentPrice); err != nil {
		s.logger.Error().Err(err).Int("product_id", productID).Msg("failed to save prices")
		return nil, model.WrapDomainError(
			model.ErrCodeStoreUnavailable,
			fmt.Sprintf("unable to save prices for productId: %d", productID),
			err,
		)
	}

	updated, err := s.GetProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("product_id", productID).
		Int("price_count", len(product.CurrentPrice)).
		Msg("product prices updated")

	return updated, nil
}

// validateOwnership rejects a submission that would attach a price, or the
// product itself, to a product other than the one being updated. A price id
// may appear at most once.
func validateOwnership(productID int, product *model.Product) error {
	if product.ID != productID {
		return model.NewDomainError(
			model.ErrCodeInvalidUpdateRequest,
			fmt.Sprintf("attempted update of product with non-matching productId: body id %d, path productId %d", product.ID, productID),
		)
	}

	if id, found := product.HasDuplicatePriceIDs(); found {
		return model.NewDomainError(
			model.ErrCodeInvalidUpdateRequest,
			fmt.Sprintf("attempted update of productId: %d with price id %s submitted more than once", productID, id),
		)
	}

	for _, price := range product.CurrentPrice {
		if price.ProductID != productID {
			return model.NewDomainError(
				model.ErrCodeInvalidUpdateRequest,
				fmt.Sprintf("attempted update of price with non-matching productId: %s attempted update of productId: %d (expected %d, got %d)",
					price, productID, productID, price.ProductID),
			)
		}
	}

	return nil
}

// classifyCatalogError maps catalog failures onto domain error kinds.
func (s *productService) classifyCatalogError(productID int, err error) error {
	var parseErr *catalog.ParseError

	switch {
	case errors.Is(err, catalog.ErrNotFound):
		s.logger.Debug().Int("product_id", productID).Msg("product not found")
		return model.WrapDomainError(
			model.ErrCodeProductNotFound,
			fmt.Sprintf("unable to find product with productId: %d", productID),
			err,
		)
	case errors.As(err, &parseErr):
		s.logger.Error().Err(err).Int("product_id", productID).Msg("catalog response could not be parsed")
		return model.WrapDomainError(
			model.ErrCodeCatalogParse,
			fmt.Sprintf("unable to parse catalog response for productId: %d", productID),
			err,
		)
	default:
		s.logger.Error().Err(err).Int("product_id", productID).Msg("catalog request failed")
		return model.WrapDomainError(
			model.ErrCodeCatalogTransport,
			fmt.Sprintf("unable to complete catalog request for productId: %d", productID),
			err,
		)
	}
}
