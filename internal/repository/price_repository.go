package repository

import (
	"context"
	"fmt"

	"myretail/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// priceRepository implements the PriceRepository interface using PostgreSQL.
type priceRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPriceRepository creates a new PostgreSQL-backed price repository.
// The pool must have decimal types registered (see database.RegisterTypes).
func NewPriceRepository(pool *pgxpool.Pool, logger zerolog.Logger) PriceRepository {
	return &priceRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "price").Logger(),
	}
}

// FindByProductID retrieves every price owned by the given product.
func (r *priceRepository) FindByProductID(ctx context.Context, productID int) ([]model.Price, error) {
	query := `
		SELECT id, value, currency_code, product_id
		FROM prices
		WHERE product_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		r.logger.Error().Err(err).Int("product_id", productID).Msg("failed to query prices")
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	prices := []model.Price{}
	for rows.Next() {
		var p model.Price
		if err := rows.Scan(&p.ID, &p.Value, &p.CurrencyCode, &p.ProductID); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan price row")
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		prices = append(prices, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating price rows")
		return nil, fmt.Errorf("error iterating prices: %w", err)
	}

	return prices, nil
}

// SaveAll upserts the given prices in a single transaction.
func (r *priceRepository) SaveAll(ctx context.Context, prices []model.Price) ([]model.Price, error) {
	if len(prices) == 0 {
		return []model.Price{}, nil
	}

	query := `
		INSERT INTO prices (id, value, currency_code, product_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET value = EXCLUDED.value,
			currency_code = EXCLUDED.currency_code,
			product_id = EXCLUDED.product_id
	`

	saved := make([]model.Price, len(prices))
	batch := &pgx.Batch{}
	for i, p := range prices {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		saved[i] = p
		batch.Queue(query, p.ID, p.Value, p.CurrencyCode, p.ProductID)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	results := tx.SendBatch(ctx, batch)
	for _, p := range saved {
		if _, err := results.Exec(); err != nil {
			results.Close()
			r.logger.Error().
				Err(err).
				Str("price_id", p.ID.String()).
				Int("product_id", p.ProductID).
				Msg("failed to save price")
			return nil, fmt.Errorf("failed to save price %s: %w", p.ID, err)
		}
	}
	if err := results.Close(); err != nil {
		r.logger.Error().Err(err).Msg("failed to close batch results")
		return nil, fmt.Errorf("failed to close batch results: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Int("count", len(saved)).Msg("failed to commit prices")
		return nil, fmt.Errorf("failed to commit prices: %w", err)
	}

	r.logger.Debug().Int("count", len(saved)).Msg("prices saved successfully")

	return saved, nil
}
