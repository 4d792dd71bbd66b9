package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/price-tracker/internal/models"
	"github.com/price-tracker/internal/types"
	"github.com/shopspring/decimal"
)

// RecommendationRepository stores and derives buy-timing recommendations.
type RecommendationRepository struct {
	db *PostgresDB
}

// NewRecommendationRepository creates a new recommendation repository
func NewRecommendationRepository(db *PostgresDB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

// Latest returns the most recent recommendation for a product, or nil when
// none has been computed yet.
func (r *RecommendationRepository) Latest(ctx context.Context, productID int64) (*models.PriceRecommendation, error) {
	query := `
		SELECT id, product_id, current_price, average_price_30d, average_price_90d,
		       lowest_price_ever, recommendation, confidence_score, reasoning, created_at
		FROM price_recommendations
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var (
		rec    models.PriceRecommendation
		avg30  decimal.NullDecimal
		avg90  decimal.NullDecimal
		lowest decimal.NullDecimal
	)

	err := r.db.Pool().QueryRow(ctx, query, productID).Scan(
		&rec.ID, &rec.ProductID, &rec.CurrentPrice, &avg30, &avg90,
		&lowest, &rec.Recommendation, &rec.ConfidenceScore, &rec.Reasoning, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recommendation: %w", err)
	}

	if avg30.Valid {
		rec.AveragePrice30d = &avg30.Decimal
	}
	if avg90.Valid {
		rec.AveragePrice90d = &avg90.Decimal
	}
	if lowest.Valid {
		rec.LowestPriceEver = &lowest.Decimal
	}

	return &rec, nil
}

// priceStats aggregates a product's observation history.
type priceStats struct {
	Current decimal.NullDecimal
	Avg30   decimal.NullDecimal
	Avg90   decimal.NullDecimal
	Lowest  decimal.NullDecimal
	Count   int64
}

// Recompute derives and stores a fresh recommendation from a product's
// observation history. It is a no-op when the product has no available
// observations yet.
func (r *RecommendationRepository) Recompute(ctx context.Context, productID int64) (*models.PriceRecommendation, error) {
	statsQuery := `
		WITH obs AS (
			SELECT ph.price, ph.scraped_at
			FROM price_history ph
			JOIN product_listings pl ON pl.id = ph.product_listing_id
			WHERE pl.product_id = $1 AND ph.is_available = true
		)
		SELECT
			(SELECT price FROM obs ORDER BY scraped_at DESC LIMIT 1),
			(SELECT AVG(price) FROM obs WHERE scraped_at >= NOW() - INTERVAL '30 days'),
			(SELECT AVG(price) FROM obs WHERE scraped_at >= NOW() - INTERVAL '90 days'),
			(SELECT MIN(price) FROM obs),
			(SELECT COUNT(*) FROM obs)
	`

	var stats priceStats
	err := r.db.Pool().QueryRow(ctx, statsQuery, productID).Scan(
		&stats.Current, &stats.Avg30, &stats.Avg90, &stats.Lowest, &stats.Count,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate price history: %w", err)
	}

	if !stats.Current.Valid {
		return nil, nil
	}

	rec := deriveRecommendation(productID, &stats)

	insertQuery := `
		INSERT INTO price_recommendations
			(product_id, current_price, average_price_30d, average_price_90d,
			 lowest_price_ever, recommendation, confidence_score, reasoning)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err = r.db.Pool().QueryRow(ctx, insertQuery,
		rec.ProductID, rec.CurrentPrice, stats.Avg30, stats.Avg90, stats.Lowest,
		rec.Recommendation, rec.ConfidenceScore, rec.Reasoning,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to store recommendation: %w", err)
	}

	return rec, nil
}

// nearFloorFactor marks prices within 2% of the historical low as "at the
// floor".
var nearFloorFactor = decimal.NewFromFloat(1.02)

// deriveRecommendation applies the buy-timing rules: at or near the
// historical low means buy now, below the 30-day average is a good deal,
// anything else means wait.
func deriveRecommendation(productID int64, stats *priceStats) *models.PriceRecommendation {
	current := stats.Current.Decimal

	rec := &models.PriceRecommendation{
		ProductID:    productID,
		CurrentPrice: current,
	}
	if stats.Avg30.Valid {
		rec.AveragePrice30d = &stats.Avg30.Decimal
	}
	if stats.Avg90.Valid {
		rec.AveragePrice90d = &stats.Avg90.Decimal
	}
	if stats.Lowest.Valid {
		rec.LowestPriceEver = &stats.Lowest.Decimal
	}

	switch {
	case stats.Lowest.Valid && current.LessThanOrEqual(stats.Lowest.Decimal.Mul(nearFloorFactor)):
		rec.Recommendation = types.RecommendBuyNow
		rec.Reasoning = "current price is at or near the lowest ever observed"
	case stats.Avg30.Valid && current.LessThan(stats.Avg30.Decimal):
		rec.Recommendation = types.RecommendGoodDeal
		rec.Reasoning = "current price is below the 30-day average"
	default:
		rec.Recommendation = types.RecommendWait
		rec.Reasoning = "current price is above recent averages"
	}

	// Confidence grows with history depth, capped at 0.95.
	confidence := float64(stats.Count) / 100
	if confidence > 0.95 {
		confidence = 0.95
	}
	rec.ConfidenceScore = &confidence

	return rec
}
