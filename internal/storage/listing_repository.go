package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/price-tracker/internal/models"
	"github.com/shopspring/decimal"
)

// ListingRepository handles product listings and their price observations.
// Observations are append-only: there is no update or delete path.
type ListingRepository struct {
	db *PostgresDB
}

// NewListingRepository creates a new listing repository
func NewListingRepository(db *PostgresDB) *ListingRepository {
	return &ListingRepository{db: db}
}

// ListForProduct returns the active listings of a product, each with its
// retailer and most recent observation, cheapest first with unpriced
// listings last.
func (r *ListingRepository) ListForProduct(ctx context.Context, productID int64) ([]*models.ListingWithPrice, error) {
	query := `
		SELECT
			pl.id, pl.product_id, pl.retailer_id, pl.retailer_product_id,
			pl.retailer_url, pl.is_active, pl.last_scraped, pl.created_at,
			r.id, r.name, r.domain, r.logo_url, r.affiliate_base_url, r.scraping_enabled, r.created_at,
			ph.price, ph.original_price, ph.is_available, ph.scraped_at
		FROM product_listings pl
		JOIN retailers r ON r.id = pl.retailer_id
		LEFT JOIN LATERAL (
			SELECT price, original_price, is_available, scraped_at
			FROM price_history
			WHERE product_listing_id = pl.id
			ORDER BY scraped_at DESC
			LIMIT 1
		) ph ON true
		WHERE pl.product_id = $1 AND pl.is_active = true
		ORDER BY ph.price ASC NULLS LAST
	`

	rows, err := r.db.Pool().Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list product listings: %w", err)
	}
	defer rows.Close()

	var listings []*models.ListingWithPrice
	for rows.Next() {
		var (
			listing       models.ListingWithPrice
			retailer      models.Retailer
			price         decimal.NullDecimal
			originalPrice decimal.NullDecimal
			isAvailable   *bool
			lastUpdated   *time.Time
		)

		err := rows.Scan(
			&listing.ID, &listing.ProductID, &listing.RetailerID, &listing.RetailerProductID,
			&listing.RetailerURL, &listing.IsActive, &listing.LastScraped, &listing.CreatedAt,
			&retailer.ID, &retailer.Name, &retailer.Domain, &retailer.LogoURL,
			&retailer.AffiliateBaseURL, &retailer.ScrapingEnabled, &retailer.CreatedAt,
			&price, &originalPrice, &isAvailable, &lastUpdated,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}

		listing.Retailer = &retailer
		listing.AffiliateURL = retailer.AffiliateURL(listing.RetailerProductID)
		if price.Valid {
			listing.CurrentPrice = &price.Decimal
		}
		if originalPrice.Valid {
			listing.OriginalPrice = &originalPrice.Decimal
		}
		listing.IsAvailable = isAvailable
		listing.LastUpdated = lastUpdated

		listings = append(listings, &listing)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listings: %w", err)
	}

	return listings, nil
}

// PriceHistory returns the observations of all listings of a product since
// the given time, oldest first. An optional retailer domain narrows the set.
func (r *ListingRepository) PriceHistory(ctx context.Context, productID int64, since time.Time, retailerDomain string) ([]*models.PricePoint, error) {
	query := `
		SELECT ph.price, ph.original_price, ph.scraped_at, r.name, r.logo_url
		FROM price_history ph
		JOIN product_listings pl ON pl.id = ph.product_listing_id
		JOIN retailers r ON r.id = pl.retailer_id
		WHERE pl.product_id = $1 AND ph.scraped_at >= $2
	`
	args := []interface{}{productID, since}

	if retailerDomain != "" {
		query += " AND r.domain = $3"
		args = append(args, retailerDomain)
	}
	query += " ORDER BY ph.scraped_at ASC"

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get price history: %w", err)
	}
	defer rows.Close()

	points := []*models.PricePoint{}
	for rows.Next() {
		var (
			point         models.PricePoint
			originalPrice decimal.NullDecimal
		)

		err := rows.Scan(&point.Price, &originalPrice, &point.ScrapedAt, &point.RetailerName, &point.RetailerLogo)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}
		if originalPrice.Valid {
			point.OriginalPrice = &originalPrice.Decimal
		}

		points = append(points, &point)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price history: %w", err)
	}

	return points, nil
}

// InsertObservation appends a price observation for a listing.
func (r *ListingRepository) InsertObservation(ctx context.Context, obs *models.PriceObservation) error {
	if obs.Currency == "" {
		obs.Currency = "USD"
	}
	if obs.ScrapedAt.IsZero() {
		obs.ScrapedAt = time.Now()
	}

	query := `
		INSERT INTO price_history (product_listing_id, price, original_price, currency, is_available, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var originalPrice decimal.NullDecimal
	if obs.OriginalPrice != nil {
		originalPrice = decimal.NullDecimal{Decimal: *obs.OriginalPrice, Valid: true}
	}

	err := r.db.Pool().QueryRow(ctx, query,
		obs.ProductListingID,
		obs.Price,
		originalPrice,
		obs.Currency,
		obs.IsAvailable,
		obs.ScrapedAt,
	).Scan(&obs.ID)
	if err != nil {
		return fmt.Errorf("failed to insert price observation: %w", err)
	}

	return nil
}

// LatestPrice returns the price of a listing's most recent observation, or
// nil when the listing has never been observed.
func (r *ListingRepository) LatestPrice(ctx context.Context, listingID int64) (*decimal.Decimal, error) {
	query := `
		SELECT price FROM price_history
		WHERE product_listing_id = $1
		ORDER BY scraped_at DESC
		LIMIT 1
	`

	var price decimal.Decimal
	err := r.db.Pool().QueryRow(ctx, query, listingID).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest price: %w", err)
	}

	return &price, nil
}

// ScrapeTarget is a listing due for scraping, joined with its retailer
// domain for scraper dispatch.
type ScrapeTarget struct {
	ListingID      int64
	ProductID      int64
	RetailerID     int64
	RetailerDomain string
	URL            string
}

// ScrapeTargets returns the active listings of scraping-enabled retailers.
func (r *ListingRepository) ScrapeTargets(ctx context.Context) ([]*ScrapeTarget, error) {
	query := `
		SELECT pl.id, pl.product_id, pl.retailer_id, r.domain, pl.retailer_url
		FROM product_listings pl
		JOIN retailers r ON r.id = pl.retailer_id
		WHERE pl.is_active = true AND r.scraping_enabled = true
		ORDER BY pl.last_scraped ASC NULLS FIRST
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list scrape targets: %w", err)
	}
	defer rows.Close()

	var targets []*ScrapeTarget
	for rows.Next() {
		var t ScrapeTarget
		if err := rows.Scan(&t.ListingID, &t.ProductID, &t.RetailerID, &t.RetailerDomain, &t.URL); err != nil {
			return nil, fmt.Errorf("failed to scan scrape target: %w", err)
		}
		targets = append(targets, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scrape targets: %w", err)
	}

	return targets, nil
}

// TouchScraped records a scrape attempt time on the listing and its retailer.
func (r *ListingRepository) TouchScraped(ctx context.Context, listingID int64, at time.Time) error {
	query := `
		WITH touched AS (
			UPDATE product_listings SET last_scraped = $2 WHERE id = $1
			RETURNING retailer_id
		)
		UPDATE retailers SET last_scraped = $2
		WHERE id IN (SELECT retailer_id FROM touched)
	`

	if _, err := r.db.Pool().Exec(ctx, query, listingID, at); err != nil {
		return fmt.Errorf("failed to record scrape time: %w", err)
	}

	return nil
}
