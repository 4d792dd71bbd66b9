package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/price-tracker/internal/models"
)

// ObservationArchive mirrors price observations into ClickHouse for cheap
// long-range trend analytics. Postgres remains the source of truth; archive
// writes are best-effort and a failure never fails a scrape.
type ObservationArchive struct {
	db *ClickHouseDB
}

// NewObservationArchive creates a new observation archive
func NewObservationArchive(db *ClickHouseDB) *ObservationArchive {
	return &ObservationArchive{db: db}
}

// EnsureSchema creates the archive table when missing.
func (a *ObservationArchive) EnsureSchema(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS price_observations (
			product_id         Int64,
			product_listing_id Int64,
			retailer_id        Int64,
			price              Decimal(12, 2),
			original_price     Nullable(Decimal(12, 2)),
			currency           LowCardinality(String),
			is_available       UInt8,
			scraped_at         DateTime
		) ENGINE = MergeTree()
		ORDER BY (product_id, scraped_at)
	`

	if err := a.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create archive schema: %w", err)
	}

	return nil
}

// Append writes one observation to the archive.
func (a *ObservationArchive) Append(ctx context.Context, productID, retailerID int64, obs *models.PriceObservation) error {
	available := uint8(0)
	if obs.IsAvailable {
		available = 1
	}

	query := `
		INSERT INTO price_observations
			(product_id, product_listing_id, retailer_id, price, original_price, currency, is_available, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := a.db.Exec(ctx, query,
		productID, obs.ProductListingID, retailerID,
		obs.Price, obs.OriginalPrice, obs.Currency, available, obs.ScrapedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to archive observation: %w", err)
	}

	return nil
}

// TrendPoint is one bucket of a product's long-range price trend.
type TrendPoint struct {
	Day      time.Time `json:"day"`
	AvgPrice string    `json:"avg_price"`
	MinPrice string    `json:"min_price"`
	MaxPrice string    `json:"max_price"`
}

// DailyTrend returns the per-day price aggregates of a product over the
// given number of days, oldest first.
func (a *ObservationArchive) DailyTrend(ctx context.Context, productID int64, days int) ([]*TrendPoint, error) {
	query := `
		SELECT
			toStartOfDay(scraped_at) AS day,
			toString(round(avg(price), 2)) AS avg_price,
			toString(min(price)) AS min_price,
			toString(max(price)) AS max_price
		FROM price_observations
		WHERE product_id = ? AND is_available = 1
			AND scraped_at >= now() - INTERVAL ? DAY
		GROUP BY day
		ORDER BY day ASC
	`

	rows, err := a.db.Conn().Query(ctx, query, productID, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily trend: %w", err)
	}
	defer rows.Close()

	points := []*TrendPoint{}
	for rows.Next() {
		var p TrendPoint
		if err := rows.Scan(&p.Day, &p.AvgPrice, &p.MinPrice, &p.MaxPrice); err != nil {
			return nil, fmt.Errorf("failed to scan trend point: %w", err)
		}
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trend points: %w", err)
	}

	return points, nil
}
