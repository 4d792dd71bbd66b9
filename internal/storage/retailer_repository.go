package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	apperrors "github.com/price-tracker/internal/errors"
	"github.com/price-tracker/internal/models"
)

// RetailerRepository handles retailer persistence for the admin surface.
type RetailerRepository struct {
	db *PostgresDB
}

// NewRetailerRepository creates a new retailer repository
func NewRetailerRepository(db *PostgresDB) *RetailerRepository {
	return &RetailerRepository{db: db}
}

const retailerColumns = `id, name, domain, logo_url, affiliate_base_url, scraping_enabled, last_scraped, created_at`

// List returns all retailers ordered by name.
func (r *RetailerRepository) List(ctx context.Context) ([]*models.Retailer, error) {
	query := `SELECT ` + retailerColumns + ` FROM retailers ORDER BY name ASC`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list retailers: %w", err)
	}
	defer rows.Close()

	retailers := []*models.Retailer{}
	for rows.Next() {
		var ret models.Retailer
		err := rows.Scan(
			&ret.ID, &ret.Name, &ret.Domain, &ret.LogoURL,
			&ret.AffiliateBaseURL, &ret.ScrapingEnabled, &ret.LastScraped, &ret.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan retailer: %w", err)
		}
		retailers = append(retailers, &ret)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating retailers: %w", err)
	}

	return retailers, nil
}

// Create inserts a new retailer.
func (r *RetailerRepository) Create(ctx context.Context, retailer *models.Retailer) error {
	query := `
		INSERT INTO retailers (name, domain, logo_url, affiliate_base_url, scraping_enabled)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.Pool().QueryRow(ctx, query,
		retailer.Name, retailer.Domain, retailer.LogoURL,
		retailer.AffiliateBaseURL, retailer.ScrapingEnabled,
	).Scan(&retailer.ID, &retailer.CreatedAt)
	if err != nil {
		return apperrors.FromDatabase(err, "retailer")
	}

	return nil
}

// Update modifies an existing retailer.
func (r *RetailerRepository) Update(ctx context.Context, retailer *models.Retailer) error {
	query := `
		UPDATE retailers
		SET name = $2, domain = $3, logo_url = $4, affiliate_base_url = $5, scraping_enabled = $6
		WHERE id = $1
	`

	result, err := r.db.Pool().Exec(ctx, query,
		retailer.ID, retailer.Name, retailer.Domain, retailer.LogoURL,
		retailer.AffiliateBaseURL, retailer.ScrapingEnabled,
	)
	if err != nil {
		return apperrors.FromDatabase(err, "retailer")
	}
	if result.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("retailer")
	}

	return nil
}

// GetByID retrieves a retailer by ID.
func (r *RetailerRepository) GetByID(ctx context.Context, id int64) (*models.Retailer, error) {
	query := `SELECT ` + retailerColumns + ` FROM retailers WHERE id = $1`

	var ret models.Retailer
	err := r.db.Pool().QueryRow(ctx, query, id).Scan(
		&ret.ID, &ret.Name, &ret.Domain, &ret.LogoURL,
		&ret.AffiliateBaseURL, &ret.ScrapingEnabled, &ret.LastScraped, &ret.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("retailer")
		}
		return nil, fmt.Errorf("failed to get retailer: %w", err)
	}

	return &ret, nil
}

// ScrapingStatus summarizes scraping activity per retailer for the admin
// dashboard.
type ScrapingStatus struct {
	RetailerID      int64   `json:"retailer_id"`
	RetailerName    string  `json:"retailer_name"`
	ScrapingEnabled bool    `json:"scraping_enabled"`
	ActiveListings  int64   `json:"active_listings"`
	LastScrapedAt   *string `json:"last_scraped,omitempty"`
}

// Status returns per-retailer scraping activity.
func (r *RetailerRepository) Status(ctx context.Context) ([]*ScrapingStatus, error) {
	query := `
		SELECT r.id, r.name, r.scraping_enabled,
		       COUNT(pl.id) FILTER (WHERE pl.is_active),
		       to_char(r.last_scraped, 'YYYY-MM-DD"T"HH24:MI:SS"Z"')
		FROM retailers r
		LEFT JOIN product_listings pl ON pl.retailer_id = r.id
		GROUP BY r.id
		ORDER BY r.name ASC
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get scraping status: %w", err)
	}
	defer rows.Close()

	statuses := []*ScrapingStatus{}
	for rows.Next() {
		var s ScrapingStatus
		if err := rows.Scan(&s.RetailerID, &s.RetailerName, &s.ScrapingEnabled, &s.ActiveListings, &s.LastScrapedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scraping status: %w", err)
		}
		statuses = append(statuses, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scraping status: %w", err)
	}

	return statuses, nil
}
