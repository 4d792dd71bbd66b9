package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	apperrors "github.com/price-tracker/internal/errors"
	"github.com/price-tracker/internal/models"
	"github.com/shopspring/decimal"
)

// ProductRepository handles product search and detail assembly
type ProductRepository struct {
	db              *PostgresDB
	listings        *ListingRepository
	recommendations *RecommendationRepository
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *PostgresDB, listings *ListingRepository, recommendations *RecommendationRepository) *ProductRepository {
	return &ProductRepository{
		db:              db,
		listings:        listings,
		recommendations: recommendations,
	}
}

// SearchResult is one page of annotated products plus the total size of the
// filtered set.
type SearchResult struct {
	Products []*models.ProductSummary `json:"products"`
	Total    int64                    `json:"total"`
	Page     int                      `json:"page"`
	Limit    int                      `json:"limit"`
}

// searchBaseSQL computes, per product, the latest available observation of
// each active listing and keeps the cheapest one. Products without any
// available observation still join (LEFT) with a NULL price.
const searchBaseSQL = `
	WITH listing_prices AS (
		SELECT DISTINCT ON (pl.id)
			pl.product_id,
			ph.price,
			ph.original_price,
			ph.is_available,
			r.name AS retailer_name,
			r.logo_url AS retailer_logo
		FROM product_listings pl
		JOIN price_history ph ON ph.product_listing_id = pl.id
		JOIN retailers r ON r.id = pl.retailer_id
		WHERE pl.is_active = true AND ph.is_available = true
		ORDER BY pl.id, ph.scraped_at DESC
	),
	latest_prices AS (
		SELECT DISTINCT ON (product_id)
			product_id, price, original_price, is_available, retailer_name, retailer_logo
		FROM listing_prices
		ORDER BY product_id, price ASC
	)
	SELECT
		p.id, p.name, p.brand, p.model_number, p.category_id, p.image_url,
		p.description, p.specifications, p.created_at, p.updated_at,
		c.id, c.name, c.slug,
		lp.price, lp.original_price, lp.is_available, lp.retailer_name, lp.retailer_logo,
		COUNT(*) OVER() AS total_count
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id
	LEFT JOIN latest_prices lp ON lp.product_id = p.id
`

// Search returns a page of products matching the filters, each annotated
// with its current cheapest available retailer price.
func (r *ProductRepository) Search(ctx context.Context, params *SearchParams) (*SearchResult, error) {
	filters := params.Filters()
	where, args := filters.Compile(1)

	sql := searchBaseSQL
	if where != "" {
		sql += " WHERE " + where
	}
	sql += fmt.Sprintf(" ORDER BY %s LIMIT $%d OFFSET $%d", params.OrderBy(), len(args)+1, len(args)+2)
	args = append(args, params.Limit, params.Offset())

	rows, err := r.db.Pool().Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	result := &SearchResult{
		Products: []*models.ProductSummary{},
		Page:     params.Page,
		Limit:    params.Limit,
	}

	for rows.Next() {
		var (
			summary       models.ProductSummary
			specsJSON     []byte
			catID         *int64
			catName       *string
			catSlug       *string
			price         decimal.NullDecimal
			originalPrice decimal.NullDecimal
			isAvailable   *bool
			retailerName  *string
			retailerLogo  *string
		)

		err := rows.Scan(
			&summary.ID, &summary.Name, &summary.Brand, &summary.ModelNumber,
			&summary.CategoryID, &summary.ImageURL, &summary.Description,
			&specsJSON, &summary.CreatedAt, &summary.UpdatedAt,
			&catID, &catName, &catSlug,
			&price, &originalPrice, &isAvailable, &retailerName, &retailerLogo,
			&result.Total,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}

		if len(specsJSON) > 0 {
			if err := json.Unmarshal(specsJSON, &summary.Specifications); err != nil {
				return nil, fmt.Errorf("failed to unmarshal specifications: %w", err)
			}
		}
		if catID != nil {
			summary.Category = &models.Category{ID: *catID, Name: *catName, Slug: *catSlug}
		}
		if price.Valid {
			summary.CurrentPrice = &price.Decimal
		}
		if originalPrice.Valid {
			summary.OriginalPrice = &originalPrice.Decimal
		}
		summary.IsAvailable = isAvailable
		if retailerName != nil {
			summary.RetailerName = *retailerName
		}
		if retailerLogo != nil {
			summary.RetailerLogo = *retailerLogo
		}

		result.Products = append(result.Products, &summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return result, nil
}

// GetByID retrieves a single product with its category
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, *models.Category, error) {
	query := `
		SELECT p.id, p.name, p.brand, p.model_number, p.category_id, p.image_url,
		       p.description, p.specifications, p.created_at, p.updated_at,
		       c.id, c.name, c.slug
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1
	`

	var (
		product   models.Product
		specsJSON []byte
		catID     *int64
		catName   *string
		catSlug   *string
	)

	err := r.db.Pool().QueryRow(ctx, query, id).Scan(
		&product.ID, &product.Name, &product.Brand, &product.ModelNumber,
		&product.CategoryID, &product.ImageURL, &product.Description,
		&specsJSON, &product.CreatedAt, &product.UpdatedAt,
		&catID, &catName, &catSlug,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, apperrors.NewNotFoundError("product")
		}
		return nil, nil, fmt.Errorf("failed to get product: %w", err)
	}

	if len(specsJSON) > 0 {
		if err := json.Unmarshal(specsJSON, &product.Specifications); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal specifications: %w", err)
		}
	}

	var category *models.Category
	if catID != nil {
		category = &models.Category{ID: *catID, Name: *catName, Slug: *catSlug}
	}

	return &product, category, nil
}

// Exists checks if a product exists by ID
func (r *ProductRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`

	err := r.db.Pool().QueryRow(ctx, query, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check product existence: %w", err)
	}

	return exists, nil
}

// detailHistoryWindow is how far back the detail endpoint's embedded price
// history reaches.
const detailHistoryWindow = 90 * 24 * time.Hour

// GetDetail assembles the full product view: active listings with their most
// recent observation (cheapest first), 90 days of observation history across
// all listings, and the latest recommendation if present.
func (r *ProductRepository) GetDetail(ctx context.Context, id int64) (*models.ProductDetail, error) {
	product, category, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &models.ProductDetail{
		Product:  *product,
		Category: category,
	}

	detail.Listings, err = r.listings.ListForProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	since := time.Now().Add(-detailHistoryWindow)
	detail.PriceHistory, err = r.listings.PriceHistory(ctx, id, since, "")
	if err != nil {
		return nil, err
	}

	detail.Recommendation, err = r.recommendations.Latest(ctx, id)
	if err != nil {
		return nil, err
	}

	return detail, nil
}
