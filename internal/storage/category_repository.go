package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/price-tracker/internal/models"
	"github.com/redis/go-redis/v9"
)

// CategoryRepository handles category reads. The full list changes rarely, so
// it is served through a short-lived Redis cache when one is configured.
type CategoryRepository struct {
	db       *PostgresDB
	cache    *RedisCache
	cacheTTL time.Duration
}

const categoryCacheKey = "categories:all"

// NewCategoryRepository creates a new category repository. cache may be nil.
func NewCategoryRepository(db *PostgresDB, cache *RedisCache) *CategoryRepository {
	return &CategoryRepository{
		db:       db,
		cache:    cache,
		cacheTTL: 5 * time.Minute,
	}
}

// List returns all categories with their parent names, parents first.
func (r *CategoryRepository) List(ctx context.Context) ([]*models.Category, error) {
	if r.cache != nil {
		cached, err := r.cache.Get(ctx, categoryCacheKey)
		if err == nil {
			var categories []*models.Category
			if err := json.Unmarshal([]byte(cached), &categories); err == nil {
				return categories, nil
			}
		} else if err != redis.Nil {
			// Cache unavailable; fall through to the database.
		}
	}

	query := `
		SELECT c.id, c.name, c.slug, c.parent_id, COALESCE(parent.name, ''), c.created_at
		FROM categories c
		LEFT JOIN categories parent ON parent.id = c.parent_id
		ORDER BY c.parent_id NULLS FIRST, c.name ASC
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.ParentID, &c.ParentName, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	if r.cache != nil {
		if data, err := json.Marshal(categories); err == nil {
			_ = r.cache.Set(ctx, categoryCacheKey, data, r.cacheTTL)
		}
	}

	return categories, nil
}
