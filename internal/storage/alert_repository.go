package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	apperrors "github.com/price-tracker/internal/errors"
	"github.com/price-tracker/internal/models"
	"github.com/price-tracker/internal/types"
	"github.com/shopspring/decimal"
)

// AlertRepository handles price alert persistence. The invariant of at most
// one active alert per (user, product) is enforced by a partial unique index
// and a single conditional insert, so concurrent track requests cannot
// create duplicates.
type AlertRepository struct {
	db *PostgresDB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *PostgresDB) *AlertRepository {
	return &AlertRepository{db: db}
}

const alertColumns = `id, user_id, product_id, target_price, alert_type, is_active, email_sent, last_alert_sent, created_at, updated_at`

// Upsert creates an active alert for (user, product), or updates the target
// price and alert type of the existing active one in place. The returned
// flag reports whether a new row was inserted.
func (r *AlertRepository) Upsert(ctx context.Context, alert *models.PriceAlert) (bool, error) {
	if !types.ValidAlertType(alert.AlertType) {
		return false, apperrors.NewValidationError("alert_type",
			"must be one of price_drop, back_in_stock, any_change")
	}

	var targetPrice decimal.NullDecimal
	if alert.TargetPrice != nil {
		targetPrice = decimal.NullDecimal{Decimal: *alert.TargetPrice, Valid: true}
	}

	// xmax = 0 distinguishes a fresh insert from a conflict update.
	query := `
		INSERT INTO price_alerts (user_id, product_id, target_price, alert_type, is_active)
		VALUES ($1, $2, $3, $4, true)
		ON CONFLICT (user_id, product_id) WHERE is_active
		DO UPDATE SET
			target_price = EXCLUDED.target_price,
			alert_type = EXCLUDED.alert_type,
			updated_at = NOW()
		RETURNING ` + alertColumns + `, (xmax = 0) AS inserted
	`

	var inserted bool
	err := r.db.Pool().QueryRow(ctx, query,
		alert.UserID, alert.ProductID, targetPrice, alert.AlertType,
	).Scan(
		&alert.ID, &alert.UserID, &alert.ProductID, &targetPrice, &alert.AlertType,
		&alert.IsActive, &alert.EmailSent, &alert.LastAlertSent,
		&alert.CreatedAt, &alert.UpdatedAt, &inserted,
	)
	if err != nil {
		return false, apperrors.FromDatabase(err, "product")
	}

	if targetPrice.Valid {
		alert.TargetPrice = &targetPrice.Decimal
	} else {
		alert.TargetPrice = nil
	}

	return inserted, nil
}

// ListByUser returns a user's active alerts, newest first.
func (r *AlertRepository) ListByUser(ctx context.Context, userID int64) ([]*models.PriceAlert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM price_alerts
		WHERE user_id = $1 AND is_active = true
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*models.PriceAlert{}
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}

	return alerts, nil
}

// GetByID returns an alert owned by the given user.
func (r *AlertRepository) GetByID(ctx context.Context, alertID, userID int64) (*models.PriceAlert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM price_alerts
		WHERE id = $1 AND user_id = $2
	`

	rows, err := r.db.Pool().Query(ctx, query, alertID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to get alert: %w", err)
		}
		return nil, apperrors.NewNotFoundError("alert")
	}

	return scanAlert(rows)
}

// Update changes the target price and alert type of an alert owned by the
// given user.
func (r *AlertRepository) Update(ctx context.Context, alertID, userID int64, targetPrice *decimal.Decimal, alertType types.AlertType) (*models.PriceAlert, error) {
	if !types.ValidAlertType(alertType) {
		return nil, apperrors.NewValidationError("alert_type",
			"must be one of price_drop, back_in_stock, any_change")
	}

	var target decimal.NullDecimal
	if targetPrice != nil {
		target = decimal.NullDecimal{Decimal: *targetPrice, Valid: true}
	}

	query := `
		UPDATE price_alerts
		SET target_price = $3, alert_type = $4, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND is_active = true
		RETURNING ` + alertColumns

	rows, err := r.db.Pool().Query(ctx, query, alertID, userID, target, alertType)
	if err != nil {
		return nil, fmt.Errorf("failed to update alert: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to update alert: %w", err)
		}
		return nil, apperrors.NewNotFoundError("alert")
	}

	return scanAlert(rows)
}

// Deactivate soft-deletes an alert owned by the given user. The row stays
// for history; only active alerts block new upserts.
func (r *AlertRepository) Deactivate(ctx context.Context, alertID, userID int64) error {
	query := `
		UPDATE price_alerts
		SET is_active = false, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND is_active = true
	`

	result, err := r.db.Pool().Exec(ctx, query, alertID, userID)
	if err != nil {
		return fmt.Errorf("failed to deactivate alert: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("alert")
	}

	return nil
}

// CountByUser returns the total and active alert counts for a user's
// dashboard.
func (r *AlertRepository) CountByUser(ctx context.Context, userID int64) (total, active int64, err error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active)
		FROM price_alerts
		WHERE user_id = $1
	`

	err = r.db.Pool().QueryRow(ctx, query, userID).Scan(&total, &active)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	return total, active, nil
}

// MarkNotified records that an alert email went out.
func (r *AlertRepository) MarkNotified(ctx context.Context, alertID int64, at time.Time) error {
	query := `
		UPDATE price_alerts
		SET email_sent = true, last_alert_sent = $2, updated_at = NOW()
		WHERE id = $1
	`

	if _, err := r.db.Pool().Exec(ctx, query, alertID, at); err != nil {
		return fmt.Errorf("failed to mark alert notified: %w", err)
	}

	return nil
}

func scanAlert(rows pgx.Rows) (*models.PriceAlert, error) {
	var (
		alert       models.PriceAlert
		targetPrice decimal.NullDecimal
	)

	err := rows.Scan(
		&alert.ID, &alert.UserID, &alert.ProductID, &targetPrice, &alert.AlertType,
		&alert.IsActive, &alert.EmailSent, &alert.LastAlertSent,
		&alert.CreatedAt, &alert.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan alert: %w", err)
	}

	if targetPrice.Valid {
		alert.TargetPrice = &targetPrice.Decimal
	}

	return &alert, nil
}
