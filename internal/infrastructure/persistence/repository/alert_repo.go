package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/cierres-audit/internal/application/port"
	"github.com/garyjia/cierres-audit/internal/domain/entity"
)

const selectAlert = `
	SELECT id, closing_id, date, business, operator, severity, type, amount,
		action, message, explanation, status, created_at, updated_at
	FROM alerts
`

// AlertRepository implements port.AlertRepository
type AlertRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *sql.DB, logger *zap.Logger) port.AlertRepository {
	return &AlertRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new alert record
func (r *AlertRepository) Create(ctx context.Context, alert *entity.Alert) error {
	query := `
		INSERT INTO alerts (
			closing_id, date, business, operator, severity, type, amount,
			action, message, explanation, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if alert.Status == "" {
		alert.Status = entity.AlertStatusPending
	}
	now := time.Now()
	alert.CreatedAt = now
	alert.UpdatedAt = now

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		alert.ClosingID,
		alert.Date,
		alert.Business,
		alert.Operator,
		string(alert.Severity),
		alert.Type,
		alert.Amount,
		alert.Action,
		alert.Message,
		alert.Explanation,
		alert.Status,
		alert.CreatedAt,
		alert.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create alert", zap.String("closing_id", alert.ClosingID), zap.Error(err))
		return fmt.Errorf("failed to create alert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	alert.ID = id
	return nil
}

// ListByClosing retrieves the alerts of a closing, oldest first
func (r *AlertRepository) ListByClosing(ctx context.Context, closingID string) ([]*entity.Alert, error) {
	return r.query(ctx, selectAlert+" WHERE closing_id = ? ORDER BY id", closingID)
}

// ListPending retrieves pending alerts, optionally for one date
func (r *AlertRepository) ListPending(ctx context.Context, date string) ([]*entity.Alert, error) {
	if date == "" {
		return r.query(ctx, selectAlert+" WHERE status = ? ORDER BY date, id", entity.AlertStatusPending)
	}
	return r.query(ctx, selectAlert+" WHERE status = ? AND date = ? ORDER BY id", entity.AlertStatusPending, date)
}

// UpdateForClosing attaches the review outcome to every alert of a closing
func (r *AlertRepository) UpdateForClosing(ctx context.Context, closingID, explanation, message string) error {
	query := `
		UPDATE alerts
		SET explanation = ?, message = ?, updated_at = ?
		WHERE closing_id = ?
	`
	_, err := r.getExecutor(ctx).ExecContext(ctx, query, explanation, message, time.Now(), closingID)
	if err != nil {
		r.logger.Error("Failed to update alerts", zap.String("closing_id", closingID), zap.Error(err))
		return fmt.Errorf("failed to update alerts: %w", err)
	}
	return nil
}

// Resolve marks an alert resolved
func (r *AlertRepository) Resolve(ctx context.Context, id int64) error {
	_, err := r.getExecutor(ctx).ExecContext(ctx,
		"UPDATE alerts SET status = ?, updated_at = ? WHERE id = ?",
		entity.AlertStatusResolved, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to resolve alert", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to resolve alert: %w", err)
	}
	return nil
}

func (r *AlertRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.Alert, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query alerts", zap.Error(err))
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*entity.Alert
	for rows.Next() {
		var alert entity.Alert
		var severity string
		if err := rows.Scan(
			&alert.ID,
			&alert.ClosingID,
			&alert.Date,
			&alert.Business,
			&alert.Operator,
			&severity,
			&alert.Type,
			&alert.Amount,
			&alert.Action,
			&alert.Message,
			&alert.Explanation,
			&alert.Status,
			&alert.CreatedAt,
			&alert.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alert.Severity = entity.RiskLevel(severity)
		alerts = append(alerts, &alert)
	}
	return alerts, rows.Err()
}

// getExecutor returns appropriate executor based on context
func (r *AlertRepository) getExecutor(ctx context.Context) executor {
	return getExecutor(ctx, r.db)
}

// Verify interface compliance
var _ port.AlertRepository = (*AlertRepository)(nil)
