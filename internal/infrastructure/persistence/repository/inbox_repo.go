package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/cierres-audit/internal/application/port"
	"github.com/garyjia/cierres-audit/internal/domain/entity"
)

// InboxRepository implements port.InboxRepository
type InboxRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInboxRepository creates a new inbox repository
func NewInboxRepository(db *sql.DB, logger *zap.Logger) port.InboxRepository {
	return &InboxRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a received text and assigns its ID
func (r *InboxRepository) Create(ctx context.Context, entry *entity.InboxEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Status == "" {
		entry.Status = entity.InboxStatusReceived
	}
	entry.CreatedAt = time.Now()

	errs, err := toJSON(entry.Errors, "[]")
	if err != nil {
		return fmt.Errorf("failed to encode errors: %w", err)
	}
	warnings, err := toJSON(entry.Warnings, "[]")
	if err != nil {
		return fmt.Errorf("failed to encode warnings: %w", err)
	}

	query := `
		INSERT INTO inbox (id, raw_text, status, record_count, errors, warnings, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.getExecutor(ctx).ExecContext(ctx, query,
		entry.ID,
		entry.RawText,
		entry.Status,
		entry.RecordCount,
		errs,
		warnings,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create inbox entry", zap.Error(err))
		return fmt.Errorf("failed to create inbox entry: %w", err)
	}
	return nil
}

// MarkProcessed records a successful parse
func (r *InboxRepository) MarkProcessed(ctx context.Context, id string, recordCount int, warnings []string) error {
	return r.finish(ctx, id, entity.InboxStatusProcessed, recordCount, nil, warnings)
}

// MarkFailed records a failed parse
func (r *InboxRepository) MarkFailed(ctx context.Context, id string, errs []string, warnings []string) error {
	return r.finish(ctx, id, entity.InboxStatusFailed, 0, errs, warnings)
}

func (r *InboxRepository) finish(ctx context.Context, id, status string, recordCount int, errs, warnings []string) error {
	errsJSON, err := toJSON(errs, "[]")
	if err != nil {
		return fmt.Errorf("failed to encode errors: %w", err)
	}
	warningsJSON, err := toJSON(warnings, "[]")
	if err != nil {
		return fmt.Errorf("failed to encode warnings: %w", err)
	}

	query := `
		UPDATE inbox
		SET status = ?, record_count = ?, errors = ?, warnings = ?, processed_at = ?
		WHERE id = ?
	`
	_, err = r.getExecutor(ctx).ExecContext(ctx, query, status, recordCount, errsJSON, warningsJSON, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to update inbox entry",
			zap.String("id", id),
			zap.String("status", status),
			zap.Error(err))
		return fmt.Errorf("failed to update inbox entry: %w", err)
	}
	return nil
}

// GetByID retrieves an inbox entry by ID
func (r *InboxRepository) GetByID(ctx context.Context, id string) (*entity.InboxEntry, error) {
	query := `
		SELECT id, raw_text, status, record_count, errors, warnings, created_at, processed_at
		FROM inbox
		WHERE id = ?
	`

	var entry entity.InboxEntry
	var errs, warnings string
	var processedAt sql.NullTime

	err := r.getExecutor(ctx).QueryRowContext(ctx, query, id).Scan(
		&entry.ID,
		&entry.RawText,
		&entry.Status,
		&entry.RecordCount,
		&errs,
		&warnings,
		&entry.CreatedAt,
		&processedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get inbox entry", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get inbox entry: %w", err)
	}

	if err := json.Unmarshal([]byte(errs), &entry.Errors); err != nil {
		return nil, fmt.Errorf("failed to decode errors: %w", err)
	}
	if err := json.Unmarshal([]byte(warnings), &entry.Warnings); err != nil {
		return nil, fmt.Errorf("failed to decode warnings: %w", err)
	}
	if processedAt.Valid {
		entry.ProcessedAt = &processedAt.Time
	}

	return &entry, nil
}

// getExecutor returns appropriate executor based on context
func (r *InboxRepository) getExecutor(ctx context.Context) executor {
	return getExecutor(ctx, r.db)
}

// Verify interface compliance
var _ port.InboxRepository = (*InboxRepository)(nil)
