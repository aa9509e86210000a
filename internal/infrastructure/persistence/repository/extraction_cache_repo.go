package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/cierres-audit/internal/application/port"
	"github.com/garyjia/cierres-audit/internal/domain/entity"
	"github.com/garyjia/cierres-audit/internal/domain/workflow"
)

// ExtractionCacheRepository implements port.ExtractionCacheRepository
type ExtractionCacheRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExtractionCacheRepository creates a new extraction cache repository
func NewExtractionCacheRepository(db *sql.DB, logger *zap.Logger) port.ExtractionCacheRepository {
	return &ExtractionCacheRepository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves the extraction progress of a closing
func (r *ExtractionCacheRepository) Get(ctx context.Context, closingID string) (*entity.ExtractionCache, error) {
	query := `
		SELECT closing_id, phase, processed_files, batch_outputs, batches_completed, updated_at
		FROM extraction_cache
		WHERE closing_id = ?
	`

	var cache entity.ExtractionCache
	var phase, processed, outputs string

	err := r.getExecutor(ctx).QueryRowContext(ctx, query, closingID).Scan(
		&cache.ClosingID,
		&phase,
		&processed,
		&outputs,
		&cache.BatchesCompleted,
		&cache.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get extraction cache", zap.String("closing_id", closingID), zap.Error(err))
		return nil, fmt.Errorf("failed to get extraction cache: %w", err)
	}

	cache.Phase = workflow.CachePhase(phase)
	if err := json.Unmarshal([]byte(processed), &cache.ProcessedFiles); err != nil {
		return nil, fmt.Errorf("failed to decode processed files: %w", err)
	}
	if err := json.Unmarshal([]byte(outputs), &cache.BatchOutputs); err != nil {
		return nil, fmt.Errorf("failed to decode batch outputs: %w", err)
	}

	return &cache, nil
}

// Upsert stores the extraction progress of a closing
func (r *ExtractionCacheRepository) Upsert(ctx context.Context, cache *entity.ExtractionCache) error {
	processed, err := toJSON(cache.ProcessedFiles, "[]")
	if err != nil {
		return fmt.Errorf("failed to encode processed files: %w", err)
	}
	outputs, err := toJSON(cache.BatchOutputs, "[]")
	if err != nil {
		return fmt.Errorf("failed to encode batch outputs: %w", err)
	}

	query := `
		INSERT INTO extraction_cache (closing_id, phase, processed_files, batch_outputs, batches_completed, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(closing_id) DO UPDATE SET
			phase = excluded.phase,
			processed_files = excluded.processed_files,
			batch_outputs = excluded.batch_outputs,
			batches_completed = excluded.batches_completed,
			updated_at = excluded.updated_at
	`
	_, err = r.getExecutor(ctx).ExecContext(ctx, query,
		cache.ClosingID,
		string(cache.Phase),
		processed,
		outputs,
		cache.BatchesCompleted,
		cache.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save extraction cache",
			zap.String("closing_id", cache.ClosingID),
			zap.Int("batches_completed", cache.BatchesCompleted),
			zap.Error(err))
		return fmt.Errorf("failed to save extraction cache: %w", err)
	}
	return nil
}

// Delete removes the extraction progress of a closing
func (r *ExtractionCacheRepository) Delete(ctx context.Context, closingID string) error {
	_, err := r.getExecutor(ctx).ExecContext(ctx, "DELETE FROM extraction_cache WHERE closing_id = ?", closingID)
	if err != nil {
		r.logger.Error("Failed to delete extraction cache", zap.String("closing_id", closingID), zap.Error(err))
		return fmt.Errorf("failed to delete extraction cache: %w", err)
	}
	return nil
}

// getExecutor returns appropriate executor based on context
func (r *ExtractionCacheRepository) getExecutor(ctx context.Context) executor {
	return getExecutor(ctx, r.db)
}

// Verify interface compliance
var _ port.ExtractionCacheRepository = (*ExtractionCacheRepository)(nil)
