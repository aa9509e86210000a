// Package evidence drives the review of a closing's supporting documents:
// byte-budgeted extraction batches with resumable progress, and the parsing
// and rendering of the final verdict.
package evidence

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/cierres-audit/internal/application/port"
	"github.com/garyjia/cierres-audit/internal/domain/entity"
)

// DefaultMaxBatchBytes caps the base64 payload of one extraction call
const DefaultMaxBatchBytes int64 = 20 * 1024 * 1024

// Orchestrator groups evidence files into extraction batches. Progress is
// persisted after every batch, so an interrupted run resumes without
// resubmitting files.
type Orchestrator struct {
	cache         port.ExtractionCacheRepository
	source        port.EvidenceSource
	model         port.VisionModel
	maxBatchBytes int64
	logger        *zap.Logger
	now           func() time.Time
}

// NewOrchestrator creates an orchestrator. A non-positive maxBatchBytes
// selects DefaultMaxBatchBytes.
func NewOrchestrator(
	cache port.ExtractionCacheRepository,
	source port.EvidenceSource,
	model port.VisionModel,
	maxBatchBytes int64,
	logger *zap.Logger,
) *Orchestrator {
	if maxBatchBytes <= 0 {
		maxBatchBytes = DefaultMaxBatchBytes
	}
	return &Orchestrator{
		cache:         cache,
		source:        source,
		model:         model,
		maxBatchBytes: maxBatchBytes,
		logger:        logger,
		now:           time.Now,
	}
}

// Run extracts every file not yet processed for the closing and returns the
// cache holding all batch outputs, prior and new. Files that cannot be
// fetched are skipped and retried on the next run. A failed extraction call
// contributes an empty output. Store failures abort the run; batches already
// persisted are kept.
func (o *Orchestrator) Run(ctx context.Context, closingID string, files []entity.EvidenceFile) (*entity.ExtractionCache, error) {
	cache, err := o.cache.Get(ctx, closingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load extraction cache: %w", err)
	}
	if cache == nil {
		cache = entity.NewExtractionCache(closingID)
	}

	pending := make([]entity.EvidenceFile, 0, len(files))
	for _, f := range files {
		if !cache.IsProcessed(f.Name) {
			pending = append(pending, f)
		}
	}
	if len(pending) == 0 {
		o.logger.Debug("No pending evidence files",
			zap.String("closing_id", closingID),
			zap.Int("batches_completed", cache.BatchesCompleted))
		return cache, nil
	}

	o.logger.Info("Extracting evidence",
		zap.String("closing_id", closingID),
		zap.Int("pending_files", len(pending)),
		zap.Int("already_processed", len(cache.ProcessedFiles)))

	var (
		batch []entity.EvidenceItem
		size  int64
	)
	for _, f := range pending {
		if err := ctx.Err(); err != nil {
			return cache, err
		}

		item, ok := o.fetch(ctx, closingID, f)
		if !ok {
			continue
		}
		itemSize := int64(len(item.Base64))

		if size+itemSize > o.maxBatchBytes && len(batch) > 0 {
			if err := o.flush(ctx, cache, batch); err != nil {
				return cache, err
			}
			batch, size = nil, 0
		}
		batch = append(batch, item)
		size += itemSize
	}

	if len(batch) > 0 {
		if err := o.flush(ctx, cache, batch); err != nil {
			return cache, err
		}
	}

	return cache, nil
}

// Complete discards the extraction progress once the review has finished
func (o *Orchestrator) Complete(ctx context.Context, closingID string) error {
	cache, err := o.cache.Get(ctx, closingID)
	if err != nil {
		return fmt.Errorf("failed to load extraction cache: %w", err)
	}
	if cache != nil {
		cache.MarkComplete()
		if err := o.cache.Upsert(ctx, cache); err != nil {
			return fmt.Errorf("failed to save extraction cache: %w", err)
		}
	}

	if err := o.cache.Delete(ctx, closingID); err != nil {
		return fmt.Errorf("failed to delete extraction cache: %w", err)
	}
	o.logger.Debug("Extraction cache cleared", zap.String("closing_id", closingID))
	return nil
}

func (o *Orchestrator) fetch(ctx context.Context, closingID string, f entity.EvidenceFile) (entity.EvidenceItem, bool) {
	if !f.IsReviewable() {
		o.logger.Warn("Skipping unsupported evidence file",
			zap.String("closing_id", closingID),
			zap.String("file", f.Name),
			zap.String("mime_type", f.MimeType))
		return entity.EvidenceItem{}, false
	}

	data, err := o.source.Fetch(ctx, f)
	if err != nil {
		o.logger.Warn("Failed to fetch evidence file",
			zap.String("closing_id", closingID),
			zap.String("file", f.Name),
			zap.Error(err))
		return entity.EvidenceItem{}, false
	}

	return entity.EvidenceItem{
		Name:     f.Name,
		Folder:   f.Folder,
		MimeType: f.MimeType,
		Base64:   base64.StdEncoding.EncodeToString(data),
	}, true
}

func (o *Orchestrator) flush(ctx context.Context, cache *entity.ExtractionCache, batch []entity.EvidenceItem) error {
	number := cache.BatchesCompleted + 1

	output, err := o.model.ExtractBatch(ctx, number, batch)
	if err != nil {
		o.logger.Error("Batch extraction failed",
			zap.String("closing_id", cache.ClosingID),
			zap.Int("batch", number),
			zap.Int("files", len(batch)),
			zap.Error(err))
		output = ""
	}

	names := make([]string, len(batch))
	for i, item := range batch {
		names[i] = item.Name
	}
	cache.RecordBatch(output, names)
	cache.UpdatedAt = o.now()

	if err := o.cache.Upsert(ctx, cache); err != nil {
		return fmt.Errorf("failed to save extraction cache after batch %d: %w", number, err)
	}

	o.logger.Info("Evidence batch completed",
		zap.String("closing_id", cache.ClosingID),
		zap.Int("batch", number),
		zap.Int("files", len(batch)))
	return nil
}

// CollectEvidence flattens a folder listing into the files the model can
// read, ordered by folder name and then listing order
func CollectEvidence(listing map[string][]entity.EvidenceFile) []entity.EvidenceFile {
	folders := make([]string, 0, len(listing))
	for folder := range listing {
		folders = append(folders, folder)
	}
	sort.Strings(folders)

	var files []entity.EvidenceFile
	for _, folder := range folders {
		for _, f := range listing[folder] {
			if !f.IsReviewable() {
				continue
			}
			if f.Folder == "" {
				f.Folder = folder
			}
			files = append(files, f)
		}
	}
	return files
}
