package entity

import (
	"strings"
	"time"

	"github.com/garyjia/cierres-audit/internal/domain/workflow"
)

// EvidenceFile is a supporting document listed by an evidence source
type EvidenceFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Folder   string `json:"folder"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// IsReviewable returns true for images and PDFs, the only types the model reads
func (f EvidenceFile) IsReviewable() bool {
	return strings.HasPrefix(f.MimeType, "image/") || f.MimeType == "application/pdf"
}

// EvidenceItem is one file of a batch, base64-encoded for the model
type EvidenceItem struct {
	Name     string
	Folder   string
	MimeType string
	Base64   string
}

// ExtractionCache is the resumable progress of evidence extraction for one
// closing. ProcessedFiles only grows: a file recorded here is never submitted
// to the extractor again.
type ExtractionCache struct {
	ClosingID        string              `json:"closing_id"`
	Phase            workflow.CachePhase `json:"phase"`
	ProcessedFiles   []string            `json:"processed_files"`
	BatchOutputs     []string            `json:"batch_outputs"`
	BatchesCompleted int                 `json:"batches_completed"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// NewExtractionCache returns a cache that has not processed anything yet
func NewExtractionCache(closingID string) *ExtractionCache {
	return &ExtractionCache{
		ClosingID: closingID,
		Phase:     workflow.PhaseNotStarted,
	}
}

// IsProcessed returns true if name was part of a completed batch
func (c *ExtractionCache) IsProcessed(name string) bool {
	for _, processed := range c.ProcessedFiles {
		if processed == name {
			return true
		}
	}
	return false
}

// RecordBatch appends one batch output and marks its files processed
func (c *ExtractionCache) RecordBatch(output string, names []string) {
	for _, name := range names {
		if !c.IsProcessed(name) {
			c.ProcessedFiles = append(c.ProcessedFiles, name)
		}
	}
	c.BatchOutputs = append(c.BatchOutputs, output)
	c.BatchesCompleted++
	c.Phase = workflow.PhaseInProgress
}

// MarkComplete records that the whole analysis finished
func (c *ExtractionCache) MarkComplete() {
	c.Phase = workflow.PhaseComplete
}
