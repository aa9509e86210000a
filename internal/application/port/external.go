package port

import (
	"context"

	"github.com/garyjia/cierres-audit/internal/domain/entity"
)

// VisionModel is the external multimodal model. Both calls return free text.
type VisionModel interface {
	// ExtractBatch reads one batch of evidence documents into compact lines
	ExtractBatch(ctx context.Context, batchNumber int, items []entity.EvidenceItem) (string, error)
	// Synthesize produces the final verdict, expected to embed one JSON object
	Synthesize(ctx context.Context, closingContext string, batchOutputs []string) (string, error)
}

// Notifier delivers operator-facing text to administrators
type Notifier interface {
	Notify(ctx context.Context, message string) error
}
