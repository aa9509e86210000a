package port

import (
	"context"

	"github.com/garyjia/cierres-audit/internal/domain/entity"
)

// EvidenceSource lists and fetches the supporting documents uploaded for a
// business and date, organised in the numbered evidence folders
type EvidenceSource interface {
	// List returns files per folder. A missing date folder yields an empty map.
	List(ctx context.Context, business, date string) (map[string][]entity.EvidenceFile, error)
	// Fetch downloads a file's bytes
	Fetch(ctx context.Context, file entity.EvidenceFile) ([]byte, error)
}

// FolderProvisioner creates the evidence folder tree for a business and date
type FolderProvisioner interface {
	EnsureDateFolders(ctx context.Context, business, date string) error
}
