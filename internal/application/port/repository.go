package port

import (
	"context"

	"github.com/garyjia/cierres-audit/internal/domain/entity"
	"github.com/garyjia/cierres-audit/internal/domain/workflow"
)

// UpsertOutcome tells what an upsert did with a closing
type UpsertOutcome int

const (
	// UpsertCreated means a new row was inserted
	UpsertCreated UpsertOutcome = iota
	// UpsertUpdated means an existing row with different content was replaced
	UpsertUpdated
	// UpsertUnchanged means a row with the same fingerprint already existed
	UpsertUnchanged
)

// ClosingFilter narrows closing listings. Empty fields do not filter.
type ClosingFilter struct {
	From     string // inclusive YYYY-MM-DD
	To       string // inclusive YYYY-MM-DD
	Business string
	State    workflow.State
	Risk     entity.RiskLevel
	Limit    int
	Offset   int
}

// ClosingRepository defines persistence operations for Closing
type ClosingRepository interface {
	// Upsert stores a closing keyed by (date, business, sequence id) and sets
	// its ID. A stored row with the same fingerprint is left untouched.
	Upsert(ctx context.Context, closing *entity.Closing) (UpsertOutcome, error)

	// GetByID returns nil, nil when the closing does not exist
	GetByID(ctx context.Context, id string) (*entity.Closing, error)

	// List returns closings ordered by date then business then sequence id
	List(ctx context.Context, filter ClosingFilter) ([]*entity.Closing, error)

	// SameDay returns the other closings of the business on the date
	SameDay(ctx context.Context, business, date, excludeID string) ([]*entity.Closing, error)

	// OldestInState returns the least recently updated closing in state, or nil
	OldestInState(ctx context.Context, state workflow.State) (*entity.Closing, error)

	// Update rewrites the pipeline fields of a closing: state, risk, action,
	// result, message, envelope, admin notes and review
	Update(ctx context.Context, closing *entity.Closing) error

	// UpdateState sets only the pipeline state
	UpdateState(ctx context.Context, id string, state workflow.State) error
}

// AlertRepository defines persistence operations for Alert
type AlertRepository interface {
	Create(ctx context.Context, alert *entity.Alert) error
	ListByClosing(ctx context.Context, closingID string) ([]*entity.Alert, error)
	// ListPending returns pending alerts, for a date when date is not empty
	ListPending(ctx context.Context, date string) ([]*entity.Alert, error)
	// UpdateForClosing sets the review explanation and message on every alert of the closing
	UpdateForClosing(ctx context.Context, closingID, explanation, message string) error
	Resolve(ctx context.Context, id int64) error
}

// InboxRepository defines persistence operations for raw pasted texts
type InboxRepository interface {
	Create(ctx context.Context, entry *entity.InboxEntry) error
	MarkProcessed(ctx context.Context, id string, recordCount int, warnings []string) error
	MarkFailed(ctx context.Context, id string, errs []string, warnings []string) error
	GetByID(ctx context.Context, id string) (*entity.InboxEntry, error)
}

// ExtractionCacheRepository persists evidence extraction progress per closing
type ExtractionCacheRepository interface {
	// Get returns nil, nil when no progress was recorded
	Get(ctx context.Context, closingID string) (*entity.ExtractionCache, error)
	Upsert(ctx context.Context, cache *entity.ExtractionCache) error
	Delete(ctx context.Context, closingID string) error
}

// TransactionManager runs fn in one store transaction. Repositories called
// with the context passed to fn take part in it.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
