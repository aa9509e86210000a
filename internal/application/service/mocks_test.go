package service

import (
	"context"
	"sync"

	"github.com/garyjia/cierres-audit/internal/application/port"
	"github.com/garyjia/cierres-audit/internal/domain/entity"
	"github.com/garyjia/cierres-audit/internal/domain/workflow"
)

// Mock repositories
type mockClosingRepo struct {
	upsertFunc        func(ctx context.Context, closing *entity.Closing) (port.UpsertOutcome, error)
	getByIDFunc       func(ctx context.Context, id string) (*entity.Closing, error)
	listFunc          func(ctx context.Context, filter port.ClosingFilter) ([]*entity.Closing, error)
	sameDayFunc       func(ctx context.Context, business, date, excludeID string) ([]*entity.Closing, error)
	oldestInStateFunc func(ctx context.Context, state workflow.State) (*entity.Closing, error)
	updateFunc        func(ctx context.Context, closing *entity.Closing) error

	updated      []entity.Closing
	stateUpdates []workflow.State
}

func (m *mockClosingRepo) Upsert(ctx context.Context, closing *entity.Closing) (port.UpsertOutcome, error) {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, closing)
	}
	closing.ID = "closing-1"
	return port.UpsertCreated, nil
}

func (m *mockClosingRepo) GetByID(ctx context.Context, id string) (*entity.Closing, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockClosingRepo) List(ctx context.Context, filter port.ClosingFilter) ([]*entity.Closing, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return []*entity.Closing{}, nil
}

func (m *mockClosingRepo) SameDay(ctx context.Context, business, date, excludeID string) ([]*entity.Closing, error) {
	if m.sameDayFunc != nil {
		return m.sameDayFunc(ctx, business, date, excludeID)
	}
	return []*entity.Closing{}, nil
}

func (m *mockClosingRepo) OldestInState(ctx context.Context, state workflow.State) (*entity.Closing, error) {
	if m.oldestInStateFunc != nil {
		return m.oldestInStateFunc(ctx, state)
	}
	return nil, nil
}

func (m *mockClosingRepo) Update(ctx context.Context, closing *entity.Closing) error {
	m.updated = append(m.updated, *closing)
	if m.updateFunc != nil {
		return m.updateFunc(ctx, closing)
	}
	return nil
}

func (m *mockClosingRepo) UpdateState(ctx context.Context, id string, state workflow.State) error {
	m.stateUpdates = append(m.stateUpdates, state)
	return nil
}

type mockAlertRepo struct {
	createFunc      func(ctx context.Context, alert *entity.Alert) error
	listPendingFunc func(ctx context.Context, date string) ([]*entity.Alert, error)
	listByClosing   func(ctx context.Context, closingID string) ([]*entity.Alert, error)
	resolveFunc     func(ctx context.Context, id int64) error

	created     []entity.Alert
	explanation string
	resolved    []int64
}

func (m *mockAlertRepo) Create(ctx context.Context, alert *entity.Alert) error {
	if m.createFunc != nil {
		if err := m.createFunc(ctx, alert); err != nil {
			return err
		}
	}
	alert.ID = int64(len(m.created) + 1)
	m.created = append(m.created, *alert)
	return nil
}

func (m *mockAlertRepo) ListByClosing(ctx context.Context, closingID string) ([]*entity.Alert, error) {
	if m.listByClosing != nil {
		return m.listByClosing(ctx, closingID)
	}
	return []*entity.Alert{}, nil
}

func (m *mockAlertRepo) ListPending(ctx context.Context, date string) ([]*entity.Alert, error) {
	if m.listPendingFunc != nil {
		return m.listPendingFunc(ctx, date)
	}
	return []*entity.Alert{}, nil
}

func (m *mockAlertRepo) UpdateForClosing(ctx context.Context, closingID, explanation, message string) error {
	m.explanation = explanation
	return nil
}

func (m *mockAlertRepo) Resolve(ctx context.Context, id int64) error {
	if m.resolveFunc != nil {
		return m.resolveFunc(ctx, id)
	}
	m.resolved = append(m.resolved, id)
	return nil
}

type mockInboxRepo struct {
	createFunc func(ctx context.Context, entry *entity.InboxEntry) error

	status      string
	recordCount int
	errors      []string
}

func (m *mockInboxRepo) Create(ctx context.Context, entry *entity.InboxEntry) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, entry)
	}
	entry.ID = "inbox-1"
	entry.Status = entity.InboxStatusReceived
	m.status = entry.Status
	return nil
}

func (m *mockInboxRepo) MarkProcessed(ctx context.Context, id string, recordCount int, warnings []string) error {
	m.status = entity.InboxStatusProcessed
	m.recordCount = recordCount
	return nil
}

func (m *mockInboxRepo) MarkFailed(ctx context.Context, id string, errs []string, warnings []string) error {
	m.status = entity.InboxStatusFailed
	m.errors = errs
	return nil
}

func (m *mockInboxRepo) GetByID(ctx context.Context, id string) (*entity.InboxEntry, error) {
	return nil, nil
}

type mockCacheRepo struct {
	stored  map[string]*entity.ExtractionCache
	deleted []string
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{stored: map[string]*entity.ExtractionCache{}}
}

func (m *mockCacheRepo) Get(ctx context.Context, closingID string) (*entity.ExtractionCache, error) {
	c, ok := m.stored[closingID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *mockCacheRepo) Upsert(ctx context.Context, cache *entity.ExtractionCache) error {
	cp := *cache
	m.stored[cache.ClosingID] = &cp
	return nil
}

func (m *mockCacheRepo) Delete(ctx context.Context, closingID string) error {
	delete(m.stored, closingID)
	m.deleted = append(m.deleted, closingID)
	return nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// Mock collaborators
type mockSource struct {
	listing map[string][]entity.EvidenceFile
	listErr error
}

func (m *mockSource) List(ctx context.Context, business, date string) (map[string][]entity.EvidenceFile, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.listing, nil
}

func (m *mockSource) Fetch(ctx context.Context, file entity.EvidenceFile) ([]byte, error) {
	return []byte("img"), nil
}

type mockModel struct {
	extractCalls int
	synthesis    string
	synthErr     error
	outputs      []string
}

func (m *mockModel) ExtractBatch(ctx context.Context, batchNumber int, items []entity.EvidenceItem) (string, error) {
	m.extractCalls++
	return "lote", nil
}

func (m *mockModel) Synthesize(ctx context.Context, closingContext string, batchOutputs []string) (string, error) {
	m.outputs = batchOutputs
	if m.synthErr != nil {
		return "", m.synthErr
	}
	return m.synthesis, nil
}

type mockNotifier struct {
	err      error
	messages []string
}

func (m *mockNotifier) Notify(ctx context.Context, message string) error {
	m.messages = append(m.messages, message)
	return m.err
}

type mockProvisioner struct {
	mu      sync.Mutex
	failFor map[string]error
	created []string
}

func (m *mockProvisioner) EnsureDateFolders(ctx context.Context, business, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failFor[business]; err != nil {
		return err
	}
	m.created = append(m.created, business+"/"+date)
	return nil
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
