package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/cierres-audit/internal/application/port"
	"github.com/garyjia/cierres-audit/internal/domain/entity"
	"github.com/garyjia/cierres-audit/internal/domain/workflow"
	"github.com/garyjia/cierres-audit/pkg/database"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrator(db, zap.NewNop()).Migrate())
	return db.DB
}

func newClosing(business string, seq int, fingerprint string) *entity.Closing {
	return &entity.Closing{
		Fingerprint:    fingerprint,
		Date:           "2026-02-09",
		Business:       business,
		SequenceID:     seq,
		Operator:       "Juan Pérez",
		ShiftStart:     "06:00",
		ShiftEnd:       "14:00",
		OpeningCash:    300000,
		CashTotal:      1577500,
		PaymentMethods: entity.PaymentMethods{"Efectivo": 1250500, "Nequi": 500000},
		Expenses:       []entity.ExpenseEntry{{Category: "Hielo", Amount: 15000, Count: 1}},
		SystemCash:     1577500,
		DeclaredCash:   1540350,
		Difference:     -37150,
		SurplusKind:    entity.SurplusKindShortfall,
		Risk:           entity.RiskMedium,
		State:          workflow.StateAwaitingEnvelope,
		RawText:        "CIERRE DE CAJA ...",
	}
}

func TestClosingRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := NewClosingRepository(newTestDB(t), zap.NewNop())

	first := newClosing("La Glorieta Express", 4521, "aaaa")
	outcome, err := repo.Upsert(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, port.UpsertCreated, outcome)
	require.NotEmpty(t, first.ID)

	same := newClosing("La Glorieta Express", 4521, "aaaa")
	outcome, err = repo.Upsert(ctx, same)
	require.NoError(t, err)
	assert.Equal(t, port.UpsertUnchanged, outcome)
	assert.Equal(t, first.ID, same.ID)

	changed := newClosing("La Glorieta Express", 4521, "bbbb")
	changed.Difference = 2000
	changed.SurplusKind = entity.SurplusKindSurplus
	outcome, err = repo.Upsert(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, port.UpsertUpdated, outcome)
	assert.Equal(t, first.ID, changed.ID)

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "bbbb", got.Fingerprint)
	assert.Equal(t, int64(2000), got.Difference)
	assert.Equal(t, entity.SurplusKindSurplus, got.SurplusKind)

	all, err := repo.List(ctx, port.ClosingFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestClosingRepository_UpsertWithoutSequence(t *testing.T) {
	ctx := context.Background()
	repo := NewClosingRepository(newTestDB(t), zap.NewNop())

	a := newClosing("Salomé Heladería", 0, "f1")
	b := newClosing("Salomé Heladería", 0, "f2")

	_, err := repo.Upsert(ctx, a)
	require.NoError(t, err)
	outcome, err := repo.Upsert(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, port.UpsertCreated, outcome, "closings without an id are told apart by fingerprint")

	again := newClosing("Salomé Heladería", 0, "f1")
	outcome, err = repo.Upsert(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, port.UpsertUnchanged, outcome)
	assert.Equal(t, a.ID, again.ID)
}

func TestClosingRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewClosingRepository(newTestDB(t), zap.NewNop())

	c := newClosing("La Glorieta Express", 4521, "aaaa")
	_, err := repo.Upsert(ctx, c)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, c.PaymentMethods, got.PaymentMethods)
	assert.Equal(t, c.Expenses, got.Expenses)
	assert.Equal(t, workflow.StateAwaitingEnvelope, got.State)
	assert.Equal(t, entity.RiskMedium, got.Risk)
	assert.Nil(t, got.Envelope)
	assert.Nil(t, got.Review)
	assert.Equal(t, "CIERRE DE CAJA ...", got.RawText)

	missing, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestClosingRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo := NewClosingRepository(newTestDB(t), zap.NewNop())

	c := newClosing("La Glorieta Express", 4521, "aaaa")
	_, err := repo.Upsert(ctx, c)
	require.NoError(t, err)

	counted := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	c.State = workflow.StateAIPending
	c.AdminNotes = "Sobre entregado por María"
	c.Envelope = &entity.Envelope{Declared: 1540350, Expected: 1240350, Counted: 1240350, Status: entity.EnvelopeConfirmed, CountedAt: counted}
	c.Review = &entity.ReviewResult{Summary: "CUADRA — ok", Action: "Ninguna"}
	require.NoError(t, repo.Update(ctx, c))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StateAIPending, got.State)
	assert.Equal(t, "Sobre entregado por María", got.AdminNotes)
	require.NotNil(t, got.Envelope)
	assert.Equal(t, entity.EnvelopeConfirmed, got.Envelope.Status)
	assert.True(t, counted.Equal(got.Envelope.CountedAt))
	require.NotNil(t, got.Review)
	assert.Equal(t, "CUADRA — ok", got.Review.Summary)

	require.NoError(t, repo.UpdateState(ctx, c.ID, workflow.StateAIError))
	got, err = repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StateAIError, got.State)
}

func TestClosingRepository_UpsertKeepsEnvelopeNotesAndReview(t *testing.T) {
	ctx := context.Background()
	repo := NewClosingRepository(newTestDB(t), zap.NewNop())

	c := newClosing("La Glorieta Express", 4521, "aaaa")
	_, err := repo.Upsert(ctx, c)
	require.NoError(t, err)

	c.AdminNotes = "Sobre entregado por María"
	c.Envelope = &entity.Envelope{Declared: 1540350, Expected: 1240350, Counted: 88000, Status: entity.EnvelopeDiscrepancy}
	c.Review = &entity.ReviewResult{Summary: "DESCUADRE_MENOR", Action: "Pedir factura de hielo"}
	require.NoError(t, repo.Update(ctx, c))

	corrected := newClosing("La Glorieta Express", 4521, "bbbb")
	corrected.Difference = -30000
	outcome, err := repo.Upsert(ctx, corrected)
	require.NoError(t, err)
	assert.Equal(t, port.UpsertUpdated, outcome)

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(-30000), got.Difference)
	assert.Equal(t, "bbbb", got.Fingerprint)
	assert.Equal(t, "Sobre entregado por María", got.AdminNotes)
	require.NotNil(t, got.Envelope)
	assert.Equal(t, int64(88000), got.Envelope.Counted)
	require.NotNil(t, got.Review)
	assert.Equal(t, "Pedir factura de hielo", got.Review.Action)
}

func TestClosingRepository_Queries(t *testing.T) {
	ctx := context.Background()
	repo := NewClosingRepository(newTestDB(t), zap.NewNop())

	morning := newClosing("La Glorieta Express", 4521, "a")
	evening := newClosing("La Glorieta Express", 4522, "b")
	evening.ShiftStart = "14:00"
	evening.State = workflow.StateAIPending
	other := newClosing("Salomé Heladería", 77, "c")
	other.Risk = entity.RiskHigh
	nextDay := newClosing("La Glorieta Express", 4530, "d")
	nextDay.Date = "2026-02-10"
	nextDay.State = workflow.StateAIPending

	for _, c := range []*entity.Closing{nextDay, evening, morning, other} {
		_, err := repo.Upsert(ctx, c)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	t.Run("list ordered", func(t *testing.T) {
		got, err := repo.List(ctx, port.ClosingFilter{})
		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.Equal(t, []int{4521, 4522, 77, 4530}, []int{got[0].SequenceID, got[1].SequenceID, got[2].SequenceID, got[3].SequenceID})
	})

	t.Run("list filtered", func(t *testing.T) {
		got, err := repo.List(ctx, port.ClosingFilter{From: "2026-02-09", To: "2026-02-09", Business: "La Glorieta Express"})
		require.NoError(t, err)
		assert.Len(t, got, 2)

		got, err = repo.List(ctx, port.ClosingFilter{Risk: entity.RiskHigh})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, other.ID, got[0].ID)

		got, err = repo.List(ctx, port.ClosingFilter{Limit: 2, Offset: 1})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 4522, got[0].SequenceID)
	})

	t.Run("same day", func(t *testing.T) {
		got, err := repo.SameDay(ctx, "La Glorieta Express", "2026-02-09", morning.ID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, evening.ID, got[0].ID)
	})

	t.Run("oldest in state", func(t *testing.T) {
		got, err := repo.OldestInState(ctx, workflow.StateAIPending)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, nextDay.ID, got.ID)

		none, err := repo.OldestInState(ctx, workflow.StateAIDone)
		require.NoError(t, err)
		assert.Nil(t, none)
	})
}

func TestAlertRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	closings := NewClosingRepository(db, zap.NewNop())
	alerts := NewAlertRepository(db, zap.NewNop())

	c := newClosing("La Glorieta Express", 4521, "a")
	_, err := closings.Upsert(ctx, c)
	require.NoError(t, err)

	alert := &entity.Alert{
		ClosingID: c.ID,
		Date:      c.Date,
		Business:  c.Business,
		Operator:  c.Operator,
		Severity:  entity.RiskMedium,
		Type:      string(entity.SurplusKindShortfall),
		Amount:    -37150,
		Action:    "Verificar sobre",
	}
	require.NoError(t, alerts.Create(ctx, alert))
	assert.NotZero(t, alert.ID)
	assert.Equal(t, entity.AlertStatusPending, alert.Status)

	pending, err := alerts.ListPending(ctx, "2026-02-09")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, entity.RiskMedium, pending[0].Severity)
	assert.Equal(t, int64(-37150), pending[0].Amount)

	none, err := alerts.ListPending(ctx, "2026-02-10")
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, alerts.UpdateForClosing(ctx, c.ID, "FALTANTE explicado", "reporte"))
	byClosing, err := alerts.ListByClosing(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, byClosing, 1)
	assert.Equal(t, "FALTANTE explicado", byClosing[0].Explanation)
	assert.Equal(t, "reporte", byClosing[0].Message)

	require.NoError(t, alerts.Resolve(ctx, alert.ID))
	pending, err = alerts.ListPending(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestInboxRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewInboxRepository(newTestDB(t), zap.NewNop())

	entry := &entity.InboxEntry{RawText: "texto pegado"}
	require.NoError(t, repo.Create(ctx, entry))
	require.NotEmpty(t, entry.ID)

	got, err := repo.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InboxStatusReceived, got.Status)
	assert.Empty(t, got.Errors)
	assert.Nil(t, got.ProcessedAt)

	require.NoError(t, repo.MarkProcessed(ctx, entry.ID, 2, []string{"Cierre sin ID"}))
	got, err = repo.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InboxStatusProcessed, got.Status)
	assert.Equal(t, 2, got.RecordCount)
	assert.Equal(t, []string{"Cierre sin ID"}, got.Warnings)
	assert.NotNil(t, got.ProcessedAt)

	failed := &entity.InboxEntry{RawText: "nada"}
	require.NoError(t, repo.Create(ctx, failed))
	require.NoError(t, repo.MarkFailed(ctx, failed.ID, []string{"No se encontraron cierres válidos en el texto"}, nil))
	got, err = repo.GetByID(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InboxStatusFailed, got.Status)
	assert.Equal(t, []string{"No se encontraron cierres válidos en el texto"}, got.Errors)

	missing, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestExtractionCacheRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewExtractionCacheRepository(newTestDB(t), zap.NewNop())

	missing, err := repo.Get(ctx, "c-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	cache := entity.NewExtractionCache("c-1")
	cache.RecordBatch("lote 1", []string{"a.jpg", "b.jpg"})
	cache.UpdatedAt = time.Now()
	require.NoError(t, repo.Upsert(ctx, cache))

	cache.RecordBatch("", []string{"c.pdf"})
	require.NoError(t, repo.Upsert(ctx, cache))

	got, err := repo.Get(ctx, "c-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, workflow.PhaseInProgress, got.Phase)
	assert.Equal(t, []string{"a.jpg", "b.jpg", "c.pdf"}, got.ProcessedFiles)
	assert.Equal(t, []string{"lote 1", ""}, got.BatchOutputs)
	assert.Equal(t, 2, got.BatchesCompleted)

	require.NoError(t, repo.Delete(ctx, "c-1"))
	gone, err := repo.Get(ctx, "c-1")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestTransactionManager(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	tm := NewTransactionManager(db, zap.NewNop())
	closings := NewClosingRepository(db, zap.NewNop())
	alerts := NewAlertRepository(db, zap.NewNop())

	c := newClosing("La Glorieta Express", 4521, "a")
	boom := errors.New("boom")
	err := tm.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := closings.Upsert(ctx, c); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	all, err := closings.List(ctx, port.ClosingFilter{})
	require.NoError(t, err)
	assert.Empty(t, all, "rolled back")

	err = tm.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := closings.Upsert(ctx, c); err != nil {
			return err
		}
		return alerts.Create(ctx, &entity.Alert{ClosingID: c.ID, Date: c.Date, Business: c.Business, Severity: entity.RiskLow, Type: "SURPLUS"})
	})
	require.NoError(t, err)

	got, err := alerts.ListByClosing(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestRepositories_StoreFailures(t *testing.T) {
	ctx := context.Background()
	dbErr := errors.New("database is locked")

	t.Run("closing lookup", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT id, fingerprint FROM closings").WillReturnError(dbErr)

		_, err := NewClosingRepository(db, zap.NewNop()).Upsert(ctx, newClosing("X", 1, "f"))

		require.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "failed to look up closing")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("closing insert", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT id, fingerprint FROM closings").WillReturnRows(sqlmock.NewRows([]string{"id", "fingerprint"}))
		mock.ExpectExec("INSERT INTO closings").WillReturnError(dbErr)

		_, err := NewClosingRepository(db, zap.NewNop()).Upsert(ctx, newClosing("X", 1, "f"))

		require.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("closing update", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("UPDATE closings").WillReturnError(dbErr)

		err := NewClosingRepository(db, zap.NewNop()).Update(ctx, &entity.Closing{ID: "c-1"})

		require.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "failed to update closing")
	})

	t.Run("alert create", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("INSERT INTO alerts").WillReturnError(dbErr)

		err := NewAlertRepository(db, zap.NewNop()).Create(ctx, &entity.Alert{ClosingID: "c-1"})

		require.ErrorIs(t, err, dbErr)
	})

	t.Run("cache upsert", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("INSERT INTO extraction_cache").WillReturnError(dbErr)

		err := NewExtractionCacheRepository(db, zap.NewNop()).Upsert(ctx, entity.NewExtractionCache("c-1"))

		require.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "failed to save extraction cache")
	})

	t.Run("cache get", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("FROM extraction_cache").WillReturnError(dbErr)

		_, err := NewExtractionCacheRepository(db, zap.NewNop()).Get(ctx, "c-1")

		require.ErrorIs(t, err, dbErr)
	})

	t.Run("transaction begin", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin().WillReturnError(dbErr)

		called := false
		err := NewTransactionManager(db, zap.NewNop()).WithTransaction(ctx, func(ctx context.Context) error {
			called = true
			return nil
		})

		require.ErrorIs(t, err, dbErr)
		assert.False(t, called)
	})
}
