package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/cierres-audit/internal/application/port"
	"github.com/garyjia/cierres-audit/internal/audit"
	"github.com/garyjia/cierres-audit/internal/dates"
	"github.com/garyjia/cierres-audit/internal/domain/entity"
	"github.com/garyjia/cierres-audit/internal/domain/workflow"
	"github.com/garyjia/cierres-audit/internal/parser"
)

const pastedClosing = `[9/2/2026, 10:15:30 PM] Caja Glorieta: REPORTES GLORIETA: LA GLORIETA EXPRESS
▪️ CIERRE DE CAJA
ID: 4521
CAJA: Principal
Usuario: Juan Pérez
Inicio: 9 febrero 2026, 2:00:00 pm
Fin: 9 febrero 2026, 10:10:00 pm
▪️ CUADRE DE CAJA
Efectivo Inicial: $300,000
Ventas en Efectivo: $1,250,000
Gastos en Efectivo: $-29,500
(=) EFECTIVO $1,520,500
TOTAL EFECTIVO $1,577,500
▪️ FORMAS DE PAGO:
Efectivo: $1,250,000
Tarjeta: $1,100,000
`

const pastedDeclared = `[9/2/2026, 10:16:02 PM] Caja Glorieta: REPORTES GLORIETA: LA GLORIETA EXPRESS
▪️ DINERO DECLARADO
ID: 4521
Efectivo Sistema: $1,577,500
Efectivo Declarado: $1,540,350
Efectivo Diferencia $-37,150
FALTANTE $37,150
`

func testClock(t *testing.T) dates.Clock {
	clock, err := dates.NewClock(dates.DefaultTimezone)
	require.NoError(t, err)
	clock.Now = func() time.Time { return time.Date(2026, 2, 10, 15, 0, 0, 0, time.UTC) }
	return clock
}

func newIngestService(t *testing.T, inbox *mockInboxRepo, closings *mockClosingRepo, alerts *mockAlertRepo, tx *mockTxManager) IngestService {
	return NewIngestService(
		parser.NewDefault(testClock(t)),
		audit.NewClassifier(audit.DefaultThresholds()),
		inbox, closings, alerts, tx, &mockLogger{},
	)
}

func TestIngestService_Ingest(t *testing.T) {
	inbox := &mockInboxRepo{}
	closings := &mockClosingRepo{}
	alerts := &mockAlertRepo{}

	svc := newIngestService(t, inbox, closings, alerts, &mockTxManager{})
	result, err := svc.Ingest(context.Background(), pastedClosing+pastedDeclared)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "inbox-1", result.InboxID)
	require.Len(t, result.Records, 1)

	record := result.Records[0]
	assert.Equal(t, "closing-1", record.ClosingID)
	assert.Equal(t, "La Glorieta Express", record.Business)
	assert.Equal(t, 4521, record.SequenceID)
	assert.Equal(t, entity.RiskHigh, record.Risk)
	assert.Equal(t, string(workflow.StateAwaitingEnvelope), record.State)
	assert.False(t, record.Unchanged)
	assert.Equal(t, int64(1), record.AlertID)
	assert.Equal(t, []string{"La Glorieta Express (ID 4521): HIGH"}, result.Summary)
	assert.Empty(t, result.Failed)

	require.Len(t, alerts.created, 1)
	alert := alerts.created[0]
	assert.Equal(t, "closing-1", alert.ClosingID)
	assert.Equal(t, "2026-02-09", alert.Date)
	assert.Equal(t, "Juan Pérez", alert.Operator)
	assert.Equal(t, entity.RiskHigh, alert.Severity)
	assert.Equal(t, int64(-37150), alert.Amount)

	assert.Equal(t, entity.InboxStatusProcessed, inbox.status)
	assert.Equal(t, 1, inbox.recordCount)
}

func TestIngestService_Ingest_StoresWholeTextOnEachClosing(t *testing.T) {
	var stored *entity.Closing
	closings := &mockClosingRepo{
		upsertFunc: func(ctx context.Context, closing *entity.Closing) (port.UpsertOutcome, error) {
			stored = closing
			closing.ID = "closing-1"
			return port.UpsertCreated, nil
		},
	}

	text := pastedClosing + pastedDeclared
	svc := newIngestService(t, &mockInboxRepo{}, closings, &mockAlertRepo{}, &mockTxManager{})
	_, err := svc.Ingest(context.Background(), text)

	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, text, stored.RawText)
	assert.Equal(t, entity.RiskHigh, stored.Risk)
	assert.NotEmpty(t, stored.Message)
	assert.NotEmpty(t, stored.Fingerprint)
}

func TestIngestService_Ingest_UnchangedRaisesNoAlert(t *testing.T) {
	closings := &mockClosingRepo{
		upsertFunc: func(ctx context.Context, closing *entity.Closing) (port.UpsertOutcome, error) {
			closing.ID = "closing-1"
			return port.UpsertUnchanged, nil
		},
	}
	alerts := &mockAlertRepo{}

	svc := newIngestService(t, &mockInboxRepo{}, closings, alerts, &mockTxManager{})
	result, err := svc.Ingest(context.Background(), pastedClosing+pastedDeclared)

	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.True(t, result.Records[0].Unchanged)
	assert.Zero(t, result.Records[0].AlertID)
	assert.Empty(t, alerts.created)
}

func TestIngestService_Ingest_UndeclaredRaisesLowAlert(t *testing.T) {
	alerts := &mockAlertRepo{}

	svc := newIngestService(t, &mockInboxRepo{}, &mockClosingRepo{}, alerts, &mockTxManager{})
	result, err := svc.Ingest(context.Background(), pastedClosing)

	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, entity.RiskNotAuditable, result.Records[0].Risk)
	require.Len(t, alerts.created, 1)
	assert.Equal(t, entity.RiskLow, alerts.created[0].Severity)
	assert.Equal(t, entity.AlertTypeUndeclared, alerts.created[0].Type)
}

func TestIngestService_Ingest_EmptyText(t *testing.T) {
	inbox := &mockInboxRepo{}
	svc := newIngestService(t, inbox, &mockClosingRepo{}, &mockAlertRepo{}, &mockTxManager{})

	_, err := svc.Ingest(context.Background(), "  \n\t ")

	assert.ErrorIs(t, err, ErrEmptyText)
	assert.Empty(t, inbox.status)
}

func TestIngestService_Ingest_ParseFailure(t *testing.T) {
	inbox := &mockInboxRepo{}
	closings := &mockClosingRepo{
		upsertFunc: func(ctx context.Context, closing *entity.Closing) (port.UpsertOutcome, error) {
			t.Fatal("nothing should be stored")
			return port.UpsertCreated, nil
		},
	}

	svc := newIngestService(t, inbox, closings, &mockAlertRepo{}, &mockTxManager{})
	result, err := svc.Ingest(context.Background(), "hola, buenas noches")

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Errors)
	assert.Empty(t, result.Records)
	assert.Equal(t, entity.InboxStatusFailed, inbox.status)
	assert.Equal(t, result.Errors, inbox.errors)
}

func TestIngestService_Ingest_InboxFailure(t *testing.T) {
	inbox := &mockInboxRepo{
		createFunc: func(ctx context.Context, entry *entity.InboxEntry) error {
			return errors.New("disk full")
		},
	}

	svc := newIngestService(t, inbox, &mockClosingRepo{}, &mockAlertRepo{}, &mockTxManager{})
	_, err := svc.Ingest(context.Background(), pastedClosing)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestIngestService_Ingest_StoreFailureIsReported(t *testing.T) {
	tests := []struct {
		name     string
		closings *mockClosingRepo
		alerts   *mockAlertRepo
	}{
		{
			name: "upsert fails",
			closings: &mockClosingRepo{
				upsertFunc: func(ctx context.Context, closing *entity.Closing) (port.UpsertOutcome, error) {
					return 0, errors.New("database is locked")
				},
			},
			alerts: &mockAlertRepo{},
		},
		{
			name:     "alert insert fails",
			closings: &mockClosingRepo{},
			alerts: &mockAlertRepo{
				createFunc: func(ctx context.Context, alert *entity.Alert) error {
					return errors.New("database is locked")
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inbox := &mockInboxRepo{}
			svc := newIngestService(t, inbox, tt.closings, tt.alerts, &mockTxManager{})

			result, err := svc.Ingest(context.Background(), pastedClosing+pastedDeclared)

			require.NoError(t, err)
			assert.False(t, result.Success)
			assert.Empty(t, result.Records)
			assert.Equal(t, []string{"La Glorieta Express (ID 4521): ERROR"}, result.Summary)
			require.Len(t, result.Failed, 1)
			assert.Contains(t, result.Failed[0], "database is locked")
			assert.Equal(t, entity.InboxStatusProcessed, inbox.status)
			assert.Zero(t, inbox.recordCount)
		})
	}
}

func TestIngestService_Ingest_UsesOneTransactionPerClosing(t *testing.T) {
	calls := 0
	tx := &mockTxManager{
		withTransactionFunc: func(ctx context.Context, fn func(ctx context.Context) error) error {
			calls++
			return fn(ctx)
		},
	}

	svc := newIngestService(t, &mockInboxRepo{}, &mockClosingRepo{}, &mockAlertRepo{}, tx)
	_, err := svc.Ingest(context.Background(), pastedClosing+pastedDeclared)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
