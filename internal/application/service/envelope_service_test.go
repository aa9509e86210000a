package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/cierres-audit/internal/audit"
	"github.com/garyjia/cierres-audit/internal/domain/entity"
	"github.com/garyjia/cierres-audit/internal/domain/workflow"
)

func storedClosing(state workflow.State) *entity.Closing {
	return &entity.Closing{
		ID:              "closing-1",
		Date:            "2026-02-09",
		Business:        "La Glorieta Express",
		SequenceID:      4521,
		Operator:        "Juan Pérez",
		SystemCash:      1577500,
		DeclaredCash:    1540350,
		CashDifference:  -37150,
		Difference:      -37150,
		SurplusKind:     entity.SurplusKindShortfall,
		NextOperator:    "María Gómez",
		NextOpeningCash: 300000,
		Risk:            entity.RiskHigh,
		State:           state,
		Action:          "URGENTE: Contar sobre AHORA.",
		Result:          "FALTANTE $37,150",
	}
}

func closingRepoWith(c *entity.Closing) *mockClosingRepo {
	return &mockClosingRepo{
		getByIDFunc: func(ctx context.Context, id string) (*entity.Closing, error) {
			if c == nil || id != c.ID {
				return nil, nil
			}
			cp := *c
			return &cp, nil
		},
	}
}

func TestEnvelopeService_Register(t *testing.T) {
	tests := []struct {
		name       string
		state      workflow.State
		counted    int64
		wantStatus entity.EnvelopeStatus
		wantState  workflow.State
	}{
		{
			name:       "count matches",
			state:      workflow.StateAwaitingEnvelope,
			counted:    1240350,
			wantStatus: entity.EnvelopeConfirmed,
			wantState:  workflow.StateAIPending,
		},
		{
			name:       "count within tolerance",
			state:      workflow.StatePending,
			counted:    1240000,
			wantStatus: entity.EnvelopeConfirmed,
			wantState:  workflow.StateAIPending,
		},
		{
			name:       "count short",
			state:      workflow.StateAIDone,
			counted:    1200000,
			wantStatus: entity.EnvelopeDiscrepancy,
			wantState:  workflow.StateAIPending,
		},
		{
			name:       "already queued stays queued",
			state:      workflow.StateAIPending,
			counted:    1240350,
			wantStatus: entity.EnvelopeConfirmed,
			wantState:  workflow.StateAIPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			closings := closingRepoWith(storedClosing(tt.state))
			svc := NewEnvelopeService(audit.NewClassifier(audit.DefaultThresholds()), closings, &mockLogger{})

			closing, err := svc.Register(context.Background(), "closing-1", tt.counted, "")

			require.NoError(t, err)
			require.NotNil(t, closing.Envelope)
			assert.Equal(t, int64(1240350), closing.Envelope.Expected)
			assert.Equal(t, tt.counted, closing.Envelope.Counted)
			assert.Equal(t, tt.counted-1240350, closing.Envelope.Difference)
			assert.Equal(t, tt.wantStatus, closing.Envelope.Status)
			assert.False(t, closing.Envelope.CountedAt.IsZero())
			assert.Equal(t, tt.wantState, closing.State)

			require.Len(t, closings.updated, 1)
			assert.Equal(t, tt.wantState, closings.updated[0].State)
			assert.Contains(t, closings.updated[0].Message, tt.wantStatus.Label())
		})
	}
}

func TestEnvelopeService_Register_Notes(t *testing.T) {
	closings := closingRepoWith(storedClosing(workflow.StateAwaitingEnvelope))
	svc := NewEnvelopeService(audit.NewClassifier(audit.DefaultThresholds()), closings, &mockLogger{})

	closing, err := svc.Register(context.Background(), "closing-1", 1240350, "  contado por Ana \n")

	require.NoError(t, err)
	assert.Equal(t, "contado por Ana", closing.Envelope.Notes)
	assert.Equal(t, "contado por Ana", closing.AdminNotes)
}

func TestEnvelopeService_Register_Errors(t *testing.T) {
	classifier := audit.NewClassifier(audit.DefaultThresholds())

	t.Run("negative count", func(t *testing.T) {
		svc := NewEnvelopeService(classifier, closingRepoWith(storedClosing(workflow.StatePending)), &mockLogger{})
		_, err := svc.Register(context.Background(), "closing-1", -1, "")
		assert.ErrorIs(t, err, ErrInvalidCount)
	})

	t.Run("unknown closing", func(t *testing.T) {
		svc := NewEnvelopeService(classifier, closingRepoWith(nil), &mockLogger{})
		_, err := svc.Register(context.Background(), "missing", 1000, "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("lookup fails", func(t *testing.T) {
		closings := &mockClosingRepo{
			getByIDFunc: func(ctx context.Context, id string) (*entity.Closing, error) {
				return nil, errors.New("connection reset")
			},
		}
		svc := NewEnvelopeService(classifier, closings, &mockLogger{})
		_, err := svc.Register(context.Background(), "closing-1", 1000, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
	})

	t.Run("save fails", func(t *testing.T) {
		closings := closingRepoWith(storedClosing(workflow.StateAwaitingEnvelope))
		closings.updateFunc = func(ctx context.Context, closing *entity.Closing) error {
			return errors.New("database is locked")
		}
		svc := NewEnvelopeService(classifier, closings, &mockLogger{})
		_, err := svc.Register(context.Background(), "closing-1", 1000, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "save envelope")
	})
}
