package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/cierres-audit/internal/application/port"
	"github.com/garyjia/cierres-audit/internal/audit"
	"github.com/garyjia/cierres-audit/internal/domain/entity"
	"github.com/garyjia/cierres-audit/internal/domain/workflow"
)

// EnvelopeService records the physical count of a closing's cash envelope
type EnvelopeService interface {
	Register(ctx context.Context, closingID string, counted int64, notes string) (*entity.Closing, error)
}

type envelopeServiceImpl struct {
	classifier *audit.Classifier
	closings   port.ClosingRepository
	logger     Logger
	now        func() time.Time
}

// NewEnvelopeService creates a new EnvelopeService
func NewEnvelopeService(classifier *audit.Classifier, closings port.ClosingRepository, logger Logger) EnvelopeService {
	return &envelopeServiceImpl{
		classifier: classifier,
		closings:   closings,
		logger:     logger,
		now:        time.Now,
	}
}

// Register evaluates the count against the declared cash and queues the
// closing for evidence review. A closing already queued stays queued.
func (s *envelopeServiceImpl) Register(ctx context.Context, closingID string, counted int64, notes string) (*entity.Closing, error) {
	if counted < 0 {
		return nil, ErrInvalidCount
	}

	closing, err := s.closings.GetByID(ctx, closingID)
	if err != nil {
		return nil, fmt.Errorf("get closing: %w", err)
	}
	if closing == nil {
		return nil, ErrNotFound
	}

	next := closing.State
	if closing.State != workflow.StateAIPending {
		next, err = workflow.Next(closing.State, workflow.TriggerRegisterEnvelope)
		if err != nil {
			return nil, fmt.Errorf("register envelope in state %s: %w", closing.State, err)
		}
	}

	notes = strings.TrimSpace(notes)
	env := s.classifier.EvaluateEnvelope(*closing, counted, notes, s.now())
	closing.Envelope = &env
	closing.State = next
	if notes != "" {
		closing.AdminNotes = notes
	}
	closing.Message = audit.RenderAlertMessage(audit.MessageInput(*closing))

	if err := s.closings.Update(ctx, closing); err != nil {
		s.logger.Error("Failed to save envelope count", "error", err, "closing_id", closingID)
		return nil, fmt.Errorf("save envelope: %w", err)
	}

	s.logger.Info("Envelope registered",
		"closing_id", closingID,
		"expected", env.Expected,
		"counted", env.Counted,
		"status", string(env.Status))

	return closing, nil
}
