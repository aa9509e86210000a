package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/cierres-audit/internal/application/port"
	"github.com/garyjia/cierres-audit/internal/domain/entity"
	"github.com/garyjia/cierres-audit/internal/domain/workflow"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// ClosingDetail is a closing with its alerts and the other closings of the
// same business and day
type ClosingDetail struct {
	Closing *entity.Closing   `json:"closing"`
	Alerts  []*entity.Alert   `json:"alerts"`
	SameDay []*entity.Closing `json:"same_day"`
}

// StatusCounts are the queue sizes shown on the dashboard
type StatusCounts struct {
	AIPending        int `json:"ai_pending"`
	AwaitingEnvelope int `json:"awaiting_envelope"`
	PendingAlerts    int `json:"pending_alerts"`
}

// ClosingService answers read queries and admin edits on stored closings
type ClosingService interface {
	List(ctx context.Context, filter port.ClosingFilter) ([]*entity.Closing, error)
	Get(ctx context.Context, id string) (*ClosingDetail, error)
	PendingEnvelopes(ctx context.Context) ([]*entity.Closing, error)
	PendingAlerts(ctx context.Context, date string) ([]*entity.Alert, error)
	ResolveAlert(ctx context.Context, id int64) error
	SaveNotes(ctx context.Context, id, notes string) (*entity.Closing, error)
	Status(ctx context.Context) (*StatusCounts, error)
}

type closingServiceImpl struct {
	closings port.ClosingRepository
	alerts   port.AlertRepository
	logger   Logger
}

// NewClosingService creates a new ClosingService
func NewClosingService(closings port.ClosingRepository, alerts port.AlertRepository, logger Logger) ClosingService {
	return &closingServiceImpl{
		closings: closings,
		alerts:   alerts,
		logger:   logger,
	}
}

// List returns closings matching filter. The limit defaults to 20 and is
// capped at 200.
func (s *closingServiceImpl) List(ctx context.Context, filter port.ClosingFilter) ([]*entity.Closing, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	closings, err := s.closings.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list closings: %w", err)
	}
	return closings, nil
}

func (s *closingServiceImpl) Get(ctx context.Context, id string) (*ClosingDetail, error) {
	closing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	alerts, err := s.alerts.ListByClosing(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	sameDay, err := s.closings.SameDay(ctx, closing.Business, closing.Date, closing.ID)
	if err != nil {
		return nil, fmt.Errorf("list same-day closings: %w", err)
	}

	return &ClosingDetail{Closing: closing, Alerts: alerts, SameDay: sameDay}, nil
}

func (s *closingServiceImpl) PendingEnvelopes(ctx context.Context) ([]*entity.Closing, error) {
	closings, err := s.closings.List(ctx, port.ClosingFilter{State: workflow.StateAwaitingEnvelope})
	if err != nil {
		return nil, fmt.Errorf("list pending envelopes: %w", err)
	}
	return closings, nil
}

func (s *closingServiceImpl) PendingAlerts(ctx context.Context, date string) ([]*entity.Alert, error) {
	alerts, err := s.alerts.ListPending(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list pending alerts: %w", err)
	}
	return alerts, nil
}

func (s *closingServiceImpl) ResolveAlert(ctx context.Context, id int64) error {
	if err := s.alerts.Resolve(ctx, id); err != nil {
		return fmt.Errorf("resolve alert: %w", err)
	}
	s.logger.Info("Alert resolved", "alert_id", id)
	return nil
}

// SaveNotes replaces the admin notes of a closing
func (s *closingServiceImpl) SaveNotes(ctx context.Context, id, notes string) (*entity.Closing, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, fmt.Errorf("notes cannot be empty")
	}

	closing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	closing.AdminNotes = notes
	if err := s.closings.Update(ctx, closing); err != nil {
		return nil, fmt.Errorf("save notes: %w", err)
	}

	s.logger.Info("Admin notes saved", "closing_id", id)
	return closing, nil
}

func (s *closingServiceImpl) Status(ctx context.Context) (*StatusCounts, error) {
	queued, err := s.closings.List(ctx, port.ClosingFilter{State: workflow.StateAIPending})
	if err != nil {
		return nil, fmt.Errorf("count review queue: %w", err)
	}
	envelopes, err := s.PendingEnvelopes(ctx)
	if err != nil {
		return nil, err
	}
	alerts, err := s.PendingAlerts(ctx, "")
	if err != nil {
		return nil, err
	}

	return &StatusCounts{
		AIPending:        len(queued),
		AwaitingEnvelope: len(envelopes),
		PendingAlerts:    len(alerts),
	}, nil
}

func (s *closingServiceImpl) find(ctx context.Context, id string) (*entity.Closing, error) {
	closing, err := s.closings.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get closing: %w", err)
	}
	if closing == nil {
		return nil, ErrNotFound
	}
	return closing, nil
}
