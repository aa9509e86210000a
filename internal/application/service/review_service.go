package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/cierres-audit/internal/application/port"
	"github.com/garyjia/cierres-audit/internal/domain/entity"
	"github.com/garyjia/cierres-audit/internal/domain/workflow"
	"github.com/garyjia/cierres-audit/internal/evidence"
)

// ReviewOutcome is the result of one evidence review
type ReviewOutcome struct {
	ClosingID        string          `json:"closing_id"`
	Business         string          `json:"business"`
	Date             string          `json:"date"`
	State            workflow.State  `json:"state"`
	Analysis         entity.Analysis `json:"analysis"`
	Report           string          `json:"report"`
	EvidenceFiles    int             `json:"evidence_files"`
	BatchesCompleted int             `json:"batches_completed"`
}

// ReviewService reviews a closing's evidence with the vision model
type ReviewService interface {
	// ProcessNext reviews the oldest queued closing; nil when the queue is empty
	ProcessNext(ctx context.Context) (*ReviewOutcome, error)
	// Review reviews one closing now, queueing it first if needed
	Review(ctx context.Context, closingID string) (*ReviewOutcome, error)
}

type reviewServiceImpl struct {
	closings     port.ClosingRepository
	alerts       port.AlertRepository
	source       port.EvidenceSource
	model        port.VisionModel
	orchestrator *evidence.Orchestrator
	notifier     port.Notifier
	logger       Logger
	now          func() time.Time
}

// NewReviewService creates a new ReviewService. notifier may be nil.
func NewReviewService(
	closings port.ClosingRepository,
	alerts port.AlertRepository,
	source port.EvidenceSource,
	model port.VisionModel,
	orchestrator *evidence.Orchestrator,
	notifier port.Notifier,
	logger Logger,
) ReviewService {
	return &reviewServiceImpl{
		closings:     closings,
		alerts:       alerts,
		source:       source,
		model:        model,
		orchestrator: orchestrator,
		notifier:     notifier,
		logger:       logger,
		now:          time.Now,
	}
}

// ProcessNext reviews the least recently updated closing waiting for review
func (s *reviewServiceImpl) ProcessNext(ctx context.Context) (*ReviewOutcome, error) {
	closing, err := s.closings.OldestInState(ctx, workflow.StateAIPending)
	if err != nil {
		return nil, fmt.Errorf("get review queue: %w", err)
	}
	if closing == nil {
		return nil, nil
	}
	return s.review(ctx, closing)
}

// Review reviews a closing on demand
func (s *reviewServiceImpl) Review(ctx context.Context, closingID string) (*ReviewOutcome, error) {
	closing, err := s.closings.GetByID(ctx, closingID)
	if err != nil {
		return nil, fmt.Errorf("get closing: %w", err)
	}
	if closing == nil {
		return nil, ErrNotFound
	}

	if closing.State != workflow.StateAIPending {
		next, err := workflow.Next(closing.State, workflow.TriggerRequestReview)
		if err != nil {
			return nil, fmt.Errorf("request review in state %s: %w", closing.State, err)
		}
		if err := s.closings.UpdateState(ctx, closing.ID, next); err != nil {
			return nil, fmt.Errorf("queue closing: %w", err)
		}
		closing.State = next
	}

	return s.review(ctx, closing)
}

// review runs the extraction and synthesis. Until the outcome is stored any
// failure moves the closing to AI_ERROR; the extraction progress is kept so
// the next attempt resumes.
func (s *reviewServiceImpl) review(ctx context.Context, closing *entity.Closing) (*ReviewOutcome, error) {
	s.logger.Info("Reviewing closing",
		"closing_id", closing.ID,
		"business", closing.Business,
		"date", closing.Date)

	outcome, err := s.analyze(ctx, closing)
	if err != nil {
		s.fail(ctx, closing, err)
		return nil, err
	}

	if err := s.alerts.UpdateForClosing(ctx, closing.ID, outcome.Analysis.Summary, outcome.Report); err != nil {
		s.logger.Error("Failed to update alerts with review", "error", err, "closing_id", closing.ID)
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, outcome.Report); err != nil {
			s.logger.Warn("Failed to send review report", "error", err, "closing_id", closing.ID)
		}
	}

	if err := s.orchestrator.Complete(ctx, closing.ID); err != nil {
		s.logger.Warn("Failed to clear extraction progress", "error", err, "closing_id", closing.ID)
	}

	s.logger.Info("Review completed",
		"closing_id", closing.ID,
		"structured", outcome.Analysis.Structured(),
		"batches", outcome.BatchesCompleted)

	return outcome, nil
}

func (s *reviewServiceImpl) analyze(ctx context.Context, closing *entity.Closing) (*ReviewOutcome, error) {
	listing, err := s.source.List(ctx, closing.Business, closing.Date)
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}

	sameDay, err := s.closings.SameDay(ctx, closing.Business, closing.Date, closing.ID)
	if err != nil {
		return nil, fmt.Errorf("load same-day closings: %w", err)
	}

	files := evidence.CollectEvidence(listing)
	cache, err := s.orchestrator.Run(ctx, closing.ID, files)
	if err != nil {
		return nil, fmt.Errorf("extract evidence: %w", err)
	}

	closingContext := evidence.BuildContext(closing, evidence.Summarize(listing), sameDay)
	text, err := s.model.Synthesize(ctx, closingContext, cache.BatchOutputs)
	if err != nil {
		return nil, fmt.Errorf("synthesize analysis: %w", err)
	}

	analysis := evidence.ParseAnalysis(text)
	report := evidence.RenderReport(closing, analysis, sameDay)

	next, err := workflow.Next(closing.State, workflow.TriggerCompleteReview)
	if err != nil {
		return nil, fmt.Errorf("complete review in state %s: %w", closing.State, err)
	}

	closing.State = next
	closing.Review = &entity.ReviewResult{
		Summary:    analysis.Summary,
		Action:     analysis.Action,
		Message:    report,
		Raw:        analysis.Raw,
		ReviewedAt: s.now(),
	}
	if err := s.closings.Update(ctx, closing); err != nil {
		return nil, fmt.Errorf("save review: %w", err)
	}

	return &ReviewOutcome{
		ClosingID:        closing.ID,
		Business:         closing.Business,
		Date:             closing.Date,
		State:            closing.State,
		Analysis:         analysis,
		Report:           report,
		EvidenceFiles:    len(files),
		BatchesCompleted: cache.BatchesCompleted,
	}, nil
}

func (s *reviewServiceImpl) fail(ctx context.Context, closing *entity.Closing, cause error) {
	s.logger.Error("Review failed", "error", cause, "closing_id", closing.ID)

	next, err := workflow.Next(workflow.StateAIPending, workflow.TriggerFailReview)
	if err != nil {
		return
	}
	closing.State = next
	closing.Review = &entity.ReviewResult{
		Summary:    "Error: " + cause.Error(),
		ReviewedAt: s.now(),
	}
	// the run may have been cancelled; the error state must still be stored
	if err := s.closings.Update(context.WithoutCancel(ctx), closing); err != nil {
		s.logger.Error("Failed to mark review error", "error", err, "closing_id", closing.ID)
	}
}
