package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/cierres-audit/internal/application/port"
	"github.com/garyjia/cierres-audit/internal/audit"
	"github.com/garyjia/cierres-audit/internal/domain/entity"
	"github.com/garyjia/cierres-audit/internal/parser"
)

// IngestedRecord is one stored closing of an ingest
type IngestedRecord struct {
	ClosingID  string             `json:"closing_id"`
	Business   string             `json:"business"`
	SequenceID int                `json:"sequence_id"`
	Risk       entity.RiskLevel   `json:"risk"`
	State      string             `json:"state"`
	Outcome    port.UpsertOutcome `json:"-"`
	Unchanged  bool               `json:"unchanged"`
	AlertID    int64              `json:"alert_id,omitempty"`
}

// IngestResult is the outcome of ingesting one pasted text
type IngestResult struct {
	Success  bool             `json:"success"`
	InboxID  string           `json:"inbox_id"`
	Records  []IngestedRecord `json:"records"`
	Summary  []string         `json:"summary"`
	Failed   []string         `json:"failed"`
	Errors   []string         `json:"errors"`
	Warnings []string         `json:"warnings"`
}

// IngestService turns pasted chat text into stored, classified closings
type IngestService interface {
	Ingest(ctx context.Context, text string) (*IngestResult, error)
}

type ingestServiceImpl struct {
	parser     *parser.Parser
	classifier *audit.Classifier
	inbox      port.InboxRepository
	closings   port.ClosingRepository
	alerts     port.AlertRepository
	txManager  port.TransactionManager
	logger     Logger
}

// NewIngestService creates a new IngestService
func NewIngestService(
	p *parser.Parser,
	classifier *audit.Classifier,
	inbox port.InboxRepository,
	closings port.ClosingRepository,
	alerts port.AlertRepository,
	txManager port.TransactionManager,
	logger Logger,
) IngestService {
	return &ingestServiceImpl{
		parser:     p,
		classifier: classifier,
		inbox:      inbox,
		closings:   closings,
		alerts:     alerts,
		txManager:  txManager,
		logger:     logger,
	}
}

// Ingest keeps the raw text, parses it and stores every closing found with
// its classification. A record that fails to store is reported and does not
// stop the others.
func (s *ingestServiceImpl) Ingest(ctx context.Context, text string) (*IngestResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	entry := &entity.InboxEntry{RawText: text}
	if err := s.inbox.Create(ctx, entry); err != nil {
		s.logger.Error("Failed to store inbox entry", "error", err)
		return nil, fmt.Errorf("store inbox entry: %w", err)
	}

	parsed := s.parser.Parse(text)
	result := &IngestResult{
		InboxID:  entry.ID,
		Records:  []IngestedRecord{},
		Summary:  []string{},
		Failed:   []string{},
		Errors:   parsed.Errors,
		Warnings: parsed.Warnings,
	}

	if !parsed.Success {
		if err := s.inbox.MarkFailed(ctx, entry.ID, parsed.Errors, parsed.Warnings); err != nil {
			s.logger.Error("Failed to mark inbox entry failed", "error", err, "inbox_id", entry.ID)
		}
		s.logger.Info("Ingest found no closings", "inbox_id", entry.ID, "errors", len(parsed.Errors))
		return result, nil
	}

	for i := range parsed.Records {
		closing := parsed.Records[i]
		closing.RawText = text

		cl := s.classifier.Classify(closing)
		audit.Apply(&closing, cl)

		label := fmt.Sprintf("%s (ID %d)", closing.Business, closing.SequenceID)

		record, err := s.store(ctx, &closing, cl.Alert)
		if err != nil {
			s.logger.Error("Failed to store closing", "error", err, "business", closing.Business, "sequence_id", closing.SequenceID)
			result.Failed = append(result.Failed, fmt.Sprintf("%s: %v", label, err))
			result.Summary = append(result.Summary, fmt.Sprintf("%s: ERROR", label))
			continue
		}

		result.Records = append(result.Records, *record)
		result.Summary = append(result.Summary, fmt.Sprintf("%s: %s", label, closing.Risk))
	}

	result.Success = len(result.Records) > 0
	if err := s.inbox.MarkProcessed(ctx, entry.ID, len(result.Records), parsed.Warnings); err != nil {
		s.logger.Error("Failed to mark inbox entry processed", "error", err, "inbox_id", entry.ID)
	}

	s.logger.Info("Ingest completed",
		"inbox_id", entry.ID,
		"records", len(result.Records),
		"failed", len(result.Failed),
		"warnings", len(result.Warnings))

	return result, nil
}

// store upserts the closing and raises its alert in one transaction. An
// unchanged closing keeps its stored state and raises nothing new.
func (s *ingestServiceImpl) store(ctx context.Context, closing *entity.Closing, alert *entity.Alert) (*IngestedRecord, error) {
	record := &IngestedRecord{
		Business:   closing.Business,
		SequenceID: closing.SequenceID,
		Risk:       closing.Risk,
		State:      string(closing.State),
	}

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		outcome, err := s.closings.Upsert(ctx, closing)
		if err != nil {
			return err
		}
		record.ClosingID = closing.ID
		record.Outcome = outcome
		record.Unchanged = outcome == port.UpsertUnchanged

		if outcome == port.UpsertUnchanged || alert == nil {
			return nil
		}

		alert.ClosingID = closing.ID
		alert.Date = closing.Date
		alert.Business = closing.Business
		alert.Operator = closing.Operator
		if err := s.alerts.Create(ctx, alert); err != nil {
			return err
		}
		record.AlertID = alert.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}
