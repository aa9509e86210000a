package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/cierres-audit/internal/application/port"
	"github.com/garyjia/cierres-audit/internal/domain/entity"
	"github.com/garyjia/cierres-audit/internal/domain/workflow"
)

// closingColumns is the column order shared by inserts, updates and scans
var closingColumns = []string{
	"id", "fingerprint", "date", "business", "sequence_id", "register", "operator", "shift_start", "shift_end",
	"opening_cash", "cash_sales", "cash_expenses", "cash_transfers", "cash_payments", "cash_computed",
	"tips", "deliveries", "cash_total",
	"sales_income", "discounts", "credits", "income_total", "total_expenses", "payment_methods", "expenses",
	"system_cash", "declared_cash", "cash_difference", "system_cards", "declared_cards", "card_difference",
	"difference", "surplus_kind",
	"next_operator", "next_opening_cash",
	"risk", "state", "action", "result", "message", "envelope", "admin_notes", "review",
	"raw_text", "created_at", "updated_at",
}

var (
	selectClosing = "SELECT " + strings.Join(closingColumns, ", ") + " FROM closings"

	insertClosing = "INSERT INTO closings (" + strings.Join(closingColumns, ", ") + ") VALUES (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(closingColumns)), ", ") + ")"

	// replaceClosing rewrites the parsed and classified columns. Envelope,
	// notes and review are filled in after ingest and survive a re-paste.
	replaceClosing = func() string {
		sets := make([]string, 0, len(closingColumns))
		for _, col := range replaceColumns() {
			sets = append(sets, col+" = ?")
		}
		sets = append(sets, "updated_at = ?")
		return "UPDATE closings SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	}()
)

var keptOnReplace = map[string]bool{"envelope": true, "admin_notes": true, "review": true}

// replaceColumns lists the columns rewritten on re-ingest, in closingColumns order
func replaceColumns() []string {
	var cols []string
	for _, col := range closingColumns[1 : len(closingColumns)-2] {
		if !keptOnReplace[col] {
			cols = append(cols, col)
		}
	}
	return cols
}

// replaceArgs picks the replaceColumns values out of a full closingArgs row
func replaceArgs(args []interface{}) []interface{} {
	out := make([]interface{}, 0, len(args))
	for i, col := range closingColumns[1 : len(closingColumns)-2] {
		if !keptOnReplace[col] {
			out = append(out, args[i+1])
		}
	}
	return out
}

// ClosingRepository implements port.ClosingRepository
type ClosingRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewClosingRepository creates a new closing repository
func NewClosingRepository(db *sql.DB, logger *zap.Logger) port.ClosingRepository {
	return &ClosingRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert stores a closing by its natural key. Closings without a POS id are
// matched by fingerprint within their business and date.
func (r *ClosingRepository) Upsert(ctx context.Context, closing *entity.Closing) (port.UpsertOutcome, error) {
	existingID, existingFingerprint, err := r.findExisting(ctx, closing)
	if err != nil {
		return 0, err
	}

	now := time.Now()

	if existingID == "" {
		closing.ID = uuid.NewString()
		closing.CreatedAt = now
		closing.UpdatedAt = now

		args, err := closingArgs(closing)
		if err != nil {
			return 0, err
		}
		if _, err := r.getExecutor(ctx).ExecContext(ctx, insertClosing, args...); err != nil {
			r.logger.Error("Failed to create closing",
				zap.String("business", closing.Business),
				zap.Int("sequence_id", closing.SequenceID),
				zap.Error(err))
			return 0, fmt.Errorf("failed to create closing: %w", err)
		}
		return port.UpsertCreated, nil
	}

	closing.ID = existingID
	if existingFingerprint == closing.Fingerprint {
		return port.UpsertUnchanged, nil
	}

	closing.UpdatedAt = now
	args, err := closingArgs(closing)
	if err != nil {
		return 0, err
	}
	args = append(replaceArgs(args), closing.UpdatedAt, closing.ID)
	if _, err := r.getExecutor(ctx).ExecContext(ctx, replaceClosing, args...); err != nil {
		r.logger.Error("Failed to replace closing", zap.String("id", closing.ID), zap.Error(err))
		return 0, fmt.Errorf("failed to replace closing: %w", err)
	}
	return port.UpsertUpdated, nil
}

func (r *ClosingRepository) findExisting(ctx context.Context, closing *entity.Closing) (string, string, error) {
	var row *sql.Row
	if closing.SequenceID > 0 {
		row = r.getExecutor(ctx).QueryRowContext(ctx,
			"SELECT id, fingerprint FROM closings WHERE date = ? AND business = ? AND sequence_id = ?",
			closing.Date, closing.Business, closing.SequenceID)
	} else {
		row = r.getExecutor(ctx).QueryRowContext(ctx,
			"SELECT id, fingerprint FROM closings WHERE date = ? AND business = ? AND sequence_id = 0 AND fingerprint = ?",
			closing.Date, closing.Business, closing.Fingerprint)
	}

	var id, fingerprint string
	err := row.Scan(&id, &fingerprint)
	if err == sql.ErrNoRows {
		return "", "", nil
	}
	if err != nil {
		r.logger.Error("Failed to look up closing",
			zap.String("business", closing.Business),
			zap.String("date", closing.Date),
			zap.Error(err))
		return "", "", fmt.Errorf("failed to look up closing: %w", err)
	}
	return id, fingerprint, nil
}

// GetByID retrieves a closing by ID
func (r *ClosingRepository) GetByID(ctx context.Context, id string) (*entity.Closing, error) {
	closing, err := scanClosing(r.getExecutor(ctx).QueryRowContext(ctx, selectClosing+" WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get closing", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get closing: %w", err)
	}
	return closing, nil
}

// List retrieves closings matching the filter
func (r *ClosingRepository) List(ctx context.Context, filter port.ClosingFilter) ([]*entity.Closing, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.From != "" {
		conds = append(conds, "date >= ?")
		args = append(args, filter.From)
	}
	if filter.To != "" {
		conds = append(conds, "date <= ?")
		args = append(args, filter.To)
	}
	if filter.Business != "" {
		conds = append(conds, "business = ?")
		args = append(args, filter.Business)
	}
	if filter.State != "" {
		conds = append(conds, "state = ?")
		args = append(args, string(filter.State))
	}
	if filter.Risk != "" {
		conds = append(conds, "risk = ?")
		args = append(args, string(filter.Risk))
	}

	query := selectClosing
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY date, business, sequence_id"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	return r.query(ctx, "Failed to list closings", query, args...)
}

// SameDay retrieves the other closings of a business on a date, by shift start
func (r *ClosingRepository) SameDay(ctx context.Context, business, date, excludeID string) ([]*entity.Closing, error) {
	query := selectClosing + " WHERE business = ? AND date = ? AND id <> ? ORDER BY shift_start, sequence_id"
	return r.query(ctx, "Failed to list same-day closings", query, business, date, excludeID)
}

// OldestInState retrieves the least recently updated closing in a state
func (r *ClosingRepository) OldestInState(ctx context.Context, state workflow.State) (*entity.Closing, error) {
	query := selectClosing + " WHERE state = ? ORDER BY updated_at, id LIMIT 1"
	closing, err := scanClosing(r.getExecutor(ctx).QueryRowContext(ctx, query, string(state)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get oldest closing", zap.String("state", string(state)), zap.Error(err))
		return nil, fmt.Errorf("failed to get oldest closing: %w", err)
	}
	return closing, nil
}

// Update rewrites the pipeline fields of a closing
func (r *ClosingRepository) Update(ctx context.Context, closing *entity.Closing) error {
	envelope, err := toNullJSON(closing.Envelope, closing.Envelope == nil)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}
	review, err := toNullJSON(closing.Review, closing.Review == nil)
	if err != nil {
		return fmt.Errorf("failed to encode review: %w", err)
	}

	closing.UpdatedAt = time.Now()

	query := `
		UPDATE closings
		SET state = ?, risk = ?, action = ?, result = ?, message = ?,
			envelope = ?, admin_notes = ?, review = ?, updated_at = ?
		WHERE id = ?
	`
	_, err = r.getExecutor(ctx).ExecContext(ctx, query,
		string(closing.State),
		string(closing.Risk),
		closing.Action,
		closing.Result,
		closing.Message,
		envelope,
		closing.AdminNotes,
		review,
		closing.UpdatedAt,
		closing.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update closing", zap.String("id", closing.ID), zap.Error(err))
		return fmt.Errorf("failed to update closing: %w", err)
	}
	return nil
}

// UpdateState sets the pipeline state of a closing
func (r *ClosingRepository) UpdateState(ctx context.Context, id string, state workflow.State) error {
	_, err := r.getExecutor(ctx).ExecContext(ctx,
		"UPDATE closings SET state = ?, updated_at = ? WHERE id = ?",
		string(state), time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to update closing state",
			zap.String("id", id),
			zap.String("state", string(state)),
			zap.Error(err))
		return fmt.Errorf("failed to update closing state: %w", err)
	}
	return nil
}

func (r *ClosingRepository) query(ctx context.Context, logMsg, query string, args ...interface{}) ([]*entity.Closing, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error(logMsg, zap.Error(err))
		return nil, fmt.Errorf("failed to query closings: %w", err)
	}
	defer rows.Close()

	var closings []*entity.Closing
	for rows.Next() {
		closing, err := scanClosing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan closing: %w", err)
		}
		closings = append(closings, closing)
	}
	return closings, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanClosing(s scanner) (*entity.Closing, error) {
	var (
		c                        entity.Closing
		paymentMethods, expenses string
		surplusKind, risk, state string
		envelope, review         sql.NullString
	)

	err := s.Scan(
		&c.ID, &c.Fingerprint, &c.Date, &c.Business, &c.SequenceID, &c.Register, &c.Operator, &c.ShiftStart, &c.ShiftEnd,
		&c.OpeningCash, &c.CashSales, &c.CashExpenses, &c.CashTransfers, &c.CashPayments, &c.CashComputed,
		&c.Tips, &c.Deliveries, &c.CashTotal,
		&c.SalesIncome, &c.Discounts, &c.Credits, &c.IncomeTotal, &c.TotalExpenses, &paymentMethods, &expenses,
		&c.SystemCash, &c.DeclaredCash, &c.CashDifference, &c.SystemCards, &c.DeclaredCards, &c.CardDifference,
		&c.Difference, &surplusKind,
		&c.NextOperator, &c.NextOpeningCash,
		&risk, &state, &c.Action, &c.Result, &c.Message, &envelope, &c.AdminNotes, &review,
		&c.RawText, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.SurplusKind = entity.SurplusKind(surplusKind)
	c.Risk = entity.RiskLevel(risk)
	c.State = workflow.State(state)

	if err := json.Unmarshal([]byte(paymentMethods), &c.PaymentMethods); err != nil {
		return nil, fmt.Errorf("failed to decode payment methods: %w", err)
	}
	if err := json.Unmarshal([]byte(expenses), &c.Expenses); err != nil {
		return nil, fmt.Errorf("failed to decode expenses: %w", err)
	}
	if envelope.Valid {
		c.Envelope = &entity.Envelope{}
		if err := json.Unmarshal([]byte(envelope.String), c.Envelope); err != nil {
			return nil, fmt.Errorf("failed to decode envelope: %w", err)
		}
	}
	if review.Valid {
		c.Review = &entity.ReviewResult{}
		if err := json.Unmarshal([]byte(review.String), c.Review); err != nil {
			return nil, fmt.Errorf("failed to decode review: %w", err)
		}
	}

	return &c, nil
}

// closingArgs returns the values of closingColumns for c
func closingArgs(c *entity.Closing) ([]interface{}, error) {
	paymentMethods, err := toJSON(c.PaymentMethods, "{}")
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment methods: %w", err)
	}
	expenses, err := toJSON(c.Expenses, "[]")
	if err != nil {
		return nil, fmt.Errorf("failed to encode expenses: %w", err)
	}
	envelope, err := toNullJSON(c.Envelope, c.Envelope == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	review, err := toNullJSON(c.Review, c.Review == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to encode review: %w", err)
	}

	return []interface{}{
		c.ID, c.Fingerprint, c.Date, c.Business, c.SequenceID, c.Register, c.Operator, c.ShiftStart, c.ShiftEnd,
		c.OpeningCash, c.CashSales, c.CashExpenses, c.CashTransfers, c.CashPayments, c.CashComputed,
		c.Tips, c.Deliveries, c.CashTotal,
		c.SalesIncome, c.Discounts, c.Credits, c.IncomeTotal, c.TotalExpenses, paymentMethods, expenses,
		c.SystemCash, c.DeclaredCash, c.CashDifference, c.SystemCards, c.DeclaredCards, c.CardDifference,
		c.Difference, string(c.SurplusKind),
		c.NextOperator, c.NextOpeningCash,
		string(c.Risk), string(c.State), c.Action, c.Result, c.Message, envelope, c.AdminNotes, review,
		c.RawText, c.CreatedAt, c.UpdatedAt,
	}, nil
}

// getExecutor returns appropriate executor based on context
func (r *ClosingRepository) getExecutor(ctx context.Context) executor {
	return getExecutor(ctx, r.db)
}

// Verify interface compliance
var _ port.ClosingRepository = (*ClosingRepository)(nil)
