package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/garyjia/cierres-audit/internal/application/port"
	"github.com/garyjia/cierres-audit/internal/audit"
	"github.com/garyjia/cierres-audit/internal/dates"
	"github.com/garyjia/cierres-audit/internal/domain/entity"
	"github.com/garyjia/cierres-audit/internal/domain/workflow"
	"github.com/garyjia/cierres-audit/internal/money"
)

const (
	sheetClosings = "Cierres"
	sheetSummary  = "Resumen"
	noOperator    = "N/A"
)

// Discrepancy is a closing listed in the daily summary
type Discrepancy struct {
	Business string             `json:"business"`
	Operator string             `json:"operator"`
	Amount   int64              `json:"amount"`
	Kind     entity.SurplusKind `json:"kind"`
}

// DailySummary is the end-of-day digest sent to administrators
type DailySummary struct {
	Date             string        `json:"date"`
	Closings         int           `json:"closings"`
	ShortfallTotal   int64         `json:"shortfall_total"`
	Discrepancies    []Discrepancy `json:"discrepancies"`
	PendingAlerts    int           `json:"pending_alerts"`
	PendingEnvelopes int           `json:"pending_envelopes"`
	Message          string        `json:"message,omitempty"`
	Sent             bool          `json:"sent"`
}

// MetricsTotals aggregates every closing of the period
type MetricsTotals struct {
	Closings       int   `json:"closings"`
	Balanced       int   `json:"balanced"`
	Unbalanced     int   `json:"unbalanced"`
	ShortfallTotal int64 `json:"shortfall_total"`
	SurplusTotal   int64 `json:"surplus_total"`
}

// BusinessMetrics aggregates the closings of one business
type BusinessMetrics struct {
	Business  string `json:"business"`
	Closings  int    `json:"closings"`
	Shortfall int64  `json:"shortfall"`
	Surplus   int64  `json:"surplus"`
}

// OperatorMetrics aggregates the closings of one operator
type OperatorMetrics struct {
	Operator          string `json:"operator"`
	Closings          int    `json:"closings"`
	Shortfall         int64  `json:"shortfall"`
	AverageDifference int64  `json:"average_difference"`
}

// TrendPoint is the net declared difference of one day
type TrendPoint struct {
	Date       string `json:"date"`
	Difference int64  `json:"difference"`
}

// Metrics is the dashboard aggregate over a period
type Metrics struct {
	From       string            `json:"from"`
	Totals     MetricsTotals     `json:"totals"`
	ByBusiness []BusinessMetrics `json:"by_business"`
	ByOperator []OperatorMetrics `json:"by_operator"`
	Trend      []TrendPoint      `json:"trend"`
}

// SummaryService reports on stored closings
type SummaryService interface {
	// DailySummary builds the digest of date (today when empty) and sends it
	DailySummary(ctx context.Context, date string) (*DailySummary, error)
	// Metrics aggregates the closings dated from onwards
	Metrics(ctx context.Context, from string) (*Metrics, error)
	// ExportWorkbook writes the closings between from and to as an xlsx workbook
	ExportWorkbook(ctx context.Context, from, to string, w io.Writer) error
}

type summaryServiceImpl struct {
	closings   port.ClosingRepository
	alerts     port.AlertRepository
	notifier   port.Notifier
	thresholds audit.Thresholds
	clock      dates.Clock
	logger     Logger
}

// NewSummaryService creates a new SummaryService. notifier may be nil.
func NewSummaryService(
	closings port.ClosingRepository,
	alerts port.AlertRepository,
	notifier port.Notifier,
	thresholds audit.Thresholds,
	clock dates.Clock,
	logger Logger,
) SummaryService {
	return &summaryServiceImpl{
		closings:   closings,
		alerts:     alerts,
		notifier:   notifier,
		thresholds: thresholds,
		clock:      clock,
		logger:     logger,
	}
}

// DailySummary counts the day's closings and lists those off by more than
// the low threshold. Nothing is sent for a day without closings.
func (s *summaryServiceImpl) DailySummary(ctx context.Context, date string) (*DailySummary, error) {
	if date == "" {
		date = s.clock.TodayISO()
	}

	closings, err := s.closings.List(ctx, port.ClosingFilter{From: date, To: date})
	if err != nil {
		return nil, fmt.Errorf("list closings: %w", err)
	}

	summary := &DailySummary{
		Date:          date,
		Closings:      len(closings),
		Discrepancies: []Discrepancy{},
	}
	if len(closings) == 0 {
		s.logger.Info("No closings for daily summary", "date", date)
		return summary, nil
	}

	for _, c := range closings {
		if c.SurplusKind == entity.SurplusKindShortfall {
			summary.ShortfallTotal += c.AbsDifference()
		}
		if c.AbsDifference() > s.thresholds.Low && c.SurplusKind != entity.SurplusKindBalanced {
			summary.Discrepancies = append(summary.Discrepancies, Discrepancy{
				Business: c.Business,
				Operator: operatorOrNA(c.Operator),
				Amount:   c.Difference,
				Kind:     c.SurplusKind,
			})
		}
	}

	alerts, err := s.alerts.ListPending(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list pending alerts: %w", err)
	}
	summary.PendingAlerts = len(alerts)

	waiting, err := s.closings.List(ctx, port.ClosingFilter{State: workflow.StateAwaitingEnvelope})
	if err != nil {
		return nil, fmt.Errorf("list pending envelopes: %w", err)
	}
	summary.PendingEnvelopes = len(waiting)

	summary.Message = s.renderDailySummary(summary)

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, summary.Message); err != nil {
			return nil, fmt.Errorf("send daily summary: %w", err)
		}
		summary.Sent = true
	}

	s.logger.Info("Daily summary built",
		"date", date,
		"closings", summary.Closings,
		"discrepancies", len(summary.Discrepancies),
		"sent", summary.Sent)

	return summary, nil
}

func (s *summaryServiceImpl) renderDailySummary(d *DailySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 RESUMEN DIARIO — %s\n\n", dates.DisplayFromISO(d.Date))
	fmt.Fprintf(&b, "Cierres: %d\n", d.Closings)
	fmt.Fprintf(&b, "Faltante total: $%s\n", money.Format(d.ShortfallTotal))
	fmt.Fprintf(&b, "Alertas pendientes: %d\n", d.PendingAlerts)
	fmt.Fprintf(&b, "Sobres pendientes: %d\n", d.PendingEnvelopes)

	if len(d.Discrepancies) == 0 {
		fmt.Fprintf(&b, "\nSin descuadres mayores a $%s", money.Format(s.thresholds.Low))
		return b.String()
	}

	fmt.Fprintf(&b, "\nDescuadres mayores a $%s:\n", money.Format(s.thresholds.Low))
	for _, x := range d.Discrepancies {
		fmt.Fprintf(&b, "• %s (%s): %s $%s\n", x.Business, x.Operator, x.Kind.Label(), money.FormatSigned(x.Amount))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Metrics aggregates in the store's order, so businesses, operators and days
// appear as first seen by date
func (s *summaryServiceImpl) Metrics(ctx context.Context, from string) (*Metrics, error) {
	closings, err := s.closings.List(ctx, port.ClosingFilter{From: from})
	if err != nil {
		return nil, fmt.Errorf("list closings: %w", err)
	}

	m := &Metrics{
		From:       from,
		ByBusiness: []BusinessMetrics{},
		ByOperator: []OperatorMetrics{},
		Trend:      []TrendPoint{},
	}

	businessIdx := map[string]int{}
	operatorIdx := map[string]int{}
	dayIdx := map[string]int{}
	operatorTotals := []int64{}

	for _, c := range closings {
		m.Totals.Closings++
		if s.isBalanced(c) {
			m.Totals.Balanced++
		}

		var shortfall, surplus int64
		switch c.SurplusKind {
		case entity.SurplusKindShortfall:
			shortfall = c.AbsDifference()
		case entity.SurplusKindSurplus:
			surplus = c.Difference
		}
		m.Totals.ShortfallTotal += shortfall
		m.Totals.SurplusTotal += surplus

		i, ok := businessIdx[c.Business]
		if !ok {
			i = len(m.ByBusiness)
			businessIdx[c.Business] = i
			m.ByBusiness = append(m.ByBusiness, BusinessMetrics{Business: c.Business})
		}
		m.ByBusiness[i].Closings++
		m.ByBusiness[i].Shortfall += shortfall
		m.ByBusiness[i].Surplus += surplus

		name := operatorOrNA(c.Operator)
		j, ok := operatorIdx[name]
		if !ok {
			j = len(m.ByOperator)
			operatorIdx[name] = j
			m.ByOperator = append(m.ByOperator, OperatorMetrics{Operator: name})
			operatorTotals = append(operatorTotals, 0)
		}
		m.ByOperator[j].Closings++
		m.ByOperator[j].Shortfall += shortfall
		operatorTotals[j] += c.Difference

		k, ok := dayIdx[c.Date]
		if !ok {
			k = len(m.Trend)
			dayIdx[c.Date] = k
			m.Trend = append(m.Trend, TrendPoint{Date: c.Date})
		}
		m.Trend[k].Difference += c.Difference
	}

	m.Totals.Unbalanced = m.Totals.Closings - m.Totals.Balanced
	for j := range m.ByOperator {
		m.ByOperator[j].AverageDifference = average(operatorTotals[j], m.ByOperator[j].Closings)
	}

	return m, nil
}

func (s *summaryServiceImpl) isBalanced(c *entity.Closing) bool {
	return c.SurplusKind == entity.SurplusKindBalanced || c.AbsDifference() <= s.thresholds.Tolerance
}

// average rounds half away from zero
func average(total int64, n int) int64 {
	if n == 0 {
		return 0
	}
	return decimal.NewFromInt(total).Div(decimal.NewFromInt(int64(n))).Round(0).IntPart()
}

func operatorOrNA(name string) string {
	if strings.TrimSpace(name) == "" {
		return noOperator
	}
	return name
}

var closingHeaders = []interface{}{
	"Fecha", "Punto", "ID", "Caja", "Responsable", "Inicio", "Fin",
	"Efectivo sistema", "Efectivo declarado", "Diferencia", "Tipo",
	"Riesgo", "Estado", "Sobre esperado", "Sobre contado", "Resultado IA",
}

var summaryHeaders = []interface{}{
	"Punto", "Cierres", "Cuadran", "Faltante", "Sobrante",
}

// ExportWorkbook writes one row per closing on the first sheet and one row per
// business on the second
func (s *summaryServiceImpl) ExportWorkbook(ctx context.Context, from, to string, w io.Writer) error {
	closings, err := s.closings.List(ctx, port.ClosingFilter{From: from, To: to})
	if err != nil {
		return fmt.Errorf("list closings: %w", err)
	}

	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName(file.GetSheetName(0), sheetClosings); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if _, err := file.NewSheet(sheetSummary); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	bold, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeRow(file, sheetClosings, 1, closingHeaders); err != nil {
		return err
	}
	if err := file.SetRowStyle(sheetClosings, 1, 1, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	type businessRow struct {
		name               string
		closings, balanced int
		shortfall, surplus int64
	}
	var businesses []*businessRow
	byName := map[string]*businessRow{}

	for i, c := range closings {
		if err := writeRow(file, sheetClosings, i+2, closingRow(c)); err != nil {
			return err
		}

		row, ok := byName[c.Business]
		if !ok {
			row = &businessRow{name: c.Business}
			byName[c.Business] = row
			businesses = append(businesses, row)
		}
		row.closings++
		if s.isBalanced(c) {
			row.balanced++
		}
		switch c.SurplusKind {
		case entity.SurplusKindShortfall:
			row.shortfall += c.AbsDifference()
		case entity.SurplusKindSurplus:
			row.surplus += c.Difference
		}
	}

	if err := writeRow(file, sheetSummary, 1, summaryHeaders); err != nil {
		return err
	}
	if err := file.SetRowStyle(sheetSummary, 1, 1, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	for i, b := range businesses {
		values := []interface{}{b.name, b.closings, b.balanced, b.shortfall, b.surplus}
		if err := writeRow(file, sheetSummary, i+2, values); err != nil {
			return err
		}
	}

	if _, err := file.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("Workbook exported", "from", from, "to", to, "closings", len(closings))
	return nil
}

func closingRow(c *entity.Closing) []interface{} {
	var expected, counted interface{}
	if c.Envelope != nil {
		expected = c.Envelope.Expected
		counted = c.Envelope.Counted
	}
	review := ""
	if c.Review != nil {
		review = c.Review.Summary
	}
	return []interface{}{
		c.Date, c.Business, c.SequenceID, c.Register, c.Operator, c.ShiftStart, c.ShiftEnd,
		c.SystemCash, c.DeclaredCash, c.Difference, c.SurplusKind.Label(),
		c.Risk.Label(), string(c.State), expected, counted, review,
	}
}

func writeRow(file *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to address row %d: %w", row, err)
	}
	if err := file.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", row, sheet, err)
	}
	return nil
}
