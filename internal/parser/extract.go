package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/garyjia/cierres-audit/internal/dates"
	"github.com/garyjia/cierres-audit/internal/domain/entity"
	"github.com/garyjia/cierres-audit/internal/money"
)

// DateSource records where a closing's date came from
type DateSource int

const (
	DateFromField DateSource = iota
	DateFromShiftEnd
	DateFromClock
)

// ClosingRecord is the content of a POS closing report
type ClosingRecord struct {
	Business      string
	BusinessMatch Match
	SequenceID    int
	HasSequence   bool
	Register      string
	Operator      string
	ShiftStart    string
	ShiftEnd      string
	Date          string
	DateSource    DateSource

	OpeningCash   int64
	CashSales     int64
	CashExpenses  int64
	CashTransfers int64
	CashPayments  int64
	CashComputed  int64
	Tips          int64
	Deliveries    int64
	CashTotal     int64

	SalesIncome   int64
	Discounts     int64
	Credits       int64
	IncomeTotal   int64
	TotalExpenses int64

	PaymentMethods entity.PaymentMethods
	Expenses       []entity.ExpenseEntry
}

// DeclaredRecord is the content of a declared-cash message
type DeclaredRecord struct {
	Business      string
	BusinessMatch Match
	SequenceID    int
	HasSequence   bool

	SystemCash     int64
	DeclaredCash   int64
	CashDifference int64
	SystemCards    int64
	DeclaredCards  int64
	CardDifference int64
	Difference     int64
	Kind           entity.SurplusKind
}

// OpeningRecord is the content of an opening message
type OpeningRecord struct {
	Business      string
	BusinessMatch Match
	Operator      string
	Value         int64
}

// Extractor turns block text into typed records. Its methods are pure and
// never fail; missing fields are left at their zero value.
type Extractor struct {
	patterns Patterns
	resolver *BusinessResolver
	dates    *dates.Parser
	clock    dates.Clock
	markers  *regexp.Regexp
}

// NewExtractor creates an extractor
func NewExtractor(p Patterns, resolver *BusinessResolver, dateParser *dates.Parser, clock dates.Clock) *Extractor {
	phrases := make([]string, 0, len(p.Markers))
	for _, m := range p.Markers {
		phrases = append(phrases, regexp.QuoteMeta(m.Phrase))
	}
	markers := regexp.MustCompile(`(?i)` + strings.Join(phrases, "|"))
	if len(phrases) == 0 {
		markers = regexp.MustCompile(`$^`)
	}
	return &Extractor{
		patterns: p,
		resolver: resolver,
		dates:    dateParser,
		clock:    clock,
		markers:  markers,
	}
}

// ExtractClosing reads a POS closing report
func (e *Extractor) ExtractClosing(text string) ClosingRecord {
	cp := e.patterns.Closing
	r := ClosingRecord{
		Register:   firstGroup(text, cp.Register),
		Operator:   firstGroup(text, cp.Operator),
		ShiftStart: firstGroup(text, cp.ShiftStart),
		ShiftEnd:   firstGroup(text, cp.ShiftEnd),

		OpeningCash:   money.Extract(text, cp.OpeningCash),
		CashSales:     money.Extract(text, cp.CashSales),
		CashExpenses:  money.Extract(text, cp.CashExpenses),
		CashTransfers: money.Extract(text, cp.CashTransfers),
		CashPayments:  money.Extract(text, cp.CashPayments),
		CashComputed:  money.Extract(text, cp.CashComputed),
		Tips:          money.Extract(text, cp.Tips),
		Deliveries:    money.Extract(text, cp.Deliveries),
		CashTotal:     money.Extract(text, cp.CashTotal),

		SalesIncome:   money.Extract(text, cp.SalesIncome),
		Discounts:     money.Extract(text, cp.Discounts),
		Credits:       money.Extract(text, cp.Credits),
		IncomeTotal:   money.Extract(text, cp.IncomeTotal),
		TotalExpenses: money.Extract(text, cp.TotalExpenses),

		PaymentMethods: e.paymentMethods(text),
		Expenses:       e.expenses(text),
	}
	r.Business, r.BusinessMatch = e.DetectBusiness(text)
	r.SequenceID, r.HasSequence = e.sequenceID(text)
	r.Date, r.DateSource = e.closingDate(text, r.ShiftEnd)
	return r
}

// ExtractDeclared reads a declared-cash message. An explicit SOBRANTE or
// FALTANTE line keeps its tag even at zero; otherwise the sum of the cash and
// card differences decides the tag.
func (e *Extractor) ExtractDeclared(text string) DeclaredRecord {
	dp := e.patterns.Declared
	r := DeclaredRecord{
		SystemCash:     money.Extract(text, dp.SystemCash),
		DeclaredCash:   money.Extract(text, dp.DeclaredCash),
		CashDifference: money.Extract(text, dp.CashDifference),
		SystemCards:    money.Extract(text, dp.SystemCards),
		DeclaredCards:  money.Extract(text, dp.DeclaredCards),
		CardDifference: money.Extract(text, dp.CardDifference),
	}
	r.Business, r.BusinessMatch = e.DetectBusiness(text)
	r.SequenceID, r.HasSequence = e.sequenceID(text)

	if m := dp.Surplus.FindStringSubmatch(text); m != nil {
		r.Difference = abs(money.Parse(m[1]))
		r.Kind = entity.SurplusKindSurplus
	} else if m := dp.Shortfall.FindStringSubmatch(text); m != nil {
		r.Difference = -abs(money.Parse(m[1]))
		r.Kind = entity.SurplusKindShortfall
	} else {
		r.Difference = r.CashDifference + r.CardDifference
		r.Kind = kindOf(r.Difference)
	}
	return r
}

// ExtractOpening reads an opening message
func (e *Extractor) ExtractOpening(text string) OpeningRecord {
	op := e.patterns.Opening
	r := OpeningRecord{
		Operator: firstGroup(text, op.Operator),
		Value:    money.Extract(text, op.Value),
	}
	r.Business, r.BusinessMatch = e.DetectBusiness(text)
	return r
}

// DetectBusiness finds the business a block belongs to: a "REPORTES X: name"
// header first, otherwise the leading lines that are neither chat headers
// nor marker lines. A line that resolves to a known business is preferred
// over the first unresolved candidate.
func (e *Extractor) DetectBusiness(text string) (string, Match) {
	if m := e.patterns.BusinessHeader.FindStringSubmatch(text); m != nil {
		name := strings.TrimSpace(strings.SplitN(m[1], "\n", 2)[0])
		if name != "" {
			return e.resolver.Resolve(name)
		}
	}

	var fallback string
	seen := 0
	for _, line := range strings.Split(text, "\n") {
		if seen >= e.patterns.HeaderLines {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "[") || e.markers.MatchString(line) {
			continue
		}
		seen++
		name, match := e.resolver.Resolve(line)
		if match != MatchNone {
			return name, match
		}
		if fallback == "" {
			fallback = name
		}
	}
	return fallback, MatchNone
}

func (e *Extractor) sequenceID(text string) (int, bool) {
	m := e.patterns.SequenceID.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return id, true
}

func (e *Extractor) closingDate(text, shiftEnd string) (string, DateSource) {
	if m := e.patterns.Closing.Date.FindStringSubmatch(text); m != nil {
		if t, ok := e.dates.Parse(m[1]); ok {
			return dates.FormatISO(t), DateFromField
		}
	}
	if shiftEnd != "" {
		if t, ok := e.dates.Parse(shiftEnd); ok {
			return dates.FormatISO(t), DateFromShiftEnd
		}
	}
	return e.clock.TodayISO(), DateFromClock
}

func (e *Extractor) paymentMethods(text string) entity.PaymentMethods {
	cp := e.patterns.Closing
	methods := entity.PaymentMethods{}
	section := cp.PaymentSection.FindStringSubmatch(text)
	if section == nil {
		return methods
	}
	for _, line := range strings.Split(section[1], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := cp.PaymentLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		amount := money.Parse(m[2])
		if name != "" && amount != 0 {
			methods[name] = amount
		}
	}
	return methods
}

func (e *Extractor) expenses(text string) []entity.ExpenseEntry {
	cp := e.patterns.Closing
	entries := []entity.ExpenseEntry{}
	section := cp.ExpenseSection.FindStringSubmatch(text)
	if section == nil {
		return entries
	}
	content := strings.TrimSpace(section[1])
	if cp.Unavailable.MatchString(content) {
		return entries
	}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := cp.ExpenseLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		count, _ := strconv.Atoi(m[3])
		entries = append(entries, entity.ExpenseEntry{
			Category: strings.TrimSpace(m[1]),
			Amount:   money.Parse(m[2]),
			Count:    count,
		})
	}
	return entries
}

func firstGroup(text string, re *regexp.Regexp) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func kindOf(difference int64) entity.SurplusKind {
	switch {
	case difference > 0:
		return entity.SurplusKindSurplus
	case difference < 0:
		return entity.SurplusKindShortfall
	default:
		return entity.SurplusKindBalanced
	}
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
