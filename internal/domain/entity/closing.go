package entity

import (
	"time"

	"github.com/garyjia/cierres-audit/internal/domain/workflow"
)

// PaymentMethods maps a payment method name to its amount; order is irrelevant
type PaymentMethods map[string]int64

// Total sums every method
func (p PaymentMethods) Total() int64 {
	var total int64
	for _, amount := range p {
		total += amount
	}
	return total
}

// ExpenseEntry is one line of the POS expense section
type ExpenseEntry struct {
	Category string `json:"category"`
	Amount   int64  `json:"amount"`
	Count    int    `json:"count"`
}

// Closing is one operator's shift closing: the POS closing report joined with
// the declared-cash message and the business's latest opening
type Closing struct {
	ID          string `json:"id"`
	Fingerprint string `json:"fingerprint"`
	Date        string `json:"date"` // YYYY-MM-DD
	Business    string `json:"business"`
	SequenceID  int    `json:"sequence_id"` // 0 when the report carried no ID
	Register    string `json:"register"`
	Operator    string `json:"operator"`
	ShiftStart  string `json:"shift_start"`
	ShiftEnd    string `json:"shift_end"`

	// POS cash section
	OpeningCash   int64 `json:"opening_cash"`
	CashSales     int64 `json:"cash_sales"`
	CashExpenses  int64 `json:"cash_expenses"`
	CashTransfers int64 `json:"cash_transfers"`
	CashPayments  int64 `json:"cash_payments"`
	CashComputed  int64 `json:"cash_computed"`
	Tips          int64 `json:"tips"`
	Deliveries    int64 `json:"deliveries"`
	CashTotal     int64 `json:"cash_total"`

	// POS sales section
	SalesIncome   int64 `json:"sales_income"`
	Discounts     int64 `json:"discounts"`
	Credits       int64 `json:"credits"`
	IncomeTotal   int64 `json:"income_total"`
	TotalExpenses int64 `json:"total_expenses"`

	PaymentMethods PaymentMethods `json:"payment_methods"`
	Expenses       []ExpenseEntry `json:"expenses"`

	// Declared-cash message; zero when SurplusKind is UNDECLARED
	SystemCash     int64       `json:"system_cash"`
	DeclaredCash   int64       `json:"declared_cash"`
	CashDifference int64       `json:"cash_difference"`
	SystemCards    int64       `json:"system_cards"`
	DeclaredCards  int64       `json:"declared_cards"`
	CardDifference int64       `json:"card_difference"`
	Difference     int64       `json:"difference"`
	SurplusKind    SurplusKind `json:"surplus_kind"`

	// Next shift's opening for the same business
	NextOperator    string `json:"next_operator,omitempty"`
	NextOpeningCash int64  `json:"next_opening_cash"`

	// Audit pipeline
	Risk    RiskLevel      `json:"risk"`
	State   workflow.State `json:"state"`
	Action  string         `json:"action"`
	Result  string         `json:"result"`
	Message string         `json:"message"`

	Envelope   *Envelope `json:"envelope,omitempty"`
	AdminNotes string    `json:"admin_notes,omitempty"`

	Review *ReviewResult `json:"review,omitempty"`

	RawText   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsDeclared returns true if a declared-cash message was matched
func (c *Closing) IsDeclared() bool {
	return c.SurplusKind != SurplusKindUndeclared && c.SurplusKind != ""
}

// AbsDifference returns the magnitude of the declared discrepancy
func (c *Closing) AbsDifference() int64 {
	if c.Difference < 0 {
		return -c.Difference
	}
	return c.Difference
}

// Key identifies the closing within a pasted text
func (c *Closing) Key() ClosingKey {
	return ClosingKey{Date: c.Date, Business: c.Business, SequenceID: c.SequenceID}
}

// ClosingKey is the natural identity of a closing event
type ClosingKey struct {
	Date       string
	Business   string
	SequenceID int
}

// ReviewResult is the persisted outcome of an AI evidence review
type ReviewResult struct {
	Summary    string    `json:"summary"`
	Action     string    `json:"action"`
	Message    string    `json:"message"`
	Raw        string    `json:"raw,omitempty"`
	ReviewedAt time.Time `json:"reviewed_at"`
}
