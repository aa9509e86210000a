package parser

import (
	"fmt"
	"strconv"

	"github.com/garyjia/cierres-audit/internal/domain/entity"
)

const unknownBusiness = "UNKNOWN"

// Combiner joins the records of one pasted text into closings. A closing is
// matched with the declared-cash message sharing its business and sequence
// ID, and with the latest opening of its business.
type Combiner struct {
	order    []string
	closings map[string]ClosingRecord
	declared map[string]DeclaredRecord
	dkeys    []string
	openings map[string]OpeningRecord
}

// NewCombiner creates an empty combiner
func NewCombiner() *Combiner {
	return &Combiner{
		closings: make(map[string]ClosingRecord),
		declared: make(map[string]DeclaredRecord),
		openings: make(map[string]OpeningRecord),
	}
}

// AddClosing registers a closing from block index. A later closing with the
// same key replaces the earlier one but keeps its position.
func (c *Combiner) AddClosing(index int, r ClosingRecord) {
	key := recordKey(r.Business, r.SequenceID, r.HasSequence, index)
	if _, ok := c.closings[key]; !ok {
		c.order = append(c.order, key)
	}
	c.closings[key] = r
}

// AddDeclared registers a declared-cash message from block index
func (c *Combiner) AddDeclared(index int, r DeclaredRecord) {
	key := recordKey(r.Business, r.SequenceID, r.HasSequence, index)
	if _, ok := c.declared[key]; !ok {
		c.dkeys = append(c.dkeys, key)
	}
	c.declared[key] = r
}

// AddOpening registers an opening; the last one per business wins
func (c *Combiner) AddOpening(r OpeningRecord) {
	business := r.Business
	if business == "" {
		business = unknownBusiness
	}
	c.openings[business] = r
}

// Records returns one closing per distinct closing key, in first-seen order,
// plus warnings for declared-cash messages that matched no closing
func (c *Combiner) Records() ([]entity.Closing, []string) {
	records := make([]entity.Closing, 0, len(c.order))
	for _, key := range c.order {
		cr := c.closings[key]
		rec := fromClosing(cr)

		if dr, ok := c.declared[key]; ok {
			rec.SystemCash = dr.SystemCash
			rec.DeclaredCash = dr.DeclaredCash
			rec.CashDifference = dr.CashDifference
			rec.SystemCards = dr.SystemCards
			rec.DeclaredCards = dr.DeclaredCards
			rec.CardDifference = dr.CardDifference
			rec.Difference = dr.Difference
			rec.SurplusKind = dr.Kind
		}

		if cr.Business != "" {
			if or, ok := c.openings[cr.Business]; ok {
				rec.NextOperator = or.Operator
				rec.NextOpeningCash = or.Value
			}
		}

		rec.Fingerprint = Fingerprint(&rec)
		records = append(records, rec)
	}

	var warnings []string
	for _, key := range c.dkeys {
		if _, ok := c.closings[key]; !ok {
			warnings = append(warnings, fmt.Sprintf("DINERO DECLARADO sin CIERRE DE CAJA correspondiente: %s", key))
		}
	}
	return records, warnings
}

func recordKey(business string, sequenceID int, hasSequence bool, index int) string {
	if business == "" {
		business = unknownBusiness
	}
	if hasSequence {
		return business + "|" + strconv.Itoa(sequenceID)
	}
	return business + "|#" + strconv.Itoa(index)
}

func fromClosing(cr ClosingRecord) entity.Closing {
	return entity.Closing{
		Date:       cr.Date,
		Business:   cr.Business,
		SequenceID: cr.SequenceID,
		Register:   cr.Register,
		Operator:   cr.Operator,
		ShiftStart: cr.ShiftStart,
		ShiftEnd:   cr.ShiftEnd,

		OpeningCash:   cr.OpeningCash,
		CashSales:     cr.CashSales,
		CashExpenses:  cr.CashExpenses,
		CashTransfers: cr.CashTransfers,
		CashPayments:  cr.CashPayments,
		CashComputed:  cr.CashComputed,
		Tips:          cr.Tips,
		Deliveries:    cr.Deliveries,
		CashTotal:     cr.CashTotal,

		SalesIncome:   cr.SalesIncome,
		Discounts:     cr.Discounts,
		Credits:       cr.Credits,
		IncomeTotal:   cr.IncomeTotal,
		TotalExpenses: cr.TotalExpenses,

		PaymentMethods: cr.PaymentMethods,
		Expenses:       cr.Expenses,

		SurplusKind: entity.SurplusKindUndeclared,
	}
}
