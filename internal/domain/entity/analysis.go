package entity

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/garyjia/cierres-audit/internal/money"
)

// Verdicts the reviewer model may return
const (
	VerdictBalanced      = "CUADRA"
	VerdictMinorMismatch = "DESCUADRE_MENOR"
	VerdictMajorMismatch = "DESCUADRE_MAYOR"
)

// Analysis is the outcome of the synthesis call. Report is nil when the
// response carried no parseable JSON; Summary then holds a truncated copy of
// the raw text.
type Analysis struct {
	Report  *AnalysisReport `json:"report,omitempty"`
	Summary string          `json:"summary"`
	Action  string          `json:"action"`
	Raw     string          `json:"raw"`
}

// Structured returns true if the model returned a parseable report
func (a Analysis) Structured() bool {
	return a.Report != nil
}

// AnalysisReport is the JSON object the reviewer model is asked to produce.
// Every field is optional.
type AnalysisReport struct {
	Verdict    string           `json:"veredicto"`
	Summary    string           `json:"resumen"`
	Cash       *CashCheck       `json:"efectivo,omitempty"`
	Expenses   []ExpenseCheck   `json:"gastos,omitempty"`
	Transfers  []TransferCheck  `json:"transferencias,omitempty"`
	Arithmetic *ArithmeticCheck `json:"verificacion_matematica,omitempty"`
	Unreadable []string         `json:"documentos_no_legibles,omitempty"`
	Anomalies  []string         `json:"anomalias,omitempty"`
	Action     string           `json:"accion"`
}

// CashCheck reconciles system, declared and envelope cash
type CashCheck struct {
	System      Amount  `json:"sistema"`
	Declared    Amount  `json:"declarado"`
	Envelope    *Amount `json:"sobre,omitempty"`
	Difference  Amount  `json:"diferencia"`
	Explanation string  `json:"explicacion"`
}

// ExpenseCheck is the verification of one expense against its receipt
type ExpenseCheck struct {
	Concept  string `json:"concepto"`
	Amount   Amount `json:"monto"`
	Receipt  string `json:"soporte"`
	Verified Flag   `json:"verificado"`
}

// TransferCheck is the verification of one electronic payment
type TransferCheck struct {
	Kind       string `json:"tipo"`
	Amount     Amount `json:"monto"`
	Screenshot string `json:"screenshot"`
	Verified   Flag   `json:"verificado"`
}

// ArithmeticCheck holds the named consistency checks
type ArithmeticCheck struct {
	CashFormula     string `json:"formula_efectivo"`
	DeclaredFormula string `json:"formula_declarado"`
	ShiftChain      string `json:"cadena_turnos"`
}

// Amount is a peso amount that accepts JSON numbers, currency strings and null
type Amount int64

// UnmarshalJSON implements json.Unmarshaler
func (a *Amount) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	*a = Amount(money.ParseAny(v))
	return nil
}

// Flag is a boolean that also accepts "true", "si" and "yes" strings
type Flag bool

// UnmarshalJSON implements json.Unmarshaler
func (f *Flag) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*f = Flag(t)
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "si", "sí", "yes", "verificado":
			*f = true
		default:
			*f = false
		}
	default:
		*f = false
	}
	return nil
}
