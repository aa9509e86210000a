package entity

import "time"

// EnvelopeStatus is the outcome of counting the physical cash envelope
type EnvelopeStatus string

const (
	EnvelopeConfirmed   EnvelopeStatus = "CONFIRMED"
	EnvelopeDiscrepancy EnvelopeStatus = "DISCREPANCY"
)

// Label returns the status as printed in operator-facing messages
func (s EnvelopeStatus) Label() string {
	switch s {
	case EnvelopeConfirmed:
		return "CONFIRMADO"
	case EnvelopeDiscrepancy:
		return "DISCREPANCIA"
	default:
		return "PENDIENTE_CONTEO"
	}
}

// Envelope records the independent count of the cash deposit. The envelope
// should hold the declared cash minus the base left for the next shift.
type Envelope struct {
	Declared    int64          `json:"declared"`
	OpeningBase int64          `json:"opening_base"`
	Expected    int64          `json:"expected"`
	Counted     int64          `json:"counted"`
	Difference  int64          `json:"difference"`
	Status      EnvelopeStatus `json:"status"`
	Notes       string         `json:"notes,omitempty"`
	CountedAt   time.Time      `json:"counted_at"`
}
