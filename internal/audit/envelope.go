package audit

import (
	"time"

	"github.com/garyjia/cierres-audit/internal/domain/entity"
)

// EvaluateEnvelope checks a counted envelope against the declared cash. The
// envelope should hold what was declared minus the base left in the register
// for the next shift.
func EvaluateEnvelope(declared, openingBase, counted, tolerance int64) entity.Envelope {
	expected := declared - openingBase
	difference := counted - expected

	status := entity.EnvelopeConfirmed
	if difference > tolerance || difference < -tolerance {
		status = entity.EnvelopeDiscrepancy
	}

	return entity.Envelope{
		Declared:    declared,
		OpeningBase: openingBase,
		Expected:    expected,
		Counted:     counted,
		Difference:  difference,
		Status:      status,
	}
}

// EvaluateEnvelope evaluates a count for a closing, using the next shift's
// opening value as the base and the classifier's tolerance
func (c *Classifier) EvaluateEnvelope(closing entity.Closing, counted int64, notes string, countedAt time.Time) entity.Envelope {
	env := EvaluateEnvelope(closing.DeclaredCash, closing.NextOpeningCash, counted, c.thresholds.Tolerance)
	env.Notes = notes
	env.CountedAt = countedAt
	return env
}
