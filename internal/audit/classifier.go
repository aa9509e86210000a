package audit

import (
	"fmt"

	"github.com/garyjia/cierres-audit/internal/domain/entity"
	"github.com/garyjia/cierres-audit/internal/domain/workflow"
	"github.com/garyjia/cierres-audit/internal/money"
)

// Classifier maps a closing's discrepancy to a risk level and pipeline state
type Classifier struct {
	thresholds Thresholds
}

// NewClassifier creates a classifier with the given thresholds
func NewClassifier(thresholds Thresholds) *Classifier {
	return &Classifier{thresholds: thresholds}
}

// Thresholds returns the classifier's bounds
func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// Classify assigns risk, pipeline state and recommended action to a closing.
// It is pure and never fails: a closing without a declared-cash message is
// NOT_AUDITABLE.
func (c *Classifier) Classify(closing entity.Closing) entity.Classification {
	d := closing.AbsDifference()

	var (
		risk   entity.RiskLevel
		state  workflow.State
		action string
	)
	switch {
	case !closing.IsDeclared():
		risk = entity.RiskNotAuditable
		state = workflow.StatePending
		action = "Falta el mensaje de DINERO DECLARADO. Pedir al cajero y pegarlo."
	case d <= c.thresholds.Tolerance:
		risk = entity.RiskOK
		state = workflow.StateAIDone
		action = fmt.Sprintf("Sin acción requerida. Cierre dentro de tolerancia ($%s).", money.Format(c.thresholds.Tolerance))
	case d <= c.thresholds.Low:
		risk = entity.RiskLow
		state = workflow.StateAIDone
		action = "Contar el sobre físico y registrar el conteo."
	case d <= c.thresholds.Medium:
		risk = entity.RiskMedium
		state = workflow.StateAwaitingEnvelope
		action = fmt.Sprintf("Contar sobre físico. Subir fotos de soportes a Drive (carpeta %s/%s). Esperar análisis IA.",
			closing.Business, closing.Date)
	default:
		risk = entity.RiskHigh
		state = workflow.StateAwaitingEnvelope
		action = fmt.Sprintf("URGENTE: Contar sobre AHORA. Subir TODOS los soportes a Drive. Llamar al cajero %s para explicación.",
			closing.Operator)
	}

	input := MessageInput(closing)
	input.Risk = risk
	input.Action = action
	input.Envelope = nil
	message := RenderAlertMessage(input)

	result := entity.Classification{
		Risk:        risk,
		State:       state,
		Action:      action,
		Result:      ResultLabel(closing),
		Message:     message,
		NeedsReview: risk == entity.RiskMedium || risk == entity.RiskHigh,
	}

	if risk != entity.RiskOK {
		alert := &entity.Alert{
			ClosingID: closing.ID,
			Date:      closing.Date,
			Business:  closing.Business,
			Operator:  closing.Operator,
			Severity:  risk,
			Type:      string(closing.SurplusKind),
			Amount:    closing.Difference,
			Action:    action,
			Message:   message,
			Status:    entity.AlertStatusPending,
		}
		if risk == entity.RiskNotAuditable {
			alert.Severity = entity.RiskLow
			alert.Type = entity.AlertTypeUndeclared
		}
		result.Alert = alert
	}

	return result
}

// ResultLabel renders the discrepancy as "<KIND> $<amount>", e.g. "FALTANTE $37,150"
func ResultLabel(closing entity.Closing) string {
	kind := closing.SurplusKind
	if kind == "" {
		kind = entity.SurplusKindUndeclared
	}
	return fmt.Sprintf("%s $%s", kind.Label(), money.Format(closing.Difference))
}

// Apply copies a classification onto the closing
func Apply(closing *entity.Closing, cl entity.Classification) {
	closing.Risk = cl.Risk
	closing.State = cl.State
	closing.Action = cl.Action
	closing.Result = cl.Result
	closing.Message = cl.Message
}
