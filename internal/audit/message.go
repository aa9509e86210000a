package audit

import (
	"fmt"
	"strings"

	"github.com/garyjia/cierres-audit/internal/dates"
	"github.com/garyjia/cierres-audit/internal/domain/entity"
	"github.com/garyjia/cierres-audit/internal/money"
)

// AlertMessageInput carries everything shown in an alert message
type AlertMessageInput struct {
	Business string
	Operator string
	Date     string // YYYY-MM-DD

	SystemCash     int64
	DeclaredCash   int64
	CashDifference int64
	CardDifference int64
	Difference     int64
	Kind           entity.SurplusKind

	Risk     entity.RiskLevel
	Action   string
	Envelope *entity.Envelope
}

// MessageInput builds the message input from a closing's current state
func MessageInput(c entity.Closing) AlertMessageInput {
	return AlertMessageInput{
		Business:       c.Business,
		Operator:       c.Operator,
		Date:           c.Date,
		SystemCash:     c.SystemCash,
		DeclaredCash:   c.DeclaredCash,
		CashDifference: c.CashDifference,
		CardDifference: c.CardDifference,
		Difference:     c.Difference,
		Kind:           c.SurplusKind,
		Risk:           c.Risk,
		Action:         c.Action,
		Envelope:       c.Envelope,
	}
}

func riskEmoji(r entity.RiskLevel) string {
	switch r {
	case entity.RiskHigh:
		return "🔴"
	case entity.RiskMedium:
		return "🟡"
	case entity.RiskLow:
		return "🟠"
	default:
		return "🟢"
	}
}

// RenderAlertMessage renders the multi-line alert sent to administrators
func RenderAlertMessage(in AlertMessageInput) string {
	kind := in.Kind
	if kind == "" {
		kind = entity.SurplusKindUndeclared
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s ALERTA CIERRE\n", riskEmoji(in.Risk))
	fmt.Fprintf(&b, "📅 Fecha: %s\n", dates.DisplayFromISO(in.Date))
	fmt.Fprintf(&b, "📍 Punto: %s\n", in.Business)
	fmt.Fprintf(&b, "👤 Responsable: %s\n\n", in.Operator)

	b.WriteString("📊 RESUMEN:\n")
	fmt.Fprintf(&b, "• Efectivo Sistema: $%s\n", money.Format(in.SystemCash))
	fmt.Fprintf(&b, "• Efectivo Declarado: $%s\n", money.Format(in.DeclaredCash))
	fmt.Fprintf(&b, "• Diferencia Efectivo: $%s\n", money.FormatSigned(in.CashDifference))
	if in.CardDifference != 0 {
		fmt.Fprintf(&b, "• Diferencia Tarjetas: $%s\n", money.FormatSigned(in.CardDifference))
	}
	fmt.Fprintf(&b, "• Resultado: %s $%s\n\n", kind.Label(), money.Format(in.Difference))

	if env := in.Envelope; env != nil && env.Status != "" {
		mark := "⚠️"
		if env.Status == entity.EnvelopeConfirmed {
			mark = "✅"
		}
		b.WriteString("💼 CONFIRMACIÓN DE SOBRE:\n")
		fmt.Fprintf(&b, "• Sobre Esperado: $%s\n", money.Format(env.Expected))
		fmt.Fprintf(&b, "• Efectivo Contado: $%s\n", money.Format(env.Counted))
		fmt.Fprintf(&b, "• Diferencia vs Esperado: $%s\n", money.FormatSigned(env.Difference))
		fmt.Fprintf(&b, "• Estado: %s %s\n", mark, env.Status.Label())
		if env.Notes != "" {
			fmt.Fprintf(&b, "• Notas: %s\n", env.Notes)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("💼 Sobre: PENDIENTE_CONTEO\n\n")
	}

	fmt.Fprintf(&b, "🚦 Nivel: %s\n", in.Risk.Label())
	fmt.Fprintf(&b, "⚡ Acción: %s\n", in.Action)
	b.WriteString("📌 Estado: PENDIENTE\n")

	return b.String()
}
