package evidence

import (
	"fmt"
	"strings"

	"github.com/garyjia/cierres-audit/internal/dates"
	"github.com/garyjia/cierres-audit/internal/domain/entity"
	"github.com/garyjia/cierres-audit/internal/money"
)

const (
	mark        = "OK"
	cross       = "XX"
	noReceipt   = "SIN SOPORTE"
	manualCheck = "Revisar manualmente"
)

func check(ok entity.Flag) string {
	if ok {
		return mark
	}
	return cross
}

// RenderReport renders the review outcome for administrators. Sections the
// model left empty are omitted.
func RenderReport(c *entity.Closing, a entity.Analysis, sameDay []*entity.Closing) string {
	var b strings.Builder

	fmt.Fprintf(&b, "CIERRE: %s | %s", c.Business, dates.DisplayFromISO(c.Date))
	if c.ShiftStart != "" || c.ShiftEnd != "" {
		fmt.Fprintf(&b, " | %s-%s", orUnknown(c.ShiftStart), orUnknown(c.ShiftEnd))
	}
	risk := "N/A"
	if c.Risk != "" {
		risk = c.Risk.Label()
	}
	fmt.Fprintf(&b, "\nCajero: %s | Nivel: %s\n", orNA(c.Operator), risk)

	if r := a.Report; r != nil {
		verdict := r.Verdict
		if verdict == "" {
			verdict = "N/A"
		}
		fmt.Fprintf(&b, "VEREDICTO: %s — %s\n\n", verdict, r.Summary)
		renderCash(&b, r.Cash)
		renderExpenses(&b, r.Expenses)
		renderTransfers(&b, r.Transfers)
		renderArithmetic(&b, r.Arithmetic)
		if len(r.Unreadable) > 0 {
			fmt.Fprintf(&b, "NO LEGIBLES: %s\n\n", strings.Join(r.Unreadable, ", "))
		}
		if len(r.Anomalies) > 0 {
			b.WriteString("ANOMALIAS:\n")
			for _, anomaly := range r.Anomalies {
				fmt.Fprintf(&b, "  ! %s\n", anomaly)
			}
			b.WriteString("\n")
		}
		if r.Action != "" {
			fmt.Fprintf(&b, "ACCION: %s\n", r.Action)
		}
	} else {
		action := a.Action
		if action == "" {
			action = manualCheck
		}
		fmt.Fprintf(&b, "VEREDICTO: %s\n\nACCION: %s\n", a.Summary, action)
	}

	if len(sameDay) > 0 {
		b.WriteString("\nOTROS TURNOS:\n")
		for _, other := range sameDay {
			fmt.Fprintf(&b, "  %s: %s $%s\n", orUnknown(other.Operator), other.SurplusKind.Label(), money.Format(other.Difference))
		}
	}

	return b.String()
}

func renderCash(b *strings.Builder, cash *entity.CashCheck) {
	if cash == nil {
		return
	}
	b.WriteString("EFECTIVO:\n")
	fmt.Fprintf(b, "  Sistema: $%s | Declarado: $%s", money.Format(int64(cash.System)), money.Format(int64(cash.Declared)))
	if cash.Envelope != nil {
		fmt.Fprintf(b, " | Sobre: $%s", money.Format(int64(*cash.Envelope)))
	}
	fmt.Fprintf(b, "\n  Diferencia: $%s", money.FormatSigned(int64(cash.Difference)))
	if cash.Explanation != "" {
		fmt.Fprintf(b, " (%s)", cash.Explanation)
	}
	b.WriteString("\n\n")
}

func renderExpenses(b *strings.Builder, expenses []entity.ExpenseCheck) {
	if len(expenses) == 0 {
		return
	}
	verified := 0
	for _, e := range expenses {
		if e.Verified {
			verified++
		}
	}
	fmt.Fprintf(b, "GASTOS VERIFICADOS (%d/%d):\n", verified, len(expenses))
	for _, e := range expenses {
		fmt.Fprintf(b, "  %s %s — $%s", check(e.Verified), e.Concept, money.Format(int64(e.Amount)))
		switch {
		case e.Receipt != "" && e.Receipt != noReceipt:
			fmt.Fprintf(b, " (%s)", e.Receipt)
		case !bool(e.Verified):
			b.WriteString(" — " + noReceipt)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func renderTransfers(b *strings.Builder, transfers []entity.TransferCheck) {
	if len(transfers) == 0 {
		return
	}
	b.WriteString("TRANSFERENCIAS:\n")
	for _, t := range transfers {
		fmt.Fprintf(b, "  %s %s $%s", check(t.Verified), t.Kind, money.Format(int64(t.Amount)))
		if t.Screenshot != "" {
			fmt.Fprintf(b, " (%s)", t.Screenshot)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func renderArithmetic(b *strings.Builder, ar *entity.ArithmeticCheck) {
	if ar == nil || (ar.CashFormula == "" && ar.DeclaredFormula == "" && ar.ShiftChain == "") {
		return
	}
	b.WriteString("VERIFICACION MATEMATICA:\n")
	for _, line := range []struct{ label, value string }{
		{"Efectivo", ar.CashFormula},
		{"Declarado", ar.DeclaredFormula},
		{"Cadena de turnos", ar.ShiftChain},
	} {
		if line.value != "" {
			fmt.Fprintf(b, "  %s: %s\n", line.label, line.value)
		}
	}
	b.WriteString("\n")
}
