package evidence

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/garyjia/cierres-audit/internal/domain/entity"
	"github.com/garyjia/cierres-audit/internal/money"
)

const (
	noVerdict      = "SIN VEREDICTO"
	summaryPreview = 200
)

// ParseAnalysis reads the synthesis response. The JSON object is taken from
// the first '{' to the last '}', so prose or code fences around it are
// ignored. Fields are decoded one by one and a malformed field is left
// empty. Without a parseable object the summary is the start of the text.
func ParseAnalysis(text string) entity.Analysis {
	a := entity.Analysis{Raw: text}

	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		if report, ok := decodeReport([]byte(text[start : end+1])); ok {
			verdict := report.Verdict
			if verdict == "" {
				verdict = noVerdict
			}
			a.Report = report
			a.Summary = fmt.Sprintf("%s — %s", verdict, report.Summary)
			a.Action = report.Action
			return a
		}
	}

	a.Summary = preview(text, summaryPreview)
	return a
}

func decodeReport(data []byte) (*entity.AnalysisReport, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, false
	}

	var r entity.AnalysisReport
	decodeField(fields, "veredicto", &r.Verdict)
	decodeField(fields, "resumen", &r.Summary)
	decodeField(fields, "efectivo", &r.Cash)
	decodeField(fields, "gastos", &r.Expenses)
	decodeField(fields, "transferencias", &r.Transfers)
	decodeField(fields, "verificacion_matematica", &r.Arithmetic)
	decodeField(fields, "documentos_no_legibles", &r.Unreadable)
	decodeField(fields, "anomalias", &r.Anomalies)
	decodeField(fields, "accion", &r.Action)
	return &r, true
}

// decodeField sets dst only when the field is present and decodes cleanly
func decodeField[T any](fields map[string]json.RawMessage, key string, dst *T) {
	raw, ok := fields[key]
	if !ok {
		return
	}
	var v T
	if err := json.Unmarshal(raw, &v); err == nil {
		*dst = v
	}
}

func preview(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + "..."
}

// FolderSummary lists the evidence found in one folder
type FolderSummary struct {
	Folder string
	Files  []string
}

// Summarize lists every folder of a listing with its file names, in folder order
func Summarize(listing map[string][]entity.EvidenceFile) []FolderSummary {
	folders := make([]string, 0, len(listing))
	for folder := range listing {
		folders = append(folders, folder)
	}
	sort.Strings(folders)

	summary := make([]FolderSummary, 0, len(folders))
	for _, folder := range folders {
		fs := FolderSummary{Folder: folder, Files: []string{}}
		for _, f := range listing[folder] {
			fs.Files = append(fs.Files, f.Name)
		}
		summary = append(summary, fs)
	}
	return summary
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// BuildContext renders what the reviewer model needs to know about a
// closing: POS figures, declared cash, envelope count, administrator notes,
// the other shifts of the day and the evidence available
func BuildContext(c *entity.Closing, evidence []FolderSummary, sameDay []*entity.Closing) string {
	fm := money.FormatSigned
	var b strings.Builder

	b.WriteString("=== DATOS DEL CIERRE DE CAJA ===\n")
	fmt.Fprintf(&b, "Punto: %s\nFecha: %s\nResponsable: %s\n", c.Business, c.Date, orNA(c.Operator))
	fmt.Fprintf(&b, "ID Cierre: %d\nCaja: %s\nHora Inicio: %s\nHora Fin: %s\n\n",
		c.SequenceID, orNA(c.Register), orNA(c.ShiftStart), orNA(c.ShiftEnd))

	b.WriteString("--- CUADRE DE CAJA ---\n")
	fmt.Fprintf(&b, "Efectivo Inicial: $%s\n", fm(c.OpeningCash))
	fmt.Fprintf(&b, "Ventas en Efectivo: $%s\n", fm(c.CashSales))
	fmt.Fprintf(&b, "Gastos en Efectivo: $%s\n", fm(c.CashExpenses))
	fmt.Fprintf(&b, "Traslados de Caja: $%s\n", fm(c.CashTransfers))
	fmt.Fprintf(&b, "Abonos en Efectivo: $%s\n", fm(c.CashPayments))
	fmt.Fprintf(&b, "Efectivo Calculado: $%s\n", fm(c.CashComputed))
	fmt.Fprintf(&b, "Propinas: $%s\nDomicilios: $%s\n", fm(c.Tips), fm(c.Deliveries))
	fmt.Fprintf(&b, "Total Efectivo Sistema: $%s\n\n", fm(c.CashTotal))

	b.WriteString("--- VENTAS ---\n")
	fmt.Fprintf(&b, "Ingreso Ventas: $%s\nDescuentos: $%s\nCréditos: $%s\n", fm(c.SalesIncome), fm(c.Discounts), fm(c.Credits))
	fmt.Fprintf(&b, "Total Ingresos: $%s\nTotal Gastos: $%s\n", fm(c.IncomeTotal), fm(c.TotalExpenses))
	if len(c.PaymentMethods) > 0 {
		methods := make([]string, 0, len(c.PaymentMethods))
		for name := range c.PaymentMethods {
			methods = append(methods, name)
		}
		sort.Strings(methods)
		b.WriteString("Formas de Pago:\n")
		for _, name := range methods {
			fmt.Fprintf(&b, "  %s: $%s\n", name, fm(c.PaymentMethods[name]))
		}
	}
	if len(c.Expenses) > 0 {
		b.WriteString("Gastos Detalle:\n")
		for _, e := range c.Expenses {
			fmt.Fprintf(&b, "  %s: $%s (%d)\n", e.Category, money.Format(e.Amount), e.Count)
		}
	}

	b.WriteString("\n--- DINERO DECLARADO ---\n")
	if c.IsDeclared() {
		fmt.Fprintf(&b, "Efectivo Sistema: $%s\nEfectivo Declarado: $%s\nEfectivo Diferencia: $%s\n",
			fm(c.SystemCash), fm(c.DeclaredCash), fm(c.CashDifference))
		fmt.Fprintf(&b, "Tarjetas Sistema: $%s\nTarjetas Declarado: $%s\nTarjetas Diferencia: $%s\n",
			fm(c.SystemCards), fm(c.DeclaredCards), fm(c.CardDifference))
	}
	fmt.Fprintf(&b, "Resultado: %s $%s\n", c.SurplusKind.Label(), money.Format(c.Difference))

	if c.NextOpeningCash != 0 || c.NextOperator != "" {
		b.WriteString("\n--- BASES DE CAJA ---\n")
		fmt.Fprintf(&b, "Base recibida (efectivo inicial): $%s\n", fm(c.OpeningCash))
		fmt.Fprintf(&b, "Base dejada al siguiente turno: $%s (%s)\n", fm(c.NextOpeningCash), orNA(c.NextOperator))
	}

	if env := c.Envelope; env != nil && env.Status != "" {
		b.WriteString("\n--- CONFIRMACIÓN DE SOBRE ---\n")
		fmt.Fprintf(&b, "Esperado: $%s\nContado: $%s\nDiferencia: $%s\nEstado: %s\n",
			fm(env.Expected), fm(env.Counted), fm(env.Difference), env.Status.Label())
		if env.Notes != "" {
			fmt.Fprintf(&b, "Notas: %s\n", env.Notes)
		}
	}

	if c.AdminNotes != "" {
		b.WriteString("\n--- OBSERVACIONES DEL ADMINISTRADOR ---\n")
		b.WriteString(c.AdminNotes)
		b.WriteString("\n")
	}

	if len(sameDay) > 0 {
		fmt.Fprintf(&b, "\n--- OTROS CIERRES DEL MISMO DÍA (%d) ---\n", len(sameDay))
		for _, other := range sameDay {
			fmt.Fprintf(&b, ">> %s (ID %d): %s $%s\n", orNA(other.Operator), other.SequenceID,
				other.SurplusKind.Label(), money.Format(other.Difference))
			fmt.Fprintf(&b, "   Hora: %s - %s\n", orUnknown(other.ShiftStart), orUnknown(other.ShiftEnd))
		}
	}

	b.WriteString("\n--- EVIDENCIA EN DRIVE ---\n")
	if len(evidence) == 0 {
		b.WriteString("Sin carpeta de soportes para este punto y fecha\n")
	}
	for _, fs := range evidence {
		if len(fs.Files) == 0 {
			fmt.Fprintf(&b, "%s: SIN EVIDENCIA\n", fs.Folder)
			continue
		}
		fmt.Fprintf(&b, "%s: %d archivo(s) - %s\n", fs.Folder, len(fs.Files), strings.Join(fs.Files, ", "))
	}

	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}
