package parser

import "regexp"

// BlockKind identifies the kind of POS message a block came from
type BlockKind string

const (
	BlockClosing  BlockKind = "CIERRE"
	BlockDeclared BlockKind = "DECLARADO"
	BlockOpening  BlockKind = "APERTURA"
)

// Marker is a phrase that announces a message of the given kind
type Marker struct {
	Kind   BlockKind
	Phrase string
}

// Patterns holds every phrase and expression the parser matches against.
// DefaultPatterns reproduces the POS output; tests and other locales can
// supply their own.
type Patterns struct {
	Markers []Marker
	// MessageHeader matches a chat export header such as "[9/2/2026, 10:15:30 PM]"
	MessageHeader *regexp.Regexp
	// LookBehind bounds the backward search for a message header, in bytes
	LookBehind int
	// HeaderLines is how many candidate lines are inspected for a business name
	HeaderLines int

	BusinessHeader *regexp.Regexp
	SequenceID     *regexp.Regexp

	Closing  ClosingPatterns
	Declared DeclaredPatterns
	Opening  OpeningPatterns
}

// ClosingPatterns extract the POS closing report
type ClosingPatterns struct {
	Register   *regexp.Regexp
	Operator   *regexp.Regexp
	ShiftStart *regexp.Regexp
	ShiftEnd   *regexp.Regexp
	Date       *regexp.Regexp

	OpeningCash   *regexp.Regexp
	CashSales     *regexp.Regexp
	CashExpenses  *regexp.Regexp
	CashTransfers *regexp.Regexp
	CashPayments  *regexp.Regexp
	CashComputed  *regexp.Regexp
	Tips          *regexp.Regexp
	Deliveries    *regexp.Regexp
	CashTotal     *regexp.Regexp

	SalesIncome   *regexp.Regexp
	Discounts     *regexp.Regexp
	Credits       *regexp.Regexp
	IncomeTotal   *regexp.Regexp
	TotalExpenses *regexp.Regexp

	PaymentSection *regexp.Regexp
	PaymentLine    *regexp.Regexp
	ExpenseSection *regexp.Regexp
	ExpenseLine    *regexp.Regexp
	Unavailable    *regexp.Regexp
}

// DeclaredPatterns extract the declared-cash message
type DeclaredPatterns struct {
	SystemCash     *regexp.Regexp
	DeclaredCash   *regexp.Regexp
	CashDifference *regexp.Regexp
	SystemCards    *regexp.Regexp
	DeclaredCards  *regexp.Regexp
	CardDifference *regexp.Regexp
	Surplus        *regexp.Regexp
	Shortfall      *regexp.Regexp
}

// OpeningPatterns extract the next shift's opening message
type OpeningPatterns struct {
	Operator *regexp.Regexp
	Value    *regexp.Regexp
}

// amountAfter matches a currency amount following label
func amountAfter(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + label + `\s*\$?([\d,.\-]+)`)
}

// textAfter captures the rest of the line following label
func textAfter(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + label + `\s*(.+)`)
}

// DefaultPatterns returns the patterns for the POS used by the businesses
func DefaultPatterns() Patterns {
	return Patterns{
		Markers: []Marker{
			{Kind: BlockClosing, Phrase: "CIERRE DE CAJA"},
			{Kind: BlockDeclared, Phrase: "DINERO DECLARADO"},
			{Kind: BlockOpening, Phrase: "APERTURA DE CAJA"},
		},
		MessageHeader: regexp.MustCompile(`^\[[\d/,\s:APMapm.]+\]`),
		LookBehind:    300,
		HeaderLines:   5,

		BusinessHeader: regexp.MustCompile(`(?i)REPORTES\s+\w+:\s*(.+)`),
		SequenceID:     regexp.MustCompile(`(?i)\bID:\s*(\d+)`),

		Closing: ClosingPatterns{
			Register:   regexp.MustCompile(`(?im)^[^\pL\n]*CAJA:\s*(.+)`),
			Operator:   textAfter(`Usuario:`),
			ShiftStart: textAfter(`\bInicio:`),
			ShiftEnd:   textAfter(`\bFin:`),
			Date:       regexp.MustCompile(`(?i)Fecha:\s*\n?\s*(\d{1,2}\s+\pL+\s+\d{4}\s*,?\s*[\d:]+\s*(?:am|pm)?)`),

			OpeningCash:   amountAfter(`Efectivo Inicial:`),
			CashSales:     amountAfter(`Ventas en Efectivo:`),
			CashExpenses:  amountAfter(`Gastos en Efectivo:`),
			CashTransfers: amountAfter(`Traslados de caja:`),
			CashPayments:  amountAfter(`Abonos en Efectivo:`),
			CashComputed:  amountAfter(`\(=\)\s*EFECTIVO`),
			Tips:          amountAfter(`Propinas:`),
			Deliveries:    amountAfter(`Domicilios:`),
			CashTotal:     amountAfter(`TOTAL EFECTIVO`),

			SalesIncome:   amountAfter(`Ingreso de Ventas:`),
			Discounts:     amountAfter(`Descuentos:`),
			Credits:       amountAfter(`Creditos:`),
			IncomeTotal:   amountAfter(`TOTAL INGRESOS`),
			TotalExpenses: amountAfter(`DATOS DE VENTAS[\s\S]*?\(-\)\s*Gastos:`),

			PaymentSection: regexp.MustCompile(`(?i)FORMAS DE PAGO:([\s\S]*?)(?:▪\x{FE0F}?|$)`),
			PaymentLine:    regexp.MustCompile(`^(.+?):\s*\$?([\d,.\-]+)`),
			ExpenseSection: regexp.MustCompile(`(?i)▪\x{FE0F}?\s*GASTOS:([\s\S]*?)(?:▪\x{FE0F}?|Fecha:|$)`),
			ExpenseLine:    regexp.MustCompile(`^(.+?):\s*\$?-?([\d,.\-]+)\s*\((\d+)\)`),
			Unavailable:    regexp.MustCompile(`(?i)No disponible`),
		},

		Declared: DeclaredPatterns{
			SystemCash:     amountAfter(`Efectivo Sistema:`),
			DeclaredCash:   amountAfter(`Efectivo Declarado:`),
			CashDifference: amountAfter(`Efectivo Diferencia:?`),
			SystemCards:    amountAfter(`Tarjetas y Otros Sistema:`),
			DeclaredCards:  amountAfter(`Tarjetas y Otros Declarado:`),
			CardDifference: amountAfter(`Tarjetas y Otros Diferencia:?`),
			Surplus:        amountAfter(`SOBRANTE:?`),
			Shortfall:      amountAfter(`FALTANTE:?`),
		},

		Opening: OpeningPatterns{
			Operator: textAfter(`Usuario:`),
			Value:    amountAfter(`Valor:`),
		},
	}
}
