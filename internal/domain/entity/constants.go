package entity

// SurplusKind tags the signed cash discrepancy declared by the operator
type SurplusKind string

const (
	SurplusKindSurplus    SurplusKind = "SURPLUS"
	SurplusKindShortfall  SurplusKind = "SHORTFALL"
	SurplusKindBalanced   SurplusKind = "BALANCED"
	SurplusKindUndeclared SurplusKind = "UNDECLARED"
)

// Label returns the tag as printed in operator-facing messages
func (k SurplusKind) Label() string {
	switch k {
	case SurplusKindSurplus:
		return "SOBRANTE"
	case SurplusKindShortfall:
		return "FALTANTE"
	case SurplusKindBalanced:
		return "OK"
	case SurplusKindUndeclared:
		return "SIN_DECLARADO"
	default:
		return string(k)
	}
}

// RiskLevel is the audit risk assigned to a closing
type RiskLevel string

const (
	RiskOK           RiskLevel = "OK"
	RiskLow          RiskLevel = "LOW"
	RiskMedium       RiskLevel = "MEDIUM"
	RiskHigh         RiskLevel = "HIGH"
	RiskNotAuditable RiskLevel = "NOT_AUDITABLE"
)

var riskRank = map[RiskLevel]int{
	RiskOK:           0,
	RiskLow:          1,
	RiskMedium:       2,
	RiskHigh:         3,
	RiskNotAuditable: 1,
}

// Rank orders risk levels for comparisons; unknown levels rank lowest
func (r RiskLevel) Rank() int {
	return riskRank[r]
}

// Label returns the level as printed in operator-facing messages
func (r RiskLevel) Label() string {
	switch r {
	case RiskOK:
		return "OK"
	case RiskLow:
		return "BAJO"
	case RiskMedium:
		return "MEDIO"
	case RiskHigh:
		return "ALTO"
	case RiskNotAuditable:
		return "NO_AUDITABLE"
	default:
		return string(r)
	}
}

// Alert status
const (
	AlertStatusPending  = "PENDING"
	AlertStatusResolved = "RESOLVED"
)

// Alert types beyond the surplus kinds
const (
	AlertTypeUndeclared = "UNDECLARED"
)

// Inbox entry status
const (
	InboxStatusReceived  = "RECEIVED"
	InboxStatusProcessed = "PROCESSED"
	InboxStatusFailed    = "FAILED"
)

// Evidence sub-folders inside a business/date folder, in review order
const (
	FolderExpenses        = "01_Gastos"
	FolderBank            = "02_Banco"
	FolderPOSClosings     = "03_Cierres_POS"
	FolderReceipts        = "04_Comprobantes"
	FolderIncomingPayment = "05_Pagos_Entrantes"
	FolderOutgoingPayment = "06_Pagos_Salientes"
	FolderOther           = "07_Otros"
)

// EvidenceFolders lists every evidence sub-folder in review order
var EvidenceFolders = []string{
	FolderExpenses,
	FolderBank,
	FolderPOSClosings,
	FolderReceipts,
	FolderIncomingPayment,
	FolderOutgoingPayment,
	FolderOther,
}
