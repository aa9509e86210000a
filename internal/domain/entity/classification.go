package entity

import (
	"time"

	"github.com/garyjia/cierres-audit/internal/domain/workflow"
)

// Classification is the risk assessment of one closing. It is produced once per
// ingested closing and replaced only by a full re-classification.
type Classification struct {
	Risk        RiskLevel      `json:"risk"`
	State       workflow.State `json:"state"`
	Action      string         `json:"action"`
	Result      string         `json:"result"`
	Message     string         `json:"message"`
	NeedsReview bool           `json:"needs_review"`
	Alert       *Alert         `json:"alert,omitempty"`
}

// Alert is raised for every closing that is not within tolerance
type Alert struct {
	ID          int64     `json:"id"`
	ClosingID   string    `json:"closing_id"`
	Date        string    `json:"date"`
	Business    string    `json:"business"`
	Operator    string    `json:"operator"`
	Severity    RiskLevel `json:"severity"`
	Type        string    `json:"type"`
	Amount      int64     `json:"amount"`
	Action      string    `json:"action"`
	Message     string    `json:"message"`
	Explanation string    `json:"explanation,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
