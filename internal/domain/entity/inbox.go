package entity

import "time"

// InboxEntry is a raw pasted text kept for audit, with its parse outcome
type InboxEntry struct {
	ID          string     `json:"id"`
	RawText     string     `json:"raw_text"`
	Status      string     `json:"status"`
	RecordCount int        `json:"record_count"`
	Errors      []string   `json:"errors"`
	Warnings    []string   `json:"warnings"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}
