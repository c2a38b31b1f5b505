package models

import "time"

// KettleEvent is a single protocol log entry.
type KettleEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // ARMED | DISARMED | ABORT | STARTUP
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
