package models

import "time"

// Event types recorded by the controller.
const (
	EventStart          = "START"
	EventStop           = "STOP"
	EventExited         = "EXITED"
	EventOverrideChange = "OVERRIDE_CHANGE"
	EventError          = "ERROR"
)

// MinerEvent is a single log entry.
type MinerEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // START | STOP | EXITED | OVERRIDE_CHANGE | ERROR
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
