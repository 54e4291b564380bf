package models

import "time"

// MinerStatus is the snapshot the control loop publishes after every cycle.
type MinerStatus struct {
	ID                  int        `json:"id"`
	Running             bool       `json:"running"`
	PID                 int        `json:"pid,omitempty"`
	StartedAt           *time.Time `json:"started_at,omitempty"`
	SessionSeconds      float64    `json:"session_seconds"`       // current session, 0 when stopped
	TotalRunningSeconds float64    `json:"total_running_seconds"` // completed sessions only
	Policy              string     `json:"policy"`                // override | threshold
	OverrideEnabled     bool       `json:"override_enabled"`
	OverrideState       string     `json:"override_state"` // ON | OFF
	LastPowerW          *float64   `json:"last_power_w,omitempty"`
	LastPowerAt         *time.Time `json:"last_power_at,omitempty"`
	StartThresholdW     float64    `json:"start_threshold_w"`
	StopThresholdW      float64    `json:"stop_threshold_w"`
	PollIntervalSeconds int        `json:"poll_interval_seconds"`
	UpdatedAt           time.Time  `json:"updated_at"`
}
