package controller

import (
	"time"

	"solar_mining/internal/config"
	"solar_mining/internal/models"
	"solar_mining/internal/worker"
)

// Policy names which rule decided a cycle.
type Policy string

const (
	PolicyOverride  Policy = "override"
	PolicyThreshold Policy = "threshold"
)

// statusRowID matches the single-row miner_status table.
const statusRowID = 1

// State is owned by the control loop and passed through every cycle. It is
// never persisted; a restart begins with a zero total.
type State struct {
	Worker          worker.Handle // nil when no miner is managed
	WorkerRunning   bool
	WorkerStartedAt time.Time // zero iff Worker is nil
	WorkerPolicy    Policy    // policy that started the current session

	// TotalRunningSeconds sums completed sessions. It never decreases.
	TotalRunningSeconds float64

	LastOverrideEnabled bool
	LastOverrideState   config.OverrideState

	LastPolicy  Policy
	LastPower   float64
	LastPowerAt time.Time
}

// NewState seeds override tracking with the startup configuration so the
// first cycle does not report a change.
func NewState(cfg config.Snapshot) State {
	return State{
		LastOverrideEnabled: cfg.OverrideEnabled,
		LastOverrideState:   cfg.OverrideState,
	}
}

// SessionSeconds is the age of the current session, or 0 when stopped.
func (s State) SessionSeconds(now time.Time) float64 {
	if s.WorkerStartedAt.IsZero() {
		return 0
	}
	return sessionSeconds(s.WorkerStartedAt, now)
}

// Status renders the snapshot published after each cycle.
func (s State) Status(cfg config.Snapshot, now time.Time) models.MinerStatus {
	status := models.MinerStatus{
		ID:                  statusRowID,
		Running:             s.WorkerRunning,
		TotalRunningSeconds: s.TotalRunningSeconds,
		Policy:              string(s.LastPolicy),
		OverrideEnabled:     cfg.OverrideEnabled,
		OverrideState:       string(cfg.OverrideState),
		StartThresholdW:     cfg.ExportStartThreshold,
		StopThresholdW:      cfg.ExportStopThreshold,
		PollIntervalSeconds: int(cfg.PollInterval / time.Second),
		UpdatedAt:           now.UTC(),
	}
	if s.Worker != nil {
		status.PID = s.Worker.PID()
	}
	if !s.WorkerStartedAt.IsZero() {
		started := s.WorkerStartedAt.UTC()
		status.StartedAt = &started
		status.SessionSeconds = s.SessionSeconds(now)
	}
	if !s.LastPowerAt.IsZero() {
		watts := s.LastPower
		at := s.LastPowerAt.UTC()
		status.LastPowerW = &watts
		status.LastPowerAt = &at
	}
	return status
}

// sessionSeconds clamps at zero so a clock step backwards cannot shrink the total.
func sessionSeconds(start, end time.Time) float64 {
	if d := end.Sub(start).Seconds(); d > 0 {
		return d
	}
	return 0
}
