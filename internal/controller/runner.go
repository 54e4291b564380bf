package controller

import (
	"context"
	"fmt"
	"time"

	"solar_mining/internal/config"
	"solar_mining/internal/logger"
)

// SnapshotLoader supplies the configuration for each cycle.
type SnapshotLoader interface {
	Snapshot() config.Snapshot
}

// Runner drives the controller on the configured poll interval.
type Runner struct {
	ctrl   *Controller
	config SnapshotLoader
	status StatusSink
	log    *logger.Logger
	now    func() time.Time
}

// NewRunner wires a controller to its configuration and status sinks. status may be nil.
func NewRunner(ctrl *Controller, cfg SnapshotLoader, status StatusSink, log *logger.Logger) *Runner {
	if status == nil {
		status = StatusSinks(nil)
	}
	return &Runner{ctrl: ctrl, config: cfg, status: status, log: log, now: time.Now}
}

// Run executes cycles until ctx is cancelled, then stops the miner if it is
// still running and returns the final state. The configuration is re-read
// before every cycle, so the poll interval may change between waits.
func (r *Runner) Run(ctx context.Context) State {
	cfg := r.config.Snapshot()
	st := NewState(cfg)
	r.log.Infow("control loop started",
		"start_threshold_w", cfg.ExportStartThreshold,
		"stop_threshold_w", cfg.ExportStopThreshold,
		"poll_interval", cfg.PollInterval,
		"override_enabled", cfg.OverrideEnabled,
		"override_state", cfg.OverrideState,
	)

	for {
		st = r.ctrl.Step(ctx, cfg, st)
		r.publish(ctx, cfg, st)

		if !wait(ctx, cfg.PollInterval) {
			break
		}
		cfg = r.config.Snapshot()
	}
	return r.shutdown(cfg, st)
}

func (r *Runner) shutdown(cfg config.Snapshot, st State) State {
	ctx := context.Background()
	next, err := r.ctrl.Shutdown(ctx, cfg.StopGracePeriod, st)
	if err != nil {
		r.log.Errorw("failed to stop miner on shutdown", "err", err)
	}
	r.publish(ctx, cfg, next)
	r.log.Infow("control loop stopped", "total_running_s", fmt.Sprintf("%.1f", next.TotalRunningSeconds))
	return next
}

func (r *Runner) publish(ctx context.Context, cfg config.Snapshot, st State) {
	if err := r.status.Save(context.WithoutCancel(ctx), st.Status(cfg, r.now())); err != nil {
		r.log.Warnw("failed to publish status", "err", err)
	}
}

// wait sleeps for d and reports false if ctx ended first.
func wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
