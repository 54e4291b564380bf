// Package controller decides, once per poll interval, whether the miner
// should run, and starts or stops it accordingly.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solar_mining/internal/config"
	"solar_mining/internal/logger"
	"solar_mining/internal/models"
	"solar_mining/internal/worker"

	"github.com/google/uuid"
)

// Session labels for stops that no policy decided.
const (
	labelExited   = "exited"
	labelShutdown = "shutdown"
)

// Controller runs single control cycles. It holds no cycle state of its own;
// everything mutable lives in State.
type Controller struct {
	power    PowerReader
	launcher worker.Launcher
	events   EventSink
	sessions SessionSink
	log      *logger.Logger
	now      func() time.Time
}

// New builds a controller. events and sessions may be nil.
func New(power PowerReader, launcher worker.Launcher, events EventSink, sessions SessionSink, log *logger.Logger) *Controller {
	if events == nil {
		events = EventSinks(nil)
	}
	if sessions == nil {
		sessions = discardSessions{}
	}
	return &Controller{
		power:    power,
		launcher: launcher,
		events:   events,
		sessions: sessions,
		log:      log,
		now:      time.Now,
	}
}

// Cycle runs one control cycle against cfg and returns the next state.
//
// Under the threshold policy the power source is read first; if that fails
// the input state is returned untouched and the worker is left alone.
func (c *Controller) Cycle(ctx context.Context, cfg config.Snapshot, st State) (State, error) {
	policy := policyFor(cfg)

	var watts float64
	if policy == PolicyThreshold {
		w, err := c.power.InstantPower(ctx)
		if err != nil {
			return st, fmt.Errorf("read power: %w", err)
		}
		watts = w
	}

	now := c.now()
	next := st
	next.LastPolicy = policy
	if policy == PolicyThreshold {
		next.LastPower = watts
		next.LastPowerAt = now
		c.log.Infow("site power", "instant_power_w", watts)
	}
	c.observeOverride(ctx, cfg, &next, now)
	c.reapExited(ctx, &next, now)

	var action Action
	if policy == PolicyOverride {
		action = decideOverride(cfg.OverrideState, next.WorkerRunning)
	} else {
		action = decideThreshold(watts, cfg.ExportStartThreshold, cfg.ExportStopThreshold, next.WorkerRunning)
	}

	switch action {
	case ActionStart:
		return c.start(ctx, cfg, next, policy, watts)
	case ActionStop:
		return c.stop(ctx, cfg.StopGracePeriod, next, string(policy), stopReason(policy, watts))
	default:
		return next, nil
	}
}

// Step runs Cycle and absorbs its failures: errors are logged and recorded,
// and a panic leaves the state as it was. The loop never dies from a cycle.
func (c *Controller) Step(ctx context.Context, cfg config.Snapshot, st State) (next State) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorw("control cycle panicked", "panic", r)
			c.record(ctx, models.EventError, fmt.Sprintf("control cycle panicked: %v", r), nil)
			next = st
		}
	}()

	var err error
	next, err = c.Cycle(ctx, cfg, st)
	if err == nil {
		return next
	}
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		c.log.Debugw("control cycle interrupted", "err", err)
		return next
	}
	c.log.Errorw("error reading power or controlling miner", "err", err)
	c.record(ctx, models.EventError, err.Error(), map[string]any{"policy": policyFor(cfg)})
	return next
}

// Shutdown stops a live worker and closes its session. It is a no-op when
// nothing runs.
func (c *Controller) Shutdown(ctx context.Context, grace time.Duration, st State) (State, error) {
	c.reapExited(ctx, &st, c.now())
	return c.stop(ctx, grace, st, labelShutdown, "controller shutting down")
}

func (c *Controller) start(ctx context.Context, cfg config.Snapshot, st State, policy Policy, watts float64) (State, error) {
	if alive(st) {
		return st, nil
	}
	h, err := c.launcher.Start(cfg.WorkerCommand)
	if err != nil {
		return st, fmt.Errorf("start miner: %w", err)
	}

	st.Worker = h
	st.WorkerRunning = true
	st.WorkerStartedAt = c.now()
	st.WorkerPolicy = policy

	meta := map[string]any{"policy": policy, "pid": h.PID()}
	desc := "Override: forcing miner ON"
	if policy == PolicyThreshold {
		meta["site_power_w"] = watts
		meta["start_threshold_w"] = cfg.ExportStartThreshold
		desc = fmt.Sprintf("Threshold: starting miner at %.0f W export", watts)
	}
	c.log.Infow("miner started", "policy", policy, "pid", h.PID())
	c.record(ctx, models.EventStart, desc, meta)
	return st, nil
}

// stop ends the worker within grace (0 waits indefinitely) and folds the
// session into the total. If the worker survives, the state is unchanged.
func (c *Controller) stop(ctx context.Context, grace time.Duration, st State, label, reason string) (State, error) {
	if !alive(st) {
		return st, nil
	}
	pid := st.Worker.PID()

	stopCtx := context.WithoutCancel(ctx)
	if grace > 0 {
		var cancel context.CancelFunc
		stopCtx, cancel = context.WithTimeout(stopCtx, grace)
		defer cancel()
	}
	err := st.Worker.Stop(stopCtx)
	if st.Worker.Alive() {
		if err == nil {
			err = errors.New("process still alive")
		}
		return st, fmt.Errorf("stop miner pid %d: %w", pid, err)
	}
	if errors.Is(err, worker.ErrKilled) {
		c.log.Warnw("miner ignored SIGTERM and was killed", "pid", pid, "grace", grace)
	} else if err != nil {
		c.log.Warnw("miner stop reported an error", "pid", pid, "err", err)
	}

	now := c.now()
	seconds := c.closeSession(ctx, &st, now, label, reason)
	c.log.Infow("miner stopped",
		"reason", reason,
		"session_s", fmt.Sprintf("%.1f", seconds),
		"total_running_s", fmt.Sprintf("%.1f", st.TotalRunningSeconds),
	)
	c.record(ctx, models.EventStop, reason, map[string]any{
		"policy":          label,
		"pid":             pid,
		"session_seconds": seconds,
		"total_seconds":   st.TotalRunningSeconds,
	})
	return st, nil
}

// reapExited notices a worker that exited on its own and closes its session
// at detection time.
func (c *Controller) reapExited(ctx context.Context, st *State, now time.Time) {
	if st.Worker == nil {
		st.WorkerRunning = false
		return
	}
	if st.Worker.Alive() {
		st.WorkerRunning = true
		return
	}
	pid := st.Worker.PID()
	seconds := c.closeSession(ctx, st, now, labelExited, "miner exited on its own")
	c.log.Warnw("miner exited on its own", "pid", pid, "session_s", fmt.Sprintf("%.1f", seconds))
	c.record(ctx, models.EventExited, "miner process exited unexpectedly", map[string]any{
		"pid":             pid,
		"session_seconds": seconds,
		"total_seconds":   st.TotalRunningSeconds,
	})
}

// closeSession adds the finished session to the total, records it and clears
// the worker fields.
func (c *Controller) closeSession(ctx context.Context, st *State, now time.Time, label, reason string) float64 {
	var seconds float64
	if !st.WorkerStartedAt.IsZero() {
		seconds = sessionSeconds(st.WorkerStartedAt, now)
		if err := c.sessions.Append(context.WithoutCancel(ctx), models.Session{
			StartedAt: st.WorkerStartedAt.UTC(),
			StoppedAt: now.UTC(),
			Seconds:   seconds,
			Policy:    label,
			Reason:    reason,
		}); err != nil {
			c.log.Warnw("failed to record session", "err", err)
		}
	}
	st.TotalRunningSeconds += seconds
	st.Worker = nil
	st.WorkerRunning = false
	st.WorkerStartedAt = time.Time{}
	st.WorkerPolicy = ""
	return seconds
}

func (c *Controller) observeOverride(ctx context.Context, cfg config.Snapshot, st *State, now time.Time) {
	if cfg.OverrideEnabled == st.LastOverrideEnabled && cfg.OverrideState == st.LastOverrideState {
		return
	}
	c.log.Infow("override changed",
		"enabled", cfg.OverrideEnabled,
		"state", cfg.OverrideState,
		"previous_enabled", st.LastOverrideEnabled,
		"previous_state", st.LastOverrideState,
	)
	c.recordAt(ctx, now, models.EventOverrideChange,
		fmt.Sprintf("override enabled=%t state=%s", cfg.OverrideEnabled, cfg.OverrideState),
		map[string]any{
			"enabled":          cfg.OverrideEnabled,
			"state":            cfg.OverrideState,
			"previous_enabled": st.LastOverrideEnabled,
			"previous_state":   st.LastOverrideState,
		})
	st.LastOverrideEnabled = cfg.OverrideEnabled
	st.LastOverrideState = cfg.OverrideState
}

func (c *Controller) record(ctx context.Context, typ, desc string, meta map[string]any) {
	c.recordAt(ctx, c.now(), typ, desc, meta)
}

func (c *Controller) recordAt(ctx context.Context, at time.Time, typ, desc string, meta map[string]any) {
	e := models.MinerEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  at.UTC(),
		Type:        typ,
		Description: desc,
	}
	if meta != nil {
		e.Metadata = meta
	}
	if err := c.events.Append(context.WithoutCancel(ctx), e); err != nil {
		c.log.Warnw("failed to record event", "type", typ, "err", err)
	}
}

func policyFor(cfg config.Snapshot) Policy {
	if cfg.OverrideEnabled {
		return PolicyOverride
	}
	return PolicyThreshold
}

func alive(st State) bool {
	return st.Worker != nil && st.Worker.Alive()
}

func stopReason(policy Policy, watts float64) string {
	if policy == PolicyOverride {
		return "Override: forcing miner OFF"
	}
	return fmt.Sprintf("Threshold: stopping miner at %.0f W export", watts)
}

type discardSessions struct{}

func (discardSessions) Append(context.Context, models.Session) error { return nil }
