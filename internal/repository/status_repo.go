package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"solar_mining/internal/models"
)

type StatusSQLite struct {
	db *sql.DB
}

func NewStatusSQLite(db *sql.DB) *StatusSQLite {
	return &StatusSQLite{db: db}
}

const (
	minerStatusRowID = 1

	upsertStatusSQL = `
		INSERT INTO miner_status (id, running, pid, started_at, session_s, total_s, policy,
			override_enabled, override_state, last_power_w, last_power_at,
			start_threshold_w, stop_threshold_w, poll_interval_s, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			running=excluded.running,
			pid=excluded.pid,
			started_at=excluded.started_at,
			session_s=excluded.session_s,
			total_s=excluded.total_s,
			policy=excluded.policy,
			override_enabled=excluded.override_enabled,
			override_state=excluded.override_state,
			last_power_w=excluded.last_power_w,
			last_power_at=excluded.last_power_at,
			start_threshold_w=excluded.start_threshold_w,
			stop_threshold_w=excluded.stop_threshold_w,
			poll_interval_s=excluded.poll_interval_s,
			updated_at=excluded.updated_at
	`

	selectStatusSQL = `
		SELECT id, running, pid, started_at, session_s, total_s, policy,
			override_enabled, override_state, last_power_w, last_power_at,
			start_threshold_w, stop_threshold_w, poll_interval_s, updated_at
		FROM miner_status WHERE id=?
	`
)

// Save updates or inserts the miner_status row (id always 1).
func (r *StatusSQLite) Save(ctx context.Context, s models.MinerStatus) error {
	updated := s.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	_, err := r.db.ExecContext(ctx, upsertStatusSQL,
		minerStatusRowID,
		s.Running,
		s.PID,
		nullTime(s.StartedAt),
		s.SessionSeconds,
		s.TotalRunningSeconds,
		s.Policy,
		s.OverrideEnabled,
		s.OverrideState,
		nullFloat(s.LastPowerW),
		nullTime(s.LastPowerAt),
		s.StartThresholdW,
		s.StopThresholdW,
		s.PollIntervalSeconds,
		updated.UTC(),
	)
	return err
}

// Load fetches the single miner_status row. Before the first cycle there is
// no row and a zero status is returned.
func (r *StatusSQLite) Load(ctx context.Context) (models.MinerStatus, error) {
	row := r.db.QueryRowContext(ctx, selectStatusSQL, minerStatusRowID)

	var (
		s           models.MinerStatus
		startedAt   sql.NullTime
		lastPowerW  sql.NullFloat64
		lastPowerAt sql.NullTime
	)
	if err := row.Scan(
		&s.ID,
		&s.Running,
		&s.PID,
		&startedAt,
		&s.SessionSeconds,
		&s.TotalRunningSeconds,
		&s.Policy,
		&s.OverrideEnabled,
		&s.OverrideState,
		&lastPowerW,
		&lastPowerAt,
		&s.StartThresholdW,
		&s.StopThresholdW,
		&s.PollIntervalSeconds,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.MinerStatus{}, nil
		}
		return models.MinerStatus{}, err
	}

	if startedAt.Valid {
		t := startedAt.Time.UTC()
		s.StartedAt = &t
	}
	if lastPowerW.Valid {
		w := lastPowerW.Float64
		s.LastPowerW = &w
	}
	if lastPowerAt.Valid {
		t := lastPowerAt.Time.UTC()
		s.LastPowerAt = &t
	}
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
