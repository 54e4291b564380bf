package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"solar_mining/internal/models"
)

type SessionSQLite struct {
	db *sql.DB
}

func NewSessionSQLite(db *sql.DB) *SessionSQLite { return &SessionSQLite{db: db} }

const insertSessionSQL = `
	INSERT INTO miner_sessions (started_at, stopped_at, seconds, policy, reason)
	VALUES (?, ?, ?, ?, ?)
`

// Append stores a completed session. Sessions are history only; they never
// seed the running total after a restart.
func (r *SessionSQLite) Append(ctx context.Context, s models.Session) error {
	_, err := r.db.ExecContext(ctx, insertSessionSQL,
		s.StartedAt.UTC(),
		s.StoppedAt.UTC(),
		s.Seconds,
		s.Policy,
		s.Reason,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// List returns sessions that stopped within [from, to], newest first. A
// non-positive limit returns all of them.
func (r *SessionSQLite) List(ctx context.Context, from, to time.Time, limit int) ([]models.Session, error) {
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "stopped_at >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		conds = append(conds, "stopped_at <= ?")
		args = append(args, to.UTC())
	}

	q := `SELECT id, started_at, stopped_at, seconds, policy, reason FROM miner_sessions`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY stopped_at DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Session
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.ID, &s.StartedAt, &s.StoppedAt, &s.Seconds, &s.Policy, &s.Reason); err != nil {
			return nil, err
		}
		s.StartedAt = s.StartedAt.UTC()
		s.StoppedAt = s.StoppedAt.UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
