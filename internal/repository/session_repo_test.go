package repository

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"solar_mining/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func newSessionRepo(t *testing.T) (*SessionSQLite, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewSessionSQLite(db), mock
}

func TestSessionSQLite_Append(t *testing.T) {
	t.Parallel()

	started := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	stopped := started.Add(90 * time.Minute)

	tests := []struct {
		name    string
		result  error
		wantErr bool
	}{
		{name: "success"},
		{name: "exec error", result: errors.New("disk full"), wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo, mock := newSessionRepo(t)

			exp := mock.ExpectExec(regexp.QuoteMeta(insertSessionSQL)).
				WithArgs(started, stopped, 5400.0, "threshold", "Threshold: stopping miner at 300 W export")
			if tt.result != nil {
				exp.WillReturnError(tt.result)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(1, 1))
			}

			err := repo.Append(ctx(t), models.Session{
				StartedAt: started,
				StoppedAt: stopped,
				Seconds:   5400,
				Policy:    "threshold",
				Reason:    "Threshold: stopping miner at 300 W export",
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Append err = %v, wantErr %v", err, tt.wantErr)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("mock expectations: %v", err)
			}
		})
	}
}

func TestSessionSQLite_List(t *testing.T) {
	t.Parallel()

	from := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	cols := []string{"id", "started_at", "stopped_at", "seconds", "policy", "reason"}

	t.Run("filters and limit", func(t *testing.T) {
		t.Parallel()
		repo, mock := newSessionRepo(t)

		q := `SELECT id, started_at, stopped_at, seconds, policy, reason FROM miner_sessions WHERE stopped_at >= ? AND stopped_at <= ? ORDER BY stopped_at DESC LIMIT ?`
		mock.ExpectQuery(regexp.QuoteMeta(q)).
			WithArgs(from, to, 10).
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow(2, from.Add(3*time.Hour), from.Add(4*time.Hour), 3600.0, "shutdown", "controller shutting down").
				AddRow(1, from.Add(time.Hour), from.Add(2*time.Hour), 3600.0, "threshold", "stop"))

		got, err := repo.List(ctx(t), from, to, 10)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 2 || got[0].ID != 2 || got[0].Policy != "shutdown" || got[1].Seconds != 3600 {
			t.Fatalf("unexpected sessions: %+v", got)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("mock expectations: %v", err)
		}
	})

	t.Run("no filters", func(t *testing.T) {
		t.Parallel()
		repo, mock := newSessionRepo(t)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, started_at, stopped_at, seconds, policy, reason FROM miner_sessions ORDER BY stopped_at DESC`)).
			WillReturnRows(sqlmock.NewRows(cols))

		got, err := repo.List(ctx(t), time.Time{}, time.Time{}, 0)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("expected no sessions, got %+v", got)
		}
	})

	t.Run("query error", func(t *testing.T) {
		t.Parallel()
		repo, mock := newSessionRepo(t)

		mock.ExpectQuery("SELECT id, started_at").WillReturnError(errors.New("locked"))
		if _, err := repo.List(ctx(t), time.Time{}, time.Time{}, 0); err == nil {
			t.Fatalf("expected error")
		}
	})
}
