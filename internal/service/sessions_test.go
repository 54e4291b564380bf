package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"solar_mining/internal/models"
)

type fakeSessionRepo struct {
	sessions []models.Session
	err      error

	calls    int
	gotFrom  time.Time
	gotTo    time.Time
	gotLimit int
}

func (f *fakeSessionRepo) Append(context.Context, models.Session) error { return nil }

func (f *fakeSessionRepo) List(_ context.Context, from, to time.Time, limit int) ([]models.Session, error) {
	f.calls++
	f.gotFrom, f.gotTo, f.gotLimit = from, to, limit
	return f.sessions, f.err
}

func TestSessionService_ListSessions(t *testing.T) {
	t.Parallel()

	t.Run("summarizes returned sessions", func(t *testing.T) {
		t.Parallel()
		repo := &fakeSessionRepo{sessions: []models.Session{
			{ID: 2, Seconds: 1800, Policy: "threshold"},
			{ID: 1, Seconds: 600.5, Policy: "exited"},
		}}
		svc := NewSessionService(repo)

		from := time.Date(2025, 6, 1, 8, 0, 0, 0, time.FixedZone("UTC+2", 2*3600))
		got, sum, err := svc.ListSessions(context.Background(), SessionFilter{From: from, Limit: 5})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 || sum.Count != 2 || sum.TotalSeconds != 2400.5 {
			t.Fatalf("unexpected result: %+v %+v", got, sum)
		}
		if repo.gotLimit != 5 || repo.gotFrom.Location() != time.UTC || !repo.gotFrom.Equal(from) {
			t.Fatalf("repo args: from=%v limit=%d", repo.gotFrom, repo.gotLimit)
		}
	})

	t.Run("empty history is an empty slice", func(t *testing.T) {
		t.Parallel()
		got, sum, err := NewSessionService(&fakeSessionRepo{}).ListSessions(context.Background(), SessionFilter{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got == nil || len(got) != 0 || sum.Count != 0 {
			t.Fatalf("expected empty non-nil slice, got %#v", got)
		}
	})

	t.Run("invalid range", func(t *testing.T) {
		t.Parallel()
		repo := &fakeSessionRepo{}
		_, _, err := NewSessionService(repo).ListSessions(context.Background(), SessionFilter{
			From: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		})
		if !errors.Is(err, errInvalidTimeRange) || repo.calls != 0 {
			t.Fatalf("expected validation error without repo call, got %v (calls=%d)", err, repo.calls)
		}
	})

	t.Run("repo error", func(t *testing.T) {
		t.Parallel()
		repo := &fakeSessionRepo{err: errors.New("locked")}
		if _, _, err := NewSessionService(repo).ListSessions(context.Background(), SessionFilter{}); !errors.Is(err, repo.err) {
			t.Fatalf("expected repo error, got %v", err)
		}
	})
}
