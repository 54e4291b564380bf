package service

import (
	"context"

	"solar_mining/internal/models"
	"solar_mining/internal/repository"
)

// SessionSummary totals the sessions returned by a query.
type SessionSummary struct {
	Count        int     `json:"count"`
	TotalSeconds float64 `json:"total_seconds"`
}

type SessionService struct {
	sessionRepo repository.SessionRepo
}

func NewSessionService(sessionRepo repository.SessionRepo) *SessionService {
	return &SessionService{sessionRepo: sessionRepo}
}

// ListSessions returns completed sessions newest first, with their total.
// The total covers persisted history only; it is independent of the
// in-memory running total, which restarts at zero with the process.
func (s *SessionService) ListSessions(ctx context.Context, f SessionFilter) ([]models.Session, SessionSummary, error) {
	from, to, err := normalizeRange(f.From, f.To)
	if err != nil {
		return nil, SessionSummary{}, err
	}
	sessions, err := s.sessionRepo.List(ctx, from, to, f.Limit)
	if err != nil {
		return nil, SessionSummary{}, err
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	return sessions, summarize(sessions), nil
}

func summarize(sessions []models.Session) SessionSummary {
	sum := SessionSummary{Count: len(sessions)}
	for _, s := range sessions {
		sum.TotalSeconds += s.Seconds
	}
	return sum
}
