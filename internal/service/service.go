package service

import (
	"context"

	"solar_mining/internal/controller"
	"solar_mining/internal/models"
	"solar_mining/internal/repository"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Monitoring exposes the status snapshot the control loop last published.
type Monitoring interface {
	GetStatus(ctx context.Context) (models.MinerStatus, error)
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.MinerEvent, error)
}

// Sessions exposes the history of completed mining sessions.
type Sessions interface {
	ListSessions(ctx context.Context, f SessionFilter) ([]models.Session, SessionSummary, error)
}

// Controller runs the control loop until ctx is cancelled and returns the
// final loop state. Stop it via context cancellation in main().
type Controller interface {
	Run(ctx context.Context) controller.State
}

type Service struct {
	Monitoring
	EventLog
	Sessions
	Controller
	Authorization
}

// NewService wires the repository layer and the control loop into the
// services the HTTP layer and main use. runner may be nil for read-only use.
func NewService(repos *repository.Repository, runner Controller, signingKey []byte) *Service {
	return &Service{
		Monitoring:    NewMonitoringService(repos.StatusRepo),
		EventLog:      NewEventLogService(repos.EventRepo),
		Sessions:      NewSessionService(repos.SessionRepo),
		Controller:    runner,
		Authorization: NewAuthService(repos.Auth, signingKey),
	}
}
