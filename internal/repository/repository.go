package repository

import (
	"context"
	"database/sql"
	"time"

	"solar_mining/internal/models"
)

type Authorization interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

type StatusRepo interface {
	Save(ctx context.Context, s models.MinerStatus) error
	Load(ctx context.Context) (models.MinerStatus, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.MinerEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.MinerEvent, error)
}

type SessionRepo interface {
	Append(ctx context.Context, s models.Session) error
	List(ctx context.Context, from, to time.Time, limit int) ([]models.Session, error)
}

type Repository struct {
	StatusRepo  StatusRepo
	EventRepo   EventRepo
	SessionRepo SessionRepo
	Auth        Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		StatusRepo:  NewStatusSQLite(db),
		EventRepo:   NewEventSQLite(db),
		SessionRepo: NewSessionSQLite(db),
		Auth:        NewUserRepository(db),
	}
}
