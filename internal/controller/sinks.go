package controller

import (
	"context"
	"errors"

	"solar_mining/internal/models"
)

// PowerReader is the part of power.Source the loop uses every cycle.
type PowerReader interface {
	InstantPower(ctx context.Context) (float64, error)
}

// EventSink receives controller events.
type EventSink interface {
	Append(ctx context.Context, e models.MinerEvent) error
}

// SessionSink receives completed sessions.
type SessionSink interface {
	Append(ctx context.Context, s models.Session) error
}

// StatusSink receives the status snapshot after each cycle.
type StatusSink interface {
	Save(ctx context.Context, s models.MinerStatus) error
}

// EventSinks fans an event out to every sink.
type EventSinks []EventSink

func (ss EventSinks) Append(ctx context.Context, e models.MinerEvent) error {
	var errs []error
	for _, s := range ss {
		if err := s.Append(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StatusSinks fans a status snapshot out to every sink.
type StatusSinks []StatusSink

func (ss StatusSinks) Save(ctx context.Context, st models.MinerStatus) error {
	var errs []error
	for _, s := range ss {
		if err := s.Save(ctx, st); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
