package service

import (
	"context"
	"time"

	"solar_mining/internal/models"
	"solar_mining/internal/repository"
)

type MonitoringService struct {
	statusRepo repository.StatusRepo
	now        func() time.Time
}

func NewMonitoringService(statusRepo repository.StatusRepo) *MonitoringService {
	return &MonitoringService{statusRepo: statusRepo, now: time.Now}
}

// GetStatus returns the latest persisted miner status. Before the first
// cycle completes it returns a stopped baseline.
func (s *MonitoringService) GetStatus(ctx context.Context) (models.MinerStatus, error) {
	status, err := s.statusRepo.Load(ctx)
	if err != nil {
		return models.MinerStatus{}, err
	}
	if status.ID == 0 {
		return s.baselineStatus(), nil
	}
	status.UpdatedAt = toUTC(status.UpdatedAt)
	return status, nil
}

func (s *MonitoringService) baselineStatus() models.MinerStatus {
	return models.MinerStatus{
		ID:        1, // single-row table
		Running:   false,
		UpdatedAt: s.now().UTC(),
	}
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
