package services

import (
	"context"
	"errors"
	"time"

	domain "github.com/attaleem/api/internal/domain"
	"github.com/attaleem/api/internal/repositories"
)

// SystemServiceDeps wires the dependencies required by the system service.
type SystemServiceDeps struct {
	Health      repositories.HealthRepository
	Version     string
	Environment string
	StartedAt   time.Time
	Clock       func() time.Time
}

type systemService struct {
	health      repositories.HealthRepository
	version     string
	environment string
	startedAt   time.Time
	clock       func() time.Time
}

// NewSystemService constructs a SystemService validating required dependencies.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.Health == nil {
		return nil, errors.New("system service: health repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	startedAt := deps.StartedAt
	if startedAt.IsZero() {
		startedAt = clock().UTC()
	}
	return &systemService{
		health:      deps.Health,
		version:     deps.Version,
		environment: deps.Environment,
		startedAt:   startedAt,
		clock:       func() time.Time { return clock().UTC() },
	}, nil
}

func (s *systemService) Health(ctx context.Context) (domain.SystemHealthReport, error) {
	report, err := s.health.Collect(ctx)
	if err != nil {
		return domain.SystemHealthReport{}, err
	}
	now := s.clock()
	report.Version = s.version
	report.Environment = s.environment
	report.Uptime = now.Sub(s.startedAt)
	report.GeneratedAt = now
	return report, nil
}
