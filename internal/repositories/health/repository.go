package health

import (
	"context"
	"errors"
	"sort"
	"time"

	domain "github.com/attaleem/api/internal/domain"
)

// Probe checks one downstream dependency. A nil error means healthy.
type Probe func(ctx context.Context) error

const probeTimeout = 3 * time.Second

// Repository aggregates dependency probes into a health report.
type Repository struct {
	probes map[string]Probe
	clock  func() time.Time
}

// NewRepository constructs a health repository over the named probes.
func NewRepository(probes map[string]Probe, clock func() time.Time) (*Repository, error) {
	if len(probes) == 0 {
		return nil, errors.New("health repository: at least one probe is required")
	}
	if clock == nil {
		clock = time.Now
	}
	copied := make(map[string]Probe, len(probes))
	for name, probe := range probes {
		if probe == nil {
			return nil, errors.New("health repository: nil probe for " + name)
		}
		copied[name] = probe
	}
	return &Repository{
		probes: copied,
		clock:  func() time.Time { return clock().UTC() },
	}, nil
}

// Collect runs every probe and reports per-dependency and overall status.
// Probes run sequentially; the set is small and each is bounded by a timeout.
func (r *Repository) Collect(ctx context.Context) (domain.SystemHealthReport, error) {
	if r == nil || len(r.probes) == 0 {
		return domain.SystemHealthReport{}, errors.New("health repository not initialised")
	}

	names := make([]string, 0, len(r.probes))
	for name := range r.probes {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]domain.SystemHealthCheck, len(names))
	failures := 0
	for _, name := range names {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		started := r.clock()
		err := r.probes[name](probeCtx)
		cancel()

		check := domain.SystemHealthCheck{
			Status:    domain.HealthStatusOK,
			Latency:   r.clock().Sub(started),
			CheckedAt: started,
		}
		if err != nil {
			failures++
			check.Status = domain.HealthStatusError
			check.Error = err.Error()
		}
		checks[name] = check
	}

	overall := domain.HealthStatusOK
	switch {
	case failures == len(names):
		overall = domain.HealthStatusError
	case failures > 0:
		overall = domain.HealthStatusDegraded
	}

	return domain.SystemHealthReport{
		Status:      overall,
		Checks:      checks,
		GeneratedAt: r.clock(),
	}, nil
}
