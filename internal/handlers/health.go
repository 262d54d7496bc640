package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/attaleem/api/internal/services"

	domain "github.com/attaleem/api/internal/domain"
)

// BuildInfo describes the running binary for health payloads.
type BuildInfo struct {
	Version     string
	Environment string
	StartedAt   time.Time
}

// HealthHandlers serves the liveness and readiness endpoints.
type HealthHandlers struct {
	system services.SystemService
	build  BuildInfo
	clock  func() time.Time
}

// HealthOption customises HealthHandlers construction.
type HealthOption func(*HealthHandlers)

// WithHealthSystemService wires the system service used by the readiness probe.
func WithHealthSystemService(system services.SystemService) HealthOption {
	return func(h *HealthHandlers) {
		h.system = system
	}
}

// WithHealthBuildInfo attaches build metadata to health payloads.
func WithHealthBuildInfo(build BuildInfo) HealthOption {
	return func(h *HealthHandlers) {
		h.build = build
	}
}

// WithHealthClock overrides the clock used for uptime calculations.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// NewHealthHandlers constructs health handlers with the provided options.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.build.StartedAt.IsZero() {
		h.build.StartedAt = h.clock().UTC()
	}
	return h
}

// Healthz reports process liveness without touching any dependency.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.clock().UTC()
	payload := map[string]any{
		"status":    domain.HealthStatusOK,
		"uptime":    now.Sub(h.build.StartedAt).String(),
		"timestamp": now.Format(time.RFC3339),
	}
	if h.build.Version != "" {
		payload["version"] = h.build.Version
	}
	if h.build.Environment != "" {
		payload["environment"] = h.build.Environment
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

type healthCheckPayload struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
	CheckedAt string `json:"checked_at,omitempty"`
}

type readyzResponse struct {
	Status      string                        `json:"status"`
	Version     string                        `json:"version,omitempty"`
	Environment string                        `json:"environment,omitempty"`
	Uptime      string                        `json:"uptime,omitempty"`
	GeneratedAt string                        `json:"generated_at,omitempty"`
	Checks      map[string]healthCheckPayload `json:"checks"`
	Details     []string                      `json:"details"`
}

// Readyz probes dependencies through the system service and reports 503 when
// any dependency is not healthy.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.system == nil {
		writeJSONResponse(w, http.StatusOK, map[string]any{"status": domain.HealthStatusOK})
		return
	}

	report, err := h.system.Health(r.Context())
	if err != nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, map[string]any{
			"status": domain.HealthStatusError,
			"error":  "health collection failed",
		})
		return
	}

	payload := readyzResponse{
		Status:      report.Status,
		Version:     report.Version,
		Environment: report.Environment,
		Checks:      make(map[string]healthCheckPayload, len(report.Checks)),
		Details:     []string{},
	}
	if report.Uptime > 0 {
		payload.Uptime = report.Uptime.String()
	}
	if !report.GeneratedAt.IsZero() {
		payload.GeneratedAt = formatTime(report.GeneratedAt)
	}

	names := make([]string, 0, len(report.Checks))
	for name := range report.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		check := report.Checks[name]
		payload.Checks[name] = healthCheckPayload{
			Status:    check.Status,
			Error:     check.Error,
			LatencyMS: check.Latency.Milliseconds(),
			CheckedAt: formatTime(check.CheckedAt),
		}
		if strings.TrimSpace(check.Error) != "" {
			payload.Details = append(payload.Details, fmt.Sprintf("%s: %s", name, check.Error))
		}
	}

	status := http.StatusOK
	if report.Status != domain.HealthStatusOK {
		status = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, status, payload)
}
