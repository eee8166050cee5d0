package attachments

import (
	"context"
	"time"

	healthuc "github.com/kailas-cloud/attachments/internal/usecase/health"
)

// HealthStatus is the state of the verb registry and the fetch cache.
type HealthStatus struct {
	Status string            // "ok", "degraded" (cache down) or "error" (registry unusable)
	Checks map[string]string // "registry", and "cache" when configured → "ok"/"error"
}

// Usable reports whether Process can run. A degraded client still works without its cache.
func (h HealthStatus) Usable() bool {
	return h.Status != string(healthuc.Unhealthy)
}

// Health checks the verb registry and, when configured, pings the fetch cache.
func (c *Client) Health(ctx context.Context) HealthStatus {
	start := time.Now()
	report := c.healthSvc.Check(ctx)

	checks := make(map[string]string, len(report.Checks))
	for name, res := range report.Checks {
		checks[name] = string(res)
	}
	var err error
	if report.Status != healthuc.Healthy {
		err = healthError(report.Status)
	}
	c.obs.observe("health", start, err)

	return HealthStatus{Status: string(report.Status), Checks: checks}
}

type healthError healthuc.Status

func (e healthError) Error() string { return "health " + string(e) }

// healthUseCase is the internal interface for health checks.
type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
