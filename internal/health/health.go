// Package health provides authority health monitoring and status reporting.
package health

import "time"

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// AuthorityHealth contains health metrics for one VAT authority.
type AuthorityHealth struct {
	Authority          string        `json:"authority"`
	Status             SystemStatus  `json:"status"`
	ProviderStatus     string        `json:"provider_status"`
	Available          bool          `json:"available"`
	ErrorRate          float64       `json:"error_rate"`
	AverageLatency     time.Duration `json:"average_latency"`
	ThrottleCount      int           `json:"throttle_count"`
	RetryAfter         time.Duration `json:"retry_after"`
	UnavailableMembers []string      `json:"unavailable_members,omitempty"`
	LastSuccessAt      time.Time     `json:"last_success_at"`
	LastFailureAt      time.Time     `json:"last_failure_at"`
}

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus SystemStatus               `json:"system_status"`
	Authorities  map[string]AuthorityHealth `json:"authorities"`
	CheckedAt    time.Time                  `json:"checked_at"`
}

// Aggregate returns the worst status across all authorities.
func Aggregate(report map[string]AuthorityHealth) SystemStatus {
	status := StatusHealthy
	for _, a := range report {
		if a.Status == StatusCritical {
			return StatusCritical
		}
		if a.Status == StatusDegraded {
			status = StatusDegraded
		}
	}
	return status
}
