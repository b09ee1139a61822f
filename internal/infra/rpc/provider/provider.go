// Package provider implements the outbound VAT validation authorities.
//
// This package contains:
//   - Validator interface: core abstraction for a country-owning authority
//   - ViesProvider: EU VIES registry over REST/JSON
//   - UIDProvider: Swiss UID register over SOAP/XML
//   - BaseProvider: shared HTTP transport and health tracking
//   - ProviderMonitor: latency and throttle tracking
//
// A provider performs exactly one attempt per Validate call and classifies
// every failure as a *domain.ClassifiedError. Retrying is layered on top by
// the routing package.
package provider

import (
	"context"
	"time"
)

// Validator validates VAT numbers for a fixed set of country codes.
type Validator interface {
	// Name returns the authority identifier (e.g., "vies", "uid")
	Name() string

	// SupportedCountries returns the uppercase ISO-3166 alpha-2 codes this validator owns
	SupportedCountries() []string

	// Validate reports whether the registry considers the VAT number valid
	Validate(ctx context.Context, countryCode, vatNumber string) (bool, error)
}

// HealthReporter is implemented by validators that track their own health.
type HealthReporter interface {
	GetHealth() HealthStatus
}

// HealthStatus represents the health state of a provider.
type HealthStatus struct {
	Available     bool          `json:"available"`
	Latency       time.Duration `json:"latency"`
	ErrorRate     float64       `json:"error_rate"`
	LastSuccessAt time.Time     `json:"last_success_at"`
	LastFailureAt time.Time     `json:"last_failure_at"`
	MonitorStats  *MonitorStats `json:"monitor_stats,omitempty"`
}
