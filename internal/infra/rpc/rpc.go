// Package rpc provides a resilient client for the VAT validation authorities.
//
// This package offers:
//   - EU VIES (REST/JSON) and Swiss UID (SOAP/XML) validators
//   - Country code routing with a startup overlap check
//   - Retry with exponential backoff, full jitter and Retry-After support
//   - Per-attempt timeouts
//   - Health monitoring per authority
//
// # Quick Start
//
//	import "github.com/vietddude/vatcheck/internal/infra/rpc"
//
//	client, err := rpc.NewClient(rpc.Config{
//	    Retry: rpc.DefaultRetryConfig,
//	    Vies:  &rpc.ViesConfig{},
//	    UID:   &rpc.UIDConfig{},
//	})
//	valid, err := client.Validate(ctx, "DE", "DE129274202")
//
// # Package Structure
//
//   - provider/ - Authority implementations and health monitoring
//   - routing/  - Country routing and retry logic
//
// Most types are re-exported at the root level for convenience.
package rpc

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vietddude/vatcheck/internal/infra/rpc/provider"
	"github.com/vietddude/vatcheck/internal/infra/rpc/routing"
)

// =============================================================================
// Re-exported types from provider package
// =============================================================================

// Validator is the core interface for VAT authorities.
type Validator = provider.Validator

// ViesConfig configures the EU validator.
type ViesConfig = provider.ViesConfig

// UIDConfig configures the Swiss validator.
type UIDConfig = provider.UIDConfig

// HealthStatus represents the health state of an authority.
type HealthStatus = provider.HealthStatus

// =============================================================================
// Re-exported types from routing package
// =============================================================================

// Coordinator routes validation requests by country code.
type Coordinator = routing.Coordinator

// RetryConfig defines retry behavior.
type RetryConfig = routing.RetryConfig

// DefaultRetryConfig provides sensible defaults.
var DefaultRetryConfig = routing.DefaultRetryConfig

// ErrDuplicateValidator is returned when two validators claim the same code.
var ErrDuplicateValidator = routing.ErrDuplicateValidator

// ErrNoValidators is returned when every authority is disabled.
var ErrNoValidators = errors.New("no VAT validators enabled")

// =============================================================================
// Client
// =============================================================================

// Config selects which authorities are enabled and how calls are retried.
// A nil authority config disables that authority.
type Config struct {
	Retry  RetryConfig
	Vies   *ViesConfig
	UID    *UIDConfig
	Client *http.Client
	Logger *slog.Logger
}

// Client is the single validation entry point used by the outer layers.
type Client struct {
	coordinator *routing.Coordinator
}

// NewClient builds every enabled validator, wraps it with retries, and
// registers it with a coordinator.
func NewClient(cfg Config) (*Client, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	var validators []provider.Validator
	if cfg.Vies != nil {
		vc := *cfg.Vies
		if vc.Client == nil {
			vc.Client = cfg.Client
		}
		if vc.Logger == nil {
			vc.Logger = log
		}
		validators = append(validators, provider.NewViesProvider(vc))
	}
	if cfg.UID != nil {
		uc := *cfg.UID
		if uc.Client == nil {
			uc.Client = cfg.Client
		}
		if uc.Logger == nil {
			uc.Logger = log
		}
		validators = append(validators, provider.NewUIDProvider(uc))
	}
	return NewClientWithValidators(cfg.Retry, log, validators...)
}

// NewClientWithValidators registers pre-built single-attempt validators.
func NewClientWithValidators(retry RetryConfig, log *slog.Logger, validators ...Validator) (*Client, error) {
	if len(validators) == 0 {
		return nil, ErrNoValidators
	}
	if log == nil {
		log = slog.Default()
	}

	retrier := routing.NewRetrier(retry, routing.WithLogger(log))
	wrapped := make([]provider.Validator, len(validators))
	for i, v := range validators {
		wrapped[i] = routing.WithRetry(v, retrier)
	}

	coordinator, err := routing.NewCoordinator(wrapped...)
	if err != nil {
		return nil, err
	}
	coordinator.SetLogger(log)

	return &Client{coordinator: coordinator}, nil
}

// Validate reports whether the owning authority considers the VAT number valid.
func (c *Client) Validate(ctx context.Context, countryCode, vatNumber string) (bool, error) {
	return c.coordinator.Validate(ctx, countryCode, vatNumber)
}

// SupportedCountries returns every routable country code.
func (c *Client) SupportedCountries() []string {
	return c.coordinator.SupportedCountries()
}

// Owner returns the authority name owning a country code.
func (c *Client) Owner(countryCode string) (string, bool) {
	v, ok := c.coordinator.Owner(countryCode)
	if !ok {
		return "", false
	}
	return v.Name(), true
}

// Health returns the health of every authority that tracks it, keyed by name.
func (c *Client) Health() map[string]HealthStatus {
	out := make(map[string]HealthStatus)
	for _, v := range c.coordinator.Validators() {
		if u, ok := v.(interface{ Unwrap() provider.Validator }); ok {
			v = u.Unwrap()
		}
		if hr, ok := v.(provider.HealthReporter); ok {
			out[v.Name()] = hr.GetHealth()
		}
	}
	return out
}
