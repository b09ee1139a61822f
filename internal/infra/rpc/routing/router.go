// Package routing maps country codes to the authority that owns them and
// makes calls to that authority resilient.
//
// This package contains:
//   - Coordinator: immutable country code registry and dispatch
//   - Retrier: retry executor with exponential backoff and full jitter
//   - WithRetry: decorator applying a Retrier to a single-attempt validator
package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/vietddude/vatcheck/internal/core/domain"
	"github.com/vietddude/vatcheck/internal/infra/rpc/provider"
	"github.com/vietddude/vatcheck/internal/metrics"
)

// ErrDuplicateValidator is returned when two validators claim the same country code.
var ErrDuplicateValidator = errors.New("duplicate validator for country code")

// Coordinator routes validation requests to the validator owning the country code.
// The registry is built once and never mutated, so concurrent use needs no locking.
type Coordinator struct {
	registry   map[string]provider.Validator
	validators []provider.Validator
	log        *slog.Logger
}

// NewCoordinator builds the registry. Every declared code is uppercased; a
// code claimed by two validators fails construction.
func NewCoordinator(validators ...provider.Validator) (*Coordinator, error) {
	c := &Coordinator{
		registry: make(map[string]provider.Validator),
		log:      slog.Default(),
	}

	for _, v := range validators {
		for _, code := range v.SupportedCountries() {
			code = strings.ToUpper(code)
			if owner, ok := c.registry[code]; ok {
				return nil, fmt.Errorf("%w: %s claimed by %s and %s",
					ErrDuplicateValidator, code, owner.Name(), v.Name())
			}
			c.registry[code] = v
		}
		c.validators = append(c.validators, v)
	}

	return c, nil
}

// SetLogger replaces the coordinator's logger.
func (c *Coordinator) SetLogger(l *slog.Logger) {
	c.log = l
}

// Validate dispatches to the owning validator and returns its outcome unchanged.
// Unknown codes fail with a non-retryable unsupported error without any I/O.
func (c *Coordinator) Validate(ctx context.Context, countryCode, vatNumber string) (bool, error) {
	code := strings.ToUpper(countryCode)

	v, ok := c.registry[code]
	if !ok {
		metrics.ValidationsTotal.WithLabelValues(code, string(domain.KindUnsupported)).Inc()
		return false, domain.NewUnsupportedError(code)
	}

	start := time.Now()
	valid, err := v.Validate(ctx, code, vatNumber)
	if err != nil {
		kind := string(domain.KindOf(err))
		if kind == "" {
			kind = "error"
		}
		metrics.ValidationsTotal.WithLabelValues(code, kind).Inc()
		c.log.Debug("Validation failed",
			"country", code,
			"authority", v.Name(),
			"duration", time.Since(start),
			"error", err,
		)
		return false, err
	}

	outcome := "invalid"
	if valid {
		outcome = "valid"
	}
	metrics.ValidationsTotal.WithLabelValues(code, outcome).Inc()
	return valid, nil
}

// Owner returns the validator registered for a country code.
func (c *Coordinator) Owner(countryCode string) (provider.Validator, bool) {
	v, ok := c.registry[strings.ToUpper(countryCode)]
	return v, ok
}

// SupportedCountries returns every routable country code, sorted.
func (c *Coordinator) SupportedCountries() []string {
	codes := make([]string, 0, len(c.registry))
	for code := range c.registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Validators returns the registered validators in registration order.
func (c *Coordinator) Validators() []provider.Validator {
	out := make([]provider.Validator, len(c.validators))
	copy(out, c.validators)
	return out
}
