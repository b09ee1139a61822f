package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/vatcheck/internal/infra/rpc/provider"
	"github.com/vietddude/vatcheck/internal/metrics"
)

// Source reports per-authority health.
type Source interface {
	Health() map[string]provider.HealthStatus
}

// StatusListener is notified after every health evaluation.
type StatusListener func(report HealthReport)

// Monitor aggregates health status from every VAT authority.
type Monitor struct {
	source     Source
	cacheTTL   time.Duration
	listeners  []StatusListener
	log        *slog.Logger
	lastCheck  time.Time
	lastReport map[string]AuthorityHealth
	mu         sync.RWMutex
}

// NewMonitor creates a new health monitor.
func NewMonitor(source Source) *Monitor {
	return &Monitor{
		source:     source,
		cacheTTL:   5 * time.Second,
		log:        slog.Default(),
		lastReport: make(map[string]AuthorityHealth),
	}
}

// OnStatus registers a listener called after each evaluation.
func (m *Monitor) OnStatus(fn StatusListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// CheckHealth evaluates every authority. Results are cached briefly.
func (m *Monitor) CheckHealth(ctx context.Context) map[string]AuthorityHealth {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastCheck) < m.cacheTTL && len(m.lastReport) > 0 {
		return m.lastReport
	}
	return m.evaluateLocked()
}

// Report returns the full health report.
func (m *Monitor) Report(ctx context.Context) HealthReport {
	authorities := m.CheckHealth(ctx)

	m.mu.RLock()
	checkedAt := m.lastCheck
	m.mu.RUnlock()

	return HealthReport{
		SystemStatus: Aggregate(authorities),
		Authorities:  authorities,
		CheckedAt:    checkedAt,
	}
}

// Start re-evaluates health on every tick until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.refresh()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.refresh()
		}
	}
}

func (m *Monitor) refresh() {
	m.mu.Lock()
	report := m.evaluateLocked()
	checkedAt := m.lastCheck
	listeners := append([]StatusListener(nil), m.listeners...)
	m.mu.Unlock()

	full := HealthReport{SystemStatus: Aggregate(report), Authorities: report, CheckedAt: checkedAt}
	if full.SystemStatus != StatusHealthy {
		m.log.Warn("Authority health degraded", "status", full.SystemStatus)
	}
	for _, fn := range listeners {
		fn(full)
	}
}

func (m *Monitor) evaluateLocked() map[string]AuthorityHealth {
	report := make(map[string]AuthorityHealth)

	for name, h := range m.source.Health() {
		a := AuthorityHealth{
			Authority:     name,
			Status:        StatusHealthy,
			Available:     h.Available,
			ErrorRate:     h.ErrorRate,
			LastSuccessAt: h.LastSuccessAt,
			LastFailureAt: h.LastFailureAt,
		}

		providerStatus := provider.StatusHealthy
		if h.MonitorStats != nil {
			providerStatus = h.MonitorStats.Status
			a.AverageLatency = h.MonitorStats.AverageLatency
			a.ThrottleCount = h.MonitorStats.ThrottleCount
			a.RetryAfter = h.MonitorStats.RetryAfter
			a.UnavailableMembers = h.MonitorStats.UnavailableMembers
		}
		a.ProviderStatus = providerStatus.String()

		switch {
		case !h.Available || providerStatus == provider.StatusUnavailable:
			a.Status = StatusCritical
		case providerStatus != provider.StatusHealthy:
			a.Status = StatusDegraded
		}

		metrics.ProviderStatus.WithLabelValues(name).Set(float64(providerStatus))
		report[name] = a
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}
