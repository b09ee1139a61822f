package provider

import (
	"sort"
	"sync"
	"time"

	"github.com/vietddude/vatcheck/internal/core/domain"
)

// ProviderStatus represents the health state of an authority.
type ProviderStatus int

const (
	StatusHealthy     ProviderStatus = iota // Authority is answering normally
	StatusDegraded                          // Slow, or some member-state registries are down
	StatusThrottled                         // Authority is rate limiting us
	StatusUnavailable                       // Every recent attempt failed
)

func (s ProviderStatus) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusThrottled:
		return "throttled"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name in JSON health reports.
func (s ProviderStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// MonitorStats holds monitoring statistics for an authority.
type MonitorStats struct {
	Status              ProviderStatus `json:"status"`
	AverageLatency      time.Duration  `json:"average_latency"`
	ThrottleCount       int            `json:"throttle_count"`
	FaultCount          int            `json:"fault_count"`
	ConsecutiveFailures int            `json:"consecutive_failures"`
	RequestsLast1Hour   int            `json:"requests_last_1h"`
	UnavailableMembers  []string       `json:"unavailable_members,omitempty"`
	RetryAfter          time.Duration  `json:"retry_after"`
}

// ProviderMonitor tracks authority latency, throttling and remote faults.
// It is observational only and never influences retry decisions.
type ProviderMonitor struct {
	mu sync.RWMutex

	// Response time tracking
	recentLatencies  []time.Duration
	maxLatencyWindow int

	// Throttle tracking
	throttleCount      int
	lastThrottleTime   time.Time
	retryAfterDuration time.Duration

	// Faults
	faultCount          int
	consecutiveFailures int
	unavailable         map[string]time.Time

	// Sliding window
	requestTimestamps []time.Time
	windowDuration    time.Duration

	// Thresholds
	slowResponseThreshold time.Duration
	unavailableAfter      int
	memberOutageWindow    time.Duration
}

// NewProviderMonitor creates a new monitor with default settings.
func NewProviderMonitor() *ProviderMonitor {
	return &ProviderMonitor{
		recentLatencies:       make([]time.Duration, 0, 100),
		maxLatencyWindow:      100,
		unavailable:           make(map[string]time.Time),
		requestTimestamps:     make([]time.Time, 0),
		windowDuration:        time.Hour,
		slowResponseThreshold: 3 * time.Second,
		unavailableAfter:      10,
		memberOutageWindow:    5 * time.Minute,
	}
}

// RecordRequest records a completed request with its latency.
func (pm *ProviderMonitor) RecordRequest(latency time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	now := time.Now()

	pm.consecutiveFailures = 0
	pm.recentLatencies = append(pm.recentLatencies, latency)
	if len(pm.recentLatencies) > pm.maxLatencyWindow {
		pm.recentLatencies = pm.recentLatencies[1:]
	}

	pm.requestTimestamps = append(pm.requestTimestamps, now)
	cutoff := now.Add(-pm.windowDuration)
	i := 0
	for i < len(pm.requestTimestamps) && !pm.requestTimestamps[i].After(cutoff) {
		i++
	}
	pm.requestTimestamps = pm.requestTimestamps[i:]
}

// RecordFailure records a failed attempt of any kind.
func (pm *ProviderMonitor) RecordFailure() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.consecutiveFailures++
}

// RecordThrottle records a rate limiting response (HTTP 429 or an
// authority-specific concurrency fault).
func (pm *ProviderMonitor) RecordThrottle(retryAfter string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.lastThrottleTime = time.Now()
	pm.throttleCount++

	if d, ok := domain.ParseRetryAfter(retryAfter); ok {
		pm.retryAfterDuration = d
	} else {
		pm.retryAfterDuration = 60 * time.Second // Default 1min
	}
}

// RecordFault records a remote business fault.
func (pm *ProviderMonitor) RecordFault() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.faultCount++
}

// RecordMemberUnavailable records that a member-state registry reported itself down.
func (pm *ProviderMonitor) RecordMemberUnavailable(countryCode string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.faultCount++
	pm.unavailable[countryCode] = time.Now()
}

// CheckProviderStatus returns the current status of the authority.
func (pm *ProviderMonitor) CheckProviderStatus() ProviderStatus {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.statusLocked()
}

func (pm *ProviderMonitor) statusLocked() ProviderStatus {
	if pm.consecutiveFailures >= pm.unavailableAfter {
		return StatusUnavailable
	}

	if pm.throttleCount > 0 && time.Since(pm.lastThrottleTime) < pm.retryAfterDuration {
		return StatusThrottled
	}

	if len(pm.recentLatencies) > 10 && pm.averageLatencyLocked() > pm.slowResponseThreshold {
		return StatusDegraded
	}

	if len(pm.unavailableMembersLocked()) > 0 {
		return StatusDegraded
	}

	return StatusHealthy
}

// GetRetryAfter returns remaining time of the last throttle window.
func (pm *ProviderMonitor) GetRetryAfter() time.Duration {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.retryAfterLocked()
}

func (pm *ProviderMonitor) retryAfterLocked() time.Duration {
	if pm.retryAfterDuration > 0 {
		remaining := pm.retryAfterDuration - time.Since(pm.lastThrottleTime)
		if remaining > 0 {
			return remaining
		}
	}
	return 0
}

// GetAverageLatency returns the average latency of recent requests.
func (pm *ProviderMonitor) GetAverageLatency() time.Duration {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.averageLatencyLocked()
}

func (pm *ProviderMonitor) averageLatencyLocked() time.Duration {
	if len(pm.recentLatencies) == 0 {
		return 0
	}

	var total time.Duration
	for _, lat := range pm.recentLatencies {
		total += lat
	}

	return total / time.Duration(len(pm.recentLatencies))
}

func (pm *ProviderMonitor) unavailableMembersLocked() []string {
	var members []string
	for code, at := range pm.unavailable {
		if time.Since(at) < pm.memberOutageWindow {
			members = append(members, code)
		}
	}
	sort.Strings(members)
	return members
}

// GetRequestCount returns number of requests in the given duration.
func (pm *ProviderMonitor) GetRequestCount(duration time.Duration) int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	cutoff := time.Now().Add(-duration)
	count := 0
	for _, t := range pm.requestTimestamps {
		if t.After(cutoff) {
			count++
		}
	}
	return count
}

// GetStats returns current monitoring statistics.
func (pm *ProviderMonitor) GetStats() MonitorStats {
	reqLast1Hour := pm.GetRequestCount(time.Hour)

	pm.mu.RLock()
	defer pm.mu.RUnlock()

	return MonitorStats{
		Status:              pm.statusLocked(),
		AverageLatency:      pm.averageLatencyLocked(),
		ThrottleCount:       pm.throttleCount,
		FaultCount:          pm.faultCount,
		ConsecutiveFailures: pm.consecutiveFailures,
		RequestsLast1Hour:   reqLast1Hour,
		UnavailableMembers:  pm.unavailableMembersLocked(),
		RetryAfter:          pm.retryAfterLocked(),
	}
}
