package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/vietddude/vatcheck/internal/metrics"
)

// maxResponseBytes bounds how much of an authority response is read.
const maxResponseBytes = 1 << 20

// BaseProvider implements the functionality shared by both authorities.
// It owns the HTTP transport and handles health tracking and metrics.
type BaseProvider struct {
	name       string
	endpoint   string
	countries  []string
	httpClient *http.Client
	log        *slog.Logger

	mu           sync.RWMutex
	health       HealthStatus
	totalLatency time.Duration
	successCount int
	failureCount int
	requestCount int

	Monitor *ProviderMonitor
}

// NewBaseProvider creates a new BaseProvider. A nil client gets a pooled default.
func NewBaseProvider(name, endpoint string, countries []string, client *http.Client, log *slog.Logger) *BaseProvider {
	if client == nil {
		client = NewHTTPClient()
	}
	if log == nil {
		log = slog.Default()
	}

	upper := make([]string, len(countries))
	for i, c := range countries {
		upper[i] = strings.ToUpper(c)
	}

	return &BaseProvider{
		name:       name,
		endpoint:   endpoint,
		countries:  upper,
		httpClient: client,
		log:        log.With("authority", name),
		health: HealthStatus{
			Available:     true,
			LastSuccessAt: time.Now(),
		},
		Monitor: NewProviderMonitor(),
	}
}

// NewHTTPClient returns a client with connection pooling tuned for a single
// upstream host. Deadlines come from the per-attempt context.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Name returns the authority identifier.
func (p *BaseProvider) Name() string {
	return p.name
}

// SupportedCountries returns a copy of the owned country codes.
func (p *BaseProvider) SupportedCountries() []string {
	out := make([]string, len(p.countries))
	copy(out, p.countries)
	return out
}

// Endpoint returns the URL requests are sent to.
func (p *BaseProvider) Endpoint() string {
	return p.endpoint
}

// GetHealth returns the provider's health status.
func (p *BaseProvider) GetHealth() HealthStatus {
	p.mu.RLock()
	health := p.health
	p.mu.RUnlock()

	stats := p.Monitor.GetStats()
	health.MonitorStats = &stats
	if stats.Status == StatusUnavailable {
		health.Available = false
	}
	return health
}

// RecordSuccess records an attempt that produced an answer.
func (p *BaseProvider) RecordSuccess(latency time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.successCount++
	p.requestCount++
	p.totalLatency += latency
	p.health.LastSuccessAt = time.Now()
	p.health.Available = true

	if p.requestCount > 0 {
		p.health.ErrorRate = float64(p.failureCount) / float64(p.requestCount)
	}
	if p.successCount > 0 {
		p.health.Latency = p.totalLatency / time.Duration(p.successCount)
	}

	p.Monitor.RecordRequest(latency)
}

// RecordFailure records an attempt that failed.
func (p *BaseProvider) RecordFailure(kind string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failureCount++
	p.requestCount++
	p.health.LastFailureAt = time.Now()

	if p.requestCount > 0 {
		p.health.ErrorRate = float64(p.failureCount) / float64(p.requestCount)
	}
	if p.health.ErrorRate > 0.5 {
		p.health.Available = false
	}

	p.Monitor.RecordFailure()
	metrics.ProviderErrorsTotal.WithLabelValues(p.name, kind).Inc()
}

// rawResponse is an upstream response with its body fully read.
type rawResponse struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

func (r *rawResponse) ok() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// post sends a single POST request and reads the full response body.
func (p *BaseProvider) post(
	ctx context.Context,
	contentType string,
	headers map[string]string,
	body []byte,
) (*rawResponse, time.Duration, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(req)
	latency := time.Since(start)
	metrics.ProviderLatency.WithLabelValues(p.name).Observe(latency.Seconds())
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(p.name, "error").Inc()
		return nil, latency, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(p.name, "error").Inc()
		return nil, latency, fmt.Errorf("read response: %w", err)
	}

	metrics.ProviderRequestsTotal.WithLabelValues(p.name, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	return &rawResponse{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       data,
	}, latency, nil
}
