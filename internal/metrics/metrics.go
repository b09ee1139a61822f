package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderRequestsTotal tracks outbound requests per authority and HTTP status
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vatcheck_provider_requests_total",
			Help: "Total number of outbound requests to VAT authorities",
		},
		[]string{"authority", "status"},
	)

	// ProviderErrorsTotal tracks failed attempts per authority and error kind
	ProviderErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vatcheck_provider_errors_total",
			Help: "Total number of failed attempts against VAT authorities",
		},
		[]string{"authority", "kind"},
	)

	// ProviderLatency tracks outbound request latency
	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vatcheck_provider_latency_seconds",
			Help:    "Outbound request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"authority"},
	)

	// RetriesTotal tracks scheduled retries and whether Retry-After drove the delay
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vatcheck_retries_total",
			Help: "Total number of retries scheduled by the retry executor",
		},
		[]string{"authority", "source"},
	)

	// RetryDelay tracks the wait applied before each retry
	RetryDelay = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vatcheck_retry_delay_seconds",
			Help:    "Delay applied before a retry in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"authority"},
	)

	// ValidationsTotal tracks final validation outcomes per country
	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vatcheck_validations_total",
			Help: "Total number of VAT validations by final outcome",
		},
		[]string{"country", "outcome"},
	)

	// HTTPRequestsTotal tracks inbound API requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vatcheck_http_requests_total",
			Help: "Total number of inbound HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks inbound API latency
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vatcheck_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// ProviderStatus tracks authority health (0=healthy, 1=degraded, 2=throttled, 3=unavailable)
	ProviderStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vatcheck_provider_status",
			Help: "Current health status of each VAT authority",
		},
		[]string{"authority"},
	)
)
