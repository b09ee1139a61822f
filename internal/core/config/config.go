package config

import "time"

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Health    HealthConfig    `yaml:"health"`
	Logging   LoggingConfig   `yaml:"logging"`
	Retry     RetryConfig     `yaml:"retry"`
	Providers ProvidersConfig `yaml:"providers"`
}

// ServerConfig holds inbound HTTP API settings.
type ServerConfig struct {
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// HealthConfig holds health and metrics endpoint settings.
type HealthConfig struct {
	Port          int           `yaml:"port"`
	GRPCPort      int           `yaml:"grpc_port"` // 0 = disabled
	CheckInterval time.Duration `yaml:"check_interval"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// RetryConfig holds outbound retry settings.
type RetryConfig struct {
	MaxRetries     *int          `yaml:"max_retries"`
	BaseDelay      time.Duration `yaml:"base_delay"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
}

// ProvidersConfig holds per-authority settings.
type ProvidersConfig struct {
	Vies ViesConfig `yaml:"vies"`
	UID  UIDConfig  `yaml:"uid"`
}

// ViesConfig holds settings for the EU VIES REST API.
type ViesConfig struct {
	Enabled   *bool    `yaml:"enabled"`
	URL       string   `yaml:"url"`
	Countries []string `yaml:"countries"`
}

// UIDConfig holds settings for the Swiss UID SOAP service.
type UIDConfig struct {
	Enabled    *bool  `yaml:"enabled"`
	URL        string `yaml:"url"`
	SOAPAction string `yaml:"soap_action"`
}

// IsEnabled reports whether the authority is enabled. Unset means enabled.
func (c ViesConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// IsEnabled reports whether the authority is enabled. Unset means enabled.
func (c UIDConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}
