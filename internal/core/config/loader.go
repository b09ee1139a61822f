package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/vatcheck/internal/core/domain"
	"github.com/vietddude/vatcheck/internal/infra/rpc/provider"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := finalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() (*AppConfig, error) {
	var cfg AppConfig
	if err := finalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func finalize(cfg *AppConfig) error {
	if err := applyEnv(cfg); err != nil {
		return err
	}
	applyDefaults(cfg)
	return cfg.Validate()
}

// applyEnv honors the conventional PORT variable for the API listener.
func applyEnv(cfg *AppConfig) error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	return nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.ReadHeaderTimeout == 0 {
		cfg.Server.ReadHeaderTimeout = 5 * time.Second
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 2 * time.Minute
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}

	if cfg.Health.Port == 0 {
		cfg.Health.Port = 8081
	}
	if cfg.Health.CheckInterval == 0 {
		cfg.Health.CheckInterval = 15 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	if cfg.Retry.MaxRetries == nil {
		n := 5
		cfg.Retry.MaxRetries = &n
	}
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry.BaseDelay = time.Second
	}
	if cfg.Retry.AttemptTimeout == 0 {
		cfg.Retry.AttemptTimeout = 10 * time.Second
	}

	if cfg.Providers.Vies.URL == "" {
		cfg.Providers.Vies.URL = provider.DefaultViesEndpoint
	}
	if len(cfg.Providers.Vies.Countries) == 0 {
		cfg.Providers.Vies.Countries = domain.CountryCodesFor(domain.AuthorityVIES)
	}
	if cfg.Providers.UID.URL == "" {
		cfg.Providers.UID.URL = provider.DefaultUIDEndpoint
	}
	if cfg.Providers.UID.SOAPAction == "" {
		cfg.Providers.UID.SOAPAction = provider.DefaultUIDSOAPAction
	}
}

// Validate checks the configuration for values that cannot work.
func (c *AppConfig) Validate() error {
	var errs []error

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Health.Port < 0 || c.Health.Port > 65535 {
		errs = append(errs, fmt.Errorf("health.port out of range: %d", c.Health.Port))
	}
	if c.Retry.MaxRetries != nil && *c.Retry.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("retry.max_retries must not be negative"))
	}
	if c.Retry.BaseDelay < 0 {
		errs = append(errs, fmt.Errorf("retry.base_delay must not be negative"))
	}
	if c.Retry.AttemptTimeout < 0 {
		errs = append(errs, fmt.Errorf("retry.attempt_timeout must not be negative"))
	}
	if !c.Providers.Vies.IsEnabled() && !c.Providers.UID.IsEnabled() {
		errs = append(errs, fmt.Errorf("at least one provider must be enabled"))
	}
	for _, code := range c.Providers.Vies.Countries {
		if _, ok := domain.LookupCountry(code); !ok {
			errs = append(errs, fmt.Errorf("providers.vies.countries: unknown country %q", code))
		}
	}

	return errors.Join(errs...)
}
