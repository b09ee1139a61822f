package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/vatcheck/internal/api"
	"github.com/vietddude/vatcheck/internal/core/config"
	"github.com/vietddude/vatcheck/internal/health"
	"github.com/vietddude/vatcheck/internal/infra/rpc"
	"github.com/vietddude/vatcheck/internal/infra/rpc/provider"
)

// App is the main application struct that manages the service lifecycle.
type App struct {
	cfg          *config.AppConfig
	client       *rpc.Client
	apiServer    *http.Server
	healthMon    *health.Monitor
	healthServer *health.Server
	grpcServer   *health.GRPCServer
	log          *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	group    *errgroup.Group
	done     <-chan struct{}
	cancel   context.CancelFunc
}

// ClientConfig translates application configuration into validator settings.
func ClientConfig(cfg *config.AppConfig, log *slog.Logger) rpc.Config {
	rc := rpc.Config{
		Retry: rpc.RetryConfig{
			MaxRetries:     rpc.DefaultRetryConfig.MaxRetries,
			BaseDelay:      cfg.Retry.BaseDelay,
			AttemptTimeout: cfg.Retry.AttemptTimeout,
		},
		Client: provider.NewHTTPClient(),
		Logger: log,
	}
	if cfg.Retry.MaxRetries != nil {
		rc.Retry.MaxRetries = *cfg.Retry.MaxRetries
	}
	if cfg.Providers.Vies.IsEnabled() {
		rc.Vies = &rpc.ViesConfig{
			Endpoint:  cfg.Providers.Vies.URL,
			Countries: cfg.Providers.Vies.Countries,
		}
	}
	if cfg.Providers.UID.IsEnabled() {
		rc.UID = &rpc.UIDConfig{
			Endpoint:   cfg.Providers.UID.URL,
			SOAPAction: cfg.Providers.UID.SOAPAction,
		}
	}
	return rc
}

// New creates an App with validators built from configuration.
func New(cfg *config.AppConfig, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	client, err := rpc.NewClient(ClientConfig(cfg, log))
	if err != nil {
		return nil, fmt.Errorf("failed to init validators: %w", err)
	}
	return NewWithClient(cfg, client, log), nil
}

// NewWithClient creates an App around an existing validation client.
func NewWithClient(cfg *config.AppConfig, client *rpc.Client, log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}

	handler := api.New(client, log, cfg.Server.RequestTimeout)
	healthMon := health.NewMonitor(client)

	a := &App{
		cfg:    cfg,
		client: client,
		apiServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           handler.Router(),
			ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		},
		healthMon:    healthMon,
		healthServer: health.NewServer(healthMon, cfg.Health.Port),
		log:          log,
	}
	if cfg.Health.GRPCPort > 0 {
		a.grpcServer = health.NewGRPCServer(healthMon, cfg.Health.GRPCPort)
	}
	return a
}

// Client returns the validation client.
func (a *App) Client() *rpc.Client {
	return a.client
}

// Addr returns the API listener address once started.
func (a *App) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Done is closed when the app context ends or any component fails.
func (a *App) Done() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done
}

// Start binds the API listener and starts every component.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.group != nil {
		return errors.New("app already started")
	}

	lis, err := net.Listen("tcp", a.apiServer.Addr)
	if err != nil {
		return fmt.Errorf("listen api: %w", err)
	}
	a.listener = lis

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	a.group = g
	a.done = gctx.Done()
	a.cancel = cancel

	g.Go(func() error {
		a.log.Info("API server listening", "addr", lis.Addr().String())
		if err := a.apiServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.log.Info("Health server listening", "port", a.cfg.Health.Port)
		if err := a.healthServer.Start(); err != nil {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	if a.grpcServer != nil {
		g.Go(func() error {
			a.log.Info("gRPC health server listening", "port", a.cfg.Health.GRPCPort)
			if err := a.grpcServer.Start(); err != nil {
				return fmt.Errorf("grpc health server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		a.healthMon.Start(gctx, a.cfg.Health.CheckInterval)
		return nil
	})

	a.log.Info("Validators ready", "countries", len(a.client.SupportedCountries()))
	return nil
}

// Stop shuts every component down and returns the first component failure.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	g, cancel := a.group, a.cancel
	a.mu.Unlock()
	if g == nil {
		return nil
	}

	a.log.Info("Stopping service...")

	var errs []error
	if err := a.apiServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown api server: %w", err))
	}
	if err := a.healthServer.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown health server: %w", err))
	}
	if a.grpcServer != nil {
		a.grpcServer.Stop()
	}
	cancel()

	if err := g.Wait(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
