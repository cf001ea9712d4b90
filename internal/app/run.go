package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bnema/dockmaster/internal/adapters/in/http/api"
	"github.com/bnema/dockmaster/internal/adapters/in/http/middleware"
	"github.com/bnema/dockmaster/internal/adapters/out/command"
	"github.com/bnema/dockmaster/internal/adapters/out/credstore"
	"github.com/bnema/dockmaster/internal/adapters/out/docker"
	"github.com/bnema/dockmaster/internal/adapters/out/filesystem"
	"github.com/bnema/dockmaster/internal/adapters/out/ratelimit"
	"github.com/bnema/dockmaster/internal/adapters/out/telemetry"
	"github.com/bnema/dockmaster/internal/boundaries/in"
	"github.com/bnema/dockmaster/internal/boundaries/out"
	"github.com/bnema/dockmaster/internal/logging"
	"github.com/bnema/dockmaster/internal/usecase/compose"
	"github.com/bnema/dockmaster/internal/usecase/container"
	"github.com/bnema/dockmaster/internal/usecase/health"
	"github.com/bnema/dockmaster/internal/usecase/registry"
	"github.com/bnema/dockmaster/internal/usecase/registryauth"
	"github.com/bnema/dockmaster/pkg/keylock"
)

// Services groups the use cases served by the API.
type Services struct {
	Compose   in.ComposeService
	Container in.ContainerService
	Registry  in.RegistryService
	Health    in.HealthService

	Metrics *telemetry.Metrics
	Limiter *ratelimit.MemoryStore

	closers []func() error
}

// Close releases the resources held by the services.
func (s *Services) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// InitLogger builds the process logger from cfg.
func InitLogger(cfg Config) (zerolog.Logger, func(), error) {
	return logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File: logging.FileConfig{
			Enabled:    cfg.Logging.File.Enabled,
			Path:       cfg.Logging.File.Path,
			MaxSize:    cfg.Logging.File.MaxSize,
			MaxBackups: cfg.Logging.File.MaxBackups,
			MaxAge:     cfg.Logging.File.MaxAge,
			Compress:   true,
		},
	})
}

// Run loads the configuration, wires every component and serves the API
// until ctx is cancelled or SIGINT/SIGTERM is received.
func Run(ctx context.Context, configPath string) error {
	_, cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Auth.Token == "" {
		return fmt.Errorf("auth.token must be set (or DOCKMASTER_AUTH_TOKEN)")
	}

	log, cleanup, err := InitLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithCtx(ctx, log)

	svc, err := CreateServices(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to release resources")
		}
	}()

	if svc.Limiter != nil {
		go svc.Limiter.Run(ctx, time.Minute)
	}

	e := NewServer(cfg, svc, log)
	return serve(ctx, e, cfg, log)
}

// CreateServices builds the output adapters and the use cases on top of them.
func CreateServices(ctx context.Context, cfg Config, log zerolog.Logger) (*Services, error) {
	runtime, err := docker.NewRuntime(docker.Config{
		Host:        cfg.Engine.Host,
		APITimeout:  cfg.Engine.APITimeout,
		PullTimeout: cfg.Engine.PullTimeout,
		StopTimeout: cfg.Engine.StopTimeout,
	})
	if err != nil {
		return nil, err
	}
	svc := &Services{closers: []func() error{runtime.Close}}

	if cfg.Engine.RequireOnStart {
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := runtime.Ping(pingCtx); err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("container engine is required but unreachable: %w", err)
		}
	}

	projects, err := filesystem.NewProjectStorage(cfg.Compose.ProjectPath, log)
	if err != nil {
		_ = svc.Close()
		return nil, err
	}

	limiter, err := ratelimit.NewStore(ratelimit.Config{
		Enabled: cfg.API.RateLimit.Enabled,
		RPS:     cfg.API.RateLimit.PerIPRPS,
		Burst:   cfg.API.RateLimit.Burst,
		IdleTTL: cfg.API.RateLimit.IdleTTL,
	}, log)
	if err != nil {
		_ = svc.Close()
		return nil, err
	}
	svc.Limiter = limiter

	svc.Metrics = telemetry.NewMetrics()
	locks := keylock.New()
	executor := command.NewExecutor(cfg.Engine.CommandTimeout)
	registrySvc := registry.NewService(credstore.NewFileStore(cfg.Registry.File))
	authExec := registryauth.NewService(executor, registrySvc, registryauth.Config{
		Binary:         cfg.Engine.Binary,
		Host:           cfg.Engine.Host,
		IsolatedConfig: cfg.Registry.IsolatedConfig,
	})

	svc.Registry = registrySvc
	svc.Compose = compose.NewService(runtime, projects, authExec, locks, svc.Metrics, compose.Config{Binary: cfg.Engine.Binary})
	svc.Container = container.NewService(runtime, registrySvc, locks, svc.Metrics)
	svc.Health = health.NewService(runtime, 0)

	log.Info().
		Str(logging.FieldLayer, "app").
		Str("project_path", cfg.Compose.ProjectPath).
		Str("registry_file", cfg.Registry.File).
		Bool("isolated_docker_config", cfg.Registry.IsolatedConfig).
		Msg("services initialized")

	return svc, nil
}

// NewServer builds the echo instance with the middleware chain and routes.
func NewServer(cfg Config, svc *Services, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.ErrorHandler(log)
	e.IPExtractor = middleware.IPExtractor(middleware.ParseTrustedProxies(cfg.API.RateLimit.TrustedProxies))

	e.Use(middleware.Recover(log))
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.CIDRAllowlist(middleware.ParseTrustedProxies(cfg.API.AllowedCIDRs), log))

	if cfg.Metrics.Enabled && svc.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(svc.Metrics.Handler()))
	}

	h := api.NewHandler(svc.Compose, svc.Container, svc.Registry, svc.Health)
	h.RegisterPublicRoutes(e)

	var limiter out.RateLimiter
	if svc.Limiter != nil {
		limiter = svc.Limiter
	}
	h.RegisterRoutes(e, middleware.RateLimit(limiter, log), middleware.BearerAuth(cfg.Auth.Token, log))

	return e
}

func serve(ctx context.Context, e *echo.Echo, cfg Config, log zerolog.Logger) error {
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	e.Server.ReadHeaderTimeout = 10 * time.Second
	e.Server.IdleTimeout = 120 * time.Second

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str(logging.FieldLayer, "app").
			Str("addr", addr).
			Msg("API server listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("API server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info().Str(logging.FieldLayer, "app").Msg("shutting down API server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("API server shutdown: %w", err)
	}
	return nil
}
