// Package health implements the engine health check use case.
package health

import (
	"context"
	"time"

	"github.com/bnema/dockmaster/internal/boundaries/out"
	"github.com/bnema/dockmaster/internal/logging"
)

// defaultTimeout bounds a single ping when the caller sets no deadline.
const defaultTimeout = 5 * time.Second

// Service implements in.HealthService.
type Service struct {
	runtime out.ContainerRuntime
	timeout time.Duration
}

// NewService creates a new health service.
func NewService(runtime out.ContainerRuntime, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{runtime: runtime, timeout: timeout}
}

// Check pings the container engine.
func (s *Service) Check(ctx context.Context) error {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:   "usecase",
		logging.FieldUseCase: "HealthCheck",
	})
	log := logging.FromCtx(ctx)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.runtime.Ping(ctx); err != nil {
		log.Debug().Err(err).Msg("engine ping failed")
		return err
	}
	return nil
}
