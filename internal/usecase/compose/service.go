// Package compose implements the manifest-based service use case.
package compose

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/dockmaster/internal/boundaries/in"
	"github.com/bnema/dockmaster/internal/boundaries/out"
	"github.com/bnema/dockmaster/internal/domain"
	"github.com/bnema/dockmaster/internal/logging"
	"github.com/bnema/dockmaster/internal/usecase/sequence"
	"github.com/bnema/dockmaster/pkg/imageref"
	"github.com/bnema/dockmaster/pkg/keylock"
)

// Config holds configuration needed by the compose service.
type Config struct {
	// Binary is the engine CLI providing the compose subcommand.
	Binary string
}

// Service implements in.ComposeService.
type Service struct {
	runtime  out.ContainerRuntime
	projects out.ProjectStorage
	auth     in.RegistryAuthExecutor
	locks    *keylock.Locker
	metrics  out.OperationMetrics
	config   Config
}

// NewService creates a new compose service. locks must be the Locker shared
// with the container service so both serialise on the same container.
func NewService(
	runtime out.ContainerRuntime,
	projects out.ProjectStorage,
	auth in.RegistryAuthExecutor,
	locks *keylock.Locker,
	metrics out.OperationMetrics,
	config Config,
) *Service {
	if config.Binary == "" {
		config.Binary = "docker"
	}
	if locks == nil {
		locks = keylock.New()
	}
	if metrics == nil {
		metrics = out.NoopMetrics{}
	}
	return &Service{
		runtime:  runtime,
		projects: projects,
		auth:     auth,
		locks:    locks,
		metrics:  metrics,
		config:   config,
	}
}

// List returns every container known to the engine, running or not.
func (s *Service) List(ctx context.Context) ([]domain.ContainerSummary, error) {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:   "usecase",
		logging.FieldUseCase: "ListContainers",
	})
	log := logging.FromCtx(ctx)

	containers, err := s.runtime.ListContainers(ctx, true)
	if err != nil {
		log.Warn().Err(err).Msg("failed to list containers")
		return nil, err
	}
	return containers, nil
}

// Create writes a manifest for def into a fresh project directory and
// starts it. Files written before a failing stage are left in place.
func (s *Service) Create(ctx context.Context, def domain.ServiceDefinition) (result *domain.CreateResult, err error) {
	def = def.Normalize()
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:    "usecase",
		logging.FieldUseCase:  "CreateService",
		logging.FieldEntityID: def.ServiceName,
		"image":               def.Image,
	})
	log := logging.FromCtx(ctx)

	start := time.Now()
	defer func() { s.metrics.ObserveOperation("compose_create", domain.KindOf(err), time.Since(start)) }()

	if err := def.Validate(); err != nil {
		return nil, err
	}
	if err := imageref.Validate(def.Image); err != nil {
		return nil, domain.NewError(domain.KindInvalid, "create service",
			fmt.Sprintf("invalid image reference %q", def.Image), err)
	}

	release, err := s.locks.Lock(ctx, domain.ContainerLockKey(def.ServiceName))
	if err != nil {
		return nil, lockError(err)
	}
	defer release()

	var projectPath string
	manifest := domain.BuildComposeManifest(def)

	err = sequence.Run(ctx,
		sequence.Step{Stage: domain.StagePrepare, Run: func(context.Context) error {
			path, err := s.projects.Create(def.ServiceName)
			if errors.Is(err, domain.ErrServiceExists) {
				return domain.NewError(domain.KindConflict, "create service",
					fmt.Sprintf("service %q already exists", def.ServiceName), err)
			}
			if err != nil {
				return domain.NewError(domain.KindOperationFailed, "create service",
					"failed to create project directory", err)
			}
			projectPath = path
			return nil
		}},
		sequence.Step{Stage: domain.StageWriteManifest, Run: func(context.Context) error {
			if err := s.projects.WriteManifest(def.ServiceName, manifest); err != nil {
				return domain.NewError(domain.KindOperationFailed, "create service",
					"failed to write manifest", err)
			}
			return nil
		}},
		sequence.Step{Stage: domain.StageComposeUp, Run: func(ctx context.Context) error {
			return s.runCompose(ctx, def.Image, projectPath, "failed to start service", "up", "-d")
		}},
	)
	if err != nil {
		return nil, err
	}

	log.Info().Str("project_path", projectPath).Msg("service created")
	return &domain.CreateResult{
		ActionResult: domain.ActionResult{
			Status:  domain.StatusSuccess,
			Message: fmt.Sprintf("service '%s' created and started", def.ServiceName),
		},
		ProjectPath: projectPath,
		Manifest:    manifest,
	}, nil
}

// RecreateByServiceName pulls the latest image of an existing
// manifest-backed service and force-recreates it.
func (s *Service) RecreateByServiceName(ctx context.Context, serviceName string) (result *domain.ActionResult, err error) {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:    "usecase",
		logging.FieldUseCase:  "RecreateService",
		logging.FieldEntityID: serviceName,
	})
	log := logging.FromCtx(ctx)

	start := time.Now()
	defer func() { s.metrics.ObserveOperation("compose_recreate", domain.KindOf(err), time.Since(start)) }()

	if err := domain.ValidateServiceName(serviceName); err != nil {
		return nil, domain.NewError(domain.KindInvalid, "recreate service",
			fmt.Sprintf("invalid service name %q", serviceName), err)
	}

	release, err := s.locks.Lock(ctx, domain.ContainerLockKey(serviceName))
	if err != nil {
		return nil, lockError(err)
	}
	defer release()

	projectPath := s.projects.ProjectPath(serviceName)
	var image string

	err = sequence.Run(ctx,
		sequence.Step{Stage: domain.StageLoadManifest, Run: func(context.Context) error {
			exists, err := s.projects.Exists(serviceName)
			if err != nil {
				return domain.NewError(domain.KindOperationFailed, "recreate service",
					"failed to check project directory", err)
			}
			if !exists {
				return domain.NewError(domain.KindNotFound, "recreate service",
					fmt.Sprintf("project directory %q not found", projectPath), domain.ErrServiceNotFound)
			}
			image, err = s.serviceImage(serviceName)
			return err
		}},
		sequence.Step{Stage: domain.StageComposePull, Run: func(ctx context.Context) error {
			return s.runCompose(ctx, image, projectPath, "image pull failed", "pull", serviceName)
		}},
		sequence.Step{Stage: domain.StageComposeUp, Detach: true, Run: func(ctx context.Context) error {
			return s.runCompose(ctx, image, projectPath, "failed to recreate service",
				"up", "-d", "--force-recreate", serviceName)
		}},
	)
	if err != nil {
		return nil, err
	}

	log.Info().Str("image", image).Msg("service recreated")
	return &domain.ActionResult{
		Status:  domain.StatusSuccess,
		Message: fmt.Sprintf("service '%s' recreated with image '%s'", serviceName, image),
	}, nil
}

// serviceImage reads the image of serviceName from its manifest. Every way
// the lookup can fail is reported as NotFound with the underlying diagnostic.
func (s *Service) serviceImage(serviceName string) (string, error) {
	manifest, err := s.projects.ReadManifest(serviceName)
	if err != nil {
		return "", domain.NewError(domain.KindNotFound, "recreate service",
			fmt.Sprintf("cannot read image of service '%s' from manifest", serviceName), err)
	}
	svc, ok := manifest.Service(serviceName)
	if !ok {
		return "", domain.NewError(domain.KindNotFound, "recreate service",
			fmt.Sprintf("manifest has no service '%s'", serviceName), domain.ErrServiceNotFound)
	}
	if svc.Image == "" {
		return "", domain.NewError(domain.KindNotFound, "recreate service",
			fmt.Sprintf("service '%s' has no image in manifest", serviceName), domain.ErrManifestInvalid)
	}
	return svc.Image, nil
}

func (s *Service) runCompose(ctx context.Context, image, dir, failure string, args ...string) error {
	cmd := domain.Command{
		Name: s.config.Binary,
		Args: append([]string{"compose"}, args...),
		Dir:  dir,
	}
	result, err := s.auth.RunWithAuth(ctx, image, cmd)
	if err != nil {
		return err
	}
	if !result.Success {
		return domain.NewError(domain.KindOperationFailed, cmd.String(), failure, nil).WithOutput(result.Output)
	}
	return nil
}

func lockError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewError(domain.KindTimeout, "", "timed out waiting for another operation on the same service", err)
	}
	return domain.NewError(domain.KindOperationFailed, "", "cancelled while waiting for another operation", err)
}
