// Package container implements recreation and removal of standalone
// containers, the ones not backed by a manifest.
package container

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/dockmaster/internal/boundaries/in"
	"github.com/bnema/dockmaster/internal/boundaries/out"
	"github.com/bnema/dockmaster/internal/domain"
	"github.com/bnema/dockmaster/internal/logging"
	"github.com/bnema/dockmaster/internal/usecase/sequence"
	"github.com/bnema/dockmaster/pkg/imageref"
	"github.com/bnema/dockmaster/pkg/keylock"
)

// Image pull outcomes reported to metrics.
const (
	PullOutcomePulled        = "pulled"
	PullOutcomeLocalFallback = "local_fallback"
	PullOutcomeFailed        = "failed"
)

// Service implements in.ContainerService.
type Service struct {
	runtime out.ContainerRuntime
	creds   in.CredentialLookup
	locks   *keylock.Locker
	metrics out.OperationMetrics
}

// NewService creates a new container service. locks must be the Locker
// shared with the compose service.
func NewService(
	runtime out.ContainerRuntime,
	creds in.CredentialLookup,
	locks *keylock.Locker,
	metrics out.OperationMetrics,
) *Service {
	if locks == nil {
		locks = keylock.New()
	}
	if metrics == nil {
		metrics = out.NoopMetrics{}
	}
	return &Service{
		runtime: runtime,
		creds:   creds,
		locks:   locks,
		metrics: metrics,
	}
}

// Recreate replaces the container called name with a new one created from
// the latest pull of its image and the old container's configuration.
//
// The sequence is inspect, pull, stop-remove, recreate and stops at the
// first failure. A failure in the recreate stage leaves no container at all
// and is reported as domain.KindInconsistent. Once stop-remove starts, the
// caller's cancellation no longer stops the sequence.
func (s *Service) Recreate(ctx context.Context, name string) (result *domain.RecreateResult, err error) {
	name = strings.TrimPrefix(name, "/")
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:    "usecase",
		logging.FieldUseCase:  "RecreateContainer",
		logging.FieldEntityID: name,
	})
	log := logging.FromCtx(ctx)

	start := time.Now()
	defer func() { s.metrics.ObserveOperation("container_recreate", domain.KindOf(err), time.Since(start)) }()

	name, release, err := s.lockContainer(ctx, name)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		snapshot    *domain.ContainerSnapshot
		warnings    []string
		containerID string
	)

	err = sequence.Run(ctx,
		sequence.Step{Stage: domain.StageInspect, Run: func(ctx context.Context) error {
			snap, err := s.runtime.InspectContainer(ctx, name)
			if err != nil {
				return err
			}
			snap.Name = strings.TrimPrefix(snap.Name, "/")
			snapshot = snap
			return nil
		}},
		sequence.Step{Stage: domain.StagePull, Run: func(ctx context.Context) error {
			warning, err := s.pullLatest(ctx, snapshot.Image)
			if warning != "" {
				warnings = append(warnings, warning)
			}
			return err
		}},
		sequence.Step{Stage: domain.StageStopRemove, Detach: true, Run: func(ctx context.Context) error {
			log.Info().Str("container_id", domain.ShortID(snapshot.ID)).Msg("stopping and removing old container")
			if err := s.runtime.StopContainer(ctx, snapshot.ID); err != nil {
				return stopRemoveError(snapshot.Name, err)
			}
			if err := s.runtime.RemoveContainer(ctx, snapshot.ID, false); err != nil {
				return stopRemoveError(snapshot.Name, err)
			}
			return nil
		}},
		sequence.Step{Stage: domain.StageRecreate, Run: func(ctx context.Context) error {
			id, err := s.runtime.RunContainer(ctx, snapshot)
			if err != nil {
				de := domain.NewError(domain.KindInconsistent, "recreate container",
					fmt.Sprintf("container '%s' was removed but its replacement could not be started; manual intervention required", snapshot.Name), err)
				if inner := domain.AsError(err); inner.Output != "" {
					de = de.WithOutput(inner.Output)
				}
				return de
			}
			containerID = id
			return nil
		}},
	)
	if err != nil {
		if domain.KindOf(err) == domain.KindInconsistent {
			log.Error().Err(err).Msg("container left without replacement")
		}
		return nil, err
	}

	log.Info().Str("container_id", domain.ShortID(containerID)).Msg("container recreated")
	return &domain.RecreateResult{
		ActionResult: domain.ActionResult{
			Status:  domain.StatusSuccess,
			Message: fmt.Sprintf("container '%s' recreated with image '%s'", snapshot.Name, snapshot.Image),
		},
		NewContainerID: domain.ShortID(containerID),
		Warnings:       warnings,
	}, nil
}

// Remove force-removes the container called name.
func (s *Service) Remove(ctx context.Context, name string) (result *domain.ActionResult, err error) {
	name = strings.TrimPrefix(name, "/")
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:    "usecase",
		logging.FieldUseCase:  "RemoveContainer",
		logging.FieldEntityID: name,
	})
	log := logging.FromCtx(ctx)

	start := time.Now()
	defer func() { s.metrics.ObserveOperation("container_remove", domain.KindOf(err), time.Since(start)) }()

	name, release, err := s.lockContainer(ctx, name)
	if err != nil {
		return nil, err
	}
	defer release()

	snapshot, err := s.runtime.InspectContainer(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := s.runtime.RemoveContainer(ctx, snapshot.ID, true); err != nil {
		return nil, err
	}

	log.Info().Str("container_id", domain.ShortID(snapshot.ID)).Msg("container removed")
	return &domain.ActionResult{
		Status:  domain.StatusSuccess,
		Message: fmt.Sprintf("container '%s' removed", name),
	}, nil
}

// pullLatest pulls image, authenticating when it lives in a private registry
// with known credentials. An image the registries do not know is not fatal:
// the returned warning says the local copy will be reused.
func (s *Service) pullLatest(ctx context.Context, image string) (string, error) {
	log := logging.FromCtx(ctx)

	var cred *domain.RegistryCredential
	if host, private := imageref.PrivateRegistryHost(image); private {
		found, err := s.creds.FindByURL(ctx, host)
		if err != nil {
			return "", err
		}
		if found == nil {
			log.Warn().Str("registry", host).Msg("no credentials for private registry, pulling anonymously")
		}
		cred = found
	}

	log.Info().Str("image", image).Msg("pulling latest image")
	var err error
	if cred != nil {
		err = s.runtime.PullImageWithAuth(ctx, image, *cred)
	} else {
		err = s.runtime.PullImage(ctx, image)
	}

	switch {
	case err == nil:
		s.metrics.ObserveImagePull(PullOutcomePulled)
		return "", nil
	case errors.Is(err, domain.ErrImageNotFound):
		s.metrics.ObserveImagePull(PullOutcomeLocalFallback)
		warning := fmt.Sprintf("image '%s' not found in registry; using the local image", image)
		log.Warn().Msg(warning)
		return warning, nil
	default:
		s.metrics.ObserveImagePull(PullOutcomeFailed)
		kind := domain.KindOf(err)
		if kind == domain.KindNotFound {
			kind = domain.KindOperationFailed
		}
		de := domain.NewError(kind, "pull image",
			fmt.Sprintf("failed to pull image '%s'; the old container was not touched", image), err)
		if inner := domain.AsError(err); inner.Output != "" {
			de = de.WithOutput(inner.Output)
		}
		return "", de
	}
}

func stopRemoveError(name string, err error) error {
	kind := domain.KindOf(err)
	if kind != domain.KindTimeout && kind != domain.KindEnvironmentUnavailable {
		kind = domain.KindOperationFailed
	}
	return domain.NewError(kind, "stop and remove container",
		fmt.Sprintf("failed to stop or remove container '%s'; it may be stopped and no replacement was started", name), err)
}

// lockContainer resolves name, which may also be an ID, to the container's
// canonical name and locks that, so every reference to one container shares
// a single lock. The returned name is the canonical one.
func (s *Service) lockContainer(ctx context.Context, name string) (string, func(), error) {
	snap, err := s.runtime.InspectContainer(ctx, name)
	if err != nil {
		return "", nil, domain.AsError(err).WithStage(domain.StageInspect)
	}
	if canonical := strings.TrimPrefix(snap.Name, "/"); canonical != "" {
		name = canonical
	}

	release, err := s.locks.Lock(ctx, domain.ContainerLockKey(name))
	if err != nil {
		return "", nil, lockError(err)
	}
	return name, release, nil
}

func lockError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewError(domain.KindTimeout, "", "timed out waiting for another operation on the same container", err)
	}
	return domain.NewError(domain.KindOperationFailed, "", "cancelled while waiting for another operation", err)
}
