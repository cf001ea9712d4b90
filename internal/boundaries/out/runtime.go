// Package out defines output ports (interfaces) for infrastructure.
// These interfaces define the contract between use cases and driven adapters
// (Docker, filesystem, etc.).
package out

import (
	"context"

	"github.com/bnema/dockmaster/internal/domain"
)

// ContainerRuntime defines the contract for container engine API operations.
// Implementations return *domain.Error values classified as NotFound,
// EnvironmentUnavailable, Timeout or OperationFailed.
type ContainerRuntime interface {
	// ListContainers lists containers, including stopped ones when all is set.
	ListContainers(ctx context.Context, all bool) ([]domain.ContainerSummary, error)

	// InspectContainer captures the effective configuration of a container
	// by name or ID.
	InspectContainer(ctx context.Context, nameOrID string) (*domain.ContainerSnapshot, error)

	// StopContainer stops a container.
	StopContainer(ctx context.Context, containerID string) error

	// RemoveContainer removes a container, killing it first when force is set.
	RemoveContainer(ctx context.Context, containerID string, force bool) error

	// PullImage pulls an image anonymously.
	PullImage(ctx context.Context, imageRef string) error

	// PullImageWithAuth pulls an image with registry credentials.
	PullImageWithAuth(ctx context.Context, imageRef string, cred domain.RegistryCredential) error

	// RunContainer creates and starts a container from a snapshot and
	// returns the new container ID.
	RunContainer(ctx context.Context, snapshot *domain.ContainerSnapshot) (string, error)

	// Ping checks that the engine is reachable.
	Ping(ctx context.Context) error
}
