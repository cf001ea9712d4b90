// Package in defines input ports (interfaces) for use cases.
// These interfaces define the contract between driving adapters (HTTP, CLI)
// and the business logic (use cases).
package in

import (
	"context"

	"github.com/bnema/dockmaster/internal/domain"
)

// ComposeService manages manifest-backed services.
type ComposeService interface {
	// List returns every container known to the engine, running or not.
	List(ctx context.Context) ([]domain.ContainerSummary, error)

	// Create writes a manifest for def and brings the service up.
	Create(ctx context.Context, def domain.ServiceDefinition) (*domain.CreateResult, error)

	// RecreateByServiceName pulls the latest image of a manifest-backed
	// service and force-recreates it.
	RecreateByServiceName(ctx context.Context, serviceName string) (*domain.ActionResult, error)
}

// ContainerService manages standalone containers.
type ContainerService interface {
	// Recreate replaces a running container with an equivalent one built
	// from the latest pull of its image.
	Recreate(ctx context.Context, name string) (*domain.RecreateResult, error)

	// Remove force-removes a container.
	Remove(ctx context.Context, name string) (*domain.ActionResult, error)
}
