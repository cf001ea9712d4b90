package out

import (
	"context"

	"github.com/bnema/dockmaster/internal/domain"
)

// CredentialStorage persists registry credentials keyed by name.
// Get returns domain.ErrRegistryNotFound when name is unknown.
type CredentialStorage interface {
	Get(ctx context.Context, name string) (*domain.RegistryCredential, error)
	List(ctx context.Context) ([]domain.RegistryCredential, error)
	Put(ctx context.Context, cred domain.RegistryCredential) error
	Delete(ctx context.Context, name string) error
}

// ProjectStorage manages per-service project directories and their manifests.
type ProjectStorage interface {
	// ProjectPath returns the directory of a service project.
	ProjectPath(serviceName string) string

	// Exists reports whether the project directory exists.
	Exists(serviceName string) (bool, error)

	// Create creates the project directory. It fails with
	// domain.ErrServiceExists if the directory already exists.
	Create(serviceName string) (string, error)

	// WriteManifest persists the manifest into the project directory.
	WriteManifest(serviceName string, manifest *domain.ComposeManifest) error

	// ReadManifest loads the manifest of a project. Missing or malformed
	// manifests yield domain.ErrManifestNotFound / domain.ErrManifestInvalid.
	ReadManifest(serviceName string) (*domain.ComposeManifest, error)
}
