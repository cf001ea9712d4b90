package in

import (
	"context"

	"github.com/bnema/dockmaster/internal/domain"
)

// RegistryService manages private registry credentials.
type RegistryService interface {
	ListAll(ctx context.Context) ([]domain.RegistryCredentialPublic, error)
	Get(ctx context.Context, name string) (*domain.RegistryCredentialPublic, error)
	Create(ctx context.Context, cred domain.RegistryCredential) (*domain.RegistryCredentialPublic, error)
	Delete(ctx context.Context, name string) error
}

// CredentialLookup resolves full credentials, password included, for
// registry authentication. It is never exposed to driving adapters.
type CredentialLookup interface {
	FindByName(ctx context.Context, name string) (*domain.RegistryCredential, error)
	FindByURL(ctx context.Context, urlPrefix string) (*domain.RegistryCredential, error)
}

// RegistryAuthExecutor runs engine commands wrapped in a registry
// login/logout when the image targets a private registry.
type RegistryAuthExecutor interface {
	RunWithAuth(ctx context.Context, imageRef string, cmd domain.Command) (*domain.ExecutionResult, error)
}
