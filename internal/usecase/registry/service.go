// Package registry implements the private registry credential use case.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bnema/dockmaster/internal/boundaries/out"
	"github.com/bnema/dockmaster/internal/domain"
	"github.com/bnema/dockmaster/internal/logging"
)

// Service implements in.RegistryService and in.CredentialLookup.
type Service struct {
	storage out.CredentialStorage

	// writeMu serialises read-modify-write sequences.
	writeMu sync.Mutex
}

// NewService creates a new registry credential service.
func NewService(storage out.CredentialStorage) *Service {
	return &Service{storage: storage}
}

// FindByName returns the full credential named name, or nil when none exists.
func (s *Service) FindByName(ctx context.Context, name string) (*domain.RegistryCredential, error) {
	cred, err := s.storage.Get(ctx, name)
	if errors.Is(err, domain.ErrRegistryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("find registry", err)
	}
	return cred, nil
}

// FindByURL returns the credential whose URL designates urlPrefix, or nil.
// Scheme, trailing slashes and case are ignored.
func (s *Service) FindByURL(ctx context.Context, urlPrefix string) (*domain.RegistryCredential, error) {
	creds, err := s.storage.List(ctx)
	if err != nil {
		return nil, storageError("find registry", err)
	}
	for i := range creds {
		if creds[i].MatchesHost(urlPrefix) {
			cred := creds[i]
			return &cred, nil
		}
	}
	return nil, nil
}

// ListAll returns every credential without its password, sorted by name.
func (s *Service) ListAll(ctx context.Context) ([]domain.RegistryCredentialPublic, error) {
	creds, err := s.storage.List(ctx)
	if err != nil {
		return nil, storageError("list registries", err)
	}

	result := make([]domain.RegistryCredentialPublic, 0, len(creds))
	for _, c := range creds {
		result = append(result, c.Public())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Get returns the credential named name without its password.
func (s *Service) Get(ctx context.Context, name string) (*domain.RegistryCredentialPublic, error) {
	cred, err := s.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, notFound("get registry", name)
	}
	pub := cred.Public()
	return &pub, nil
}

// Create stores a new credential. Names are unique.
func (s *Service) Create(ctx context.Context, cred domain.RegistryCredential) (*domain.RegistryCredentialPublic, error) {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:    "usecase",
		logging.FieldUseCase:  "CreateRegistry",
		logging.FieldEntityID: cred.Name,
	})
	log := logging.FromCtx(ctx)

	cred.Name = strings.TrimSpace(cred.Name)
	cred.URL = strings.TrimSpace(cred.URL)
	cred.Login = strings.TrimSpace(cred.Login)
	if err := cred.Validate(); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	existing, err := s.FindByName(ctx, cred.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.NewError(domain.KindConflict, "create registry",
			fmt.Sprintf("registry %q already exists", cred.Name), domain.ErrRegistryExists)
	}

	if err := s.storage.Put(ctx, cred); err != nil {
		return nil, storageError("create registry", err)
	}

	log.Info().Str("url", cred.URL).Msg("registry credential stored")
	pub := cred.Public()
	return &pub, nil
}

// Delete removes the credential named name.
func (s *Service) Delete(ctx context.Context, name string) error {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:    "usecase",
		logging.FieldUseCase:  "DeleteRegistry",
		logging.FieldEntityID: name,
	})
	log := logging.FromCtx(ctx)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.storage.Delete(ctx, name)
	if errors.Is(err, domain.ErrRegistryNotFound) {
		return notFound("delete registry", name)
	}
	if err != nil {
		return storageError("delete registry", err)
	}

	log.Info().Msg("registry credential deleted")
	return nil
}

func notFound(op, name string) error {
	return domain.NewError(domain.KindNotFound, op,
		fmt.Sprintf("registry %q not found", name), domain.ErrRegistryNotFound)
}

func storageError(op string, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.NewError(domain.KindOperationFailed, op, "credential storage failure", err)
}
