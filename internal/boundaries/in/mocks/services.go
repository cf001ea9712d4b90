package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bnema/dockmaster/internal/domain"
)

// MockComposeService is a mock implementation of in.ComposeService.
type MockComposeService struct {
	mock.Mock
}

func (m *MockComposeService) List(ctx context.Context) ([]domain.ContainerSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ContainerSummary), args.Error(1)
}

func (m *MockComposeService) Create(ctx context.Context, def domain.ServiceDefinition) (*domain.CreateResult, error) {
	args := m.Called(ctx, def)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreateResult), args.Error(1)
}

func (m *MockComposeService) RecreateByServiceName(ctx context.Context, serviceName string) (*domain.ActionResult, error) {
	args := m.Called(ctx, serviceName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ActionResult), args.Error(1)
}

// MockContainerService is a mock implementation of in.ContainerService.
type MockContainerService struct {
	mock.Mock
}

func (m *MockContainerService) Recreate(ctx context.Context, name string) (*domain.RecreateResult, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecreateResult), args.Error(1)
}

func (m *MockContainerService) Remove(ctx context.Context, name string) (*domain.ActionResult, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ActionResult), args.Error(1)
}

// MockRegistryService is a mock implementation of in.RegistryService.
type MockRegistryService struct {
	mock.Mock
}

func (m *MockRegistryService) ListAll(ctx context.Context) ([]domain.RegistryCredentialPublic, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RegistryCredentialPublic), args.Error(1)
}

func (m *MockRegistryService) Get(ctx context.Context, name string) (*domain.RegistryCredentialPublic, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RegistryCredentialPublic), args.Error(1)
}

func (m *MockRegistryService) Create(ctx context.Context, cred domain.RegistryCredential) (*domain.RegistryCredentialPublic, error) {
	args := m.Called(ctx, cred)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RegistryCredentialPublic), args.Error(1)
}

func (m *MockRegistryService) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

// MockCredentialLookup is a mock implementation of in.CredentialLookup.
type MockCredentialLookup struct {
	mock.Mock
}

func (m *MockCredentialLookup) FindByName(ctx context.Context, name string) (*domain.RegistryCredential, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RegistryCredential), args.Error(1)
}

func (m *MockCredentialLookup) FindByURL(ctx context.Context, urlPrefix string) (*domain.RegistryCredential, error) {
	args := m.Called(ctx, urlPrefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RegistryCredential), args.Error(1)
}

// MockRegistryAuthExecutor is a mock implementation of in.RegistryAuthExecutor.
type MockRegistryAuthExecutor struct {
	mock.Mock
}

func (m *MockRegistryAuthExecutor) RunWithAuth(ctx context.Context, imageRef string, cmd domain.Command) (*domain.ExecutionResult, error) {
	args := m.Called(ctx, imageRef, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExecutionResult), args.Error(1)
}

// MockHealthService is a mock implementation of in.HealthService.
type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) Check(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
