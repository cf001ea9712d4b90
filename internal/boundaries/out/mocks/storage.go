package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bnema/dockmaster/internal/domain"
)

// MockCredentialStorage is a mock implementation of out.CredentialStorage.
type MockCredentialStorage struct {
	mock.Mock
}

func (m *MockCredentialStorage) Get(ctx context.Context, name string) (*domain.RegistryCredential, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RegistryCredential), args.Error(1)
}

func (m *MockCredentialStorage) List(ctx context.Context) ([]domain.RegistryCredential, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RegistryCredential), args.Error(1)
}

func (m *MockCredentialStorage) Put(ctx context.Context, cred domain.RegistryCredential) error {
	args := m.Called(ctx, cred)
	return args.Error(0)
}

func (m *MockCredentialStorage) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

// MockProjectStorage is a mock implementation of out.ProjectStorage.
type MockProjectStorage struct {
	mock.Mock
}

func (m *MockProjectStorage) ProjectPath(serviceName string) string {
	args := m.Called(serviceName)
	return args.String(0)
}

func (m *MockProjectStorage) Exists(serviceName string) (bool, error) {
	args := m.Called(serviceName)
	return args.Bool(0), args.Error(1)
}

func (m *MockProjectStorage) Create(serviceName string) (string, error) {
	args := m.Called(serviceName)
	return args.String(0), args.Error(1)
}

func (m *MockProjectStorage) WriteManifest(serviceName string, manifest *domain.ComposeManifest) error {
	args := m.Called(serviceName, manifest)
	return args.Error(0)
}

func (m *MockProjectStorage) ReadManifest(serviceName string) (*domain.ComposeManifest, error) {
	args := m.Called(serviceName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ComposeManifest), args.Error(1)
}
