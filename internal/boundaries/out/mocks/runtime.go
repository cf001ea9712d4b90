package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bnema/dockmaster/internal/domain"
)

// MockContainerRuntime is a mock implementation of out.ContainerRuntime.
type MockContainerRuntime struct {
	mock.Mock
}

func (m *MockContainerRuntime) ListContainers(ctx context.Context, all bool) ([]domain.ContainerSummary, error) {
	args := m.Called(ctx, all)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ContainerSummary), args.Error(1)
}

func (m *MockContainerRuntime) InspectContainer(ctx context.Context, nameOrID string) (*domain.ContainerSnapshot, error) {
	args := m.Called(ctx, nameOrID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContainerSnapshot), args.Error(1)
}

func (m *MockContainerRuntime) StopContainer(ctx context.Context, containerID string) error {
	args := m.Called(ctx, containerID)
	return args.Error(0)
}

func (m *MockContainerRuntime) RemoveContainer(ctx context.Context, containerID string, force bool) error {
	args := m.Called(ctx, containerID, force)
	return args.Error(0)
}

func (m *MockContainerRuntime) PullImage(ctx context.Context, imageRef string) error {
	args := m.Called(ctx, imageRef)
	return args.Error(0)
}

func (m *MockContainerRuntime) PullImageWithAuth(ctx context.Context, imageRef string, cred domain.RegistryCredential) error {
	args := m.Called(ctx, imageRef, cred)
	return args.Error(0)
}

func (m *MockContainerRuntime) RunContainer(ctx context.Context, snapshot *domain.ContainerSnapshot) (string, error) {
	args := m.Called(ctx, snapshot)
	return args.String(0), args.Error(1)
}

func (m *MockContainerRuntime) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
