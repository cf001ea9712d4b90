package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bnema/dockmaster/internal/domain"
)

// MockCommandExecutor is a mock implementation of out.CommandExecutor.
type MockCommandExecutor struct {
	mock.Mock
}

func (m *MockCommandExecutor) Run(ctx context.Context, cmd domain.Command) (*domain.ExecutionResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExecutionResult), args.Error(1)
}
