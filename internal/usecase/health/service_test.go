package health

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bnema/dockmaster/internal/boundaries/out/mocks"
	"github.com/bnema/dockmaster/internal/domain"
	"github.com/bnema/dockmaster/internal/logging"
)

func testContext() context.Context {
	return logging.WithCtx(context.Background(), zerolog.Nop())
}

func TestService_Check_Healthy(t *testing.T) {
	runtime := &mocks.MockContainerRuntime{}
	runtime.On("Ping", mock.Anything).Return(nil)

	svc := NewService(runtime, 0)

	assert.NoError(t, svc.Check(testContext()))
	runtime.AssertExpectations(t)
}

func TestService_Check_EngineDown(t *testing.T) {
	runtime := &mocks.MockContainerRuntime{}
	runtime.On("Ping", mock.Anything).
		Return(domain.NewError(domain.KindEnvironmentUnavailable, "ping", "cannot connect", nil))

	svc := NewService(runtime, time.Second)

	assert.ErrorIs(t, svc.Check(testContext()), domain.ErrEnvironmentUnavailable)
}

func TestService_Check_AppliesDeadline(t *testing.T) {
	runtime := &mocks.MockContainerRuntime{}
	runtime.On("Ping", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	})).Return(nil)

	svc := NewService(runtime, time.Minute)

	assert.NoError(t, svc.Check(testContext()))
	runtime.AssertExpectations(t)
}
