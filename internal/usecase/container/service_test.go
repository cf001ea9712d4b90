package container

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	inmocks "github.com/bnema/dockmaster/internal/boundaries/in/mocks"
	outmocks "github.com/bnema/dockmaster/internal/boundaries/out/mocks"
	"github.com/bnema/dockmaster/internal/domain"
	"github.com/bnema/dockmaster/internal/logging"
	"github.com/bnema/dockmaster/pkg/keylock"
)

func testContext() context.Context {
	return logging.WithCtx(context.Background(), zerolog.Nop())
}

type recordingMetrics struct {
	mu    sync.Mutex
	pulls []string
	ops   map[string]domain.ErrorKind
}

func (m *recordingMetrics) ObserveOperation(op string, kind domain.ErrorKind, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ops == nil {
		m.ops = map[string]domain.ErrorKind{}
	}
	m.ops[op] = kind
}

func (m *recordingMetrics) ObserveImagePull(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pulls = append(m.pulls, outcome)
}

func newSnapshot(image string) *domain.ContainerSnapshot {
	return &domain.ContainerSnapshot{
		ID:    "abcdef0123456789",
		Image: image,
		Name:  "/web",
		Env:   []string{"MODE=prod"},
		PortBindings: map[string][]domain.PortBinding{
			"80/tcp": {{HostIP: "0.0.0.0", HostPort: "8080"}},
		},
		Mounts:        []domain.Mount{{Type: "volume", Source: "data", Target: "/data"}},
		NetworkMode:   "bridge",
		RestartPolicy: domain.RestartPolicy{Name: "always"},
	}
}

type fixture struct {
	runtime *outmocks.MockContainerRuntime
	creds   *inmocks.MockCredentialLookup
	svc     *Service
}

func newFixture() *fixture {
	f := &fixture{
		runtime: &outmocks.MockContainerRuntime{},
		creds:   &inmocks.MockCredentialLookup{},
	}
	f.svc = NewService(f.runtime, f.creds, keylock.New(), nil)
	return f
}

func engineErr(kind domain.ErrorKind, msg string, cause error) error {
	return domain.NewError(kind, "docker", msg, cause)
}

func TestService_Recreate_Success(t *testing.T) {
	f := newFixture()
	snap := newSnapshot("nginx:latest")

	f.runtime.On("InspectContainer", mock.Anything, "web").Return(snap, nil)
	f.runtime.On("PullImage", mock.Anything, "nginx:latest").Return(nil)
	f.runtime.On("StopContainer", mock.Anything, snap.ID).Return(nil)
	f.runtime.On("RemoveContainer", mock.Anything, snap.ID, false).Return(nil)
	f.runtime.On("RunContainer", mock.Anything, mock.MatchedBy(func(s *domain.ContainerSnapshot) bool {
		return s.Name == "web" && s.Image == "nginx:latest" &&
			s.RestartPolicy.Name == "always" && len(s.PortBindings["80/tcp"]) == 1
	})).Return("fedcba9876543210", nil)

	result, err := f.svc.Recreate(testContext(), "web")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, result.Status)
	assert.Equal(t, "fedcba987654", result.NewContainerID)
	assert.Empty(t, result.Warnings)
	f.runtime.AssertExpectations(t)
	f.creds.AssertNotCalled(t, "FindByURL", mock.Anything, mock.Anything)
}

func TestService_Recreate_NotFound(t *testing.T) {
	f := newFixture()
	f.runtime.On("InspectContainer", mock.Anything, "ghost").
		Return(nil, engineErr(domain.KindNotFound, "no such container", domain.ErrContainerNotFound))

	_, err := f.svc.Recreate(testContext(), "ghost")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.StageInspect, domain.AsError(err).Stage)
	f.runtime.AssertNotCalled(t, "PullImage", mock.Anything, mock.Anything)
	f.runtime.AssertNotCalled(t, "StopContainer", mock.Anything, mock.Anything)
}

func TestService_Recreate_ImageNotFoundContinuesWithWarning(t *testing.T) {
	f := newFixture()
	snap := newSnapshot("local-only:dev")

	f.runtime.On("InspectContainer", mock.Anything, "web").Return(snap, nil)
	f.runtime.On("PullImage", mock.Anything, "local-only:dev").
		Return(engineErr(domain.KindNotFound, "pull access denied", domain.ErrImageNotFound))
	f.runtime.On("StopContainer", mock.Anything, snap.ID).Return(nil)
	f.runtime.On("RemoveContainer", mock.Anything, snap.ID, false).Return(nil)
	f.runtime.On("RunContainer", mock.Anything, snap).Return("new-id", nil)

	result, err := f.svc.Recreate(testContext(), "web")

	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "local-only:dev")
}

func TestService_Recreate_RecordsMetrics(t *testing.T) {
	metrics := &recordingMetrics{}
	f := newFixture()
	f.svc = NewService(f.runtime, f.creds, keylock.New(), metrics)
	snap := newSnapshot("local-only:dev")

	f.runtime.On("InspectContainer", mock.Anything, "web").Return(snap, nil)
	f.runtime.On("PullImage", mock.Anything, "local-only:dev").
		Return(engineErr(domain.KindNotFound, "not found", domain.ErrImageNotFound))
	f.runtime.On("StopContainer", mock.Anything, snap.ID).Return(nil)
	f.runtime.On("RemoveContainer", mock.Anything, snap.ID, false).Return(nil)
	f.runtime.On("RunContainer", mock.Anything, snap).Return("", engineErr(domain.KindOperationFailed, "boom", nil))

	_, err := f.svc.Recreate(testContext(), "web")
	require.Error(t, err)

	assert.Equal(t, []string{PullOutcomeLocalFallback}, metrics.pulls)
	assert.Equal(t, domain.KindInconsistent, metrics.ops["container_recreate"])
}

func TestService_Recreate_PullFailureLeavesContainer(t *testing.T) {
	f := newFixture()
	snap := newSnapshot("nginx:latest")

	f.runtime.On("InspectContainer", mock.Anything, "web").Return(snap, nil)
	f.runtime.On("PullImage", mock.Anything, "nginx:latest").
		Return(engineErr(domain.KindOperationFailed, "toomanyrequests", nil))

	_, err := f.svc.Recreate(testContext(), "web")

	require.ErrorIs(t, err, domain.ErrOperationFailed)
	assert.Equal(t, domain.StagePull, domain.AsError(err).Stage)
	f.runtime.AssertNotCalled(t, "StopContainer", mock.Anything, mock.Anything)
	f.runtime.AssertNotCalled(t, "RemoveContainer", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Recreate_PrivateImageUsesCredentials(t *testing.T) {
	f := newFixture()
	snap := newSnapshot("registry.example.com/team/web:2")
	cred := &domain.RegistryCredential{Name: "corp", URL: "registry.example.com", Login: "deploy", Password: "s3cret"}

	f.runtime.On("InspectContainer", mock.Anything, "web").Return(snap, nil)
	f.creds.On("FindByURL", mock.Anything, "registry.example.com").Return(cred, nil)
	f.runtime.On("PullImageWithAuth", mock.Anything, snap.Image, *cred).Return(nil)
	f.runtime.On("StopContainer", mock.Anything, snap.ID).Return(nil)
	f.runtime.On("RemoveContainer", mock.Anything, snap.ID, false).Return(nil)
	f.runtime.On("RunContainer", mock.Anything, snap).Return("new-id", nil)

	_, err := f.svc.Recreate(testContext(), "web")

	require.NoError(t, err)
	f.runtime.AssertNotCalled(t, "PullImage", mock.Anything, mock.Anything)
}

func TestService_Recreate_PrivateImageWithoutCredentialsPullsAnonymously(t *testing.T) {
	f := newFixture()
	snap := newSnapshot("registry.example.com/team/web:2")

	f.runtime.On("InspectContainer", mock.Anything, "web").Return(snap, nil)
	f.creds.On("FindByURL", mock.Anything, "registry.example.com").Return(nil, nil)
	f.runtime.On("PullImage", mock.Anything, snap.Image).Return(nil)
	f.runtime.On("StopContainer", mock.Anything, snap.ID).Return(nil)
	f.runtime.On("RemoveContainer", mock.Anything, snap.ID, false).Return(nil)
	f.runtime.On("RunContainer", mock.Anything, snap).Return("new-id", nil)

	_, err := f.svc.Recreate(testContext(), "web")

	require.NoError(t, err)
	f.runtime.AssertNotCalled(t, "PullImageWithAuth", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Recreate_StopFailure(t *testing.T) {
	f := newFixture()
	snap := newSnapshot("nginx:latest")

	f.runtime.On("InspectContainer", mock.Anything, "web").Return(snap, nil)
	f.runtime.On("PullImage", mock.Anything, "nginx:latest").Return(nil)
	f.runtime.On("StopContainer", mock.Anything, snap.ID).
		Return(engineErr(domain.KindOperationFailed, "cannot kill", nil))

	_, err := f.svc.Recreate(testContext(), "web")

	require.ErrorIs(t, err, domain.ErrOperationFailed)
	de := domain.AsError(err)
	assert.Equal(t, domain.StageStopRemove, de.Stage)
	assert.Contains(t, de.Message, "no replacement was started")
	f.runtime.AssertNotCalled(t, "RunContainer", mock.Anything, mock.Anything)
}

func TestService_Recreate_RunFailureIsInconsistent(t *testing.T) {
	f := newFixture()
	snap := newSnapshot("nginx:latest")

	f.runtime.On("InspectContainer", mock.Anything, "web").Return(snap, nil)
	f.runtime.On("PullImage", mock.Anything, "nginx:latest").Return(nil)
	f.runtime.On("StopContainer", mock.Anything, snap.ID).Return(nil)
	f.runtime.On("RemoveContainer", mock.Anything, snap.ID, false).Return(nil)
	f.runtime.On("RunContainer", mock.Anything, snap).
		Return("", engineErr(domain.KindOperationFailed, "port is already allocated", nil))

	_, err := f.svc.Recreate(testContext(), "web")

	require.Error(t, err)
	de := domain.AsError(err)
	assert.Equal(t, domain.KindInconsistent, de.Kind)
	assert.Equal(t, domain.StageRecreate, de.Stage)
	assert.ErrorIs(t, err, domain.ErrInconsistent)
	assert.Contains(t, err.Error(), "port is already allocated")
	f.runtime.AssertNumberOfCalls(t, "RunContainer", 1)
}

func TestService_Recreate_ClientGoneAfterRemoveStillRecreates(t *testing.T) {
	f := newFixture()
	snap := newSnapshot("nginx:latest")
	ctx, cancel := context.WithCancel(testContext())
	defer cancel()

	var runCtxErr error
	f.runtime.On("InspectContainer", mock.Anything, "web").Return(snap, nil)
	f.runtime.On("PullImage", mock.Anything, "nginx:latest").Return(nil)
	f.runtime.On("StopContainer", mock.Anything, snap.ID).Return(nil)
	f.runtime.On("RemoveContainer", mock.Anything, snap.ID, false).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil)
	f.runtime.On("RunContainer", mock.Anything, snap).
		Run(func(args mock.Arguments) { runCtxErr = args.Get(0).(context.Context).Err() }).
		Return("fedcba9876543210", nil)

	result, err := f.svc.Recreate(ctx, "web")

	require.NoError(t, err)
	assert.Equal(t, "fedcba987654", result.NewContainerID)
	assert.NoError(t, runCtxErr)
	f.runtime.AssertNumberOfCalls(t, "RunContainer", 1)
}

func TestService_Recreate_ClientGoneAfterRemoveRunFailureIsInconsistent(t *testing.T) {
	f := newFixture()
	snap := newSnapshot("nginx:latest")
	ctx, cancel := context.WithCancel(testContext())
	defer cancel()

	f.runtime.On("InspectContainer", mock.Anything, "web").Return(snap, nil)
	f.runtime.On("PullImage", mock.Anything, "nginx:latest").Return(nil)
	f.runtime.On("StopContainer", mock.Anything, snap.ID).Return(nil)
	f.runtime.On("RemoveContainer", mock.Anything, snap.ID, false).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil)
	f.runtime.On("RunContainer", mock.Anything, snap).
		Return("", engineErr(domain.KindEnvironmentUnavailable, "daemon gone", nil))

	_, err := f.svc.Recreate(ctx, "web")

	de := domain.AsError(err)
	assert.Equal(t, domain.KindInconsistent, de.Kind)
	assert.Equal(t, domain.StageRecreate, de.Stage)
}

func TestService_Recreate_CancelBeforeStopLeavesContainer(t *testing.T) {
	f := newFixture()
	snap := newSnapshot("nginx:latest")
	ctx, cancel := context.WithCancel(testContext())
	defer cancel()

	f.runtime.On("InspectContainer", mock.Anything, "web").Return(snap, nil)
	f.runtime.On("PullImage", mock.Anything, "nginx:latest").
		Run(func(mock.Arguments) { cancel() }).
		Return(nil)

	_, err := f.svc.Recreate(ctx, "web")

	require.ErrorIs(t, err, domain.ErrOperationFailed)
	assert.Equal(t, domain.StageStopRemove, domain.AsError(err).Stage)
	f.runtime.AssertNotCalled(t, "StopContainer", mock.Anything, mock.Anything)
}

func TestService_Remove(t *testing.T) {
	f := newFixture()
	snap := newSnapshot("nginx")
	f.runtime.On("InspectContainer", mock.Anything, "web").Return(snap, nil)
	f.runtime.On("RemoveContainer", mock.Anything, snap.ID, true).Return(nil)

	result, err := f.svc.Remove(testContext(), "web")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, result.Status)
	f.runtime.AssertExpectations(t)
}

func TestService_Remove_NotFound(t *testing.T) {
	f := newFixture()
	f.runtime.On("InspectContainer", mock.Anything, "ghost").
		Return(nil, engineErr(domain.KindNotFound, "no such container", domain.ErrContainerNotFound))

	_, err := f.svc.Remove(testContext(), "ghost")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	f.runtime.AssertNotCalled(t, "RemoveContainer", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_SameNameIsSerialised(t *testing.T) {
	locks := keylock.New()
	f := newFixture()
	f.svc = NewService(f.runtime, f.creds, locks, nil)

	release, err := locks.Lock(context.Background(), "container:web")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(testContext(), 0)
	defer cancel()

	f.runtime.On("InspectContainer", mock.Anything, "web").Return(newSnapshot("nginx"), nil)

	_, err = f.svc.Remove(ctx, "web")
	assert.ErrorIs(t, err, domain.ErrTimeout)
	f.runtime.AssertNotCalled(t, "RemoveContainer", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_IDAndNameShareLock(t *testing.T) {
	locks := keylock.New()
	f := newFixture()
	f.svc = NewService(f.runtime, f.creds, locks, nil)
	snap := newSnapshot("nginx")

	release, err := locks.Lock(context.Background(), domain.ContainerLockKey("web"))
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(testContext(), 20*time.Millisecond)
	defer cancel()

	f.runtime.On("InspectContainer", mock.Anything, snap.ID).Return(snap, nil)

	_, err = f.svc.Recreate(ctx, snap.ID)
	assert.ErrorIs(t, err, domain.ErrTimeout)
	f.runtime.AssertNotCalled(t, "PullImage", mock.Anything, mock.Anything)
	f.runtime.AssertNotCalled(t, "StopContainer", mock.Anything, mock.Anything)
}

func TestService_Remove_ByIDUsesCanonicalName(t *testing.T) {
	f := newFixture()
	snap := newSnapshot("nginx")
	f.runtime.On("InspectContainer", mock.Anything, snap.ID).Return(snap, nil)
	f.runtime.On("InspectContainer", mock.Anything, "web").Return(snap, nil)
	f.runtime.On("RemoveContainer", mock.Anything, snap.ID, true).Return(nil)

	result, err := f.svc.Remove(testContext(), snap.ID)

	require.NoError(t, err)
	assert.Contains(t, result.Message, "'web'")
}
