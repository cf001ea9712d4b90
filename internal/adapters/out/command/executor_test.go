package command

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/dockmaster/internal/domain"
	"github.com/bnema/dockmaster/internal/logging"
)

func testContext() context.Context {
	return logging.WithCtx(context.Background(), zerolog.Nop())
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func sh(script string) domain.Command {
	return domain.Command{Name: "sh", Args: []string{"-c", script}}
}

func TestExecutor_Success(t *testing.T) {
	requireShell(t)
	e := NewExecutor(0)

	result, err := e.Run(testContext(), sh("echo hello; echo noise >&2"))

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "hello\n", result.Output)
}

func TestExecutor_NonZeroExit(t *testing.T) {
	requireShell(t)
	e := NewExecutor(0)

	result, err := e.Run(testContext(), sh("echo partial; echo broken >&2; exit 3"))

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Output, "partial")
	assert.Contains(t, result.Output, "broken")
}

func TestExecutor_Stdin(t *testing.T) {
	requireShell(t)
	e := NewExecutor(0)

	cmd := sh("read line; echo got:$line")
	cmd.Stdin = "secret\n"
	result, err := e.Run(testContext(), cmd)

	require.NoError(t, err)
	assert.Equal(t, "got:secret\n", result.Output)
}

func TestExecutor_EnvAndDir(t *testing.T) {
	requireShell(t)
	e := NewExecutor(0)
	dir := t.TempDir()

	cmd := sh(`echo "$DM_TEST_VAR"; pwd`)
	cmd.Env = []string{"DM_TEST_VAR=value"}
	cmd.Dir = dir
	result, err := e.Run(testContext(), cmd)

	require.NoError(t, err)
	assert.Contains(t, result.Output, "value")
	assert.Contains(t, result.Output, dir)
}

func TestExecutor_MissingBinary(t *testing.T) {
	e := NewExecutor(0)

	result, err := e.Run(testContext(), domain.Command{Name: "dockmaster-definitely-missing-binary"})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrEnvironmentUnavailable)
}

func TestExecutor_DaemonDown(t *testing.T) {
	requireShell(t)
	e := NewExecutor(0)

	result, err := e.Run(testContext(),
		sh(`echo "Cannot connect to the Docker daemon at unix:///var/run/docker.sock. Is the docker daemon running?" >&2; exit 1`))

	assert.Nil(t, result)
	require.ErrorIs(t, err, domain.ErrEnvironmentUnavailable)
	assert.Contains(t, domain.AsError(err).Output, "Cannot connect")
}

func TestExecutor_Timeout(t *testing.T) {
	requireShell(t)
	e := NewExecutor(50 * time.Millisecond)

	start := time.Now()
	result, err := e.Run(testContext(), sh("exec sleep 5"))

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrTimeout)
	assert.Less(t, time.Since(start), 4*time.Second)
}
