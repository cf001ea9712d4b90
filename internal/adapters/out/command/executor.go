// Package command implements the engine CLI executor adapter.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/bnema/dockmaster/internal/domain"
	"github.com/bnema/dockmaster/internal/logging"
)

// DefaultTimeout bounds a single command when no timeout is configured.
const DefaultTimeout = 10 * time.Minute

const waitDelay = 10 * time.Second

// daemonDownMarkers are engine CLI diagnostics meaning the daemon itself is
// unreachable rather than the command having failed.
var daemonDownMarkers = []string{
	"Cannot connect to the Docker daemon",
	"Is the docker daemon running",
}

// Executor implements out.CommandExecutor with os/exec.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates a new executor. A zero timeout uses DefaultTimeout.
func NewExecutor(timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{timeout: timeout}
}

// Run executes cmd and captures its output.
//
// A non-zero exit is reported through ExecutionResult.Success with stdout
// and stderr in Output. An error is returned when the executable is missing,
// the engine daemon is unreachable or the timeout expires.
func (e *Executor) Run(ctx context.Context, cmd domain.Command) (*domain.ExecutionResult, error) {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:   "adapter",
		logging.FieldAdapter: "command",
	})
	log := logging.FromCtx(ctx)

	// stdin and env are never logged, they may carry credentials
	log.Info().Str("dir", cmd.Dir).Str("command", cmd.String()).Msg("executing command")

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...) //nolint:gosec // arguments are built by use cases, never by a shell
	c.Dir = cmd.Dir
	// children of a killed process may keep the output pipes open
	c.WaitDelay = waitDelay
	if cmd.Stdin != "" {
		c.Stdin = strings.NewReader(cmd.Stdin)
	}
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	err := c.Run()
	log.Debug().Dur(logging.FieldDuration, time.Since(start)).Msg("command finished")

	if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, domain.NewError(domain.KindTimeout, cmd.String(),
			fmt.Sprintf("command did not finish within %s", e.timeout), ctx.Err()).
			WithOutput(combined(stdout.String(), stderr.String()))
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, domain.NewError(domain.KindEnvironmentUnavailable, cmd.String(),
				fmt.Sprintf("command %q could not be executed; check that it is installed and on PATH", cmd.Name), err)
		}

		output := combined(stdout.String(), stderr.String())
		if daemonDown(output) {
			return nil, domain.NewError(domain.KindEnvironmentUnavailable, cmd.String(),
				"container engine daemon is not reachable", err).WithOutput(output)
		}

		log.Warn().Int("exit_code", exitErr.ExitCode()).Msg("command failed")
		return &domain.ExecutionResult{Success: false, Output: output}, nil
	}

	return &domain.ExecutionResult{Success: true, Output: stdout.String()}, nil
}

func combined(stdout, stderr string) string {
	switch {
	case stdout == "":
		return stderr
	case stderr == "":
		return stdout
	}
	return fmt.Sprintf("stdout:\n%s\nstderr:\n%s", strings.TrimRight(stdout, "\n"), stderr)
}

func daemonDown(output string) bool {
	for _, marker := range daemonDownMarkers {
		if strings.Contains(output, marker) {
			return true
		}
	}
	return false
}
