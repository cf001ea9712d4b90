package out

import (
	"context"

	"github.com/bnema/dockmaster/internal/domain"
)

// CommandExecutor runs external engine commands.
//
// A command that runs and exits non-zero is not an error: it yields
// Success=false with stdout and stderr captured in Output. An error is
// returned only when the command could not run at all
// (EnvironmentUnavailable) or exceeded its deadline (Timeout).
type CommandExecutor interface {
	Run(ctx context.Context, cmd domain.Command) (*domain.ExecutionResult, error)
}
