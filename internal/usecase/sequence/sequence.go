// Package sequence runs non-atomic multi-step engine operations as an
// ordered list of named stages.
//
// A sequence stops at the first failing stage. The returned error is a
// *domain.Error tagged with that stage, so callers and clients can tell how
// far the sequence got before it failed. Completed stages are never undone.
//
// A stage marked Detach, and every stage after it, runs on a context that
// ignores the caller's cancellation. Cancellation is still honoured right
// before the detached stage starts.
package sequence

import (
	"context"
	"errors"
	"time"

	"github.com/bnema/dockmaster/internal/domain"
	"github.com/bnema/dockmaster/internal/logging"
)

// Step is one stage of a sequence.
type Step struct {
	Stage  domain.Stage
	Run    func(ctx context.Context) error
	Detach bool
}

// Run executes steps in order.
func Run(ctx context.Context, steps ...Step) error {
	log := logging.FromCtx(ctx)
	detached := false

	for _, step := range steps {
		if !detached {
			if err := ctx.Err(); err != nil {
				return contextError(err).WithStage(step.Stage)
			}
			if step.Detach {
				ctx = context.WithoutCancel(ctx)
				detached = true
			}
		}

		start := time.Now()
		log.Debug().Str(logging.FieldStage, string(step.Stage)).Msg("stage started")

		if err := step.Run(ctx); err != nil {
			log.Warn().
				Err(err).
				Str(logging.FieldStage, string(step.Stage)).
				Dur(logging.FieldDuration, time.Since(start)).
				Msg("stage failed")
			return domain.AsError(err).WithStage(step.Stage)
		}

		log.Debug().
			Str(logging.FieldStage, string(step.Stage)).
			Dur(logging.FieldDuration, time.Since(start)).
			Msg("stage completed")
	}
	return nil
}

func contextError(err error) *domain.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewError(domain.KindTimeout, "", "deadline exceeded before stage started", err)
	}
	return domain.NewError(domain.KindOperationFailed, "", "operation cancelled", err)
}
