package out

import (
	"time"

	"github.com/bnema/dockmaster/internal/domain"
)

// OperationMetrics records lifecycle operation outcomes.
type OperationMetrics interface {
	// ObserveOperation records one operation; kind is empty on success.
	ObserveOperation(operation string, kind domain.ErrorKind, duration time.Duration)

	// ObserveImagePull records an image pull attempt and its outcome
	// ("pulled", "local_fallback", "failed").
	ObserveImagePull(outcome string)
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) ObserveOperation(string, domain.ErrorKind, time.Duration) {}
func (NoopMetrics) ObserveImagePull(string)                                   {}
