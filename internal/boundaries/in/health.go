package in

import "context"

// HealthService reports whether the container engine is reachable.
type HealthService interface {
	Check(ctx context.Context) error
}
