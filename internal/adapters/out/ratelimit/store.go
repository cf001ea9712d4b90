package ratelimit

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Config describes the API rate limit.
type Config struct {
	Enabled bool
	Backend string
	RPS     float64
	Burst   int
	IdleTTL time.Duration
}

// NewStore creates the limiter for the configured backend. A disabled config
// yields a nil store and no error.
func NewStore(cfg Config, log zerolog.Logger) (*MemoryStore, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.RPS <= 0 || cfg.Burst <= 0 {
		return nil, fmt.Errorf("rate limit requires positive rps and burst, got rps=%v burst=%d", cfg.RPS, cfg.Burst)
	}

	switch cfg.Backend {
	case "memory", "":
		return NewMemoryStore(cfg.RPS, cfg.Burst, cfg.IdleTTL, log), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend: %s", cfg.Backend)
	}
}
