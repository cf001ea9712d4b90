package ratelimit

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantNil bool
		wantErr string
	}{
		{name: "disabled", cfg: Config{Enabled: false}, wantNil: true},
		{name: "memory", cfg: Config{Enabled: true, Backend: "memory", RPS: 5, Burst: 10, IdleTTL: time.Minute}},
		{name: "default backend", cfg: Config{Enabled: true, RPS: 5, Burst: 10}},
		{name: "unknown backend", cfg: Config{Enabled: true, Backend: "redis", RPS: 5, Burst: 10}, wantNil: true, wantErr: "unknown rate limit backend"},
		{name: "zero burst", cfg: Config{Enabled: true, RPS: 5}, wantNil: true, wantErr: "positive rps and burst"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewStore(tt.cfg, zerolog.Nop())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantNil, store == nil)
		})
	}
}
