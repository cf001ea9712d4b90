package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bnema/dockmaster/internal/adapters/out/telemetry"
	"github.com/bnema/dockmaster/internal/boundaries/in/mocks"
	"github.com/bnema/dockmaster/internal/domain"
)

func testServerConfig() Config {
	var cfg Config
	cfg.Server.Port = 5001
	cfg.Auth.Token = "t0ken"
	cfg.Metrics.Enabled = true
	return cfg
}

func TestNewServer_Routes(t *testing.T) {
	composeSvc := &mocks.MockComposeService{}
	composeSvc.On("List", mock.Anything).Return([]domain.ContainerSummary{}, nil)
	healthSvc := &mocks.MockHealthService{}
	healthSvc.On("Check", mock.Anything).Return(nil)

	svc := &Services{
		Compose:   composeSvc,
		Container: &mocks.MockContainerService{},
		Registry:  &mocks.MockRegistryService{},
		Health:    healthSvc,
		Metrics:   telemetry.NewMetrics(),
	}
	e := NewServer(testServerConfig(), svc, zerolog.Nop())

	tests := []struct {
		name  string
		path  string
		token string
		want  int
	}{
		{name: "welcome is public", path: "/", want: http.StatusOK},
		{name: "health is public", path: "/health", want: http.StatusOK},
		{name: "metrics is public", path: "/metrics", want: http.StatusOK},
		{name: "containers need a token", path: "/containers", want: http.StatusUnauthorized},
		{name: "containers with token", path: "/containers", token: "t0ken", want: http.StatusOK},
		{name: "registry with wrong token", path: "/registry", token: "nope", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestNewServer_MetricsDisabled(t *testing.T) {
	cfg := testServerConfig()
	cfg.Metrics.Enabled = false
	svc := &Services{
		Compose:   &mocks.MockComposeService{},
		Container: &mocks.MockContainerService{},
		Registry:  &mocks.MockRegistryService{},
		Health:    &mocks.MockHealthService{},
		Metrics:   telemetry.NewMetrics(),
	}
	e := NewServer(cfg, svc, zerolog.Nop())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
