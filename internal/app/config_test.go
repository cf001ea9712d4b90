package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dockmaster.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
[server]
data_dir = "/srv/dockmaster"
`)

	_, cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 5001, cfg.Server.Port)
	assert.Equal(t, "/srv/dockmaster/projects", cfg.Compose.ProjectPath)
	assert.Equal(t, "/srv/dockmaster/registries.json", cfg.Registry.File)
	assert.True(t, cfg.Registry.IsolatedConfig)
	assert.Equal(t, "docker", cfg.Engine.Binary)
	assert.Equal(t, 10*time.Minute, cfg.Engine.CommandTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Engine.APITimeout)
	assert.True(t, cfg.API.RateLimit.Enabled)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 8080
data_dir = "/data"

[auth]
token = "from-file"

[compose]
project_path = "/opt/compose"

[engine]
binary = "podman"
pull_timeout = "30s"

[api.rate_limit]
enabled = false
trusted_proxies = ["10.0.0.0/8"]

[logging.file]
enabled = true
`)

	_, cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "from-file", cfg.Auth.Token)
	assert.Equal(t, "/opt/compose", cfg.Compose.ProjectPath)
	assert.Equal(t, "podman", cfg.Engine.Binary)
	assert.Equal(t, 30*time.Second, cfg.Engine.PullTimeout)
	assert.False(t, cfg.API.RateLimit.Enabled)
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.API.RateLimit.TrustedProxies)
	assert.Equal(t, "/data/logs/dockmaster.log", cfg.Logging.File.Path)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
[server]
data_dir = "/data"
`)
	t.Setenv("DOCKMASTER_AUTH_TOKEN", "from-env")
	t.Setenv("DOCKMASTER_SERVER_PORT", "9000")
	t.Setenv("COMPOSE_PROJECT_PATH", "/legacy/projects")

	_, cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Auth.Token)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "/legacy/projects", cfg.Compose.ProjectPath)
}

func TestLoadConfig_PrefixedProjectPathWins(t *testing.T) {
	path := writeConfig(t, `
[server]
data_dir = "/data"
`)
	t.Setenv("DOCKMASTER_COMPOSE_PROJECT_PATH", "/new")
	t.Setenv("COMPOSE_PROJECT_PATH", "/legacy")

	_, cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/new", cfg.Compose.ProjectPath)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 70000
`)

	_, _, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}
