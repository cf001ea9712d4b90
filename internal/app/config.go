// Package app provides the application initialization and wiring.
package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/bnema/dockmaster/internal/adapters/out/credstore"
)

// Config holds the application configuration.
type Config struct {
	Server struct {
		Port            int           `mapstructure:"port"`
		DataDir         string        `mapstructure:"data_dir"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`

	Auth struct {
		Token string `mapstructure:"token"`
	} `mapstructure:"auth"`

	Compose struct {
		ProjectPath string `mapstructure:"project_path"`
	} `mapstructure:"compose"`

	Engine struct {
		Binary         string        `mapstructure:"binary"`
		Host           string        `mapstructure:"host"`
		RequireOnStart bool          `mapstructure:"require_on_start"`
		CommandTimeout time.Duration `mapstructure:"command_timeout"`
		APITimeout     time.Duration `mapstructure:"api_timeout"`
		PullTimeout    time.Duration `mapstructure:"pull_timeout"`
		StopTimeout    int           `mapstructure:"stop_timeout"`
	} `mapstructure:"engine"`

	Registry struct {
		File           string `mapstructure:"file"`
		IsolatedConfig bool   `mapstructure:"isolated_config"`
	} `mapstructure:"registry"`

	API struct {
		AllowedCIDRs []string `mapstructure:"allowed_cidrs"`
		RateLimit    struct {
			Enabled        bool          `mapstructure:"enabled"`
			PerIPRPS       float64       `mapstructure:"per_ip_rps"`
			Burst          int           `mapstructure:"burst"`
			IdleTTL        time.Duration `mapstructure:"idle_ttl"`
			TrustedProxies []string      `mapstructure:"trusted_proxies"`
		} `mapstructure:"rate_limit"`
	} `mapstructure:"api"`

	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
		File   struct {
			Enabled    bool   `mapstructure:"enabled"`
			Path       string `mapstructure:"path"`
			MaxSize    int    `mapstructure:"max_size"`
			MaxBackups int    `mapstructure:"max_backups"`
			MaxAge     int    `mapstructure:"max_age"`
		} `mapstructure:"file"`
	} `mapstructure:"logging"`
}

// DefaultDataDir returns the default data directory path.
// Uses ~/.dockmaster for user installations, /var/lib/dockmaster as fallback.
func DefaultDataDir() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".dockmaster")
	}
	return "/var/lib/dockmaster"
}

// ConfigureViper sets up viper with standard config file search paths.
// Config file: dockmaster.toml
// Search paths (in order): /etc/dockmaster, ~/.config/dockmaster, current directory
func ConfigureViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.SetConfigName("dockmaster")
	v.SetConfigType("toml")
	v.AddConfigPath("/etc/dockmaster")
	v.AddConfigPath("$HOME/.config/dockmaster")
	v.AddConfigPath(".")
}

// LoadConfig reads the configuration file, environment and defaults.
func LoadConfig(configPath string) (*viper.Viper, Config, error) {
	v := viper.New()
	if err := loadConfig(v, configPath); err != nil {
		return nil, Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, Config{}, err
	}
	return v, cfg, nil
}

func loadConfig(v *viper.Viper, configPath string) error {
	v.SetDefault("server.port", 5001)
	v.SetDefault("server.data_dir", DefaultDataDir())
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("auth.token", "")
	v.SetDefault("compose.project_path", "") // defaults to {data_dir}/projects when empty
	v.SetDefault("engine.binary", "docker")
	v.SetDefault("engine.host", "")
	v.SetDefault("engine.require_on_start", false)
	v.SetDefault("engine.command_timeout", 10*time.Minute)
	v.SetDefault("engine.api_timeout", 2*time.Minute)
	v.SetDefault("engine.pull_timeout", 10*time.Minute)
	v.SetDefault("engine.stop_timeout", 10)
	v.SetDefault("registry.file", "") // defaults to {data_dir}/registries.json when empty
	v.SetDefault("registry.isolated_config", true)
	v.SetDefault("api.allowed_cidrs", []string{})
	v.SetDefault("api.rate_limit.enabled", true)
	v.SetDefault("api.rate_limit.per_ip_rps", 10)
	v.SetDefault("api.rate_limit.burst", 20)
	v.SetDefault("api.rate_limit.idle_ttl", 10*time.Minute)
	v.SetDefault("api.rate_limit.trusted_proxies", []string{})
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.enabled", false)
	v.SetDefault("logging.file.path", "")
	v.SetDefault("logging.file.max_size", 100)
	v.SetDefault("logging.file.max_backups", 3)
	v.SetDefault("logging.file.max_age", 28)

	ConfigureViper(v, configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("DOCKMASTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// legacy variable name, still honored
	if err := v.BindEnv("compose.project_path", "DOCKMASTER_COMPOSE_PROJECT_PATH", "COMPOSE_PROJECT_PATH"); err != nil {
		return fmt.Errorf("failed to bind env: %w", err)
	}

	return nil
}

func (c *Config) resolvePaths() {
	if c.Compose.ProjectPath == "" {
		c.Compose.ProjectPath = filepath.Join(c.Server.DataDir, "projects")
	}
	if c.Registry.File == "" {
		c.Registry.File = filepath.Join(c.Server.DataDir, credstore.DefaultFileName)
	}
	if c.Logging.File.Enabled && c.Logging.File.Path == "" {
		c.Logging.File.Path = filepath.Join(c.Server.DataDir, "logs", "dockmaster.log")
	}
}

// Validate reports configuration the server cannot start with.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Server.DataDir == "" {
		return fmt.Errorf("server.data_dir must not be empty")
	}
	if c.Engine.Binary == "" {
		return fmt.Errorf("engine.binary must not be empty")
	}
	return nil
}
