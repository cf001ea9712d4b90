// Package registryauth wraps engine commands in a registry login/logout
// when they operate on images hosted by a private registry.
package registryauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bnema/dockmaster/internal/boundaries/in"
	"github.com/bnema/dockmaster/internal/boundaries/out"
	"github.com/bnema/dockmaster/internal/domain"
	"github.com/bnema/dockmaster/internal/logging"
	"github.com/bnema/dockmaster/pkg/imageref"
)

// Config holds the executor settings.
type Config struct {
	// Binary is the engine CLI used for login and logout.
	Binary string
	// Host is exported as DOCKER_HOST to every command. Empty keeps the
	// CLI's own resolution.
	Host string
	// IsolatedConfig runs every authenticated sequence with its own
	// temporary DOCKER_CONFIG directory, removed afterwards. The directory
	// links the CLI plugins and contexts of SourceConfigDir and keeps its
	// current context, but never its stored credentials.
	IsolatedConfig bool
	// SourceConfigDir is the engine config directory plugins and contexts
	// are borrowed from. Empty means $DOCKER_CONFIG, then ~/.docker.
	SourceConfigDir string
	// TempDir is the parent of isolated config directories. Empty means
	// os.TempDir().
	TempDir string
}

// Service implements in.RegistryAuthExecutor.
type Service struct {
	executor out.CommandExecutor
	creds    in.CredentialLookup
	config   Config
}

// NewService creates a new registry-authenticated executor.
func NewService(executor out.CommandExecutor, creds in.CredentialLookup, config Config) *Service {
	if config.Binary == "" {
		config.Binary = "docker"
	}
	return &Service{executor: executor, creds: creds, config: config}
}

// RunWithAuth runs cmd, surrounded by a login and a logout when imageRef
// targets a private registry. Credentials that cannot be found abort the
// call before anything is executed. Logout is attempted whenever login
// succeeded and its failure is only logged.
func (s *Service) RunWithAuth(ctx context.Context, imageRef string, cmd domain.Command) (*domain.ExecutionResult, error) {
	cmd.Env = s.engineEnv(cmd.Env)

	host, private := imageref.PrivateRegistryHost(imageRef)
	if !private {
		return s.executor.Run(ctx, cmd)
	}

	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:   "usecase",
		logging.FieldUseCase: "RunWithAuth",
		"registry":           host,
	})
	log := logging.FromCtx(ctx)

	cred, err := s.creds.FindByURL(ctx, host)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, domain.NewError(domain.KindNotFound, "registry login",
			fmt.Sprintf("no credentials found for registry %q", host), domain.ErrCredentialNotFound)
	}

	env := cmd.Env
	if s.config.IsolatedConfig {
		dir, err := os.MkdirTemp(s.config.TempDir, "dockmaster-auth-")
		if err != nil {
			return nil, domain.NewError(domain.KindOperationFailed, "registry login",
				"failed to create isolated engine config directory", err)
		}
		defer func() {
			if rmErr := os.RemoveAll(dir); rmErr != nil {
				log.Warn().Err(rmErr).Str("dir", dir).Msg("failed to remove isolated engine config")
			}
		}()
		if err := seedConfigDir(dir, s.sourceConfigDir()); err != nil {
			return nil, domain.NewError(domain.KindOperationFailed, "registry login",
				"failed to prepare isolated engine config directory", err)
		}
		env = append(append([]string(nil), cmd.Env...), "DOCKER_CONFIG="+dir)
	}

	login := domain.Command{
		Name:  s.config.Binary,
		Args:  []string{"login", "-u", cred.Login, "--password-stdin", cred.URL},
		Dir:   cmd.Dir,
		Stdin: cred.Password,
		Env:   env,
	}
	loginResult, err := s.executor.Run(ctx, login)
	if err != nil {
		return nil, err
	}
	if !loginResult.Success {
		return nil, domain.NewError(domain.KindAuthenticationFailed, "registry login",
			fmt.Sprintf("login to %s failed", host), nil).WithOutput(loginResult.Output)
	}
	log.Debug().Str("login", cred.Login).Msg("registry login succeeded")

	defer s.logout(ctx, cred.URL, cmd.Dir, env)

	cmd.Env = env
	return s.executor.Run(ctx, cmd)
}

func (s *Service) logout(ctx context.Context, url, dir string, env []string) {
	log := logging.FromCtx(ctx)

	// The caller's context may already be done; logout still has to run.
	ctx = context.WithoutCancel(ctx)

	result, err := s.executor.Run(ctx, domain.Command{
		Name: s.config.Binary,
		Args: []string{"logout", url},
		Dir:  dir,
		Env:  env,
	})
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("registry logout failed")
	case !result.Success:
		log.Warn().Str("output", result.Output).Msg("registry logout failed")
	}
}

// engineEnv appends DOCKER_HOST to env when a host is configured.
func (s *Service) engineEnv(env []string) []string {
	if s.config.Host == "" {
		return env
	}
	return append(append([]string(nil), env...), "DOCKER_HOST="+s.config.Host)
}

func (s *Service) sourceConfigDir() string {
	if s.config.SourceConfigDir != "" {
		return s.config.SourceConfigDir
	}
	if dir := os.Getenv("DOCKER_CONFIG"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".docker")
}

// seedConfigDir links the plugin and context directories of src into dst
// and copies its current context, so the CLI keeps finding compose and the
// selected engine while credentials stay private to dst.
func seedConfigDir(dst, src string) error {
	if src == "" {
		return nil
	}
	for _, name := range []string{"cli-plugins", "contexts"} {
		target := filepath.Join(src, name)
		if _, err := os.Stat(target); err != nil {
			continue
		}
		if err := os.Symlink(target, filepath.Join(dst, name)); err != nil {
			return err
		}
	}

	data, err := os.ReadFile(filepath.Join(src, "config.json"))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var source struct {
		CurrentContext string `json:"currentContext"`
	}
	if err := json.Unmarshal(data, &source); err != nil || source.CurrentContext == "" {
		return nil
	}
	seed, err := json.Marshal(source)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dst, "config.json"), seed, 0600)
}
