// Package filesystem implements per-service project storage on the local
// filesystem.
package filesystem

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/bnema/dockmaster/internal/domain"
	"github.com/bnema/dockmaster/internal/logging"
)

// ProjectStorage implements the ProjectStorage interface. Each service owns
// one directory under rootDir holding its manifest.
type ProjectStorage struct {
	rootDir string
	log     zerolog.Logger
}

// NewProjectStorage creates a new project storage rooted at rootDir.
func NewProjectStorage(rootDir string, log zerolog.Logger) (*ProjectStorage, error) {
	if err := os.MkdirAll(rootDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create project root: %w", err)
	}

	log.Info().
		Str(logging.FieldLayer, "adapter").
		Str(logging.FieldAdapter, "filesystem").
		Str("root_dir", rootDir).
		Msg("project storage initialized")

	return &ProjectStorage{rootDir: rootDir, log: log}, nil
}

// RootDir returns the directory holding every project.
func (s *ProjectStorage) RootDir() string {
	return s.rootDir
}

// ProjectPath returns the directory of a service project.
func (s *ProjectStorage) ProjectPath(serviceName string) string {
	return filepath.Join(s.rootDir, serviceName)
}

// Exists reports whether the project directory exists.
func (s *ProjectStorage) Exists(serviceName string) (bool, error) {
	if err := domain.ValidateServiceName(serviceName); err != nil {
		return false, err
	}
	info, err := os.Stat(s.ProjectPath(serviceName))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat project directory: %w", err)
	}
	return info.IsDir(), nil
}

// Create creates the project directory. Existence check and creation are a
// single mkdir, so two creators of the same name cannot both succeed.
func (s *ProjectStorage) Create(serviceName string) (string, error) {
	if err := domain.ValidateServiceName(serviceName); err != nil {
		return "", err
	}
	path := s.ProjectPath(serviceName)

	if err := os.Mkdir(path, 0750); err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", domain.ErrServiceExists
		}
		return "", fmt.Errorf("failed to create project directory: %w", err)
	}

	s.log.Debug().
		Str(logging.FieldLayer, "adapter").
		Str(logging.FieldAdapter, "filesystem").
		Str("path", path).
		Msg("project directory created")
	return path, nil
}

// WriteManifest persists the manifest as docker-compose.yml.
func (s *ProjectStorage) WriteManifest(serviceName string, manifest *domain.ComposeManifest) error {
	if err := domain.ValidateServiceName(serviceName); err != nil {
		return err
	}

	data, err := MarshalManifest(manifest)
	if err != nil {
		return err
	}

	dir := s.ProjectPath(serviceName)
	finalPath := filepath.Join(dir, domain.ComposeFileName)
	tmpPath := finalPath + ".tmp"

	// 0600: environment entries may hold secrets
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize manifest: %w", err)
	}

	s.log.Info().
		Str(logging.FieldLayer, "adapter").
		Str(logging.FieldAdapter, "filesystem").
		Str("path", finalPath).
		Msg("manifest stored")
	return nil
}

// ReadManifest loads the manifest of a project.
func (s *ProjectStorage) ReadManifest(serviceName string) (*domain.ComposeManifest, error) {
	if err := domain.ValidateServiceName(serviceName); err != nil {
		return nil, err
	}

	path := filepath.Join(s.ProjectPath(serviceName), domain.ComposeFileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrManifestNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	return UnmarshalManifest(data)
}

// MarshalManifest renders a manifest as YAML, keys in compose order.
func MarshalManifest(manifest *domain.ComposeManifest) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fromDomain(manifest)); err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalManifest parses a manifest. Malformed input wraps
// domain.ErrManifestInvalid.
func UnmarshalManifest(data []byte) (*domain.ComposeManifest, error) {
	var doc manifestFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrManifestInvalid, err)
	}
	if doc.Services == nil {
		return nil, fmt.Errorf("%w: no services section", domain.ErrManifestInvalid)
	}
	return doc.toDomain(), nil
}
