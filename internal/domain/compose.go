package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// ComposeFileName is the manifest file name inside a project directory.
const ComposeFileName = "docker-compose.yml"

// ComposeVersion is the manifest format version written to new manifests.
const ComposeVersion = "3.8"

// DefaultRestartPolicy is applied when a definition does not set one.
const DefaultRestartPolicy = "unless-stopped"

var validRestartPolicies = []string{"no", "always", "on-failure", "unless-stopped"}

// serviceNameRegex matches names usable both as a compose service key and as a
// project directory name.
var serviceNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)
var envKeyRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

const maxServiceNameLength = 128

// ServiceDefinition is a request to create a manifest-backed service.
type ServiceDefinition struct {
	ServiceName   string
	Image         string
	RestartPolicy string
	Ports         []string
	Environment   []string
	Volumes       []string
	Networks      []string
}

// ComposeService is one service entry of a manifest.
type ComposeService struct {
	Image         string
	ContainerName string
	Restart       string
	Ports         []string
	Environment   []string
	Volumes       []string
	Networks      []string
}

// ComposeNetwork is a top-level network declaration.
type ComposeNetwork struct {
	External bool
}

// ComposeManifest is the declarative description stored in a project directory.
// Volumes and Networks are nil unless a service references them.
type ComposeManifest struct {
	Version  string
	Services map[string]ComposeService
	Volumes  map[string]struct{}
	Networks map[string]ComposeNetwork
}

// Service returns the service entry named name.
func (m *ComposeManifest) Service(name string) (ComposeService, bool) {
	if m == nil || m.Services == nil {
		return ComposeService{}, false
	}
	svc, ok := m.Services[name]
	return svc, ok
}

// ValidateServiceName checks that name is safe to use as a directory name and
// a compose service key.
func ValidateServiceName(name string) error {
	if name == "" || len(name) > maxServiceNameLength {
		return ErrPathTraversal
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return ErrPathTraversal
	}
	if !serviceNameRegex.MatchString(name) {
		return ErrPathTraversal
	}
	return nil
}

// ValidateEnvEntry checks a KEY=VALUE (or bare KEY) environment entry.
func ValidateEnvEntry(entry string) error {
	key, _, _ := strings.Cut(entry, "=")
	if !envKeyRegex.MatchString(key) {
		return fmt.Errorf("invalid environment entry %q", entry)
	}
	return nil
}

// Normalize fills defaults.
func (d ServiceDefinition) Normalize() ServiceDefinition {
	d.ServiceName = strings.TrimSpace(d.ServiceName)
	d.Image = strings.TrimSpace(d.Image)
	if d.RestartPolicy == "" {
		d.RestartPolicy = DefaultRestartPolicy
	}
	return d
}

// Validate checks the definition. Image syntax is checked by the caller.
func (d ServiceDefinition) Validate() error {
	if err := ValidateServiceName(d.ServiceName); err != nil {
		return NewError(KindInvalid, "", fmt.Sprintf("invalid service name %q", d.ServiceName), err)
	}
	if d.Image == "" {
		return NewError(KindInvalid, "", "image is required", nil)
	}
	if !isValidRestartPolicy(d.RestartPolicy) {
		return NewError(KindInvalid, "", fmt.Sprintf("invalid restart policy %q", d.RestartPolicy), nil)
	}
	for _, e := range d.Environment {
		if err := ValidateEnvEntry(e); err != nil {
			return NewError(KindInvalid, "", err.Error(), nil)
		}
	}
	for _, n := range d.Networks {
		if strings.TrimSpace(n) == "" {
			return NewError(KindInvalid, "", "network names must not be empty", nil)
		}
	}
	return nil
}

func isValidRestartPolicy(policy string) bool {
	// on-failure accepts a retry count, e.g. "on-failure:3"
	base, _, _ := strings.Cut(policy, ":")
	for _, p := range validRestartPolicies {
		if base == p {
			return true
		}
	}
	return false
}

// BuildComposeManifest turns a definition into a manifest. Optional fields
// absent from the definition are absent from the manifest; top-level volume
// and network declarations are only synthesised when referenced.
func BuildComposeManifest(d ServiceDefinition) *ComposeManifest {
	svc := ComposeService{
		Image:         d.Image,
		ContainerName: d.ServiceName,
		Restart:       d.RestartPolicy,
	}
	m := &ComposeManifest{
		Version:  ComposeVersion,
		Services: map[string]ComposeService{},
	}

	if len(d.Ports) > 0 {
		svc.Ports = append([]string(nil), d.Ports...)
	}
	if len(d.Environment) > 0 {
		svc.Environment = append([]string(nil), d.Environment...)
	}
	if len(d.Volumes) > 0 {
		svc.Volumes = append([]string(nil), d.Volumes...)
		for _, v := range d.Volumes {
			if name, ok := NamedVolume(v); ok {
				if m.Volumes == nil {
					m.Volumes = map[string]struct{}{}
				}
				m.Volumes[name] = struct{}{}
			}
		}
	}
	if len(d.Networks) > 0 {
		svc.Networks = append([]string(nil), d.Networks...)
		m.Networks = make(map[string]ComposeNetwork, len(d.Networks))
		for _, n := range d.Networks {
			m.Networks[n] = ComposeNetwork{External: true}
		}
	}

	m.Services[d.ServiceName] = svc
	return m
}

// NamedVolume returns the volume name of a "source:target" spec when the
// source is a named volume rather than a host path.
func NamedVolume(spec string) (string, bool) {
	source, _, found := strings.Cut(spec, ":")
	if !found || source == "" {
		return "", false
	}
	switch {
	case strings.HasPrefix(source, "/"),
		strings.HasPrefix(source, "."),
		strings.HasPrefix(source, "~"),
		strings.HasPrefix(source, `\`):
		return "", false
	case len(source) == 1 && isDriveLetter(source[0]):
		// windows host path, e.g. "c:/data:/data"
		return "", false
	}
	return source, true
}

func isDriveLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
