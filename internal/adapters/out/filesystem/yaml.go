package filesystem

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/bnema/dockmaster/internal/domain"
)

type manifestFile struct {
	Version  string                  `yaml:"version,omitempty"`
	Services map[string]serviceEntry `yaml:"services"`
	Volumes  map[string]*struct{}    `yaml:"volumes,omitempty"`
	Networks map[string]networkEntry `yaml:"networks,omitempty"`
}

type serviceEntry struct {
	Image         string     `yaml:"image,omitempty"`
	ContainerName string     `yaml:"container_name,omitempty"`
	Restart       string     `yaml:"restart,omitempty"`
	Ports         stringList `yaml:"ports,omitempty"`
	Environment   stringList `yaml:"environment,omitempty"`
	Volumes       stringList `yaml:"volumes,omitempty"`
	Networks      stringList `yaml:"networks,omitempty"`
}

type networkEntry struct {
	External bool `yaml:"external"`
}

// stringList accepts both compose list forms: a sequence of scalars, or a
// mapping (KEY: value becomes "KEY=value", a key with a null or non-scalar
// value becomes "KEY").
type stringList []string

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		out := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: expected a scalar list item", item.Line)
			}
			out = append(out, item.Value)
		}
		*l = out
	case yaml.MappingNode:
		out := make([]string, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if value.Kind == yaml.ScalarNode && value.Tag != "!!null" {
				out = append(out, key.Value+"="+value.Value)
			} else {
				out = append(out, key.Value)
			}
		}
		*l = out
	case yaml.ScalarNode:
		if node.Tag != "!!null" {
			return fmt.Errorf("line %d: expected a list or a mapping", node.Line)
		}
		*l = nil
	default:
		return fmt.Errorf("line %d: expected a list or a mapping", node.Line)
	}
	return nil
}

func fromDomain(m *domain.ComposeManifest) manifestFile {
	doc := manifestFile{
		Version:  m.Version,
		Services: make(map[string]serviceEntry, len(m.Services)),
	}
	for name, svc := range m.Services {
		doc.Services[name] = serviceEntry{
			Image:         svc.Image,
			ContainerName: svc.ContainerName,
			Restart:       svc.Restart,
			Ports:         svc.Ports,
			Environment:   svc.Environment,
			Volumes:       svc.Volumes,
			Networks:      svc.Networks,
		}
	}
	if len(m.Volumes) > 0 {
		doc.Volumes = make(map[string]*struct{}, len(m.Volumes))
		for name := range m.Volumes {
			doc.Volumes[name] = nil
		}
	}
	if len(m.Networks) > 0 {
		doc.Networks = make(map[string]networkEntry, len(m.Networks))
		for name, n := range m.Networks {
			doc.Networks[name] = networkEntry{External: n.External}
		}
	}
	return doc
}

func (doc manifestFile) toDomain() *domain.ComposeManifest {
	m := &domain.ComposeManifest{
		Version:  doc.Version,
		Services: make(map[string]domain.ComposeService, len(doc.Services)),
	}
	for name, svc := range doc.Services {
		m.Services[name] = domain.ComposeService{
			Image:         svc.Image,
			ContainerName: svc.ContainerName,
			Restart:       svc.Restart,
			Ports:         svc.Ports,
			Environment:   svc.Environment,
			Volumes:       svc.Volumes,
			Networks:      svc.Networks,
		}
	}
	if len(doc.Volumes) > 0 {
		m.Volumes = make(map[string]struct{}, len(doc.Volumes))
		for name := range doc.Volumes {
			m.Volumes[name] = struct{}{}
		}
	}
	if len(doc.Networks) > 0 {
		m.Networks = make(map[string]domain.ComposeNetwork, len(doc.Networks))
		for name, n := range doc.Networks {
			m.Networks[name] = domain.ComposeNetwork{External: n.External}
		}
	}
	return m
}
