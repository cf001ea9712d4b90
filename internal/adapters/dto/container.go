package dto

import "github.com/bnema/dockmaster/internal/domain"

// ContainerOut is one entry of the container list.
type ContainerOut struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Image  string `json:"image"`
	Status string `json:"status"`
}

// ContainerCreate is the body of POST /containers/create.
type ContainerCreate struct {
	ServiceName   string   `json:"service_name" validate:"required,max=128"`
	Image         string   `json:"image" validate:"required,imageref"`
	RestartPolicy string   `json:"restart_policy,omitempty"`
	Ports         []string `json:"ports,omitempty" validate:"omitempty,dive,required"`
	Environment   []string `json:"environment,omitempty" validate:"omitempty,dive,required"`
	Volumes       []string `json:"volumes,omitempty" validate:"omitempty,dive,required"`
	Networks      []string `json:"networks,omitempty" validate:"omitempty,dive,required"`
}

// ToDomain converts the request body to a service definition.
func (c ContainerCreate) ToDomain() domain.ServiceDefinition {
	return domain.ServiceDefinition{
		ServiceName:   c.ServiceName,
		Image:         c.Image,
		RestartPolicy: c.RestartPolicy,
		Ports:         c.Ports,
		Environment:   c.Environment,
		Volumes:       c.Volumes,
		Networks:      c.Networks,
	}
}

// ActionResponse is returned by lifecycle operations.
type ActionResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// CreateActionResponse is returned by POST /containers/create.
type CreateActionResponse struct {
	ActionResponse
	ProjectPath   string         `json:"project_path,omitempty"`
	ComposeConfig *ComposeConfig `json:"compose_config,omitempty"`
}

// RecreateActionResponse is returned by standalone recreate.
type RecreateActionResponse struct {
	ActionResponse
	NewContainerID string   `json:"new_container_id,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

// ComposeConfig mirrors the manifest written to disk.
type ComposeConfig struct {
	Version  string                          `json:"version"`
	Services map[string]ComposeServiceConfig `json:"services"`
	Volumes  map[string]*struct{}            `json:"volumes,omitempty"`
	Networks map[string]ComposeNetworkConfig `json:"networks,omitempty"`
}

// ComposeServiceConfig is one service of a ComposeConfig.
type ComposeServiceConfig struct {
	Image         string   `json:"image"`
	ContainerName string   `json:"container_name,omitempty"`
	Restart       string   `json:"restart,omitempty"`
	Ports         []string `json:"ports,omitempty"`
	Environment   []string `json:"environment,omitempty"`
	Volumes       []string `json:"volumes,omitempty"`
	Networks      []string `json:"networks,omitempty"`
}

// ComposeNetworkConfig is a top-level network declaration.
type ComposeNetworkConfig struct {
	External bool `json:"external"`
}

// FromContainerSummaries converts list results.
func FromContainerSummaries(list []domain.ContainerSummary) []ContainerOut {
	out := make([]ContainerOut, 0, len(list))
	for _, c := range list {
		out = append(out, ContainerOut{ID: c.ID, Name: c.Name, Image: c.Image, Status: c.Status})
	}
	return out
}

// FromActionResult converts an action result.
func FromActionResult(r *domain.ActionResult) ActionResponse {
	return ActionResponse{Status: r.Status, Message: r.Message}
}

// FromCreateResult converts a create result.
func FromCreateResult(r *domain.CreateResult) CreateActionResponse {
	return CreateActionResponse{
		ActionResponse: FromActionResult(&r.ActionResult),
		ProjectPath:    r.ProjectPath,
		ComposeConfig:  FromManifest(r.Manifest),
	}
}

// FromRecreateResult converts a standalone recreate result.
func FromRecreateResult(r *domain.RecreateResult) RecreateActionResponse {
	return RecreateActionResponse{
		ActionResponse: FromActionResult(&r.ActionResult),
		NewContainerID: r.NewContainerID,
		Warnings:       r.Warnings,
	}
}

// FromManifest converts a manifest; nil stays nil.
func FromManifest(m *domain.ComposeManifest) *ComposeConfig {
	if m == nil {
		return nil
	}

	cfg := &ComposeConfig{
		Version:  m.Version,
		Services: make(map[string]ComposeServiceConfig, len(m.Services)),
	}
	for name, svc := range m.Services {
		cfg.Services[name] = ComposeServiceConfig{
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
		cfg.Volumes = make(map[string]*struct{}, len(m.Volumes))
		for name := range m.Volumes {
			cfg.Volumes[name] = nil
		}
	}
	if len(m.Networks) > 0 {
		cfg.Networks = make(map[string]ComposeNetworkConfig, len(m.Networks))
		for name, n := range m.Networks {
			cfg.Networks[name] = ComposeNetworkConfig{External: n.External}
		}
	}
	return cfg
}
