// Package domain contains pure business types without external dependencies.
// These types are used throughout the application and have no framework dependencies.
package domain

// ShortIDLength is the length of the abbreviated container ID shown to users.
const ShortIDLength = 12

// ContainerSummary is the projection of a container returned by list operations.
type ContainerSummary struct {
	ID     string
	Name   string
	Image  string
	Status string
}

// NoImageTag is reported when a container's image has no tag.
const NoImageTag = "N/A"

// PortBinding is a host-side binding of a container port.
type PortBinding struct {
	HostIP   string
	HostPort string
}

// Mount describes a volume or bind mount attached to a container.
type Mount struct {
	Type     string // "volume", "bind", "tmpfs"
	Source   string
	Target   string
	ReadOnly bool
}

// RestartPolicy is the engine restart policy of a container.
type RestartPolicy struct {
	Name              string
	MaximumRetryCount int
}

// ContainerSnapshot is the effective runtime configuration of a container,
// captured right before it is destroyed so an equivalent replacement can be
// created.
type ContainerSnapshot struct {
	ID            string
	Image         string
	Name          string
	Env           []string
	PortBindings  map[string][]PortBinding // keyed by "port/proto", e.g. "80/tcp"
	Mounts        []Mount
	NetworkMode   string
	RestartPolicy RestartPolicy
}

// ContainerLockKey is the lock identity of the container called name.
// Manifest services share it: their container_name is the service name.
func ContainerLockKey(name string) string {
	return "container:" + name
}

// ShortID abbreviates a container ID.
func ShortID(id string) string {
	if len(id) > ShortIDLength {
		return id[:ShortIDLength]
	}
	return id
}

// ActionResult is the outcome of a lifecycle operation.
type ActionResult struct {
	Status  string
	Message string
}

// StatusSuccess is the status reported for successful operations.
const StatusSuccess = "success"

// CreateResult is the outcome of creating a manifest-backed service.
type CreateResult struct {
	ActionResult
	ProjectPath string
	Manifest    *ComposeManifest
}

// RecreateResult is the outcome of recreating a standalone container.
type RecreateResult struct {
	ActionResult
	NewContainerID string
	// Warnings holds non-fatal outcomes, e.g. an image that could not be pulled
	// and was replaced by the local copy.
	Warnings []string
}
