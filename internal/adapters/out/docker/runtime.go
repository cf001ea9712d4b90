// Package docker implements the container runtime adapter using Docker API.
package docker

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/go-connections/nat"

	"github.com/bnema/dockmaster/internal/domain"
	"github.com/bnema/dockmaster/internal/logging"
	"github.com/bnema/dockmaster/pkg/imageref"
)

// Defaults applied when Config leaves a field zero.
const (
	DefaultAPITimeout  = 2 * time.Minute
	DefaultPullTimeout = 10 * time.Minute
	DefaultStopTimeout = 10 // seconds
)

// Config holds Docker adapter settings.
type Config struct {
	// Host overrides DOCKER_HOST, e.g. "unix:///run/user/1000/docker.sock".
	Host        string
	APITimeout  time.Duration
	PullTimeout time.Duration
	// StopTimeout is the grace period, in seconds, before a stopped
	// container is killed.
	StopTimeout int
}

func (c Config) withDefaults() Config {
	if c.APITimeout <= 0 {
		c.APITimeout = DefaultAPITimeout
	}
	if c.PullTimeout <= 0 {
		c.PullTimeout = DefaultPullTimeout
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = DefaultStopTimeout
	}
	return c
}

// Runtime implements the ContainerRuntime interface using Docker API.
type Runtime struct {
	client *client.Client
	config Config
}

// NewRuntime creates a new Docker runtime instance. The engine is not
// contacted until the first call.
func NewRuntime(config Config) (*Runtime, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if config.Host != "" {
		opts = append(opts, client.WithHost(config.Host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	return NewRuntimeWithClient(cli, config), nil
}

// NewRuntimeWithClient creates a new Docker runtime instance with a custom client (for testing).
func NewRuntimeWithClient(cli *client.Client, config Config) *Runtime {
	return &Runtime{
		client: cli,
		config: config.withDefaults(),
	}
}

// Close releases the underlying client.
func (r *Runtime) Close() error {
	return r.client.Close()
}

// ListContainers lists containers with the first tag of their image.
func (r *Runtime) ListContainers(ctx context.Context, all bool) ([]domain.ContainerSummary, error) {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:   "adapter",
		logging.FieldAdapter: "docker",
		logging.FieldAction:  "ListContainers",
		"all":                all,
	})
	log := logging.FromCtx(ctx)

	ctx, cancel := context.WithTimeout(ctx, r.config.APITimeout)
	defer cancel()

	containers, err := r.client.ContainerList(ctx, container.ListOptions{All: all})
	if err != nil {
		return nil, classify("list containers", err, nil)
	}

	tags, err := r.imageTags(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to list images, falling back to container image references")
	}

	result := make([]domain.ContainerSummary, 0, len(containers))
	for _, c := range containers {
		// Get the primary name (remove leading slash)
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}

		imageTag := domain.NoImageTag
		if t, ok := tags[c.ImageID]; ok {
			imageTag = t
		} else if tags == nil && c.Image != "" {
			imageTag = c.Image
		}

		result = append(result, domain.ContainerSummary{
			ID:     domain.ShortID(c.ID),
			Name:   name,
			Image:  imageTag,
			Status: c.State,
		})
	}

	return result, nil
}

// imageTags maps image IDs to their first usable tag.
func (r *Runtime) imageTags(ctx context.Context) (map[string]string, error) {
	images, err := r.client.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return nil, err
	}

	tags := make(map[string]string, len(images))
	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag != "<none>:<none>" {
				tags[img.ID] = tag
				break
			}
		}
	}
	return tags, nil
}

// InspectContainer captures the effective configuration of a container.
func (r *Runtime) InspectContainer(ctx context.Context, nameOrID string) (*domain.ContainerSnapshot, error) {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:    "adapter",
		logging.FieldAdapter:  "docker",
		logging.FieldAction:   "InspectContainer",
		logging.FieldEntityID: nameOrID,
	})
	ctx, cancel := context.WithTimeout(ctx, r.config.APITimeout)
	defer cancel()

	resp, err := r.client.ContainerInspect(ctx, nameOrID)
	if err != nil {
		return nil, classify("inspect container", err, domain.ErrContainerNotFound)
	}

	snapshot := &domain.ContainerSnapshot{
		ID:   resp.ID,
		Name: strings.TrimPrefix(resp.Name, "/"),
	}
	if resp.Config != nil {
		snapshot.Image = resp.Config.Image
		snapshot.Env = resp.Config.Env
	}
	if resp.HostConfig != nil {
		hc := resp.HostConfig
		snapshot.NetworkMode = string(hc.NetworkMode)
		snapshot.RestartPolicy = domain.RestartPolicy{
			Name:              string(hc.RestartPolicy.Name),
			MaximumRetryCount: hc.RestartPolicy.MaximumRetryCount,
		}
		snapshot.PortBindings = fromPortMap(hc.PortBindings)
	}
	for _, mp := range resp.Mounts {
		source := mp.Source
		if mp.Type == mount.TypeVolume && mp.Name != "" {
			source = mp.Name
		}
		snapshot.Mounts = append(snapshot.Mounts, domain.Mount{
			Type:     string(mp.Type),
			Source:   source,
			Target:   mp.Destination,
			ReadOnly: !mp.RW,
		})
	}

	return snapshot, nil
}

// StopContainer stops a container.
func (r *Runtime) StopContainer(ctx context.Context, containerID string) error {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:    "adapter",
		logging.FieldAdapter:  "docker",
		logging.FieldAction:   "StopContainer",
		logging.FieldEntityID: containerID,
	})
	log := logging.FromCtx(ctx)

	ctx, cancel := context.WithTimeout(ctx, r.config.APITimeout)
	defer cancel()

	timeout := r.config.StopTimeout
	if err := r.client.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout}); err != nil {
		return classify("stop container", err, domain.ErrContainerNotFound)
	}

	log.Info().Msg("container stopped")
	return nil
}

// RemoveContainer removes a container.
func (r *Runtime) RemoveContainer(ctx context.Context, containerID string, force bool) error {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:    "adapter",
		logging.FieldAdapter:  "docker",
		logging.FieldAction:   "RemoveContainer",
		logging.FieldEntityID: containerID,
		"force":               force,
	})
	log := logging.FromCtx(ctx)

	ctx, cancel := context.WithTimeout(ctx, r.config.APITimeout)
	defer cancel()

	if err := r.client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: force}); err != nil {
		return classify("remove container", err, domain.ErrContainerNotFound)
	}

	log.Info().Msg("container removed")
	return nil
}

// PullImage pulls an image anonymously.
func (r *Runtime) PullImage(ctx context.Context, imageRef string) error {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:   "adapter",
		logging.FieldAdapter: "docker",
		logging.FieldAction:  "PullImage",
		"image":              imageRef,
	})
	return r.pull(ctx, imageRef, image.PullOptions{})
}

// PullImageWithAuth pulls an image with registry credentials. The encoded
// credentials only live in the request header.
func (r *Runtime) PullImageWithAuth(ctx context.Context, imageRef string, cred domain.RegistryCredential) error {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:   "adapter",
		logging.FieldAdapter: "docker",
		logging.FieldAction:  "PullImageWithAuth",
		"image":              imageRef,
		"registry":           cred.Name,
	})

	serverAddress := cred.URL
	if serverAddress == "" {
		serverAddress = imageref.RegistryHost(imageRef)
	}

	authStr, err := encodeAuth(registry.AuthConfig{
		Username:      cred.Login,
		Password:      cred.Password,
		ServerAddress: serverAddress,
	})
	if err != nil {
		return domain.NewError(domain.KindOperationFailed, "pull image", "failed to encode registry credentials", err)
	}

	return r.pull(ctx, imageRef, image.PullOptions{RegistryAuth: authStr})
}

func (r *Runtime) pull(ctx context.Context, imageRef string, opts image.PullOptions) error {
	log := logging.FromCtx(ctx)
	log.Info().Msg("pulling image")

	ctx, cancel := context.WithTimeout(ctx, r.config.PullTimeout)
	defer cancel()

	reader, err := r.client.ImagePull(ctx, imageRef, opts)
	if err != nil {
		return classify("pull image", err, domain.ErrImageNotFound)
	}
	defer reader.Close()

	// The pull only completes once the progress stream is drained; errors
	// raised mid-pull arrive inside the stream.
	if err := jsonmessage.DisplayJSONMessagesStream(reader, io.Discard, 0, false, nil); err != nil {
		var jerr *jsonmessage.JSONError
		if errors.As(err, &jerr) && isImageMissing(jerr.Message) {
			return domain.NewError(domain.KindNotFound, "pull image",
				fmt.Sprintf("image %q not found", imageRef), fmt.Errorf("%w: %w", domain.ErrImageNotFound, err))
		}
		return classify("pull image", err, nil)
	}

	log.Info().Msg("image pulled successfully")
	return nil
}

// RunContainer creates and starts a container from a snapshot. A container
// that was created but failed to start is removed again.
func (r *Runtime) RunContainer(ctx context.Context, snapshot *domain.ContainerSnapshot) (string, error) {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:   "adapter",
		logging.FieldAdapter: "docker",
		logging.FieldAction:  "RunContainer",
		"container_name":     snapshot.Name,
		"image":              snapshot.Image,
	})
	log := logging.FromCtx(ctx)

	ctx, cancel := context.WithTimeout(ctx, r.config.APITimeout)
	defer cancel()

	containerConfig, hostConfig := buildCreateConfig(snapshot)

	resp, err := r.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, snapshot.Name)
	if err != nil {
		return "", classify("create container", err, domain.ErrImageNotFound)
	}
	log.Info().Str(logging.FieldEntityID, resp.ID).Msg("container created")

	if err := r.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		startErr := classify("start container", err, nil)
		if rmErr := r.client.ContainerRemove(context.WithoutCancel(ctx), resp.ID, container.RemoveOptions{Force: true}); rmErr != nil {
			log.Warn().Err(rmErr).Msg("failed to remove container that did not start")
		}
		return "", startErr
	}

	log.Info().Str(logging.FieldEntityID, resp.ID).Msg("container started")
	return resp.ID, nil
}

// Ping checks if Docker is responsive.
func (r *Runtime) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.config.APITimeout)
	defer cancel()

	if _, err := r.client.Ping(ctx); err != nil {
		return classify("ping", err, nil)
	}
	return nil
}

// buildCreateConfig turns a snapshot back into engine create options.
func buildCreateConfig(snapshot *domain.ContainerSnapshot) (*container.Config, *container.HostConfig) {
	exposedPorts := make(nat.PortSet)
	portBindings := make(nat.PortMap)
	for port, bindings := range snapshot.PortBindings {
		p := nat.Port(port)
		exposedPorts[p] = struct{}{}
		for _, b := range bindings {
			portBindings[p] = append(portBindings[p], nat.PortBinding{HostIP: b.HostIP, HostPort: b.HostPort})
		}
	}

	var mounts []mount.Mount
	for _, m := range snapshot.Mounts {
		mt := mount.Mount{
			Type:     mount.Type(m.Type),
			Source:   m.Source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		}
		if mt.Type == mount.TypeTmpfs {
			mt.Source = ""
		}
		mounts = append(mounts, mt)
	}

	containerConfig := &container.Config{
		Image:        snapshot.Image,
		Env:          snapshot.Env,
		ExposedPorts: exposedPorts,
	}
	hostConfig := &container.HostConfig{
		PortBindings: portBindings,
		Mounts:       mounts,
		NetworkMode:  container.NetworkMode(snapshot.NetworkMode),
		RestartPolicy: container.RestartPolicy{
			Name:              container.RestartPolicyMode(snapshot.RestartPolicy.Name),
			MaximumRetryCount: snapshot.RestartPolicy.MaximumRetryCount,
		},
	}
	return containerConfig, hostConfig
}

func fromPortMap(pm nat.PortMap) map[string][]domain.PortBinding {
	if len(pm) == 0 {
		return nil
	}
	result := make(map[string][]domain.PortBinding, len(pm))
	for port, bindings := range pm {
		converted := make([]domain.PortBinding, 0, len(bindings))
		for _, b := range bindings {
			converted = append(converted, domain.PortBinding{HostIP: b.HostIP, HostPort: b.HostPort})
		}
		result[string(port)] = converted
	}
	return result
}

func encodeAuth(authConfig registry.AuthConfig) (string, error) {
	// Docker accepts both encodings, Podman expects StdEncoding.
	authConfigBytes, err := json.Marshal(authConfig)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(authConfigBytes), nil
}

func isImageMissing(message string) bool {
	msg := strings.ToLower(message)
	return strings.Contains(msg, "manifest unknown") ||
		strings.Contains(msg, "not found") ||
		strings.Contains(msg, "repository does not exist")
}

// classify converts a Docker client error into a *domain.Error. notFound,
// when set, is wrapped for engine 404 responses.
func classify(op string, err error, notFound error) error {
	var netErr *net.OpError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return domain.NewError(domain.KindTimeout, op, "engine call timed out", err)
	case client.IsErrConnectionFailed(err), cerrdefs.IsUnavailable(err), errors.As(err, &netErr):
		return domain.NewError(domain.KindEnvironmentUnavailable, op, "cannot connect to the container engine", err)
	case notFound != nil && cerrdefs.IsNotFound(err):
		return domain.NewError(domain.KindNotFound, op, notFound.Error(), fmt.Errorf("%w: %w", notFound, err))
	}
	return domain.NewError(domain.KindOperationFailed, op, "engine call failed", err).WithOutput(err.Error())
}
