// Package api implements the HTTP adapter for the container management API.
package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bnema/dockmaster/internal/adapters/dto"
	"github.com/bnema/dockmaster/internal/boundaries/in"
	"github.com/bnema/dockmaster/internal/domain"
	"github.com/bnema/dockmaster/internal/logging"
)

// maxRequestSize bounds JSON request bodies.
const maxRequestSize = 1 << 20

// WelcomeMessage is returned by GET /.
const WelcomeMessage = "Welcome to the Dockmaster container management API"

// Handler serves the container and registry endpoints.
type Handler struct {
	composeSvc   in.ComposeService
	containerSvc in.ContainerService
	registrySvc  in.RegistryService
	healthSvc    in.HealthService
}

// NewHandler creates a new API handler.
func NewHandler(
	composeSvc in.ComposeService,
	containerSvc in.ContainerService,
	registrySvc in.RegistryService,
	healthSvc in.HealthService,
) *Handler {
	return &Handler{
		composeSvc:   composeSvc,
		containerSvc: containerSvc,
		registrySvc:  registrySvc,
		healthSvc:    healthSvc,
	}
}

// RegisterPublicRoutes registers the endpoints served without authentication.
func (h *Handler) RegisterPublicRoutes(e *echo.Echo) {
	e.GET("/", h.Welcome)
	e.GET("/health", h.Health)
}

// RegisterRoutes registers the container and registry endpoints behind m.
func (h *Handler) RegisterRoutes(e *echo.Echo, m ...echo.MiddlewareFunc) {
	containers := e.Group("/containers", m...)
	containers.GET("", h.ListContainers)
	containers.POST("/create", h.CreateContainer)
	containers.POST("/recreate/:service_name", h.RecreateService)
	containers.PUT("/:container_name", h.RecreateContainer)
	containers.DELETE("/:container_name", h.RemoveContainer)

	registry := e.Group("/registry", m...)
	registry.GET("", h.ListRegistries)
	registry.GET("/:name", h.GetRegistry)
	registry.POST("", h.CreateRegistry)
	registry.DELETE("/:name", h.DeleteRegistry)
}

func (h *Handler) ctx(c echo.Context, action, entity string) context.Context {
	fields := map[string]any{
		logging.FieldLayer:   "adapter",
		logging.FieldAdapter: "http",
		logging.FieldHandler: "api",
		logging.FieldAction:  action,
	}
	if entity != "" {
		fields[logging.FieldEntityID] = entity
	}
	return logging.CtxWithFields(c.Request().Context(), fields)
}

func bind(c echo.Context, v any) error {
	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, maxRequestSize)
	if err := c.Bind(v); err != nil {
		return domain.NewError(domain.KindInvalid, "", "invalid request body", err)
	}
	return c.Validate(v)
}

// Welcome handles GET /.
func (h *Handler) Welcome(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": WelcomeMessage})
}

// Health handles GET /health.
func (h *Handler) Health(c echo.Context) error {
	if err := h.healthSvc.Check(h.ctx(c, "health", "")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// ListContainers handles GET /containers.
func (h *Handler) ListContainers(c echo.Context) error {
	list, err := h.composeSvc.List(h.ctx(c, "list_containers", ""))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.FromContainerSummaries(list))
}

// CreateContainer handles POST /containers/create.
func (h *Handler) CreateContainer(c echo.Context) error {
	var req dto.ContainerCreate
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := h.ctx(c, "create_container", req.ServiceName)
	result, err := h.composeSvc.Create(ctx, req.ToDomain())
	if err != nil {
		return err
	}

	logging.FromCtx(ctx).Info().Str("project_path", result.ProjectPath).Msg("service created")
	return c.JSON(http.StatusCreated, dto.FromCreateResult(result))
}

// RecreateService handles POST /containers/recreate/:service_name.
func (h *Handler) RecreateService(c echo.Context) error {
	name := c.Param("service_name")

	result, err := h.composeSvc.RecreateByServiceName(h.ctx(c, "recreate_service", name), name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.FromActionResult(result))
}

// RecreateContainer handles PUT /containers/:container_name.
func (h *Handler) RecreateContainer(c echo.Context) error {
	name := c.Param("container_name")

	result, err := h.containerSvc.Recreate(h.ctx(c, "recreate_container", name), name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.FromRecreateResult(result))
}

// RemoveContainer handles DELETE /containers/:container_name.
func (h *Handler) RemoveContainer(c echo.Context) error {
	name := c.Param("container_name")

	result, err := h.containerSvc.Remove(h.ctx(c, "remove_container", name), name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.FromActionResult(result))
}

// ListRegistries handles GET /registry.
func (h *Handler) ListRegistries(c echo.Context) error {
	list, err := h.registrySvc.ListAll(h.ctx(c, "list_registries", ""))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.FromRegistryPublicList(list))
}

// GetRegistry handles GET /registry/:name.
func (h *Handler) GetRegistry(c echo.Context) error {
	name := c.Param("name")

	cred, err := h.registrySvc.Get(h.ctx(c, "get_registry", name), name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.FromRegistryPublic(*cred))
}

// CreateRegistry handles POST /registry.
func (h *Handler) CreateRegistry(c echo.Context) error {
	var req dto.Registry
	if err := bind(c, &req); err != nil {
		return err
	}

	cred, err := h.registrySvc.Create(h.ctx(c, "create_registry", req.Name), req.ToDomain())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, dto.FromRegistryPublic(*cred))
}

// DeleteRegistry handles DELETE /registry/:name.
func (h *Handler) DeleteRegistry(c echo.Context) error {
	name := c.Param("name")

	if err := h.registrySvc.Delete(h.ctx(c, "delete_registry", name), name); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
