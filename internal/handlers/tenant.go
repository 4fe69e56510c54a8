package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/marigold/internal/repositories/tenant"
)

// TenantHandler handles tenant bootstrap requests
type TenantHandler struct {
	repo tenant.TenantRepository
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(repo tenant.TenantRepository) *TenantHandler {
	return &TenantHandler{
		repo: repo,
	}
}

// CreateTenantRequest is the request body for creating a tenant
type CreateTenantRequest struct {
	Name string `json:"name" validate:"required"`
}

// RegisterRoutes registers the tenant routes
func (h *TenantHandler) RegisterRoutes(g *echo.Group) {
	tenants := g.Group("/tenants")
	tenants.POST("", h.Create)
	tenants.GET("/:id", h.Get)
}

// Create handles POST /tenants
func (h *TenantHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateTenantRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}

	if req.Name == "" {
		return BadRequest("name is required")
	}

	t, err := h.repo.Create(ctx, req.Name)
	if err != nil {
		return err
	}

	return CreatedResponse(c, t)
}

// Get handles GET /tenants/:id
func (h *TenantHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	t, err := h.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if t == nil {
		return NotFound("tenant not found")
	}

	return SuccessResponse(c, t)
}
