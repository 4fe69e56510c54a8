package handlers

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/marigold/internal/repositories/adaccount"
	"github.com/Ramsey-B/marigold/internal/repositories/connection"
	"github.com/Ramsey-B/marigold/pkg/meta"
	"github.com/Ramsey-B/marigold/pkg/models"
)

// AccountLister lists the ad accounts visible to a platform token
type AccountLister interface {
	ListAdAccounts(ctx context.Context, accessToken string) ([]meta.AdAccountRecord, error)
}

// ConnectionHandler handles platform connection requests. Connecting stores
// the tenant's long-lived token and imports the ad accounts it can see; the
// OAuth code exchange itself happens upstream of this API.
type ConnectionHandler struct {
	connections connection.ConnectionRepository
	accounts    adaccount.AdAccountRepository
	platform    AccountLister
	logger      ectologger.Logger
}

// NewConnectionHandler creates a new connection handler
func NewConnectionHandler(
	connections connection.ConnectionRepository,
	accounts adaccount.AdAccountRepository,
	platform AccountLister,
	logger ectologger.Logger,
) *ConnectionHandler {
	return &ConnectionHandler{
		connections: connections,
		accounts:    accounts,
		platform:    platform,
		logger:      logger,
	}
}

// CreateConnectionRequest is the request body for connecting a platform account
type CreateConnectionRequest struct {
	PlatformUserID string     `json:"platform_user_id" validate:"required"`
	AccessToken    string     `json:"access_token" validate:"required"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// ConnectionResponse is returned after a successful connect
type ConnectionResponse struct {
	Connection       *models.PlatformConnection `json:"connection"`
	AccountsImported int                        `json:"accounts_imported"`
}

// RegisterRoutes registers the connection routes
func (h *ConnectionHandler) RegisterRoutes(g *echo.Group) {
	connections := g.Group("/connections")
	connections.POST("", h.Create)
	connections.GET("", h.Get)
	connections.DELETE("", h.Delete)

	g.GET("/accounts", h.ListAccounts)
}

// Create handles POST /connections
func (h *ConnectionHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	var req CreateConnectionRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}

	if req.PlatformUserID == "" {
		return BadRequest("platform_user_id is required")
	}
	if req.AccessToken == "" {
		return BadRequest("access_token is required")
	}

	conn, err := h.connections.Upsert(ctx, &models.PlatformConnection{
		TenantID:       tenantID,
		PlatformUserID: req.PlatformUserID,
		AccessToken:    req.AccessToken,
		ExpiresAt:      req.ExpiresAt,
	})
	if err != nil {
		return err
	}

	records, err := h.platform.ListAdAccounts(ctx, req.AccessToken)
	if err != nil {
		return err
	}

	accounts := make([]models.AdAccount, 0, len(records))
	for _, record := range records {
		accounts = append(accounts, models.AdAccount{
			TenantID:   tenantID,
			Platform:   models.PlatformMeta,
			ExternalID: record.ID,
			Name:       record.Name,
			Status:     record.StatusLabel(),
		})
	}

	if err := h.accounts.UpsertBatch(ctx, tenantID, accounts); err != nil {
		return err
	}

	h.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"accounts":  len(accounts),
	}).Info("connected platform account")

	return CreatedResponse(c, ConnectionResponse{
		Connection:       conn,
		AccountsImported: len(accounts),
	})
}

// Get handles GET /connections
func (h *ConnectionHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	conn, err := h.connections.GetByTenantID(ctx, tenantID)
	if err != nil {
		return err
	}
	if conn == nil {
		return NotFound("no platform connection")
	}

	return SuccessResponse(c, conn)
}

// Delete handles DELETE /connections
func (h *ConnectionHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	if err := h.connections.Delete(ctx, tenantID); err != nil {
		return err
	}

	return NoContentResponse(c)
}

// ListAccounts handles GET /accounts
func (h *ConnectionHandler) ListAccounts(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	accounts, err := h.accounts.List(ctx, tenantID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, accounts)
}
