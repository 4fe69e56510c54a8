package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/marigold/internal/repositories/adaccount"
	"github.com/Ramsey-B/marigold/pkg/aggregate"
	"github.com/Ramsey-B/marigold/pkg/models"
	"github.com/Ramsey-B/marigold/pkg/queue"
	syncsvc "github.com/Ramsey-B/marigold/pkg/sync"
)

// SyncHandler handles sync job submission and inspection
type SyncHandler struct {
	queue    queue.Queue
	accounts adaccount.AdAccountRepository
	validate *validator.Validate
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(q queue.Queue, accounts adaccount.AdAccountRepository) *SyncHandler {
	return &SyncHandler{
		queue:    q,
		accounts: accounts,
		validate: validator.New(),
	}
}

// CreateSyncRequest is the request body for enqueuing a sync job
type CreateSyncRequest struct {
	AccountID    uuid.UUID `json:"account_id" validate:"required"`
	LookbackDays int       `json:"lookback_days" validate:"gte=0,lte=90"`
}

// CreateSyncResponse is returned after a job is enqueued
type CreateSyncResponse struct {
	JobID uuid.UUID `json:"job_id"`
}

// RegisterRoutes registers the sync routes
func (h *SyncHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/syncs", h.Create)
	g.GET("/jobs/:id", h.GetJob)
}

// Create handles POST /syncs
func (h *SyncHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	var req CreateSyncRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}

	if err := h.validate.Struct(req); err != nil {
		return BadRequest(err.Error())
	}

	account, err := h.accounts.GetByID(ctx, tenantID, req.AccountID)
	if err != nil {
		return err
	}
	if account == nil {
		return NotFound("ad account not found")
	}

	days := aggregate.ClampDays(req.LookbackDays, syncsvc.DefaultLookbackDays, syncsvc.MaxLookbackDays)

	jobID, err := h.queue.Enqueue(ctx, tenantID, models.JobTypeSyncAccount, models.SyncAccountPayload{
		TargetAccountID: account.ID,
		LookbackDays:    days,
	})
	if err != nil {
		return err
	}

	return AcceptedResponse(c, CreateSyncResponse{JobID: jobID})
}

// GetJob handles GET /jobs/:id
func (h *SyncHandler) GetJob(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	job, err := h.queue.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if job == nil {
		return NotFound("job not found")
	}

	return SuccessResponse(c, job)
}
