package handlers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/marigold/internal/repositories/adaccount"
	"github.com/Ramsey-B/marigold/internal/repositories/campaign"
	"github.com/Ramsey-B/marigold/internal/repositories/insight"
	"github.com/Ramsey-B/marigold/pkg/aggregate"
	"github.com/Ramsey-B/marigold/pkg/models"
	"github.com/Ramsey-B/marigold/pkg/redis"
	syncsvc "github.com/Ramsey-B/marigold/pkg/sync"
)

// ReportHandler serves the read-side aggregate endpoints. Responses are
// cached briefly in Redis; a cache error falls through to the database.
type ReportHandler struct {
	insights  insight.InsightRepository
	accounts  adaccount.AdAccountRepository
	campaigns campaign.CampaignRepository
	cache     *redis.Cache
	logger    ectologger.Logger
}

// NewReportHandler creates a new report handler. cache may be nil when Redis
// is not configured.
func NewReportHandler(
	insights insight.InsightRepository,
	accounts adaccount.AdAccountRepository,
	campaigns campaign.CampaignRepository,
	cache *redis.Cache,
	logger ectologger.Logger,
) *ReportHandler {
	return &ReportHandler{
		insights:  insights,
		accounts:  accounts,
		campaigns: campaigns,
		cache:     cache,
		logger:    logger,
	}
}

// OverviewReport is the tenant-wide daily series with window totals
type OverviewReport struct {
	Since  string               `json:"since"`
	Until  string               `json:"until"`
	Totals aggregate.Totals     `json:"totals"`
	Series []aggregate.DayPoint `json:"series"`
}

// NamedTotals is an aggregate row labeled with the entity's name
type NamedTotals struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	aggregate.Totals
}

// EntityReport is a per-entity aggregate listing, sorted by spend descending
type EntityReport struct {
	Since string        `json:"since"`
	Until string        `json:"until"`
	Rows  []NamedTotals `json:"rows"`
}

// RegisterRoutes registers the report routes
func (h *ReportHandler) RegisterRoutes(g *echo.Group) {
	reports := g.Group("/reports")
	reports.GET("/overview", h.Overview)
	reports.GET("/accounts", h.Accounts)
	reports.GET("/campaigns", h.Campaigns)
}

// Overview handles GET /reports/overview
func (h *ReportHandler) Overview(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	days, err := parseDays(c)
	if err != nil {
		return err
	}

	cacheKey := fmt.Sprintf("reports:overview:%s:%d", tenantID, days)
	var cached OverviewReport
	if h.cacheGet(ctx, cacheKey, &cached) {
		return SuccessResponse(c, cached)
	}

	since, until := aggregate.Window(time.Now(), days)

	insights, err := h.insights.ListWindow(ctx, tenantID, since, until)
	if err != nil {
		return err
	}

	report := OverviewReport{
		Since:  since.Format("2006-01-02"),
		Until:  until.Format("2006-01-02"),
		Totals: aggregate.SumTotals(insights),
		Series: aggregate.DaySeries(insights, since, until),
	}

	h.cacheSet(ctx, cacheKey, report)

	return SuccessResponse(c, report)
}

// Accounts handles GET /reports/accounts
func (h *ReportHandler) Accounts(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	days, err := parseDays(c)
	if err != nil {
		return err
	}

	cacheKey := fmt.Sprintf("reports:accounts:%s:%d", tenantID, days)
	var cached EntityReport
	if h.cacheGet(ctx, cacheKey, &cached) {
		return SuccessResponse(c, cached)
	}

	since, until := aggregate.Window(time.Now(), days)

	insights, err := h.insights.ListWindow(ctx, tenantID, since, until)
	if err != nil {
		return err
	}

	accounts, err := h.accounts.List(ctx, tenantID)
	if err != nil {
		return err
	}

	names := make(map[uuid.UUID]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}

	report := EntityReport{
		Since: since.Format("2006-01-02"),
		Until: until.Format("2006-01-02"),
		Rows:  withNames(aggregate.ByAccount(insights), names),
	}

	h.cacheSet(ctx, cacheKey, report)

	return SuccessResponse(c, report)
}

// Campaigns handles GET /reports/campaigns
func (h *ReportHandler) Campaigns(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	days, err := parseDays(c)
	if err != nil {
		return err
	}

	accountID := uuid.Nil
	if raw := c.QueryParam("account_id"); raw != "" {
		accountID, err = uuid.Parse(raw)
		if err != nil {
			return BadRequest("invalid account_id: must be a valid UUID")
		}
	}

	cacheKey := fmt.Sprintf("reports:campaigns:%s:%s:%d", tenantID, accountID, days)
	var cached EntityReport
	if h.cacheGet(ctx, cacheKey, &cached) {
		return SuccessResponse(c, cached)
	}

	since, until := aggregate.Window(time.Now(), days)

	var rows []models.CampaignInsight
	if accountID == uuid.Nil {
		rows, err = h.insights.ListWindow(ctx, tenantID, since, until)
	} else {
		rows, err = h.insights.ListWindowByAccount(ctx, tenantID, accountID, since, until)
	}
	if err != nil {
		return err
	}

	campaigns, err := h.campaigns.List(ctx, tenantID)
	if err != nil {
		return err
	}

	names := make(map[uuid.UUID]string, len(campaigns))
	for _, cp := range campaigns {
		names[cp.ID] = cp.Name
	}

	report := EntityReport{
		Since: since.Format("2006-01-02"),
		Until: until.Format("2006-01-02"),
		Rows:  withNames(aggregate.ByCampaign(rows), names),
	}

	h.cacheSet(ctx, cacheKey, report)

	return SuccessResponse(c, report)
}

func parseDays(c echo.Context) (int, error) {
	raw := c.QueryParam("days")
	if raw == "" {
		return syncsvc.DefaultLookbackDays, nil
	}

	days, err := strconv.Atoi(raw)
	if err != nil {
		return 0, BadRequest("invalid days: must be an integer")
	}

	return aggregate.ClampDays(days, syncsvc.DefaultLookbackDays, syncsvc.MaxLookbackDays), nil
}

func withNames(rows []aggregate.EntityTotals, names map[uuid.UUID]string) []NamedTotals {
	named := make([]NamedTotals, 0, len(rows))
	for _, row := range rows {
		named = append(named, NamedTotals{
			ID:     row.ID,
			Name:   names[row.ID],
			Totals: row.Totals,
		})
	}
	return named
}

func (h *ReportHandler) cacheGet(ctx context.Context, key string, dest any) bool {
	if h.cache == nil {
		return false
	}
	hit, err := h.cache.GetJSON(ctx, key, dest)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Warn("report cache read failed")
		return false
	}
	return hit
}

func (h *ReportHandler) cacheSet(ctx context.Context, key string, value any) {
	if h.cache == nil {
		return
	}
	if err := h.cache.SetJSON(ctx, key, value); err != nil {
		h.logger.WithContext(ctx).WithError(err).Warn("report cache write failed")
	}
}
