package insight

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/marigold/pkg/database"
	"github.com/Ramsey-B/marigold/pkg/models"
	"github.com/Ramsey-B/marigold/pkg/tracing"
)

// UpsertChunkSize bounds the number of fact rows per upsert statement.
const UpsertChunkSize = 500

// InsightRepository defines the interface for daily fact row operations
type InsightRepository interface {
	UpsertBatch(ctx context.Context, tenantID uuid.UUID, insights []models.CampaignInsight) error
	ListWindow(ctx context.Context, tenantID uuid.UUID, since, until time.Time) ([]models.CampaignInsight, error)
	ListWindowByAccount(ctx context.Context, tenantID uuid.UUID, accountID uuid.UUID, since, until time.Time) ([]models.CampaignInsight, error)
}

// Repository implements InsightRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new insight repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "campaign_insights_daily"

const insightColumns = "id, tenant_id, ad_account_id, campaign_id, day, spend, impressions, clicks, created_at, updated_at"

// UpsertBatch writes daily fact rows in chunks. Rows are keyed
// (tenant_id, campaign_id, day) and a conflict replaces all three measures,
// so re-syncing a window is idempotent.
func (r *Repository) UpsertBatch(ctx context.Context, tenantID uuid.UUID, insights []models.CampaignInsight) error {
	ctx, span := tracing.StartSpan(ctx, "InsightRepository.UpsertBatch")
	defer span.End()

	if len(insights) == 0 {
		return nil
	}

	now := time.Now()

	for start := 0; start < len(insights); start += UpsertChunkSize {
		end := start + UpsertChunkSize
		if end > len(insights) {
			end = len(insights)
		}
		chunk := insights[start:end]

		sb := sqlbuilder.NewInsertBuilder()
		sb.InsertInto(tableName)
		sb.Cols("id", "tenant_id", "ad_account_id", "campaign_id", "day", "spend", "impressions", "clicks", "created_at", "updated_at")
		for _, row := range chunk {
			id := row.ID
			if id == uuid.Nil {
				id = uuid.New()
			}
			sb.Values(id, tenantID, row.AdAccountID, row.CampaignID, row.Day, row.Spend, row.Impressions, row.Clicks, now, now)
		}

		query, args := sb.Build()
		query += ` ON CONFLICT (tenant_id, campaign_id, day) DO UPDATE SET
			ad_account_id = EXCLUDED.ad_account_id,
			spend = EXCLUDED.spend,
			impressions = EXCLUDED.impressions,
			clicks = EXCLUDED.clicks,
			updated_at = EXCLUDED.updated_at`

		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"chunk_start": start,
				"chunk_size":  len(chunk),
			}).Error("failed to upsert insights chunk")
			return fmt.Errorf("failed to upsert insights: %w", err)
		}
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"count":     len(insights),
	}).Debug("upserted insights")
	return nil
}

// ListWindow returns the tenant's fact rows for an inclusive [since, until]
// day range.
func (r *Repository) ListWindow(ctx context.Context, tenantID uuid.UUID, since, until time.Time) ([]models.CampaignInsight, error) {
	ctx, span := tracing.StartSpan(ctx, "InsightRepository.ListWindow")
	defer span.End()

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(insightColumns)
	sb.From(tableName)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.GreaterEqualThan("day", since),
		sb.LessEqualThan("day", until),
	)
	sb.OrderBy("day ASC")

	return r.selectInsights(ctx, sb)
}

// ListWindowByAccount is ListWindow filtered to a single ad account.
func (r *Repository) ListWindowByAccount(ctx context.Context, tenantID uuid.UUID, accountID uuid.UUID, since, until time.Time) ([]models.CampaignInsight, error) {
	ctx, span := tracing.StartSpan(ctx, "InsightRepository.ListWindowByAccount")
	defer span.End()

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(insightColumns)
	sb.From(tableName)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("ad_account_id", accountID),
		sb.GreaterEqualThan("day", since),
		sb.LessEqualThan("day", until),
	)
	sb.OrderBy("day ASC")

	return r.selectInsights(ctx, sb)
}

func (r *Repository) selectInsights(ctx context.Context, sb *sqlbuilder.SelectBuilder) ([]models.CampaignInsight, error) {
	query, args := sb.Build()

	var insights []models.CampaignInsight
	if err := r.db.SelectContext(ctx, &insights, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list insights")
		return nil, fmt.Errorf("failed to list insights: %w", err)
	}

	return insights, nil
}
