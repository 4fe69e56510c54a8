package campaign

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

// UpsertChunkSize bounds the number of rows per upsert statement so a large
// sync never builds a statement past the placeholder limit.
const UpsertChunkSize = 200

// CampaignRepository defines the interface for campaign dimension operations
type CampaignRepository interface {
	UpsertBatch(ctx context.Context, tenantID uuid.UUID, campaigns []models.Campaign) error
	GetIDsByExternalIDs(ctx context.Context, tenantID uuid.UUID, externalIDs []string) (map[string]uuid.UUID, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]models.Campaign, error)
}

// Repository implements CampaignRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new campaign repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "campaigns"

// UpsertBatch inserts or refreshes campaign dimension rows in chunks. Rows are
// keyed (tenant_id, external_id); the name refreshes on conflict. Campaigns
// are never deleted here.
func (r *Repository) UpsertBatch(ctx context.Context, tenantID uuid.UUID, campaigns []models.Campaign) error {
	ctx, span := tracing.StartSpan(ctx, "CampaignRepository.UpsertBatch")
	defer span.End()

	if len(campaigns) == 0 {
		return nil
	}

	now := time.Now()

	for start := 0; start < len(campaigns); start += UpsertChunkSize {
		end := start + UpsertChunkSize
		if end > len(campaigns) {
			end = len(campaigns)
		}
		chunk := campaigns[start:end]

		sb := sqlbuilder.NewInsertBuilder()
		sb.InsertInto(tableName)
		sb.Cols("id", "tenant_id", "external_id", "name", "created_at", "updated_at")
		for _, c := range chunk {
			id := c.ID
			if id == uuid.Nil {
				id = uuid.New()
			}
			sb.Values(id, tenantID, c.ExternalID, c.Name, now, now)
		}

		query, args := sb.Build()
		query += ` ON CONFLICT (tenant_id, external_id) DO UPDATE SET
			name = EXCLUDED.name,
			updated_at = EXCLUDED.updated_at`

		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"chunk_start": start,
				"chunk_size":  len(chunk),
			}).Error("failed to upsert campaigns chunk")
			return fmt.Errorf("failed to upsert campaigns: %w", err)
		}
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"count":     len(campaigns),
	}).Debug("upserted campaigns")
	return nil
}

// GetIDsByExternalIDs resolves external campaign IDs to internal row IDs,
// reading in the same chunk size the upsert writes in.
func (r *Repository) GetIDsByExternalIDs(ctx context.Context, tenantID uuid.UUID, externalIDs []string) (map[string]uuid.UUID, error) {
	ctx, span := tracing.StartSpan(ctx, "CampaignRepository.GetIDsByExternalIDs")
	defer span.End()

	idMap := make(map[string]uuid.UUID, len(externalIDs))

	for start := 0; start < len(externalIDs); start += UpsertChunkSize {
		end := start + UpsertChunkSize
		if end > len(externalIDs) {
			end = len(externalIDs)
		}
		chunk := externalIDs[start:end]

		in := make([]any, len(chunk))
		for i, externalID := range chunk {
			in[i] = externalID
		}

		sb := sqlbuilder.NewSelectBuilder()
		sb.Select("id", "external_id")
		sb.From(tableName)
		sb.Where(
			sb.Equal("tenant_id", tenantID),
			sb.In("external_id", in...),
		)

		query, args := sb.Build()

		var rows []struct {
			ID         uuid.UUID `db:"id"`
			ExternalID string    `db:"external_id"`
		}
		if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("failed to resolve campaign IDs")
			return nil, fmt.Errorf("failed to resolve campaign IDs: %w", err)
		}

		for _, row := range rows {
			idMap[row.ExternalID] = row.ID
		}
	}

	return idMap, nil
}

// List lists the tenant's campaigns
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID) ([]models.Campaign, error) {
	ctx, span := tracing.StartSpan(ctx, "CampaignRepository.List")
	defer span.End()

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "tenant_id", "external_id", "name", "created_at", "updated_at")
	sb.From(tableName)
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("name ASC")

	query, args := sb.Build()

	var campaigns []models.Campaign
	if err := r.db.SelectContext(ctx, &campaigns, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list campaigns")
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}

	return campaigns, nil
}
