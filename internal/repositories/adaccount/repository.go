package adaccount

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/marigold/pkg/database"
	"github.com/Ramsey-B/marigold/pkg/models"
	"github.com/Ramsey-B/marigold/pkg/tracing"
)

// AdAccountRepository defines the interface for ad account operations
type AdAccountRepository interface {
	UpsertBatch(ctx context.Context, tenantID uuid.UUID, accounts []models.AdAccount) error
	GetByID(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*models.AdAccount, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]models.AdAccount, error)
	ListSyncedBefore(ctx context.Context, cutoff time.Time) ([]models.AdAccount, error)
	SetLastSyncedAt(ctx context.Context, tenantID uuid.UUID, id uuid.UUID, syncedAt time.Time) error
}

// Repository implements AdAccountRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new ad account repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "ad_accounts"

// UpsertBatch inserts or refreshes the tenant's discovered ad accounts. Rows
// are keyed (tenant_id, platform, external_id); name and status refresh on
// conflict so re-imports track upstream renames.
func (r *Repository) UpsertBatch(ctx context.Context, tenantID uuid.UUID, accounts []models.AdAccount) error {
	ctx, span := tracing.StartSpan(ctx, "AdAccountRepository.UpsertBatch")
	defer span.End()

	if len(accounts) == 0 {
		return nil
	}

	now := time.Now()

	sb := sqlbuilder.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols("id", "tenant_id", "platform", "external_id", "name", "status", "created_at", "updated_at")
	for _, a := range accounts {
		id := a.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		platform := a.Platform
		if platform == "" {
			platform = models.PlatformMeta
		}
		sb.Values(id, tenantID, platform, a.ExternalID, a.Name, a.Status, now, now)
	}

	query, args := sb.Build()
	query += ` ON CONFLICT (tenant_id, platform, external_id) DO UPDATE SET
		name = EXCLUDED.name,
		status = EXCLUDED.status,
		updated_at = EXCLUDED.updated_at`

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to upsert ad accounts")
		return fmt.Errorf("failed to upsert ad accounts: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"count":     len(accounts),
	}).Debug("upserted ad accounts")
	return nil
}

// GetByID gets an ad account by internal ID
func (r *Repository) GetByID(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*models.AdAccount, error) {
	ctx, span := tracing.StartSpan(ctx, "AdAccountRepository.GetByID")
	defer span.End()

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "tenant_id", "platform", "external_id", "name", "status", "last_synced_at", "created_at", "updated_at")
	sb.From(tableName)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()

	var account models.AdAccount
	err := r.db.GetContext(ctx, &account, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get ad account by ID")
		return nil, fmt.Errorf("failed to get ad account: %w", err)
	}

	return &account, nil
}

// List lists the tenant's ad accounts
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID) ([]models.AdAccount, error) {
	ctx, span := tracing.StartSpan(ctx, "AdAccountRepository.List")
	defer span.End()

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "tenant_id", "platform", "external_id", "name", "status", "last_synced_at", "created_at", "updated_at")
	sb.From(tableName)
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("name ASC")

	query, args := sb.Build()

	var accounts []models.AdAccount
	if err := r.db.SelectContext(ctx, &accounts, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list ad accounts")
		return nil, fmt.Errorf("failed to list ad accounts: %w", err)
	}

	return accounts, nil
}

// ListSyncedBefore returns accounts across all tenants whose last sync
// finished before the cutoff (or that have never synced). Used by the
// scheduler to find stale accounts.
func (r *Repository) ListSyncedBefore(ctx context.Context, cutoff time.Time) ([]models.AdAccount, error) {
	ctx, span := tracing.StartSpan(ctx, "AdAccountRepository.ListSyncedBefore")
	defer span.End()

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "tenant_id", "platform", "external_id", "name", "status", "last_synced_at", "created_at", "updated_at")
	sb.From(tableName)
	sb.Where(
		sb.Or(
			sb.IsNull("last_synced_at"),
			sb.LessThan("last_synced_at", cutoff),
		),
	)
	sb.OrderBy("last_synced_at ASC NULLS FIRST")

	query, args := sb.Build()

	var accounts []models.AdAccount
	if err := r.db.SelectContext(ctx, &accounts, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list stale ad accounts")
		return nil, fmt.Errorf("failed to list stale ad accounts: %w", err)
	}

	return accounts, nil
}

// SetLastSyncedAt records when a sync for the account last completed
func (r *Repository) SetLastSyncedAt(ctx context.Context, tenantID uuid.UUID, id uuid.UUID, syncedAt time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "AdAccountRepository.SetLastSyncedAt")
	defer span.End()

	ub := sqlbuilder.NewUpdateBuilder()
	ub.Update(tableName)
	ub.Set(
		ub.Assign("last_synced_at", syncedAt),
		ub.Assign("updated_at", time.Now()),
	)
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("tenant_id", tenantID),
	)

	query, args := ub.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to set last synced at")
		return fmt.Errorf("failed to set last synced at: %w", err)
	}

	return nil
}
