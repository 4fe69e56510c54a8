package connection

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

// ConnectionRepository defines the interface for platform connection operations
type ConnectionRepository interface {
	Upsert(ctx context.Context, conn *models.PlatformConnection) (*models.PlatformConnection, error)
	GetByTenantID(ctx context.Context, tenantID uuid.UUID) (*models.PlatformConnection, error)
	Delete(ctx context.Context, tenantID uuid.UUID) error
}

// Repository implements ConnectionRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new connection repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "platform_connections"

// Upsert stores the tenant's platform credential. A tenant holds a single
// connection row, so a reconnect overwrites the previous token.
func (r *Repository) Upsert(ctx context.Context, conn *models.PlatformConnection) (*models.PlatformConnection, error) {
	ctx, span := tracing.StartSpan(ctx, "ConnectionRepository.Upsert")
	defer span.End()

	now := time.Now()
	if conn.ID == uuid.Nil {
		conn.ID = uuid.New()
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(tableName).
		Cols("id", "tenant_id", "platform_user_id", "access_token", "expires_at", "created_at", "updated_at").
		Values(conn.ID, conn.TenantID, conn.PlatformUserID, conn.AccessToken, conn.ExpiresAt, now, now)

	ub := ib.OnConflict("tenant_id")
	ub.Set(
		ub.Assign("platform_user_id", database.Excluded("platform_user_id")),
		ub.Assign("access_token", database.Excluded("access_token")),
		ub.Assign("expires_at", database.Excluded("expires_at")),
		ub.Assign("updated_at", database.Excluded("updated_at")),
	)

	query, args := ib.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to upsert platform connection")
		return nil, fmt.Errorf("failed to upsert platform connection: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": conn.TenantID,
	}).Info("stored platform connection")

	return r.GetByTenantID(ctx, conn.TenantID)
}

// GetByTenantID returns the tenant's connection, newest first if the unique
// constraint ever admits more than one row.
func (r *Repository) GetByTenantID(ctx context.Context, tenantID uuid.UUID) (*models.PlatformConnection, error) {
	ctx, span := tracing.StartSpan(ctx, "ConnectionRepository.GetByTenantID")
	defer span.End()

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "tenant_id", "platform_user_id", "access_token", "expires_at", "created_at", "updated_at")
	sb.From(tableName)
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("created_at DESC")
	sb.Limit(1)

	query, args := sb.Build()

	var conn models.PlatformConnection
	err := r.db.GetContext(ctx, &conn, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get platform connection")
		return nil, fmt.Errorf("failed to get platform connection: %w", err)
	}

	return &conn, nil
}

// Delete removes the tenant's connection
func (r *Repository) Delete(ctx context.Context, tenantID uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "ConnectionRepository.Delete")
	defer span.End()

	db := database.NewDeleteBuilder()
	db.DeleteFrom(tableName).Where(db.Equal("tenant_id", tenantID))

	query, args := db.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete platform connection")
		return fmt.Errorf("failed to delete platform connection: %w", err)
	}

	return nil
}
