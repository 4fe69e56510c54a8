package tenant

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

// TenantRepository defines the interface for tenant operations
type TenantRepository interface {
	Create(ctx context.Context, name string) (*models.Tenant, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

// Repository implements TenantRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new tenant repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "tenants"

// Create creates a new tenant
func (r *Repository) Create(ctx context.Context, name string) (*models.Tenant, error) {
	ctx, span := tracing.StartSpan(ctx, "TenantRepository.Create")
	defer span.End()

	now := time.Now()
	id := uuid.New()

	sb := sqlbuilder.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols("id", "name", "created_at", "updated_at")
	sb.Values(id, name, now, now)

	query, args := sb.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create tenant")
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": id,
		"name":      name,
	}).Info("created tenant")

	return r.GetByID(ctx, id)
}

// GetByID gets a tenant by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	ctx, span := tracing.StartSpan(ctx, "TenantRepository.GetByID")
	defer span.End()

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "name", "created_at", "updated_at")
	sb.From(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	var t models.Tenant
	err := r.db.GetContext(ctx, &t, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get tenant by ID")
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	return &t, nil
}
