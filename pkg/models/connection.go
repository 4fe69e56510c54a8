package models

import (
	"time"

	"github.com/google/uuid"
)

// PlatformConnection stores the ad platform credential for a tenant. The
// unique constraint on tenant_id means a tenant holds at most one connection;
// reconnecting replaces the token.
type PlatformConnection struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	TenantID       uuid.UUID  `db:"tenant_id" json:"tenant_id"`
	PlatformUserID string     `db:"platform_user_id" json:"platform_user_id"`
	AccessToken    string     `db:"access_token" json:"-"`
	ExpiresAt      *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (PlatformConnection) TableName() string {
	return "platform_connections"
}
