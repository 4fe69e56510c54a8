package models

import (
	"time"

	"github.com/google/uuid"
)

// PlatformMeta is the only supported ad platform today.
const PlatformMeta = "meta"

// AdAccount is an advertiser account discovered on an external platform.
// Identified by (tenant_id, platform, external_id) so re-discovery is
// idempotent; name and status refresh on re-import.
type AdAccount struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	TenantID     uuid.UUID  `db:"tenant_id" json:"tenant_id"`
	Platform     string     `db:"platform" json:"platform"`
	ExternalID   string     `db:"external_id" json:"external_id"`
	Name         string     `db:"name" json:"name"`
	Status       string     `db:"status" json:"status"`
	LastSyncedAt *time.Time `db:"last_synced_at" json:"last_synced_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (AdAccount) TableName() string {
	return "ad_accounts"
}
