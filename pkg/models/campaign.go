package models

import (
	"time"

	"github.com/google/uuid"
)

// Campaign is a campaign dimension row pulled from an ad platform. External
// IDs are unique per tenant, so repeated syncs update rather than duplicate.
// The core never deletes campaigns.
type Campaign struct {
	ID         uuid.UUID `db:"id" json:"id"`
	TenantID   uuid.UUID `db:"tenant_id" json:"tenant_id"`
	ExternalID string    `db:"external_id" json:"external_id"`
	Name       string    `db:"name" json:"name"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (Campaign) TableName() string {
	return "campaigns"
}
