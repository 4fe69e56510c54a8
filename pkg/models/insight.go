package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CampaignInsight is one campaign's performance for one calendar day. The
// (tenant_id, campaign_id, day) key makes re-syncing a window idempotent;
// an upsert replaces all three measures.
type CampaignInsight struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	TenantID    uuid.UUID       `db:"tenant_id" json:"tenant_id"`
	AdAccountID uuid.UUID       `db:"ad_account_id" json:"ad_account_id"`
	CampaignID  uuid.UUID       `db:"campaign_id" json:"campaign_id"`
	Day         time.Time       `db:"day" json:"day"`
	Spend       decimal.Decimal `db:"spend" json:"spend"`
	Impressions int64           `db:"impressions" json:"impressions"`
	Clicks      int64           `db:"clicks" json:"clicks"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (CampaignInsight) TableName() string {
	return "campaign_insights_daily"
}
