package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Ramsey-B/marigold/pkg/database"
)

// Job statuses. A job only ever moves forward: pending -> processing -> done|error.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusDone       = "done"
	JobStatusError      = "error"
)

// Job types
const (
	JobTypeSyncAccount = "sync_account"
)

// SyncAccountPayload is the enqueue payload for a sync_account job.
type SyncAccountPayload struct {
	TargetAccountID uuid.UUID `json:"target_account_id"`
	LookbackDays    int       `json:"lookback_days"`
}

// SyncResult is written to the job's result column on completion.
type SyncResult struct {
	CampaignsTouched int `json:"campaigns_touched"`
	FactsWritten     int `json:"facts_written"`
}

// Job is one queued unit of work. The payload is typed per job_type and the
// completion summary lives in its own result column, so completing a job never
// rewrites the enqueue payload.
type Job struct {
	ID         uuid.UUID                           `db:"id" json:"id"`
	TenantID   uuid.UUID                           `db:"tenant_id" json:"tenant_id"`
	JobType    string                              `db:"job_type" json:"job_type"`
	Status     string                              `db:"status" json:"status"`
	Payload    database.JSONB[SyncAccountPayload]  `db:"payload" json:"payload"`
	Result     database.JSONB[*SyncResult]         `db:"result" json:"result,omitempty"`
	LastError  *string                             `db:"last_error" json:"error,omitempty"`
	CreatedAt  time.Time                           `db:"created_at" json:"created_at"`
	ClaimedAt  *time.Time                          `db:"claimed_at" json:"claimed_at,omitempty"`
	FinishedAt *time.Time                          `db:"finished_at" json:"finished_at,omitempty"`
}

// TableName returns the database table name
func (Job) TableName() string {
	return "jobs"
}
