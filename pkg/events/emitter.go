// Package events publishes sync lifecycle events.
package events

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/marigold/pkg/kafka"
	"github.com/Ramsey-B/marigold/pkg/models"
	"github.com/Ramsey-B/marigold/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Event types
const (
	EventSyncCompleted = "sync.completed"
	EventSyncFailed    = "sync.failed"
)

// SyncEvent is one lifecycle event for a sync job.
type SyncEvent struct {
	EventType        string    `json:"event_type"`
	TenantID         string    `json:"tenant_id"`
	JobID            string    `json:"job_id"`
	TargetAccountID  string    `json:"target_account_id"`
	CampaignsTouched int       `json:"campaigns_touched,omitempty"`
	FactsWritten     int       `json:"facts_written,omitempty"`
	Error            string    `json:"error,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// SyncCompleted builds the completion event for a job
func SyncCompleted(job *models.Job, result *models.SyncResult) SyncEvent {
	return SyncEvent{
		EventType:        EventSyncCompleted,
		TenantID:         job.TenantID.String(),
		JobID:            job.ID.String(),
		TargetAccountID:  job.Payload.GetValue().TargetAccountID.String(),
		CampaignsTouched: result.CampaignsTouched,
		FactsWritten:     result.FactsWritten,
		Timestamp:        time.Now().UTC(),
	}
}

// SyncFailed builds the failure event for a job
func SyncFailed(job *models.Job, message string) SyncEvent {
	return SyncEvent{
		EventType:       EventSyncFailed,
		TenantID:        job.TenantID.String(),
		JobID:           job.ID.String(),
		TargetAccountID: job.Payload.GetValue().TargetAccountID.String(),
		Error:           message,
		Timestamp:       time.Now().UTC(),
	}
}

// Emitter publishes sync lifecycle events
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// Emit publishes one event, keyed by job id
func (e *Emitter) Emit(ctx context.Context, event SyncEvent) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.Emit")
	defer span.End()

	headers := map[string]string{
		"event_type":     event.EventType,
		"tenant_id":      event.TenantID,
		"schema_version": SchemaVersion,
	}

	if err := e.producer.Publish(ctx, event.JobID, event, headers); err != nil {
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s event", event.EventType)
		return err
	}

	return nil
}
