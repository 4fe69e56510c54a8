package queue

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

// Queue defines the durable job queue operations
type Queue interface {
	Enqueue(ctx context.Context, tenantID uuid.UUID, jobType string, payload models.SyncAccountPayload) (uuid.UUID, error)
	Claim(ctx context.Context) (*models.Job, error)
	Complete(ctx context.Context, jobID uuid.UUID, result models.SyncResult) error
	Fail(ctx context.Context, jobID uuid.UUID, message string) error
	Get(ctx context.Context, tenantID uuid.UUID, jobID uuid.UUID) (*models.Job, error)
}

// JobQueue is a durable queue backed by the jobs table. Mutual exclusion
// between claimants comes entirely from the conditional status update in
// Claim; no external lock is involved.
type JobQueue struct {
	db     database.DB
	logger ectologger.Logger
}

// NewJobQueue creates a new job queue
func NewJobQueue(db database.DB, logger ectologger.Logger) *JobQueue {
	return &JobQueue{
		db:     db,
		logger: logger,
	}
}

const tableName = "jobs"

const jobColumns = "id, tenant_id, job_type, status, payload, result, last_error, created_at, claimed_at, finished_at"

// Enqueue inserts a new pending job. Duplicate submissions are not detected
// here; avoiding redundant work is the caller's responsibility.
func (q *JobQueue) Enqueue(ctx context.Context, tenantID uuid.UUID, jobType string, payload models.SyncAccountPayload) (uuid.UUID, error) {
	ctx, span := tracing.StartSpan(ctx, "JobQueue.Enqueue")
	defer span.End()

	id := uuid.New()

	sb := sqlbuilder.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols("id", "tenant_id", "job_type", "status", "payload", "created_at")
	sb.Values(id, tenantID, jobType, models.JobStatusPending, database.NewJSONB(payload), time.Now())

	query, args := sb.Build()

	if _, err := q.db.ExecContext(ctx, query, args...); err != nil {
		q.logger.WithContext(ctx).WithError(err).Error("failed to enqueue job")
		return uuid.Nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	q.logger.WithContext(ctx).WithFields(map[string]any{
		"job_id":   id,
		"job_type": jobType,
	}).Info("enqueued job")

	return id, nil
}

// Claim selects the oldest pending job and flips it to processing with a
// conditional update. If another claimant wins the race the update affects
// zero rows and Claim returns (nil, nil); callers re-poll rather than retry.
func (q *JobQueue) Claim(ctx context.Context) (*models.Job, error) {
	ctx, span := tracing.StartSpan(ctx, "JobQueue.Claim")
	defer span.End()

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(jobColumns)
	sb.From(tableName)
	sb.Where(sb.Equal("status", models.JobStatusPending))
	sb.OrderBy("created_at ASC")
	sb.Limit(1)

	query, args := sb.Build()

	var job models.Job
	err := q.db.GetContext(ctx, &job, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		q.logger.WithContext(ctx).WithError(err).Error("failed to select pending job")
		return nil, fmt.Errorf("failed to select pending job: %w", err)
	}

	claimedAt := time.Now()

	ub := sqlbuilder.NewUpdateBuilder()
	ub.Update(tableName)
	ub.Set(
		ub.Assign("status", models.JobStatusProcessing),
		ub.Assign("claimed_at", claimedAt),
	)
	ub.Where(
		ub.Equal("id", job.ID),
		ub.Equal("status", models.JobStatusPending),
	)

	query, args = ub.Build()

	result, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		q.logger.WithContext(ctx).WithError(err).Error("failed to claim job")
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	if rows == 0 {
		// Another claimant won the race.
		return nil, nil
	}

	job.Status = models.JobStatusProcessing
	job.ClaimedAt = &claimedAt

	q.logger.WithContext(ctx).WithFields(map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
	}).Info("claimed job")

	return &job, nil
}

// Complete marks a processing job done and writes its result. The guard on
// status means a job that already finished is never overwritten.
func (q *JobQueue) Complete(ctx context.Context, jobID uuid.UUID, result models.SyncResult) error {
	ctx, span := tracing.StartSpan(ctx, "JobQueue.Complete")
	defer span.End()

	res := &result
	return q.finish(ctx, jobID, models.JobStatusDone, database.NewJSONB(res), nil)
}

// Fail marks a processing job errored with the given message.
func (q *JobQueue) Fail(ctx context.Context, jobID uuid.UUID, message string) error {
	ctx, span := tracing.StartSpan(ctx, "JobQueue.Fail")
	defer span.End()

	return q.finish(ctx, jobID, models.JobStatusError, database.NewJSONB[*models.SyncResult](nil), &message)
}

func (q *JobQueue) finish(ctx context.Context, jobID uuid.UUID, status string, result database.JSONB[*models.SyncResult], errMessage *string) error {
	ub := sqlbuilder.NewUpdateBuilder()
	ub.Update(tableName)
	ub.Set(
		ub.Assign("status", status),
		ub.Assign("result", result),
		ub.Assign("last_error", errMessage),
		ub.Assign("finished_at", time.Now()),
	)
	ub.Where(
		ub.Equal("id", jobID),
		ub.Equal("status", models.JobStatusProcessing),
	)

	query, args := ub.Build()

	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		q.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"job_id": jobID,
		}).Error("failed to finish job")
		return fmt.Errorf("failed to finish job: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish job: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("job %s is not processing", jobID)
	}

	q.logger.WithContext(ctx).WithFields(map[string]any{
		"job_id": jobID,
		"status": status,
	}).Info("finished job")

	return nil
}

// Get reads a job by ID, tenant-scoped
func (q *JobQueue) Get(ctx context.Context, tenantID uuid.UUID, jobID uuid.UUID) (*models.Job, error) {
	ctx, span := tracing.StartSpan(ctx, "JobQueue.Get")
	defer span.End()

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(jobColumns)
	sb.From(tableName)
	sb.Where(
		sb.Equal("id", jobID),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()

	var job models.Job
	err := q.db.GetContext(ctx, &job, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		q.logger.WithContext(ctx).WithError(err).Error("failed to get job")
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}
