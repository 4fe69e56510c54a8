// Package worker runs the queue polling loop.
package worker

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/Gobusters/ectologger"

	appctx "github.com/Ramsey-B/marigold/pkg/context"
	"github.com/Ramsey-B/marigold/pkg/events"
	"github.com/Ramsey-B/marigold/pkg/metrics"
	"github.com/Ramsey-B/marigold/pkg/models"
	"github.com/Ramsey-B/marigold/pkg/queue"
	"github.com/Ramsey-B/marigold/pkg/sync"
	"github.com/Ramsey-B/marigold/pkg/tracing"
)

var (
	// ErrWorkerAlreadyRunning is returned when trying to start a running worker
	ErrWorkerAlreadyRunning = errors.New("worker already running")
)

// DefaultPollInterval is the sleep between polls
const DefaultPollInterval = 5 * time.Second

// Config holds worker configuration
type Config struct {
	// PollInterval is the sleep after an empty poll or a poll error
	PollInterval time.Duration
}

// Worker claims one job at a time, dispatches it by type, and sleeps between
// empty polls. Strictly sequential: no parallel fan-out within or across jobs.
type Worker struct {
	queue        queue.Queue
	orchestrator *sync.Orchestrator
	emitter      *events.Emitter
	config       Config
	logger       ectologger.Logger

	// Coordination
	stopCh   chan struct{}
	stoppedC chan struct{}
	running  bool
	mu       gosync.RWMutex
}

// NewWorker creates a new Worker. emitter may be nil when lifecycle events
// are disabled.
func NewWorker(
	q queue.Queue,
	orchestrator *sync.Orchestrator,
	emitter *events.Emitter,
	config Config,
	logger ectologger.Logger,
) *Worker {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}

	return &Worker{
		queue:        q,
		orchestrator: orchestrator,
		emitter:      emitter,
		config:       config,
		logger:       logger,
		stopCh:       make(chan struct{}),
		stoppedC:     make(chan struct{}),
	}
}

// Start starts the polling loop
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrWorkerAlreadyRunning
	}
	w.running = true
	w.mu.Unlock()

	w.logger.WithContext(ctx).Infof("Starting worker: poll_interval=%s", w.config.PollInterval)

	go w.pollLoop(ctx)

	return nil
}

// Stop stops the worker gracefully. A job in flight finishes first.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	w.logger.WithContext(ctx).Info("Stopping worker...")

	close(w.stopCh)

	select {
	case <-w.stoppedC:
		w.logger.WithContext(ctx).Info("Worker stopped gracefully")
	case <-ctx.Done():
		w.logger.WithContext(ctx).Warn("Worker shutdown timed out")
		return ctx.Err()
	}

	return nil
}

// IsRunning returns whether the worker is running
func (w *Worker) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

func (w *Worker) pollLoop(ctx context.Context) {
	defer close(w.stoppedC)

	for {
		select {
		case <-w.stopCh:
			w.logger.WithContext(ctx).Debug("Worker poll loop stopping")
			return
		default:
		}

		worked := w.pollOnce(ctx)
		if worked {
			// There may be more pending work; poll again immediately.
			continue
		}

		select {
		case <-w.stopCh:
			return
		case <-time.After(w.config.PollInterval):
		}
	}
}

// pollOnce claims and processes at most one job. Returns true when a job was
// claimed. Poll-level errors are logged and swallowed so the loop continues.
func (w *Worker) pollOnce(ctx context.Context) bool {
	job, err := w.queue.Claim(ctx)
	if err != nil {
		w.logger.WithContext(ctx).WithError(err).Error("Failed to claim job")
		return false
	}
	if job == nil {
		return false
	}

	w.processJob(ctx, job)
	return true
}

func (w *Worker) processJob(ctx context.Context, job *models.Job) {
	ctx, span := tracing.StartSpan(ctx, "Worker.processJob")
	defer span.End()

	ctx = appctx.SetJobID(ctx, job.ID.String())
	ctx = appctx.SetTenantID(ctx, job.TenantID.String())

	start := time.Now()

	result, err := w.dispatch(ctx, job)

	duration := time.Since(start)

	if err != nil {
		w.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"job_id":   job.ID,
			"job_type": job.JobType,
		}).Error("job failed")
		metrics.RecordJob(job.JobType, models.JobStatusError, duration.Seconds())

		if failErr := w.queue.Fail(ctx, job.ID, err.Error()); failErr != nil {
			// The job stays processing; re-enqueue is a manual operation.
			w.logger.WithContext(ctx).WithError(failErr).Error("Failed to mark job errored")
		}
		w.emit(ctx, events.SyncFailed(job, err.Error()))
		return
	}

	metrics.RecordJob(job.JobType, models.JobStatusDone, duration.Seconds())

	if completeErr := w.queue.Complete(ctx, job.ID, *result); completeErr != nil {
		w.logger.WithContext(ctx).WithError(completeErr).Error("Failed to mark job done")
		return
	}

	w.logger.WithContext(ctx).WithFields(map[string]any{
		"job_id":            job.ID,
		"job_type":          job.JobType,
		"campaigns_touched": result.CampaignsTouched,
		"facts_written":     result.FactsWritten,
		"duration":          duration.String(),
	}).Info("job completed")

	w.emit(ctx, events.SyncCompleted(job, result))
}

// dispatch routes a claimed job by type. A handler panic becomes a job error
// rather than crashing the loop.
func (w *Worker) dispatch(ctx context.Context, job *models.Job) (result *models.SyncResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("job handler panicked: %v", r)
		}
	}()

	switch job.JobType {
	case models.JobTypeSyncAccount:
		return w.orchestrator.SyncAccount(ctx, job.TenantID, job.Payload.GetValue())
	default:
		return nil, fmt.Errorf("unknown job type %q", job.JobType)
	}
}

func (w *Worker) emit(ctx context.Context, event events.SyncEvent) {
	if w.emitter == nil {
		return
	}
	if err := w.emitter.Emit(ctx, event); err != nil {
		w.logger.WithContext(ctx).WithError(err).Warn("Failed to emit sync event")
	}
}
