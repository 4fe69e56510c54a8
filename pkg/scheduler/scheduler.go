// Package scheduler periodically enqueues sync jobs for stale ad accounts.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/marigold/internal/repositories/adaccount"
	appctx "github.com/Ramsey-B/marigold/pkg/context"
	"github.com/Ramsey-B/marigold/pkg/metrics"
	"github.com/Ramsey-B/marigold/pkg/models"
	"github.com/Ramsey-B/marigold/pkg/queue"
	"github.com/Ramsey-B/marigold/pkg/redis"
	"github.com/Ramsey-B/marigold/pkg/tracing"
)

var (
	// ErrSchedulerAlreadyRunning is returned when trying to start an already running scheduler
	ErrSchedulerAlreadyRunning = errors.New("scheduler already running")
)

const (
	// DefaultPollInterval is the default interval between scheduling runs
	DefaultPollInterval = time.Minute

	// DefaultSyncInterval is how stale an account's last sync may be before
	// a new job is enqueued
	DefaultSyncInterval = 6 * time.Hour

	// DefaultLockTTL is the default TTL for the cycle lock
	DefaultLockTTL = 2 * time.Minute

	// LockKey guards a scheduling cycle so replicated deployments don't
	// double-enqueue
	LockKey = "scheduler:sync-cycle"
)

// Config holds configuration for the scheduler
type Config struct {
	// PollInterval is how often to look for stale accounts
	PollInterval time.Duration

	// SyncInterval is the minimum age of an account's last sync before it
	// is re-queued
	SyncInterval time.Duration

	// LockTTL is how long the cycle lock is held
	LockTTL time.Duration

	// LookbackDays is the window length for enqueued jobs
	LookbackDays int
}

// Scheduler polls for stale ad accounts and enqueues sync jobs for them
type Scheduler struct {
	accounts adaccount.AdAccountRepository
	queue    queue.Queue
	locker   *redis.Locker
	config   Config
	logger   ectologger.Logger

	// Coordination
	stopCh   chan struct{}
	stoppedC chan struct{}
	running  bool
	mu       sync.RWMutex
}

// NewScheduler creates a new scheduler
func NewScheduler(
	accounts adaccount.AdAccountRepository,
	q queue.Queue,
	locker *redis.Locker,
	config Config,
	logger ectologger.Logger,
) *Scheduler {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.SyncInterval <= 0 {
		config.SyncInterval = DefaultSyncInterval
	}
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultLockTTL
	}

	return &Scheduler{
		accounts: accounts,
		queue:    q,
		locker:   locker,
		config:   config,
		logger:   logger,
		stopCh:   make(chan struct{}),
		stoppedC: make(chan struct{}),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSchedulerAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	s.logger.WithContext(ctx).Infof("Starting scheduler: poll_interval=%s sync_interval=%s",
		s.config.PollInterval, s.config.SyncInterval)

	go s.pollLoop(ctx)

	return nil
}

// Stop stops the scheduler gracefully
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.WithContext(ctx).Info("Stopping scheduler...")

	close(s.stopCh)

	select {
	case <-s.stoppedC:
		s.logger.WithContext(ctx).Info("Scheduler stopped gracefully")
	case <-ctx.Done():
		s.logger.WithContext(ctx).Warn("Scheduler shutdown timed out")
		return ctx.Err()
	}

	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) pollLoop(ctx context.Context) {
	defer close(s.stoppedC)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	// Run immediately on start
	s.runCycle(ctx)

	for {
		select {
		case <-s.stopCh:
			s.logger.WithContext(ctx).Debug("Scheduler poll loop stopping")
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// runCycle enqueues one sync job per stale account, guarded by a Redis lock
// so only one replica runs a cycle at a time.
func (s *Scheduler) runCycle(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "Scheduler.runCycle")
	defer span.End()

	lock, err := s.locker.Acquire(ctx, LockKey, s.config.LockTTL)
	if err != nil {
		if errors.Is(err, redis.ErrLockNotAcquired) {
			s.logger.WithContext(ctx).Debug("Another replica holds the scheduler lock, skipping cycle")
			return
		}
		s.logger.WithContext(ctx).WithError(err).Error("Failed to acquire scheduler lock")
		return
	}
	defer lock.Release(ctx)

	cutoff := time.Now().Add(-s.config.SyncInterval)

	accounts, err := s.accounts.ListSyncedBefore(ctx, cutoff)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to list stale accounts")
		return
	}

	if len(accounts) == 0 {
		s.logger.WithContext(ctx).Debug("No stale accounts to schedule")
		return
	}

	enqueued := 0
	for _, account := range accounts {
		jobCtx := appctx.SetTenantID(ctx, account.TenantID.String())

		payload := models.SyncAccountPayload{
			TargetAccountID: account.ID,
			LookbackDays:    s.config.LookbackDays,
		}

		jobID, err := s.queue.Enqueue(jobCtx, account.TenantID, models.JobTypeSyncAccount, payload)
		if err != nil {
			s.logger.WithContext(jobCtx).WithError(err).Warnf("Failed to enqueue sync for account %s", account.ID)
			continue
		}

		metrics.SchedulerJobsEnqueued.Inc()
		s.logger.WithContext(jobCtx).Debugf("Enqueued sync job %s for account %s", jobID, account.ID)
		enqueued++
	}

	s.logger.WithContext(ctx).Infof("Scheduling cycle completed: stale=%d enqueued=%d", len(accounts), enqueued)
}
