// Package sync runs one account synchronization end to end.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/marigold/internal/repositories/adaccount"
	"github.com/Ramsey-B/marigold/internal/repositories/connection"
	"github.com/Ramsey-B/marigold/pkg/aggregate"
	"github.com/Ramsey-B/marigold/pkg/ingest"
	"github.com/Ramsey-B/marigold/pkg/meta"
	"github.com/Ramsey-B/marigold/pkg/models"
	"github.com/Ramsey-B/marigold/pkg/tracing"
)

const (
	// DefaultLookbackDays is used when a job does not specify a window
	DefaultLookbackDays = 7

	// MaxLookbackDays bounds the window a single sync may request
	MaxLookbackDays = 90
)

// Fetcher pulls insight records from the ad platform
type Fetcher interface {
	FetchInsights(ctx context.Context, accessToken, accountExternalID string, since, until time.Time) ([]meta.InsightRecord, error)
}

// InsightWriter persists fetched records
type InsightWriter interface {
	Write(ctx context.Context, tenantID, accountID uuid.UUID, records []meta.InsightRecord) (ingest.Counts, error)
}

// Config holds orchestrator configuration
type Config struct {
	DefaultLookbackDays int
	MaxLookbackDays     int
}

// Orchestrator runs a sync job as a linear sequence: load the account, load
// the tenant credential, compute the window, fetch, write. Any step error is
// terminal for the job; chunks committed by the writer stay committed.
type Orchestrator struct {
	accounts    adaccount.AdAccountRepository
	connections connection.ConnectionRepository
	fetcher     Fetcher
	writer      InsightWriter
	config      Config
	logger      ectologger.Logger

	// now is replaceable in tests
	now func() time.Time
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(
	accounts adaccount.AdAccountRepository,
	connections connection.ConnectionRepository,
	fetcher Fetcher,
	writer InsightWriter,
	config Config,
	logger ectologger.Logger,
) *Orchestrator {
	if config.DefaultLookbackDays <= 0 {
		config.DefaultLookbackDays = DefaultLookbackDays
	}
	if config.MaxLookbackDays <= 0 {
		config.MaxLookbackDays = MaxLookbackDays
	}

	return &Orchestrator{
		accounts:    accounts,
		connections: connections,
		fetcher:     fetcher,
		writer:      writer,
		config:      config,
		logger:      logger,
		now:         time.Now,
	}
}

// SyncAccount processes one sync_account job payload and returns the counts
// for the job's result.
func (o *Orchestrator) SyncAccount(ctx context.Context, tenantID uuid.UUID, payload models.SyncAccountPayload) (*models.SyncResult, error) {
	ctx, span := tracing.StartSpan(ctx, "Orchestrator.SyncAccount")
	defer span.End()

	account, err := o.accounts.GetByID(ctx, tenantID, payload.TargetAccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("ad account %s does not exist", payload.TargetAccountID)
	}

	conn, err := o.connections.GetByTenantID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, fmt.Errorf("tenant %s has no platform connection", tenantID)
	}

	days := aggregate.ClampDays(payload.LookbackDays, o.config.DefaultLookbackDays, o.config.MaxLookbackDays)
	since, until := aggregate.Window(o.now(), days)

	o.logger.WithContext(ctx).WithFields(map[string]any{
		"account_id": account.ID,
		"since":      since.Format("2006-01-02"),
		"until":      until.Format("2006-01-02"),
	}).Info("starting account sync")

	records, err := o.fetcher.FetchInsights(ctx, conn.AccessToken, account.ExternalID, since, until)
	if err != nil {
		return nil, fmt.Errorf("insights fetch failed: %w", err)
	}

	counts, err := o.writer.Write(ctx, tenantID, account.ID, records)
	if err != nil {
		return nil, fmt.Errorf("insights write failed: %w", err)
	}

	if err := o.accounts.SetLastSyncedAt(ctx, tenantID, account.ID, o.now()); err != nil {
		// The sync itself succeeded; staleness tracking lags until the next run.
		o.logger.WithContext(ctx).WithError(err).Warn("Failed to record last synced at")
	}

	return &models.SyncResult{
		CampaignsTouched: counts.CampaignsTouched,
		FactsWritten:     counts.FactsWritten,
	}, nil
}
