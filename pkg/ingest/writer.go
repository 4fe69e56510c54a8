// Package ingest persists fetched insight records as campaign dimension rows
// and daily fact rows.
package ingest

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/marigold/internal/repositories/campaign"
	"github.com/Ramsey-B/marigold/internal/repositories/insight"
	"github.com/Ramsey-B/marigold/pkg/meta"
	"github.com/Ramsey-B/marigold/pkg/metrics"
	"github.com/Ramsey-B/marigold/pkg/models"
	"github.com/Ramsey-B/marigold/pkg/tracing"
)

// Counts summarizes one write.
type Counts struct {
	CampaignsTouched int
	FactsWritten     int
}

// Writer performs the two-phase upsert: campaign dimensions first, then the
// external-to-internal id re-read, then daily facts. Each phase is chunked in
// its repository; a chunk that commits stays committed even if a later chunk
// fails.
type Writer struct {
	campaigns campaign.CampaignRepository
	insights  insight.InsightRepository
	logger    ectologger.Logger
}

// NewWriter creates a new Writer
func NewWriter(campaigns campaign.CampaignRepository, insights insight.InsightRepository, logger ectologger.Logger) *Writer {
	return &Writer{
		campaigns: campaigns,
		insights:  insights,
		logger:    logger,
	}
}

// Write upserts the records for one account. Zero records is a valid run and
// returns zero counts.
func (w *Writer) Write(ctx context.Context, tenantID, accountID uuid.UUID, records []meta.InsightRecord) (Counts, error) {
	ctx, span := tracing.StartSpan(ctx, "Writer.Write")
	defer span.End()

	if len(records) == 0 {
		return Counts{}, nil
	}

	// Phase one: distinct campaigns, last-seen name wins.
	seen := make(map[string]int)
	var campaigns []models.Campaign
	for _, rec := range records {
		if rec.CampaignID == "" {
			continue
		}
		if i, ok := seen[rec.CampaignID]; ok {
			campaigns[i].Name = rec.CampaignName
			continue
		}
		seen[rec.CampaignID] = len(campaigns)
		campaigns = append(campaigns, models.Campaign{
			ExternalID: rec.CampaignID,
			Name:       rec.CampaignName,
		})
	}

	if err := w.campaigns.UpsertBatch(ctx, tenantID, campaigns); err != nil {
		return Counts{}, err
	}

	externalIDs := make([]string, len(campaigns))
	for i, c := range campaigns {
		externalIDs[i] = c.ExternalID
	}

	idMap, err := w.campaigns.GetIDsByExternalIDs(ctx, tenantID, externalIDs)
	if err != nil {
		return Counts{}, err
	}

	// Phase two: fact rows, keyed by the resolved internal campaign id.
	var facts []models.CampaignInsight
	for _, rec := range records {
		campaignID, ok := idMap[rec.CampaignID]
		if !ok {
			// Unresolved ids are dropped, not fatal.
			w.logger.WithContext(ctx).Warnf("Dropping insight for unresolved campaign %q", rec.CampaignID)
			continue
		}

		day, err := time.Parse("2006-01-02", rec.DateStart)
		if err != nil {
			w.logger.WithContext(ctx).Warnf("Dropping insight with malformed date %q for campaign %q", rec.DateStart, rec.CampaignID)
			continue
		}

		facts = append(facts, models.CampaignInsight{
			AdAccountID: accountID,
			CampaignID:  campaignID,
			Day:         day,
			Spend:       rec.SpendValue(),
			Impressions: rec.ImpressionsValue(),
			Clicks:      rec.ClicksValue(),
		})
	}

	if err := w.insights.UpsertBatch(ctx, tenantID, facts); err != nil {
		return Counts{}, err
	}

	metrics.CampaignsUpserted.Add(float64(len(campaigns)))
	metrics.FactRowsWritten.Add(float64(len(facts)))

	w.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":         tenantID,
		"account_id":        accountID,
		"campaigns_touched": len(campaigns),
		"facts_written":     len(facts),
	}).Info("wrote insight records")

	return Counts{CampaignsTouched: len(campaigns), FactsWritten: len(facts)}, nil
}
