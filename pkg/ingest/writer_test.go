package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/marigold/pkg/meta"
	"github.com/Ramsey-B/marigold/pkg/models"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

type stubCampaignRepo struct {
	upserted  []models.Campaign
	idMap     map[string]uuid.UUID
	upsertErr error
}

func (s *stubCampaignRepo) UpsertBatch(ctx context.Context, tenantID uuid.UUID, campaigns []models.Campaign) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserted = append(s.upserted, campaigns...)
	return nil
}

func (s *stubCampaignRepo) GetIDsByExternalIDs(ctx context.Context, tenantID uuid.UUID, externalIDs []string) (map[string]uuid.UUID, error) {
	return s.idMap, nil
}

func (s *stubCampaignRepo) List(ctx context.Context, tenantID uuid.UUID) ([]models.Campaign, error) {
	return nil, nil
}

type stubInsightRepo struct {
	upserted []models.CampaignInsight
}

func (s *stubInsightRepo) UpsertBatch(ctx context.Context, tenantID uuid.UUID, insights []models.CampaignInsight) error {
	s.upserted = append(s.upserted, insights...)
	return nil
}

func (s *stubInsightRepo) ListWindow(ctx context.Context, tenantID uuid.UUID, since, until time.Time) ([]models.CampaignInsight, error) {
	return nil, nil
}

func (s *stubInsightRepo) ListWindowByAccount(ctx context.Context, tenantID uuid.UUID, accountID uuid.UUID, since, until time.Time) ([]models.CampaignInsight, error) {
	return nil, nil
}

func TestWriteZeroRecords(t *testing.T) {
	campaigns := &stubCampaignRepo{}
	insights := &stubInsightRepo{}
	writer := NewWriter(campaigns, insights, getTestLogger())

	counts, err := writer.Write(context.Background(), uuid.New(), uuid.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, Counts{}, counts)
	assert.Empty(t, campaigns.upserted)
	assert.Empty(t, insights.upserted)
}

func TestWriteDeduplicatesCampaignsLastNameWins(t *testing.T) {
	c1 := uuid.New()
	campaigns := &stubCampaignRepo{idMap: map[string]uuid.UUID{"ext-1": c1}}
	insights := &stubInsightRepo{}
	writer := NewWriter(campaigns, insights, getTestLogger())

	records := []meta.InsightRecord{
		{CampaignID: "ext-1", CampaignName: "Old Name", Spend: "1.00", Impressions: "10", Clicks: "1", DateStart: "2026-03-01"},
		{CampaignID: "ext-1", CampaignName: "New Name", Spend: "2.00", Impressions: "20", Clicks: "2", DateStart: "2026-03-02"},
	}

	counts, err := writer.Write(context.Background(), uuid.New(), uuid.New(), records)
	require.NoError(t, err)

	require.Len(t, campaigns.upserted, 1)
	assert.Equal(t, "New Name", campaigns.upserted[0].Name)
	assert.Equal(t, 1, counts.CampaignsTouched)
	assert.Equal(t, 2, counts.FactsWritten)
	require.Len(t, insights.upserted, 2)
	assert.Equal(t, c1, insights.upserted[0].CampaignID)
	assert.True(t, decimal.NewFromInt(1).Equal(insights.upserted[0].Spend))
}

func TestWriteDropsUnresolvedCampaigns(t *testing.T) {
	c1 := uuid.New()
	campaigns := &stubCampaignRepo{idMap: map[string]uuid.UUID{"known": c1}}
	insights := &stubInsightRepo{}
	writer := NewWriter(campaigns, insights, getTestLogger())

	records := []meta.InsightRecord{
		{CampaignID: "known", Spend: "1.00", DateStart: "2026-03-01"},
		{CampaignID: "unknown", Spend: "2.00", DateStart: "2026-03-01"},
	}

	counts, err := writer.Write(context.Background(), uuid.New(), uuid.New(), records)
	require.NoError(t, err)

	assert.Equal(t, 2, counts.CampaignsTouched)
	assert.Equal(t, 1, counts.FactsWritten)
	require.Len(t, insights.upserted, 1)
	assert.Equal(t, c1, insights.upserted[0].CampaignID)
}

func TestWriteDropsMalformedDates(t *testing.T) {
	c1 := uuid.New()
	campaigns := &stubCampaignRepo{idMap: map[string]uuid.UUID{"ext-1": c1}}
	insights := &stubInsightRepo{}
	writer := NewWriter(campaigns, insights, getTestLogger())

	records := []meta.InsightRecord{
		{CampaignID: "ext-1", Spend: "1.00", DateStart: "2026-03-01"},
		{CampaignID: "ext-1", Spend: "2.00", DateStart: "03/02/2026"},
	}

	counts, err := writer.Write(context.Background(), uuid.New(), uuid.New(), records)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.FactsWritten)
}

func TestWriteSkipsEmptyCampaignIDs(t *testing.T) {
	campaigns := &stubCampaignRepo{idMap: map[string]uuid.UUID{}}
	insights := &stubInsightRepo{}
	writer := NewWriter(campaigns, insights, getTestLogger())

	records := []meta.InsightRecord{
		{CampaignID: "", CampaignName: "orphan", Spend: "1.00", DateStart: "2026-03-01"},
	}

	counts, err := writer.Write(context.Background(), uuid.New(), uuid.New(), records)
	require.NoError(t, err)
	assert.Empty(t, campaigns.upserted)
	assert.Equal(t, 0, counts.FactsWritten)
}

func TestWriteMalformedMeasuresCoerceToZero(t *testing.T) {
	c1 := uuid.New()
	campaigns := &stubCampaignRepo{idMap: map[string]uuid.UUID{"ext-1": c1}}
	insights := &stubInsightRepo{}
	writer := NewWriter(campaigns, insights, getTestLogger())

	records := []meta.InsightRecord{
		{CampaignID: "ext-1", Spend: "garbage", Impressions: "nope", Clicks: "-", DateStart: "2026-03-01"},
	}

	_, err := writer.Write(context.Background(), uuid.New(), uuid.New(), records)
	require.NoError(t, err)

	require.Len(t, insights.upserted, 1)
	assert.True(t, decimal.Zero.Equal(insights.upserted[0].Spend))
	assert.Equal(t, int64(0), insights.upserted[0].Impressions)
	assert.Equal(t, int64(0), insights.upserted[0].Clicks)
}

func TestWriteCampaignUpsertErrorIsTerminal(t *testing.T) {
	campaigns := &stubCampaignRepo{upsertErr: errors.New("db down")}
	insights := &stubInsightRepo{}
	writer := NewWriter(campaigns, insights, getTestLogger())

	records := []meta.InsightRecord{
		{CampaignID: "ext-1", Spend: "1.00", DateStart: "2026-03-01"},
	}

	_, err := writer.Write(context.Background(), uuid.New(), uuid.New(), records)
	require.Error(t, err)
	assert.Empty(t, insights.upserted)
}
