package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/marigold/pkg/ingest"
	"github.com/Ramsey-B/marigold/pkg/meta"
	"github.com/Ramsey-B/marigold/pkg/models"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

type stubAccountRepo struct {
	account      *models.AdAccount
	lastSyncedAt *time.Time
	syncedID     uuid.UUID
	setErr       error
}

func (s *stubAccountRepo) UpsertBatch(ctx context.Context, tenantID uuid.UUID, accounts []models.AdAccount) error {
	return nil
}

func (s *stubAccountRepo) GetByID(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*models.AdAccount, error) {
	return s.account, nil
}

func (s *stubAccountRepo) List(ctx context.Context, tenantID uuid.UUID) ([]models.AdAccount, error) {
	return nil, nil
}

func (s *stubAccountRepo) ListSyncedBefore(ctx context.Context, cutoff time.Time) ([]models.AdAccount, error) {
	return nil, nil
}

func (s *stubAccountRepo) SetLastSyncedAt(ctx context.Context, tenantID uuid.UUID, id uuid.UUID, syncedAt time.Time) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.syncedID = id
	s.lastSyncedAt = &syncedAt
	return nil
}

type stubConnectionRepo struct {
	conn *models.PlatformConnection
}

func (s *stubConnectionRepo) Upsert(ctx context.Context, conn *models.PlatformConnection) (*models.PlatformConnection, error) {
	return conn, nil
}

func (s *stubConnectionRepo) GetByTenantID(ctx context.Context, tenantID uuid.UUID) (*models.PlatformConnection, error) {
	return s.conn, nil
}

func (s *stubConnectionRepo) Delete(ctx context.Context, tenantID uuid.UUID) error {
	return nil
}

type stubFetcher struct {
	records []meta.InsightRecord
	err     error

	gotToken      string
	gotExternalID string
	gotSince      time.Time
	gotUntil      time.Time
}

func (s *stubFetcher) FetchInsights(ctx context.Context, accessToken, accountExternalID string, since, until time.Time) ([]meta.InsightRecord, error) {
	s.gotToken = accessToken
	s.gotExternalID = accountExternalID
	s.gotSince = since
	s.gotUntil = until
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

type stubWriter struct {
	counts ingest.Counts
	err    error
	got    []meta.InsightRecord
}

func (s *stubWriter) Write(ctx context.Context, tenantID, accountID uuid.UUID, records []meta.InsightRecord) (ingest.Counts, error) {
	s.got = records
	if s.err != nil {
		return ingest.Counts{}, s.err
	}
	return s.counts, nil
}

func testAccount(tenantID uuid.UUID) *models.AdAccount {
	return &models.AdAccount{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Platform:   models.PlatformMeta,
		ExternalID: "act_123",
		Name:       "Main Account",
	}
}

func testConnection(tenantID uuid.UUID) *models.PlatformConnection {
	return &models.PlatformConnection{
		ID:          uuid.New(),
		TenantID:    tenantID,
		AccessToken: "secret-token",
	}
}

func TestSyncAccountSuccess(t *testing.T) {
	tenantID := uuid.New()
	accounts := &stubAccountRepo{account: testAccount(tenantID)}
	connections := &stubConnectionRepo{conn: testConnection(tenantID)}
	fetcher := &stubFetcher{records: []meta.InsightRecord{{CampaignID: "c1", DateStart: "2026-03-01"}}}
	writer := &stubWriter{counts: ingest.Counts{CampaignsTouched: 1, FactsWritten: 3}}

	o := NewOrchestrator(accounts, connections, fetcher, writer, Config{}, getTestLogger())
	o.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }

	result, err := o.SyncAccount(context.Background(), tenantID, models.SyncAccountPayload{
		TargetAccountID: accounts.account.ID,
		LookbackDays:    7,
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, 1, result.CampaignsTouched)
	assert.Equal(t, 3, result.FactsWritten)
	assert.Equal(t, "secret-token", fetcher.gotToken)
	assert.Equal(t, "act_123", fetcher.gotExternalID)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), fetcher.gotSince)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), fetcher.gotUntil)
	assert.Len(t, writer.got, 1)
	require.NotNil(t, accounts.lastSyncedAt)
	assert.Equal(t, accounts.account.ID, accounts.syncedID)
}

func TestSyncAccountClampsLookbackDays(t *testing.T) {
	tenantID := uuid.New()
	accounts := &stubAccountRepo{account: testAccount(tenantID)}
	connections := &stubConnectionRepo{conn: testConnection(tenantID)}
	fetcher := &stubFetcher{}
	writer := &stubWriter{}

	o := NewOrchestrator(accounts, connections, fetcher, writer, Config{}, getTestLogger())
	o.now = func() time.Time { return time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC) }

	_, err := o.SyncAccount(context.Background(), tenantID, models.SyncAccountPayload{
		TargetAccountID: accounts.account.ID,
		LookbackDays:    500,
	})
	require.NoError(t, err)

	// Clamped to 90 days inclusive.
	assert.Equal(t, time.Date(2025, 12, 11, 0, 0, 0, 0, time.UTC), fetcher.gotSince)
}

func TestSyncAccountDefaultsLookbackDays(t *testing.T) {
	tenantID := uuid.New()
	accounts := &stubAccountRepo{account: testAccount(tenantID)}
	connections := &stubConnectionRepo{conn: testConnection(tenantID)}
	fetcher := &stubFetcher{}
	writer := &stubWriter{}

	o := NewOrchestrator(accounts, connections, fetcher, writer, Config{}, getTestLogger())
	o.now = func() time.Time { return time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC) }

	_, err := o.SyncAccount(context.Background(), tenantID, models.SyncAccountPayload{
		TargetAccountID: accounts.account.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), fetcher.gotSince)
}

func TestSyncAccountMissingAccount(t *testing.T) {
	tenantID := uuid.New()
	accounts := &stubAccountRepo{}
	connections := &stubConnectionRepo{conn: testConnection(tenantID)}

	o := NewOrchestrator(accounts, connections, &stubFetcher{}, &stubWriter{}, Config{}, getTestLogger())

	result, err := o.SyncAccount(context.Background(), tenantID, models.SyncAccountPayload{
		TargetAccountID: uuid.New(),
	})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestSyncAccountMissingConnection(t *testing.T) {
	tenantID := uuid.New()
	accounts := &stubAccountRepo{account: testAccount(tenantID)}
	connections := &stubConnectionRepo{}

	o := NewOrchestrator(accounts, connections, &stubFetcher{}, &stubWriter{}, Config{}, getTestLogger())

	result, err := o.SyncAccount(context.Background(), tenantID, models.SyncAccountPayload{
		TargetAccountID: accounts.account.ID,
	})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "no platform connection")
}

func TestSyncAccountFetchErrorIsTerminal(t *testing.T) {
	tenantID := uuid.New()
	accounts := &stubAccountRepo{account: testAccount(tenantID)}
	connections := &stubConnectionRepo{conn: testConnection(tenantID)}
	fetcher := &stubFetcher{err: errors.New("graph api error (status 400): bad token")}
	writer := &stubWriter{}

	o := NewOrchestrator(accounts, connections, fetcher, writer, Config{}, getTestLogger())

	_, err := o.SyncAccount(context.Background(), tenantID, models.SyncAccountPayload{
		TargetAccountID: accounts.account.ID,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insights fetch failed")
	assert.Contains(t, err.Error(), "bad token")
	assert.Nil(t, writer.got)
	assert.Nil(t, accounts.lastSyncedAt)
}

func TestSyncAccountWriteErrorIsTerminal(t *testing.T) {
	tenantID := uuid.New()
	accounts := &stubAccountRepo{account: testAccount(tenantID)}
	connections := &stubConnectionRepo{conn: testConnection(tenantID)}
	writer := &stubWriter{err: errors.New("db down")}

	o := NewOrchestrator(accounts, connections, &stubFetcher{}, writer, Config{}, getTestLogger())

	_, err := o.SyncAccount(context.Background(), tenantID, models.SyncAccountPayload{
		TargetAccountID: accounts.account.ID,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insights write failed")
	assert.Nil(t, accounts.lastSyncedAt)
}

func TestSyncAccountZeroRecordsSucceeds(t *testing.T) {
	tenantID := uuid.New()
	accounts := &stubAccountRepo{account: testAccount(tenantID)}
	connections := &stubConnectionRepo{conn: testConnection(tenantID)}
	writer := &stubWriter{}

	o := NewOrchestrator(accounts, connections, &stubFetcher{}, writer, Config{}, getTestLogger())

	result, err := o.SyncAccount(context.Background(), tenantID, models.SyncAccountPayload{
		TargetAccountID: accounts.account.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.CampaignsTouched)
	assert.Equal(t, 0, result.FactsWritten)
	require.NotNil(t, accounts.lastSyncedAt)
}

func TestSyncAccountLastSyncedFailureIsNotTerminal(t *testing.T) {
	tenantID := uuid.New()
	accounts := &stubAccountRepo{account: testAccount(tenantID), setErr: errors.New("db down")}
	connections := &stubConnectionRepo{conn: testConnection(tenantID)}

	o := NewOrchestrator(accounts, connections, &stubFetcher{}, &stubWriter{}, Config{}, getTestLogger())

	result, err := o.SyncAccount(context.Background(), tenantID, models.SyncAccountPayload{
		TargetAccountID: accounts.account.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
}
