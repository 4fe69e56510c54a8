package insight_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/marigold/internal/repositories/insight"
	"github.com/Ramsey-B/marigold/pkg/database"
	"github.com/Ramsey-B/marigold/pkg/models"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func getTestDB(t *testing.T) database.DB {
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}
	dbUser := os.Getenv("DB_USER_NAME")
	if dbUser == "" {
		dbUser = "user"
	}
	dbPass := os.Getenv("DB_PASSWORD")
	if dbPass == "" {
		dbPass = "password"
	}
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "marigold"
	}

	dsn := "host=" + dbHost + " user=" + dbUser + " password=" + dbPass + " dbname=" + dbName + " sslmode=disable"
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err, "Failed to connect to test database")

	return database.NewDatabaseInstance(db, getTestLogger())
}

type fixture struct {
	tenantID   uuid.UUID
	accountID  uuid.UUID
	campaignID uuid.UUID
}

func createFixture(t *testing.T, db database.DB) fixture {
	t.Helper()
	ctx := context.Background()

	f := fixture{
		tenantID:   uuid.New(),
		accountID:  uuid.New(),
		campaignID: uuid.New(),
	}

	_, err := db.ExecContext(ctx,
		"INSERT INTO tenants (id, name, created_at, updated_at) VALUES ($1, $2, now(), now())",
		f.tenantID, "insight-test-tenant")
	require.NoError(t, err)

	_, err = db.ExecContext(ctx,
		`INSERT INTO ad_accounts (id, tenant_id, platform, external_id, name, status, created_at, updated_at)
		 VALUES ($1, $2, 'meta', $3, 'Test Account', 'ACTIVE', now(), now())`,
		f.accountID, f.tenantID, "act_"+uuid.NewString())
	require.NoError(t, err)

	_, err = db.ExecContext(ctx,
		`INSERT INTO campaigns (id, tenant_id, external_id, name, created_at, updated_at)
		 VALUES ($1, $2, $3, 'Test Campaign', now(), now())`,
		f.campaignID, f.tenantID, uuid.NewString())
	require.NoError(t, err)

	return f
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestInsightRepository_UpsertIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	repo := insight.NewRepository(db, getTestLogger())
	f := createFixture(t, db)
	ctx := context.Background()

	row := models.CampaignInsight{
		AdAccountID: f.accountID,
		CampaignID:  f.campaignID,
		Day:         day("2026-03-01"),
		Spend:       decimal.NewFromFloat(10.50),
		Impressions: 1000,
		Clicks:      50,
	}

	require.NoError(t, repo.UpsertBatch(ctx, f.tenantID, []models.CampaignInsight{row}))

	// Re-sync the same day with new measures; the row is replaced, not duplicated.
	row.Spend = decimal.NewFromFloat(12.00)
	row.Impressions = 1200
	row.Clicks = 60
	require.NoError(t, repo.UpsertBatch(ctx, f.tenantID, []models.CampaignInsight{row}))

	rows, err := repo.ListWindow(ctx, f.tenantID, day("2026-03-01"), day("2026-03-01"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, decimal.NewFromFloat(12.00).Equal(rows[0].Spend))
	assert.Equal(t, int64(1200), rows[0].Impressions)
	assert.Equal(t, int64(60), rows[0].Clicks)
}

func TestInsightRepository_ListWindowIsInclusive(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	repo := insight.NewRepository(db, getTestLogger())
	f := createFixture(t, db)
	ctx := context.Background()

	var rows []models.CampaignInsight
	for _, d := range []string{"2026-03-01", "2026-03-02", "2026-03-03", "2026-03-04"} {
		rows = append(rows, models.CampaignInsight{
			AdAccountID: f.accountID,
			CampaignID:  f.campaignID,
			Day:         day(d),
			Spend:       decimal.NewFromInt(1),
		})
	}
	require.NoError(t, repo.UpsertBatch(ctx, f.tenantID, rows))

	got, err := repo.ListWindow(ctx, f.tenantID, day("2026-03-02"), day("2026-03-03"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, day("2026-03-02"), got[0].Day.UTC())
	assert.Equal(t, day("2026-03-03"), got[1].Day.UTC())
}

func TestInsightRepository_ListWindowByAccount(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	repo := insight.NewRepository(db, getTestLogger())
	f := createFixture(t, db)
	other := createFixture(t, db)
	ctx := context.Background()

	require.NoError(t, repo.UpsertBatch(ctx, f.tenantID, []models.CampaignInsight{{
		AdAccountID: f.accountID,
		CampaignID:  f.campaignID,
		Day:         day("2026-03-01"),
		Spend:       decimal.NewFromInt(5),
	}}))
	require.NoError(t, repo.UpsertBatch(ctx, other.tenantID, []models.CampaignInsight{{
		AdAccountID: other.accountID,
		CampaignID:  other.campaignID,
		Day:         day("2026-03-01"),
		Spend:       decimal.NewFromInt(9),
	}}))

	got, err := repo.ListWindowByAccount(ctx, f.tenantID, f.accountID, day("2026-03-01"), day("2026-03-01"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, f.accountID, got[0].AdAccountID)
	assert.True(t, decimal.NewFromInt(5).Equal(got[0].Spend))

	// Other tenants' rows are invisible.
	got, err = repo.ListWindow(ctx, f.tenantID, day("2026-03-01"), day("2026-03-01"))
	require.NoError(t, err)
	require.Len(t, got, 1)
}
