package queue_test

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/marigold/pkg/database"
	"github.com/Ramsey-B/marigold/pkg/models"
	"github.com/Ramsey-B/marigold/pkg/queue"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func getTestDB(t *testing.T) database.DB {
	// Use environment variables or defaults for test DB
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

func createTestTenant(t *testing.T, db database.DB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.ExecContext(context.Background(),
		"INSERT INTO tenants (id, name, created_at, updated_at) VALUES ($1, $2, now(), now())",
		id, "queue-test-tenant")
	require.NoError(t, err)
	return id
}

func TestJobQueue_Lifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	logger := getTestLogger()
	q := queue.NewJobQueue(db, logger)

	tenantID := createTestTenant(t, db)
	ctx := context.Background()

	payload := models.SyncAccountPayload{TargetAccountID: uuid.New(), LookbackDays: 7}

	// Enqueue
	jobID, err := q.Enqueue(ctx, tenantID, models.JobTypeSyncAccount, payload)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, jobID)

	// Get shows a pending job with the typed payload intact
	job, err := q.Get(ctx, tenantID, jobID)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, payload.TargetAccountID, job.Payload.GetValue().TargetAccountID)
	assert.Equal(t, 7, job.Payload.GetValue().LookbackDays)
	assert.Nil(t, job.ClaimedAt)
	assert.Nil(t, job.FinishedAt)

	// Claim flips to processing
	claimed, err := q.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, jobID, claimed.ID)
	assert.Equal(t, models.JobStatusProcessing, claimed.Status)
	assert.NotNil(t, claimed.ClaimedAt)

	// Complete writes the result and the payload stays untouched
	result := models.SyncResult{CampaignsTouched: 3, FactsWritten: 21}
	require.NoError(t, q.Complete(ctx, jobID, result))

	done, err := q.Get(ctx, tenantID, jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusDone, done.Status)
	require.NotNil(t, done.Result.GetValue())
	assert.Equal(t, 3, done.Result.GetValue().CampaignsTouched)
	assert.Equal(t, 21, done.Result.GetValue().FactsWritten)
	assert.Equal(t, payload.TargetAccountID, done.Payload.GetValue().TargetAccountID)
	assert.Nil(t, done.LastError)
	assert.NotNil(t, done.FinishedAt)

	// Completing again is rejected; the job is no longer processing
	err = q.Complete(ctx, jobID, result)
	require.Error(t, err)
}

func TestJobQueue_FailRecordsError(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	q := queue.NewJobQueue(db, getTestLogger())

	tenantID := createTestTenant(t, db)
	ctx := context.Background()

	jobID, err := q.Enqueue(ctx, tenantID, models.JobTypeSyncAccount, models.SyncAccountPayload{TargetAccountID: uuid.New()})
	require.NoError(t, err)

	claimed, err := q.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	require.NoError(t, q.Fail(ctx, jobID, "graph api error (status 401): bad token"))

	job, err := q.Get(ctx, tenantID, jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusError, job.Status)
	require.NotNil(t, job.LastError)
	assert.Equal(t, "graph api error (status 401): bad token", *job.LastError)
	assert.Nil(t, job.Result.GetValue())
}

func TestJobQueue_ClaimEmptyQueue(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	q := queue.NewJobQueue(db, getTestLogger())

	// Drain anything other tests left behind
	for {
		job, err := q.Claim(context.Background())
		require.NoError(t, err)
		if job == nil {
			break
		}
		require.NoError(t, q.Fail(context.Background(), job.ID, "drained by test"))
	}

	job, err := q.Claim(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestJobQueue_ClaimOrdersOldestFirst(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	q := queue.NewJobQueue(db, getTestLogger())

	tenantID := createTestTenant(t, db)
	ctx := context.Background()

	first, err := q.Enqueue(ctx, tenantID, models.JobTypeSyncAccount, models.SyncAccountPayload{TargetAccountID: uuid.New()})
	require.NoError(t, err)
	second, err := q.Enqueue(ctx, tenantID, models.JobTypeSyncAccount, models.SyncAccountPayload{TargetAccountID: uuid.New()})
	require.NoError(t, err)

	claimed1, err := q.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed1)
	assert.Equal(t, first, claimed1.ID)

	claimed2, err := q.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed2)
	assert.Equal(t, second, claimed2.ID)

	require.NoError(t, q.Fail(ctx, claimed1.ID, "cleanup"))
	require.NoError(t, q.Fail(ctx, claimed2.ID, "cleanup"))
}

func TestJobQueue_ConcurrentClaimMutualExclusion(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	q := queue.NewJobQueue(db, getTestLogger())

	tenantID := createTestTenant(t, db)
	ctx := context.Background()

	const jobCount = 5
	for i := 0; i < jobCount; i++ {
		_, err := q.Enqueue(ctx, tenantID, models.JobTypeSyncAccount, models.SyncAccountPayload{TargetAccountID: uuid.New()})
		require.NoError(t, err)
	}

	const claimants = 10
	var mu sync.Mutex
	seen := make(map[uuid.UUID]int)

	var wg sync.WaitGroup
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				job, err := q.Claim(ctx)
				if err != nil || job == nil {
					return
				}
				mu.Lock()
				seen[job.ID]++
				mu.Unlock()
				_ = q.Fail(ctx, job.ID, "claimed by concurrency test")
			}
		}()
	}
	wg.Wait()

	// Every job claimed exactly once.
	assert.Len(t, seen, jobCount)
	for id, count := range seen {
		assert.Equalf(t, 1, count, "job %s claimed %d times", id, count)
	}
}

func TestJobQueue_GetIsTenantScoped(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	q := queue.NewJobQueue(db, getTestLogger())

	tenantID := createTestTenant(t, db)
	otherTenant := createTestTenant(t, db)
	ctx := context.Background()

	jobID, err := q.Enqueue(ctx, tenantID, models.JobTypeSyncAccount, models.SyncAccountPayload{TargetAccountID: uuid.New()})
	require.NoError(t, err)

	job, err := q.Get(ctx, otherTenant, jobID)
	require.NoError(t, err)
	assert.Nil(t, job)

	claimed, err := q.Claim(ctx)
	require.NoError(t, err)
	if claimed != nil {
		_ = q.Fail(ctx, claimed.ID, "cleanup")
	}
}
