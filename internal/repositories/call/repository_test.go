package call

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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func getTestDB(t *testing.T) database.DB {
	t.Helper()

	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		t.Skip("Skipping integration test: DB_HOST not set")
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
		dbName = "fern"
	}

	dsn := "host=" + dbHost + " user=" + dbUser + " password=" + dbPass + " dbname=" + dbName + " sslmode=disable"
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err, "Failed to connect to test database")

	return database.NewDatabaseInstance(db, getTestLogger())
}

func strPtr(s string) *string { return &s }

func testCall(externalID string) *models.Call {
	return &models.Call{
		ExternalID:      externalID,
		Direction:       models.DirectionInbound,
		CallerNumber:    strPtr("+15551230001"),
		CallerName:      strPtr("Dana"),
		StartTime:       time.Now().Add(-10 * time.Minute).UTC().Truncate(time.Second),
		DurationSeconds: 240,
		RecordingURL:    strPtr("https://cdn.example.com/rec.mp3"),
		ReceivedAt:      time.Now().UTC().Truncate(time.Second),
	}
}

func TestIntegrationCallRepository_CreateIfAbsent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	repo := NewRepository(db, getTestLogger())
	ctx := context.Background()

	externalID := "it-" + uuid.NewString()

	created, wasCreated, err := repo.CreateIfAbsent(ctx, testCall(externalID))
	require.NoError(t, err)
	require.True(t, wasCreated)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, externalID, created.ExternalID)

	// Second delivery of the same call must return the existing row untouched.
	duplicate := testCall(externalID)
	duplicate.CallerName = strPtr("Somebody Else")
	existing, wasCreated, err := repo.CreateIfAbsent(ctx, duplicate)
	require.NoError(t, err)
	assert.False(t, wasCreated)
	assert.Equal(t, created.ID, existing.ID)
	require.NotNil(t, existing.CallerName)
	assert.Equal(t, "Dana", *existing.CallerName)
}

func TestIntegrationCallRepository_GetAndList(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	repo := NewRepository(db, getTestLogger())
	ctx := context.Background()

	externalID := "it-" + uuid.NewString()
	created, _, err := repo.CreateIfAbsent(ctx, testCall(externalID))
	require.NoError(t, err)

	fetched, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, created.ExternalID, fetched.ExternalID)

	missing, err := repo.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing, "unknown id should be nil, not an error")

	direction := models.DirectionInbound
	calls, total, err := repo.List(ctx, models.ListCallsFilter{
		Direction: &direction,
		Page:      1,
		PageSize:  50,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, 1)
	assert.NotEmpty(t, calls)
}
