//go:build integration

package services

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"examprep/internal/config"
	"examprep/internal/database"
	"examprep/internal/observability"

	"github.com/stretchr/testify/require"
)

// SharedTestDBSetup provides a clean, isolated database for each integration test.
// Requires TEST_DATABASE_URL to point at a disposable postgres database.
func SharedTestDBSetup(t *testing.T) *sql.DB {
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	dbManager := database.NewManager(logger)

	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Fatal("TEST_DATABASE_URL environment variable must be set for integration tests")
	}

	db, err := dbManager.InitDB(databaseURL)
	require.NoError(t, err)

	CleanupTestDatabase(t, db)
	return db
}

// CleanupTestDatabase truncates all application tables so each test starts
// from an empty database. Seeded reference data (roles) is left in place.
func CleanupTestDatabase(t *testing.T, db *sql.DB) {
	ctx := context.Background()
	cleanupQueries := []string{
		"TRUNCATE TABLE sent_notifications CASCADE",
		"TRUNCATE TABLE ingestion_jobs CASCADE",
		"TRUNCATE TABLE phase_results CASCADE",
		"TRUNCATE TABLE wrong_answers CASCADE",
		"TRUNCATE TABLE daily_study_logs CASCADE",
		"TRUNCATE TABLE study_plans CASCADE",
		"TRUNCATE TABLE questions CASCADE",
		"TRUNCATE TABLE user_roles CASCADE",
		"TRUNCATE TABLE users CASCADE",
	}
	for _, query := range cleanupQueries {
		_, err := db.ExecContext(ctx, query)
		require.NoError(t, err, "cleanup query failed: %s", query)
	}
}
