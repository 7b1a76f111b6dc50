// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/config"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/database"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB returns a migrated SQLite database living in the test's temp dir.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// Config returns a configuration suitable for tests: SQLite, a fixed JWT
// secret and no AI providers.
func Config() *config.Config {
	return &config.Config{
		DBDriver:              "sqlite",
		JWTSecret:             "test-secret-0123456789abcdef0123456789",
		JWTAccessExpiry:       15 * time.Minute,
		JWTRefreshExpiry:      7 * 24 * time.Hour,
		AdminToken:            "admin-token",
		RevenueCatWebhookAuth: "Bearer rc-secret",
		FreeDailyConfessions:  2,
		DefaultLanguage:       "Русский",
		CORSOrigins:           "*",
		AppEnv:                "test",
	}
}
