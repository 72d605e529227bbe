package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-gin-auth-service/internal/core/database"
	"go-gin-auth-service/internal/repo"
)

func TestMigrateOrClose_ReleasesPoolOnFailure(t *testing.T) {
	db, err := database.NewGorm(database.Opts{
		Driver:   "sqlite",
		DSN:      "file:" + filepath.Join(t.TempDir(), "auth.db"),
		LogLevel: "silent",
	}, zap.NewNop())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Ping())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = migrateOrClose(ctx, db, repo.NewUserRepo(db))
	require.Error(t, err)
	assert.ErrorContains(t, err, "migrate")

	assert.ErrorContains(t, sqlDB.Ping(), "closed")
}

func TestMigrateOrClose_KeepsPoolOnSuccess(t *testing.T) {
	db, err := database.NewGorm(database.Opts{
		Driver:   "sqlite",
		DSN:      "file:" + filepath.Join(t.TempDir(), "auth.db"),
		LogLevel: "silent",
	}, zap.NewNop())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrateOrClose(context.Background(), db, repo.NewUserRepo(db)))
	assert.NoError(t, sqlDB.Ping())
	assert.True(t, db.Migrator().HasTable("users"))
}
