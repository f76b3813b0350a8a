package service

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/model"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	walletA   = "0x00000000000000000000000000000000000000aa"
	walletB   = "0x00000000000000000000000000000000000000bb"
	devWallet = "0x00000000000000000000000000000000000000de"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, model.AutoMigrate(db))
	return db
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
