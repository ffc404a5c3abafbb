package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/novanet-dev/nova-incentive-server/dal"
	"github.com/stretchr/testify/require"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testTotalSupply int64 = 1_000_000

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(dal.AllTables()...))
	return db
}

func newTestProgram(t *testing.T, db *gorm.DB) {
	t.Helper()
	ctx := context.Background()

	_, err := GetMetaInfoService().Init(ctx, db, testTotalSupply)
	require.NoError(t, err)

	cfg := newTestConfig()
	require.NoError(t, GetPoolService().InitPools(ctx, db, cfg, testTotalSupply))
}
