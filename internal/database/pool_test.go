package database

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// =============================================================================
// 🧪 PoolManager 测试
// =============================================================================

func setupMockDB(t *testing.T) (sqlmock.Sqlmock, *gorm.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{})
	require.NoError(t, err)
	return mock, gormDB
}

func TestNewPoolManager_NilDB(t *testing.T) {
	_, err := NewPoolManager(nil, DefaultPoolConfig(), zap.NewNop())
	assert.Error(t, err)
}

func TestPoolManager_PingAndClose(t *testing.T) {
	mock, gormDB := setupMockDB(t)

	manager, err := NewPoolManager(gormDB, PoolConfig{MaxOpenConns: 4, MaxIdleConns: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, gormDB, manager.DB())

	require.NoError(t, manager.Ping(context.Background()))
	assert.Equal(t, 4, manager.Stats().MaxOpenConnections)

	mock.ExpectClose()
	require.NoError(t, manager.Close())
	require.NoError(t, manager.Close())
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.ErrorIs(t, manager.Ping(context.Background()), ErrPoolClosed)
}

func TestPoolManager_HealthLoopReportsStats(t *testing.T) {
	db, err := Open(DriverSQLite, ":memory:", nil)
	require.NoError(t, err)

	var reports atomic.Int32
	manager, err := NewPoolManager(db, PoolConfig{
		MaxOpenConns:        1,
		HealthCheckInterval: 10 * time.Millisecond,
		StatsReporter:       func(open, idle int) { reports.Add(1) },
	}, zap.NewNop())
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return reports.Load() > 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, manager.Close())
}

func TestDialector(t *testing.T) {
	for _, driver := range []string{"sqlite", "postgres", "mysql", "SQLite"} {
		d, err := Dialector(driver, "dsn")
		require.NoError(t, err, driver)
		assert.NotNil(t, d)
	}

	_, err := Dialector("", "dsn")
	assert.ErrorContains(t, err, "not configured")

	_, err = Dialector("oracle", "dsn")
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestOpen_SQLiteInMemory(t *testing.T) {
	db, err := Open(DriverSQLite, ":memory:", zap.NewNop())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.NoError(t, sqlDB.Ping())
	assert.NoError(t, sqlDB.Close())
}
