package repository

import (
	"fmt"
	"sync/atomic"
	"testing"

	"lotterymarket/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq int64

// newTestDB 每个测试一个独立的内存库
// 连接池限制为单连接：共享内存库在最后一个连接关闭时销毁，
// 单连接也让并发用例在连接层排队，贴近串行化隔离的行为
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:repo_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.Account{},
		&model.Lottery{},
		&model.Ticket{},
		&model.AccountTransaction{},
		&model.Listing{},
		&model.OutboxMessage{},
	))

	return db
}
