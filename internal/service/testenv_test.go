package service

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"lotterymarket/internal/config"
	"lotterymarket/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq int64

// newTestEnv 内存 sqlite + miniredis 的完整服务环境
// 数据库限制为单连接：共享内存库在最后一个连接关闭时销毁，
// 单连接也让并发用例在连接层排队，贴近串行化隔离的行为
func newTestEnv(t *testing.T) (*gorm.DB, *redis.Client, *config.Config) {
	t.Helper()

	dsn := fmt.Sprintf("file:service_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
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

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	cfg := &config.Config{
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{
				TicketIssued:  "lottery.ticket.issued",
				LotteryClosed: "lottery.closed",
			},
		},
		Business: config.BusinessConfig{
			PurchaseMaxRetry:       3,
			PurchaseRetryBackoffMs: 1,
			LotteryCloseBatch:      100,
			SessionTTLMinutes:      120,
			MaxRetryCount:          3,
		},
	}

	return db, redisClient, cfg
}

func seedAccount(t *testing.T, db *gorm.DB, userID, balance int64) *model.Account {
	t.Helper()
	account := &model.Account{UserID: userID, Balance: balance}
	require.NoError(t, db.Create(account).Error)
	return account
}

var lotterySeq int64

func seedActiveLottery(t *testing.T, db *gorm.DB, unitPrice int64, capacity int) *model.Lottery {
	t.Helper()
	lottery := &model.Lottery{
		LotteryNo: fmt.Sprintf("LOT-test-%d", atomic.AddInt64(&lotterySeq, 1)),
		SellerID:  1,
		Title:     "测试活动",
		Category:  "电子产品",
		UnitPrice: unitPrice,
		Capacity:  capacity,
		Status:    model.LotteryStatusActive,
		EndsAt:    time.Now().Add(time.Hour),
	}
	require.NoError(t, db.Create(lottery).Error)
	return lottery
}
