package service

import (
	"context"
	"testing"
	"time"

	"lotterymarket/internal/model"
	"lotterymarket/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLotteryService_CreateLottery(t *testing.T) {
	db, _, cfg := newTestEnv(t)
	svc := NewLotteryService(db, cfg)
	ctx := context.Background()

	t.Run("参数校验", func(t *testing.T) {
		base := CreateLotteryRequest{
			SellerID:  1,
			Title:     "吉他抽奖",
			Category:  "乐器",
			UnitPrice: 10,
			Capacity:  100,
			EndsAt:    time.Now().Add(time.Hour),
		}

		invalid := base
		invalid.UnitPrice = 0
		_, err := svc.CreateLottery(ctx, &invalid)
		assert.Error(t, err)

		invalid = base
		invalid.Capacity = -1
		_, err = svc.CreateLottery(ctx, &invalid)
		assert.Error(t, err)

		invalid = base
		invalid.EndsAt = time.Now().Add(-time.Hour)
		_, err = svc.CreateLottery(ctx, &invalid)
		assert.Error(t, err)

		invalid = base
		invalid.Title = ""
		_, err = svc.CreateLottery(ctx, &invalid)
		assert.Error(t, err)
	})

	t.Run("创建成功", func(t *testing.T) {
		lottery, err := svc.CreateLottery(ctx, &CreateLotteryRequest{
			SellerID:  1,
			Title:     "吉他抽奖",
			Category:  "乐器",
			UnitPrice: 10,
			Capacity:  100,
			EndsAt:    time.Now().Add(time.Hour),
		})
		require.NoError(t, err)
		assert.NotEmpty(t, lottery.LotteryNo)
		assert.Equal(t, model.LotteryStatusActive, lottery.Status)
		assert.Equal(t, 0, lottery.TicketsSold)
	})

	t.Run("从商品创建时继承标题和分类", func(t *testing.T) {
		listing := &model.Listing{
			SellerID: 1,
			Title:    "电吉他",
			Category: "乐器",
			ImageURL: "https://img.example.com/guitar.jpg",
			Price:    5000,
			Status:   model.ListingStatusActive,
		}
		require.NoError(t, db.Create(listing).Error)

		lottery, err := svc.CreateLottery(ctx, &CreateLotteryRequest{
			SellerID:  1,
			ListingID: &listing.ID,
			UnitPrice: 50,
			Capacity:  100,
			EndsAt:    time.Now().Add(time.Hour),
		})
		require.NoError(t, err)
		assert.Equal(t, "电吉他", lottery.Title)
		assert.Equal(t, "乐器", lottery.Category)
		assert.Equal(t, "https://img.example.com/guitar.jpg", lottery.ImageURL)
	})

	t.Run("不能拿他人商品开奖", func(t *testing.T) {
		listing := &model.Listing{
			SellerID: 2,
			Title:    "别人的琴",
			Category: "乐器",
			Price:    5000,
			Status:   model.ListingStatusActive,
		}
		require.NoError(t, db.Create(listing).Error)

		_, err := svc.CreateLottery(ctx, &CreateLotteryRequest{
			SellerID:  1,
			ListingID: &listing.ID,
			UnitPrice: 50,
			Capacity:  100,
			EndsAt:    time.Now().Add(time.Hour),
		})
		assert.ErrorIs(t, err, repository.ErrListingNotOwned)
	})
}

func TestLotteryService_CloseLottery(t *testing.T) {
	db, _, cfg := newTestEnv(t)
	svc := NewLotteryService(db, cfg)
	ctx := context.Background()

	lottery := seedActiveLottery(t, db, 10, 3)

	t.Run("非卖家无权关闭", func(t *testing.T) {
		err := svc.CloseLottery(ctx, lottery.ID, 999)
		assert.Error(t, err)

		after, err := svc.GetLottery(ctx, lottery.ID)
		require.NoError(t, err)
		assert.Equal(t, model.LotteryStatusActive, after.Status)
	})

	t.Run("卖家关闭成功并落库事件", func(t *testing.T) {
		require.NoError(t, svc.CloseLottery(ctx, lottery.ID, lottery.SellerID))

		after, err := svc.GetLottery(ctx, lottery.ID)
		require.NoError(t, err)
		assert.Equal(t, model.LotteryStatusClosed, after.Status)

		var outboxCount int64
		require.NoError(t, db.Model(&model.OutboxMessage{}).
			Where("message_key = ? AND topic = ?", lottery.LotteryNo, cfg.Kafka.Topic.LotteryClosed).
			Count(&outboxCount).Error)
		assert.Equal(t, int64(1), outboxCount)
	})

	t.Run("重复关闭被状态机拒绝", func(t *testing.T) {
		err := svc.CloseLottery(ctx, lottery.ID, lottery.SellerID)
		assert.ErrorIs(t, err, repository.ErrLotteryStatusInvalid)
	})
}

func TestLotteryService_CloseExpiredLotteries(t *testing.T) {
	db, _, cfg := newTestEnv(t)
	svc := NewLotteryService(db, cfg)
	ctx := context.Background()

	expired := &model.Lottery{
		LotteryNo: "LOT-expired-1",
		SellerID:  1,
		Title:     "已到期",
		Category:  "c",
		UnitPrice: 10,
		Capacity:  3,
		Status:    model.LotteryStatusActive,
		EndsAt:    time.Now().Add(-time.Minute),
	}
	require.NoError(t, db.Create(expired).Error)
	alive := seedActiveLottery(t, db, 10, 3)

	closed, err := svc.CloseExpiredLotteries(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	after, err := svc.GetLottery(ctx, expired.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LotteryStatusClosed, after.Status)

	// 未到期的活动不受影响
	untouched, err := svc.GetLottery(ctx, alive.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LotteryStatusActive, untouched.Status)

	// 再跑一轮没有可关的
	closed, err = svc.CloseExpiredLotteries(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, closed)
}

func TestLotteryService_ListUserTickets(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLotteryService(db, cfg)
	purchaseSvc := NewPurchaseService(db, rdb, cfg)
	ctx := context.Background()

	seedAccount(t, db, 10, 100)
	lottery := seedActiveLottery(t, db, 10, 5)

	for i := 0; i < 3; i++ {
		_, err := purchaseSvc.Purchase(ctx, &PurchaseRequest{UserID: 10, LotteryID: lottery.ID, ExpectedPrice: 10})
		require.NoError(t, err)
	}

	views, total, err := svc.ListUserTickets(ctx, 10, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, views, 3)
	for _, view := range views {
		assert.Equal(t, lottery.ID, view.LotteryID)
		assert.Equal(t, lottery.Title, view.LotteryTitle)
		assert.Equal(t, int64(10), view.PricePaid)
	}

	// 别人名下没有奖券
	views, total, err = svc.ListUserTickets(ctx, 999, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, views)
}

func TestLotteryService_ListLotteryTickets(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLotteryService(db, cfg)
	purchaseSvc := NewPurchaseService(db, rdb, cfg)
	ctx := context.Background()

	seedAccount(t, db, 10, 100)
	lottery := seedActiveLottery(t, db, 10, 5)

	for i := 0; i < 2; i++ {
		_, err := purchaseSvc.Purchase(ctx, &PurchaseRequest{UserID: 10, LotteryID: lottery.ID, ExpectedPrice: 10})
		require.NoError(t, err)
	}

	t.Run("卖家按奖券号升序查看", func(t *testing.T) {
		tickets, err := svc.ListLotteryTickets(ctx, lottery.ID, lottery.SellerID)
		require.NoError(t, err)
		require.Len(t, tickets, 2)
		assert.Equal(t, 1, tickets[0].TicketNumber)
		assert.Equal(t, 2, tickets[1].TicketNumber)
	})

	t.Run("非卖家无权查看", func(t *testing.T) {
		_, err := svc.ListLotteryTickets(ctx, lottery.ID, 999)
		assert.Error(t, err)
	})
}

func TestLotteryService_ListSellerLotteries(t *testing.T) {
	db, _, cfg := newTestEnv(t)
	svc := NewLotteryService(db, cfg)
	ctx := context.Background()

	seedActiveLottery(t, db, 10, 3)
	seedActiveLottery(t, db, 10, 3)

	lotteries, total, err := svc.ListSellerLotteries(ctx, 1, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, lotteries, 2)

	_, total, err = svc.ListSellerLotteries(ctx, 999, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}
