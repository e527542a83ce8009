package service

import (
	"context"
	"testing"

	"lotterymarket/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountService_Recharge(t *testing.T) {
	db, _, _ := newTestEnv(t)
	svc := NewAccountService(db)
	ctx := context.Background()

	t.Run("金额非法", func(t *testing.T) {
		assert.Error(t, svc.Recharge(ctx, 1, 0))
		assert.Error(t, svc.Recharge(ctx, 1, -10))
	})

	t.Run("首次充值自动开户", func(t *testing.T) {
		require.NoError(t, svc.Recharge(ctx, 1, 100))

		balance, err := svc.GetBalance(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(100), balance)

		// 流水记录交易前后余额
		var trans model.AccountTransaction
		require.NoError(t, db.Where("user_id = ?", 1).First(&trans).Error)
		assert.Equal(t, model.TransactionTypeRecharge, trans.Type)
		assert.Equal(t, int64(100), trans.Amount)
		assert.Equal(t, int64(0), trans.BalanceBefore)
		assert.Equal(t, int64(100), trans.BalanceAfter)
	})

	t.Run("多次充值累加", func(t *testing.T) {
		require.NoError(t, svc.Recharge(ctx, 1, 50))

		balance, err := svc.GetBalance(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(150), balance)

		var count int64
		require.NoError(t, db.Model(&model.AccountTransaction{}).Where("user_id = ?", 1).Count(&count).Error)
		assert.Equal(t, int64(2), count)
	})
}

func TestAccountService_GetBalance(t *testing.T) {
	db, _, _ := newTestEnv(t)
	svc := NewAccountService(db)
	ctx := context.Background()

	// 未开户用户余额视为 0，不报错
	balance, err := svc.GetBalance(ctx, 999)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestAccountService_ListTransactions(t *testing.T) {
	db, _, _ := newTestEnv(t)
	svc := NewAccountService(db)
	ctx := context.Background()

	require.NoError(t, svc.Recharge(ctx, 1, 10))
	require.NoError(t, svc.Recharge(ctx, 1, 20))
	require.NoError(t, svc.Recharge(ctx, 2, 30))

	transactions, total, err := svc.ListTransactions(ctx, 1, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, transactions, 2)
	for _, trans := range transactions {
		assert.Equal(t, int64(1), trans.UserID)
	}
}
