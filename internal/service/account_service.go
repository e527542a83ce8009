package service

import (
	"context"
	"errors"
	"fmt"

	"lotterymarket/internal/model"
	"lotterymarket/internal/repository"
	"lotterymarket/pkg/idgen"

	"gorm.io/gorm"
)

type AccountService struct {
	db              *gorm.DB
	accountRepo     *repository.AccountRepository
	transactionRepo *repository.TransactionRepository
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{
		db:              db,
		accountRepo:     repository.NewAccountRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
	}
}

func (s *AccountService) GetAccount(ctx context.Context, userID int64) (*model.Account, error) {
	return s.accountRepo.GetOrCreate(ctx, userID)
}

func (s *AccountService) GetBalance(ctx context.Context, userID int64) (int64, error) {
	account, err := s.accountRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return account.Balance, nil
}

// Recharge 充值入账（简化版，实际应对接支付渠道回调）
// 入账和流水在同一事务内写入，保证流水能对上每一分钱
func (s *AccountService) Recharge(ctx context.Context, userID int64, amount int64) error {
	if amount <= 0 {
		return errors.New("充值金额必须大于0")
	}

	account, err := s.accountRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.accountRepo.Increase(ctx, tx, userID, amount); err != nil {
			return err
		}

		transaction := &model.AccountTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			UserID:        userID,
			Amount:        amount,
			Type:          model.TransactionTypeRecharge,
			BalanceBefore: account.Balance,
			BalanceAfter:  account.Balance + amount,
			Remark:        fmt.Sprintf("充值-%d", amount),
		}
		return s.transactionRepo.Create(ctx, tx, transaction)
	})
}

// ListTransactions 查询账户流水，按时间倒序分页
func (s *AccountService) ListTransactions(ctx context.Context, userID int64, page, pageSize int) ([]*model.AccountTransaction, int64, error) {
	return s.transactionRepo.ListByUserID(ctx, userID, page, pageSize)
}
