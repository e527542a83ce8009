package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"lotterymarket/internal/config"
	"lotterymarket/internal/infrastructure/lock"
	"lotterymarket/internal/model"
	"lotterymarket/internal/repository"
	"lotterymarket/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// PurchaseService 购票服务，整个系统的事务核心
//
// 【关键点】购票必须保证：
//  1. 不超卖：成功购票数永远不超过 Capacity
//  2. 奖券号连续：同一活动内从 1 开始，无空洞、无重复、永不复用
//  3. 不透支：余额扣减后不为负
//  4. 无副作用失败：任何失败路径下账户、计数器、奖券表完全不变
//
// 并发策略是对 tickets_sold 和账户余额的双 CAS + 有界重试（见 tryPurchase），
// 数据库条件更新是正确性的唯一依据；按活动维度的 Redis 锁只用来给热点活动
// 降低无效冲突，拿不到锁直接返回繁忙，不影响正确性
type PurchaseService struct {
	db              *gorm.DB
	redisClient     *redis.Client
	cfg             *config.Config
	lotteryRepo     *repository.LotteryRepository
	accountRepo     *repository.AccountRepository
	ticketRepo      *repository.TicketRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
}

func NewPurchaseService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *PurchaseService {
	return &PurchaseService{
		db:              db,
		redisClient:     redisClient,
		cfg:             cfg,
		lotteryRepo:     repository.NewLotteryRepository(db),
		accountRepo:     repository.NewAccountRepository(db),
		ticketRepo:      repository.NewTicketRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
	}
}

type PurchaseRequest struct {
	UserID        int64 // 来自会话层，绝不信任请求体里的用户ID
	LotteryID     int64
	ExpectedPrice int64 // 客户端看到的票价，防止基于过期页面下单
}

type PurchaseResponse struct {
	TicketNo     string `json:"ticket_no"`
	LotteryID    int64  `json:"lottery_id"`
	TicketNumber int    `json:"ticket_number"`
	PricePaid    int64  `json:"price_paid"`
}

// Purchase 购买一张奖券
//
// 同一个用户连续提交两次会产生两张奖券、两笔扣款——这是设计决定：
// 每次调用都是独立的购买意图，去重属于网关层的幂等键机制，不在这里做
func (s *PurchaseService) Purchase(ctx context.Context, req *PurchaseRequest) (*PurchaseResponse, error) {
	// 按活动维度加分布式锁，热点活动的购票在入口处排队，
	// 避免大量事务涌进数据库互相回滚
	purchaseLock := lock.NewPurchaseLock(s.redisClient, req.LotteryID, fmt.Sprintf("%d", idgen.NextID()))
	if err := purchaseLock.Lock(ctx, 50*time.Millisecond, 40); err != nil {
		return nil, ErrStoreUnavailable
	}
	defer purchaseLock.Unlock(ctx)

	maxRetry := s.cfg.Business.PurchaseMaxRetry
	if maxRetry <= 0 {
		maxRetry = 3
	}
	backoff := time.Duration(s.cfg.Business.PurchaseRetryBackoffMs) * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < maxRetry; attempt++ {
		if attempt > 0 && backoff > 0 {
			select {
			case <-ctx.Done():
				return nil, ErrStoreUnavailable
			case <-time.After(backoff):
			}
		}

		resp, err := s.tryPurchase(ctx, req)
		if err == nil {
			return resp, nil
		}

		// 并发冲突：重读最新状态再试一轮，结果未定之前不向外暴露
		if errors.Is(err, repository.ErrAllocateConflict) || errors.Is(err, repository.ErrOptimisticLock) {
			lastErr = err
			continue
		}

		return nil, err
	}

	log.Printf("[PurchaseService] 重试耗尽: lotteryID=%d, userID=%d, err=%v", req.LotteryID, req.UserID, lastErr)
	return nil, ErrStoreUnavailable
}

// TicketDetail 奖券详情，带上购票时的扣款流水
type TicketDetail struct {
	Ticket      *model.Ticket             `json:"ticket"`
	Transaction *model.AccountTransaction `json:"transaction"`
}

// GetTicketDetail 查询奖券详情
// 只有持有者本人可见；他人的奖券编号一律按不存在处理，不泄露存在性
func (s *PurchaseService) GetTicketDetail(ctx context.Context, ticketNo string, userID int64) (*TicketDetail, error) {
	ticket, err := s.ticketRepo.GetByTicketNo(ctx, ticketNo)
	if err != nil {
		return nil, ErrStoreUnavailable
	}
	if ticket == nil || ticket.OwnerID != userID {
		return nil, ErrTicketNotFound
	}

	transaction, err := s.transactionRepo.GetByTicketNo(ctx, ticketNo)
	if err != nil {
		return nil, ErrStoreUnavailable
	}

	return &TicketDetail{
		Ticket:      ticket,
		Transaction: transaction,
	}, nil
}

// tryPurchase 单轮购票：读取-校验-原子提交
//
// 校验顺序与失败分类：
//  1. 活动不存在        -> ErrLotteryNotFound
//  2. 已关闭 / 已售罄   -> ErrLotteryClosed / ErrSoldOut
//  3. 票价与预期不符    -> ErrPriceChanged
//  4. 账户不存在        -> ErrAccountNotFound
//  5. 余额不足          -> ErrInsufficientBalance
//
// 校验通过后在一个数据库事务内完成：售票计数 CAS、余额扣减 CAS、
// 奖券落库、流水落库、事件落库。任何一步失败整个事务回滚，
// CAS 冲突以 ErrAllocateConflict / ErrOptimisticLock 抛给上层重试
func (s *PurchaseService) tryPurchase(ctx context.Context, req *PurchaseRequest) (*PurchaseResponse, error) {
	lottery, err := s.lotteryRepo.GetByID(ctx, req.LotteryID)
	if err != nil {
		if errors.Is(err, repository.ErrLotteryNotFound) {
			return nil, ErrLotteryNotFound
		}
		return nil, ErrStoreUnavailable
	}

	if lottery.Status == model.LotteryStatusClosed {
		return nil, ErrLotteryClosed
	}
	if lottery.Status == model.LotteryStatusSoldOut || lottery.TicketsSold >= lottery.Capacity {
		return nil, ErrSoldOut
	}
	if req.ExpectedPrice != lottery.UnitPrice {
		return nil, ErrPriceChanged
	}

	account, err := s.accountRepo.GetByUserID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, ErrStoreUnavailable
	}

	if account.Balance < lottery.UnitPrice {
		return nil, ErrInsufficientBalance
	}

	// 奖券号 = 本次观察到的已售数 + 1
	// Allocate 的 CAS 守卫保证没有第二个事务基于同一个已售数发出同号奖券
	ticketNumber := lottery.TicketsSold + 1
	ticketNo := idgen.GenerateTicketNo()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.lotteryRepo.Allocate(ctx, tx, lottery.ID, lottery.TicketsSold, lottery.Capacity); err != nil {
			return err
		}

		if err := s.accountRepo.Deduct(ctx, tx, req.UserID, lottery.UnitPrice, account.Version); err != nil {
			return err
		}

		ticket := &model.Ticket{
			TicketNo:     ticketNo,
			LotteryID:    lottery.ID,
			OwnerID:      req.UserID,
			TicketNumber: ticketNumber,
			PricePaid:    lottery.UnitPrice,
		}
		if err := s.ticketRepo.Create(ctx, tx, ticket); err != nil {
			return fmt.Errorf("奖券落库失败: %w", err)
		}

		transaction := &model.AccountTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			UserID:        req.UserID,
			TicketNo:      ticketNo,
			Amount:        -lottery.UnitPrice,
			Type:          model.TransactionTypePurchase,
			BalanceBefore: account.Balance,
			BalanceAfter:  account.Balance - lottery.UnitPrice,
			Remark:        fmt.Sprintf("购票-%s-第%d号", lottery.LotteryNo, ticketNumber),
		}
		if err := s.transactionRepo.Create(ctx, tx, transaction); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		msgPayload := map[string]interface{}{
			"ticket_no":     ticketNo,
			"lottery_no":    lottery.LotteryNo,
			"lottery_id":    lottery.ID,
			"user_id":       req.UserID,
			"ticket_number": ticketNumber,
			"price_paid":    lottery.UnitPrice,
			"issued_at":     time.Now().Format(time.RFC3339),
		}
		payloadBytes, _ := json.Marshal(msgPayload)

		outboxMsg := &model.OutboxMessage{
			MessageKey: ticketNo,
			Topic:      s.cfg.Kafka.Topic.TicketIssued,
			Payload:    string(payloadBytes),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
			return fmt.Errorf("写入消息失败: %w", err)
		}

		return nil
	})

	if err != nil {
		switch {
		case errors.Is(err, repository.ErrLotterySoldOut):
			return nil, ErrSoldOut
		case errors.Is(err, repository.ErrLotteryClosed):
			return nil, ErrLotteryClosed
		case errors.Is(err, repository.ErrBalanceNotEnough):
			return nil, ErrInsufficientBalance
		case errors.Is(err, repository.ErrAllocateConflict), errors.Is(err, repository.ErrOptimisticLock):
			return nil, err
		default:
			log.Printf("[PurchaseService] 购票事务失败: lotteryID=%d, userID=%d, err=%v", req.LotteryID, req.UserID, err)
			return nil, ErrStoreUnavailable
		}
	}

	log.Printf("[PurchaseService] 购票成功: ticketNo=%s, lotteryID=%d, userID=%d, number=%d, price=%d",
		ticketNo, lottery.ID, req.UserID, ticketNumber, lottery.UnitPrice)

	return &PurchaseResponse{
		TicketNo:     ticketNo,
		LotteryID:    lottery.ID,
		TicketNumber: ticketNumber,
		PricePaid:    lottery.UnitPrice,
	}, nil
}
