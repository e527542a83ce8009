package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"lotterymarket/internal/config"
	"lotterymarket/internal/model"
	"lotterymarket/internal/repository"
	"lotterymarket/pkg/idgen"

	"gorm.io/gorm"
)

type LotteryService struct {
	db          *gorm.DB
	cfg         *config.Config
	lotteryRepo *repository.LotteryRepository
	listingRepo *repository.ListingRepository
	ticketRepo  *repository.TicketRepository
	outboxRepo  *repository.OutboxRepository
}

func NewLotteryService(db *gorm.DB, cfg *config.Config) *LotteryService {
	return &LotteryService{
		db:          db,
		cfg:         cfg,
		lotteryRepo: repository.NewLotteryRepository(db),
		listingRepo: repository.NewListingRepository(db),
		ticketRepo:  repository.NewTicketRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
	}
}

type CreateLotteryRequest struct {
	SellerID    int64
	ListingID   *int64 // 可选：以自己的商品作为奖品
	Title       string
	Category    string
	Description string
	ImageURL    string
	UnitPrice   int64
	Capacity    int
	EndsAt      time.Time
}

// CreateLottery 创建抽奖活动
// 指定了来源商品时，标题、分类、图片缺省从商品带过来，并校验商品归属
func (s *LotteryService) CreateLottery(ctx context.Context, req *CreateLotteryRequest) (*model.Lottery, error) {
	if req.UnitPrice <= 0 {
		return nil, errors.New("票价必须大于0")
	}
	if req.Capacity <= 0 {
		return nil, errors.New("奖券数量必须大于0")
	}
	if !req.EndsAt.After(time.Now()) {
		return nil, errors.New("结束时间必须晚于当前时间")
	}

	lottery := &model.Lottery{
		LotteryNo:   idgen.GenerateLotteryNo(),
		SellerID:    req.SellerID,
		ListingID:   req.ListingID,
		Title:       req.Title,
		Category:    req.Category,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		UnitPrice:   req.UnitPrice,
		Capacity:    req.Capacity,
		Status:      model.LotteryStatusActive,
		EndsAt:      req.EndsAt,
	}

	if req.ListingID != nil {
		listing, err := s.listingRepo.GetByID(ctx, *req.ListingID)
		if err != nil {
			return nil, err
		}
		if listing.SellerID != req.SellerID {
			return nil, repository.ErrListingNotOwned
		}
		if lottery.Title == "" {
			lottery.Title = listing.Title
		}
		if lottery.Category == "" {
			lottery.Category = listing.Category
		}
		if lottery.ImageURL == "" {
			lottery.ImageURL = listing.ImageURL
		}
	}

	if lottery.Title == "" {
		return nil, errors.New("活动标题不能为空")
	}

	if err := s.lotteryRepo.Create(ctx, nil, lottery); err != nil {
		return nil, err
	}

	log.Printf("[LotteryService] 活动创建成功: lotteryNo=%s, sellerID=%d, capacity=%d, price=%d",
		lottery.LotteryNo, req.SellerID, req.Capacity, req.UnitPrice)

	return lottery, nil
}

func (s *LotteryService) GetLottery(ctx context.Context, lotteryID int64) (*model.Lottery, error) {
	return s.lotteryRepo.GetByID(ctx, lotteryID)
}

func (s *LotteryService) ListActiveLotteries(ctx context.Context, page, pageSize int) ([]*model.Lottery, int64, error) {
	return s.lotteryRepo.ListActive(ctx, page, pageSize)
}

// ListSellerLotteries 卖家名下的全部活动，含已售罄和已关闭的
func (s *LotteryService) ListSellerLotteries(ctx context.Context, sellerID int64, page, pageSize int) ([]*model.Lottery, int64, error) {
	return s.lotteryRepo.ListBySellerID(ctx, sellerID, page, pageSize)
}

// ListLotteryTickets 卖家查看自己活动的售票明细，按奖券号升序
func (s *LotteryService) ListLotteryTickets(ctx context.Context, lotteryID, sellerID int64) ([]*model.Ticket, error) {
	lottery, err := s.lotteryRepo.GetByID(ctx, lotteryID)
	if err != nil {
		return nil, err
	}
	if lottery.SellerID != sellerID {
		return nil, errors.New("无权查看他人活动的售票明细")
	}
	return s.ticketRepo.ListByLotteryID(ctx, lotteryID)
}

// CloseLottery 卖家提前关闭活动
// 关闭后不再接受购票；已售奖券保持不变，结算由开奖侧处理
func (s *LotteryService) CloseLottery(ctx context.Context, lotteryID, sellerID int64) error {
	lottery, err := s.lotteryRepo.GetByID(ctx, lotteryID)
	if err != nil {
		return err
	}
	if lottery.SellerID != sellerID {
		return errors.New("无权关闭他人活动")
	}
	return s.closeOne(ctx, lottery)
}

// CloseExpiredLotteries 关闭所有已过结束时间的活动，返回关闭数量
func (s *LotteryService) CloseExpiredLotteries(ctx context.Context, limit int) (int, error) {
	lotteries, err := s.lotteryRepo.GetExpired(ctx, limit)
	if err != nil {
		return 0, err
	}

	closedCount := 0
	for _, lottery := range lotteries {
		if err := s.closeOne(ctx, lottery); err != nil {
			log.Printf("[LotteryService] 关闭活动失败: lotteryNo=%s, err=%v", lottery.LotteryNo, err)
			continue
		}
		closedCount++
	}

	return closedCount, nil
}

// closeOne 状态翻转和事件落库在同一事务内完成
func (s *LotteryService) closeOne(ctx context.Context, lottery *model.Lottery) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.lotteryRepo.UpdateStatus(ctx, tx, lottery.ID, lottery.Status, model.LotteryStatusClosed); err != nil {
			return err
		}

		// 读取活动行之后可能又售出了奖券，事件里的售出数以奖券表为准
		soldCount, err := s.ticketRepo.CountByLotteryID(ctx, tx, lottery.ID)
		if err != nil {
			return err
		}

		msgPayload := map[string]interface{}{
			"lottery_no":   lottery.LotteryNo,
			"lottery_id":   lottery.ID,
			"seller_id":    lottery.SellerID,
			"tickets_sold": soldCount,
			"capacity":     lottery.Capacity,
			"closed_at":    time.Now().Format(time.RFC3339),
		}
		payloadBytes, _ := json.Marshal(msgPayload)

		outboxMsg := &model.OutboxMessage{
			MessageKey: lottery.LotteryNo,
			Topic:      s.cfg.Kafka.Topic.LotteryClosed,
			Payload:    string(payloadBytes),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
			return fmt.Errorf("写入消息失败: %w", err)
		}

		return nil
	})
}

// TicketView “我的奖券”视图，带上活动标题和分类方便展示
type TicketView struct {
	TicketNo     string `json:"ticket_no"`
	TicketNumber int    `json:"ticket_number"`
	PricePaid    int64  `json:"price_paid"`
	LotteryID    int64  `json:"lottery_id"`
	LotteryTitle string `json:"lottery_title"`
	Category     string `json:"category"`
	Status       string `json:"lottery_status"`
	CreatedAt    string `json:"created_at"`
}

// ListUserTickets 查询用户持有的奖券
func (s *LotteryService) ListUserTickets(ctx context.Context, userID int64, page, pageSize int) ([]*TicketView, int64, error) {
	tickets, total, err := s.ticketRepo.ListByUserID(ctx, userID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	// 批量回查活动信息，避免逐张查询
	lotteries := make(map[int64]*model.Lottery)
	views := make([]*TicketView, 0, len(tickets))
	for _, ticket := range tickets {
		lottery, ok := lotteries[ticket.LotteryID]
		if !ok {
			lottery, err = s.lotteryRepo.GetByID(ctx, ticket.LotteryID)
			if err != nil {
				return nil, 0, err
			}
			lotteries[ticket.LotteryID] = lottery
		}

		views = append(views, &TicketView{
			TicketNo:     ticket.TicketNo,
			TicketNumber: ticket.TicketNumber,
			PricePaid:    ticket.PricePaid,
			LotteryID:    ticket.LotteryID,
			LotteryTitle: lottery.Title,
			Category:     lottery.Category,
			Status:       lottery.Status,
			CreatedAt:    ticket.CreatedAt.Format(time.RFC3339),
		})
	}

	return views, total, nil
}
