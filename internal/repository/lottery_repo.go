package repository

import (
	"context"
	"errors"
	"time"

	"lotterymarket/internal/model"

	"gorm.io/gorm"
)

var (
	ErrLotteryNotFound      = errors.New("抽奖活动不存在")
	ErrLotterySoldOut       = errors.New("奖券已售罄")
	ErrLotteryClosed        = errors.New("抽奖活动已结束")
	ErrLotteryStatusInvalid = errors.New("抽奖状态不合法")
	ErrAllocateConflict     = errors.New("售票计数冲突，请重试")
)

type LotteryRepository struct {
	db *gorm.DB
}

func NewLotteryRepository(db *gorm.DB) *LotteryRepository {
	return &LotteryRepository{db: db}
}

func (r *LotteryRepository) Create(ctx context.Context, tx *gorm.DB, lottery *model.Lottery) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(lottery).Error
}

func (r *LotteryRepository) GetByID(ctx context.Context, lotteryID int64) (*model.Lottery, error) {
	var lottery model.Lottery
	err := r.db.WithContext(ctx).Where("id = ?", lotteryID).First(&lottery).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLotteryNotFound
		}
		return nil, err
	}
	return &lottery, nil
}

// Allocate 售出一张奖券（CAS）
//
// 【关键点】条件更新以调用方观察到的 soldBefore 作为守卫：
//
//	UPDATE lottery SET tickets_sold = tickets_sold + 1
//	WHERE id = ? AND status = 'ACTIVE' AND tickets_sold = soldBefore
//
// 两个并发购票如果读到了同一个 soldBefore，只有一个 UPDATE 能命中，
// 另一个影响行数为 0，绝不会出现两张同号奖券或超卖。
// 售出的是最后一张时，在同一条 UPDATE 里把状态翻转为 SOLD_OUT。
//
// 影响行数为 0 时回查活动区分失败原因：已关闭 / 已售罄是业务拒绝，
// 单纯计数变化是并发冲突，交给上层重读重试
func (r *LotteryRepository) Allocate(ctx context.Context, tx *gorm.DB, lotteryID int64, soldBefore, capacity int) error {
	updates := map[string]interface{}{
		"tickets_sold": gorm.Expr("tickets_sold + 1"),
	}
	if soldBefore+1 >= capacity {
		updates["status"] = model.LotteryStatusSoldOut
	}

	result := tx.WithContext(ctx).
		Model(&model.Lottery{}).
		Where("id = ? AND status = ? AND tickets_sold = ?", lotteryID, model.LotteryStatusActive, soldBefore).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		// 回查走同一个事务句柄，读到的是本事务视角下的最新行
		var lottery model.Lottery
		err := tx.WithContext(ctx).Where("id = ?", lotteryID).First(&lottery).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLotteryNotFound
			}
			return err
		}
		if lottery.Status == model.LotteryStatusClosed {
			return ErrLotteryClosed
		}
		if lottery.Status == model.LotteryStatusSoldOut || lottery.TicketsSold >= lottery.Capacity {
			return ErrLotterySoldOut
		}
		return ErrAllocateConflict
	}

	return nil
}

// UpdateStatus 状态迁移（带状态机校验和前置状态守卫）
func (r *LotteryRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, lotteryID int64, fromStatus, toStatus string) error {
	if !model.LotteryCanTransitionTo(fromStatus, toStatus) {
		return ErrLotteryStatusInvalid
	}

	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.Lottery{}).
		Where("id = ? AND status = ?", lotteryID, fromStatus).
		Update("status", toStatus)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrLotteryStatusInvalid
	}

	return nil
}

// ListActive 查询在售活动，按创建时间倒序分页
func (r *LotteryRepository) ListActive(ctx context.Context, page, pageSize int) ([]*model.Lottery, int64, error) {
	var lotteries []*model.Lottery
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Lottery{}).Where("status = ?", model.LotteryStatusActive)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&lotteries).Error

	return lotteries, total, err
}

// GetExpired 查询已过结束时间但仍未关闭的活动
func (r *LotteryRepository) GetExpired(ctx context.Context, limit int) ([]*model.Lottery, error) {
	var lotteries []*model.Lottery
	err := r.db.WithContext(ctx).
		Where("status IN ? AND ends_at < ?", []string{model.LotteryStatusActive, model.LotteryStatusSoldOut}, time.Now()).
		Limit(limit).
		Find(&lotteries).Error
	return lotteries, err
}

func (r *LotteryRepository) ListBySellerID(ctx context.Context, sellerID int64, page, pageSize int) ([]*model.Lottery, int64, error) {
	var lotteries []*model.Lottery
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Lottery{}).Where("seller_id = ?", sellerID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&lotteries).Error

	return lotteries, total, err
}
