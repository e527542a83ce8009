package model

import (
	"time"
)

const (
	LotteryStatusActive  = "ACTIVE"
	LotteryStatusSoldOut = "SOLD_OUT"
	LotteryStatusClosed  = "CLOSED"
)

// ValidLotteryTransitions 抽奖状态机
// SOLD_OUT 只能由购票事务在最后一张票售出时写入；
// CLOSED 由到期任务或卖家主动关闭写入，关闭后不再接受购票
var ValidLotteryTransitions = map[string][]string{
	LotteryStatusActive:  {LotteryStatusSoldOut, LotteryStatusClosed},
	LotteryStatusSoldOut: {LotteryStatusClosed},
}

func LotteryCanTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidLotteryTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// Lottery 抽奖活动表
// 每个活动提供固定数量的奖券（Capacity），TicketsSold 是唯一的可变计数器，
// 奖券号就来源于它，所以对它的并发更新必须走 CAS（见 repository.Allocate）
type Lottery struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	LotteryNo   string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"lottery_no"`
	SellerID    int64     `gorm:"index;not null" json:"seller_id"`
	ListingID   *int64    `gorm:"index" json:"listing_id"` // 来源商品，可为空
	Title       string    `gorm:"type:varchar(200);not null" json:"title"`
	Category    string    `gorm:"type:varchar(64);not null" json:"category"`
	Description string    `gorm:"type:varchar(2000)" json:"description"`
	ImageURL    string    `gorm:"type:varchar(512)" json:"image_url"`
	UnitPrice   int64     `gorm:"not null" json:"unit_price"`              // 单张票价（最小货币单位，> 0）
	Capacity    int       `gorm:"not null" json:"capacity"`                // 奖券总数（> 0）
	TicketsSold int       `gorm:"not null;default:0" json:"tickets_sold"`  // 已售数量，0 <= TicketsSold <= Capacity
	Status      string    `gorm:"type:varchar(20);index;not null" json:"status"`
	EndsAt      time.Time `gorm:"not null" json:"ends_at"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Lottery) TableName() string {
	return "lottery"
}
