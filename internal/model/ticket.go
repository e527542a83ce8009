package model

import (
	"time"
)

// Ticket 奖券表
//
// 【重要】奖券一经签发不可变更、不可删除：
// 1. TicketNumber 在同一个抽奖内从 1 开始连续递增，永不复用
// 2. PricePaid 固化签发时刻的票价，后续改价不影响已售奖券
// 3. 唯一索引 (lottery_id, ticket_number) 是防超卖的最后一道防线
type Ticket struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TicketNo     string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"ticket_no"` // 全局唯一奖券编号
	LotteryID    int64     `gorm:"uniqueIndex:uk_lottery_number;index;not null" json:"lottery_id"`
	OwnerID      int64     `gorm:"index;not null" json:"owner_id"`
	TicketNumber int       `gorm:"uniqueIndex:uk_lottery_number;not null" json:"ticket_number"` // 活动内序号，1 起连续
	PricePaid    int64     `gorm:"not null" json:"price_paid"`                                  // 签发时票价
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Ticket) TableName() string {
	return "ticket"
}
