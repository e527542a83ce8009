package model

import (
	"time"
)

const (
	ListingStatusActive   = "ACTIVE"
	ListingStatusArchived = "ARCHIVED"
	ListingStatusDeleted  = "DELETED"
)

// ValidListingTransitions 商品状态机
// 删除是软删除且不可恢复，归档可以重新上架
var ValidListingTransitions = map[string][]string{
	ListingStatusActive:   {ListingStatusArchived, ListingStatusDeleted},
	ListingStatusArchived: {ListingStatusActive, ListingStatusDeleted},
}

func ListingCanTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidListingTransitions[currentStatus]
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

// Listing 用户商品表
// 商品可以直接出售，也可以作为抽奖活动的奖品上架
type Listing struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID    int64     `gorm:"index;not null" json:"seller_id"`
	Title       string    `gorm:"type:varchar(200);not null" json:"title"`
	Category    string    `gorm:"type:varchar(64);not null" json:"category"`
	Description string    `gorm:"type:varchar(2000)" json:"description"`
	ImageURL    string    `gorm:"type:varchar(512)" json:"image_url"`
	Price       int64     `gorm:"not null" json:"price"` // 一口价（最小货币单位）
	Status      string    `gorm:"type:varchar(20);index;not null;default:ACTIVE" json:"status"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Listing) TableName() string {
	return "user_listing"
}
