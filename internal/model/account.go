package model

import (
	"time"
)

// Account 用户账户表
// 记录用户的余额（以最小货币单位存储，避免浮点误差），是整个平台的资金核心
type Account struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"uniqueIndex;not null" json:"user_id"` // 用户ID，由会话层传入
	Balance   int64     `gorm:"not null;default:0" json:"balance"`   // 可用余额（最小货币单位）
	Version   int       `gorm:"not null;default:0" json:"version"`   // 乐观锁版本号
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "account"
}
