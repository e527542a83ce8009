package repository

import (
	"context"
	"errors"

	"lotterymarket/internal/model"

	"gorm.io/gorm"
)

var (
	ErrListingNotFound      = errors.New("商品不存在")
	ErrListingStatusInvalid = errors.New("商品状态不合法")
	ErrListingNotOwned      = errors.New("无权操作他人商品")
)

type ListingRepository struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

func (r *ListingRepository) Create(ctx context.Context, listing *model.Listing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *ListingRepository) GetByID(ctx context.Context, listingID int64) (*model.Listing, error) {
	var listing model.Listing
	err := r.db.WithContext(ctx).Where("id = ?", listingID).First(&listing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return &listing, nil
}

// UpdateStatus 状态迁移（带状态机校验和前置状态守卫）
// 守卫条件同时校验卖家归属，防止越权修改
func (r *ListingRepository) UpdateStatus(ctx context.Context, listingID, sellerID int64, fromStatus, toStatus string) error {
	if !model.ListingCanTransitionTo(fromStatus, toStatus) {
		return ErrListingStatusInvalid
	}

	result := r.db.WithContext(ctx).
		Model(&model.Listing{}).
		Where("id = ? AND seller_id = ? AND status = ?", listingID, sellerID, fromStatus).
		Update("status", toStatus)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrListingStatusInvalid
	}

	return nil
}

// ListActive 查询在售商品，按创建时间倒序分页
func (r *ListingRepository) ListActive(ctx context.Context, page, pageSize int) ([]*model.Listing, int64, error) {
	var listings []*model.Listing
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Listing{}).Where("status = ?", model.ListingStatusActive)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&listings).Error

	return listings, total, err
}

// ListBySellerID 查询卖家名下指定状态的商品
func (r *ListingRepository) ListBySellerID(ctx context.Context, sellerID int64, statuses []string) ([]*model.Listing, error) {
	var listings []*model.Listing
	err := r.db.WithContext(ctx).
		Where("seller_id = ? AND status IN ?", sellerID, statuses).
		Order("created_at DESC").
		Find(&listings).Error
	return listings, err
}
