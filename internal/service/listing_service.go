package service

import (
	"context"
	"errors"

	"lotterymarket/internal/model"
	"lotterymarket/internal/repository"

	"gorm.io/gorm"
)

type ListingService struct {
	db          *gorm.DB
	listingRepo *repository.ListingRepository
}

func NewListingService(db *gorm.DB) *ListingService {
	return &ListingService{
		db:          db,
		listingRepo: repository.NewListingRepository(db),
	}
}

type CreateListingRequest struct {
	SellerID    int64
	Title       string
	Category    string
	Description string
	ImageURL    string
	Price       int64
}

func (s *ListingService) CreateListing(ctx context.Context, req *CreateListingRequest) (*model.Listing, error) {
	if req.Title == "" {
		return nil, errors.New("商品标题不能为空")
	}
	if req.Category == "" {
		return nil, errors.New("商品分类不能为空")
	}
	if req.Price <= 0 {
		return nil, errors.New("价格必须大于0")
	}

	listing := &model.Listing{
		SellerID:    req.SellerID,
		Title:       req.Title,
		Category:    req.Category,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Price:       req.Price,
		Status:      model.ListingStatusActive,
	}

	if err := s.listingRepo.Create(ctx, listing); err != nil {
		return nil, err
	}

	return listing, nil
}

func (s *ListingService) ListActiveListings(ctx context.Context, page, pageSize int) ([]*model.Listing, int64, error) {
	return s.listingRepo.ListActive(ctx, page, pageSize)
}

// ListArchived 卖家的归档页：归档和已删除的商品放在一起展示
func (s *ListingService) ListArchived(ctx context.Context, sellerID int64) ([]*model.Listing, error) {
	return s.listingRepo.ListBySellerID(ctx, sellerID, []string{model.ListingStatusArchived, model.ListingStatusDeleted})
}

// Archive 下架归档，之后可以重新上架
func (s *ListingService) Archive(ctx context.Context, listingID, sellerID int64) error {
	return s.listingRepo.UpdateStatus(ctx, listingID, sellerID, model.ListingStatusActive, model.ListingStatusArchived)
}

// Restore 归档商品重新上架
func (s *ListingService) Restore(ctx context.Context, listingID, sellerID int64) error {
	return s.listingRepo.UpdateStatus(ctx, listingID, sellerID, model.ListingStatusArchived, model.ListingStatusActive)
}

// Delete 软删除，保留记录用于归档页展示，不可恢复
func (s *ListingService) Delete(ctx context.Context, listingID, sellerID int64) error {
	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.SellerID != sellerID {
		return repository.ErrListingNotOwned
	}
	return s.listingRepo.UpdateStatus(ctx, listingID, sellerID, listing.Status, model.ListingStatusDeleted)
}
