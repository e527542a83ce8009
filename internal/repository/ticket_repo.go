package repository

import (
	"context"
	"errors"

	"lotterymarket/internal/model"

	"gorm.io/gorm"
)

type TicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

func (r *TicketRepository) Create(ctx context.Context, tx *gorm.DB, ticket *model.Ticket) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(ticket).Error
}

func (r *TicketRepository) GetByTicketNo(ctx context.Context, ticketNo string) (*model.Ticket, error) {
	var ticket model.Ticket
	err := r.db.WithContext(ctx).Where("ticket_no = ?", ticketNo).First(&ticket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *TicketRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.Ticket, int64, error) {
	var tickets []*model.Ticket
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Ticket{}).Where("owner_id = ?", userID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&tickets).Error

	return tickets, total, err
}

func (r *TicketRepository) ListByLotteryID(ctx context.Context, lotteryID int64) ([]*model.Ticket, error) {
	var tickets []*model.Ticket
	err := r.db.WithContext(ctx).
		Where("lottery_id = ?", lotteryID).
		Order("ticket_number ASC").
		Find(&tickets).Error
	return tickets, err
}

func (r *TicketRepository) CountByLotteryID(ctx context.Context, tx *gorm.DB, lotteryID int64) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	var count int64
	err := tx.WithContext(ctx).
		Model(&model.Ticket{}).
		Where("lottery_id = ?", lotteryID).
		Count(&count).Error
	return count, err
}
