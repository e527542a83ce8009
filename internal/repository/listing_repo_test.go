package repository

import (
	"context"
	"testing"

	"lotterymarket/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListingRepository_StatusLifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := NewListingRepository(db)
	ctx := context.Background()

	listing := &model.Listing{
		SellerID: 7,
		Title:    "吉他",
		Category: "乐器",
		Price:    5000,
		Status:   model.ListingStatusActive,
	}
	require.NoError(t, repo.Create(ctx, listing))

	t.Run("归档后可以重新上架", func(t *testing.T) {
		require.NoError(t, repo.UpdateStatus(ctx, listing.ID, 7, model.ListingStatusActive, model.ListingStatusArchived))
		require.NoError(t, repo.UpdateStatus(ctx, listing.ID, 7, model.ListingStatusArchived, model.ListingStatusActive))

		after, err := repo.GetByID(ctx, listing.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ListingStatusActive, after.Status)
	})

	t.Run("他人无法修改", func(t *testing.T) {
		err := repo.UpdateStatus(ctx, listing.ID, 999, model.ListingStatusActive, model.ListingStatusArchived)
		assert.ErrorIs(t, err, ErrListingStatusInvalid)
	})

	t.Run("删除后不可恢复", func(t *testing.T) {
		require.NoError(t, repo.UpdateStatus(ctx, listing.ID, 7, model.ListingStatusActive, model.ListingStatusDeleted))

		err := repo.UpdateStatus(ctx, listing.ID, 7, model.ListingStatusDeleted, model.ListingStatusActive)
		assert.ErrorIs(t, err, ErrListingStatusInvalid)
	})
}

func TestListingRepository_ListBySellerID(t *testing.T) {
	db := newTestDB(t)
	repo := NewListingRepository(db)
	ctx := context.Background()

	for _, status := range []string{model.ListingStatusActive, model.ListingStatusArchived, model.ListingStatusDeleted} {
		require.NoError(t, repo.Create(ctx, &model.Listing{
			SellerID: 7,
			Title:    "商品-" + status,
			Category: "c",
			Price:    100,
			Status:   status,
		}))
	}

	archived, err := repo.ListBySellerID(ctx, 7, []string{model.ListingStatusArchived, model.ListingStatusDeleted})
	require.NoError(t, err)
	assert.Len(t, archived, 2)

	active, err := repo.ListBySellerID(ctx, 7, []string{model.ListingStatusActive})
	require.NoError(t, err)
	assert.Len(t, active, 1)
}
