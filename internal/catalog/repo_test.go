package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ramikart/ramikart-backend/pkg/db/models"
	pkgerrors "github.com/ramikart/ramikart-backend/pkg/errors"
	"github.com/ramikart/ramikart-backend/pkg/pagination"
)

func seedCatalog(t *testing.T, db *gorm.DB, sellerID uuid.UUID, count int, category string) []models.Product {
	t.Helper()
	products := make([]models.Product, 0, count)
	base := time.Now().Add(-time.Duration(count) * time.Minute)
	for i := 0; i < count; i++ {
		p := models.Product{
			SellerID:  sellerID,
			Title:     "gadget",
			Price:     decimal.NewFromInt(int64(10 + i)),
			Stock:     5,
			Category:  category,
			IsActive:  true,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(&p).Error)
		products = append(products, p)
	}
	return products
}

func TestRepositoryListPagesNewestFirst(t *testing.T) {
	db := openTestDB(t)
	repo, err := NewRepository(db)
	require.NoError(t, err)
	sellerID := uuid.New()
	seeded := seedCatalog(t, db, sellerID, 5, "electronics")

	page, err := repo.List(context.Background(), ListFilter{SellerID: sellerID}, 3, nil)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, seeded[4].ID, page[0].ID)
	assert.Equal(t, seeded[2].ID, page[2].ID)

	cursor := &pagination.Cursor{CreatedAt: page[2].CreatedAt, ID: page[2].ID}
	rest, err := repo.List(context.Background(), ListFilter{SellerID: sellerID}, 3, cursor)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, seeded[1].ID, rest[0].ID)
	assert.Equal(t, seeded[0].ID, rest[1].ID)
}

func TestRepositoryListFilters(t *testing.T) {
	db := openTestDB(t)
	repo, err := NewRepository(db)
	require.NoError(t, err)
	sellerID := uuid.New()
	seedCatalog(t, db, sellerID, 2, "electronics")
	seedCatalog(t, db, uuid.New(), 3, "books")

	inactive := seedProduct(t, db, 5, false)

	byCategory, err := repo.List(context.Background(), ListFilter{Category: "books"}, 10, nil)
	require.NoError(t, err)
	assert.Len(t, byCategory, 3)

	activeOnly, err := repo.List(context.Background(), ListFilter{ActiveOnly: true}, 50, nil)
	require.NoError(t, err)
	for _, p := range activeOnly {
		assert.NotEqual(t, inactive.ID, p.ID)
	}
}

func TestRepositoryUpdateMissingProduct(t *testing.T) {
	db := openTestDB(t)
	repo, err := NewRepository(db)
	require.NoError(t, err)

	err = repo.Update(context.Background(), uuid.New(), map[string]any{"title": "renamed"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
