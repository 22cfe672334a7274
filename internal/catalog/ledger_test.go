package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ramikart/ramikart-backend/pkg/db/models"
	pkgerrors "github.com/ramikart/ramikart-backend/pkg/errors"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:catalog_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard, TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Product{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, stock int, active bool) *models.Product {
	t.Helper()
	product := &models.Product{
		SellerID: uuid.New(),
		Title:    "mechanical keyboard",
		Price:    decimal.NewFromInt(120),
		Stock:    stock,
		IsActive: active,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	// GORM omits zero-value fields with a default tag on insert, so false
	// never reaches the is_active column; set it explicitly.
	if !active {
		if err := db.Model(product).UpdateColumn("is_active", false).Error; err != nil {
			t.Fatalf("seed product active flag: %v", err)
		}
	}
	return product
}

func TestLedgerReserveDecrements(t *testing.T) {
	db := openTestDB(t)
	product := seedProduct(t, db, 5, true)
	lg := NewLedger()

	got, err := lg.Reserve(context.Background(), db, product.ID, 3)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if got.Stock != 2 {
		t.Fatalf("stock after reserve = %d, want 2", got.Stock)
	}
	if !got.Price.Equal(product.Price) {
		t.Fatalf("price changed across reservation: %s", got.Price)
	}
}

func TestLedgerNeverOversells(t *testing.T) {
	db := openTestDB(t)
	product := seedProduct(t, db, 7, true)
	lg := NewLedger()

	succeeded := 0
	for i := 0; i < 20; i++ {
		if _, err := lg.Reserve(context.Background(), db, product.ID, 1); err == nil {
			succeeded++
		} else if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
			t.Fatalf("unexpected failure code %s: %v", pkgerrors.As(err).Code(), err)
		}
	}
	if succeeded != 7 {
		t.Fatalf("succeeded = %d, want 7", succeeded)
	}

	var fresh models.Product
	if err := db.First(&fresh, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if fresh.Stock != 0 {
		t.Fatalf("stock = %d, want 0", fresh.Stock)
	}
}

func TestLedgerReserveExceedingStock(t *testing.T) {
	db := openTestDB(t)
	product := seedProduct(t, db, 2, true)
	lg := NewLedger()

	_, err := lg.Reserve(context.Background(), db, product.ID, 3)
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("code = %s, want CONFLICT", pkgerrors.As(err).Code())
	}

	var fresh models.Product
	if err := db.First(&fresh, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if fresh.Stock != 2 {
		t.Fatalf("failed reservation touched stock: %d", fresh.Stock)
	}
}

func TestLedgerReserveInactiveProduct(t *testing.T) {
	db := openTestDB(t)
	product := seedProduct(t, db, 10, false)
	lg := NewLedger()

	_, err := lg.Reserve(context.Background(), db, product.ID, 1)
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("code = %s, want CONFLICT", pkgerrors.As(err).Code())
	}
}

func TestLedgerReserveMissingProduct(t *testing.T) {
	db := openTestDB(t)
	lg := NewLedger()

	_, err := lg.Reserve(context.Background(), db, uuid.New(), 1)
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("code = %s, want NOT_FOUND", pkgerrors.As(err).Code())
	}
}

func TestLedgerReleaseRestoresStock(t *testing.T) {
	db := openTestDB(t)
	product := seedProduct(t, db, 4, true)
	lg := NewLedger()

	if _, err := lg.Reserve(context.Background(), db, product.ID, 4); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := lg.Release(context.Background(), db, product.ID, 4); err != nil {
		t.Fatalf("release: %v", err)
	}

	var fresh models.Product
	if err := db.First(&fresh, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if fresh.Stock != 4 {
		t.Fatalf("stock = %d, want 4", fresh.Stock)
	}
}

func TestLedgerRejectsNonPositiveQuantity(t *testing.T) {
	db := openTestDB(t)
	product := seedProduct(t, db, 1, true)
	lg := NewLedger()

	if _, err := lg.Reserve(context.Background(), db, product.ID, 0); pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("code = %s, want VALIDATION", pkgerrors.As(err).Code())
	}
	// Non-positive release is a no-op, not an error.
	if err := lg.Release(context.Background(), db, product.ID, -1); err != nil {
		t.Fatalf("release: %v", err)
	}
}
