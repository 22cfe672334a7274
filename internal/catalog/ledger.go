package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ramikart/ramikart-backend/pkg/db/models"
	pkgerrors "github.com/ramikart/ramikart-backend/pkg/errors"
)

// Ledger is the authoritative stock mutation surface. Reserve and Release
// are the only code paths allowed to touch products.stock.
type Ledger interface {
	// Reserve atomically decrements stock when the product is active and has
	// at least qty units. The check and the decrement are a single
	// conditional UPDATE re-checked by the store, so concurrent buyers of
	// the last unit cannot both succeed. On success it returns the product
	// as of after the decrement; the price on it is the authoritative
	// price-at-purchase.
	Reserve(ctx context.Context, db *gorm.DB, productID uuid.UUID, qty int) (*models.Product, error)

	// Release returns qty units unconditionally. Idempotency is the
	// caller's responsibility: it must not run twice for one reservation.
	Release(ctx context.Context, db *gorm.DB, productID uuid.UUID, qty int) error
}

type ledger struct{}

// NewLedger returns the SQL-backed stock ledger.
func NewLedger() Ledger {
	return ledger{}
}

func (ledger) Reserve(ctx context.Context, db *gorm.DB, productID uuid.UUID, qty int) (*models.Product, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db handle required for stock reservation")
	}

	res := db.WithContext(ctx).Exec(`
		UPDATE products
		SET stock = stock - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND is_active AND stock >= ?
	`, qty, productID, qty)
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve stock")
	}
	if res.RowsAffected == 0 {
		return nil, reservationFailure(ctx, db, productID, qty)
	}

	var product models.Product
	if err := db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product after reservation")
	}
	return &product, nil
}

func (ledger) Release(ctx context.Context, db *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	if db == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "db handle required for stock release")
	}

	res := db.WithContext(ctx).Exec(`
		UPDATE products
		SET stock = stock + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, productID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release stock")
	}
	return nil
}

// reservationFailure distinguishes why the conditional update matched no
// rows. The product may have changed between the UPDATE and this read; the
// distinction only feeds error reporting, correctness rests on the UPDATE.
func reservationFailure(ctx context.Context, db *gorm.DB, productID uuid.UUID, qty int) error {
	var product models.Product
	err := db.WithContext(ctx).First(&product, "id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": productID})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inspect product after failed reservation")
	}
	if !product.IsActive {
		return pkgerrors.New(pkgerrors.CodeConflict, "product is not available").
			WithDetails(map[string]any{"product_id": productID})
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
		WithDetails(map[string]any{
			"reason":     "insufficient_stock",
			"product_id": productID,
			"requested":  qty,
			"available":  product.Stock,
		})
}
