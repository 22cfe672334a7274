package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/ramikart/ramikart-backend/internal/catalog"
	"github.com/ramikart/ramikart-backend/pkg/db/models"
	pkgerrors "github.com/ramikart/ramikart-backend/pkg/errors"
	"github.com/ramikart/ramikart-backend/pkg/enums"
	"github.com/ramikart/ramikart-backend/pkg/logger"
	"github.com/ramikart/ramikart-backend/pkg/metrics"
	"github.com/ramikart/ramikart-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines buyer and admin order operations.
type Service interface {
	PlaceOrder(ctx context.Context, buyerID uuid.UUID, input PlaceOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, actorID uuid.UUID, actorRole enums.Role, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, buyerID uuid.UUID, params ListParams) ([]models.Order, string, error)
	Cancel(ctx context.Context, actorID uuid.UUID, actorRole enums.Role, id uuid.UUID) (*models.Order, error)
	Delete(ctx context.Context, actorID uuid.UUID, actorRole enums.Role, id uuid.UUID) error
	UpdateStatus(ctx context.Context, actorRole enums.Role, id uuid.UUID, target enums.OrderStatus) (*models.Order, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	db      *gorm.DB
	ledger  catalog.Ledger
	metrics *metrics.APIMetrics
	logg    *logger.Logger
}

// NewService builds the order service. Reservations run against the base DB
// handle, outside any wrapping transaction, so each line item's stock check
// commits independently; metrics may be nil.
func NewService(repo Repository, tx txRunner, db *gorm.DB, ledger catalog.Ledger, m *metrics.APIMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, db: db, ledger: ledger, metrics: m, logg: logg}, nil
}

func (s *service) PlaceOrder(ctx context.Context, buyerID uuid.UUID, input PlaceOrderInput) (*models.Order, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	seen := map[uuid.UUID]struct{}{}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if item.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
		}
		if _, dup := seen[item.ProductID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate product in order").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		seen[item.ProductID] = struct{}{}
	}

	// Reserve line by line. Each reservation commits on its own; a failure
	// partway through is undone by releasing everything reserved so far.
	reserved := make([]models.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		product, err := s.ledger.Reserve(ctx, s.db, item.ProductID, item.Quantity)
		if err != nil {
			s.compensate(ctx, reserved)
			s.metrics.IncOrdersFailed(string(pkgerrors.As(err).Code()))
			return nil, err
		}
		reserved = append(reserved, models.OrderItem{
			ProductID:       product.ID,
			Title:           product.Title,
			Quantity:        item.Quantity,
			PriceAtPurchase: product.Price,
		})
	}

	total := decimal.Zero
	for _, item := range reserved {
		total = total.Add(item.Subtotal())
	}

	order := &models.Order{
		BuyerID:         buyerID,
		Status:          enums.OrderStatusPending,
		Total:           total,
		PaymentInfo:     input.PaymentInfo,
		ShippingAddress: input.ShippingAddress,
		Items:           reserved,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		s.compensate(ctx, reserved)
		s.metrics.IncOrdersFailed(string(pkgerrors.CodeDependency))
		return nil, err
	}

	s.metrics.IncOrdersPlaced()
	return order, nil
}

// compensate returns reservations made before a placement failure. Release
// errors are logged, not surfaced: the buyer's failure is the original one.
func (s *service) compensate(ctx context.Context, reserved []models.OrderItem) {
	var errs error
	for _, item := range reserved {
		if err := s.ledger.Release(ctx, s.db, item.ProductID, item.Quantity); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		s.logg.Error(ctx, "failed to release reserved stock after aborted placement", errs)
	}
}

func (s *service) GetOrder(ctx context.Context, actorID uuid.UUID, actorRole enums.Role, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != actorID && actorRole != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, buyerID uuid.UUID, params ListParams) ([]models.Order, string, error) {
	if buyerID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if params.Status != "" && !params.Status.IsValid() {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	list, err := s.repo.ListByBuyer(ctx, buyerID, params.Status, pagination.LimitWithBuffer(limit), cursor)
	if err != nil {
		return nil, "", err
	}

	next := ""
	if len(list) > limit {
		list = list[:limit]
		last := list[len(list)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return list, next, nil
}

func (s *service) Cancel(ctx context.Context, actorID uuid.UUID, actorRole enums.Role, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var cancelled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if order.BuyerID != actorID && actorRole != enums.RoleAdmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
		}

		now := time.Now().UTC()
		ok, err := repo.MarkCancelled(ctx, id, now)
		if err != nil {
			return err
		}
		if !ok {
			// The guarded update matched nothing: someone else moved the
			// order first. A second cancel lands here too and fails with
			// the current status in the details.
			fresh, err := repo.FindByID(ctx, id)
			if err != nil {
				return err
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled").
				WithDetails(map[string]any{"status": fresh.Status})
		}

		for _, item := range order.Items {
			if err := s.ledger.Release(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		order.Status = enums.OrderStatusCancelled
		order.CancelledAt = &now
		cancelled = order
		s.metrics.IncOrdersCancelled()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

func (s *service) Delete(ctx context.Context, actorID uuid.UUID, actorRole enums.Role, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, id)
		if err != nil {
			// Deleting an order that is already gone succeeds.
			if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
				return nil
			}
			return err
		}
		if order.BuyerID != actorID && actorRole != enums.RoleAdmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
		}

		// A cancelled order already gave its stock back; everything else
		// still holds reservations that must be returned before removal.
		if order.Status != enums.OrderStatusCancelled {
			for _, item := range order.Items {
				if err := s.ledger.Release(ctx, tx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}
		return repo.Delete(ctx, id)
	})
}

func (s *service) UpdateStatus(ctx context.Context, actorRole enums.Role, id uuid.UUID, target enums.OrderStatus) (*models.Order, error) {
	if actorRole != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	if target == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "use the cancel operation to cancel an order")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if order.Status == target {
			updated = order
			return nil
		}
		if !order.Status.CanAdvanceTo(target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "status may only move forward").
				WithDetails(map[string]any{"from": order.Status, "to": target})
		}
		if err := repo.UpdateStatus(ctx, id, target); err != nil {
			return err
		}
		order.Status = target
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
