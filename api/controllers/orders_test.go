package controllers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ramikart/ramikart-backend/api/middleware"
	"github.com/ramikart/ramikart-backend/internal/orders"
	"github.com/ramikart/ramikart-backend/pkg/db/models"
	"github.com/ramikart/ramikart-backend/pkg/enums"
	"github.com/ramikart/ramikart-backend/pkg/logger"
)

type stubOrdersService struct {
	placed      *orders.PlaceOrderInput
	cancelledID uuid.UUID
	statusRole  enums.Role
	statusTo    enums.OrderStatus
}

func (s *stubOrdersService) PlaceOrder(ctx context.Context, buyerID uuid.UUID, input orders.PlaceOrderInput) (*models.Order, error) {
	s.placed = &input
	return &models.Order{ID: uuid.New(), BuyerID: buyerID, Status: enums.OrderStatusPending}, nil
}

func (s *stubOrdersService) GetOrder(ctx context.Context, actorID uuid.UUID, actorRole enums.Role, id uuid.UUID) (*models.Order, error) {
	return &models.Order{ID: id, BuyerID: actorID, Status: enums.OrderStatusPending}, nil
}

func (s *stubOrdersService) ListOrders(ctx context.Context, buyerID uuid.UUID, params orders.ListParams) ([]models.Order, string, error) {
	return nil, "", nil
}

func (s *stubOrdersService) Cancel(ctx context.Context, actorID uuid.UUID, actorRole enums.Role, id uuid.UUID) (*models.Order, error) {
	s.cancelledID = id
	return &models.Order{ID: id, BuyerID: actorID, Status: enums.OrderStatusCancelled}, nil
}

func (s *stubOrdersService) Delete(ctx context.Context, actorID uuid.UUID, actorRole enums.Role, id uuid.UUID) error {
	return nil
}

func (s *stubOrdersService) UpdateStatus(ctx context.Context, actorRole enums.Role, id uuid.UUID, target enums.OrderStatus) (*models.Order, error) {
	s.statusRole = actorRole
	s.statusTo = target
	return &models.Order{ID: id, Status: target}, nil
}

func testControllerLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

func TestOrderPlace(t *testing.T) {
	logg := testControllerLogger()
	userID := uuid.New()

	t.Run("missing user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		OrderPlace(&stubOrdersService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 got %d", rec.Code)
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		ctx := middleware.WithUserID(context.Background(), userID.String())
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"items":[]}`))
		req = req.WithContext(ctx)
		rec := httptest.NewRecorder()
		OrderPlace(&stubOrdersService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for empty items got %d", rec.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		ctx := middleware.WithUserID(context.Background(), userID.String())
		productID := uuid.New()
		body := `{"items":[{"productId":"` + productID.String() + `","quantity":2}]}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
		req = req.WithContext(ctx)
		stub := &stubOrdersService{}
		rec := httptest.NewRecorder()
		OrderPlace(stub, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.placed == nil || len(stub.placed.Items) != 1 {
			t.Fatalf("expected one item forwarded to service")
		}
		if stub.placed.Items[0].ProductID != productID || stub.placed.Items[0].Quantity != 2 {
			t.Fatalf("unexpected item forwarded: %+v", stub.placed.Items[0])
		}
	})
}

func TestOrderCancelInvalidID(t *testing.T) {
	logg := testControllerLogger()
	ctx := middleware.WithUserID(context.Background(), uuid.NewString())
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("orderId", "not-a-uuid")
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/not-a-uuid/cancel", nil)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	OrderCancel(&stubOrdersService{}, logg).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestOrderCancelForwardsID(t *testing.T) {
	logg := testControllerLogger()
	orderID := uuid.New()
	ctx := middleware.WithUserID(context.Background(), uuid.NewString())
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("orderId", orderID.String())
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/cancel", nil)
	req = req.WithContext(ctx)
	stub := &stubOrdersService{}
	rec := httptest.NewRecorder()
	OrderCancel(stub, logg).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.cancelledID != orderID {
		t.Fatalf("expected cancel for %s got %s", orderID, stub.cancelledID)
	}
}

func TestAdminOrderStatusForwardsRoleAndTarget(t *testing.T) {
	logg := testControllerLogger()
	orderID := uuid.New()
	ctx := middleware.WithUserID(context.Background(), uuid.NewString())
	ctx = middleware.WithRole(ctx, string(enums.RoleAdmin))
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("orderId", orderID.String())
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)

	req := httptest.NewRequest(http.MethodPatch, "/api/admin/v1/orders/"+orderID.String()+"/status", strings.NewReader(`{"status":"paid"}`))
	req = req.WithContext(ctx)
	stub := &stubOrdersService{}
	rec := httptest.NewRecorder()
	AdminOrderStatus(stub, logg).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.statusRole != enums.RoleAdmin {
		t.Fatalf("expected admin role forwarded, got %s", stub.statusRole)
	}
	if stub.statusTo != enums.OrderStatusPaid {
		t.Fatalf("expected target paid, got %s", stub.statusTo)
	}
}
