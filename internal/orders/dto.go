package orders

import (
	"github.com/google/uuid"

	"github.com/ramikart/ramikart-backend/pkg/enums"
	"github.com/ramikart/ramikart-backend/pkg/types"
)

// OrderItemInput is one requested line of a new order.
type OrderItemInput struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gte=1"`
}

// PlaceOrderInput is the buyer-facing payload for placing an order.
// Payment is carried opaquely; no charge is attempted here.
type PlaceOrderInput struct {
	Items           []OrderItemInput       `json:"items" validate:"required,min=1,max=50,dive"`
	PaymentInfo     *types.PaymentInfo     `json:"paymentInfo"`
	ShippingAddress *types.ShippingAddress `json:"shippingAddress"`
}

// UpdateStatusInput is the admin payload for advancing an order.
type UpdateStatusInput struct {
	Status enums.OrderStatus `json:"status" validate:"required"`
}

// ListParams narrows and pages order listings.
type ListParams struct {
	Status enums.OrderStatus
	Limit  int
	Cursor string
}
