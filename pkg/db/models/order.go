package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ramikart/ramikart-backend/pkg/enums"
	"github.com/ramikart/ramikart-backend/pkg/types"
)

// Order is a buyer purchase. It is created only after every line item's
// stock reservation succeeded; Total equals the sum of line-item subtotals
// at creation time and is never recomputed from live prices.
type Order struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	BuyerID         uuid.UUID              `gorm:"column:buyer_id;type:uuid;not null;index" json:"buyer_id"`
	Status          enums.OrderStatus      `gorm:"column:status;type:text;not null;default:'pending'" json:"status"`
	Total           decimal.Decimal        `gorm:"column:total;type:numeric(12,2);not null" json:"total"`
	PaymentInfo     *types.PaymentInfo     `gorm:"column:payment_info;serializer:json" json:"payment_info,omitempty"`
	ShippingAddress *types.ShippingAddress `gorm:"column:shipping_address;serializer:json" json:"shipping_address,omitempty"`
	Items           []OrderItem            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CancelledAt     *time.Time             `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem is the frozen snapshot of one purchased product. PriceAtPurchase
// is the authoritative price at reservation time and is immutable after
// creation; later product price changes never affect it.
type OrderItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID         uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null" json:"product_id"`
	Title           string          `gorm:"column:title;not null" json:"title"`
	Quantity        int             `gorm:"column:quantity;not null" json:"quantity"`
	PriceAtPurchase decimal.Decimal `gorm:"column:price_at_purchase;type:numeric(12,2);not null" json:"price_at_purchase"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Subtotal returns quantity times the frozen unit price.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.PriceAtPurchase.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
