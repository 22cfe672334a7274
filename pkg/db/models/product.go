package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a seller listing. Stock is the authoritative available
// quantity; it is mutated only through the catalog ledger's conditional
// decrement/increment and never drops below zero.
type Product struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SellerID    uuid.UUID       `gorm:"column:seller_id;type:uuid;not null;index" json:"seller_id"`
	Title       string          `gorm:"column:title;not null" json:"title"`
	Description string          `gorm:"column:description" json:"description,omitempty"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Stock       int             `gorm:"column:stock;not null;default:0" json:"stock"`
	IsActive    bool            `gorm:"column:is_active;not null;default:true" json:"is_active"`
	Category    string          `gorm:"column:category;not null" json:"category"`
	Tags        []string        `gorm:"column:tags;serializer:json" json:"tags,omitempty"`
	Images      []string        `gorm:"column:images;serializer:json" json:"images,omitempty"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
