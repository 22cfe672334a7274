package catalog

import "github.com/shopspring/decimal"

// CreateProductInput is the seller-facing payload for listing a product.
type CreateProductInput struct {
	Title       string          `json:"title" validate:"required,min=1,max=200"`
	Description string          `json:"description" validate:"max=5000"`
	Price       decimal.Decimal `json:"price" validate:"required"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Category    string          `json:"category" validate:"max=100"`
	Tags        []string        `json:"tags" validate:"max=20,dive,max=50"`
	Images      []string        `json:"images" validate:"max=10,dive,url"`
}

// UpdateProductInput carries partial updates; nil fields are untouched.
// Stock is deliberately absent: stock only moves through the ledger.
type UpdateProductInput struct {
	Title       *string          `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description" validate:"omitempty,max=5000"`
	Price       *decimal.Decimal `json:"price"`
	Category    *string          `json:"category" validate:"omitempty,max=100"`
	IsActive    *bool            `json:"isActive"`
	Tags        []string         `json:"tags" validate:"omitempty,max=20,dive,max=50"`
	Images      []string         `json:"images" validate:"omitempty,max=10,dive,url"`
}
