package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prodwell/prodwell-backend/pkg/db/models"
)

// ProductDTO represents the catalog payload returned to callers.
type ProductDTO struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	SKU         string          `json:"sku"`
	Variant     string          `json:"variant"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Cost        decimal.Decimal `json:"cost"`
	Unit        string          `json:"unit"`
	Stock       int             `json:"stock"`
	MinStock    int             `json:"min_stock"`

	AssemblyMinutes      int      `json:"assembly_minutes,omitempty"`
	AssemblyInstructions []string `json:"assembly_instructions,omitempty"`

	MinItemsRequired int `json:"min_items_required,omitempty"`
	MaxItemsAllowed  int `json:"max_items_allowed,omitempty"`

	IsActive      bool      `json:"is_active"`
	BelowMinStock bool      `json:"below_min_stock"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewProductDTO maps the model into the outward payload.
func NewProductDTO(product *models.Product) *ProductDTO {
	if product == nil {
		return nil
	}
	return &ProductDTO{
		ID:                   product.ID,
		Name:                 product.Name,
		Description:          product.Description,
		SKU:                  product.SKU,
		Variant:              product.Variant.String(),
		UnitPrice:            product.UnitPrice,
		Cost:                 product.Cost,
		Unit:                 product.Unit.String(),
		Stock:                product.Stock,
		MinStock:             product.MinStock,
		AssemblyMinutes:      product.AssemblyMinutes,
		AssemblyInstructions: product.AssemblyInstructions,
		MinItemsRequired:     product.MinItemsRequired,
		MaxItemsAllowed:      product.MaxItemsAllowed,
		IsActive:             product.IsActive,
		BelowMinStock:        product.IsBelowMinStock(),
		CreatedAt:            product.CreatedAt,
		UpdatedAt:            product.UpdatedAt,
	}
}
