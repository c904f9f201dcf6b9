package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/prodwell/prodwell-backend/pkg/enums"
)

// Product is the catalog entry for anything that can be sold or produced.
// The variant decides which of the optional field groups is meaningful:
// simple products carry assembly data, composite products own hierarchy
// associations, group products own selectable items, options and exchange
// rules.
type Product struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string               `gorm:"column:name;not null"`
	Description *string              `gorm:"column:description"`
	SKU         string               `gorm:"column:sku;not null"`
	Variant     enums.ProductVariant `gorm:"column:variant;type:product_variant;not null"`
	UnitPrice   decimal.Decimal      `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Cost        decimal.Decimal      `gorm:"column:cost;type:numeric(12,2);not null;default:0"`
	Unit        enums.Unit           `gorm:"column:unit;type:unit;not null;default:'piece'"`
	Stock       int                  `gorm:"column:stock;not null;default:0"`
	MinStock    int                  `gorm:"column:min_stock;not null;default:0"`

	// Simple variant only.
	AssemblyMinutes      int            `gorm:"column:assembly_minutes;not null;default:0"`
	AssemblyInstructions pq.StringArray `gorm:"column:assembly_instructions;type:text[]"`

	// Group variant only. MaxItemsAllowed 0 means unset.
	MinItemsRequired int `gorm:"column:min_items_required;not null;default:0"`
	MaxItemsAllowed  int `gorm:"column:max_items_allowed;not null;default:0"`

	HierarchyLinks []CompositeProductXHierarchy `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	GroupItems     []ProductGroupItem           `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
	GroupOptions   []ProductGroupOption         `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
	ExchangeRules  []ProductGroupExchangeRule   `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`

	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	LockVersion int       `gorm:"column:lock_version;not null;default:0"`
	CreatedBy   uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
	UpdatedBy   uuid.UUID `gorm:"column:updated_by;type:uuid;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// IsBelowMinStock reports whether the product needs replenishment.
func (p *Product) IsBelowMinStock() bool {
	return p.Stock < p.MinStock
}

// AssemblyTime returns the declared assembly duration for simple products.
func (p *Product) AssemblyTime() time.Duration {
	return time.Duration(p.AssemblyMinutes) * time.Minute
}
