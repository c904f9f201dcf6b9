package models

import (
	"github.com/google/uuid"
)

// CompositeProductXHierarchy links one hierarchy to one composite product.
// It is a deliberately lighter association row: no audit stamps and no lock
// version. AssemblyOrder is the authoritative production sequence and is
// unique per product; MaxQuantity 0 means unbounded.
type CompositeProductXHierarchy struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID     uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	HierarchyID   uuid.UUID `gorm:"column:hierarchy_id;type:uuid;not null"`
	MinQuantity   int       `gorm:"column:min_quantity;not null;default:1"`
	MaxQuantity   int       `gorm:"column:max_quantity;not null;default:0"`
	IsOptional    bool      `gorm:"column:is_optional;not null;default:false"`
	AssemblyOrder int       `gorm:"column:assembly_order;not null"`
	Notes         *string   `gorm:"column:notes"`

	Hierarchy *ProductComponentHierarchy `gorm:"foreignKey:HierarchyID"`
}

func (CompositeProductXHierarchy) TableName() string {
	return "composite_product_x_hierarchies"
}

// AcceptsQuantity reports whether the requested quantity satisfies the
// association bounds. A zero MaxQuantity leaves the upper bound open.
func (a *CompositeProductXHierarchy) AcceptsQuantity(qty int) bool {
	if qty < a.MinQuantity {
		return false
	}
	return a.MaxQuantity == 0 || qty <= a.MaxQuantity
}
