package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/prodwell/prodwell-backend/pkg/enums"
)

// ProductComposition is one resolved component instance for one demand.
// HierarchyName is a display snapshot taken at expansion time; it must not
// follow later renames of the source hierarchy, so historical production
// records stay intact. A row is immutable once processing completed.
type ProductComposition struct {
	ID                 uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DemandID           uuid.UUID  `gorm:"column:demand_id;type:uuid;not null"`
	ProductComponentID uuid.UUID  `gorm:"column:product_component_id;type:uuid;not null"`
	HierarchyName      string     `gorm:"column:hierarchy_name;not null"`
	Quantity           int        `gorm:"column:quantity;not null"`
	Unit               enums.Unit `gorm:"column:unit;type:unit;not null;default:'piece'"`
	IsOptional         bool       `gorm:"column:is_optional;not null;default:false"`
	ProcessingOrder    int        `gorm:"column:processing_order;not null"`

	ProcessingStartedAt   *time.Time `gorm:"column:processing_started_at"`
	ProcessingCompletedAt *time.Time `gorm:"column:processing_completed_at"`

	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// IsProcessed reports whether the row has been produced.
func (c *ProductComposition) IsProcessed() bool {
	return c.ProcessingCompletedAt != nil
}
