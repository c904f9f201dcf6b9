package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prodwell/prodwell-backend/pkg/enums"
)

// ProductComponent is one concrete part inside a hierarchy. Components only
// have meaning within their hierarchy; Position is the intra-hierarchy
// production order and is unique per hierarchy.
type ProductComponent struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	HierarchyID    uuid.UUID       `gorm:"column:hierarchy_id;type:uuid;not null"`
	Name           string          `gorm:"column:name;not null"`
	Description    *string         `gorm:"column:description"`
	AdditionalCost decimal.Decimal `gorm:"column:additional_cost;type:numeric(12,2);not null;default:0"`
	Unit           enums.Unit      `gorm:"column:unit;type:unit;not null;default:'piece'"`
	Position       int             `gorm:"column:position;not null"`

	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	LockVersion int       `gorm:"column:lock_version;not null;default:0"`
	CreatedBy   uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
	UpdatedBy   uuid.UUID `gorm:"column:updated_by;type:uuid;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
