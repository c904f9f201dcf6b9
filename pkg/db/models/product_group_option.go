package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/prodwell/prodwell-backend/pkg/enums"
)

// ProductGroupOption is one configuration axis of a group product, for
// example "choose topping". Single options admit exactly one choice,
// multiple options admit several.
type ProductGroupOption struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GroupID      uuid.UUID             `gorm:"column:group_id;type:uuid;not null"`
	Name         string                `gorm:"column:name;not null"`
	Type         enums.GroupOptionType `gorm:"column:type;type:group_option_type;not null;default:'single'"`
	IsRequired   bool                  `gorm:"column:is_required;not null;default:false"`
	DisplayOrder int                   `gorm:"column:display_order;not null;default:0"`

	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	LockVersion int       `gorm:"column:lock_version;not null;default:0"`
	CreatedBy   uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
	UpdatedBy   uuid.UUID `gorm:"column:updated_by;type:uuid;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
