package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductComponentHierarchy is a reusable named bundle of components. Many
// composite products may reference the same hierarchy through
// CompositeProductXHierarchy; the components themselves belong exclusively
// to their hierarchy.
type ProductComponentHierarchy struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Description *string   `gorm:"column:description"`
	Notes       *string   `gorm:"column:notes"`

	Components []ProductComponent `gorm:"foreignKey:HierarchyID;constraint:OnDelete:CASCADE"`

	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	LockVersion int       `gorm:"column:lock_version;not null;default:0"`
	CreatedBy   uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
	UpdatedBy   uuid.UUID `gorm:"column:updated_by;type:uuid;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
