package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductGroupItem is one selectable line inside a group product.
// MaxQuantity nil means no per-item cap.
type ProductGroupItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GroupID         uuid.UUID       `gorm:"column:group_id;type:uuid;not null"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Quantity        int             `gorm:"column:quantity;not null;default:1"`
	MinQuantity     int             `gorm:"column:min_quantity;not null;default:0"`
	MaxQuantity     *int            `gorm:"column:max_quantity"`
	DefaultQuantity int             `gorm:"column:default_quantity;not null;default:1"`
	IsOptional      bool            `gorm:"column:is_optional;not null;default:false"`
	ExtraPrice      decimal.Decimal `gorm:"column:extra_price;type:numeric(12,2);not null;default:0"`

	Product *Product `gorm:"foreignKey:ProductID"`

	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	LockVersion int       `gorm:"column:lock_version;not null;default:0"`
	CreatedBy   uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
	UpdatedBy   uuid.UUID `gorm:"column:updated_by;type:uuid;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
