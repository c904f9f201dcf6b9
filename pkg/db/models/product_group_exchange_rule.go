package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductGroupExchangeRule lets a customer swap one group item for another
// at a defined ratio and additional cost. A rule never exchanges a product
// for itself.
type ProductGroupExchangeRule struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GroupID           uuid.UUID       `gorm:"column:group_id;type:uuid;not null"`
	OriginalProductID uuid.UUID       `gorm:"column:original_product_id;type:uuid;not null"`
	ExchangeProductID uuid.UUID       `gorm:"column:exchange_product_id;type:uuid;not null"`
	ExchangeRatio     decimal.Decimal `gorm:"column:exchange_ratio;type:numeric(8,4);not null;default:1"`
	AdditionalCost    decimal.Decimal `gorm:"column:additional_cost;type:numeric(12,2);not null;default:0"`

	ExchangeProduct *Product `gorm:"foreignKey:ExchangeProductID"`

	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	LockVersion int       `gorm:"column:lock_version;not null;default:0"`
	CreatedBy   uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
	UpdatedBy   uuid.UUID `gorm:"column:updated_by;type:uuid;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
