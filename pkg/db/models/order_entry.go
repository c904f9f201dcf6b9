package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prodwell/prodwell-backend/pkg/enums"
)

// OrderEntry is a sales order. Its status gates everything downstream:
// items may only change while the order is a draft, and demands exist only
// for confirmed orders.
type OrderEntry struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerName string            `gorm:"column:customer_name;not null"`
	Reference    string            `gorm:"column:reference;not null"`
	Status       enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'draft'"`
	Notes        *string           `gorm:"column:notes"`
	Total        decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null;default:0"`

	ConfirmedAt *time.Time `gorm:"column:confirmed_at"`
	DeliveredAt *time.Time `gorm:"column:delivered_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	LockVersion int       `gorm:"column:lock_version;not null;default:0"`
	CreatedBy   uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
	UpdatedBy   uuid.UUID `gorm:"column:updated_by;type:uuid;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (OrderEntry) TableName() string {
	return "orders"
}

// IsEditable reports whether items may still be added, changed or removed.
func (o *OrderEntry) IsEditable() bool {
	return o.Status == enums.OrderStatusDraft
}
