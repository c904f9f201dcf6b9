package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/prodwell/prodwell-backend/pkg/enums"
)

// Demand is one unit of required production work derived from a confirmed
// order line. Quantity is a validated integer; rejecting bad input at the
// boundary replaces the old habit of storing free text and silently falling
// back to one.
type Demand struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderItemID       uuid.UUID          `gorm:"column:order_item_id;type:uuid;not null"`
	ProductionOrderID *uuid.UUID         `gorm:"column:production_order_id;type:uuid"`
	ProductID         uuid.UUID          `gorm:"column:product_id;type:uuid;not null"`
	Quantity          int                `gorm:"column:quantity;not null;default:1"`
	Status            enums.DemandStatus `gorm:"column:status;type:demand_status;not null;default:'pending'"`
	ExpectedDate      *time.Time         `gorm:"column:expected_date"`
	StartedAt         *time.Time         `gorm:"column:started_at"`
	CompletedAt       *time.Time         `gorm:"column:completed_at"`

	Product      *Product             `gorm:"foreignKey:ProductID"`
	Compositions []ProductComposition `gorm:"foreignKey:DemandID;constraint:OnDelete:CASCADE"`

	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	LockVersion int       `gorm:"column:lock_version;not null;default:0"`
	CreatedBy   uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
	UpdatedBy   uuid.UUID `gorm:"column:updated_by;type:uuid;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// IsOverdue reports whether the expected date has passed without delivery.
func (d *Demand) IsOverdue(now time.Time) bool {
	if d.ExpectedDate == nil || d.Status == enums.DemandStatusDelivered {
		return false
	}
	return d.ExpectedDate.Before(truncateToDay(now))
}

// DaysRemaining returns whole days until the expected date, zero when the
// demand is delivered or carries no date.
func (d *Demand) DaysRemaining(now time.Time) int {
	if d.ExpectedDate == nil || d.Status == enums.DemandStatusDelivered {
		return 0
	}
	return int(d.ExpectedDate.Sub(truncateToDay(now)).Hours() / 24)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
