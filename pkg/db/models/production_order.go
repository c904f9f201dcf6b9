package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/prodwell/prodwell-backend/pkg/enums"
)

// ProductionOrder is the execution record for producing one order line.
// Estimated and actual times are whole minutes.
type ProductionOrder struct {
	ID          uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID                   `gorm:"column:order_id;type:uuid;not null"`
	OrderItemID uuid.UUID                   `gorm:"column:order_item_id;type:uuid;not null"`
	ProductID   uuid.UUID                   `gorm:"column:product_id;type:uuid;not null"`
	Quantity    int                         `gorm:"column:quantity;not null"`
	Status      enums.ProductionOrderStatus `gorm:"column:status;type:production_order_status;not null;default:'pending'"`
	Priority    enums.ProductionPriority    `gorm:"column:priority;type:production_priority;not null;default:'normal'"`

	ScheduledStart   *time.Time `gorm:"column:scheduled_start"`
	ScheduledEnd     *time.Time `gorm:"column:scheduled_end"`
	ActualStart      *time.Time `gorm:"column:actual_start"`
	ActualEnd        *time.Time `gorm:"column:actual_end"`
	AssignedTo       *uuid.UUID `gorm:"column:assigned_to;type:uuid"`
	EstimatedMinutes *int       `gorm:"column:estimated_minutes"`
	ActualMinutes    *int       `gorm:"column:actual_minutes"`

	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	LockVersion int       `gorm:"column:lock_version;not null;default:0"`
	CreatedBy   uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
	UpdatedBy   uuid.UUID `gorm:"column:updated_by;type:uuid;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// ElapsedMinutes returns the floor of minutes between actual start and end,
// or false when either stamp is missing.
func (p *ProductionOrder) ElapsedMinutes() (int, bool) {
	if p.ActualStart == nil || p.ActualEnd == nil {
		return 0, false
	}
	return int(p.ActualEnd.Sub(*p.ActualStart).Minutes()), true
}
