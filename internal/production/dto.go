package production

import (
	"time"

	"github.com/google/uuid"

	"github.com/prodwell/prodwell-backend/pkg/db/models"
)

// ProductionOrderDTO is the API shape of one production order.
type ProductionOrderDTO struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	OrderItemID uuid.UUID `json:"order_item_id"`
	ProductID   uuid.UUID `json:"product_id"`
	Quantity    int       `json:"quantity"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`

	ScheduledStart   *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd     *time.Time `json:"scheduled_end,omitempty"`
	ActualStart      *time.Time `json:"actual_start,omitempty"`
	ActualEnd        *time.Time `json:"actual_end,omitempty"`
	AssignedTo       *uuid.UUID `json:"assigned_to,omitempty"`
	EstimatedMinutes *int       `json:"estimated_minutes,omitempty"`
	ActualMinutes    *int       `json:"actual_minutes,omitempty"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newProductionOrderDTO(order *models.ProductionOrder) *ProductionOrderDTO {
	if order == nil {
		return nil
	}
	return &ProductionOrderDTO{
		ID:               order.ID,
		OrderID:          order.OrderID,
		OrderItemID:      order.OrderItemID,
		ProductID:        order.ProductID,
		Quantity:         order.Quantity,
		Status:           order.Status.String(),
		Priority:         order.Priority.String(),
		ScheduledStart:   order.ScheduledStart,
		ScheduledEnd:     order.ScheduledEnd,
		ActualStart:      order.ActualStart,
		ActualEnd:        order.ActualEnd,
		AssignedTo:       order.AssignedTo,
		EstimatedMinutes: order.EstimatedMinutes,
		ActualMinutes:    order.ActualMinutes,
		IsActive:         order.IsActive,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
}
