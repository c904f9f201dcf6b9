package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prodwell/prodwell-backend/pkg/db/models"
)

// OrderDTO is the API shape of a sales order.
type OrderDTO struct {
	ID           uuid.UUID       `json:"id"`
	CustomerName string          `json:"customer_name"`
	Reference    string          `json:"reference"`
	Status       string          `json:"status"`
	Notes        *string         `json:"notes,omitempty"`
	Total        decimal.Decimal `json:"total"`

	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	Items []OrderItemDTO `json:"items,omitempty"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderItemDTO is the API shape of one order line.
type OrderItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     uuid.UUID       `json:"order_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	Notes       *string         `json:"notes,omitempty"`
}

func newOrderDTO(order *models.OrderEntry) *OrderDTO {
	if order == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:           order.ID,
		CustomerName: order.CustomerName,
		Reference:    order.Reference,
		Status:       order.Status.String(),
		Notes:        order.Notes,
		Total:        order.Total,
		ConfirmedAt:  order.ConfirmedAt,
		DeliveredAt:  order.DeliveredAt,
		CompletedAt:  order.CompletedAt,
		CancelledAt:  order.CancelledAt,
		IsActive:     order.IsActive,
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
	}
	for i := range order.Items {
		dto.Items = append(dto.Items, *newOrderItemDTO(&order.Items[i]))
	}
	return dto
}

func newOrderItemDTO(item *models.OrderItem) *OrderItemDTO {
	if item == nil {
		return nil
	}
	dto := &OrderItemDTO{
		ID:        item.ID,
		OrderID:   item.OrderID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		UnitPrice: item.UnitPrice,
		LineTotal: item.LineTotal(),
		Notes:     item.Notes,
	}
	if item.Product != nil {
		dto.ProductName = item.Product.Name
	}
	return dto
}
