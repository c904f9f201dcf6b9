package demands

import (
	"time"

	"github.com/google/uuid"

	"github.com/prodwell/prodwell-backend/pkg/db/models"
)

// DemandDTO is the API shape of one unit of production work.
type DemandDTO struct {
	ID                uuid.UUID  `json:"id"`
	OrderItemID       uuid.UUID  `json:"order_item_id"`
	ProductionOrderID *uuid.UUID `json:"production_order_id,omitempty"`
	ProductID         uuid.UUID  `json:"product_id"`
	ProductName       string     `json:"product_name,omitempty"`
	Quantity          int        `json:"quantity"`
	Status            string     `json:"status"`
	ExpectedDate      *time.Time `json:"expected_date,omitempty"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	Overdue           bool       `json:"overdue"`
	DaysRemaining     int        `json:"days_remaining"`

	Compositions []CompositionDTO `json:"compositions,omitempty"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CompositionDTO is one resolved component instance of a demand.
type CompositionDTO struct {
	ID                    uuid.UUID  `json:"id"`
	DemandID              uuid.UUID  `json:"demand_id"`
	ProductComponentID    uuid.UUID  `json:"product_component_id"`
	HierarchyName         string     `json:"hierarchy_name"`
	Quantity              int        `json:"quantity"`
	Unit                  string     `json:"unit"`
	IsOptional            bool       `json:"is_optional"`
	ProcessingOrder       int        `json:"processing_order"`
	ProcessingStartedAt   *time.Time `json:"processing_started_at,omitempty"`
	ProcessingCompletedAt *time.Time `json:"processing_completed_at,omitempty"`
	Processed             bool       `json:"processed"`
}

func newDemandDTO(demand *models.Demand, now time.Time) *DemandDTO {
	if demand == nil {
		return nil
	}
	dto := &DemandDTO{
		ID:                demand.ID,
		OrderItemID:       demand.OrderItemID,
		ProductionOrderID: demand.ProductionOrderID,
		ProductID:         demand.ProductID,
		Quantity:          demand.Quantity,
		Status:            demand.Status.String(),
		ExpectedDate:      demand.ExpectedDate,
		StartedAt:         demand.StartedAt,
		CompletedAt:       demand.CompletedAt,
		Overdue:           demand.IsOverdue(now),
		DaysRemaining:     demand.DaysRemaining(now),
		IsActive:          demand.IsActive,
		CreatedAt:         demand.CreatedAt,
		UpdatedAt:         demand.UpdatedAt,
	}
	if demand.Product != nil {
		dto.ProductName = demand.Product.Name
	}
	for i := range demand.Compositions {
		dto.Compositions = append(dto.Compositions, *newCompositionDTO(&demand.Compositions[i]))
	}
	return dto
}

func newCompositionDTO(row *models.ProductComposition) *CompositionDTO {
	if row == nil {
		return nil
	}
	return &CompositionDTO{
		ID:                    row.ID,
		DemandID:              row.DemandID,
		ProductComponentID:    row.ProductComponentID,
		HierarchyName:         row.HierarchyName,
		Quantity:              row.Quantity,
		Unit:                  row.Unit.String(),
		IsOptional:            row.IsOptional,
		ProcessingOrder:       row.ProcessingOrder,
		ProcessingStartedAt:   row.ProcessingStartedAt,
		ProcessingCompletedAt: row.ProcessingCompletedAt,
		Processed:             row.IsProcessed(),
	}
}
