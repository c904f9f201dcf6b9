package bom

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prodwell/prodwell-backend/pkg/db/models"
)

// HierarchyDTO is the outward shape of a component hierarchy.
type HierarchyDTO struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description *string        `json:"description,omitempty"`
	Notes       *string        `json:"notes,omitempty"`
	IsActive    bool           `json:"is_active"`
	Components  []ComponentDTO `json:"components,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ComponentDTO is one component inside a hierarchy.
type ComponentDTO struct {
	ID             uuid.UUID       `json:"id"`
	HierarchyID    uuid.UUID       `json:"hierarchy_id"`
	Name           string          `json:"name"`
	Description    *string         `json:"description,omitempty"`
	AdditionalCost decimal.Decimal `json:"additional_cost"`
	Unit           string          `json:"unit"`
	Position       int             `json:"position"`
}

// AssociationDTO is one product/hierarchy link.
type AssociationDTO struct {
	ID            uuid.UUID `json:"id"`
	ProductID     uuid.UUID `json:"product_id"`
	HierarchyID   uuid.UUID `json:"hierarchy_id"`
	MinQuantity   int       `json:"min_quantity"`
	MaxQuantity   int       `json:"max_quantity"`
	IsOptional    bool      `json:"is_optional"`
	AssemblyOrder int       `json:"assembly_order"`
	Notes         *string   `json:"notes,omitempty"`
}

// ResolvedEntry is one step of a resolved composite product, in assembly
// order.
type ResolvedEntry struct {
	Association models.CompositeProductXHierarchy
	Hierarchy   models.ProductComponentHierarchy
}

func newHierarchyDTO(hierarchy *models.ProductComponentHierarchy) *HierarchyDTO {
	if hierarchy == nil {
		return nil
	}
	dto := &HierarchyDTO{
		ID:          hierarchy.ID,
		Name:        hierarchy.Name,
		Description: hierarchy.Description,
		Notes:       hierarchy.Notes,
		IsActive:    hierarchy.IsActive,
		CreatedAt:   hierarchy.CreatedAt,
		UpdatedAt:   hierarchy.UpdatedAt,
	}
	for i := range hierarchy.Components {
		dto.Components = append(dto.Components, *newComponentDTO(&hierarchy.Components[i]))
	}
	return dto
}

func newComponentDTO(component *models.ProductComponent) *ComponentDTO {
	if component == nil {
		return nil
	}
	return &ComponentDTO{
		ID:             component.ID,
		HierarchyID:    component.HierarchyID,
		Name:           component.Name,
		Description:    component.Description,
		AdditionalCost: component.AdditionalCost,
		Unit:           component.Unit.String(),
		Position:       component.Position,
	}
}

func newAssociationDTO(association *models.CompositeProductXHierarchy) *AssociationDTO {
	if association == nil {
		return nil
	}
	return &AssociationDTO{
		ID:            association.ID,
		ProductID:     association.ProductID,
		HierarchyID:   association.HierarchyID,
		MinQuantity:   association.MinQuantity,
		MaxQuantity:   association.MaxQuantity,
		IsOptional:    association.IsOptional,
		AssemblyOrder: association.AssemblyOrder,
		Notes:         association.Notes,
	}
}
