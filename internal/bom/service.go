package bom

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/prodwell/prodwell-backend/internal/repo"
	"github.com/prodwell/prodwell-backend/pkg/db"
	"github.com/prodwell/prodwell-backend/pkg/db/models"
	"github.com/prodwell/prodwell-backend/pkg/enums"
	pkgerrors "github.com/prodwell/prodwell-backend/pkg/errors"
	"github.com/prodwell/prodwell-backend/pkg/validate"
)

// Service resolves composite products into their ordered hierarchies and
// manages hierarchies, components and associations.
type Service interface {
	CreateHierarchy(ctx context.Context, userID uuid.UUID, input CreateHierarchyInput) (*HierarchyDTO, error)
	UpdateHierarchy(ctx context.Context, userID, hierarchyID uuid.UUID, input UpdateHierarchyInput) (*HierarchyDTO, error)
	DeactivateHierarchy(ctx context.Context, userID, hierarchyID uuid.UUID) error
	AddComponent(ctx context.Context, userID, hierarchyID uuid.UUID, input AddComponentInput) (*ComponentDTO, error)
	ReorderComponents(ctx context.Context, userID, hierarchyID uuid.UUID, orderedIDs []uuid.UUID) error

	Resolve(ctx context.Context, productID uuid.UUID) ([]ResolvedEntry, error)
	CalculateCost(ctx context.Context, productID uuid.UUID, selection Selection) (decimal.Decimal, error)
	CalculateAssemblyTime(ctx context.Context, productID uuid.UUID, selection Selection) (time.Duration, error)

	CanAssociate(ctx context.Context, hierarchyID, productID uuid.UUID) (bool, string, error)
	Associate(ctx context.Context, userID uuid.UUID, input AssociateInput) (*AssociationDTO, error)
	UpdateAssociation(ctx context.Context, userID, associationID uuid.UUID, input UpdateAssociationInput) (*AssociationDTO, error)
	RemoveAssociation(ctx context.Context, userID, associationID uuid.UUID) error
}

// Selection picks optional hierarchies (by hierarchy id) and may override the
// per-association quantity. A zero or absent quantity falls back to the
// association's MinQuantity.
type Selection map[uuid.UUID]int

// CreateHierarchyInput holds the payload to create a hierarchy.
type CreateHierarchyInput struct {
	Name        string  `json:"name" validate:"required,min=1,max=200"`
	Description *string `json:"description"`
	Notes       *string `json:"notes"`
}

// UpdateHierarchyInput holds optional hierarchy mutations.
type UpdateHierarchyInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description"`
	Notes       *string `json:"notes"`
}

// AddComponentInput holds the payload to add a component to a hierarchy.
type AddComponentInput struct {
	Name           string  `json:"name" validate:"required,min=1,max=200"`
	Description    *string `json:"description"`
	AdditionalCost decimal.Decimal
	Unit           string `json:"unit"`
	Position       *int   `json:"position" validate:"omitempty,gte=0"`
}

// AssociateInput links a hierarchy to a composite product.
type AssociateInput struct {
	ProductID     uuid.UUID `json:"product_id" validate:"required"`
	HierarchyID   uuid.UUID `json:"hierarchy_id" validate:"required"`
	MinQuantity   int       `json:"min_quantity" validate:"gte=1"`
	MaxQuantity   int       `json:"max_quantity" validate:"gte=0"`
	IsOptional    bool      `json:"is_optional"`
	AssemblyOrder int       `json:"assembly_order" validate:"gte=1"`
	Notes         *string   `json:"notes"`
}

// UpdateAssociationInput holds optional association mutations.
type UpdateAssociationInput struct {
	MinQuantity   *int    `json:"min_quantity" validate:"omitempty,gte=1"`
	MaxQuantity   *int    `json:"max_quantity" validate:"omitempty,gte=0"`
	IsOptional    *bool   `json:"is_optional"`
	AssemblyOrder *int    `json:"assembly_order" validate:"omitempty,gte=1"`
	Notes         *string `json:"notes"`
}

// TimeFunc supplies the per-hierarchy assembly time contribution. The data
// model carries no time field on components yet, so the aggregation is
// pluggable until one exists.
type TimeFunc func(hierarchy *models.ProductComponentHierarchy, quantity int) time.Duration

// Option customizes the service.
type Option func(*service)

// WithAssemblyTimeFunc overrides the per-hierarchy time contribution.
func WithAssemblyTimeFunc(fn TimeFunc) Option {
	return func(s *service) {
		if fn != nil {
			s.assemblyTime = fn
		}
	}
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

var _ txRunner = (*db.Client)(nil)

type service struct {
	repo         *Repository
	dbClient     txRunner
	assemblyTime TimeFunc
}

// NewService constructs the BOM service.
func NewService(repository *Repository, dbClient txRunner, opts ...Option) (Service, error) {
	if repository == nil {
		return nil, fmt.Errorf("bom repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	s := &service{
		repo:     repository,
		dbClient: dbClient,
		assemblyTime: func(*models.ProductComponentHierarchy, int) time.Duration {
			return 0
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ValidateQuantity reports whether the requested quantity satisfies the
// association bounds. Zero MaxQuantity leaves the upper bound open.
func ValidateQuantity(association *models.CompositeProductXHierarchy, requestedQty int) bool {
	if association == nil {
		return false
	}
	return association.AcceptsQuantity(requestedQty)
}

// CreateHierarchy creates a reusable component bundle.
func (s *service) CreateHierarchy(ctx context.Context, userID uuid.UUID, input CreateHierarchyInput) (*HierarchyDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	hierarchy := &models.ProductComponentHierarchy{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Notes:       input.Notes,
		IsActive:    true,
		CreatedBy:   userID,
		UpdatedBy:   userID,
	}
	if _, err := s.repo.CreateHierarchy(ctx, hierarchy); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert hierarchy")
	}
	return newHierarchyDTO(hierarchy), nil
}

// UpdateHierarchy applies partial mutations to a hierarchy.
func (s *service) UpdateHierarchy(ctx context.Context, userID, hierarchyID uuid.UUID, input UpdateHierarchyInput) (*HierarchyDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	hierarchy, err := s.loadHierarchy(ctx, hierarchyID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		hierarchy.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		hierarchy.Description = input.Description
	}
	if input.Notes != nil {
		hierarchy.Notes = input.Notes
	}
	hierarchy.UpdatedBy = userID

	if _, err := s.repo.UpdateHierarchy(ctx, hierarchy); err != nil {
		if errors.Is(err, repo.ErrStaleRow) {
			return nil, pkgerrors.New(pkgerrors.CodeConcurrentModification, "hierarchy was modified concurrently")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update hierarchy")
	}
	return newHierarchyDTO(hierarchy), nil
}

// DeactivateHierarchy blocks new associations while existing production
// history keeps referencing the hierarchy.
func (s *service) DeactivateHierarchy(ctx context.Context, userID, hierarchyID uuid.UUID) error {
	hierarchy, err := s.loadHierarchy(ctx, hierarchyID)
	if err != nil {
		return err
	}
	if !hierarchy.IsActive {
		return nil
	}
	hierarchy.IsActive = false
	hierarchy.UpdatedBy = userID
	if _, err := s.repo.UpdateHierarchy(ctx, hierarchy); err != nil {
		if errors.Is(err, repo.ErrStaleRow) {
			return pkgerrors.New(pkgerrors.CodeConcurrentModification, "hierarchy was modified concurrently")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: deactivate hierarchy")
	}
	return nil
}

// AddComponent appends a component to the hierarchy. Without an explicit
// position it lands after the current last component.
func (s *service) AddComponent(ctx context.Context, userID, hierarchyID uuid.UUID, input AddComponentInput) (*ComponentDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if input.AdditionalCost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "additional_cost must be non-negative")
	}
	unit := enums.UnitPiece
	if input.Unit != "" {
		parsed, err := enums.ParseUnit(input.Unit)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown unit")
		}
		unit = parsed
	}

	hierarchy, err := s.loadHierarchy(ctx, hierarchyID)
	if err != nil {
		return nil, err
	}
	if !hierarchy.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "hierarchy is inactive")
	}

	component := &models.ProductComponent{
		HierarchyID:    hierarchyID,
		Name:           strings.TrimSpace(input.Name),
		Description:    input.Description,
		AdditionalCost: input.AdditionalCost,
		Unit:           unit,
		IsActive:       true,
		CreatedBy:      userID,
		UpdatedBy:      userID,
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if input.Position != nil {
			component.Position = *input.Position
		} else {
			next, err := txRepo.NextComponentPosition(ctx, hierarchyID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: next component position")
			}
			component.Position = next
		}
		if _, err := txRepo.CreateComponent(ctx, component); err != nil {
			if db.IsUniqueViolation(err, "ux_product_components_hierarchy_position",
				"product_components.hierarchy_id", "product_components.position") {
				return pkgerrors.New(pkgerrors.CodeValidation, "duplicate component position")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert component")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add component")
	}
	return newComponentDTO(component), nil
}

// ReorderComponents rewrites the intra-hierarchy production order.
func (s *service) ReorderComponents(ctx context.Context, userID, hierarchyID uuid.UUID, orderedIDs []uuid.UUID) error {
	if len(orderedIDs) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "ordered component ids required")
	}
	seen := make(map[uuid.UUID]struct{}, len(orderedIDs))
	for _, id := range orderedIDs {
		if _, ok := seen[id]; ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate component id in ordering")
		}
		seen[id] = struct{}{}
	}

	components, err := s.repo.ListComponents(ctx, hierarchyID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list components")
	}
	if len(components) != len(orderedIDs) {
		return pkgerrors.New(pkgerrors.CodeValidation, "ordering must cover every active component exactly once")
	}
	for _, component := range components {
		if _, ok := seen[component.ID]; !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "ordering must cover every active component exactly once")
		}
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).ReorderComponents(ctx, hierarchyID, orderedIDs); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reorder components")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reorder components")
	}
	return nil
}

// Resolve returns the composite product's hierarchies sorted by assembly
// order.
func (s *service) Resolve(ctx context.Context, productID uuid.UUID) ([]ResolvedEntry, error) {
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Variant != enums.ProductVariantComposite {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not composite")
	}

	associations, err := s.repo.ListAssociationsForProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list associations")
	}

	entries := make([]ResolvedEntry, 0, len(associations))
	for _, association := range associations {
		if association.Hierarchy == nil || !association.Hierarchy.IsActive {
			continue
		}
		entries = append(entries, ResolvedEntry{
			Association: association,
			Hierarchy:   *association.Hierarchy,
		})
	}
	return entries, nil
}

// CalculateCost sums component additional costs over the selected traversal,
// scaled by the effective association quantity.
func (s *service) CalculateCost(ctx context.Context, productID uuid.UUID, selection Selection) (decimal.Decimal, error) {
	total := decimal.Zero
	err := s.traverse(ctx, productID, selection, func(entry ResolvedEntry, qty int) {
		for _, component := range entry.Hierarchy.Components {
			total = total.Add(component.AdditionalCost.Mul(decimal.NewFromInt(int64(qty))))
		}
	})
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// CalculateAssemblyTime sums the pluggable per-hierarchy time contribution
// over the selected traversal.
func (s *service) CalculateAssemblyTime(ctx context.Context, productID uuid.UUID, selection Selection) (time.Duration, error) {
	var total time.Duration
	err := s.traverse(ctx, productID, selection, func(entry ResolvedEntry, qty int) {
		hierarchy := entry.Hierarchy
		total += s.assemblyTime(&hierarchy, qty)
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// traverse walks the resolved entries, applying selection and quantity rules,
// and calls visit once per included entry.
func (s *service) traverse(ctx context.Context, productID uuid.UUID, selection Selection, visit func(entry ResolvedEntry, qty int)) error {
	entries, err := s.Resolve(ctx, productID)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		selected, chosen := selection[entry.Association.HierarchyID]
		if entry.Association.IsOptional && !chosen {
			continue
		}
		qty := entry.Association.MinQuantity
		if chosen && selected > 0 {
			qty = selected
		}
		if !entry.Association.AcceptsQuantity(qty) {
			return pkgerrors.New(pkgerrors.CodeValidation, "selected quantity outside association bounds").
				WithDetails(map[string]any{"hierarchy_id": entry.Association.HierarchyID, "quantity": qty})
		}
		visit(entry, qty)
	}
	return nil
}

// CanAssociate reports whether the hierarchy may be linked to the product,
// with a human-readable reason when it may not.
func (s *service) CanAssociate(ctx context.Context, hierarchyID, productID uuid.UUID) (bool, string, error) {
	hierarchy, err := s.loadHierarchy(ctx, hierarchyID)
	if err != nil {
		return false, "", err
	}
	if !hierarchy.IsActive {
		return false, "hierarchy is inactive", nil
	}
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return false, "", err
	}
	if product.Variant != enums.ProductVariantComposite {
		return false, "product is not composite", nil
	}
	if _, err := s.repo.FindAssociation(ctx, productID, hierarchyID); err == nil {
		return false, "hierarchy already associated with product", nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find association")
	}
	return true, "", nil
}

// Associate links a hierarchy to a composite product. Assembly-order
// uniqueness is enforced by the unique index inside the same transaction, so
// two concurrent writers cannot both claim one slot.
func (s *service) Associate(ctx context.Context, userID uuid.UUID, input AssociateInput) (*AssociationDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if input.MaxQuantity != 0 && input.MaxQuantity < input.MinQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max_quantity must be 0 or >= min_quantity")
	}

	ok, reason, err := s.CanAssociate(ctx, input.HierarchyID, input.ProductID)
	if err != nil {
		return nil, err
	}
	if !ok {
		if reason == "hierarchy already associated with product" {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, reason)
		}
		return nil, pkgerrors.New(pkgerrors.CodeValidation, reason)
	}

	association := &models.CompositeProductXHierarchy{
		ProductID:     input.ProductID,
		HierarchyID:   input.HierarchyID,
		MinQuantity:   input.MinQuantity,
		MaxQuantity:   input.MaxQuantity,
		IsOptional:    input.IsOptional,
		AssemblyOrder: input.AssemblyOrder,
		Notes:         input.Notes,
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).CreateAssociation(ctx, association); err != nil {
			if db.IsUniqueViolation(err, "ux_composite_hierarchy_assembly_order",
				"composite_product_x_hierarchies.assembly_order") {
				return pkgerrors.New(pkgerrors.CodeValidation, "duplicate assembly order for product")
			}
			if db.IsUniqueViolation(err, "ux_composite_hierarchy_link",
				"composite_product_x_hierarchies.hierarchy_id") {
				return pkgerrors.New(pkgerrors.CodeConflict, "hierarchy already associated with product")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert association")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "associate hierarchy")
	}
	return newAssociationDTO(association), nil
}

// UpdateAssociation mutates quantity bounds, optionality or assembly order.
func (s *service) UpdateAssociation(ctx context.Context, userID, associationID uuid.UUID, input UpdateAssociationInput) (*AssociationDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	association, err := s.repo.FindAssociationByID(ctx, associationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "association not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load association")
	}

	if input.MinQuantity != nil {
		association.MinQuantity = *input.MinQuantity
	}
	if input.MaxQuantity != nil {
		association.MaxQuantity = *input.MaxQuantity
	}
	if input.IsOptional != nil {
		association.IsOptional = *input.IsOptional
	}
	if input.AssemblyOrder != nil {
		association.AssemblyOrder = *input.AssemblyOrder
	}
	if input.Notes != nil {
		association.Notes = input.Notes
	}
	if association.MaxQuantity != 0 && association.MaxQuantity < association.MinQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max_quantity must be 0 or >= min_quantity")
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).UpdateAssociation(ctx, association); err != nil {
			if db.IsUniqueViolation(err, "ux_composite_hierarchy_assembly_order",
				"composite_product_x_hierarchies.assembly_order") {
				return pkgerrors.New(pkgerrors.CodeValidation, "duplicate assembly order for product")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update association")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update association")
	}
	return newAssociationDTO(association), nil
}

// RemoveAssociation unlinks the hierarchy from the product.
func (s *service) RemoveAssociation(ctx context.Context, userID, associationID uuid.UUID) error {
	if err := s.repo.DeleteAssociation(ctx, associationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "association not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete association")
	}
	return nil
}

func (s *service) loadHierarchy(ctx context.Context, hierarchyID uuid.UUID) (*models.ProductComponentHierarchy, error) {
	hierarchy, err := s.repo.FindHierarchyByID(ctx, hierarchyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "hierarchy not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load hierarchy")
	}
	return hierarchy, nil
}

func (s *service) loadProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	return product, nil
}
