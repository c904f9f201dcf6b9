package demands

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prodwell/prodwell-backend/internal/groups"
	"github.com/prodwell/prodwell-backend/pkg/db"
	"github.com/prodwell/prodwell-backend/pkg/db/models"
	"github.com/prodwell/prodwell-backend/pkg/enums"
	pkgerrors "github.com/prodwell/prodwell-backend/pkg/errors"
	"github.com/prodwell/prodwell-backend/pkg/eventlog"
)

// ExpandInput selects the optional parts of the product structure. Required
// hierarchy entries always expand; an optional hierarchy contributes rows
// only when named in OptionalHierarchies. For a group demand, Members is the
// configured selection checked by the group configurator; when empty, every
// active member at its default quantity is used instead.
type ExpandInput struct {
	OptionalHierarchies []uuid.UUID           `json:"optional_hierarchies"`
	Members             []groups.SelectedItem `json:"members"`
}

func (in ExpandInput) selectedHierarchies() map[uuid.UUID]bool {
	selected := make(map[uuid.UUID]bool, len(in.OptionalHierarchies))
	for _, id := range in.OptionalHierarchies {
		selected[id] = true
	}
	return selected
}

// Expand materializes the demand's product structure into composition rows.
// Expansion happens exactly once per demand: a second call is rejected
// rather than merged, so the processing sequence stays stable once work may
// have started on it.
func (s *service) Expand(ctx context.Context, userID, demandID uuid.UUID, input ExpandInput) (*DemandDTO, error) {
	demand, err := s.loadDemand(ctx, demandID)
	if err != nil {
		return nil, err
	}
	if demand.Status != enums.DemandStatusPending && demand.Status != enums.DemandStatusConfirmed {
		s.metrics.ObserveExpansion("rejected", 0)
		return nil, pkgerrors.New(pkgerrors.CodeIllegalTransition,
			"demand can only be expanded before production").
			WithDetails(map[string]any{"status": demand.Status.String()})
	}

	count, err := s.repo.CountCompositions(ctx, demandID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count composition rows")
	}
	if count > 0 {
		s.metrics.ObserveExpansion("already_expanded", 0)
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyExpanded, "demand is already expanded").
			WithDetails(map[string]any{"rows": count})
	}

	rows, err := s.buildCompositionRows(ctx, demand, input)
	if err != nil {
		s.metrics.ObserveExpansion("rejected", 0)
		return nil, err
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		bound := s.repo.WithTx(tx)
		if err := bound.CreateCompositions(ctx, rows); err != nil {
			if db.IsUniqueViolation(err, "ux_product_compositions_processing_order",
				"product_compositions.demand_id", "product_compositions.processing_order") {
				return pkgerrors.New(pkgerrors.CodeAlreadyExpanded, "demand was expanded concurrently")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert composition rows")
		}
		return s.events.Record(ctx, tx, eventlog.DomainEvent{
			EventType:     enums.EventDemandExpanded,
			AggregateType: enums.AggregateDemand,
			AggregateID:   demand.ID,
			Actor:         &eventlog.ActorRef{UserID: userID},
			Version:       1,
			Data: map[string]any{
				"product_id": demand.ProductID,
				"rows":       len(rows),
			},
		})
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expand demand")
	}

	s.metrics.ObserveExpansion("expanded", len(rows))
	return s.GetDemand(ctx, demandID)
}

// buildCompositionRows walks the demand's product structure. Composite
// products contribute their hierarchies in assembly order; group products
// delegate to the selected composite members in configuration order.
// Processing order is assigned densely from zero across the whole result.
func (s *service) buildCompositionRows(ctx context.Context, demand *models.Demand, input ExpandInput) ([]models.ProductComposition, error) {
	product, err := s.repo.FindProductByID(ctx, demand.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}

	selected := input.selectedHierarchies()

	var rows []models.ProductComposition
	next := 0

	switch product.Variant {
	case enums.ProductVariantComposite:
		rows, next, err = s.appendCompositeRows(ctx, rows, next, demand, product.ID, 1, selected)
		if err != nil {
			return nil, err
		}
	case enums.ProductVariantGroup:
		rows, next, err = s.appendGroupRows(ctx, rows, next, demand, product.ID, input.Members, selected)
		if err != nil {
			return nil, err
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product has no composition to expand").
			WithDetails(map[string]any{"variant": product.Variant.String()})
	}

	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product structure yields no composition rows")
	}
	return rows, nil
}

// appendGroupRows resolves the member selection for a group demand through
// the configurator and expands each selected composite member. Members with
// no component structure contribute nothing.
func (s *service) appendGroupRows(ctx context.Context, rows []models.ProductComposition, next int, demand *models.Demand, groupID uuid.UUID, members []groups.SelectedItem, selected map[uuid.UUID]bool) ([]models.ProductComposition, int, error) {
	items, err := s.repo.ListGroupItems(ctx, groupID)
	if err != nil {
		return nil, next, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list group items")
	}

	if len(members) == 0 {
		for i := range items {
			members = append(members, groups.SelectedItem{ProductID: items[i].ProductID})
		}
	}
	if err := s.configurator.ValidateSelection(ctx, groupID, members); err != nil {
		return nil, next, err
	}

	quantities := make(map[uuid.UUID]int, len(members))
	for _, member := range members {
		if qty, ok := quantities[member.ProductID]; !ok || member.Quantity > qty {
			quantities[member.ProductID] = member.Quantity
		}
	}

	for i := range items {
		item := &items[i]
		requested, chosen := quantities[item.ProductID]
		if !chosen {
			continue
		}
		if item.Product == nil || item.Product.Variant != enums.ProductVariantComposite {
			continue
		}
		multiplier := requested
		if multiplier <= 0 {
			multiplier = item.DefaultQuantity
		}
		if multiplier <= 0 {
			multiplier = 1
		}
		rows, next, err = s.appendCompositeRows(ctx, rows, next, demand, item.ProductID, multiplier, selected)
		if err != nil {
			return nil, next, err
		}
	}
	return rows, next, nil
}

func (s *service) appendCompositeRows(ctx context.Context, rows []models.ProductComposition, next int, demand *models.Demand, productID uuid.UUID, multiplier int, selected map[uuid.UUID]bool) ([]models.ProductComposition, int, error) {
	associations, err := s.repo.ListAssociationsForProduct(ctx, productID)
	if err != nil {
		return nil, next, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list hierarchy associations")
	}
	for i := range associations {
		association := &associations[i]
		hierarchy := association.Hierarchy
		if hierarchy == nil || !hierarchy.IsActive {
			continue
		}
		// Optional assemblies are built only on request.
		if association.IsOptional && !selected[association.HierarchyID] {
			continue
		}
		quantity := association.MinQuantity * demand.Quantity * multiplier
		for j := range hierarchy.Components {
			component := &hierarchy.Components[j]
			rows = append(rows, models.ProductComposition{
				DemandID:           demand.ID,
				ProductComponentID: component.ID,
				HierarchyName:      hierarchy.Name,
				Quantity:           quantity,
				Unit:               component.Unit,
				IsOptional:         association.IsOptional,
				ProcessingOrder:    next,
				IsActive:           true,
			})
			next++
		}
	}
	return rows, next, nil
}
