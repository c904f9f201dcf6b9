package demands

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/prodwell/prodwell-backend/internal/groups"
	"github.com/prodwell/prodwell-backend/pkg/db/models"
	"github.com/prodwell/prodwell-backend/pkg/enums"
	pkgerrors "github.com/prodwell/prodwell-backend/pkg/errors"
	"github.com/prodwell/prodwell-backend/pkg/eventlog"
)

func TestExpandCompositeDemand(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	product := mustCreateProduct(t, conn, enums.ProductVariantComposite, "Wardrobe")
	doors := mustCreateHierarchy(t, conn, "Doors", "Left Door", "Right Door")
	body := mustCreateHierarchy(t, conn, "Body", "Side Panel", "Back Panel", "Shelf")
	// Body assembles first despite being linked second.
	mustAssociate(t, conn, product.ID, doors.ID, 2, 1, false)
	mustAssociate(t, conn, product.ID, body.ID, 1, 2, false)

	demand := mustCreateDemand(t, conn, product.ID, 3)

	dto, err := svc.Expand(ctx, userID, demand.ID, ExpandInput{})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(dto.Compositions) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(dto.Compositions))
	}

	for i, row := range dto.Compositions {
		if row.ProcessingOrder != i {
			t.Fatalf("expected dense order at %d, got %d", i, row.ProcessingOrder)
		}
	}
	if dto.Compositions[0].HierarchyName != "Body" {
		t.Fatalf("expected body rows first, got %s", dto.Compositions[0].HierarchyName)
	}
	if dto.Compositions[3].HierarchyName != "Doors" {
		t.Fatalf("expected door rows last, got %s", dto.Compositions[3].HierarchyName)
	}
	// Body association needs 2 per unit for a demand of 3.
	if dto.Compositions[0].Quantity != 6 {
		t.Fatalf("expected quantity 6, got %d", dto.Compositions[0].Quantity)
	}
	if dto.Compositions[3].Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", dto.Compositions[3].Quantity)
	}

	events, err := eventlog.ListForAggregate(ctx, conn, enums.AggregateDemand, demand.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 || events[0].EventType != enums.EventDemandExpanded {
		t.Fatalf("expected one demand.expanded event, got %v", events)
	}
}

func TestExpandIsRejectedOnSecondCall(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	product := mustCreateProduct(t, conn, enums.ProductVariantComposite, "Cabinet")
	hierarchy := mustCreateHierarchy(t, conn, "Frame", "Beam")
	mustAssociate(t, conn, product.ID, hierarchy.ID, 1, 1, false)
	demand := mustCreateDemand(t, conn, product.ID, 1)

	if _, err := svc.Expand(ctx, userID, demand.ID, ExpandInput{}); err != nil {
		t.Fatalf("first expand: %v", err)
	}
	_, err := svc.Expand(ctx, userID, demand.ID, ExpandInput{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeAlreadyExpanded) {
		t.Fatalf("expected already-expanded error, got %v", err)
	}

	// The stored rows must be untouched by the rejected call.
	rows, listErr := NewRepository(conn).ListCompositions(ctx, demand.ID)
	if listErr != nil {
		t.Fatalf("list rows: %v", listErr)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
}

func TestExpandSnapshotsHierarchyName(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	product := mustCreateProduct(t, conn, enums.ProductVariantComposite, "Table")
	hierarchy := mustCreateHierarchy(t, conn, "Original Name", "Part")
	mustAssociate(t, conn, product.ID, hierarchy.ID, 1, 1, false)
	demand := mustCreateDemand(t, conn, product.ID, 1)

	dto, err := svc.Expand(ctx, userID, demand.ID, ExpandInput{})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if dto.Compositions[0].HierarchyName != "Original Name" {
		t.Fatalf("expected snapshot name, got %s", dto.Compositions[0].HierarchyName)
	}

	err = conn.Model(&models.ProductComponentHierarchy{}).
		Where("id = ?", hierarchy.ID).
		Update("name", "Renamed").Error
	if err != nil {
		t.Fatalf("rename hierarchy: %v", err)
	}

	reloaded, err := svc.GetDemand(ctx, demand.ID)
	if err != nil {
		t.Fatalf("get demand: %v", err)
	}
	if reloaded.Compositions[0].HierarchyName != "Original Name" {
		t.Fatalf("snapshot must survive rename, got %s", reloaded.Compositions[0].HierarchyName)
	}
}

func TestExpandSkipsInactiveHierarchies(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	product := mustCreateProduct(t, conn, enums.ProductVariantComposite, "Bookcase")
	active := mustCreateHierarchy(t, conn, "Shelves", "Shelf")
	retired := mustCreateHierarchy(t, conn, "Old Trim", "Trim")
	if err := conn.Model(&models.ProductComponentHierarchy{}).
		Where("id = ?", retired.ID).
		Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate hierarchy: %v", err)
	}
	mustAssociate(t, conn, product.ID, active.ID, 1, 1, false)
	mustAssociate(t, conn, product.ID, retired.ID, 2, 1, false)

	demand := mustCreateDemand(t, conn, product.ID, 1)
	dto, err := svc.Expand(ctx, userID, demand.ID, ExpandInput{})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(dto.Compositions) != 1 || dto.Compositions[0].HierarchyName != "Shelves" {
		t.Fatalf("expected only active hierarchy rows, got %+v", dto.Compositions)
	}
}

func TestExpandGroupDelegatesToCompositeMembers(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	group := mustCreateProduct(t, conn, enums.ProductVariantGroup, "Office Set")
	desk := mustCreateProduct(t, conn, enums.ProductVariantComposite, "Desk")
	chair := mustCreateProduct(t, conn, enums.ProductVariantSimple, "Chair")

	frame := mustCreateHierarchy(t, conn, "Desk Frame", "Beam", "Top")
	mustAssociate(t, conn, desk.ID, frame.ID, 1, 1, false)

	for _, member := range []struct {
		productID uuid.UUID
		defQty    int
	}{
		{desk.ID, 2},
		{chair.ID, 4},
	} {
		item := &models.ProductGroupItem{
			ID:              uuid.New(),
			GroupID:         group.ID,
			ProductID:       member.productID,
			Quantity:        1,
			DefaultQuantity: member.defQty,
			IsActive:        true,
			CreatedBy:       uuid.New(),
			UpdatedBy:       uuid.New(),
		}
		if err := conn.Create(item).Error; err != nil {
			t.Fatalf("create group item: %v", err)
		}
	}

	demand := mustCreateDemand(t, conn, group.ID, 1)
	dto, err := svc.Expand(ctx, userID, demand.ID, ExpandInput{})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	// Only the composite member contributes rows; the simple chair has no
	// component structure to materialize.
	if len(dto.Compositions) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(dto.Compositions))
	}
	if dto.Compositions[0].Quantity != 2 {
		t.Fatalf("expected default quantity multiplier 2, got %d", dto.Compositions[0].Quantity)
	}
}

func TestExpandOmitsUnselectedOptionalHierarchies(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	product := mustCreateProduct(t, conn, enums.ProductVariantComposite, "Bed")
	frame := mustCreateHierarchy(t, conn, "Frame", "Slat Base")
	storage := mustCreateHierarchy(t, conn, "Underbed Storage", "Drawer", "Rail Kit")
	mustAssociate(t, conn, product.ID, frame.ID, 1, 1, false)
	mustAssociate(t, conn, product.ID, storage.ID, 2, 1, true)

	demand := mustCreateDemand(t, conn, product.ID, 1)
	dto, err := svc.Expand(ctx, userID, demand.ID, ExpandInput{})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(dto.Compositions) != 1 {
		t.Fatalf("expected only required rows, got %d", len(dto.Compositions))
	}
	if dto.Compositions[0].HierarchyName != "Frame" {
		t.Fatalf("expected frame row, got %s", dto.Compositions[0].HierarchyName)
	}
}

func TestExpandIncludesSelectedOptionalHierarchies(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	product := mustCreateProduct(t, conn, enums.ProductVariantComposite, "Sofa")
	seat := mustCreateHierarchy(t, conn, "Seat", "Base", "Cushion")
	cover := mustCreateHierarchy(t, conn, "Washable Cover", "Cover")
	mustAssociate(t, conn, product.ID, seat.ID, 1, 1, false)
	mustAssociate(t, conn, product.ID, cover.ID, 2, 1, true)

	demand := mustCreateDemand(t, conn, product.ID, 2)
	dto, err := svc.Expand(ctx, userID, demand.ID, ExpandInput{
		OptionalHierarchies: []uuid.UUID{cover.ID},
	})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(dto.Compositions) != 3 {
		t.Fatalf("expected required and selected optional rows, got %d", len(dto.Compositions))
	}
	last := dto.Compositions[2]
	if last.HierarchyName != "Washable Cover" || !last.IsOptional {
		t.Fatalf("expected optional cover row last, got %+v", last)
	}
	if last.Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", last.Quantity)
	}
	for i, row := range dto.Compositions {
		if row.ProcessingOrder != i {
			t.Fatalf("expected dense order at %d, got %d", i, row.ProcessingOrder)
		}
	}
}

func TestExpandGroupSelectionValidated(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	group := mustCreateProduct(t, conn, enums.ProductVariantGroup, "Bedroom Set")
	bed := mustCreateProduct(t, conn, enums.ProductVariantComposite, "Bed")
	frame := mustCreateHierarchy(t, conn, "Bed Frame", "Headboard")
	mustAssociate(t, conn, bed.ID, frame.ID, 1, 1, false)

	item := &models.ProductGroupItem{
		ID:              uuid.New(),
		GroupID:         group.ID,
		ProductID:       bed.ID,
		Quantity:        1,
		DefaultQuantity: 1,
		IsActive:        true,
		CreatedBy:       uuid.New(),
		UpdatedBy:       uuid.New(),
	}
	if err := conn.Create(item).Error; err != nil {
		t.Fatalf("create group item: %v", err)
	}
	if err := conn.Model(&models.Product{}).
		Where("id = ?", group.ID).
		Update("min_items_required", 2).Error; err != nil {
		t.Fatalf("set group minimum: %v", err)
	}

	demand := mustCreateDemand(t, conn, group.ID, 1)
	_, err := svc.Expand(ctx, userID, demand.ID, ExpandInput{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected selection validation error, got %v", err)
	}

	// A conforming selection expands, honoring the requested quantity.
	if err := conn.Model(&models.Product{}).
		Where("id = ?", group.ID).
		Update("min_items_required", 1).Error; err != nil {
		t.Fatalf("relax group minimum: %v", err)
	}
	dto, err := svc.Expand(ctx, userID, demand.ID, ExpandInput{
		Members: []groups.SelectedItem{{ProductID: bed.ID, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("expand with selection: %v", err)
	}
	if len(dto.Compositions) != 1 || dto.Compositions[0].Quantity != 3 {
		t.Fatalf("expected one row at quantity 3, got %+v", dto.Compositions)
	}
}

func TestExpandSimpleProductRejected(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	product := mustCreateProduct(t, conn, enums.ProductVariantSimple, "Plain Chair")
	demand := mustCreateDemand(t, conn, product.ID, 1)

	_, err := svc.Expand(ctx, userID, demand.ID, ExpandInput{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExpandRejectedAfterProduction(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	product := mustCreateProduct(t, conn, enums.ProductVariantComposite, "Dresser")
	hierarchy := mustCreateHierarchy(t, conn, "Drawers", "Drawer")
	mustAssociate(t, conn, product.ID, hierarchy.ID, 1, 1, false)
	demand := mustCreateDemand(t, conn, product.ID, 1)

	if _, err := svc.Confirm(ctx, userID, demand.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := svc.MarkAsProduced(ctx, userID, demand.ID); err != nil {
		t.Fatalf("mark as produced: %v", err)
	}

	_, err := svc.Expand(ctx, userID, demand.ID, ExpandInput{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeIllegalTransition) {
		t.Fatalf("expected illegal transition, got %v", err)
	}
}
