package bom

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/prodwell/prodwell-backend/pkg/db"
	"github.com/prodwell/prodwell-backend/pkg/db/models"
)

func TestRepositoryAssociationFlow(t *testing.T) {
	conn := openTestDB(t)
	repository := NewRepository(conn)
	ctx := context.Background()

	product := mustCreateCompositeProduct(t, conn)
	base := mustCreateHierarchy(t, repository, "Base Frame")
	finish := mustCreateHierarchy(t, repository, "Finish Kit")
	mustCreateComponent(t, repository, base.ID, "Panel", 4, 0)
	mustCreateComponent(t, repository, finish.ID, "Varnish", 2, 0)

	// inserted out of assembly order on purpose
	_, err := repository.CreateAssociation(ctx, &models.CompositeProductXHierarchy{
		ProductID:     product.ID,
		HierarchyID:   finish.ID,
		MinQuantity:   1,
		AssemblyOrder: 2,
	})
	require.NoError(t, err)
	_, err = repository.CreateAssociation(ctx, &models.CompositeProductXHierarchy{
		ProductID:     product.ID,
		HierarchyID:   base.ID,
		MinQuantity:   1,
		AssemblyOrder: 1,
	})
	require.NoError(t, err)

	associations, err := repository.ListAssociationsForProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, associations, 2)
	require.Equal(t, base.ID, associations[0].HierarchyID)
	require.Equal(t, finish.ID, associations[1].HierarchyID)
	require.NotNil(t, associations[0].Hierarchy)
	require.Len(t, associations[0].Hierarchy.Components, 1)

	link, err := repository.FindAssociation(ctx, product.ID, base.ID)
	require.NoError(t, err)

	link.MinQuantity = 2
	link.MaxQuantity = 4
	_, err = repository.UpdateAssociation(ctx, link)
	require.NoError(t, err)

	reloaded, err := repository.FindAssociationByID(ctx, link.ID)
	require.NoError(t, err)
	require.Equal(t, 2, reloaded.MinQuantity)
	require.Equal(t, 4, reloaded.MaxQuantity)

	require.NoError(t, repository.DeleteAssociation(ctx, link.ID))
	_, err = repository.FindAssociation(ctx, product.ID, base.ID)
	require.Error(t, err)
}

func TestRepositoryRejectsDuplicateAssemblyOrder(t *testing.T) {
	conn := openTestDB(t)
	repository := NewRepository(conn)
	ctx := context.Background()

	product := mustCreateCompositeProduct(t, conn)
	first := mustCreateHierarchy(t, repository, "First")
	second := mustCreateHierarchy(t, repository, "Second")

	_, err := repository.CreateAssociation(ctx, &models.CompositeProductXHierarchy{
		ProductID:     product.ID,
		HierarchyID:   first.ID,
		MinQuantity:   1,
		AssemblyOrder: 1,
	})
	require.NoError(t, err)

	_, err = repository.CreateAssociation(ctx, &models.CompositeProductXHierarchy{
		ProductID:     product.ID,
		HierarchyID:   second.ID,
		MinQuantity:   1,
		AssemblyOrder: 1,
	})
	require.Error(t, err)
	require.True(t, db.IsUniqueViolation(err, "ux_composite_hierarchy_assembly_order",
		"composite_product_x_hierarchies.assembly_order"))
	require.False(t, db.IsUniqueViolation(err, "ux_composite_hierarchy_link",
		"composite_product_x_hierarchies.hierarchy_id"))
}

func TestRepositoryRejectsDuplicateLink(t *testing.T) {
	conn := openTestDB(t)
	repository := NewRepository(conn)
	ctx := context.Background()

	product := mustCreateCompositeProduct(t, conn)
	hierarchy := mustCreateHierarchy(t, repository, "Only")

	_, err := repository.CreateAssociation(ctx, &models.CompositeProductXHierarchy{
		ProductID:     product.ID,
		HierarchyID:   hierarchy.ID,
		MinQuantity:   1,
		AssemblyOrder: 1,
	})
	require.NoError(t, err)

	_, err = repository.CreateAssociation(ctx, &models.CompositeProductXHierarchy{
		ProductID:     product.ID,
		HierarchyID:   hierarchy.ID,
		MinQuantity:   1,
		AssemblyOrder: 2,
	})
	require.Error(t, err)
	require.True(t, db.IsUniqueViolation(err, "ux_composite_hierarchy_link",
		"composite_product_x_hierarchies.hierarchy_id"))
	require.False(t, db.IsUniqueViolation(err, "ux_composite_hierarchy_assembly_order",
		"composite_product_x_hierarchies.assembly_order"))
}

func TestRepositoryReorderComponents(t *testing.T) {
	conn := openTestDB(t)
	repository := NewRepository(conn)
	ctx := context.Background()

	hierarchy := mustCreateHierarchy(t, repository, "Ordered")
	a := mustCreateComponent(t, repository, hierarchy.ID, "A", 1, 0)
	b := mustCreateComponent(t, repository, hierarchy.ID, "B", 1, 1)
	c := mustCreateComponent(t, repository, hierarchy.ID, "C", 1, 2)

	require.NoError(t, repository.ReorderComponents(ctx, hierarchy.ID, []uuid.UUID{c.ID, a.ID, b.ID}))

	components, err := repository.ListComponents(ctx, hierarchy.ID)
	require.NoError(t, err)
	require.Len(t, components, 3)
	require.Equal(t, c.ID, components[0].ID)
	require.Equal(t, a.ID, components[1].ID)
	require.Equal(t, b.ID, components[2].ID)
}
