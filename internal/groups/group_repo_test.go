package groups

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/prodwell/prodwell-backend/internal/repo"
	"github.com/prodwell/prodwell-backend/pkg/db"
	"github.com/prodwell/prodwell-backend/pkg/db/models"
	"github.com/prodwell/prodwell-backend/pkg/enums"
)

func TestRepository_ItemFlow(t *testing.T) {
	conn := openTestDB(t)
	r := NewRepository(conn)
	ctx := context.Background()
	userID := uuid.New()

	group := mustCreateGroup(t, conn, "Snack Box", 1, 3, decimal.NewFromInt(20))
	member := mustCreateProduct(t, conn, enums.ProductVariantSimple, "Granola Bar", decimal.NewFromInt(4))

	item, err := r.CreateItem(ctx, &models.ProductGroupItem{
		GroupID:         group.ID,
		ProductID:       member.ID,
		Quantity:        1,
		DefaultQuantity: 2,
		ExtraPrice:      decimal.NewFromInt(1),
		IsActive:        true,
		CreatedBy:       userID,
		UpdatedBy:       userID,
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, item.ID)

	loaded, err := r.FindItemByID(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Product)
	require.Equal(t, "Granola Bar", loaded.Product.Name)

	items, err := r.ListItems(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	loaded.Quantity = 3
	loaded.UpdatedBy = userID
	updated, err := r.UpdateItem(ctx, loaded)
	require.NoError(t, err)
	require.Equal(t, 1, updated.LockVersion)

	stale := *updated
	stale.LockVersion = 0
	_, err = r.UpdateItem(ctx, &stale)
	require.ErrorIs(t, err, repo.ErrStaleRow)

	require.NoError(t, r.DeactivateItem(ctx, item.ID, userID))
	items, err = r.ListItems(ctx, group.ID)
	require.NoError(t, err)
	require.Empty(t, items)

	err = r.DeactivateItem(ctx, item.ID, userID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_DuplicateMemberRejected(t *testing.T) {
	conn := openTestDB(t)
	r := NewRepository(conn)
	ctx := context.Background()
	userID := uuid.New()

	group := mustCreateGroup(t, conn, "Lunch Set", 0, 0, decimal.NewFromInt(15))
	member := mustCreateProduct(t, conn, enums.ProductVariantSimple, "Soup", decimal.NewFromInt(5))

	_, err := r.CreateItem(ctx, &models.ProductGroupItem{
		GroupID: group.ID, ProductID: member.ID, Quantity: 1, DefaultQuantity: 1,
		IsActive: true, CreatedBy: userID, UpdatedBy: userID,
	})
	require.NoError(t, err)

	_, err = r.CreateItem(ctx, &models.ProductGroupItem{
		GroupID: group.ID, ProductID: member.ID, Quantity: 2, DefaultQuantity: 1,
		IsActive: true, CreatedBy: userID, UpdatedBy: userID,
	})
	require.Error(t, err)
	require.True(t, db.IsUniqueViolation(err, "ux_product_group_items_member"))
}

func TestRepository_OptionsOrderedByDisplay(t *testing.T) {
	conn := openTestDB(t)
	r := NewRepository(conn)
	ctx := context.Background()
	userID := uuid.New()

	group := mustCreateGroup(t, conn, "Pizza Builder", 0, 0, decimal.NewFromInt(12))

	for i, name := range []string{"Size", "Topping", "Crust"} {
		_, err := r.CreateOption(ctx, &models.ProductGroupOption{
			GroupID:      group.ID,
			Name:         name,
			Type:         enums.GroupOptionTypeSingle,
			DisplayOrder: 2 - i,
			IsActive:     true,
			CreatedBy:    userID,
			UpdatedBy:    userID,
		})
		require.NoError(t, err)
	}

	options, err := r.ListOptions(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, options, 3)
	require.Equal(t, "Crust", options[0].Name)
	require.Equal(t, "Size", options[2].Name)
}

func TestRepository_ExchangeRuleFlow(t *testing.T) {
	conn := openTestDB(t)
	r := NewRepository(conn)
	ctx := context.Background()
	userID := uuid.New()

	group := mustCreateGroup(t, conn, "Breakfast Set", 0, 0, decimal.NewFromInt(10))
	original := mustCreateProduct(t, conn, enums.ProductVariantSimple, "Coffee", decimal.NewFromInt(3))
	exchange := mustCreateProduct(t, conn, enums.ProductVariantSimple, "Tea", decimal.NewFromInt(2))

	rule, err := r.CreateExchangeRule(ctx, &models.ProductGroupExchangeRule{
		GroupID:           group.ID,
		OriginalProductID: original.ID,
		ExchangeProductID: exchange.ID,
		ExchangeRatio:     decimal.NewFromInt(2),
		AdditionalCost:    decimal.NewFromFloat(0.5),
		IsActive:          true,
		CreatedBy:         userID,
		UpdatedBy:         userID,
	})
	require.NoError(t, err)

	loaded, err := r.FindExchangeRuleByID(ctx, rule.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.ExchangeProduct)
	require.Equal(t, "Tea", loaded.ExchangeProduct.Name)

	_, err = r.CreateExchangeRule(ctx, &models.ProductGroupExchangeRule{
		GroupID:           group.ID,
		OriginalProductID: original.ID,
		ExchangeProductID: exchange.ID,
		ExchangeRatio:     decimal.NewFromInt(1),
		IsActive:          true,
		CreatedBy:         userID,
		UpdatedBy:         userID,
	})
	require.Error(t, err)
	require.True(t, db.IsUniqueViolation(err, "ux_product_group_exchange_rules_pair"))

	rules, err := r.ListExchangeRules(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	require.NoError(t, r.DeactivateExchangeRule(ctx, rule.ID, userID))
	rules, err = r.ListExchangeRules(ctx, group.ID)
	require.NoError(t, err)
	require.Empty(t, rules)
}
