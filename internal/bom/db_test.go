package bom

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/prodwell/prodwell-backend/pkg/db/models"
	"github.com/prodwell/prodwell-backend/pkg/enums"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  sku TEXT NOT NULL,
  variant TEXT NOT NULL,
  unit_price NUMERIC NOT NULL,
  cost NUMERIC NOT NULL DEFAULT 0,
  unit TEXT NOT NULL DEFAULT 'piece',
  stock INTEGER NOT NULL DEFAULT 0,
  min_stock INTEGER NOT NULL DEFAULT 0,
  assembly_minutes INTEGER NOT NULL DEFAULT 0,
  assembly_instructions TEXT,
  min_items_required INTEGER NOT NULL DEFAULT 0,
  max_items_allowed INTEGER NOT NULL DEFAULT 0,
  is_active BOOLEAN NOT NULL DEFAULT 1,
  lock_version INTEGER NOT NULL DEFAULT 0,
  created_by TEXT NOT NULL,
  updated_by TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS product_component_hierarchies (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  notes TEXT,
  is_active BOOLEAN NOT NULL DEFAULT 1,
  lock_version INTEGER NOT NULL DEFAULT 0,
  created_by TEXT NOT NULL,
  updated_by TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS product_components (
  id TEXT PRIMARY KEY,
  hierarchy_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  additional_cost NUMERIC NOT NULL DEFAULT 0,
  unit TEXT NOT NULL DEFAULT 'piece',
  position INTEGER NOT NULL,
  is_active BOOLEAN NOT NULL DEFAULT 1,
  lock_version INTEGER NOT NULL DEFAULT 0,
  created_by TEXT NOT NULL,
  updated_by TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_product_components_hierarchy_position
  ON product_components (hierarchy_id, position);
CREATE TABLE IF NOT EXISTS composite_product_x_hierarchies (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  hierarchy_id TEXT NOT NULL,
  min_quantity INTEGER NOT NULL DEFAULT 1,
  max_quantity INTEGER NOT NULL DEFAULT 0,
  is_optional BOOLEAN NOT NULL DEFAULT 0,
  assembly_order INTEGER NOT NULL,
  notes TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_composite_hierarchy_assembly_order
  ON composite_product_x_hierarchies (product_id, assembly_order);
CREATE UNIQUE INDEX IF NOT EXISTS ux_composite_hierarchy_link
  ON composite_product_x_hierarchies (product_id, hierarchy_id);`
	require.NoError(t, conn.Exec(ddl).Error)
	return conn
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func mustCreateCompositeProduct(t *testing.T, conn *gorm.DB) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:        uuid.New(),
		Name:      "Composite",
		SKU:       "CMP-" + uuid.NewString(),
		Variant:   enums.ProductVariantComposite,
		UnitPrice: decimal.NewFromInt(100),
		Unit:      enums.UnitPiece,
		IsActive:  true,
		CreatedBy: uuid.New(),
		UpdatedBy: uuid.New(),
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

func mustCreateHierarchy(t *testing.T, r *Repository, name string) *models.ProductComponentHierarchy {
	t.Helper()
	hierarchy := &models.ProductComponentHierarchy{
		Name:      name,
		IsActive:  true,
		CreatedBy: uuid.New(),
		UpdatedBy: uuid.New(),
	}
	created, err := r.CreateHierarchy(context.Background(), hierarchy)
	require.NoError(t, err)
	return created
}

func mustCreateComponent(t *testing.T, r *Repository, hierarchyID uuid.UUID, name string, cost int64, position int) *models.ProductComponent {
	t.Helper()
	component := &models.ProductComponent{
		HierarchyID:    hierarchyID,
		Name:           name,
		AdditionalCost: decimal.NewFromInt(cost),
		Unit:           enums.UnitPiece,
		Position:       position,
		IsActive:       true,
		CreatedBy:      uuid.New(),
		UpdatedBy:      uuid.New(),
	}
	created, err := r.CreateComponent(context.Background(), component)
	require.NoError(t, err)
	return created
}
