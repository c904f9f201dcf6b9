package demands

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/prodwell/prodwell-backend/pkg/db/models"
	"github.com/prodwell/prodwell-backend/pkg/enums"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

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
CREATE TABLE IF NOT EXISTS product_group_items (
  id TEXT PRIMARY KEY,
  group_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL DEFAULT 1,
  min_quantity INTEGER NOT NULL DEFAULT 0,
  max_quantity INTEGER,
  default_quantity INTEGER NOT NULL DEFAULT 1,
  is_optional BOOLEAN NOT NULL DEFAULT 0,
  extra_price NUMERIC NOT NULL DEFAULT 0,
  is_active BOOLEAN NOT NULL DEFAULT 1,
  lock_version INTEGER NOT NULL DEFAULT 0,
  created_by TEXT NOT NULL,
  updated_by TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS demands (
  id TEXT PRIMARY KEY,
  order_item_id TEXT NOT NULL,
  production_order_id TEXT,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL DEFAULT 1,
  status TEXT NOT NULL DEFAULT 'pending',
  expected_date DATETIME,
  started_at DATETIME,
  completed_at DATETIME,
  is_active BOOLEAN NOT NULL DEFAULT 1,
  lock_version INTEGER NOT NULL DEFAULT 0,
  created_by TEXT NOT NULL,
  updated_by TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS product_compositions (
  id TEXT PRIMARY KEY,
  demand_id TEXT NOT NULL,
  product_component_id TEXT NOT NULL,
  hierarchy_name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit TEXT NOT NULL DEFAULT 'piece',
  is_optional BOOLEAN NOT NULL DEFAULT 0,
  processing_order INTEGER NOT NULL,
  processing_started_at DATETIME,
  processing_completed_at DATETIME,
  is_active BOOLEAN NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_product_compositions_processing_order
  ON product_compositions (demand_id, processing_order);
CREATE TABLE IF NOT EXISTS event_records (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME
);`
	if err := conn.Exec(ddl).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return conn
}

// gormTxRunner satisfies the service's txRunner over a plain test connection.
type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func mustCreateProduct(t *testing.T, conn *gorm.DB, variant enums.ProductVariant, name string) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:        uuid.New(),
		Name:      name,
		SKU:       "SKU-" + uuid.NewString()[:8],
		Variant:   variant,
		UnitPrice: decimal.NewFromInt(10),
		Unit:      enums.UnitPiece,
		IsActive:  true,
		CreatedBy: uuid.New(),
		UpdatedBy: uuid.New(),
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("create product %s: %v", name, err)
	}
	return product
}

func mustCreateHierarchy(t *testing.T, conn *gorm.DB, name string, componentNames ...string) *models.ProductComponentHierarchy {
	t.Helper()

	hierarchy := &models.ProductComponentHierarchy{
		ID:        uuid.New(),
		Name:      name,
		IsActive:  true,
		CreatedBy: uuid.New(),
		UpdatedBy: uuid.New(),
	}
	if err := conn.Create(hierarchy).Error; err != nil {
		t.Fatalf("create hierarchy %s: %v", name, err)
	}
	for i, componentName := range componentNames {
		component := &models.ProductComponent{
			ID:          uuid.New(),
			HierarchyID: hierarchy.ID,
			Name:        componentName,
			Unit:        enums.UnitPiece,
			Position:    i,
			IsActive:    true,
			CreatedBy:   uuid.New(),
			UpdatedBy:   uuid.New(),
		}
		if err := conn.Create(component).Error; err != nil {
			t.Fatalf("create component %s: %v", componentName, err)
		}
	}
	return hierarchy
}

func mustAssociate(t *testing.T, conn *gorm.DB, productID, hierarchyID uuid.UUID, assemblyOrder, minQty int, optional bool) *models.CompositeProductXHierarchy {
	t.Helper()

	association := &models.CompositeProductXHierarchy{
		ID:            uuid.New(),
		ProductID:     productID,
		HierarchyID:   hierarchyID,
		MinQuantity:   minQty,
		IsOptional:    optional,
		AssemblyOrder: assemblyOrder,
	}
	if err := conn.Create(association).Error; err != nil {
		t.Fatalf("create association: %v", err)
	}
	return association
}

func mustCreateDemand(t *testing.T, conn *gorm.DB, productID uuid.UUID, quantity int) *models.Demand {
	t.Helper()

	demand := &models.Demand{
		ID:          uuid.New(),
		OrderItemID: uuid.New(),
		ProductID:   productID,
		Quantity:    quantity,
		Status:      enums.DemandStatusPending,
		IsActive:    true,
		CreatedBy:   uuid.New(),
		UpdatedBy:   uuid.New(),
	}
	if err := conn.Create(demand).Error; err != nil {
		t.Fatalf("create demand: %v", err)
	}
	return demand
}
