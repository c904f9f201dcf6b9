package groups

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
CREATE UNIQUE INDEX IF NOT EXISTS ux_product_group_items_member
  ON product_group_items (group_id, product_id);
CREATE TABLE IF NOT EXISTS product_group_options (
  id TEXT PRIMARY KEY,
  group_id TEXT NOT NULL,
  name TEXT NOT NULL,
  type TEXT NOT NULL DEFAULT 'single',
  is_required BOOLEAN NOT NULL DEFAULT 0,
  display_order INTEGER NOT NULL DEFAULT 0,
  is_active BOOLEAN NOT NULL DEFAULT 1,
  lock_version INTEGER NOT NULL DEFAULT 0,
  created_by TEXT NOT NULL,
  updated_by TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS product_group_exchange_rules (
  id TEXT PRIMARY KEY,
  group_id TEXT NOT NULL,
  original_product_id TEXT NOT NULL,
  exchange_product_id TEXT NOT NULL,
  exchange_ratio NUMERIC NOT NULL DEFAULT 1,
  additional_cost NUMERIC NOT NULL DEFAULT 0,
  is_active BOOLEAN NOT NULL DEFAULT 1,
  lock_version INTEGER NOT NULL DEFAULT 0,
  created_by TEXT NOT NULL,
  updated_by TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_product_group_exchange_rules_pair
  ON product_group_exchange_rules (group_id, original_product_id, exchange_product_id);`
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

func mustCreateProduct(t *testing.T, conn *gorm.DB, variant enums.ProductVariant, name string, unitPrice decimal.Decimal) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:        uuid.New(),
		Name:      name,
		SKU:       "SKU-" + uuid.NewString()[:8],
		Variant:   variant,
		UnitPrice: unitPrice,
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

func mustCreateGroup(t *testing.T, conn *gorm.DB, name string, minItems, maxItems int, unitPrice decimal.Decimal) *models.Product {
	t.Helper()

	group := mustCreateProduct(t, conn, enums.ProductVariantGroup, name, unitPrice)
	group.MinItemsRequired = minItems
	group.MaxItemsAllowed = maxItems
	if err := conn.Model(group).Updates(map[string]any{
		"min_items_required": minItems,
		"max_items_allowed":  maxItems,
	}).Error; err != nil {
		t.Fatalf("set group bounds: %v", err)
	}
	return group
}
