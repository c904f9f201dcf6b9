package production

import (
	"context"
	"testing"

	"github.com/google/uuid"
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
CREATE TABLE IF NOT EXISTS production_orders (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  order_item_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  priority TEXT NOT NULL DEFAULT 'normal',
  scheduled_start DATETIME,
  scheduled_end DATETIME,
  actual_start DATETIME,
  actual_end DATETIME,
  assigned_to TEXT,
  estimated_minutes INTEGER,
  actual_minutes INTEGER,
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

func mustCreateDemand(t *testing.T, conn *gorm.DB, status enums.DemandStatus) *models.Demand {
	t.Helper()

	demand := &models.Demand{
		ID:          uuid.New(),
		OrderItemID: uuid.New(),
		ProductID:   uuid.New(),
		Quantity:    1,
		Status:      status,
		IsActive:    true,
		CreatedBy:   uuid.New(),
		UpdatedBy:   uuid.New(),
	}
	if err := conn.Create(demand).Error; err != nil {
		t.Fatalf("create demand: %v", err)
	}
	return demand
}
