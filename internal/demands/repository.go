package demands

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prodwell/prodwell-backend/internal/repo"
	"github.com/prodwell/prodwell-backend/pkg/db/models"
	"github.com/prodwell/prodwell-backend/pkg/enums"
)

// Repository persists demands and their expanded composition rows, and
// reads the catalog structures expansion walks.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bind(tx)}
}

// FindByID loads one demand with its product and composition rows.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Demand, error) {
	var demand models.Demand
	err := r.DB(ctx).
		Preload("Product").
		Preload("Compositions", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active").Order("processing_order ASC")
		}).
		First(&demand, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &demand, nil
}

// ListFilter narrows List results.
type ListFilter struct {
	Status            *enums.DemandStatus
	ProductionOrderID *uuid.UUID
	OrderItemID       *uuid.UUID
}

// List returns active demands, oldest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Demand, error) {
	query := r.DB(ctx).Model(&models.Demand{}).Where("is_active")
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.ProductionOrderID != nil {
		query = query.Where("production_order_id = ?", *filter.ProductionOrderID)
	}
	if filter.OrderItemID != nil {
		query = query.Where("order_item_id = ?", *filter.OrderItemID)
	}

	var demands []models.Demand
	if err := query.Order("created_at ASC").Find(&demands).Error; err != nil {
		return nil, err
	}
	return demands, nil
}

// Update writes the mutable demand fields guarded by the lock version.
func (r *Repository) Update(ctx context.Context, demand *models.Demand) (*models.Demand, error) {
	loaded := demand.LockVersion
	demand.LockVersion = loaded + 1

	res := r.DB(ctx).
		Model(&models.Demand{}).
		Where("id = ? AND lock_version = ?", demand.ID, loaded).
		Select("status", "production_order_id", "expected_date",
			"started_at", "completed_at", "is_active", "updated_by", "lock_version").
		Updates(demand)
	if res.Error != nil {
		demand.LockVersion = loaded
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		demand.LockVersion = loaded
		return nil, repo.ErrStaleRow
	}
	return demand, nil
}

// CountCompositions returns the number of composition rows for a demand,
// active or not. Expansion is rejected when any row already exists.
func (r *Repository) CountCompositions(ctx context.Context, demandID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.ProductComposition{}).
		Where("demand_id = ?", demandID).
		Count(&count).Error
	return count, err
}

// CreateCompositions inserts the expansion result in one batch.
func (r *Repository) CreateCompositions(ctx context.Context, rows []models.ProductComposition) error {
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		if rows[i].ID == uuid.Nil {
			rows[i].ID = uuid.New()
		}
	}
	return r.DB(ctx).Create(&rows).Error
}

// ListCompositions returns the active composition rows in processing order.
func (r *Repository) ListCompositions(ctx context.Context, demandID uuid.UUID) ([]models.ProductComposition, error) {
	var rows []models.ProductComposition
	err := r.DB(ctx).
		Where("demand_id = ? AND is_active", demandID).
		Order("processing_order ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindCompositionByID loads one composition row.
func (r *Repository) FindCompositionByID(ctx context.Context, id uuid.UUID) (*models.ProductComposition, error) {
	var row models.ProductComposition
	if err := r.DB(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// UpdateCompositionStamps writes only the processing timestamps.
func (r *Repository) UpdateCompositionStamps(ctx context.Context, row *models.ProductComposition) error {
	res := r.DB(ctx).
		Model(&models.ProductComposition{}).
		Where("id = ?", row.ID).
		Select("processing_started_at", "processing_completed_at").
		Updates(row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindProductByID loads the product row driving an expansion.
func (r *Repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ListAssociationsForProduct returns the composite product's hierarchy
// links in assembly order, with hierarchies and their active components.
func (r *Repository) ListAssociationsForProduct(ctx context.Context, productID uuid.UUID) ([]models.CompositeProductXHierarchy, error) {
	var associations []models.CompositeProductXHierarchy
	err := r.DB(ctx).
		Preload("Hierarchy").
		Preload("Hierarchy.Components", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active").Order("position ASC")
		}).
		Where("product_id = ?", productID).
		Order("assembly_order ASC").
		Find(&associations).Error
	if err != nil {
		return nil, err
	}
	return associations, nil
}

// ListGroupItems returns the group's active member lines with products.
func (r *Repository) ListGroupItems(ctx context.Context, groupID uuid.UUID) ([]models.ProductGroupItem, error) {
	var items []models.ProductGroupItem
	err := r.DB(ctx).
		Preload("Product").
		Where("group_id = ? AND is_active", groupID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
