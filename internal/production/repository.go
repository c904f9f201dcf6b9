package production

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prodwell/prodwell-backend/internal/repo"
	"github.com/prodwell/prodwell-backend/pkg/db/models"
	"github.com/prodwell/prodwell-backend/pkg/enums"
)

// Repository persists production orders and the demand links they close.
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

// Create inserts a new production order.
func (r *Repository) Create(ctx context.Context, order *models.ProductionOrder) (*models.ProductionOrder, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if err := r.DB(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// FindByID loads one production order.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ProductionOrder, error) {
	var order models.ProductionOrder
	if err := r.DB(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ListFilter narrows List results.
type ListFilter struct {
	Status     *enums.ProductionOrderStatus
	Priority   *enums.ProductionPriority
	AssignedTo *uuid.UUID
}

// List returns active production orders, urgent and oldest work first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.ProductionOrder, error) {
	query := r.DB(ctx).Model(&models.ProductionOrder{}).Where("is_active")
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("priority = ?", *filter.Priority)
	}
	if filter.AssignedTo != nil {
		query = query.Where("assigned_to = ?", *filter.AssignedTo)
	}

	var orders []models.ProductionOrder
	err := query.
		Order("CASE priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'normal' THEN 2 ELSE 3 END").
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// Update writes the mutable fields guarded by the lock version.
func (r *Repository) Update(ctx context.Context, order *models.ProductionOrder) (*models.ProductionOrder, error) {
	loaded := order.LockVersion
	order.LockVersion = loaded + 1

	res := r.DB(ctx).
		Model(&models.ProductionOrder{}).
		Where("id = ? AND lock_version = ?", order.ID, loaded).
		Select("status", "priority", "scheduled_start", "scheduled_end",
			"actual_start", "actual_end", "assigned_to",
			"estimated_minutes", "actual_minutes",
			"is_active", "updated_by", "lock_version").
		Updates(order)
	if res.Error != nil {
		order.LockVersion = loaded
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		order.LockVersion = loaded
		return nil, repo.ErrStaleRow
	}
	return order, nil
}

// FindDemandByID loads one demand for linking.
func (r *Repository) FindDemandByID(ctx context.Context, id uuid.UUID) (*models.Demand, error) {
	var demand models.Demand
	if err := r.DB(ctx).First(&demand, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &demand, nil
}

// LinkDemand points a demand at the production order that will produce it.
func (r *Repository) LinkDemand(ctx context.Context, demandID, productionOrderID, userID uuid.UUID) error {
	res := r.DB(ctx).
		Model(&models.Demand{}).
		Where("id = ? AND production_order_id IS NULL", demandID).
		Updates(map[string]any{
			"production_order_id": productionOrderID,
			"updated_by":          userID,
			"lock_version":        gorm.Expr("lock_version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListLinkedDemands returns the demands assigned to the production order.
func (r *Repository) ListLinkedDemands(ctx context.Context, productionOrderID uuid.UUID) ([]models.Demand, error) {
	var demands []models.Demand
	err := r.DB(ctx).
		Where("production_order_id = ? AND is_active", productionOrderID).
		Order("created_at ASC").
		Find(&demands).Error
	if err != nil {
		return nil, err
	}
	return demands, nil
}

// CountUnprocessedCompositions counts active composition rows of the linked
// demands that have not been completed yet.
func (r *Repository) CountUnprocessedCompositions(ctx context.Context, productionOrderID uuid.UUID) (int64, error) {
	demandIDs := r.DB(ctx).
		Model(&models.Demand{}).
		Select("id").
		Where("production_order_id = ?", productionOrderID)

	var count int64
	err := r.DB(ctx).
		Model(&models.ProductComposition{}).
		Where("demand_id IN (?)", demandIDs).
		Where("is_active AND processing_completed_at IS NULL").
		Count(&count).Error
	return count, err
}

// MarkLinkedDemandsProduced advances every linked confirmed demand in one
// statement when the production order completes.
func (r *Repository) MarkLinkedDemandsProduced(ctx context.Context, productionOrderID, userID uuid.UUID) (int64, error) {
	res := r.DB(ctx).
		Model(&models.Demand{}).
		Where("production_order_id = ? AND status = ?", productionOrderID, enums.DemandStatusConfirmed).
		Updates(map[string]any{
			"status":       enums.DemandStatusProduced,
			"updated_by":   userID,
			"lock_version": gorm.Expr("lock_version + 1"),
		})
	return res.RowsAffected, res.Error
}
