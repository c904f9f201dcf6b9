package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prodwell/prodwell-backend/internal/repo"
	"github.com/prodwell/prodwell-backend/pkg/db/models"
	"github.com/prodwell/prodwell-backend/pkg/enums"
)

// Repository persists sales orders, their lines and the demands spawned at
// confirmation.
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

// FindProductByID loads the product row for price snapshots.
func (r *Repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// Create inserts a new order.
func (r *Repository) Create(ctx context.Context, order *models.OrderEntry) (*models.OrderEntry, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if err := r.DB(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// FindByID loads one order with its lines and their products.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.OrderEntry, error) {
	var order models.OrderEntry
	err := r.DB(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_items.created_at ASC")
		}).
		Preload("Items.Product").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByReference loads one active order by its customer-facing reference.
func (r *Repository) FindByReference(ctx context.Context, reference string) (*models.OrderEntry, error) {
	var order models.OrderEntry
	err := r.DB(ctx).
		Preload("Items").
		Where("reference = ? AND is_active", reference).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListFilter narrows List results.
type ListFilter struct {
	Status       *enums.OrderStatus
	CustomerName string
}

// List returns active orders, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.OrderEntry, error) {
	query := r.DB(ctx).Model(&models.OrderEntry{}).Where("is_active")
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CustomerName != "" {
		query = query.Where("customer_name LIKE ?", "%"+filter.CustomerName+"%")
	}

	var orders []models.OrderEntry
	if err := query.Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Update writes the mutable order fields guarded by the lock version.
func (r *Repository) Update(ctx context.Context, order *models.OrderEntry) (*models.OrderEntry, error) {
	loaded := order.LockVersion
	order.LockVersion = loaded + 1

	res := r.DB(ctx).
		Model(&models.OrderEntry{}).
		Where("id = ? AND lock_version = ?", order.ID, loaded).
		Select("customer_name", "status", "notes", "total",
			"confirmed_at", "delivered_at", "completed_at", "cancelled_at",
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

// CreateItem inserts one order line.
func (r *Repository) CreateItem(ctx context.Context, item *models.OrderItem) (*models.OrderItem, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if err := r.DB(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// FindItemByID loads one order line.
func (r *Repository) FindItemByID(ctx context.Context, id uuid.UUID) (*models.OrderItem, error) {
	var item models.OrderItem
	if err := r.DB(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItem writes the mutable line fields.
func (r *Repository) UpdateItem(ctx context.Context, item *models.OrderItem) (*models.OrderItem, error) {
	res := r.DB(ctx).
		Model(&models.OrderItem{}).
		Where("id = ?", item.ID).
		Select("quantity", "unit_price", "notes").
		Updates(item)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return item, nil
}

// DeleteItem removes one order line. Lines are only deleted while the order
// is still a draft, so a hard delete leaves no audit gap.
func (r *Repository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	res := r.DB(ctx).Delete(&models.OrderItem{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateDemand inserts one demand row spawned at order confirmation.
func (r *Repository) CreateDemand(ctx context.Context, demand *models.Demand) (*models.Demand, error) {
	if demand.ID == uuid.Nil {
		demand.ID = uuid.New()
	}
	if err := r.DB(ctx).Create(demand).Error; err != nil {
		return nil, err
	}
	return demand, nil
}

// ListDemandsForOrder returns the demands belonging to the order's lines.
func (r *Repository) ListDemandsForOrder(ctx context.Context, orderID uuid.UUID) ([]models.Demand, error) {
	var demands []models.Demand
	err := r.DB(ctx).
		Where("order_item_id IN (?)",
			r.DB(ctx).Model(&models.OrderItem{}).Select("id").Where("order_id = ?", orderID)).
		Order("created_at ASC").
		Find(&demands).Error
	if err != nil {
		return nil, err
	}
	return demands, nil
}
