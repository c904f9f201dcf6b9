package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prodwell/prodwell-backend/internal/repo"
	"github.com/prodwell/prodwell-backend/pkg/db/models"
	"github.com/prodwell/prodwell-backend/pkg/enums"
)

// Repository persists catalog products.
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

// Create inserts the product. The ID is assigned client-side so callers can
// reference the row before the transaction commits.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if err := r.DB(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindBySKU loads an active product by its SKU.
func (r *Repository) FindBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "sku = ? AND is_active", sku).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// Update writes the full row guarded by the lock version the caller loaded.
// A stale version matches no row and surfaces as repo.ErrStaleRow.
func (r *Repository) Update(ctx context.Context, product *models.Product) (*models.Product, error) {
	loaded := product.LockVersion
	product.LockVersion = loaded + 1

	res := r.DB(ctx).
		Model(&models.Product{}).
		Where("id = ? AND lock_version = ?", product.ID, loaded).
		Select("*").
		Omit("id", "created_at", "created_by").
		Updates(product)
	if res.Error != nil {
		product.LockVersion = loaded
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		product.LockVersion = loaded
		return nil, repo.ErrStaleRow
	}
	return product, nil
}

// ListFilter narrows List results.
type ListFilter struct {
	Variant       *enums.ProductVariant
	ActiveOnly    bool
	BelowMinStock bool
}

// List returns products matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Product, error) {
	query := r.DB(ctx).Model(&models.Product{}).Order("created_at DESC")
	if filter.Variant != nil {
		query = query.Where("variant = ?", *filter.Variant)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active")
	}
	if filter.BelowMinStock {
		query = query.Where("stock < min_stock")
	}

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Deactivate soft-deletes the product so history referencing it survives.
func (r *Repository) Deactivate(ctx context.Context, id, userID uuid.UUID) error {
	res := r.DB(ctx).
		Model(&models.Product{}).
		Where("id = ? AND is_active", id).
		Updates(map[string]any{
			"is_active":    false,
			"updated_by":   userID,
			"lock_version": gorm.Expr("lock_version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
