package groups

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prodwell/prodwell-backend/internal/repo"
	"github.com/prodwell/prodwell-backend/pkg/db/models"
)

// Repository persists group items, options and exchange rules.
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

// FindProductByID loads the product row for variant checks.
func (r *Repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateItem inserts a selectable line into the group.
func (r *Repository) CreateItem(ctx context.Context, item *models.ProductGroupItem) (*models.ProductGroupItem, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if err := r.DB(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// FindItemByID loads one group item with its product.
func (r *Repository) FindItemByID(ctx context.Context, id uuid.UUID) (*models.ProductGroupItem, error) {
	var item models.ProductGroupItem
	if err := r.DB(ctx).Preload("Product").First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// ListItems returns the group's active items with their products.
func (r *Repository) ListItems(ctx context.Context, groupID uuid.UUID) ([]models.ProductGroupItem, error) {
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

// UpdateItem writes the mutable item fields guarded by the lock version.
func (r *Repository) UpdateItem(ctx context.Context, item *models.ProductGroupItem) (*models.ProductGroupItem, error) {
	loaded := item.LockVersion
	item.LockVersion = loaded + 1

	res := r.DB(ctx).
		Model(&models.ProductGroupItem{}).
		Where("id = ? AND lock_version = ?", item.ID, loaded).
		Select("quantity", "min_quantity", "max_quantity", "default_quantity",
			"is_optional", "extra_price", "is_active", "updated_by", "lock_version").
		Updates(item)
	if res.Error != nil {
		item.LockVersion = loaded
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		item.LockVersion = loaded
		return nil, repo.ErrStaleRow
	}
	return item, nil
}

// DeactivateItem removes the line from future selections.
func (r *Repository) DeactivateItem(ctx context.Context, id, userID uuid.UUID) error {
	res := r.DB(ctx).
		Model(&models.ProductGroupItem{}).
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

// CreateOption inserts a configuration axis.
func (r *Repository) CreateOption(ctx context.Context, option *models.ProductGroupOption) (*models.ProductGroupOption, error) {
	if option.ID == uuid.Nil {
		option.ID = uuid.New()
	}
	if err := r.DB(ctx).Create(option).Error; err != nil {
		return nil, err
	}
	return option, nil
}

// ListOptions returns the group's active options in display order.
func (r *Repository) ListOptions(ctx context.Context, groupID uuid.UUID) ([]models.ProductGroupOption, error) {
	var options []models.ProductGroupOption
	err := r.DB(ctx).
		Where("group_id = ? AND is_active", groupID).
		Order("display_order ASC").
		Find(&options).Error
	if err != nil {
		return nil, err
	}
	return options, nil
}

// CreateExchangeRule inserts a substitution rule.
func (r *Repository) CreateExchangeRule(ctx context.Context, rule *models.ProductGroupExchangeRule) (*models.ProductGroupExchangeRule, error) {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	if err := r.DB(ctx).Create(rule).Error; err != nil {
		return nil, err
	}
	return rule, nil
}

// FindExchangeRuleByID loads one rule with its exchange product.
func (r *Repository) FindExchangeRuleByID(ctx context.Context, id uuid.UUID) (*models.ProductGroupExchangeRule, error) {
	var rule models.ProductGroupExchangeRule
	if err := r.DB(ctx).Preload("ExchangeProduct").First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListExchangeRules returns the group's active rules.
func (r *Repository) ListExchangeRules(ctx context.Context, groupID uuid.UUID) ([]models.ProductGroupExchangeRule, error) {
	var rules []models.ProductGroupExchangeRule
	err := r.DB(ctx).
		Preload("ExchangeProduct").
		Where("group_id = ? AND is_active", groupID).
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// DeactivateExchangeRule stops the rule from applying to new selections.
func (r *Repository) DeactivateExchangeRule(ctx context.Context, id, userID uuid.UUID) error {
	res := r.DB(ctx).
		Model(&models.ProductGroupExchangeRule{}).
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
