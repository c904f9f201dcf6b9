package bom

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prodwell/prodwell-backend/internal/repo"
	"github.com/prodwell/prodwell-backend/pkg/db/models"
)

// Repository persists hierarchies, components and product associations.
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

// CreateHierarchy inserts a hierarchy.
func (r *Repository) CreateHierarchy(ctx context.Context, hierarchy *models.ProductComponentHierarchy) (*models.ProductComponentHierarchy, error) {
	if hierarchy.ID == uuid.Nil {
		hierarchy.ID = uuid.New()
	}
	if err := r.DB(ctx).Create(hierarchy).Error; err != nil {
		return nil, err
	}
	return hierarchy, nil
}

// FindHierarchyByID loads the hierarchy with its active components ordered
// by position.
func (r *Repository) FindHierarchyByID(ctx context.Context, id uuid.UUID) (*models.ProductComponentHierarchy, error) {
	var hierarchy models.ProductComponentHierarchy
	err := r.DB(ctx).
		Preload("Components", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active").Order("position ASC")
		}).
		First(&hierarchy, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &hierarchy, nil
}

// UpdateHierarchy writes the row guarded by the loaded lock version.
func (r *Repository) UpdateHierarchy(ctx context.Context, hierarchy *models.ProductComponentHierarchy) (*models.ProductComponentHierarchy, error) {
	loaded := hierarchy.LockVersion
	hierarchy.LockVersion = loaded + 1

	res := r.DB(ctx).
		Model(&models.ProductComponentHierarchy{}).
		Where("id = ? AND lock_version = ?", hierarchy.ID, loaded).
		Select("name", "description", "notes", "is_active", "updated_by", "lock_version").
		Updates(hierarchy)
	if res.Error != nil {
		hierarchy.LockVersion = loaded
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		hierarchy.LockVersion = loaded
		return nil, repo.ErrStaleRow
	}
	return hierarchy, nil
}

// CreateComponent inserts a component inside its hierarchy.
func (r *Repository) CreateComponent(ctx context.Context, component *models.ProductComponent) (*models.ProductComponent, error) {
	if component.ID == uuid.Nil {
		component.ID = uuid.New()
	}
	if err := r.DB(ctx).Create(component).Error; err != nil {
		return nil, err
	}
	return component, nil
}

// ListComponents returns the active components of one hierarchy in position
// order.
func (r *Repository) ListComponents(ctx context.Context, hierarchyID uuid.UUID) ([]models.ProductComponent, error) {
	var components []models.ProductComponent
	err := r.DB(ctx).
		Where("hierarchy_id = ? AND is_active", hierarchyID).
		Order("position ASC").
		Find(&components).Error
	if err != nil {
		return nil, err
	}
	return components, nil
}

// NextComponentPosition returns the first free position in the hierarchy.
func (r *Repository) NextComponentPosition(ctx context.Context, hierarchyID uuid.UUID) (int, error) {
	var max *int
	err := r.DB(ctx).
		Model(&models.ProductComponent{}).
		Where("hierarchy_id = ?", hierarchyID).
		Select("MAX(position)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max + 1, nil
}

// ReorderComponents rewrites component positions to match orderedIDs. The
// two-phase update keeps the (hierarchy_id, position) unique index satisfied
// at every intermediate step.
func (r *Repository) ReorderComponents(ctx context.Context, hierarchyID uuid.UUID, orderedIDs []uuid.UUID) error {
	tx := r.DB(ctx)
	for i, id := range orderedIDs {
		res := tx.Model(&models.ProductComponent{}).
			Where("id = ? AND hierarchy_id = ?", id, hierarchyID).
			Update("position", -(i + 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
	}
	for i, id := range orderedIDs {
		if err := tx.Model(&models.ProductComponent{}).
			Where("id = ? AND hierarchy_id = ?", id, hierarchyID).
			Update("position", i).Error; err != nil {
			return err
		}
	}
	return nil
}

// CreateAssociation inserts one product/hierarchy link.
func (r *Repository) CreateAssociation(ctx context.Context, association *models.CompositeProductXHierarchy) (*models.CompositeProductXHierarchy, error) {
	if association.ID == uuid.Nil {
		association.ID = uuid.New()
	}
	if err := r.DB(ctx).Create(association).Error; err != nil {
		return nil, err
	}
	return association, nil
}

// FindAssociationByID loads one association with its hierarchy.
func (r *Repository) FindAssociationByID(ctx context.Context, id uuid.UUID) (*models.CompositeProductXHierarchy, error) {
	var association models.CompositeProductXHierarchy
	if err := r.DB(ctx).Preload("Hierarchy").First(&association, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &association, nil
}

// FindAssociation loads the link between one product and one hierarchy.
func (r *Repository) FindAssociation(ctx context.Context, productID, hierarchyID uuid.UUID) (*models.CompositeProductXHierarchy, error) {
	var association models.CompositeProductXHierarchy
	err := r.DB(ctx).
		First(&association, "product_id = ? AND hierarchy_id = ?", productID, hierarchyID).Error
	if err != nil {
		return nil, err
	}
	return &association, nil
}

// ListAssociationsForProduct returns the product's links sorted by assembly
// order, each with its hierarchy and that hierarchy's active components.
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

// UpdateAssociation writes the mutable association fields.
func (r *Repository) UpdateAssociation(ctx context.Context, association *models.CompositeProductXHierarchy) (*models.CompositeProductXHierarchy, error) {
	res := r.DB(ctx).
		Model(&models.CompositeProductXHierarchy{}).
		Where("id = ?", association.ID).
		Select("min_quantity", "max_quantity", "is_optional", "assembly_order", "notes").
		Updates(association)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return association, nil
}

// DeleteAssociation removes the link. Hierarchies and components survive.
func (r *Repository) DeleteAssociation(ctx context.Context, id uuid.UUID) error {
	res := r.DB(ctx).Delete(&models.CompositeProductXHierarchy{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindProductByID loads the product row for variant checks.
func (r *Repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}
