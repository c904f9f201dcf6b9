package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/prodwell/prodwell-backend/internal/repo"
	"github.com/prodwell/prodwell-backend/pkg/db"
	"github.com/prodwell/prodwell-backend/pkg/db/models"
	"github.com/prodwell/prodwell-backend/pkg/enums"
	pkgerrors "github.com/prodwell/prodwell-backend/pkg/errors"
	"github.com/prodwell/prodwell-backend/pkg/validate"
)

// Service exposes catalog product management operations.
type Service interface {
	CreateProduct(ctx context.Context, userID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, userID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, input ListProductsInput) ([]ProductDTO, error)
	AdjustStock(ctx context.Context, userID, productID uuid.UUID, delta int) (*ProductDTO, error)
	DeactivateProduct(ctx context.Context, userID, productID uuid.UUID) error
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name        string  `json:"name" validate:"required,min=1,max=200"`
	Description *string `json:"description"`
	SKU         string  `json:"sku" validate:"required,min=1,max=64"`
	Variant     string  `json:"variant" validate:"required"`
	UnitPrice   decimal.Decimal
	Cost        decimal.Decimal
	Unit        string `json:"unit"`
	Stock       int    `json:"stock" validate:"gte=0"`
	MinStock    int    `json:"min_stock" validate:"gte=0"`

	AssemblyMinutes      int      `json:"assembly_minutes" validate:"gte=0"`
	AssemblyInstructions []string `json:"assembly_instructions"`

	MinItemsRequired int `json:"min_items_required" validate:"gte=0"`
	MaxItemsAllowed  int `json:"max_items_allowed" validate:"gte=0"`
}

// UpdateProductInput holds optional mutation values for a product. The
// variant itself is immutable after creation.
type UpdateProductInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description"`
	SKU         *string `json:"sku" validate:"omitempty,min=1,max=64"`
	UnitPrice   *decimal.Decimal
	Cost        *decimal.Decimal
	Unit        *string `json:"unit"`
	Stock       *int    `json:"stock" validate:"omitempty,gte=0"`
	MinStock    *int    `json:"min_stock" validate:"omitempty,gte=0"`

	AssemblyMinutes      *int      `json:"assembly_minutes" validate:"omitempty,gte=0"`
	AssemblyInstructions *[]string `json:"assembly_instructions"`

	MinItemsRequired *int `json:"min_items_required" validate:"omitempty,gte=0"`
	MaxItemsAllowed  *int `json:"max_items_allowed" validate:"omitempty,gte=0"`
}

// ListProductsInput narrows the product listing.
type ListProductsInput struct {
	Variant       *string
	ActiveOnly    bool
	BelowMinStock bool
}

// service implements the catalog service.
type service struct {
	repo     *Repository
	dbClient txRunner
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

var _ txRunner = (*db.Client)(nil)

// NewService constructs a catalog service instance.
func NewService(repository *Repository, dbClient txRunner) (Service, error) {
	if repository == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repository, dbClient: dbClient}, nil
}

// CreateProduct creates a product after variant-specific validation.
func (s *service) CreateProduct(ctx context.Context, userID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	variant, err := enums.ParseProductVariant(input.Variant)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown product variant")
	}
	unit, err := parseUnit(input.Unit)
	if err != nil {
		return nil, err
	}
	if input.UnitPrice.IsNegative() || input.Cost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit_price and cost must be non-negative")
	}
	if err := validateVariantFields(variant, input); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:                 strings.TrimSpace(input.Name),
		Description:          input.Description,
		SKU:                  strings.TrimSpace(input.SKU),
		Variant:              variant,
		UnitPrice:            input.UnitPrice,
		Cost:                 input.Cost,
		Unit:                 unit,
		Stock:                input.Stock,
		MinStock:             input.MinStock,
		AssemblyMinutes:      input.AssemblyMinutes,
		AssemblyInstructions: input.AssemblyInstructions,
		MinItemsRequired:     input.MinItemsRequired,
		MaxItemsAllowed:      input.MaxItemsAllowed,
		IsActive:             true,
		CreatedBy:            userID,
		UpdatedBy:            userID,
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).Create(ctx, product); err != nil {
			if db.IsUniqueViolation(err, "ux_products_sku", "products.sku") {
				return pkgerrors.New(pkgerrors.CodeConflict, "sku already in use")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}

	return NewProductDTO(product), nil
}

// UpdateProduct applies partial mutations guarded by the lock version.
func (s *service) UpdateProduct(ctx context.Context, userID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if input.UnitPrice != nil && input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit_price must be non-negative")
	}
	if input.Cost != nil && input.Cost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost must be non-negative")
	}
	if input.Unit != nil {
		if _, err := enums.ParseUnit(*input.Unit); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown unit")
		}
	}

	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	applyUpdateToProduct(product, input)
	if product.Variant == enums.ProductVariantGroup {
		if err := validateItemBounds(product.MinItemsRequired, product.MaxItemsAllowed); err != nil {
			return nil, err
		}
	}
	product.UpdatedBy = userID

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).Update(ctx, product); err != nil {
			if errors.Is(err, repo.ErrStaleRow) {
				return pkgerrors.New(pkgerrors.CodeConcurrentModification, "product was modified concurrently")
			}
			if db.IsUniqueViolation(err, "ux_products_sku", "products.sku") {
				return pkgerrors.New(pkgerrors.CodeConflict, "sku already in use")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}

	return NewProductDTO(product), nil
}

// GetProduct loads a single product.
func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return NewProductDTO(product), nil
}

// ListProducts returns products matching the filter.
func (s *service) ListProducts(ctx context.Context, input ListProductsInput) ([]ProductDTO, error) {
	filter := ListFilter{
		ActiveOnly:    input.ActiveOnly,
		BelowMinStock: input.BelowMinStock,
	}
	if input.Variant != nil {
		variant, err := enums.ParseProductVariant(*input.Variant)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown product variant")
		}
		filter.Variant = &variant
	}

	products, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	out := make([]ProductDTO, 0, len(products))
	for i := range products {
		out = append(out, *NewProductDTO(&products[i]))
	}
	return out, nil
}

// AdjustStock moves the stock level by delta, rejecting negative results.
func (s *service) AdjustStock(ctx context.Context, userID, productID uuid.UUID, delta int) (*ProductDTO, error) {
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	next := product.Stock + delta
	if next < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot become negative")
	}
	product.Stock = next
	product.UpdatedBy = userID

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).Update(ctx, product); err != nil {
			if errors.Is(err, repo.ErrStaleRow) {
				return pkgerrors.New(pkgerrors.CodeConcurrentModification, "product was modified concurrently")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update stock")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust stock")
	}
	return NewProductDTO(product), nil
}

// DeactivateProduct soft-deletes the product.
func (s *service) DeactivateProduct(ctx context.Context, userID, productID uuid.UUID) error {
	if err := s.repo.Deactivate(ctx, productID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate product")
	}
	return nil
}

func (s *service) loadProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func parseUnit(value string) (enums.Unit, error) {
	if value == "" {
		return enums.UnitPiece, nil
	}
	unit, err := enums.ParseUnit(value)
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unknown unit")
	}
	return unit, nil
}

func validateVariantFields(variant enums.ProductVariant, input CreateProductInput) error {
	switch variant {
	case enums.ProductVariantSimple:
		if input.MinItemsRequired != 0 || input.MaxItemsAllowed != 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item bounds only apply to group products")
		}
	case enums.ProductVariantComposite:
		if input.AssemblyMinutes != 0 || len(input.AssemblyInstructions) > 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "assembly data only applies to simple products")
		}
		if input.MinItemsRequired != 0 || input.MaxItemsAllowed != 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item bounds only apply to group products")
		}
	case enums.ProductVariantGroup:
		if input.AssemblyMinutes != 0 || len(input.AssemblyInstructions) > 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "assembly data only applies to simple products")
		}
		return validateItemBounds(input.MinItemsRequired, input.MaxItemsAllowed)
	}
	return nil
}

func validateItemBounds(minRequired, maxAllowed int) error {
	if maxAllowed != 0 && maxAllowed < minRequired {
		return pkgerrors.New(pkgerrors.CodeValidation, "max_items_allowed must be 0 or >= min_items_required")
	}
	return nil
}

func applyUpdateToProduct(product *models.Product, input UpdateProductInput) {
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.SKU != nil {
		product.SKU = strings.TrimSpace(*input.SKU)
	}
	if input.UnitPrice != nil {
		product.UnitPrice = *input.UnitPrice
	}
	if input.Cost != nil {
		product.Cost = *input.Cost
	}
	if input.Unit != nil {
		if unit, err := enums.ParseUnit(*input.Unit); err == nil {
			product.Unit = unit
		}
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.MinStock != nil {
		product.MinStock = *input.MinStock
	}
	if input.AssemblyMinutes != nil {
		product.AssemblyMinutes = *input.AssemblyMinutes
	}
	if input.AssemblyInstructions != nil {
		product.AssemblyInstructions = append([]string(nil), *input.AssemblyInstructions...)
	}
	if input.MinItemsRequired != nil {
		product.MinItemsRequired = *input.MinItemsRequired
	}
	if input.MaxItemsAllowed != nil {
		product.MaxItemsAllowed = *input.MaxItemsAllowed
	}
}
