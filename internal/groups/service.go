package groups

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/prodwell/prodwell-backend/internal/repo"
	"github.com/prodwell/prodwell-backend/pkg/db"
	"github.com/prodwell/prodwell-backend/pkg/db/models"
	"github.com/prodwell/prodwell-backend/pkg/enums"
	pkgerrors "github.com/prodwell/prodwell-backend/pkg/errors"
	"github.com/prodwell/prodwell-backend/pkg/validate"
)

// Service validates customer selections against a group product's rules and
// manages the group's items, options and exchange rules.
type Service interface {
	AddItem(ctx context.Context, userID, groupID uuid.UUID, input AddItemInput) (*ItemDTO, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, input UpdateItemInput) (*ItemDTO, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error
	AddOption(ctx context.Context, userID, groupID uuid.UUID, input AddOptionInput) (*OptionDTO, error)
	AddExchangeRule(ctx context.Context, userID, groupID uuid.UUID, input AddExchangeRuleInput) (*ExchangeRuleDTO, error)
	DeactivateExchangeRule(ctx context.Context, userID, ruleID uuid.UUID) error

	ValidateSelection(ctx context.Context, groupID uuid.UUID, selection []SelectedItem) error
	Price(ctx context.Context, groupID uuid.UUID, selection []SelectedItem) (decimal.Decimal, error)
	ApplyExchange(ctx context.Context, ruleID uuid.UUID, sourceQty int) (*ExchangeResult, error)
}

// SelectedItem is one line of a customer's group selection, referencing the
// member product. A zero quantity falls back to the item's default.
type SelectedItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// AddItemInput holds the payload to add a selectable line to a group.
type AddItemInput struct {
	ProductID       uuid.UUID `json:"product_id" validate:"required"`
	Quantity        int       `json:"quantity" validate:"gte=1"`
	MinQuantity     int       `json:"min_quantity" validate:"gte=0"`
	MaxQuantity     *int      `json:"max_quantity" validate:"omitempty,gte=0"`
	DefaultQuantity int       `json:"default_quantity" validate:"gte=1"`
	IsOptional      bool      `json:"is_optional"`
	ExtraPrice      decimal.Decimal
}

// UpdateItemInput holds optional item mutations.
type UpdateItemInput struct {
	Quantity        *int `json:"quantity" validate:"omitempty,gte=1"`
	MinQuantity     *int `json:"min_quantity" validate:"omitempty,gte=0"`
	MaxQuantity     *int `json:"max_quantity" validate:"omitempty,gte=0"`
	DefaultQuantity *int `json:"default_quantity" validate:"omitempty,gte=1"`
	IsOptional      *bool
	ExtraPrice      *decimal.Decimal
}

// AddOptionInput holds the payload to add a configuration axis.
type AddOptionInput struct {
	Name         string `json:"name" validate:"required,min=1,max=200"`
	Type         string `json:"type" validate:"required"`
	IsRequired   bool   `json:"is_required"`
	DisplayOrder int    `json:"display_order" validate:"gte=0"`
}

// AddExchangeRuleInput holds the payload to add a substitution rule.
type AddExchangeRuleInput struct {
	OriginalProductID uuid.UUID `json:"original_product_id" validate:"required"`
	ExchangeProductID uuid.UUID `json:"exchange_product_id" validate:"required"`
	ExchangeRatio     decimal.Decimal
	AdditionalCost    decimal.Decimal
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

var _ txRunner = (*db.Client)(nil)

type service struct {
	repo     *Repository
	dbClient txRunner
}

// NewService constructs the group configurator service.
func NewService(repository *Repository, dbClient txRunner) (Service, error) {
	if repository == nil {
		return nil, fmt.Errorf("groups repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repository, dbClient: dbClient}, nil
}

// AddItem adds a member product to the group.
func (s *service) AddItem(ctx context.Context, userID, groupID uuid.UUID, input AddItemInput) (*ItemDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if input.ExtraPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "extra_price must be non-negative")
	}
	if input.MaxQuantity != nil && *input.MaxQuantity < input.MinQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max_quantity must be >= min_quantity")
	}
	if input.ProductID == groupID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a group cannot contain itself")
	}

	if _, err := s.loadGroup(ctx, groupID); err != nil {
		return nil, err
	}
	member, err := s.loadProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if !member.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member product is inactive")
	}

	item := &models.ProductGroupItem{
		GroupID:         groupID,
		ProductID:       input.ProductID,
		Quantity:        input.Quantity,
		MinQuantity:     input.MinQuantity,
		MaxQuantity:     input.MaxQuantity,
		DefaultQuantity: input.DefaultQuantity,
		IsOptional:      input.IsOptional,
		ExtraPrice:      input.ExtraPrice,
		IsActive:        true,
		CreatedBy:       userID,
		UpdatedBy:       userID,
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).CreateItem(ctx, item); err != nil {
			if db.IsUniqueViolation(err, "ux_product_group_items_member",
				"product_group_items.group_id", "product_group_items.product_id") {
				return pkgerrors.New(pkgerrors.CodeConflict, "product is already a member of the group")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert group item")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add group item")
	}
	item.Product = member
	return newItemDTO(item), nil
}

// UpdateItem applies partial mutations to a group item.
func (s *service) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, input UpdateItemInput) (*ItemDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if input.ExtraPrice != nil && input.ExtraPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "extra_price must be non-negative")
	}

	item, err := s.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if input.Quantity != nil {
		item.Quantity = *input.Quantity
	}
	if input.MinQuantity != nil {
		item.MinQuantity = *input.MinQuantity
	}
	if input.MaxQuantity != nil {
		item.MaxQuantity = input.MaxQuantity
	}
	if input.DefaultQuantity != nil {
		item.DefaultQuantity = *input.DefaultQuantity
	}
	if input.IsOptional != nil {
		item.IsOptional = *input.IsOptional
	}
	if input.ExtraPrice != nil {
		item.ExtraPrice = *input.ExtraPrice
	}
	if item.MaxQuantity != nil && *item.MaxQuantity < item.MinQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max_quantity must be >= min_quantity")
	}
	item.UpdatedBy = userID

	if _, err := s.repo.UpdateItem(ctx, item); err != nil {
		if errors.Is(err, repo.ErrStaleRow) {
			return nil, pkgerrors.New(pkgerrors.CodeConcurrentModification, "group item was modified concurrently")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update group item")
	}
	return newItemDTO(item), nil
}

// RemoveItem deactivates the line so past selections stay resolvable.
func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	if err := s.repo.DeactivateItem(ctx, itemID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "group item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: deactivate group item")
	}
	return nil
}

// AddOption adds a configuration axis to the group.
func (s *service) AddOption(ctx context.Context, userID, groupID uuid.UUID, input AddOptionInput) (*OptionDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	optionType, err := enums.ParseGroupOptionType(input.Type)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown option type")
	}
	if _, err := s.loadGroup(ctx, groupID); err != nil {
		return nil, err
	}

	option := &models.ProductGroupOption{
		GroupID:      groupID,
		Name:         input.Name,
		Type:         optionType,
		IsRequired:   input.IsRequired,
		DisplayOrder: input.DisplayOrder,
		IsActive:     true,
		CreatedBy:    userID,
		UpdatedBy:    userID,
	}
	if _, err := s.repo.CreateOption(ctx, option); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert group option")
	}
	return newOptionDTO(option), nil
}

// AddExchangeRule adds a substitution rule to the group.
func (s *service) AddExchangeRule(ctx context.Context, userID, groupID uuid.UUID, input AddExchangeRuleInput) (*ExchangeRuleDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if input.OriginalProductID == input.ExchangeProductID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exchange rule cannot map a product to itself")
	}
	if !input.ExchangeRatio.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exchange_ratio must be positive")
	}
	if input.AdditionalCost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "additional_cost must be non-negative")
	}

	if _, err := s.loadGroup(ctx, groupID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, groupID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list group items")
	}
	if !containsProduct(items, input.OriginalProductID) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "original product is not a member of the group")
	}
	target, err := s.loadProduct(ctx, input.ExchangeProductID)
	if err != nil {
		return nil, err
	}
	if !target.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exchange product is inactive")
	}

	rule := &models.ProductGroupExchangeRule{
		GroupID:           groupID,
		OriginalProductID: input.OriginalProductID,
		ExchangeProductID: input.ExchangeProductID,
		ExchangeRatio:     input.ExchangeRatio,
		AdditionalCost:    input.AdditionalCost,
		IsActive:          true,
		CreatedBy:         userID,
		UpdatedBy:         userID,
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).CreateExchangeRule(ctx, rule); err != nil {
			if db.IsUniqueViolation(err, "ux_product_group_exchange_rules_pair",
				"product_group_exchange_rules.original_product_id", "product_group_exchange_rules.exchange_product_id") {
				return pkgerrors.New(pkgerrors.CodeConflict, "exchange rule already exists for this pair")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert exchange rule")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add exchange rule")
	}
	return newExchangeRuleDTO(rule), nil
}

// DeactivateExchangeRule stops the rule from applying.
func (s *service) DeactivateExchangeRule(ctx context.Context, userID, ruleID uuid.UUID) error {
	if err := s.repo.DeactivateExchangeRule(ctx, ruleID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "exchange rule not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: deactivate exchange rule")
	}
	return nil
}

// ValidateSelection checks cardinality and membership of the selection.
// Violations are aggregated so the caller sees every problem at once.
func (s *service) ValidateSelection(ctx context.Context, groupID uuid.UUID, selection []SelectedItem) error {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	items, err := s.repo.ListItems(ctx, groupID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list group items")
	}
	byProduct := itemsByProduct(items)

	distinct := distinctSelection(selection)

	var violations error
	if len(distinct) < group.MinItemsRequired {
		violations = multierr.Append(violations,
			fmt.Errorf("selection has %d items, group requires at least %d", len(distinct), group.MinItemsRequired))
	}
	if group.MaxItemsAllowed != 0 && len(distinct) > group.MaxItemsAllowed {
		violations = multierr.Append(violations,
			fmt.Errorf("selection has %d items, group allows at most %d", len(distinct), group.MaxItemsAllowed))
	}
	for productID, qty := range distinct {
		item, ok := byProduct[productID]
		if !ok {
			violations = multierr.Append(violations,
				fmt.Errorf("product %s is not a member of the group", productID))
			continue
		}
		effective := effectiveQuantity(item, qty)
		if effective < item.MinQuantity {
			violations = multierr.Append(violations,
				fmt.Errorf("product %s quantity %d below item minimum %d", productID, effective, item.MinQuantity))
		}
		if item.MaxQuantity != nil && effective > *item.MaxQuantity {
			violations = multierr.Append(violations,
				fmt.Errorf("product %s quantity %d above item maximum %d", productID, effective, *item.MaxQuantity))
		}
	}

	if violations != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, violations, "selection invalid").
			WithDetails(map[string]any{"violations": multierr.Errors(violations)})
	}
	return nil
}

// Price computes the effective price of a selection. An empty selection
// prices as the group's own unit price; a non-empty selection replaces it
// entirely, it is never added on top.
func (s *service) Price(ctx context.Context, groupID uuid.UUID, selection []SelectedItem) (decimal.Decimal, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return decimal.Zero, err
	}
	if len(selection) == 0 {
		return group.UnitPrice, nil
	}
	if err := s.ValidateSelection(ctx, groupID, selection); err != nil {
		return decimal.Zero, err
	}

	items, err := s.repo.ListItems(ctx, groupID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list group items")
	}
	byProduct := itemsByProduct(items)

	total := decimal.Zero
	for productID, qty := range distinctSelection(selection) {
		item := byProduct[productID]
		if item.Product == nil {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeInternal, "group item missing product row")
		}
		unit := item.Product.UnitPrice.Add(item.ExtraPrice)
		total = total.Add(unit.Mul(decimal.NewFromInt(int64(effectiveQuantity(item, qty)))))
	}
	return total, nil
}

// ApplyExchange converts a source quantity through the rule's ratio. Rules
// never relax the selection's cardinality checks; they swap an already-valid
// line for its equivalent.
func (s *service) ApplyExchange(ctx context.Context, ruleID uuid.UUID, sourceQty int) (*ExchangeResult, error) {
	if sourceQty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source quantity must be positive")
	}
	rule, err := s.repo.FindExchangeRuleByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "exchange rule not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load exchange rule")
	}
	if !rule.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exchange rule is inactive")
	}
	if rule.ExchangeProduct == nil || !rule.ExchangeProduct.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exchange product is inactive")
	}

	return &ExchangeResult{
		TargetProductID: rule.ExchangeProductID,
		TargetQuantity:  rule.ExchangeRatio.Mul(decimal.NewFromInt(int64(sourceQty))),
		AdditionalCost:  rule.AdditionalCost,
	}, nil
}

func (s *service) loadGroup(ctx context.Context, groupID uuid.UUID) (*models.Product, error) {
	group, err := s.loadProduct(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.Variant != enums.ProductVariantGroup {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not a group")
	}
	return group, nil
}

func (s *service) loadItem(ctx context.Context, itemID uuid.UUID) (*models.ProductGroupItem, error) {
	item, err := s.repo.FindItemByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "group item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load group item")
	}
	return item, nil
}

func (s *service) loadProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	return product, nil
}

func itemsByProduct(items []models.ProductGroupItem) map[uuid.UUID]*models.ProductGroupItem {
	byProduct := make(map[uuid.UUID]*models.ProductGroupItem, len(items))
	for i := range items {
		byProduct[items[i].ProductID] = &items[i]
	}
	return byProduct
}

// distinctSelection collapses duplicate product lines, keeping the largest
// requested quantity per product.
func distinctSelection(selection []SelectedItem) map[uuid.UUID]int {
	distinct := make(map[uuid.UUID]int, len(selection))
	for _, line := range selection {
		if current, ok := distinct[line.ProductID]; !ok || line.Quantity > current {
			distinct[line.ProductID] = line.Quantity
		}
	}
	return distinct
}

func effectiveQuantity(item *models.ProductGroupItem, requested int) int {
	if requested > 0 {
		return requested
	}
	if item.DefaultQuantity > 0 {
		return item.DefaultQuantity
	}
	return 1
}

func containsProduct(items []models.ProductGroupItem, productID uuid.UUID) bool {
	for _, item := range items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}
