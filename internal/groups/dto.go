package groups

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prodwell/prodwell-backend/pkg/db/models"
)

// ItemDTO is one selectable line of a group product.
type ItemDTO struct {
	ID              uuid.UUID       `json:"id"`
	GroupID         uuid.UUID       `json:"group_id"`
	ProductID       uuid.UUID       `json:"product_id"`
	ProductName     string          `json:"product_name,omitempty"`
	Quantity        int             `json:"quantity"`
	MinQuantity     int             `json:"min_quantity"`
	MaxQuantity     *int            `json:"max_quantity,omitempty"`
	DefaultQuantity int             `json:"default_quantity"`
	IsOptional      bool            `json:"is_optional"`
	ExtraPrice      decimal.Decimal `json:"extra_price"`
	IsActive        bool            `json:"is_active"`
}

// OptionDTO is one configuration axis of a group product.
type OptionDTO struct {
	ID           uuid.UUID `json:"id"`
	GroupID      uuid.UUID `json:"group_id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	IsRequired   bool      `json:"is_required"`
	DisplayOrder int       `json:"display_order"`
}

// ExchangeRuleDTO is one substitution rule of a group product.
type ExchangeRuleDTO struct {
	ID                uuid.UUID       `json:"id"`
	GroupID           uuid.UUID       `json:"group_id"`
	OriginalProductID uuid.UUID       `json:"original_product_id"`
	ExchangeProductID uuid.UUID       `json:"exchange_product_id"`
	ExchangeRatio     decimal.Decimal `json:"exchange_ratio"`
	AdditionalCost    decimal.Decimal `json:"additional_cost"`
	IsActive          bool            `json:"is_active"`
}

// ExchangeResult is the outcome of applying one exchange rule.
type ExchangeResult struct {
	TargetProductID uuid.UUID       `json:"target_product_id"`
	TargetQuantity  decimal.Decimal `json:"target_quantity"`
	AdditionalCost  decimal.Decimal `json:"additional_cost"`
}

func newItemDTO(item *models.ProductGroupItem) *ItemDTO {
	if item == nil {
		return nil
	}
	dto := &ItemDTO{
		ID:              item.ID,
		GroupID:         item.GroupID,
		ProductID:       item.ProductID,
		Quantity:        item.Quantity,
		MinQuantity:     item.MinQuantity,
		MaxQuantity:     item.MaxQuantity,
		DefaultQuantity: item.DefaultQuantity,
		IsOptional:      item.IsOptional,
		ExtraPrice:      item.ExtraPrice,
		IsActive:        item.IsActive,
	}
	if item.Product != nil {
		dto.ProductName = item.Product.Name
	}
	return dto
}

func newOptionDTO(option *models.ProductGroupOption) *OptionDTO {
	if option == nil {
		return nil
	}
	return &OptionDTO{
		ID:           option.ID,
		GroupID:      option.GroupID,
		Name:         option.Name,
		Type:         option.Type.String(),
		IsRequired:   option.IsRequired,
		DisplayOrder: option.DisplayOrder,
	}
}

func newExchangeRuleDTO(rule *models.ProductGroupExchangeRule) *ExchangeRuleDTO {
	if rule == nil {
		return nil
	}
	return &ExchangeRuleDTO{
		ID:                rule.ID,
		GroupID:           rule.GroupID,
		OriginalProductID: rule.OriginalProductID,
		ExchangeProductID: rule.ExchangeProductID,
		ExchangeRatio:     rule.ExchangeRatio,
		AdditionalCost:    rule.AdditionalCost,
		IsActive:          rule.IsActive,
	}
}
