package enums

import "fmt"

// ProductVariant distinguishes how a product is produced and sold.
type ProductVariant string

const (
	// ProductVariantSimple is a directly produced item with its own
	// assembly time and instructions.
	ProductVariantSimple ProductVariant = "simple"
	// ProductVariantComposite is built from component hierarchies.
	ProductVariantComposite ProductVariant = "composite"
	// ProductVariantGroup is a configurable bundle of selectable items.
	ProductVariantGroup ProductVariant = "group"
)

var validProductVariants = []ProductVariant{
	ProductVariantSimple,
	ProductVariantComposite,
	ProductVariantGroup,
}

// String implements fmt.Stringer.
func (v ProductVariant) String() string {
	return string(v)
}

// IsValid reports whether the value is a known ProductVariant.
func (v ProductVariant) IsValid() bool {
	for _, candidate := range validProductVariants {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseProductVariant converts raw input into a ProductVariant.
func ParseProductVariant(value string) (ProductVariant, error) {
	for _, candidate := range validProductVariants {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product variant %q", value)
}
