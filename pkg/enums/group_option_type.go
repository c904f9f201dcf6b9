package enums

import "fmt"

// GroupOptionType controls how many choices one configuration axis admits.
type GroupOptionType string

const (
	GroupOptionTypeSingle   GroupOptionType = "single"
	GroupOptionTypeMultiple GroupOptionType = "multiple"
)

var validGroupOptionTypes = []GroupOptionType{
	GroupOptionTypeSingle,
	GroupOptionTypeMultiple,
}

// String implements fmt.Stringer.
func (t GroupOptionType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known GroupOptionType.
func (t GroupOptionType) IsValid() bool {
	for _, candidate := range validGroupOptionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseGroupOptionType converts raw input into a GroupOptionType.
func ParseGroupOptionType(value string) (GroupOptionType, error) {
	for _, candidate := range validGroupOptionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid group option type %q", value)
}
