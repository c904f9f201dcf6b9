package enums

import "fmt"

// ProductionPriority orders production work when capacity is contended.
type ProductionPriority string

const (
	ProductionPriorityLow    ProductionPriority = "low"
	ProductionPriorityNormal ProductionPriority = "normal"
	ProductionPriorityHigh   ProductionPriority = "high"
	ProductionPriorityUrgent ProductionPriority = "urgent"
)

var validProductionPriorities = []ProductionPriority{
	ProductionPriorityLow,
	ProductionPriorityNormal,
	ProductionPriorityHigh,
	ProductionPriorityUrgent,
}

// String implements fmt.Stringer.
func (p ProductionPriority) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductionPriority.
func (p ProductionPriority) IsValid() bool {
	for _, candidate := range validProductionPriorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProductionPriority converts raw input into a ProductionPriority.
func ParseProductionPriority(value string) (ProductionPriority, error) {
	for _, candidate := range validProductionPriorities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid production priority %q", value)
}
