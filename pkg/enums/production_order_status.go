package enums

import "fmt"

// ProductionOrderStatus tracks the execution state of a production order.
type ProductionOrderStatus string

const (
	ProductionOrderStatusPending    ProductionOrderStatus = "pending"
	ProductionOrderStatusScheduled  ProductionOrderStatus = "scheduled"
	ProductionOrderStatusInProgress ProductionOrderStatus = "in_progress"
	ProductionOrderStatusPaused     ProductionOrderStatus = "paused"
	ProductionOrderStatusCompleted  ProductionOrderStatus = "completed"
	ProductionOrderStatusCancelled  ProductionOrderStatus = "cancelled"
	ProductionOrderStatusFailed     ProductionOrderStatus = "failed"
)

var validProductionOrderStatuses = []ProductionOrderStatus{
	ProductionOrderStatusPending,
	ProductionOrderStatusScheduled,
	ProductionOrderStatusInProgress,
	ProductionOrderStatusPaused,
	ProductionOrderStatusCompleted,
	ProductionOrderStatusCancelled,
	ProductionOrderStatusFailed,
}

// String implements fmt.Stringer.
func (s ProductionOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ProductionOrderStatus.
func (s ProductionOrderStatus) IsValid() bool {
	for _, candidate := range validProductionOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s ProductionOrderStatus) IsTerminal() bool {
	switch s {
	case ProductionOrderStatusCompleted, ProductionOrderStatusCancelled, ProductionOrderStatusFailed:
		return true
	default:
		return false
	}
}

// CanStart reports whether execution may begin from this status.
func (s ProductionOrderStatus) CanStart() bool {
	return s == ProductionOrderStatusPending || s == ProductionOrderStatusScheduled
}

// ParseProductionOrderStatus converts raw input into a ProductionOrderStatus.
func ParseProductionOrderStatus(value string) (ProductionOrderStatus, error) {
	for _, candidate := range validProductionOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid production order status %q", value)
}
