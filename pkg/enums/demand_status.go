package enums

import "fmt"

// DemandStatus tracks one unit of production work through its strictly
// linear lifecycle. There is no cancel state: a demand exists only for a
// confirmed order line and follows it to delivery.
type DemandStatus string

const (
	DemandStatusPending   DemandStatus = "pending"
	DemandStatusConfirmed DemandStatus = "confirmed"
	DemandStatusProduced  DemandStatus = "produced"
	DemandStatusEnding    DemandStatus = "ending"
	DemandStatusDelivered DemandStatus = "delivered"
)

var validDemandStatuses = []DemandStatus{
	DemandStatusPending,
	DemandStatusConfirmed,
	DemandStatusProduced,
	DemandStatusEnding,
	DemandStatusDelivered,
}

// String implements fmt.Stringer.
func (s DemandStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known DemandStatus.
func (s DemandStatus) IsValid() bool {
	for _, candidate := range validDemandStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Predecessor returns the status a demand must hold before advancing to s.
// Pending has no predecessor and returns false.
func (s DemandStatus) Predecessor() (DemandStatus, bool) {
	for i, candidate := range validDemandStatuses {
		if candidate == s && i > 0 {
			return validDemandStatuses[i-1], true
		}
	}
	return "", false
}

// ParseDemandStatus converts raw input into a DemandStatus.
func ParseDemandStatus(value string) (DemandStatus, error) {
	for _, candidate := range validDemandStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid demand status %q", value)
}
