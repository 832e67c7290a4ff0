package enums

import "fmt"

// MovementReason classifies a stock movement record.
type MovementReason string

const (
	MovementReasonSale    MovementReason = "sale"
	MovementReasonRestock MovementReason = "restock"
)

var validMovementReasons = []MovementReason{
	MovementReasonSale,
	MovementReasonRestock,
}

// String implements fmt.Stringer.
func (m MovementReason) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MovementReason.
func (m MovementReason) IsValid() bool {
	for _, candidate := range validMovementReasons {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMovementReason converts raw input into a MovementReason.
func ParseMovementReason(value string) (MovementReason, error) {
	for _, candidate := range validMovementReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement reason %q", value)
}
