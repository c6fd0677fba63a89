package enums

import "fmt"

// AdjustmentType classifies why a stock quantity changed.
type AdjustmentType string

const (
	AdjustmentTypeManual      AdjustmentType = "manual"
	AdjustmentTypeSystem      AdjustmentType = "system"
	AdjustmentTypeOrder       AdjustmentType = "order"
	AdjustmentTypeOrderCancel AdjustmentType = "order_cancel"
)

var validAdjustmentTypes = []AdjustmentType{
	AdjustmentTypeManual,
	AdjustmentTypeSystem,
	AdjustmentTypeOrder,
	AdjustmentTypeOrderCancel,
}

// String implements fmt.Stringer.
func (t AdjustmentType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known AdjustmentType.
func (t AdjustmentType) IsValid() bool {
	for _, candidate := range validAdjustmentTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseAdjustmentType converts raw input into an AdjustmentType.
func ParseAdjustmentType(value string) (AdjustmentType, error) {
	for _, candidate := range validAdjustmentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid adjustment type %q", value)
}

// NudgesSoldCount reports whether a stock change of this type moves sold_count
// opposite to the delta. Order-driven types manage sold_count themselves.
func (t AdjustmentType) NudgesSoldCount() bool {
	return t == AdjustmentTypeManual || t == AdjustmentTypeSystem
}
