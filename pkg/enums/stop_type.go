package enums

import "fmt"

// StopType distinguishes the pickup stop from dropoff stops on a delivery route.
type StopType string

const (
	StopTypePickup  StopType = "pickup"
	StopTypeDropoff StopType = "dropoff"
)

var validStopTypes = []StopType{
	StopTypePickup,
	StopTypeDropoff,
}

// IsValid reports whether the value is a known StopType.
func (s StopType) IsValid() bool {
	for _, candidate := range validStopTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStopType converts the raw string to StopType.
func ParseStopType(value string) (StopType, error) {
	for _, candidate := range validStopTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stop type %q", value)
}
