package enums

import "fmt"

// SurgeMode selects how a surge component is computed.
type SurgeMode string

const (
	SurgeModeFactor SurgeMode = "factor"
	SurgeModeFixed  SurgeMode = "fixed"
)

// SurgeAppliesTo names the breakdown slice a surge factor multiplies.
type SurgeAppliesTo string

const (
	SurgeAppliesToDistance         SurgeAppliesTo = "distance"
	SurgeAppliesToDuration         SurgeAppliesTo = "duration"
	SurgeAppliesToDistanceDuration SurgeAppliesTo = "distance+duration"
	SurgeAppliesToSubtotal         SurgeAppliesTo = "subtotal"
)

var validSurgeModes = []SurgeMode{SurgeModeFactor, SurgeModeFixed}

var validSurgeAppliesTo = []SurgeAppliesTo{
	SurgeAppliesToDistance,
	SurgeAppliesToDuration,
	SurgeAppliesToDistanceDuration,
	SurgeAppliesToSubtotal,
}

// IsValid reports whether the value is a known SurgeMode.
func (s SurgeMode) IsValid() bool {
	for _, candidate := range validSurgeModes {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsValid reports whether the value is a known SurgeAppliesTo.
func (s SurgeAppliesTo) IsValid() bool {
	for _, candidate := range validSurgeAppliesTo {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSurgeMode converts the raw string to SurgeMode.
func ParseSurgeMode(value string) (SurgeMode, error) {
	for _, candidate := range validSurgeModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid surge mode %q", value)
}
