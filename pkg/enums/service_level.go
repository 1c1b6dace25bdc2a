package enums

import "fmt"

// ServiceLevel selects the delivery service tier priced by the rate table multipliers.
type ServiceLevel string

const (
	ServiceLevelStandard ServiceLevel = "standard"
	ServiceLevelExpress  ServiceLevel = "express"
	ServiceLevelPremium  ServiceLevel = "premium"
)

var validServiceLevels = []ServiceLevel{
	ServiceLevelStandard,
	ServiceLevelExpress,
	ServiceLevelPremium,
}

// String implements fmt.Stringer.
func (s ServiceLevel) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ServiceLevel.
func (s ServiceLevel) IsValid() bool {
	for _, candidate := range validServiceLevels {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseServiceLevel converts the raw string to ServiceLevel.
func ParseServiceLevel(value string) (ServiceLevel, error) {
	for _, candidate := range validServiceLevels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid service level %q", value)
}
