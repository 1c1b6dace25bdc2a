package enums

import "fmt"

// VehicleType describes the courier vehicle class used for rating and capacity checks.
type VehicleType string

const (
	VehicleTypeMotorbike VehicleType = "motorbike"
	VehicleTypeBicycle   VehicleType = "bicycle"
	VehicleTypeWalking   VehicleType = "walking"
	VehicleTypeTruck     VehicleType = "truck"
)

var validVehicleTypes = []VehicleType{
	VehicleTypeMotorbike,
	VehicleTypeBicycle,
	VehicleTypeWalking,
	VehicleTypeTruck,
}

// String implements fmt.Stringer.
func (v VehicleType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VehicleType.
func (v VehicleType) IsValid() bool {
	for _, candidate := range validVehicleTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVehicleType converts the raw string to VehicleType.
func ParseVehicleType(value string) (VehicleType, error) {
	for _, candidate := range validVehicleTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vehicle type %q", value)
}
