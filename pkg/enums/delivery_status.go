package enums

import "fmt"

// DeliveryStatus is the coarse lifecycle of a delivery order.
type DeliveryStatus string

const (
	DeliveryStatusBooked    DeliveryStatus = "booked"
	DeliveryStatusSubmitted DeliveryStatus = "submitted"
	DeliveryStatusDelivery  DeliveryStatus = "delivery"
	DeliveryStatusCancelled DeliveryStatus = "cancelled"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusBooked,
	DeliveryStatusSubmitted,
	DeliveryStatusDelivery,
	DeliveryStatusCancelled,
}

// String implements fmt.Stringer.
func (d DeliveryStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryStatus.
func (d DeliveryStatus) IsValid() bool {
	for _, candidate := range validDeliveryStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDeliveryStatus converts the raw string to DeliveryStatus.
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	for _, candidate := range validDeliveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery status %q", value)
}
