package enums

import "fmt"

// IntentStatus tracks a payment intent through its lifecycle.
type IntentStatus string

const (
	IntentStatusRequiresMethod       IntentStatus = "requires_method"
	IntentStatusRequiresConfirmation IntentStatus = "requires_confirmation"
	IntentStatusProcessing           IntentStatus = "processing"
	IntentStatusRequiresAction       IntentStatus = "requires_action"
	IntentStatusSucceeded            IntentStatus = "succeeded"
	IntentStatusCaptured             IntentStatus = "captured"
	IntentStatusFailed               IntentStatus = "failed"
	IntentStatusCancelled            IntentStatus = "cancelled"
)

var validIntentStatuses = []IntentStatus{
	IntentStatusRequiresMethod,
	IntentStatusRequiresConfirmation,
	IntentStatusProcessing,
	IntentStatusRequiresAction,
	IntentStatusSucceeded,
	IntentStatusCaptured,
	IntentStatusFailed,
	IntentStatusCancelled,
}

// intentTransitions enumerates the allowed status moves. Anything absent is rejected.
var intentTransitions = map[IntentStatus][]IntentStatus{
	IntentStatusRequiresMethod: {IntentStatusRequiresConfirmation, IntentStatusCancelled},
	IntentStatusRequiresConfirmation: {
		IntentStatusProcessing,
		IntentStatusRequiresAction,
		IntentStatusSucceeded,
		IntentStatusFailed,
		IntentStatusCancelled,
	},
	IntentStatusRequiresAction: {
		IntentStatusProcessing,
		IntentStatusSucceeded,
		IntentStatusFailed,
		IntentStatusCancelled,
		IntentStatusRequiresConfirmation,
	},
	IntentStatusProcessing: {IntentStatusSucceeded, IntentStatusFailed},
	IntentStatusSucceeded:  {IntentStatusCaptured},
}

// String implements fmt.Stringer.
func (i IntentStatus) String() string {
	return string(i)
}

// IsValid reports whether the value is a known IntentStatus.
func (i IntentStatus) IsValid() bool {
	for _, candidate := range validIntentStatuses {
		if candidate == i {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the status machine allows moving to next.
func (i IntentStatus) CanTransitionTo(next IntentStatus) bool {
	for _, candidate := range intentTransitions[i] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsConfirmable reports whether a confirm attempt is permitted in this status.
func (i IntentStatus) IsConfirmable() bool {
	return i == IntentStatusRequiresMethod || i == IntentStatusRequiresConfirmation
}

// IsCancellable reports whether the intent may still be cancelled.
func (i IntentStatus) IsCancellable() bool {
	switch i {
	case IntentStatusRequiresMethod, IntentStatusRequiresConfirmation, IntentStatusRequiresAction:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are expected.
func (i IntentStatus) IsTerminal() bool {
	switch i {
	case IntentStatusCaptured, IntentStatusFailed, IntentStatusCancelled:
		return true
	}
	return false
}

// ParseIntentStatus converts the raw string to IntentStatus.
func ParseIntentStatus(value string) (IntentStatus, error) {
	for _, candidate := range validIntentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid intent status %q", value)
}
