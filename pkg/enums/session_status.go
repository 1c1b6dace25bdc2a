package enums

import "fmt"

// SessionStatus tracks a single payment attempt against an intent.
type SessionStatus string

const (
	SessionStatusRequiresAction SessionStatus = "requires_action"
	SessionStatusProcessing     SessionStatus = "processing"
	SessionStatusSucceeded      SessionStatus = "succeeded"
	SessionStatusFailed         SessionStatus = "failed"
	SessionStatusCancelled      SessionStatus = "cancelled"
)

var validSessionStatuses = []SessionStatus{
	SessionStatusRequiresAction,
	SessionStatusProcessing,
	SessionStatusSucceeded,
	SessionStatusFailed,
	SessionStatusCancelled,
}

var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionStatusRequiresAction: {
		SessionStatusProcessing,
		SessionStatusSucceeded,
		SessionStatusFailed,
		SessionStatusCancelled,
	},
	SessionStatusProcessing: {SessionStatusSucceeded, SessionStatusFailed},
}

// String implements fmt.Stringer.
func (s SessionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SessionStatus.
func (s SessionStatus) IsValid() bool {
	for _, candidate := range validSessionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the session machine allows moving to next.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	for _, candidate := range sessionTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseSessionStatus converts the raw string to SessionStatus.
func ParseSessionStatus(value string) (SessionStatus, error) {
	for _, candidate := range validSessionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid session status %q", value)
}
