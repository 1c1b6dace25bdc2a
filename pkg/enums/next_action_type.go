package enums

import "fmt"

// NextActionType names the client-side step a payment session is waiting on.
type NextActionType string

const (
	NextActionTypeRedirect NextActionType = "redirect"
	NextActionTypeStkPush  NextActionType = "stk_push"
	NextActionTypeQR       NextActionType = "qr"
	NextActionTypeUSSD     NextActionType = "ussd"
	NextActionTypeNone     NextActionType = "none"
)

var validNextActionTypes = []NextActionType{
	NextActionTypeRedirect,
	NextActionTypeStkPush,
	NextActionTypeQR,
	NextActionTypeUSSD,
	NextActionTypeNone,
}

// IsValid reports whether the value is a known NextActionType.
func (n NextActionType) IsValid() bool {
	for _, candidate := range validNextActionTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNextActionType converts the raw string to NextActionType.
func ParseNextActionType(value string) (NextActionType, error) {
	for _, candidate := range validNextActionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid next action type %q", value)
}
