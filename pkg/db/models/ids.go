package models

import (
	"strings"

	"github.com/google/uuid"
)

// Public identifier prefixes. Prefixed IDs are what clients see and pass
// back; the prefix makes parameter mixups obvious in logs and bug reports.
const (
	PrefixPaymentIntent = "pay_int_"
	PrefixClientSecret  = "pi_cs_"
	PrefixSession       = "sess_"
	PrefixDelivery      = "del_"
	PrefixStop          = "stp_"
	PrefixReadyToken    = "rdy_"
)

// NewID mints a prefixed identifier backed by a random UUID.
func NewID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// HasPrefix reports whether id carries the expected prefix.
func HasPrefix(id, prefix string) bool {
	return strings.HasPrefix(id, prefix) && len(id) > len(prefix)
}
