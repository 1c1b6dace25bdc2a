package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/zedexpress/zedexpress-backend/pkg/enums"
	"github.com/zedexpress/zedexpress-backend/pkg/types"
)

// Catalog keys for the methods seeded at install time. Code that special-cases
// a method matches on these, never on raw strings.
const (
	MethodKeyCashOnDelivery = "cash_on_delivery"
	MethodKeyAirtelMoney    = "mobile_money:airtel_zm"
	MethodKeyMTNMoney       = "mobile_money:mtn_zm"
)

// PaymentMethod is a catalog entry for a way customers can pay. The key is
// the stable identifier clients select by, e.g. "mobile_money:airtel_zm".
type PaymentMethod struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Key         string                  `gorm:"column:key;not null;uniqueIndex"`
	Type        enums.PaymentMethodType `gorm:"column:type;not null"`
	Provider    *string                 `gorm:"column:provider"`
	DisplayName string                  `gorm:"column:display_name;not null"`
	Currency    enums.Currency          `gorm:"column:currency;not null"`

	Regions pq.StringArray `gorm:"column:regions;type:text[]"`

	MinAmount *decimal.Decimal `gorm:"column:min_amount;type:numeric(12,2)"`
	MaxAmount *decimal.Decimal `gorm:"column:max_amount;type:numeric(12,2)"`

	RequiresMSISDN bool          `gorm:"column:requires_msisdn;not null;default:false"`
	Metadata       types.JSONMap `gorm:"column:metadata;type:jsonb"`

	Enabled bool `gorm:"column:enabled;not null;default:true"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// IsAvailable reports whether the method can currently be offered.
func (m *PaymentMethod) IsAvailable() bool {
	return m != nil && m.Enabled
}

// SupportsCurrency reports whether the method settles in the given currency.
func (m *PaymentMethod) SupportsCurrency(currency enums.Currency) bool {
	if m == nil {
		return false
	}
	return currency == "" || m.Currency == currency
}

// SupportsRegion reports whether the method operates in the given region. An
// empty regions list means country-wide support.
func (m *PaymentMethod) SupportsRegion(region string) bool {
	if m == nil {
		return false
	}
	if region == "" || len(m.Regions) == 0 {
		return true
	}
	for _, candidate := range m.Regions {
		if candidate == region {
			return true
		}
	}
	return false
}

// SupportsAmount reports whether the amount falls inside the method's bounds.
func (m *PaymentMethod) SupportsAmount(amount decimal.Decimal) bool {
	if m == nil {
		return false
	}
	if m.MinAmount != nil && amount.LessThan(*m.MinAmount) {
		return false
	}
	if m.MaxAmount != nil && amount.GreaterThan(*m.MaxAmount) {
		return false
	}
	return true
}
