package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zedexpress/zedexpress-backend/pkg/enums"
	"github.com/zedexpress/zedexpress-backend/pkg/types"
)

// DeliveryOrder is the checkout aggregate. Pricing, payment selection and the
// preflight ready token all hang off this row; the version column makes each
// workflow step a compare-and-swap.
type DeliveryOrder struct {
	ID     string               `gorm:"column:id;primaryKey"`
	UserID uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	Status enums.DeliveryStatus `gorm:"column:status;not null;default:'booked'"`

	Region       string             `gorm:"column:region;not null"`
	VehicleType  enums.VehicleType  `gorm:"column:vehicle_type;not null"`
	ServiceLevel enums.ServiceLevel `gorm:"column:service_level;not null"`
	Currency     enums.Currency     `gorm:"column:currency;not null"`

	Notes *string `gorm:"column:notes"`

	QuoteTotal       *decimal.Decimal `gorm:"column:quote_total;type:numeric(12,2)"`
	QuoteBreakdown   types.JSONMap    `gorm:"column:quote_breakdown;type:jsonb"`
	QuoteCanonical   *string          `gorm:"column:quote_canonical;type:text"`
	QuoteSignature   *string          `gorm:"column:quote_signature"`
	QuoteKeyID       *string          `gorm:"column:quote_key_id"`
	QuoteIssuedAt    *string          `gorm:"column:quote_issued_at"`
	QuoteTTLSeconds  *int             `gorm:"column:quote_ttl_seconds"`
	QuoteCanonHash   *string          `gorm:"column:quote_canon_hash"`
	QuoteExpiresAt   *time.Time       `gorm:"column:quote_expires_at"`
	QuoteDistanceKM  *decimal.Decimal `gorm:"column:quote_distance_km;type:numeric(8,2)"`
	QuoteDurationMin *decimal.Decimal `gorm:"column:quote_duration_min;type:numeric(8,2)"`

	PaymentMethodKey *string `gorm:"column:payment_method_key"`
	PaymentIntentID  *string `gorm:"column:payment_intent_id;index"`

	ReadyToken          *string    `gorm:"column:ready_token"`
	ReadyTokenExpiresAt *time.Time `gorm:"column:ready_token_expires_at"`

	SubmittedAt *time.Time `gorm:"column:submitted_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`

	Version int64 `gorm:"column:version;not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Stops []DeliveryStop `gorm:"foreignKey:DeliveryID;references:ID"`
}

// DeliveryStop is one point on a delivery route, ordered by Seq. The first
// stop is always the pickup.
type DeliveryStop struct {
	ID         string         `gorm:"column:id;primaryKey"`
	DeliveryID string         `gorm:"column:delivery_id;not null;index"`
	Seq        int            `gorm:"column:seq;not null"`
	Type       enums.StopType `gorm:"column:type;not null"`

	Lat float64 `gorm:"column:lat;type:numeric(9,6);not null"`
	Lng float64 `gorm:"column:lng;type:numeric(9,6);not null"`

	Address      string  `gorm:"column:address;not null"`
	ContactName  *string `gorm:"column:contact_name"`
	ContactPhone *string `gorm:"column:contact_phone"`
	Notes        *string `gorm:"column:notes"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
