package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zedexpress/zedexpress-backend/pkg/enums"
	"github.com/zedexpress/zedexpress-backend/pkg/types"
)

// PaymentIntent tracks one attempt to get a delivery paid for. Status moves
// through the intent state machine only; the version column guards every
// transition against concurrent writers.
type PaymentIntent struct {
	ID           string             `gorm:"column:id;primaryKey"`
	DeliveryID   string             `gorm:"column:delivery_id;not null;index"`
	UserID       uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index"`
	MethodKey    string             `gorm:"column:method_key"`
	Amount       decimal.Decimal    `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency     enums.Currency     `gorm:"column:currency;not null"`
	Status       enums.IntentStatus `gorm:"column:status;not null;default:'requires_method'"`
	ClientSecret string             `gorm:"column:client_secret;not null"`

	NextAction *types.NextAction `gorm:"column:next_action;type:jsonb"`
	Metadata   types.JSONMap     `gorm:"column:metadata;type:jsonb"`

	FailureCode    *string `gorm:"column:failure_code"`
	FailureMessage *string `gorm:"column:failure_message"`

	CollectedAmount *decimal.Decimal `gorm:"column:collected_amount;type:numeric(12,2)"`
	CollectedAt     *time.Time       `gorm:"column:collected_at"`

	Version int64 `gorm:"column:version;not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// PaymentSession records one provider-side attempt under an intent. A fresh
// session is opened per confirmation, so retried intents keep an audit trail
// of every push sent out.
type PaymentSession struct {
	ID          string              `gorm:"column:id;primaryKey"`
	IntentID    string              `gorm:"column:intent_id;not null;index"`
	MethodKey   string              `gorm:"column:method_key;not null"`
	Provider    string              `gorm:"column:provider;not null"`
	ProviderRef *string             `gorm:"column:provider_ref"`
	ReceiptURL  *string             `gorm:"column:receipt_url"`
	Status      enums.SessionStatus `gorm:"column:status;not null;default:'requires_action'"`

	NextAction *types.NextAction `gorm:"column:next_action;type:jsonb"`

	FailureCode    *string `gorm:"column:failure_code"`
	FailureMessage *string `gorm:"column:failure_message"`

	Version int64 `gorm:"column:version;not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
