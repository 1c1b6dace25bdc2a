package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zedexpress/zedexpress-backend/pkg/enums"
)

// RateTable holds the tariff for one (region, vehicle, service level)
// combination. The pricing calculator never hard-codes amounts; everything it
// charges comes from an active row here.
type RateTable struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Region       string             `gorm:"column:region;not null"`
	VehicleType  enums.VehicleType  `gorm:"column:vehicle_type;not null"`
	ServiceLevel enums.ServiceLevel `gorm:"column:service_level;not null"`
	Currency     enums.Currency     `gorm:"column:currency;not null"`

	BaseFare         decimal.Decimal `gorm:"column:base_fare;type:numeric(12,2);not null"`
	IncludedKM       decimal.Decimal `gorm:"column:included_km;type:numeric(8,2);not null"`
	PerKM            decimal.Decimal `gorm:"column:per_km;type:numeric(12,4);not null"`
	PerMinute        decimal.Decimal `gorm:"column:per_minute;type:numeric(12,4);not null"`
	MultistopFee     decimal.Decimal `gorm:"column:multistop_fee;type:numeric(12,2);not null"`
	VehicleSurcharge decimal.Decimal `gorm:"column:vehicle_surcharge;type:numeric(12,2);not null;default:0"`
	PlatformFee      decimal.Decimal `gorm:"column:platform_fee;type:numeric(12,2);not null"`

	SmallOrderThreshold decimal.Decimal `gorm:"column:small_order_threshold;type:numeric(12,2);not null"`
	SmallOrderFee       decimal.Decimal `gorm:"column:small_order_fee;type:numeric(12,2);not null"`

	ServiceLevelMultiplier decimal.Decimal `gorm:"column:service_level_multiplier;type:numeric(6,3);not null;default:1"`

	VATRate decimal.Decimal `gorm:"column:vat_rate;type:numeric(6,4);not null"`

	SurgeActive    bool                 `gorm:"column:surge_active;not null;default:false"`
	SurgeMode      enums.SurgeMode      `gorm:"column:surge_mode;not null;default:'factor'"`
	SurgeValue     decimal.Decimal      `gorm:"column:surge_value;type:numeric(8,3);not null;default:1"`
	SurgeAppliesTo enums.SurgeAppliesTo `gorm:"column:surge_applies_to;not null;default:'distance+duration'"`

	MaxStops    int              `gorm:"column:max_stops;not null;default:10"`
	MaxWeightKG *decimal.Decimal `gorm:"column:max_weight_kg;type:numeric(8,2)"`
	MaxVolumeM3 *decimal.Decimal `gorm:"column:max_volume_m3;type:numeric(8,3)"`

	QuoteTTLSeconds int  `gorm:"column:quote_ttl_seconds;not null;default:900"`
	Active          bool `gorm:"column:active;not null;default:true"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
