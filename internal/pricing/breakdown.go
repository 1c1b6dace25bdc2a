package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zedexpress/zedexpress-backend/pkg/enums"
)

// Breakdown carries the priced components of a quote. Each component is
// rounded to 2 decimals independently before summing; the resulting cent-level
// drift against a single rounding of the raw sum is accepted.
type Breakdown struct {
	Base             decimal.Decimal `json:"base"`
	Distance         decimal.Decimal `json:"distance"`
	Duration         decimal.Decimal `json:"duration"`
	Multistop        decimal.Decimal `json:"multistop"`
	VehicleSurcharge decimal.Decimal `json:"vehicle_surcharge"`
	ServiceLevel     decimal.Decimal `json:"service_level"`
	SmallOrderFee    decimal.Decimal `json:"small_order_fee"`
	PlatformFee      decimal.Decimal `json:"platform_fee"`
	Surge            decimal.Decimal `json:"surge"`
	PromoDiscount    decimal.Decimal `json:"promo_discount"`
	GiftCardPreview  decimal.Decimal `json:"gift_card_preview"`
	Tax              decimal.Decimal `json:"tax"`
}

// Sum adds every component, discounts included.
func (b Breakdown) Sum() decimal.Decimal {
	return b.Base.
		Add(b.Distance).
		Add(b.Duration).
		Add(b.Multistop).
		Add(b.VehicleSurcharge).
		Add(b.ServiceLevel).
		Add(b.SmallOrderFee).
		Add(b.PlatformFee).
		Add(b.Surge).
		Add(b.PromoDiscount).
		Add(b.GiftCardPreview).
		Add(b.Tax)
}

// AsMap renders the breakdown for storage or API responses, keeping the
// canonical key names.
func (b Breakdown) AsMap() map[string]any {
	return map[string]any{
		"base":              b.Base.StringFixed(2),
		"distance":          b.Distance.StringFixed(2),
		"duration":          b.Duration.StringFixed(2),
		"multistop":         b.Multistop.StringFixed(2),
		"vehicle_surcharge": b.VehicleSurcharge.StringFixed(2),
		"service_level":     b.ServiceLevel.StringFixed(2),
		"small_order_fee":   b.SmallOrderFee.StringFixed(2),
		"platform_fee":      b.PlatformFee.StringFixed(2),
		"surge":             b.Surge.StringFixed(2),
		"promo_discount":    b.PromoDiscount.StringFixed(2),
		"gift_card_preview": b.GiftCardPreview.StringFixed(2),
		"tax":               b.Tax.StringFixed(2),
	}
}

// canonicalPayload renders the fixed-field-order serialization a quote is
// signed over. Amounts are 2-dp fixed strings so re-serialization cannot
// change the signature.
func canonicalPayload(
	currency enums.Currency,
	region string,
	vehicleType enums.VehicleType,
	serviceLevel enums.ServiceLevel,
	distanceKM, durationMin decimal.Decimal,
	breakdown Breakdown,
	total decimal.Decimal,
	expiresAt time.Time,
) string {
	var sb strings.Builder
	sb.WriteString(`{"currency":`)
	sb.WriteString(fmt.Sprintf("%q", currency))
	sb.WriteString(`,"region":`)
	sb.WriteString(fmt.Sprintf("%q", region))
	sb.WriteString(`,"vehicle_type":`)
	sb.WriteString(fmt.Sprintf("%q", vehicleType))
	sb.WriteString(`,"service_level":`)
	sb.WriteString(fmt.Sprintf("%q", serviceLevel))
	sb.WriteString(`,"distance_km":`)
	sb.WriteString(fmt.Sprintf("%q", distanceKM.StringFixed(2)))
	sb.WriteString(`,"duration_min":`)
	sb.WriteString(fmt.Sprintf("%q", durationMin.StringFixed(2)))
	sb.WriteString(`,"breakdown":{`)
	sb.WriteString(fmt.Sprintf(`"base":%q`, breakdown.Base.StringFixed(2)))
	sb.WriteString(fmt.Sprintf(`,"distance":%q`, breakdown.Distance.StringFixed(2)))
	sb.WriteString(fmt.Sprintf(`,"duration":%q`, breakdown.Duration.StringFixed(2)))
	sb.WriteString(fmt.Sprintf(`,"multistop":%q`, breakdown.Multistop.StringFixed(2)))
	sb.WriteString(fmt.Sprintf(`,"vehicle_surcharge":%q`, breakdown.VehicleSurcharge.StringFixed(2)))
	sb.WriteString(fmt.Sprintf(`,"service_level":%q`, breakdown.ServiceLevel.StringFixed(2)))
	sb.WriteString(fmt.Sprintf(`,"small_order_fee":%q`, breakdown.SmallOrderFee.StringFixed(2)))
	sb.WriteString(fmt.Sprintf(`,"platform_fee":%q`, breakdown.PlatformFee.StringFixed(2)))
	sb.WriteString(fmt.Sprintf(`,"surge":%q`, breakdown.Surge.StringFixed(2)))
	sb.WriteString(fmt.Sprintf(`,"promo_discount":%q`, breakdown.PromoDiscount.StringFixed(2)))
	sb.WriteString(fmt.Sprintf(`,"gift_card_preview":%q`, breakdown.GiftCardPreview.StringFixed(2)))
	sb.WriteString(fmt.Sprintf(`,"tax":%q`, breakdown.Tax.StringFixed(2)))
	sb.WriteString(`},"total":`)
	sb.WriteString(fmt.Sprintf("%q", total.StringFixed(2)))
	sb.WriteString(`,"expires_at":`)
	sb.WriteString(fmt.Sprintf("%q", expiresAt.UTC().Format(time.RFC3339)))
	sb.WriteString(`}`)
	return sb.String()
}
