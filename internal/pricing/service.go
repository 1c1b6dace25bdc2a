package pricing

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zedexpress/zedexpress-backend/pkg/db/models"
	"github.com/zedexpress/zedexpress-backend/pkg/enums"
	pkgerrors "github.com/zedexpress/zedexpress-backend/pkg/errors"
	"github.com/zedexpress/zedexpress-backend/pkg/signature"
)

const scheduleWindow = 48 * time.Hour

// Service prices trips and returns signed quotes.
type Service interface {
	CalculatePrice(ctx context.Context, input QuoteInput) (*Quote, error)
	GetRateTables(ctx context.Context, region string, vehicleType enums.VehicleType) ([]RateView, error)
}

// StopInput describes one point on the requested route.
type StopInput struct {
	Seq     int
	Type    enums.StopType
	Lat     *float64
	Lng     *float64
	Address *string
}

// LegInput is an explicit distance/duration segment supplied by the client's
// routing layer. When legs are present they take precedence over the
// great-circle estimate.
type LegInput struct {
	DistanceKM  decimal.Decimal
	DurationMin decimal.Decimal
}

// QuoteInput is the trip description handed to the calculator.
type QuoteInput struct {
	Region       string
	VehicleType  enums.VehicleType
	ServiceLevel enums.ServiceLevel
	Stops        []StopInput
	Legs         []LegInput
	ScheduledAt  *time.Time

	WeightKG *decimal.Decimal
	VolumeM3 *decimal.Decimal

	PromoDiscount   *decimal.Decimal
	GiftCardPreview *decimal.Decimal
}

// Quote is the signed pricing result. It is never persisted by the pricing
// service; trust rests entirely on the signature.
type Quote struct {
	Region       string             `json:"region"`
	VehicleType  enums.VehicleType  `json:"vehicle_type"`
	ServiceLevel enums.ServiceLevel `json:"service_level"`
	Currency     enums.Currency     `json:"currency"`

	DistanceKM  decimal.Decimal `json:"distance_km"`
	DurationMin decimal.Decimal `json:"duration_min"`

	Breakdown Breakdown       `json:"breakdown"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Total     decimal.Decimal `json:"total"`

	Advisories []string `json:"advisories"`

	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`

	Canonical string             `json:"canonical_payload"`
	Signature string             `json:"signature"`
	Envelope  signature.Envelope `json:"envelope"`
}

// RateView is the public projection of a rate table row.
type RateView struct {
	Region          string             `json:"region"`
	VehicleType     enums.VehicleType  `json:"vehicle_type"`
	ServiceLevel    enums.ServiceLevel `json:"service_level"`
	Currency        enums.Currency     `json:"currency"`
	BaseFare        decimal.Decimal    `json:"base_fare"`
	IncludedKM      decimal.Decimal    `json:"included_km"`
	PerKM           decimal.Decimal    `json:"per_km"`
	PerMinute       decimal.Decimal    `json:"per_minute"`
	SurgeActive     bool               `json:"surge_active"`
	QuoteTTLSeconds int                `json:"quote_ttl_seconds"`
}

type quoteSigner interface {
	Sign(canonical string, ttlSeconds int) (string, signature.Envelope)
}

type quoteMetrics interface {
	IncQuoteIssued()
}

// ServiceParams groups dependencies for the pricing service.
type ServiceParams struct {
	Repo    Repository
	Signer  quoteSigner
	Clock   func() time.Time
	Metrics quoteMetrics
}

type service struct {
	repo    Repository
	signer  quoteSigner
	now     func() time.Time
	metrics quoteMetrics
}

// NewService constructs a pricing service.
func NewService(params ServiceParams) (*service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "rate repo required")
	}
	if params.Signer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "quote signer required")
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    params.Repo,
		signer:  params.Signer,
		now:     now,
		metrics: params.Metrics,
	}, nil
}

// CalculatePrice validates the trip, resolves the tariff and returns a signed
// quote.
func (s *service) CalculatePrice(ctx context.Context, input QuoteInput) (*Quote, error) {
	if err := validateStops(input.Stops); err != nil {
		return nil, err
	}
	if err := s.validateSchedule(input.ScheduledAt); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Region) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "region is required")
	}
	if !input.VehicleType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid vehicle type")
	}
	if !input.ServiceLevel.IsValid() {
		input.ServiceLevel = enums.ServiceLevelStandard
	}

	rate, err := s.repo.FindActiveRate(ctx, input.Region, input.VehicleType, input.ServiceLevel)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rate table")
	}
	if rate == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no rate table for region and vehicle type")
	}

	if err := enforceCapacity(rate, input); err != nil {
		return nil, err
	}

	distanceKM, durationMin, err := resolveRoute(input)
	if err != nil {
		return nil, err
	}

	breakdown := computeBreakdown(rate, input, distanceKM, durationMin, len(input.Stops))
	subtotal := breakdown.Sum()
	total := subtotal
	if total.IsNegative() {
		total = decimal.Zero
	}

	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(time.Duration(rate.QuoteTTLSeconds) * time.Second)

	canonical := canonicalPayload(
		rate.Currency, rate.Region, rate.VehicleType, rate.ServiceLevel,
		distanceKM, durationMin, breakdown, total, expiresAt,
	)
	sig, env := s.signer.Sign(canonical, rate.QuoteTTLSeconds)

	if s.metrics != nil {
		s.metrics.IncQuoteIssued()
	}

	return &Quote{
		Region:       rate.Region,
		VehicleType:  rate.VehicleType,
		ServiceLevel: rate.ServiceLevel,
		Currency:     rate.Currency,
		DistanceKM:   distanceKM.Round(2),
		DurationMin:  durationMin.Round(2),
		Breakdown:    breakdown,
		Subtotal:     subtotal,
		Total:        total,
		Advisories:   buildAdvisories(rate, input),
		IssuedAt:     issuedAt,
		ExpiresAt:    expiresAt,
		Canonical:    canonical,
		Signature:    sig,
		Envelope:     env,
	}, nil
}

// GetRateTables lists active tariffs for the config endpoint.
func (s *service) GetRateTables(ctx context.Context, region string, vehicleType enums.VehicleType) ([]RateView, error) {
	rates, err := s.repo.ListActiveRates(ctx, region, vehicleType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rate tables")
	}
	views := make([]RateView, 0, len(rates))
	for _, rate := range rates {
		views = append(views, RateView{
			Region:          rate.Region,
			VehicleType:     rate.VehicleType,
			ServiceLevel:    rate.ServiceLevel,
			Currency:        rate.Currency,
			BaseFare:        rate.BaseFare,
			IncludedKM:      rate.IncludedKM,
			PerKM:           rate.PerKM,
			PerMinute:       rate.PerMinute,
			SurgeActive:     rate.SurgeActive,
			QuoteTTLSeconds: rate.QuoteTTLSeconds,
		})
	}
	return views, nil
}

func validateStops(stops []StopInput) error {
	if len(stops) < 2 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least a pickup and a dropoff stop are required")
	}

	pickups := 0
	dropoffs := 0
	for _, stop := range stops {
		switch stop.Type {
		case enums.StopTypePickup:
			pickups++
			if stop.Seq != 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "pickup must be the first stop")
			}
		case enums.StopTypeDropoff:
			dropoffs++
		default:
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid stop type")
		}

		hasGeo := stop.Lat != nil && stop.Lng != nil
		hasAddress := stop.Address != nil && strings.TrimSpace(*stop.Address) != ""
		if !hasGeo && !hasAddress {
			return pkgerrors.New(pkgerrors.CodeValidation, "every stop requires coordinates or an address")
		}
	}

	if pickups != 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stops must include exactly one pickup")
	}
	if stops[0].Type != enums.StopTypePickup {
		return pkgerrors.New(pkgerrors.CodeValidation, "pickup must be the first stop")
	}
	if dropoffs < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one dropoff stop is required")
	}
	return nil
}

func (s *service) validateSchedule(scheduledAt *time.Time) error {
	if scheduledAt == nil {
		return nil
	}
	now := s.now()
	if !scheduledAt.After(now) {
		return pkgerrors.New(pkgerrors.CodeValidation, "scheduled time must be in the future")
	}
	if !scheduledAt.Before(now.Add(scheduleWindow)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "scheduled time must be within 48 hours")
	}
	return nil
}

func enforceCapacity(rate *models.RateTable, input QuoteInput) error {
	if rate.MaxStops > 0 && len(input.Stops) > rate.MaxStops {
		return pkgerrors.New(pkgerrors.CodeValidation, "stop count exceeds vehicle capacity")
	}
	if input.WeightKG != nil && rate.MaxWeightKG != nil && input.WeightKG.GreaterThan(*rate.MaxWeightKG) {
		return pkgerrors.New(pkgerrors.CodeValidation, "weight exceeds vehicle capacity")
	}
	if input.VolumeM3 != nil && rate.MaxVolumeM3 != nil && input.VolumeM3.GreaterThan(*rate.MaxVolumeM3) {
		return pkgerrors.New(pkgerrors.CodeValidation, "volume exceeds vehicle capacity")
	}
	return nil
}

func resolveRoute(input QuoteInput) (decimal.Decimal, decimal.Decimal, error) {
	if len(input.Legs) > 0 {
		distance := decimal.Zero
		duration := decimal.Zero
		for _, leg := range input.Legs {
			distance = distance.Add(leg.DistanceKM)
			duration = duration.Add(leg.DurationMin)
		}
		return distance, duration, nil
	}

	geoStops := make([]StopInput, 0, len(input.Stops))
	for _, stop := range input.Stops {
		if stop.Lat != nil && stop.Lng != nil {
			geoStops = append(geoStops, stop)
		}
	}
	if len(geoStops) < 2 {
		return decimal.Zero, decimal.Zero,
			pkgerrors.New(pkgerrors.CodeValidation, "route requires explicit legs or at least two geo stops")
	}

	distance := routeDistanceKM(geoStops)
	return distance, estimateDurationMin(distance), nil
}

func computeBreakdown(rate *models.RateTable, input QuoteInput, distanceKM, durationMin decimal.Decimal, stopCount int) Breakdown {
	var b Breakdown

	b.Base = rate.BaseFare.Round(2)

	chargeableKM := distanceKM.Sub(rate.IncludedKM)
	if chargeableKM.IsNegative() {
		chargeableKM = decimal.Zero
	}
	b.Distance = chargeableKM.Mul(rate.PerKM).Round(2)
	b.Duration = durationMin.Mul(rate.PerMinute).Round(2)

	extraStops := stopCount - 2
	if extraStops > 0 {
		b.Multistop = rate.MultistopFee.Mul(decimal.NewFromInt(int64(extraStops))).Round(2)
	}

	b.VehicleSurcharge = rate.VehicleSurcharge.Round(2)

	premiumRate := rate.ServiceLevelMultiplier.Sub(decimal.NewFromInt(1))
	if premiumRate.IsPositive() {
		b.ServiceLevel = b.Base.Add(b.Distance).Add(b.Duration).Mul(premiumRate).Round(2)
	}

	preFee := b.Base.Add(b.Distance).Add(b.Duration).
		Add(b.Multistop).Add(b.VehicleSurcharge).Add(b.ServiceLevel)

	b.PlatformFee = rate.PlatformFee.Round(2)

	if rate.SmallOrderFee.IsPositive() && preFee.LessThan(rate.SmallOrderThreshold) {
		b.SmallOrderFee = rate.SmallOrderFee.Round(2)
	}

	if rate.SurgeActive {
		b.Surge = surgeAmount(rate, b, preFee)
	}

	if input.PromoDiscount != nil && input.PromoDiscount.IsPositive() {
		b.PromoDiscount = input.PromoDiscount.Neg().Round(2)
	}
	if input.GiftCardPreview != nil && input.GiftCardPreview.IsPositive() {
		b.GiftCardPreview = input.GiftCardPreview.Neg().Round(2)
	}

	taxable := preFee.Add(b.PlatformFee).Add(b.SmallOrderFee).Add(b.Surge)
	b.Tax = taxable.Mul(rate.VATRate).Round(2)

	return b
}

func surgeAmount(rate *models.RateTable, b Breakdown, preFee decimal.Decimal) decimal.Decimal {
	if rate.SurgeMode == enums.SurgeModeFixed {
		return rate.SurgeValue.Round(2)
	}

	uplift := rate.SurgeValue.Sub(decimal.NewFromInt(1))
	if !uplift.IsPositive() {
		return decimal.Zero
	}

	var base decimal.Decimal
	switch rate.SurgeAppliesTo {
	case enums.SurgeAppliesToDistance:
		base = b.Distance
	case enums.SurgeAppliesToDuration:
		base = b.Duration
	case enums.SurgeAppliesToSubtotal:
		base = preFee
	default:
		base = b.Distance.Add(b.Duration)
	}
	return base.Mul(uplift).Round(2)
}

func buildAdvisories(rate *models.RateTable, input QuoteInput) []string {
	advisories := make([]string, 0, 3)
	if len(input.Stops) > 5 {
		advisories = append(advisories, "route has many stops; allow extra time")
	}
	if input.ScheduledAt != nil {
		advisories = append(advisories, "scheduled delivery; price may change if rescheduled")
	}
	if rate.SurgeActive && rate.SurgeMode == enums.SurgeModeFactor &&
		rate.SurgeValue.GreaterThan(decimal.NewFromFloat(1.1)) {
		advisories = append(advisories, "surge pricing is active for this route")
	}
	return advisories
}
