package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zedexpress/zedexpress-backend/api/responses"
	"github.com/zedexpress/zedexpress-backend/api/validators"
	"github.com/zedexpress/zedexpress-backend/internal/pricing"
	"github.com/zedexpress/zedexpress-backend/pkg/enums"
	pkgerrors "github.com/zedexpress/zedexpress-backend/pkg/errors"
	"github.com/zedexpress/zedexpress-backend/pkg/logger"
	"github.com/zedexpress/zedexpress-backend/pkg/signature"
)

// CalcPrice returns a signed quote for the requested trip.
func CalcPrice(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		var payload calcPriceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := pricing.QuoteInput{
			Region:          validators.SanitizeString(payload.Region, 16),
			VehicleType:     enums.VehicleType(payload.VehicleType),
			ServiceLevel:    enums.ServiceLevel(payload.ServiceLevel),
			ScheduledAt:     payload.ScheduledAt,
			WeightKG:        payload.WeightKG,
			VolumeM3:        payload.VolumeM3,
			PromoDiscount:   payload.PromoDiscount,
			GiftCardPreview: payload.GiftCardPreview,
		}
		for _, stop := range payload.Stops {
			input.Stops = append(input.Stops, pricing.StopInput{
				Seq:     stop.Seq,
				Type:    enums.StopType(stop.Type),
				Lat:     stop.Lat,
				Lng:     stop.Lng,
				Address: stop.Address,
			})
		}
		for _, leg := range payload.Legs {
			input.Legs = append(input.Legs, pricing.LegInput{
				DistanceKM:  leg.DistanceKM,
				DurationMin: leg.DurationMin,
			})
		}

		quote, err := svc.CalculatePrice(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newQuoteResponse(quote))
	}
}

// CalcRates lists the active rate tables for a region and vehicle type.
func CalcRates(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		region := validators.SanitizeString(r.URL.Query().Get("region"), 16)
		vehicleType := enums.VehicleType(validators.SanitizeString(r.URL.Query().Get("vehicle_type"), 16))

		rates, err := svc.GetRateTables(r.Context(), region, vehicleType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"rates": rates})
	}
}

type calcStopRequest struct {
	Seq     int      `json:"seq"`
	Type    string   `json:"type" validate:"required,oneof=pickup dropoff"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
	Address *string  `json:"address,omitempty"`
}

type calcLegRequest struct {
	DistanceKM  decimal.Decimal `json:"distance_km"`
	DurationMin decimal.Decimal `json:"duration_min"`
}

type calcPriceRequest struct {
	Region       string            `json:"region" validate:"required"`
	VehicleType  string            `json:"vehicle_type" validate:"required"`
	ServiceLevel string            `json:"service_level,omitempty"`
	Stops        []calcStopRequest `json:"stops" validate:"required,min=2,dive"`
	Legs         []calcLegRequest  `json:"legs,omitempty"`
	ScheduledAt  *time.Time        `json:"scheduled_at,omitempty"`

	WeightKG *decimal.Decimal `json:"weight_kg,omitempty"`
	VolumeM3 *decimal.Decimal `json:"volume_m3,omitempty"`

	PromoDiscount   *decimal.Decimal `json:"promo_discount,omitempty"`
	GiftCardPreview *decimal.Decimal `json:"gift_card_preview,omitempty"`
}

type quoteResponse struct {
	Region       string `json:"region"`
	VehicleType  string `json:"vehicle_type"`
	ServiceLevel string `json:"service_level"`
	Currency     string `json:"currency"`

	DistanceKM  string `json:"distance_km"`
	DurationMin string `json:"duration_min"`

	Breakdown map[string]any `json:"breakdown"`
	Total     string         `json:"total"`

	Advisories []string `json:"advisories,omitempty"`

	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`

	CanonicalPayload string             `json:"canonical_payload"`
	Signature        string             `json:"signature"`
	Envelope         signature.Envelope `json:"envelope"`
}

func newQuoteResponse(quote *pricing.Quote) quoteResponse {
	return quoteResponse{
		Region:           quote.Region,
		VehicleType:      string(quote.VehicleType),
		ServiceLevel:     string(quote.ServiceLevel),
		Currency:         string(quote.Currency),
		DistanceKM:       quote.DistanceKM.StringFixed(2),
		DurationMin:      quote.DurationMin.StringFixed(2),
		Breakdown:        quote.Breakdown.AsMap(),
		Total:            quote.Total.StringFixed(2),
		Advisories:       quote.Advisories,
		IssuedAt:         quote.IssuedAt,
		ExpiresAt:        quote.ExpiresAt,
		CanonicalPayload: quote.Canonical,
		Signature:        quote.Signature,
		Envelope:         quote.Envelope,
	}
}
