package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zedexpress/zedexpress-backend/api/middleware"
	"github.com/zedexpress/zedexpress-backend/api/responses"
	"github.com/zedexpress/zedexpress-backend/api/validators"
	"github.com/zedexpress/zedexpress-backend/internal/deliveries"
	"github.com/zedexpress/zedexpress-backend/pkg/db/models"
	"github.com/zedexpress/zedexpress-backend/pkg/enums"
	pkgerrors "github.com/zedexpress/zedexpress-backend/pkg/errors"
	"github.com/zedexpress/zedexpress-backend/pkg/logger"
	"github.com/zedexpress/zedexpress-backend/pkg/pagination"
	"github.com/zedexpress/zedexpress-backend/pkg/signature"
)

const readyTokenHeader = "X-Ready-Token"

// DeliveryCreate opens a new delivery order for the caller.
func DeliveryCreate(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		var payload deliveryCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := deliveries.CreateDeliveryInput{
			UserID:       middleware.UserUUIDFromContext(r.Context()),
			Region:       validators.SanitizeString(payload.Region, 16),
			VehicleType:  enums.VehicleType(payload.VehicleType),
			ServiceLevel: enums.ServiceLevel(payload.ServiceLevel),
			Currency:     enums.Currency(payload.Currency),
			Notes:        payload.Notes,
		}
		for _, stop := range payload.Stops {
			input.Stops = append(input.Stops, deliveries.StopInput{
				Seq:          stop.Seq,
				Type:         enums.StopType(stop.Type),
				Lat:          stop.Lat,
				Lng:          stop.Lng,
				Address:      validators.SanitizeString(stop.Address, 256),
				ContactName:  stop.ContactName,
				ContactPhone: stop.ContactPhone,
				Notes:        stop.Notes,
			})
		}

		delivery, err := svc.CreateDelivery(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newDeliveryResponse(delivery))
	}
}

// DeliveryAttachPricing binds a signed quote to the delivery.
func DeliveryAttachPricing(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		var payload attachPricingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		delivery, err := svc.AttachPricing(r.Context(), deliveries.AttachPricingInput{
			UserID:     middleware.UserUUIDFromContext(r.Context()),
			DeliveryID: chi.URLParam(r, "deliveryId"),
			Canonical:  payload.CanonicalPayload,
			Signature:  payload.Signature,
			Envelope:   payload.Envelope,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDeliveryResponse(delivery))
	}
}

// DeliverySetPaymentMethod stores the caller's payment method choice.
func DeliverySetPaymentMethod(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		var payload setPaymentMethodRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		delivery, err := svc.SetPaymentMethod(
			r.Context(),
			middleware.UserUUIDFromContext(r.Context()),
			chi.URLParam(r, "deliveryId"),
			validators.SanitizeString(payload.Method, 64),
		)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDeliveryResponse(delivery))
	}
}

// DeliveryPreflight issues the short-lived ready token required by submit.
func DeliveryPreflight(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		result, err := svc.Preflight(
			r.Context(),
			middleware.UserUUIDFromContext(r.Context()),
			chi.URLParam(r, "deliveryId"),
		)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, preflightResponse{
			ReadyToken: result.Token,
			ExpiresAt:  result.ExpiresAt,
		})
	}
}

// DeliverySubmit finalizes the delivery with the ready token from preflight.
func DeliverySubmit(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		token := strings.TrimSpace(r.Header.Get(readyTokenHeader))
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "ready token header required"))
			return
		}

		delivery, err := svc.Submit(r.Context(), deliveries.SubmitInput{
			UserID:     middleware.UserUUIDFromContext(r.Context()),
			DeliveryID: chi.URLParam(r, "deliveryId"),
			ReadyToken: token,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDeliveryResponse(delivery))
	}
}

// DeliveryDetail returns one of the caller's deliveries.
func DeliveryDetail(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		delivery, err := svc.GetDelivery(
			r.Context(),
			middleware.UserUUIDFromContext(r.Context()),
			chi.URLParam(r, "deliveryId"),
		)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDeliveryResponse(delivery))
	}
}

// DeliveryList pages through the caller's deliveries, newest first.
func DeliveryList(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListMyDeliveries(r.Context(), middleware.UserUUIDFromContext(r.Context()), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]deliveryResponse, 0, len(page.Deliveries))
		for i := range page.Deliveries {
			items = append(items, newDeliveryResponse(&page.Deliveries[i]))
		}
		responses.WriteSuccess(w, deliveryListResponse{
			Deliveries: items,
			NextCursor: page.NextCursor,
		})
	}
}

type deliveryStopRequest struct {
	Seq          int     `json:"seq"`
	Type         string  `json:"type" validate:"required,oneof=pickup dropoff"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	Address      string  `json:"address" validate:"required"`
	ContactName  *string `json:"contact_name,omitempty"`
	ContactPhone *string `json:"contact_phone,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

type deliveryCreateRequest struct {
	Region       string                `json:"region" validate:"required"`
	VehicleType  string                `json:"vehicle_type" validate:"required"`
	ServiceLevel string                `json:"service_level,omitempty"`
	Currency     string                `json:"currency" validate:"required"`
	Notes        *string               `json:"notes,omitempty"`
	Stops        []deliveryStopRequest `json:"stops" validate:"required,min=2,dive"`
}

type attachPricingRequest struct {
	CanonicalPayload string             `json:"canonical_payload" validate:"required"`
	Signature        string             `json:"signature" validate:"required"`
	Envelope         signature.Envelope `json:"envelope"`
}

type setPaymentMethodRequest struct {
	Method string `json:"method" validate:"required"`
}

type preflightResponse struct {
	ReadyToken string    `json:"ready_token"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type deliveryStopResponse struct {
	ID      string  `json:"id"`
	Seq     int     `json:"seq"`
	Type    string  `json:"type"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

type deliveryResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Region       string `json:"region"`
	VehicleType  string `json:"vehicle_type"`
	ServiceLevel string `json:"service_level"`
	Currency     string `json:"currency"`

	QuoteTotal     *string        `json:"quote_total,omitempty"`
	QuoteBreakdown map[string]any `json:"quote_breakdown,omitempty"`
	QuoteExpiresAt *time.Time     `json:"quote_expires_at,omitempty"`

	PaymentMethod   *string `json:"payment_method,omitempty"`
	PaymentIntentID *string `json:"payment_intent_id,omitempty"`

	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`

	Stops []deliveryStopResponse `json:"stops,omitempty"`
}

type deliveryListResponse struct {
	Deliveries []deliveryResponse `json:"deliveries"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

func newDeliveryResponse(delivery *models.DeliveryOrder) deliveryResponse {
	resp := deliveryResponse{
		ID:              delivery.ID,
		Status:          string(delivery.Status),
		Region:          delivery.Region,
		VehicleType:     string(delivery.VehicleType),
		ServiceLevel:    string(delivery.ServiceLevel),
		Currency:        string(delivery.Currency),
		QuoteBreakdown:  delivery.QuoteBreakdown,
		QuoteExpiresAt:  delivery.QuoteExpiresAt,
		PaymentMethod:   delivery.PaymentMethodKey,
		PaymentIntentID: delivery.PaymentIntentID,
		SubmittedAt:     delivery.SubmittedAt,
		CreatedAt:       delivery.CreatedAt,
	}
	if delivery.QuoteTotal != nil {
		total := delivery.QuoteTotal.StringFixed(2)
		resp.QuoteTotal = &total
	}
	for _, stop := range delivery.Stops {
		resp.Stops = append(resp.Stops, deliveryStopResponse{
			ID:      stop.ID,
			Seq:     stop.Seq,
			Type:    string(stop.Type),
			Lat:     stop.Lat,
			Lng:     stop.Lng,
			Address: stop.Address,
		})
	}
	return resp
}
