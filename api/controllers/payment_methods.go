package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zedexpress/zedexpress-backend/api/middleware"
	"github.com/zedexpress/zedexpress-backend/api/responses"
	"github.com/zedexpress/zedexpress-backend/api/validators"
	"github.com/zedexpress/zedexpress-backend/internal/paymentmethods"
	"github.com/zedexpress/zedexpress-backend/pkg/db/models"
	"github.com/zedexpress/zedexpress-backend/pkg/enums"
	pkgerrors "github.com/zedexpress/zedexpress-backend/pkg/errors"
	"github.com/zedexpress/zedexpress-backend/pkg/logger"
)

// PaymentMethodList returns the methods that can be offered for the given
// region and currency filters.
func PaymentMethodList(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment methods service unavailable"))
			return
		}

		region := validators.SanitizeString(r.URL.Query().Get("region"), 16)
		currency := enums.Currency(r.URL.Query().Get("currency"))

		methods, err := svc.FindAvailable(r.Context(), region, currency)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]paymentMethodResponse, 0, len(methods))
		for i := range methods {
			items = append(items, newPaymentMethodResponse(&methods[i]))
		}
		responses.WriteSuccess(w, paymentMethodListResponse{Methods: items})
	}
}

// PaymentMethodSetAvailability toggles a catalog entry on or off. Admin only.
func PaymentMethodSetAvailability(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment methods service unavailable"))
			return
		}

		var payload setAvailabilityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := enums.UserRole(middleware.RoleFromContext(r.Context()))
		key := chi.URLParam(r, "methodKey")
		if err := svc.SetAvailability(r.Context(), actor, key, *payload.Enabled); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"key": key, "enabled": *payload.Enabled})
	}
}

type setAvailabilityRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type paymentMethodResponse struct {
	Key            string   `json:"key"`
	Type           string   `json:"type"`
	Provider       *string  `json:"provider,omitempty"`
	DisplayName    string   `json:"display_name"`
	Currency       string   `json:"currency"`
	Regions        []string `json:"regions,omitempty"`
	MinAmount      *string  `json:"min_amount,omitempty"`
	MaxAmount      *string  `json:"max_amount,omitempty"`
	RequiresMSISDN bool     `json:"requires_msisdn"`
}

type paymentMethodListResponse struct {
	Methods []paymentMethodResponse `json:"methods"`
}

func newPaymentMethodResponse(method *models.PaymentMethod) paymentMethodResponse {
	resp := paymentMethodResponse{
		Key:            method.Key,
		Type:           string(method.Type),
		Provider:       method.Provider,
		DisplayName:    method.DisplayName,
		Currency:       string(method.Currency),
		Regions:        method.Regions,
		RequiresMSISDN: method.RequiresMSISDN,
	}
	if method.MinAmount != nil {
		v := method.MinAmount.StringFixed(2)
		resp.MinAmount = &v
	}
	if method.MaxAmount != nil {
		v := method.MaxAmount.StringFixed(2)
		resp.MaxAmount = &v
	}
	return resp
}
