package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/zedexpress/zedexpress-backend/api/middleware"
	"github.com/zedexpress/zedexpress-backend/api/responses"
	"github.com/zedexpress/zedexpress-backend/api/validators"
	"github.com/zedexpress/zedexpress-backend/internal/payments"
	"github.com/zedexpress/zedexpress-backend/pkg/db/models"
	"github.com/zedexpress/zedexpress-backend/pkg/enums"
	pkgerrors "github.com/zedexpress/zedexpress-backend/pkg/errors"
	"github.com/zedexpress/zedexpress-backend/pkg/logger"
	"github.com/zedexpress/zedexpress-backend/pkg/types"
)

// IntentCreate opens a payment intent for a delivery.
func IntentCreate(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var payload intentCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := svc.CreateIntent(r.Context(), payments.CreateIntentInput{
			UserID:          middleware.UserUUIDFromContext(r.Context()),
			DeliveryID:      payload.DeliveryID,
			Amount:          payload.Amount,
			Currency:        enums.Currency(payload.Currency),
			Metadata:        payload.Metadata,
			QuoteSignature:  payload.QuoteSignature,
			QuoteIssuedAt:   payload.QuoteIssuedAt,
			QuoteTTLSeconds: payload.QuoteTTLSeconds,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newIntentResponse(intent, nil))
	}
}

// IntentConfirm runs one payment attempt with the chosen method.
func IntentConfirm(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var payload intentConfirmRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.ConfirmIntent(r.Context(), payments.ConfirmIntentInput{
			IntentID:     chi.URLParam(r, "intentId"),
			MethodKey:    validators.SanitizeString(payload.Method, 64),
			MethodParams: payload.MethodParams,
			ReturnURL:    payload.ReturnURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newIntentResponse(view.Intent, view.Sessions))
	}
}

// IntentCancel abandons an intent that has not reached a terminal state.
func IntentCancel(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		intent, err := svc.CancelIntent(r.Context(), chi.URLParam(r, "intentId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newIntentResponse(intent, nil))
	}
}

// IntentCollectCash settles a cash-on-delivery intent at the door.
func IntentCollectCash(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var payload collectCashRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := svc.CollectCash(r.Context(), payments.CollectCashInput{
			IntentID:        chi.URLParam(r, "intentId"),
			CollectorUserID: middleware.UserUUIDFromContext(r.Context()),
			Amount:          payload.Amount,
			EvidencePhotoID: payload.EvidencePhotoID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newIntentResponse(intent, nil))
	}
}

// IntentDetail returns an intent with its attempt history.
func IntentDetail(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		view, err := svc.GetIntent(r.Context(), chi.URLParam(r, "intentId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newIntentResponse(view.Intent, view.Sessions))
	}
}

// SessionDetail returns one payment session.
func SessionDetail(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		session, err := svc.GetSession(r.Context(), chi.URLParam(r, "sessionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionResponse(session))
	}
}

type intentCreateRequest struct {
	DeliveryID string          `json:"delivery_id" validate:"required"`
	Amount     decimal.Decimal `json:"amount" validate:"required"`
	Currency   string          `json:"currency" validate:"required"`
	Metadata   types.JSONMap   `json:"metadata,omitempty"`

	QuoteSignature  *string `json:"quote_signature,omitempty"`
	QuoteIssuedAt   *string `json:"quote_issued_at,omitempty"`
	QuoteTTLSeconds *int    `json:"quote_ttl_seconds,omitempty"`
}

type intentConfirmRequest struct {
	Method       string            `json:"method" validate:"required"`
	MethodParams map[string]string `json:"method_params,omitempty"`
	ReturnURL    string            `json:"return_url,omitempty"`
}

type collectCashRequest struct {
	Amount          decimal.Decimal `json:"amount" validate:"required"`
	EvidencePhotoID *string         `json:"evidence_photo_id,omitempty"`
}

type sessionResponse struct {
	ID             string            `json:"id"`
	IntentID       string            `json:"intent_id"`
	Method         string            `json:"method"`
	Provider       string            `json:"provider"`
	ProviderRef    *string           `json:"provider_ref,omitempty"`
	ReceiptURL     *string           `json:"receipt_url,omitempty"`
	Status         string            `json:"status"`
	NextAction     *types.NextAction `json:"next_action,omitempty"`
	FailureCode    *string           `json:"failure_code,omitempty"`
	FailureMessage *string           `json:"failure_message,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

type intentResponse struct {
	ID           string `json:"id"`
	DeliveryID   string `json:"delivery_id"`
	Method       string `json:"method,omitempty"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
	ClientSecret string `json:"client_secret,omitempty"`

	NextAction *types.NextAction `json:"next_action,omitempty"`
	Metadata   map[string]any    `json:"metadata,omitempty"`

	FailureCode    *string `json:"failure_code,omitempty"`
	FailureMessage *string `json:"failure_message,omitempty"`

	CollectedAmount *string    `json:"collected_amount,omitempty"`
	CollectedAt     *time.Time `json:"collected_at,omitempty"`

	CreatedAt time.Time         `json:"created_at"`
	Sessions  []sessionResponse `json:"sessions,omitempty"`
}

func newSessionResponse(session *models.PaymentSession) sessionResponse {
	return sessionResponse{
		ID:             session.ID,
		IntentID:       session.IntentID,
		Method:         session.MethodKey,
		Provider:       session.Provider,
		ProviderRef:    session.ProviderRef,
		ReceiptURL:     session.ReceiptURL,
		Status:         string(session.Status),
		NextAction:     session.NextAction,
		FailureCode:    session.FailureCode,
		FailureMessage: session.FailureMessage,
		CreatedAt:      session.CreatedAt,
	}
}

func newIntentResponse(intent *models.PaymentIntent, sessions []models.PaymentSession) intentResponse {
	resp := intentResponse{
		ID:             intent.ID,
		DeliveryID:     intent.DeliveryID,
		Method:         intent.MethodKey,
		Amount:         intent.Amount.StringFixed(2),
		Currency:       string(intent.Currency),
		Status:         string(intent.Status),
		ClientSecret:   intent.ClientSecret,
		NextAction:     intent.NextAction,
		Metadata:       intent.Metadata,
		FailureCode:    intent.FailureCode,
		FailureMessage: intent.FailureMessage,
		CollectedAt:    intent.CollectedAt,
		CreatedAt:      intent.CreatedAt,
	}
	if intent.CollectedAmount != nil {
		amount := intent.CollectedAmount.StringFixed(2)
		resp.CollectedAmount = &amount
	}
	for i := range sessions {
		resp.Sessions = append(resp.Sessions, newSessionResponse(&sessions[i]))
	}
	return resp
}
