package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zedexpress/zedexpress-backend/api/controllers"
	"github.com/zedexpress/zedexpress-backend/api/middleware"
	"github.com/zedexpress/zedexpress-backend/internal/deliveries"
	"github.com/zedexpress/zedexpress-backend/internal/paymentmethods"
	"github.com/zedexpress/zedexpress-backend/internal/payments"
	"github.com/zedexpress/zedexpress-backend/internal/pricing"
	"github.com/zedexpress/zedexpress-backend/pkg/config"
	"github.com/zedexpress/zedexpress-backend/pkg/enums"
	"github.com/zedexpress/zedexpress-backend/pkg/logger"
	"github.com/zedexpress/zedexpress-backend/pkg/metrics"
	"github.com/zedexpress/zedexpress-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface needs. Readiness pings run
// against Deps; the prometheus gatherer backs /metrics.
type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	Redis       *redis.Client
	Deps        map[string]controllers.Pinger
	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer

	Pricing    pricing.Service
	Methods    paymentmethods.Service
	Payments   payments.Service
	Deliveries deliveries.Service
}

// NewRouter wires the full API. Quote calculation is public; everything under
// /api/v1 past that requires a bearer token.
func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)
	if p.HTTPMetrics != nil {
		r.Use(middleware.Metrics(p.HTTPMetrics))
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Deps))
	})

	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/calc", func(r chi.Router) {
		r.Post("/price", controllers.CalcPrice(p.Pricing, logg))
		r.Get("/config/rates", controllers.CalcRates(p.Pricing, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(p.Redis, logg))

		r.Route("/deliveries", func(r chi.Router) {
			r.Post("/", controllers.DeliveryCreate(p.Deliveries, logg))
			r.Get("/", controllers.DeliveryList(p.Deliveries, logg))
			r.Route("/{deliveryId}", func(r chi.Router) {
				r.Get("/", controllers.DeliveryDetail(p.Deliveries, logg))
				r.Post("/attach-pricing", controllers.DeliveryAttachPricing(p.Deliveries, logg))
				r.Post("/set-payment-method", controllers.DeliverySetPaymentMethod(p.Deliveries, logg))
				r.Post("/preflight", controllers.DeliveryPreflight(p.Deliveries, logg))
				r.Post("/submit", controllers.DeliverySubmit(p.Deliveries, logg))
			})
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/methods", controllers.PaymentMethodList(p.Methods, logg))
			r.With(middleware.RequireRole(logg, string(enums.UserRoleAdmin))).
				Patch("/methods/{methodKey}", controllers.PaymentMethodSetAvailability(p.Methods, logg))

			r.Route("/intents", func(r chi.Router) {
				r.Post("/", controllers.IntentCreate(p.Payments, logg))
				r.Route("/{intentId}", func(r chi.Router) {
					r.Get("/", controllers.IntentDetail(p.Payments, logg))
					r.Post("/confirm", controllers.IntentConfirm(p.Payments, logg))
					r.Post("/cancel", controllers.IntentCancel(p.Payments, logg))
					r.Post("/collect-cash", controllers.IntentCollectCash(p.Payments, logg))
				})
			})
			r.Get("/sessions/{sessionId}", controllers.SessionDetail(p.Payments, logg))
		})
	})

	return r
}
