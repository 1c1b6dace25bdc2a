package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics records request counts and latency per route.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPMetrics registers the HTTP metrics on the provided registerer.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		return &HTTPMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests served, by method, route and status.",
	}, []string{"method", "route", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	reg.MustRegister(requests, duration)
	return &HTTPMetrics{requests: requests, duration: duration}
}

// ObserveRequest records one served request.
func (h *HTTPMetrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if h == nil || h.requests == nil {
		return
	}
	h.requests.WithLabelValues(method, normalizeLabel(route), strconv.Itoa(status)).Inc()
	h.duration.WithLabelValues(method, normalizeLabel(route)).Observe(elapsed.Seconds())
}

// PaymentMetrics tracks the payment orchestration pipeline.
type PaymentMetrics struct {
	intentTransitions *prometheus.CounterVec
	adapterDuration   *prometheus.HistogramVec
	adapterFailures   *prometheus.CounterVec
	quotesIssued      prometheus.Counter
	submits           *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	intentTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_intent_transitions_total",
		Help: "Intent state transitions, by destination status.",
	}, []string{"status"})
	adapterDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_adapter_duration_seconds",
		Help:    "Provider adapter call latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})
	adapterFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_adapter_failures_total",
		Help: "Provider adapter calls that returned an error.",
	}, []string{"provider"})
	quotesIssued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pricing_quotes_issued_total",
		Help: "Signed pricing quotes issued.",
	})
	submits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_submits_total",
		Help: "Delivery submit attempts, by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(intentTransitions, adapterDuration, adapterFailures, quotesIssued, submits)
	return &PaymentMetrics{
		intentTransitions: intentTransitions,
		adapterDuration:   adapterDuration,
		adapterFailures:   adapterFailures,
		quotesIssued:      quotesIssued,
		submits:           submits,
	}
}

// ObserveTransition counts an intent landing in the given status.
func (p *PaymentMetrics) ObserveTransition(status string) {
	if p == nil || p.intentTransitions == nil {
		return
	}
	p.intentTransitions.WithLabelValues(normalizeLabel(status)).Inc()
}

// ObserveAdapterCall records one provider adapter call.
func (p *PaymentMetrics) ObserveAdapterCall(provider string, elapsed time.Duration, err error) {
	if p == nil || p.adapterDuration == nil {
		return
	}
	provider = normalizeLabel(provider)
	p.adapterDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
	if err != nil {
		p.adapterFailures.WithLabelValues(provider).Inc()
	}
}

// IncQuoteIssued counts one signed quote handed out.
func (p *PaymentMetrics) IncQuoteIssued() {
	if p == nil || p.quotesIssued == nil {
		return
	}
	p.quotesIssued.Inc()
}

// IncSubmit counts a delivery submit attempt by outcome.
func (p *PaymentMetrics) IncSubmit(outcome string) {
	if p == nil || p.submits == nil {
		return
	}
	p.submits.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
