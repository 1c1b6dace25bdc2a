package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

type memoryIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]string
	setNX   int
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{records: map[string]string{}}
}

func (s *memoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.records[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *memoryIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setNX++
	if _, ok := s.records[key]; ok {
		return false, nil
	}
	s.records[key] = value.(string)
	return true, nil
}

func (s *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idempotency:" + scope + ":" + id
}

func (s *memoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.records, key)
	}
	return nil
}

// newIdempotentRouter mounts the middleware the same way the API router does,
// inside a /api/v1 subrouter, so the rules see real request paths.
func newIdempotentRouter(store *memoryIdempotencyStore, handlerCalls *int) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Idempotency(store, nil))
		r.Route("/payments/intents", func(r chi.Router) {
			r.Post("/", func(w http.ResponseWriter, req *http.Request) {
				*handlerCalls++
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`{"success":true,"data":{"id":"pay_int_01HQ4TEST"}}`))
			})
		})
		r.Route("/deliveries", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, req *http.Request) {
				*handlerCalls++
				w.WriteHeader(http.StatusOK)
			})
			r.Post("/{deliveryId}/submit", func(w http.ResponseWriter, req *http.Request) {
				*handlerCalls++
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(`{"success":true}`))
			})
		})
	})
	return r
}

func postIntent(router http.Handler, body, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/intents", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newMemoryIdempotencyStore()
	handlerCalls := 0
	router := newIdempotentRouter(store, &handlerCalls)

	body := `{"delivery_id":"del_01HQ4TEST"}`
	first := postIntent(router, body, "idem-key-1")
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", first.Code)
	}
	if handlerCalls != 1 {
		t.Fatalf("expected handler called once, got %d", handlerCalls)
	}
	if store.setNX != 1 {
		t.Fatalf("expected one stored record, got %d SetNX calls", store.setNX)
	}

	second := postIntent(router, body, "idem-key-1")
	if handlerCalls != 1 {
		t.Fatalf("replay hit the handler again, calls=%d", handlerCalls)
	}
	if second.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201 got %d", second.Code)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replayed body %q differs from original %q", second.Body.String(), first.Body.String())
	}
	if ct := second.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected replayed content type, got %q", ct)
	}
}

func TestIdempotencyKeyReuseWithDifferentBody(t *testing.T) {
	store := newMemoryIdempotencyStore()
	handlerCalls := 0
	router := newIdempotentRouter(store, &handlerCalls)

	postIntent(router, `{"delivery_id":"del_a"}`, "idem-key-2")
	conflict := postIntent(router, `{"delivery_id":"del_b"}`, "idem-key-2")

	if handlerCalls != 1 {
		t.Fatalf("expected handler called once, got %d", handlerCalls)
	}
	if conflict.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", conflict.Code)
	}
}

func TestIdempotencyWithoutKeyPassesThrough(t *testing.T) {
	store := newMemoryIdempotencyStore()
	handlerCalls := 0
	router := newIdempotentRouter(store, &handlerCalls)

	postIntent(router, `{"delivery_id":"del_a"}`, "")
	postIntent(router, `{"delivery_id":"del_a"}`, "")

	if handlerCalls != 2 {
		t.Fatalf("expected both requests handled, got %d", handlerCalls)
	}
	if store.setNX != 0 {
		t.Fatalf("expected no stored records, got %d SetNX calls", store.setNX)
	}
}

func TestIdempotencyIgnoresUnmatchedRoutes(t *testing.T) {
	store := newMemoryIdempotencyStore()
	handlerCalls := 0
	router := newIdempotentRouter(store, &handlerCalls)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/deliveries", nil)
	req.Header.Set("Idempotency-Key", "idem-key-3")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	router.ServeHTTP(httptest.NewRecorder(), req)

	if handlerCalls != 2 {
		t.Fatalf("expected both requests handled, got %d", handlerCalls)
	}
	if store.setNX != 0 {
		t.Fatalf("expected no stored records, got %d SetNX calls", store.setNX)
	}
}

func TestIdempotencyMatchesSubmitRoute(t *testing.T) {
	store := newMemoryIdempotencyStore()
	handlerCalls := 0
	router := newIdempotentRouter(store, &handlerCalls)

	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/deliveries/del_01HQ4TEST/submit", strings.NewReader(`{}`))
		r.Header.Set("Idempotency-Key", "idem-key-4")
		return r
	}
	router.ServeHTTP(httptest.NewRecorder(), req())
	router.ServeHTTP(httptest.NewRecorder(), req())

	if handlerCalls != 1 {
		t.Fatalf("expected handler called once, got %d", handlerCalls)
	}
	if store.setNX != 1 {
		t.Fatalf("expected one stored record, got %d SetNX calls", store.setNX)
	}
}
