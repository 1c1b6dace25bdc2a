package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zedexpress/zedexpress-backend/internal/pricing"
	"github.com/zedexpress/zedexpress-backend/pkg/enums"
	"github.com/zedexpress/zedexpress-backend/pkg/signature"
)

type stubPricingService struct {
	calcFn  func(ctx context.Context, input pricing.QuoteInput) (*pricing.Quote, error)
	ratesFn func(ctx context.Context, region string, vehicleType enums.VehicleType) ([]pricing.RateView, error)
}

func (s stubPricingService) CalculatePrice(ctx context.Context, input pricing.QuoteInput) (*pricing.Quote, error) {
	return s.calcFn(ctx, input)
}

func (s stubPricingService) GetRateTables(ctx context.Context, region string, vehicleType enums.VehicleType) ([]pricing.RateView, error) {
	return s.ratesFn(ctx, region, vehicleType)
}

func TestCalcPrice(t *testing.T) {
	issued := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	svc := stubPricingService{
		calcFn: func(ctx context.Context, input pricing.QuoteInput) (*pricing.Quote, error) {
			if input.Region != "ZM-LSK" || input.VehicleType != enums.VehicleTypeMotorbike {
				t.Fatalf("unexpected input %+v", input)
			}
			if len(input.Legs) != 1 || !input.Legs[0].DistanceKM.Equal(decimal.RequireFromString("5")) {
				t.Fatalf("unexpected legs %+v", input.Legs)
			}
			return &pricing.Quote{
				Region:       "ZM-LSK",
				VehicleType:  enums.VehicleTypeMotorbike,
				ServiceLevel: enums.ServiceLevelStandard,
				Currency:     enums.CurrencyZMW,
				DistanceKM:   decimal.RequireFromString("5"),
				DurationMin:  decimal.RequireFromString("15"),
				Total:        decimal.RequireFromString("52.73"),
				IssuedAt:     issued,
				ExpiresAt:    issued.Add(15 * time.Minute),
				Canonical:    `{"currency":"ZMW"}`,
				Signature:    "pc.sig.v1.abc",
				Envelope: signature.Envelope{
					Alg:        "HMAC-SHA256",
					KeyID:      "calc_key_2025_10",
					IssuedAt:   issued.Format(time.RFC3339),
					TTLSeconds: 900,
				},
			}, nil
		},
	}

	body, _ := json.Marshal(map[string]any{
		"region":       "ZM-LSK",
		"vehicle_type": "motorbike",
		"stops": []map[string]any{
			{"seq": 0, "type": "pickup"},
			{"seq": 1, "type": "dropoff"},
		},
		"legs": []map[string]any{
			{"distance_km": "5", "duration_min": "15"},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/calc/price", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	CalcPrice(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data quoteResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Total != "52.73" {
		t.Fatalf("expected two decimal total, got %q", envelope.Data.Total)
	}
	if envelope.Data.DistanceKM != "5.00" || envelope.Data.DurationMin != "15.00" {
		t.Fatalf("unexpected trip figures %+v", envelope.Data)
	}
	if envelope.Data.Signature != "pc.sig.v1.abc" || envelope.Data.Envelope.KeyID != "calc_key_2025_10" {
		t.Fatalf("unexpected signature payload %+v", envelope.Data)
	}
}

func TestCalcPriceRejectsMissingRegion(t *testing.T) {
	svc := stubPricingService{
		calcFn: func(ctx context.Context, input pricing.QuoteInput) (*pricing.Quote, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}

	body, _ := json.Marshal(map[string]any{
		"vehicle_type": "motorbike",
		"stops": []map[string]any{
			{"seq": 0, "type": "pickup"},
			{"seq": 1, "type": "dropoff"},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/calc/price", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	CalcPrice(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCalcRates(t *testing.T) {
	svc := stubPricingService{
		ratesFn: func(ctx context.Context, region string, vehicleType enums.VehicleType) ([]pricing.RateView, error) {
			if region != "ZM-LSK" || vehicleType != enums.VehicleTypeMotorbike {
				t.Fatalf("unexpected filters %q %q", region, vehicleType)
			}
			return []pricing.RateView{{
				Region:      "ZM-LSK",
				VehicleType: enums.VehicleTypeMotorbike,
				Currency:    enums.CurrencyZMW,
				BaseFare:    decimal.RequireFromString("20.00"),
			}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/calc/config/rates?region=ZM-LSK&vehicle_type=motorbike", nil)
	resp := httptest.NewRecorder()

	CalcRates(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			Rates []pricing.RateView `json:"rates"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Rates) != 1 || envelope.Data.Rates[0].Region != "ZM-LSK" {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}
