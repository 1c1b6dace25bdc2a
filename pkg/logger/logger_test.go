package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "checkout-api", Output: &buf})

	ctx := logg.WithIntentID(context.Background(), "pay_int_abc")
	ctx = logg.WithField(ctx, "method", "cash_on_delivery")
	logg.Info(ctx, "intent confirmed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["intent_id"] != "pay_int_abc" {
		t.Fatalf("missing intent_id field: %v", entry)
	}
	if entry["method"] != "cash_on_delivery" {
		t.Fatalf("missing method field: %v", entry)
	}
	if entry["service"] != "checkout-api" {
		t.Fatalf("missing service field: %v", entry)
	}
}

func TestErrorIncludesStack(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "checkout-api", Output: &buf})

	logg.Error(context.Background(), "adapter call failed", errors.New("timeout"))

	if !strings.Contains(buf.String(), "stack") {
		t.Fatalf("expected stack field in error log: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "timeout") {
		t.Fatalf("expected error detail in log: %s", buf.String())
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	t.Parallel()

	if got := ParseLevel("verbose"); got != zerolog.InfoLevel {
		t.Fatalf("unexpected level: %v", got)
	}
	if got := ParseLevel("debug"); got != zerolog.DebugLevel {
		t.Fatalf("unexpected level: %v", got)
	}
}
