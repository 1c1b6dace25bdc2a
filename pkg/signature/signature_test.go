package signature

import (
	"strings"
	"testing"
	"time"
)

func newTestSigner(t *testing.T, now time.Time) *Signer {
	t.Helper()
	s, err := New(Params{
		Secret: "test-secret",
		KeyID:  "calc_key_2025_10",
		Clock:  func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNewRequiresSecretAndKeyID(t *testing.T) {
	t.Parallel()

	if _, err := New(Params{KeyID: "k"}); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := New(Params{Secret: "s"}); err == nil {
		t.Fatal("expected error for empty key id")
	}
}

func TestSignAndVerify(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	s := newTestSigner(t, now)

	canonical := `{"currency":"ZMW","total":52.73}`
	sig, env := s.Sign(canonical, 900)

	if !strings.HasPrefix(sig, Prefix) {
		t.Fatalf("signature missing prefix: %s", sig)
	}
	if env.Alg != "HMAC-SHA256" {
		t.Fatalf("unexpected alg: %s", env.Alg)
	}
	if env.KeyID != "calc_key_2025_10" {
		t.Fatalf("unexpected key id: %s", env.KeyID)
	}
	if env.IssuedAt != "2025-10-01T12:00:00Z" {
		t.Fatalf("unexpected issued_at: %s", env.IssuedAt)
	}
	if !strings.HasPrefix(env.CanonHash, "sha256:") {
		t.Fatalf("unexpected canon hash: %s", env.CanonHash)
	}
	if got := len(strings.TrimPrefix(env.CanonHash, "sha256:")); got != 16 {
		t.Fatalf("canon hash length = %d, want 16", got)
	}

	if !s.Verify(canonical, sig, env) {
		t.Fatal("expected signature to verify")
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	s := newTestSigner(t, now)

	canonical := `{"currency":"ZMW","total":52.73}`
	sig, env := s.Sign(canonical, 900)

	if s.Verify(`{"currency":"ZMW","total":1.00}`, sig, env) {
		t.Fatal("expected tampered payload to fail verification")
	}
}

func TestVerifyRejectsTamperedEnvelope(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	s := newTestSigner(t, now)

	canonical := `{"currency":"ZMW","total":52.73}`
	sig, env := s.Sign(canonical, 900)

	extended := env
	extended.TTLSeconds = 86400
	if s.Verify(canonical, sig, extended) {
		t.Fatal("expected extended ttl to fail verification")
	}

	swapped := env
	swapped.KeyID = "calc_key_2024_01"
	if s.Verify(canonical, sig, swapped) {
		t.Fatal("expected foreign key id to fail verification")
	}
}

func TestVerifyRejectsWrongPrefix(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	s := newTestSigner(t, now)

	canonical := `{"total":1}`
	sig, env := s.Sign(canonical, 900)

	forged := "pc.sig.v0." + strings.TrimPrefix(sig, Prefix)
	if s.Verify(canonical, forged, env) {
		t.Fatal("expected foreign prefix to fail verification")
	}
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	s := newTestSigner(t, now)

	other, err := New(Params{
		Secret: "other-secret",
		KeyID:  "calc_key_2025_10",
		Clock:  func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	canonical := `{"total":1}`
	sig, env := s.Sign(canonical, 900)

	if other.Verify(canonical, sig, env) {
		t.Fatal("expected signature from other secret to fail verification")
	}
}

func TestIsExpired(t *testing.T) {
	t.Parallel()

	issued := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"fresh", issued.Add(5 * time.Minute), false},
		{"at boundary", issued.Add(15 * time.Minute), false},
		{"just past", issued.Add(15*time.Minute + time.Second), true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := newTestSigner(t, tc.now)
			if got := s.IsExpired(issued.Format(time.RFC3339), 900); got != tc.want {
				t.Fatalf("IsExpired = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsExpiredMalformedIssuedAt(t *testing.T) {
	t.Parallel()

	s := newTestSigner(t, time.Now())
	if !s.IsExpired("not-a-timestamp", 900) {
		t.Fatal("expected malformed issued_at to count as expired")
	}
}
