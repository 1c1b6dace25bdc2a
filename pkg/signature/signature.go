package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/zedexpress/zedexpress-backend/pkg/errors"
)

// Prefix is the versioned scheme tag carried by every quote signature.
// Bumping the version invalidates all outstanding quotes at once.
const Prefix = "pc.sig.v1."

const algHMACSHA256 = "HMAC-SHA256"

// canonHashLen is the number of hex characters of the SHA-256 digest kept in
// the envelope. Truncation keeps the wire format short; the full digest is
// still covered by the HMAC.
const canonHashLen = 16

// Envelope carries the signature metadata returned alongside a signed quote.
type Envelope struct {
	Alg        string `json:"alg"`
	KeyID      string `json:"key_id"`
	IssuedAt   string `json:"issued_at"`
	TTLSeconds int    `json:"ttl_seconds"`
	CanonHash  string `json:"canon_hash"`
}

// Params groups the signer dependencies.
type Params struct {
	Secret string
	KeyID  string
	Clock  func() time.Time
}

// Signer signs and verifies canonical quote payloads with a single
// process-wide HMAC key.
type Signer struct {
	secret []byte
	keyID  string
	now    func() time.Time
}

// New builds a Signer.
func New(params Params) (*Signer, error) {
	if strings.TrimSpace(params.Secret) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "signing secret required")
	}
	if strings.TrimSpace(params.KeyID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "signing key id required")
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &Signer{
		secret: []byte(params.Secret),
		keyID:  params.KeyID,
		now:    now,
	}, nil
}

// Sign stamps issued_at with the signer clock, hashes the canonical payload
// and HMAC-signs the envelope fields. The canonical payload itself is covered
// through canon_hash.
func (s *Signer) Sign(canonical string, ttlSeconds int) (string, Envelope) {
	issuedAt := s.now().UTC().Format(time.RFC3339)
	canonHash := hashCanonical(canonical)

	env := Envelope{
		Alg:        algHMACSHA256,
		KeyID:      s.keyID,
		IssuedAt:   issuedAt,
		TTLSeconds: ttlSeconds,
		CanonHash:  canonHash,
	}

	return s.seal(env), env
}

// Verify checks the version prefix, key id, canonical hash and HMAC. The
// final comparison is constant-time.
func (s *Signer) Verify(canonical, sig string, env Envelope) bool {
	if !strings.HasPrefix(sig, Prefix) {
		return false
	}
	if env.KeyID != s.keyID {
		return false
	}
	if env.CanonHash != hashCanonical(canonical) {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(s.seal(env)))
}

// IsExpired reports whether the envelope's TTL window has passed. A malformed
// issued_at counts as expired.
func (s *Signer) IsExpired(issuedAt string, ttlSeconds int) bool {
	issued, err := time.Parse(time.RFC3339, issuedAt)
	if err != nil {
		return true
	}
	return s.now().After(issued.Add(time.Duration(ttlSeconds) * time.Second))
}

// seal computes the versioned signature string over the envelope's signed
// fields in fixed order.
func (s *Signer) seal(env Envelope) string {
	signed := fmt.Sprintf(
		`{"key_id":%q,"issued_at":%q,"ttl_seconds":%d,"canon_hash":%q}`,
		env.KeyID, env.IssuedAt, env.TTLSeconds, env.CanonHash,
	)
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(signed))
	return Prefix + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func hashCanonical(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return "sha256:" + hex.EncodeToString(sum[:])[:canonHashLen]
}
