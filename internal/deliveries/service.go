package deliveries

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zedexpress/zedexpress-backend/pkg/db/models"
	"github.com/zedexpress/zedexpress-backend/pkg/enums"
	pkgerrors "github.com/zedexpress/zedexpress-backend/pkg/errors"
	"github.com/zedexpress/zedexpress-backend/pkg/pagination"
	"github.com/zedexpress/zedexpress-backend/pkg/signature"
	"github.com/zedexpress/zedexpress-backend/pkg/types"
)

const readyTokenTTL = 5 * time.Minute

// Service runs the delivery checkout workflow. Every mutating step is
// owner-checked against the delivery creator.
type Service interface {
	CreateDelivery(ctx context.Context, input CreateDeliveryInput) (*models.DeliveryOrder, error)
	AttachPricing(ctx context.Context, input AttachPricingInput) (*models.DeliveryOrder, error)
	SetPaymentMethod(ctx context.Context, userID uuid.UUID, deliveryID, methodKey string) (*models.DeliveryOrder, error)
	Preflight(ctx context.Context, userID uuid.UUID, deliveryID string) (*PreflightResult, error)
	Submit(ctx context.Context, input SubmitInput) (*models.DeliveryOrder, error)
	GetDelivery(ctx context.Context, userID uuid.UUID, deliveryID string) (*models.DeliveryOrder, error)
	ListMyDeliveries(ctx context.Context, userID uuid.UUID, params pagination.Params) (*DeliveryPage, error)
}

// StopInput describes one stop on a new delivery.
type StopInput struct {
	Seq          int
	Type         enums.StopType
	Lat          float64
	Lng          float64
	Address      string
	ContactName  *string
	ContactPhone *string
	Notes        *string
}

// CreateDeliveryInput opens a new delivery order in booked status.
type CreateDeliveryInput struct {
	UserID       uuid.UUID
	Region       string
	VehicleType  enums.VehicleType
	ServiceLevel enums.ServiceLevel
	Currency     enums.Currency
	Notes        *string
	Stops        []StopInput
}

// AttachPricingInput binds a signed quote to a delivery. Canonical is the
// exact payload the quote was signed over; the envelope rides along so the
// signature can be re-verified server side.
type AttachPricingInput struct {
	UserID     uuid.UUID
	DeliveryID string
	Canonical  string
	Signature  string
	Envelope   signature.Envelope
}

// SubmitInput finalizes a delivery. The ready token must match the one issued
// by Preflight and still be inside its window.
type SubmitInput struct {
	UserID     uuid.UUID
	DeliveryID string
	ReadyToken string
}

// PreflightResult carries the single-use ready token back to the client.
type PreflightResult struct {
	Delivery  *models.DeliveryOrder
	Token     string
	ExpiresAt time.Time
}

// DeliveryPage is one cursor page of a user's deliveries.
type DeliveryPage struct {
	Deliveries []models.DeliveryOrder
	NextCursor string
}

type quoteVerifier interface {
	Verify(canonical, sig string, env signature.Envelope) bool
	IsExpired(issuedAt string, ttlSeconds int) bool
}

type submitMetrics interface {
	IncSubmit(outcome string)
}

// ServiceParams lists the checkout workflow dependencies.
type ServiceParams struct {
	Repo    Repository
	Signer  quoteVerifier
	Clock   func() time.Time
	Metrics submitMetrics
}

type service struct {
	repo    Repository
	signer  quoteVerifier
	now     func() time.Time
	metrics submitMetrics
}

// NewService builds the delivery checkout service.
func NewService(params ServiceParams) (*service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service requires a repository")
	}
	if params.Signer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service requires a signer")
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    params.Repo,
		signer:  params.Signer,
		now:     now,
		metrics: params.Metrics,
	}, nil
}

func (s *service) CreateDelivery(ctx context.Context, input CreateDeliveryInput) (*models.DeliveryOrder, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Region == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "region is required")
	}
	if !input.VehicleType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported vehicle type")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency")
	}
	serviceLevel := input.ServiceLevel
	if !serviceLevel.IsValid() {
		serviceLevel = enums.ServiceLevelStandard
	}
	if err := validateStops(input.Stops); err != nil {
		return nil, err
	}

	delivery := &models.DeliveryOrder{
		ID:           models.NewID(models.PrefixDelivery),
		UserID:       input.UserID,
		Status:       enums.DeliveryStatusBooked,
		Region:       input.Region,
		VehicleType:  input.VehicleType,
		ServiceLevel: serviceLevel,
		Currency:     input.Currency,
		Notes:        input.Notes,
	}
	for _, stop := range input.Stops {
		delivery.Stops = append(delivery.Stops, models.DeliveryStop{
			ID:           models.NewID(models.PrefixStop),
			DeliveryID:   delivery.ID,
			Seq:          stop.Seq,
			Type:         stop.Type,
			Lat:          stop.Lat,
			Lng:          stop.Lng,
			Address:      stop.Address,
			ContactName:  stop.ContactName,
			ContactPhone: stop.ContactPhone,
			Notes:        stop.Notes,
		})
	}

	if err := s.repo.Create(ctx, delivery); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create delivery")
	}
	return delivery, nil
}

// quotePayload mirrors the canonical serialization of a signed quote.
type quotePayload struct {
	Currency     string            `json:"currency"`
	Region       string            `json:"region"`
	VehicleType  string            `json:"vehicle_type"`
	ServiceLevel string            `json:"service_level"`
	DistanceKM   string            `json:"distance_km"`
	DurationMin  string            `json:"duration_min"`
	Breakdown    map[string]string `json:"breakdown"`
	Total        string            `json:"total"`
	ExpiresAt    string            `json:"expires_at"`
}

func (s *service) AttachPricing(ctx context.Context, input AttachPricingInput) (*models.DeliveryOrder, error) {
	delivery, err := s.loadOwned(ctx, input.UserID, input.DeliveryID)
	if err != nil {
		return nil, err
	}

	if !s.signer.Verify(input.Canonical, input.Signature, input.Envelope) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid pricing signature")
	}
	if s.signer.IsExpired(input.Envelope.IssuedAt, input.Envelope.TTLSeconds) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pricing expired")
	}

	var payload quotePayload
	if err := json.Unmarshal([]byte(input.Canonical), &payload); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid pricing signature")
	}
	currency, err := enums.ParseCurrency(payload.Currency)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid pricing signature")
	}
	total, err := decimal.NewFromString(payload.Total)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid pricing signature")
	}
	expiresAt, err := time.Parse(time.RFC3339, payload.ExpiresAt)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid pricing signature")
	}

	breakdown := types.JSONMap{}
	for key, value := range payload.Breakdown {
		breakdown[key] = value
	}

	canonical := input.Canonical
	sig := input.Signature
	keyID := input.Envelope.KeyID
	issuedAt := input.Envelope.IssuedAt
	ttl := input.Envelope.TTLSeconds
	canonHash := input.Envelope.CanonHash

	delivery.Currency = currency
	delivery.QuoteTotal = &total
	delivery.QuoteBreakdown = breakdown
	delivery.QuoteCanonical = &canonical
	delivery.QuoteSignature = &sig
	delivery.QuoteKeyID = &keyID
	delivery.QuoteIssuedAt = &issuedAt
	delivery.QuoteTTLSeconds = &ttl
	delivery.QuoteCanonHash = &canonHash
	delivery.QuoteExpiresAt = &expiresAt
	if km, err := decimal.NewFromString(payload.DistanceKM); err == nil {
		delivery.QuoteDistanceKM = &km
	}
	if min, err := decimal.NewFromString(payload.DurationMin); err == nil {
		delivery.QuoteDurationMin = &min
	}
	// Re-pricing invalidates any earlier preflight.
	delivery.ReadyToken = nil
	delivery.ReadyTokenExpiresAt = nil

	if err := s.save(ctx, delivery); err != nil {
		return nil, err
	}
	return delivery, nil
}

func (s *service) SetPaymentMethod(ctx context.Context, userID uuid.UUID, deliveryID, methodKey string) (*models.DeliveryOrder, error) {
	if methodKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method is required")
	}
	delivery, err := s.loadOwned(ctx, userID, deliveryID)
	if err != nil {
		return nil, err
	}

	delivery.PaymentMethodKey = &methodKey
	delivery.ReadyToken = nil
	delivery.ReadyTokenExpiresAt = nil

	if err := s.save(ctx, delivery); err != nil {
		return nil, err
	}
	return delivery, nil
}

func (s *service) Preflight(ctx context.Context, userID uuid.UUID, deliveryID string) (*PreflightResult, error) {
	delivery, err := s.loadOwned(ctx, userID, deliveryID)
	if err != nil {
		return nil, err
	}
	if err := s.checkSubmittable(delivery); err != nil {
		return nil, err
	}

	token := models.NewID(models.PrefixReadyToken)
	expiresAt := s.now().UTC().Add(readyTokenTTL)
	delivery.ReadyToken = &token
	delivery.ReadyTokenExpiresAt = &expiresAt

	if err := s.save(ctx, delivery); err != nil {
		return nil, err
	}
	return &PreflightResult{Delivery: delivery, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.DeliveryOrder, error) {
	delivery, err := s.loadOwned(ctx, input.UserID, input.DeliveryID)
	if err != nil {
		return nil, err
	}

	if delivery.ReadyToken == nil || input.ReadyToken == "" || *delivery.ReadyToken != input.ReadyToken {
		s.observeSubmit("rejected")
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "ready token mismatch")
	}
	if delivery.ReadyTokenExpiresAt == nil || s.now().After(*delivery.ReadyTokenExpiresAt) {
		s.observeSubmit("rejected")
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "ready token has expired")
	}
	if err := s.checkSubmittable(delivery); err != nil {
		s.observeSubmit("rejected")
		return nil, err
	}

	submittedAt := s.now().UTC()
	rows, err := s.repo.SubmitWithToken(ctx, delivery.ID, input.ReadyToken, delivery.Version, submittedAt)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "submit delivery")
	}
	if rows == 0 {
		s.observeSubmit("rejected")
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "ready token already used")
	}

	delivery.Status = enums.DeliveryStatusSubmitted
	delivery.ReadyToken = nil
	delivery.ReadyTokenExpiresAt = nil
	delivery.SubmittedAt = &submittedAt
	delivery.Version++

	s.observeSubmit("accepted")
	return delivery, nil
}

func (s *service) GetDelivery(ctx context.Context, userID uuid.UUID, deliveryID string) (*models.DeliveryOrder, error) {
	return s.loadOwned(ctx, userID, deliveryID)
}

func (s *service) ListMyDeliveries(ctx context.Context, userID uuid.UUID, params pagination.Params) (*DeliveryPage, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	deliveries, err := s.repo.ListByUser(ctx, userID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list deliveries")
	}

	page := &DeliveryPage{Deliveries: deliveries}
	if len(deliveries) > limit {
		page.Deliveries = deliveries[:limit]
		last := page.Deliveries[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

func (s *service) loadOwned(ctx context.Context, userID uuid.UUID, deliveryID string) (*models.DeliveryOrder, error) {
	if deliveryID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery id is required")
	}
	delivery, err := s.repo.FindByID(ctx, deliveryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find delivery")
	}
	if delivery == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
	}
	if delivery.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "delivery belongs to another user")
	}
	return delivery, nil
}

// checkSubmittable is the preflight predicate. Each failure carries its own
// message so clients can tell the user exactly what is missing.
func (s *service) checkSubmittable(delivery *models.DeliveryOrder) error {
	if delivery.Status != enums.DeliveryStatusBooked {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery has already been submitted or cancelled")
	}
	if delivery.QuoteSignature == nil || delivery.QuoteIssuedAt == nil || delivery.QuoteTTLSeconds == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "pricing signature is missing")
	}
	if s.signer.IsExpired(*delivery.QuoteIssuedAt, *delivery.QuoteTTLSeconds) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "pricing has expired")
	}
	if delivery.PaymentMethodKey == nil || *delivery.PaymentMethodKey == "" {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment method is not set")
	}
	return nil
}

func (s *service) save(ctx context.Context, delivery *models.DeliveryOrder) error {
	readVersion := delivery.Version
	rows, err := s.repo.Update(ctx, delivery, readVersion)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update delivery")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery was updated concurrently")
	}
	return nil
}

func (s *service) observeSubmit(outcome string) {
	if s.metrics != nil {
		s.metrics.IncSubmit(outcome)
	}
}

func validateStops(stops []StopInput) error {
	if len(stops) < 2 {
		return pkgerrors.New(pkgerrors.CodeValidation, "a delivery needs a pickup and at least one dropoff")
	}

	pickups, dropoffs := 0, 0
	for i, stop := range stops {
		if stop.Seq != i {
			return pkgerrors.New(pkgerrors.CodeValidation, "stop sequence must be contiguous from zero")
		}
		if !stop.Type.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "unknown stop type")
		}
		if stop.Address == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "every stop needs an address")
		}
		switch stop.Type {
		case enums.StopTypePickup:
			pickups++
		case enums.StopTypeDropoff:
			dropoffs++
		}
	}
	if stops[0].Type != enums.StopTypePickup {
		return pkgerrors.New(pkgerrors.CodeValidation, "the first stop must be the pickup")
	}
	if pickups != 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "a delivery has exactly one pickup")
	}
	if dropoffs < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "a delivery needs at least one dropoff")
	}
	return nil
}
