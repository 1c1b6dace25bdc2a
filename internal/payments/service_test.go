package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zedexpress/zedexpress-backend/internal/payments/adapters"
	"github.com/zedexpress/zedexpress-backend/pkg/db/models"
	"github.com/zedexpress/zedexpress-backend/pkg/enums"
	pkgerrors "github.com/zedexpress/zedexpress-backend/pkg/errors"
	"github.com/zedexpress/zedexpress-backend/pkg/types"
)

var testNow = time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

type stubPaymentRepo struct {
	intents  map[string]*models.PaymentIntent
	sessions map[string]*models.PaymentSession

	forceIntentConflict bool
}

func newStubPaymentRepo() *stubPaymentRepo {
	return &stubPaymentRepo{
		intents:  map[string]*models.PaymentIntent{},
		sessions: map[string]*models.PaymentSession{},
	}
}

func (r *stubPaymentRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubPaymentRepo) CreateIntent(ctx context.Context, intent *models.PaymentIntent) error {
	clone := *intent
	r.intents[intent.ID] = &clone
	return nil
}

func (r *stubPaymentRepo) FindIntentByID(ctx context.Context, id string) (*models.PaymentIntent, error) {
	intent, ok := r.intents[id]
	if !ok {
		return nil, nil
	}
	clone := *intent
	return &clone, nil
}

func (r *stubPaymentRepo) UpdateIntent(ctx context.Context, intent *models.PaymentIntent, readVersion int64) (int64, error) {
	stored, ok := r.intents[intent.ID]
	if !ok || stored.Version != readVersion || r.forceIntentConflict {
		return 0, nil
	}
	intent.Version = readVersion + 1
	clone := *intent
	r.intents[intent.ID] = &clone
	return 1, nil
}

func (r *stubPaymentRepo) CreateSession(ctx context.Context, session *models.PaymentSession) error {
	session.CreatedAt = testNow.Add(time.Duration(len(r.sessions)) * time.Second)
	clone := *session
	r.sessions[session.ID] = &clone
	return nil
}

func (r *stubPaymentRepo) FindSessionByID(ctx context.Context, id string) (*models.PaymentSession, error) {
	session, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	clone := *session
	return &clone, nil
}

func (r *stubPaymentRepo) UpdateSession(ctx context.Context, session *models.PaymentSession, readVersion int64) (int64, error) {
	stored, ok := r.sessions[session.ID]
	if !ok || stored.Version != readVersion {
		return 0, nil
	}
	session.Version = readVersion + 1
	clone := *session
	r.sessions[session.ID] = &clone
	return 1, nil
}

func (r *stubPaymentRepo) ListSessionsByIntent(ctx context.Context, intentID string) ([]models.PaymentSession, error) {
	var out []models.PaymentSession
	for _, session := range r.sessions {
		if session.IntentID == intentID {
			out = append(out, *session)
		}
	}
	return out, nil
}

type stubCatalog struct {
	methods map[string]*models.PaymentMethod
}

func (c *stubCatalog) FindByKey(ctx context.Context, key string) (*models.PaymentMethod, error) {
	method, ok := c.methods[key]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
	}
	return method, nil
}

type stubExpiry struct {
	expired bool
}

func (s *stubExpiry) IsExpired(issuedAt string, ttlSeconds int) bool { return s.expired }

type scriptedAdapter struct {
	provider string
	results  []adapters.ProcessResult
	errs     []error
	calls    int
}

func (a *scriptedAdapter) Provider() string                   { return a.provider }
func (a *scriptedAdapter) Capabilities() adapters.Capabilities { return adapters.Capabilities{} }

func (a *scriptedAdapter) ProcessPayment(ctx context.Context, params adapters.ProcessParams) (adapters.ProcessResult, error) {
	idx := a.calls
	a.calls++
	if idx < len(a.errs) && a.errs[idx] != nil {
		return adapters.ProcessResult{}, a.errs[idx]
	}
	if idx < len(a.results) {
		return a.results[idx], nil
	}
	return adapters.ProcessResult{Status: enums.SessionStatusSucceeded, ProviderRef: "ref_ok"}, nil
}

func (a *scriptedAdapter) CheckStatus(ctx context.Context, providerRef string) (adapters.StatusResult, error) {
	return adapters.StatusResult{Status: enums.SessionStatusProcessing, ProviderRef: providerRef}, nil
}

func availableMethods() map[string]*models.PaymentMethod {
	return map[string]*models.PaymentMethod{
		models.MethodKeyCashOnDelivery: {
			Key:      models.MethodKeyCashOnDelivery,
			Type:     enums.PaymentMethodTypeCashOnDelivery,
			Currency: enums.CurrencyZMW,
			Enabled:  true,
		},
		models.MethodKeyAirtelMoney: {
			Key:      models.MethodKeyAirtelMoney,
			Type:     enums.PaymentMethodTypeMobileMoney,
			Currency: enums.CurrencyZMW,
			Enabled:  true,
		},
	}
}

type harness struct {
	repo    *stubPaymentRepo
	adapter *scriptedAdapter
	svc     *service
}

func newHarness(t *testing.T, adapter *scriptedAdapter) *harness {
	t.Helper()

	repo := newStubPaymentRepo()
	bindings := map[string]adapters.Adapter{}
	if adapter != nil {
		bindings[models.MethodKeyCashOnDelivery] = adapter
		bindings[models.MethodKeyAirtelMoney] = adapter
	}
	registry, err := adapters.NewRegistry(bindings)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Methods:  &stubCatalog{methods: availableMethods()},
		Adapters: registry,
		Signer:   &stubExpiry{},
		Clock:    func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &harness{repo: repo, adapter: adapter, svc: svc}
}

func (h *harness) createIntent(t *testing.T) *models.PaymentIntent {
	t.Helper()
	intent, err := h.svc.CreateIntent(context.Background(), CreateIntentInput{
		UserID:     uuid.New(),
		DeliveryID: "del_test",
		Amount:     decimal.RequireFromString("52.73"),
		Currency:   enums.CurrencyZMW,
	})
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	return intent
}

func TestCreateIntent(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &scriptedAdapter{provider: "cash_on_delivery"})
	intent := h.createIntent(t)

	if !models.HasPrefix(intent.ID, models.PrefixPaymentIntent) {
		t.Fatalf("unexpected intent id %s", intent.ID)
	}
	if !models.HasPrefix(intent.ClientSecret, models.PrefixClientSecret) {
		t.Fatalf("unexpected client secret %s", intent.ClientSecret)
	}
	if intent.Status != enums.IntentStatusRequiresMethod {
		t.Fatalf("status = %s, want requires_method", intent.Status)
	}
}

func TestCreateIntentRejectsExpiredQuote(t *testing.T) {
	t.Parallel()

	repo := newStubPaymentRepo()
	registry, _ := adapters.NewRegistry(nil)
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Methods:  &stubCatalog{methods: availableMethods()},
		Adapters: registry,
		Signer:   &stubExpiry{expired: true},
		Clock:    func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	issuedAt := testNow.Add(-time.Hour).Format(time.RFC3339)
	ttl := 900
	_, err = svc.CreateIntent(context.Background(), CreateIntentInput{
		UserID:          uuid.New(),
		DeliveryID:      "del_test",
		Amount:          decimal.RequireFromString("52.73"),
		Currency:        enums.CurrencyZMW,
		QuoteIssuedAt:   &issuedAt,
		QuoteTTLSeconds: &ttl,
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConfirmIntentUnknownMethodIsStateConflict(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &scriptedAdapter{provider: "cash_on_delivery"})
	intent := h.createIntent(t)

	_, err := h.svc.ConfirmIntent(context.Background(), ConfirmIntentInput{
		IntentID:  intent.ID,
		MethodKey: "card:visa",
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestConfirmIntentUnregisteredAdapterIsStateConflict(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	intent := h.createIntent(t)

	_, err := h.svc.ConfirmIntent(context.Background(), ConfirmIntentInput{
		IntentID:  intent.ID,
		MethodKey: "cash_on_delivery",
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestConfirmIntentRequiresAction(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &scriptedAdapter{
		provider: "cash_on_delivery",
		results: []adapters.ProcessResult{{
			Status:      enums.SessionStatusRequiresAction,
			ProviderRef: "cod_ref",
			NextAction: &types.NextAction{
				Type:         enums.NextActionTypeNone,
				Instructions: "amount will be collected in cash on delivery",
			},
		}},
	})
	intent := h.createIntent(t)

	view, err := h.svc.ConfirmIntent(context.Background(), ConfirmIntentInput{
		IntentID:  intent.ID,
		MethodKey: "cash_on_delivery",
	})
	if err != nil {
		t.Fatalf("ConfirmIntent: %v", err)
	}

	if view.Intent.Status != enums.IntentStatusRequiresAction {
		t.Fatalf("intent status = %s, want requires_action", view.Intent.Status)
	}
	if view.Intent.MethodKey != "cash_on_delivery" {
		t.Fatalf("method key = %s", view.Intent.MethodKey)
	}
	if view.Intent.NextAction == nil {
		t.Fatal("expected a next action on the intent")
	}
	if len(view.Sessions) != 1 {
		t.Fatalf("expected one session, got %d", len(view.Sessions))
	}
	session := view.Sessions[0]
	if !models.HasPrefix(session.ID, models.PrefixSession) {
		t.Fatalf("unexpected session id %s", session.ID)
	}
	if session.Status != enums.SessionStatusRequiresAction {
		t.Fatalf("session status = %s", session.Status)
	}
	if session.ProviderRef == nil || *session.ProviderRef != "cod_ref" {
		t.Fatalf("session ref = %v", session.ProviderRef)
	}
	if session.MethodKey != "cash_on_delivery" {
		t.Fatalf("session method key = %s", session.MethodKey)
	}
	if session.NextAction == nil || session.NextAction.Type != enums.NextActionTypeNone {
		t.Fatalf("session next action = %+v", session.NextAction)
	}
}

func TestConfirmIntentRepeatedAttemptsCreateSessions(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &scriptedAdapter{
		provider: "mobile_money:airtel_zm",
		results: []adapters.ProcessResult{
			{Status: enums.SessionStatusRequiresAction, ProviderRef: "mm_1"},
			{Status: enums.SessionStatusSucceeded, ProviderRef: "mm_2"},
		},
	})
	intent := h.createIntent(t)

	if _, err := h.svc.ConfirmIntent(context.Background(), ConfirmIntentInput{
		IntentID:  intent.ID,
		MethodKey: "mobile_money:airtel_zm",
	}); err != nil {
		t.Fatalf("first confirm: %v", err)
	}

	// requires_action permits a second confirmation round trip.
	stored, _ := h.repo.FindIntentByID(context.Background(), intent.ID)
	stored.Status = enums.IntentStatusRequiresConfirmation
	if _, err := h.repo.UpdateIntent(context.Background(), stored, stored.Version); err != nil {
		t.Fatalf("reset intent: %v", err)
	}

	view, err := h.svc.ConfirmIntent(context.Background(), ConfirmIntentInput{
		IntentID:  intent.ID,
		MethodKey: "mobile_money:airtel_zm",
	})
	if err != nil {
		t.Fatalf("second confirm: %v", err)
	}
	if len(view.Sessions) != 2 {
		t.Fatalf("expected two sessions, got %d", len(view.Sessions))
	}
	if view.Intent.Status != enums.IntentStatusSucceeded {
		t.Fatalf("intent status = %s, want succeeded", view.Intent.Status)
	}
}

func TestConfirmIntentRetriesTransientAdapterFailures(t *testing.T) {
	t.Parallel()

	adapter := &scriptedAdapter{
		provider: "mobile_money:airtel_zm",
		errs: []error{
			pkgerrors.New(pkgerrors.CodeDependency, "aggregator timeout"),
			nil,
		},
		results: []adapters.ProcessResult{
			{},
			{Status: enums.SessionStatusSucceeded, ProviderRef: "mm_retry"},
		},
	}
	h := newHarness(t, adapter)
	intent := h.createIntent(t)

	view, err := h.svc.ConfirmIntent(context.Background(), ConfirmIntentInput{
		IntentID:     intent.ID,
		MethodKey:    "mobile_money:airtel_zm",
		MethodParams: map[string]string{"msisdn": "+260971234567"},
	})
	if err != nil {
		t.Fatalf("ConfirmIntent: %v", err)
	}
	if adapter.calls != 2 {
		t.Fatalf("adapter calls = %d, want 2", adapter.calls)
	}
	if view.Intent.Status != enums.IntentStatusSucceeded {
		t.Fatalf("intent status = %s, want succeeded", view.Intent.Status)
	}
}

func TestConfirmIntentAdapterErrorFailsBoth(t *testing.T) {
	t.Parallel()

	adapter := &scriptedAdapter{
		provider: "mobile_money:airtel_zm",
		errs:     []error{pkgerrors.New(pkgerrors.CodeValidation, "mobile money requires an msisdn")},
	}
	h := newHarness(t, adapter)
	intent := h.createIntent(t)

	_, err := h.svc.ConfirmIntent(context.Background(), ConfirmIntentInput{
		IntentID:  intent.ID,
		MethodKey: "mobile_money:airtel_zm",
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected original adapter error, got %v", err)
	}
	if adapter.calls != 1 {
		t.Fatalf("validation errors must not be retried, calls = %d", adapter.calls)
	}

	stored, _ := h.repo.FindIntentByID(context.Background(), intent.ID)
	if stored.Status != enums.IntentStatusFailed {
		t.Fatalf("intent status = %s, want failed", stored.Status)
	}
	sessions, _ := h.repo.ListSessionsByIntent(context.Background(), intent.ID)
	if len(sessions) != 1 || sessions[0].Status != enums.SessionStatusFailed {
		t.Fatalf("unexpected sessions %+v", sessions)
	}
	if sessions[0].FailureMessage == nil {
		t.Fatal("expected a failure message on the session")
	}
}

func TestConfirmIntentNotConfirmable(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &scriptedAdapter{provider: "cash_on_delivery"})
	intent := h.createIntent(t)

	stored := h.repo.intents[intent.ID]
	stored.Status = enums.IntentStatusSucceeded

	_, err := h.svc.ConfirmIntent(context.Background(), ConfirmIntentInput{
		IntentID:  intent.ID,
		MethodKey: "cash_on_delivery",
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCancelIntent(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &scriptedAdapter{provider: "cash_on_delivery"})
	intent := h.createIntent(t)

	cancelled, err := h.svc.CancelIntent(context.Background(), intent.ID)
	if err != nil {
		t.Fatalf("CancelIntent: %v", err)
	}
	if cancelled.Status != enums.IntentStatusCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}

	if _, err := h.svc.CancelIntent(context.Background(), intent.ID); pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict cancelling twice, got %v", err)
	}
}

func TestCollectCash(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &scriptedAdapter{
		provider: "cash_on_delivery",
		results: []adapters.ProcessResult{{
			Status:      enums.SessionStatusRequiresAction,
			ProviderRef: "cod_ref",
		}},
	})
	intent := h.createIntent(t)
	if _, err := h.svc.ConfirmIntent(context.Background(), ConfirmIntentInput{
		IntentID:  intent.ID,
		MethodKey: "cash_on_delivery",
	}); err != nil {
		t.Fatalf("ConfirmIntent: %v", err)
	}

	collector := uuid.New()
	evidence := "photo_123"
	settled, err := h.svc.CollectCash(context.Background(), CollectCashInput{
		IntentID:        intent.ID,
		CollectorUserID: collector,
		Amount:          decimal.RequireFromString("52.73"),
		EvidencePhotoID: &evidence,
	})
	if err != nil {
		t.Fatalf("CollectCash: %v", err)
	}
	if settled.Status != enums.IntentStatusSucceeded {
		t.Fatalf("status = %s, want succeeded", settled.Status)
	}
	if settled.Metadata["collected_by"] != collector.String() {
		t.Fatalf("collected_by = %v", settled.Metadata["collected_by"])
	}
	if settled.Metadata["evidence_photo_id"] != evidence {
		t.Fatalf("evidence = %v", settled.Metadata["evidence_photo_id"])
	}
	if settled.CollectedAt == nil || !settled.CollectedAt.Equal(testNow) {
		t.Fatalf("collected_at = %v", settled.CollectedAt)
	}
}

func TestCollectCashRejectsCentMismatch(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &scriptedAdapter{
		provider: "cash_on_delivery",
		results: []adapters.ProcessResult{{
			Status:      enums.SessionStatusRequiresAction,
			ProviderRef: "cod_ref",
		}},
	})
	intent := h.createIntent(t)
	if _, err := h.svc.ConfirmIntent(context.Background(), ConfirmIntentInput{
		IntentID:  intent.ID,
		MethodKey: "cash_on_delivery",
	}); err != nil {
		t.Fatalf("ConfirmIntent: %v", err)
	}

	_, err := h.svc.CollectCash(context.Background(), CollectCashInput{
		IntentID:        intent.ID,
		CollectorUserID: uuid.New(),
		Amount:          decimal.RequireFromString("52.72"),
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCollectCashRequiresCashMethod(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &scriptedAdapter{
		provider: "mobile_money:airtel_zm",
		results: []adapters.ProcessResult{{
			Status:      enums.SessionStatusRequiresAction,
			ProviderRef: "mm_ref",
		}},
	})
	intent := h.createIntent(t)
	if _, err := h.svc.ConfirmIntent(context.Background(), ConfirmIntentInput{
		IntentID:     intent.ID,
		MethodKey:    "mobile_money:airtel_zm",
		MethodParams: map[string]string{"msisdn": "+260971234567"},
	}); err != nil {
		t.Fatalf("ConfirmIntent: %v", err)
	}

	_, err := h.svc.CollectCash(context.Background(), CollectCashInput{
		IntentID:        intent.ID,
		CollectorUserID: uuid.New(),
		Amount:          decimal.RequireFromString("52.73"),
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestConcurrentUpdateIsStateConflict(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &scriptedAdapter{provider: "cash_on_delivery"})
	intent := h.createIntent(t)

	h.repo.forceIntentConflict = true
	_, err := h.svc.CancelIntent(context.Background(), intent.ID)
	if pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on lost race, got %v", err)
	}
}

func TestGetIntentAndSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &scriptedAdapter{
		provider: "cash_on_delivery",
		results: []adapters.ProcessResult{{
			Status:      enums.SessionStatusRequiresAction,
			ProviderRef: "cod_ref",
		}},
	})
	intent := h.createIntent(t)
	view, err := h.svc.ConfirmIntent(context.Background(), ConfirmIntentInput{
		IntentID:  intent.ID,
		MethodKey: "cash_on_delivery",
	})
	if err != nil {
		t.Fatalf("ConfirmIntent: %v", err)
	}

	got, err := h.svc.GetIntent(context.Background(), intent.ID)
	if err != nil {
		t.Fatalf("GetIntent: %v", err)
	}
	if len(got.Sessions) != 1 {
		t.Fatalf("expected session history, got %d", len(got.Sessions))
	}

	session, err := h.svc.GetSession(context.Background(), view.Sessions[0].ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if session.IntentID != intent.ID {
		t.Fatalf("session intent = %s", session.IntentID)
	}

	if _, err := h.svc.GetSession(context.Background(), "sess_missing"); pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := h.svc.GetIntent(context.Background(), "pay_int_missing"); pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
