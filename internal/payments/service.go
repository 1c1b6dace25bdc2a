package payments

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zedexpress/zedexpress-backend/internal/payments/adapters"
	"github.com/zedexpress/zedexpress-backend/pkg/db/models"
	"github.com/zedexpress/zedexpress-backend/pkg/enums"
	pkgerrors "github.com/zedexpress/zedexpress-backend/pkg/errors"
	"github.com/zedexpress/zedexpress-backend/pkg/types"
)

const (
	adapterMaxRetries     = 2
	adapterInitialBackoff = 200 * time.Millisecond
)

// Service orchestrates payment intents and their provider sessions.
type Service interface {
	CreateIntent(ctx context.Context, input CreateIntentInput) (*models.PaymentIntent, error)
	ConfirmIntent(ctx context.Context, input ConfirmIntentInput) (*IntentView, error)
	CancelIntent(ctx context.Context, intentID string) (*models.PaymentIntent, error)
	CollectCash(ctx context.Context, input CollectCashInput) (*models.PaymentIntent, error)
	GetIntent(ctx context.Context, intentID string) (*IntentView, error)
	GetSession(ctx context.Context, sessionID string) (*models.PaymentSession, error)
}

// CreateIntentInput opens a new intent for a delivery. The quote fields are
// optional; when present the quote must still be inside its TTL.
type CreateIntentInput struct {
	UserID     uuid.UUID
	DeliveryID string
	Amount     decimal.Decimal
	Currency   enums.Currency
	Metadata   types.JSONMap

	QuoteSignature  *string
	QuoteIssuedAt   *string
	QuoteTTLSeconds *int
}

// ConfirmIntentInput runs one payment attempt against a registered adapter.
type ConfirmIntentInput struct {
	IntentID     string
	MethodKey    string
	MethodParams map[string]string
	ReturnURL    string
}

// CollectCashInput settles a cash-on-delivery intent in the field.
type CollectCashInput struct {
	IntentID        string
	CollectorUserID uuid.UUID
	Amount          decimal.Decimal
	EvidencePhotoID *string
}

// IntentView is an intent together with its full attempt history.
type IntentView struct {
	Intent   *models.PaymentIntent
	Sessions []models.PaymentSession
}

type methodCatalog interface {
	FindByKey(ctx context.Context, key string) (*models.PaymentMethod, error)
}

type adapterRegistry interface {
	Lookup(methodKey string) (adapters.Adapter, bool)
}

type quoteExpiryChecker interface {
	IsExpired(issuedAt string, ttlSeconds int) bool
}

type paymentMetrics interface {
	ObserveTransition(status string)
	ObserveAdapterCall(provider string, elapsed time.Duration, err error)
}

// ServiceParams lists the orchestrator dependencies.
type ServiceParams struct {
	Repo     Repository
	Methods  methodCatalog
	Adapters adapterRegistry
	Signer   quoteExpiryChecker
	Clock    func() time.Time
	Metrics  paymentMetrics
}

type service struct {
	repo     Repository
	methods  methodCatalog
	adapters adapterRegistry
	signer   quoteExpiryChecker
	now      func() time.Time
	metrics  paymentMetrics
}

// NewService builds the payment orchestrator.
func NewService(params ServiceParams) (*service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service requires a repository")
	}
	if params.Methods == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service requires a method catalog")
	}
	if params.Adapters == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service requires an adapter registry")
	}
	if params.Signer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service requires a signer")
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		methods:  params.Methods,
		adapters: params.Adapters,
		signer:   params.Signer,
		now:      now,
		metrics:  params.Metrics,
	}, nil
}

func (s *service) CreateIntent(ctx context.Context, input CreateIntentInput) (*models.PaymentIntent, error) {
	if input.DeliveryID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery id is required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency")
	}

	if input.QuoteIssuedAt != nil {
		ttl := 0
		if input.QuoteTTLSeconds != nil {
			ttl = *input.QuoteTTLSeconds
		}
		if s.signer.IsExpired(*input.QuoteIssuedAt, ttl) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "pricing signature has expired")
		}
	}

	metadata := input.Metadata
	if metadata == nil {
		metadata = types.JSONMap{}
	}

	intent := &models.PaymentIntent{
		ID:           models.NewID(models.PrefixPaymentIntent),
		DeliveryID:   input.DeliveryID,
		UserID:       input.UserID,
		Amount:       input.Amount,
		Currency:     input.Currency,
		Status:       enums.IntentStatusRequiresMethod,
		ClientSecret: models.NewID(models.PrefixClientSecret),
		Metadata:     metadata,
	}
	if err := s.repo.CreateIntent(ctx, intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment intent")
	}
	s.observeTransition(intent.Status)
	return intent, nil
}

func (s *service) ConfirmIntent(ctx context.Context, input ConfirmIntentInput) (*IntentView, error) {
	intent, err := s.loadIntent(ctx, input.IntentID)
	if err != nil {
		return nil, err
	}
	if !intent.Status.IsConfirmable() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			"intent cannot be confirmed in status "+intent.Status.String())
	}

	method, err := s.methods.FindByKey(ctx, input.MethodKey)
	if err != nil {
		if pkgerrors.CodeOf(err) == pkgerrors.CodeNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
				"payment method "+input.MethodKey+" is not registered")
		}
		return nil, err
	}
	if !method.IsAvailable() || !method.SupportsCurrency(intent.Currency) || !method.SupportsAmount(intent.Amount) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			"payment method "+input.MethodKey+" is not available for this intent")
	}

	adapter, ok := s.adapters.Lookup(input.MethodKey)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			"no payment adapter registered for "+input.MethodKey)
	}

	intent.MethodKey = input.MethodKey
	if intent.Status == enums.IntentStatusRequiresMethod {
		if err := s.transitionIntent(ctx, intent, enums.IntentStatusRequiresConfirmation); err != nil {
			return nil, err
		}
	} else if err := s.saveIntent(ctx, intent); err != nil {
		return nil, err
	}

	// Every confirm attempt gets its own session so retried intents keep a
	// full provider-side audit trail.
	session := &models.PaymentSession{
		ID:        models.NewID(models.PrefixSession),
		IntentID:  intent.ID,
		MethodKey: input.MethodKey,
		Provider:  adapter.Provider(),
		Status:    enums.SessionStatusRequiresAction,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment session")
	}

	result, adapterErr := s.invokeAdapter(ctx, adapter, adapters.ProcessParams{
		IntentID:     intent.ID,
		SessionID:    session.ID,
		Amount:       intent.Amount,
		Currency:     intent.Currency,
		MethodKey:    input.MethodKey,
		MethodParams: input.MethodParams,
		ReturnURL:    input.ReturnURL,
	})
	if adapterErr != nil {
		if err := s.failAttempt(ctx, intent, session, adapterErr); err != nil {
			return nil, err
		}
		return nil, adapterErr
	}

	if err := s.applyResult(ctx, intent, session, result); err != nil {
		return nil, err
	}
	return s.viewOf(ctx, intent)
}

func (s *service) CancelIntent(ctx context.Context, intentID string) (*models.PaymentIntent, error) {
	intent, err := s.loadIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if !intent.Status.IsCancellable() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			"intent cannot be cancelled in status "+intent.Status.String())
	}
	if err := s.transitionIntent(ctx, intent, enums.IntentStatusCancelled); err != nil {
		return nil, err
	}
	return intent, nil
}

func (s *service) CollectCash(ctx context.Context, input CollectCashInput) (*models.PaymentIntent, error) {
	intent, err := s.loadIntent(ctx, input.IntentID)
	if err != nil {
		return nil, err
	}
	if intent.MethodKey != models.MethodKeyCashOnDelivery {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			"cash collection is only valid for cash on delivery intents")
	}
	if !intent.Amount.Equal(input.Amount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			"collected amount must equal the intent amount exactly")
	}
	if !intent.Status.CanTransitionTo(enums.IntentStatusSucceeded) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			"intent cannot be settled in status "+intent.Status.String())
	}

	collectedAt := s.now().UTC()
	if intent.Metadata == nil {
		intent.Metadata = types.JSONMap{}
	}
	intent.Metadata["collected_by"] = input.CollectorUserID.String()
	intent.Metadata["collected_at"] = collectedAt.Format(time.RFC3339)
	if input.EvidencePhotoID != nil {
		intent.Metadata["evidence_photo_id"] = *input.EvidencePhotoID
	}
	amount := input.Amount
	intent.CollectedAmount = &amount
	intent.CollectedAt = &collectedAt

	if err := s.transitionIntent(ctx, intent, enums.IntentStatusSucceeded); err != nil {
		return nil, err
	}
	return intent, nil
}

func (s *service) GetIntent(ctx context.Context, intentID string) (*IntentView, error) {
	intent, err := s.loadIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	return s.viewOf(ctx, intent)
}

func (s *service) GetSession(ctx context.Context, sessionID string) (*models.PaymentSession, error) {
	session, err := s.repo.FindSessionByID(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find payment session")
	}
	if session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment session not found")
	}
	return session, nil
}

func (s *service) loadIntent(ctx context.Context, intentID string) (*models.PaymentIntent, error) {
	if intentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent id is required")
	}
	intent, err := s.repo.FindIntentByID(ctx, intentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find payment intent")
	}
	if intent == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
	}
	return intent, nil
}

func (s *service) viewOf(ctx context.Context, intent *models.PaymentIntent) (*IntentView, error) {
	sessions, err := s.repo.ListSessionsByIntent(ctx, intent.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payment sessions")
	}
	return &IntentView{Intent: intent, Sessions: sessions}, nil
}

// invokeAdapter calls the provider with a bounded exponential backoff.
// Dependency errors are retried; everything else aborts immediately. The
// intent id rides along as the provider idempotency reference, so a retried
// push cannot double-charge.
func (s *service) invokeAdapter(ctx context.Context, adapter adapters.Adapter, params adapters.ProcessParams) (adapters.ProcessResult, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = adapterInitialBackoff

	started := s.now()
	var result adapters.ProcessResult
	err := backoff.Retry(func() error {
		var callErr error
		result, callErr = adapter.ProcessPayment(ctx, params)
		if callErr == nil {
			return nil
		}
		if pkgerrors.CodeOf(callErr) != pkgerrors.CodeDependency {
			return backoff.Permanent(callErr)
		}
		return callErr
	}, backoff.WithContext(backoff.WithMaxRetries(policy, adapterMaxRetries), ctx))

	if s.metrics != nil {
		s.metrics.ObserveAdapterCall(adapter.Provider(), s.now().Sub(started), err)
	}
	return result, err
}

// applyResult maps an adapter verdict onto the session and intent rows.
func (s *service) applyResult(ctx context.Context, intent *models.PaymentIntent, session *models.PaymentSession, result adapters.ProcessResult) error {
	if result.ProviderRef != "" {
		ref := result.ProviderRef
		session.ProviderRef = &ref
	}
	if result.ReceiptURL != "" {
		receipt := result.ReceiptURL
		session.ReceiptURL = &receipt
	}
	if result.Status != session.Status {
		if !session.Status.CanTransitionTo(result.Status) {
			return pkgerrors.New(pkgerrors.CodeInternal,
				"adapter returned an impossible session status "+result.Status.String())
		}
		session.Status = result.Status
	}
	if result.FailureCode != "" {
		code, message := result.FailureCode, result.FailureMessage
		session.FailureCode = &code
		session.FailureMessage = &message
	}
	if result.NextAction != nil {
		session.NextAction = result.NextAction
	}
	if err := s.saveSession(ctx, session); err != nil {
		return err
	}

	next, ok := intentStatusFor(result.Status)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInternal,
			"adapter returned an unmapped session status "+result.Status.String())
	}
	intent.NextAction = result.NextAction
	if result.FailureCode != "" {
		code, message := result.FailureCode, result.FailureMessage
		intent.FailureCode = &code
		intent.FailureMessage = &message
	}
	return s.transitionIntent(ctx, intent, next)
}

// failAttempt marks both rows failed after an adapter error. The original
// error is returned to the caller separately.
func (s *service) failAttempt(ctx context.Context, intent *models.PaymentIntent, session *models.PaymentSession, adapterErr error) error {
	message := adapterErr.Error()
	code := string(pkgerrors.CodeOf(adapterErr))
	session.Status = enums.SessionStatusFailed
	session.FailureCode = &code
	session.FailureMessage = &message
	if err := s.saveSession(ctx, session); err != nil {
		return err
	}

	intent.FailureCode = &code
	intent.FailureMessage = &message
	return s.transitionIntent(ctx, intent, enums.IntentStatusFailed)
}

func (s *service) transitionIntent(ctx context.Context, intent *models.PaymentIntent, next enums.IntentStatus) error {
	if !intent.Status.CanTransitionTo(next) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			"intent cannot move from "+intent.Status.String()+" to "+next.String())
	}
	intent.Status = next
	if err := s.saveIntent(ctx, intent); err != nil {
		return err
	}
	s.observeTransition(next)
	return nil
}

func (s *service) saveIntent(ctx context.Context, intent *models.PaymentIntent) error {
	readVersion := intent.Version
	rows, err := s.repo.UpdateIntent(ctx, intent, readVersion)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment intent")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment intent was updated concurrently")
	}
	return nil
}

func (s *service) saveSession(ctx context.Context, session *models.PaymentSession) error {
	readVersion := session.Version
	rows, err := s.repo.UpdateSession(ctx, session, readVersion)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment session")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment session was updated concurrently")
	}
	return nil
}

func (s *service) observeTransition(status enums.IntentStatus) {
	if s.metrics != nil {
		s.metrics.ObserveTransition(status.String())
	}
}

func intentStatusFor(status enums.SessionStatus) (enums.IntentStatus, bool) {
	switch status {
	case enums.SessionStatusSucceeded:
		return enums.IntentStatusSucceeded, true
	case enums.SessionStatusRequiresAction:
		return enums.IntentStatusRequiresAction, true
	case enums.SessionStatusProcessing:
		return enums.IntentStatusProcessing, true
	case enums.SessionStatusFailed:
		return enums.IntentStatusFailed, true
	case enums.SessionStatusCancelled:
		return enums.IntentStatusCancelled, true
	}
	return "", false
}
