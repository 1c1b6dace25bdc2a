package paymentmethods

import (
	"context"
	"testing"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zedexpress/zedexpress-backend/pkg/db/models"
	"github.com/zedexpress/zedexpress-backend/pkg/enums"
	pkgerrors "github.com/zedexpress/zedexpress-backend/pkg/errors"
)

type stubMethodRepo struct {
	methods       []models.PaymentMethod
	byKey         map[string]*models.PaymentMethod
	updatedKey    string
	updatedValue  bool
	affectedRows  int64
	listErr       error
	updateCalled  bool
}

func (s *stubMethodRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubMethodRepo) ListEnabled(ctx context.Context) ([]models.PaymentMethod, error) {
	return s.methods, s.listErr
}

func (s *stubMethodRepo) FindByKey(ctx context.Context, key string) (*models.PaymentMethod, error) {
	return s.byKey[key], nil
}

func (s *stubMethodRepo) UpdateEnabled(ctx context.Context, key string, enabled bool) (int64, error) {
	s.updateCalled = true
	s.updatedKey = key
	s.updatedValue = enabled
	return s.affectedRows, nil
}

func seededMethods() []models.PaymentMethod {
	min := decimal.RequireFromString("1.00")
	max := decimal.RequireFromString("10000.00")
	airtel := "airtel_zm"
	return []models.PaymentMethod{
		{
			Key:         "cash_on_delivery",
			Type:        enums.PaymentMethodTypeCashOnDelivery,
			DisplayName: "Cash on Delivery",
			Currency:    enums.CurrencyZMW,
			Regions:     pq.StringArray{"ZM-LSK", "ZM-NDL"},
			Enabled:     true,
		},
		{
			Key:            "mobile_money:airtel_zm",
			Type:           enums.PaymentMethodTypeMobileMoney,
			Provider:       &airtel,
			DisplayName:    "Airtel Money",
			Currency:       enums.CurrencyZMW,
			Regions:        pq.StringArray{"ZM-LSK"},
			MinAmount:      &min,
			MaxAmount:      &max,
			RequiresMSISDN: true,
			Enabled:        true,
		},
	}
}

func newTestService(t *testing.T, repo Repository) *service {
	t.Helper()
	svc, err := NewService(ServiceParams{Repo: repo})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestFindAvailableFiltersByRegion(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubMethodRepo{methods: seededMethods()})

	got, err := svc.FindAvailable(context.Background(), "ZM-NDL", enums.CurrencyZMW)
	if err != nil {
		t.Fatalf("FindAvailable: %v", err)
	}
	if len(got) != 1 || got[0].Key != "cash_on_delivery" {
		t.Fatalf("expected only cash_on_delivery in ZM-NDL, got %+v", got)
	}

	got, err = svc.FindAvailable(context.Background(), "ZM-LSK", enums.CurrencyZMW)
	if err != nil {
		t.Fatalf("FindAvailable: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected both methods in ZM-LSK, got %d", len(got))
	}
}

func TestFindAvailableFiltersByCurrency(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubMethodRepo{methods: seededMethods()})

	got, err := svc.FindAvailable(context.Background(), "", enums.CurrencyUSD)
	if err != nil {
		t.Fatalf("FindAvailable: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no USD methods, got %d", len(got))
	}
}

func TestFindByKey(t *testing.T) {
	t.Parallel()

	methods := seededMethods()
	repo := &stubMethodRepo{byKey: map[string]*models.PaymentMethod{
		"mobile_money:airtel_zm": &methods[1],
	}}
	svc := newTestService(t, repo)

	method, err := svc.FindByKey(context.Background(), "mobile_money:airtel_zm")
	if err != nil {
		t.Fatalf("FindByKey: %v", err)
	}
	if method.Key != "mobile_money:airtel_zm" {
		t.Fatalf("unexpected method %s", method.Key)
	}

	if _, err := svc.FindByKey(context.Background(), "card:visa"); pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.FindByKey(context.Background(), "  "); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSetAvailabilityRequiresAdmin(t *testing.T) {
	t.Parallel()

	repo := &stubMethodRepo{affectedRows: 1}
	svc := newTestService(t, repo)

	err := svc.SetAvailability(context.Background(), enums.UserRoleCustomer, "wallet", true)
	if pkgerrors.CodeOf(err) != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if repo.updateCalled {
		t.Fatal("repo should not be touched on forbidden")
	}

	if err := svc.SetAvailability(context.Background(), enums.UserRoleAdmin, "wallet", true); err != nil {
		t.Fatalf("SetAvailability: %v", err)
	}
	if repo.updatedKey != "wallet" || !repo.updatedValue {
		t.Fatalf("unexpected update %s=%v", repo.updatedKey, repo.updatedValue)
	}
}

func TestSetAvailabilityUnknownKey(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubMethodRepo{affectedRows: 0})
	err := svc.SetAvailability(context.Background(), enums.UserRoleAdmin, "card:visa", false)
	if pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMethodPredicates(t *testing.T) {
	t.Parallel()

	methods := seededMethods()
	airtel := &methods[1]

	if !airtel.SupportsAmount(decimal.RequireFromString("50.00")) {
		t.Fatal("expected amount inside bounds to be supported")
	}
	if airtel.SupportsAmount(decimal.RequireFromString("0.50")) {
		t.Fatal("expected amount below min to be rejected")
	}
	if airtel.SupportsAmount(decimal.RequireFromString("10000.01")) {
		t.Fatal("expected amount above max to be rejected")
	}
	if !airtel.SupportsRegion("") {
		t.Fatal("empty region filter should match")
	}
	if airtel.SupportsRegion("ZM-NDL") {
		t.Fatal("expected region outside list to be rejected")
	}
}
