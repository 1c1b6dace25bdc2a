package paymentmethods

import (
	"context"
	"strings"

	"github.com/zedexpress/zedexpress-backend/pkg/db/models"
	"github.com/zedexpress/zedexpress-backend/pkg/enums"
	pkgerrors "github.com/zedexpress/zedexpress-backend/pkg/errors"
)

// Service exposes the payment method catalog.
type Service interface {
	FindAvailable(ctx context.Context, region string, currency enums.Currency) ([]models.PaymentMethod, error)
	FindByKey(ctx context.Context, key string) (*models.PaymentMethod, error)
	SetAvailability(ctx context.Context, actor enums.UserRole, key string, enabled bool) error
}

// ServiceParams groups dependencies for the payment method service.
type ServiceParams struct {
	Repo Repository
}

type service struct {
	repo Repository
}

// NewService constructs a payment method service.
func NewService(params ServiceParams) (*service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment method repo required")
	}
	return &service{repo: params.Repo}, nil
}

// FindAvailable lists enabled methods, optionally filtered by region and
// currency support.
func (s *service) FindAvailable(ctx context.Context, region string, currency enums.Currency) ([]models.PaymentMethod, error) {
	methods, err := s.repo.ListEnabled(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment methods")
	}

	available := make([]models.PaymentMethod, 0, len(methods))
	for i := range methods {
		method := &methods[i]
		if !method.IsAvailable() {
			continue
		}
		if !method.SupportsRegion(region) {
			continue
		}
		if !method.SupportsCurrency(currency) {
			continue
		}
		available = append(available, *method)
	}
	return available, nil
}

// FindByKey loads one method by its stable key.
func (s *service) FindByKey(ctx context.Context, key string) (*models.PaymentMethod, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method key is required")
	}
	method, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment method")
	}
	if method == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
	}
	return method, nil
}

// SetAvailability toggles a method on or off. Admin only.
func (s *service) SetAvailability(ctx context.Context, actor enums.UserRole, key string, enabled bool) error {
	if actor != enums.UserRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only admins can change method availability")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment method key is required")
	}

	affected, err := s.repo.UpdateEnabled(ctx, key, enabled)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment method")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
	}
	return nil
}
