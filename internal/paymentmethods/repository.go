package paymentmethods

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/zedexpress/zedexpress-backend/pkg/db/models"
)

// Repository exposes payment method catalog queries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListEnabled(ctx context.Context) ([]models.PaymentMethod, error)
	FindByKey(ctx context.Context, key string) (*models.PaymentMethod, error)
	UpdateEnabled(ctx context.Context, key string, enabled bool) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payment method repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListEnabled(ctx context.Context) ([]models.PaymentMethod, error) {
	var methods []models.PaymentMethod
	err := r.db.WithContext(ctx).
		Where("enabled").
		Order("display_name").
		Find(&methods).Error
	if err != nil {
		return nil, err
	}
	return methods, nil
}

func (r *repository) FindByKey(ctx context.Context, key string) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&method).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &method, nil
}

func (r *repository) UpdateEnabled(ctx context.Context, key string, enabled bool) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentMethod{}).
		Where("key = ?", key).
		Update("enabled", enabled)
	return result.RowsAffected, result.Error
}
