package pricing

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/zedexpress/zedexpress-backend/pkg/db/models"
	"github.com/zedexpress/zedexpress-backend/pkg/enums"
)

// Repository exposes rate table lookups for the calculator.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActiveRate(ctx context.Context, region string, vehicleType enums.VehicleType, serviceLevel enums.ServiceLevel) (*models.RateTable, error)
	ListActiveRates(ctx context.Context, region string, vehicleType enums.VehicleType) ([]models.RateTable, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a rate table repository backed by the provided DB.
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

func (r *repository) FindActiveRate(ctx context.Context, region string, vehicleType enums.VehicleType, serviceLevel enums.ServiceLevel) (*models.RateTable, error) {
	var rate models.RateTable
	err := r.db.WithContext(ctx).
		Where("region = ? AND vehicle_type = ? AND service_level = ? AND active", region, vehicleType, serviceLevel).
		First(&rate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rate, nil
}

func (r *repository) ListActiveRates(ctx context.Context, region string, vehicleType enums.VehicleType) ([]models.RateTable, error) {
	query := r.db.WithContext(ctx).Where("active")
	if region != "" {
		query = query.Where("region = ?", region)
	}
	if vehicleType != "" {
		query = query.Where("vehicle_type = ?", vehicleType)
	}

	var rates []models.RateTable
	if err := query.Order("region, vehicle_type, service_level").Find(&rates).Error; err != nil {
		return nil, err
	}
	return rates, nil
}
