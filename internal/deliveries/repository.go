package deliveries

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zedexpress/zedexpress-backend/pkg/db/models"
	"github.com/zedexpress/zedexpress-backend/pkg/enums"
	"github.com/zedexpress/zedexpress-backend/pkg/pagination"
)

// Repository persists delivery orders with their stops. Update takes the
// version the caller read; zero rows affected means a lost race. SubmitWithToken
// is the single-use token gate: one conditional UPDATE that both checks and
// clears the ready token so a second submit with the same token cannot pass.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, delivery *models.DeliveryOrder) error
	FindByID(ctx context.Context, id string) (*models.DeliveryOrder, error)
	Update(ctx context.Context, delivery *models.DeliveryOrder, readVersion int64) (int64, error)
	SubmitWithToken(ctx context.Context, id, token string, readVersion int64, submittedAt time.Time) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.DeliveryOrder, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a deliveries repository backed by the provided DB.
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

func (r *repository) Create(ctx context.Context, delivery *models.DeliveryOrder) error {
	return r.db.WithContext(ctx).Create(delivery).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*models.DeliveryOrder, error) {
	var delivery models.DeliveryOrder
	err := r.db.WithContext(ctx).
		Preload("Stops", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		}).
		Where("id = ?", id).
		First(&delivery).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &delivery, nil
}

func (r *repository) Update(ctx context.Context, delivery *models.DeliveryOrder, readVersion int64) (int64, error) {
	delivery.Version = readVersion + 1
	result := r.db.WithContext(ctx).
		Model(&models.DeliveryOrder{}).
		Where("id = ? AND version = ?", delivery.ID, readVersion).
		Select(
			"status", "currency",
			"quote_total", "quote_breakdown", "quote_canonical", "quote_signature",
			"quote_key_id", "quote_issued_at", "quote_ttl_seconds", "quote_canon_hash",
			"quote_expires_at", "quote_distance_km", "quote_duration_min",
			"payment_method_key", "payment_intent_id",
			"ready_token", "ready_token_expires_at",
			"submitted_at", "cancelled_at", "version",
		).
		Updates(delivery)
	return result.RowsAffected, result.Error
}

func (r *repository) SubmitWithToken(ctx context.Context, id, token string, readVersion int64, submittedAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.DeliveryOrder{}).
		Where("id = ? AND version = ? AND ready_token = ?", id, readVersion, token).
		Updates(map[string]any{
			"status":                 enums.DeliveryStatusSubmitted,
			"ready_token":            nil,
			"ready_token_expires_at": nil,
			"submitted_at":           submittedAt,
			"version":                readVersion + 1,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.DeliveryOrder, error) {
	query := r.db.WithContext(ctx).
		Preload("Stops", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		}).
		Where("user_id = ?", userID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var deliveries []models.DeliveryOrder
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&deliveries).Error
	if err != nil {
		return nil, err
	}
	return deliveries, nil
}
