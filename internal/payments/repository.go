package payments

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/zedexpress/zedexpress-backend/pkg/db/models"
)

// Repository persists payment intents and their provider sessions. Update
// methods take the version the caller read; zero rows affected means another
// writer got there first.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateIntent(ctx context.Context, intent *models.PaymentIntent) error
	FindIntentByID(ctx context.Context, id string) (*models.PaymentIntent, error)
	UpdateIntent(ctx context.Context, intent *models.PaymentIntent, readVersion int64) (int64, error)

	CreateSession(ctx context.Context, session *models.PaymentSession) error
	FindSessionByID(ctx context.Context, id string) (*models.PaymentSession, error)
	UpdateSession(ctx context.Context, session *models.PaymentSession, readVersion int64) (int64, error)
	ListSessionsByIntent(ctx context.Context, intentID string) ([]models.PaymentSession, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository backed by the provided DB.
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

func (r *repository) CreateIntent(ctx context.Context, intent *models.PaymentIntent) error {
	return r.db.WithContext(ctx).Create(intent).Error
}

func (r *repository) FindIntentByID(ctx context.Context, id string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&intent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &intent, nil
}

func (r *repository) UpdateIntent(ctx context.Context, intent *models.PaymentIntent, readVersion int64) (int64, error) {
	intent.Version = readVersion + 1
	result := r.db.WithContext(ctx).
		Model(&models.PaymentIntent{}).
		Where("id = ? AND version = ?", intent.ID, readVersion).
		Select(
			"method_key", "status", "next_action", "metadata",
			"failure_code", "failure_message",
			"collected_amount", "collected_at", "version",
		).
		Updates(intent)
	return result.RowsAffected, result.Error
}

func (r *repository) CreateSession(ctx context.Context, session *models.PaymentSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *repository) FindSessionByID(ctx context.Context, id string) (*models.PaymentSession, error) {
	var session models.PaymentSession
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *repository) UpdateSession(ctx context.Context, session *models.PaymentSession, readVersion int64) (int64, error) {
	session.Version = readVersion + 1
	result := r.db.WithContext(ctx).
		Model(&models.PaymentSession{}).
		Where("id = ? AND version = ?", session.ID, readVersion).
		Select("provider_ref", "receipt_url", "status", "next_action", "failure_code", "failure_message", "version").
		Updates(session)
	return result.RowsAffected, result.Error
}

func (r *repository) ListSessionsByIntent(ctx context.Context, intentID string) ([]models.PaymentSession, error) {
	var sessions []models.PaymentSession
	err := r.db.WithContext(ctx).
		Where("intent_id = ?", intentID).
		Order("created_at ASC, id ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}
