package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blogwatch/backend/pkg/db/models"
)

// Repository exposes persistence for push subscription rows.
type Repository interface {
	GetByEndpoint(ctx context.Context, endpoint string) (*models.PushSubscription, error)
	Upsert(ctx context.Context, sub *models.PushSubscription) error
	DeleteByEndpoint(ctx context.Context, endpoint string) (int64, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	ListForUsers(ctx context.Context, userKeys []string) ([]models.PushSubscription, error)
	ListAllActive(ctx context.Context) ([]models.PushSubscription, error)
	UpdateLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error
	CountActive(ctx context.Context) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a subscriptions repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) GetByEndpoint(ctx context.Context, endpoint string) (*models.PushSubscription, error) {
	var sub models.PushSubscription
	err := r.db.WithContext(ctx).Where("endpoint = ?", endpoint).First(&sub).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repositoryImpl) Upsert(ctx context.Context, sub *models.PushSubscription) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

func (r *repositoryImpl) DeleteByEndpoint(ctx context.Context, endpoint string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("endpoint = ?", endpoint).
		Delete(&models.PushSubscription{})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.PushSubscription{}).Error
}

func (r *repositoryImpl) ListForUsers(ctx context.Context, userKeys []string) ([]models.PushSubscription, error) {
	if len(userKeys) == 0 {
		return nil, nil
	}
	var subs []models.PushSubscription
	if err := r.db.WithContext(ctx).
		Where("is_active = ? AND user_key IN ?", true, userKeys).
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *repositoryImpl) ListAllActive(ctx context.Context) ([]models.PushSubscription, error) {
	var subs []models.PushSubscription
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *repositoryImpl) UpdateLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.PushSubscription{}).
		Where("id = ?", id).
		UpdateColumn("last_used", at).Error
}

func (r *repositoryImpl) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PushSubscription{}).
		Where("is_active = ?", true).
		Count(&count).Error
	return count, err
}
