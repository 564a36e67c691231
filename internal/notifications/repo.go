package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blogwatch/backend/pkg/db/models"
	"github.com/blogwatch/backend/pkg/pagination"
)

// Repository exposes persistence helpers for notifications and per-user rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	BulkInsertUserRows(ctx context.Context, rows []models.UserNotification) error
	ListForUser(ctx context.Context, params listParams) ([]UserView, *pagination.Cursor, error)
	CountForUser(ctx context.Context, userKey string, unreadOnly bool) (int64, error)
	MarkRead(ctx context.Context, userKey string, notificationID uuid.UUID, now time.Time) (markResult, error)
	MarkAllRead(ctx context.Context, userKey string, now time.Time) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// UserView is one notification joined with the caller's read state.
type UserView struct {
	ID        uuid.UUID  `json:"id"`
	PostID    *string    `json:"post_id,omitempty"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	ImageURL  *string    `json:"image_url,omitempty"`
	IsUrgent  bool       `json:"is_urgent"`
	IsRead    bool       `json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	RowID     uuid.UUID  `json:"-"`
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listParams struct {
	UserKey    string
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

type markResult struct {
	Updated bool
	Found   bool
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *repositoryImpl) BulkInsertUserRows(ctx context.Context, rows []models.UserNotification) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&rows, 500).Error
}

func (r *repositoryImpl) ListForUser(ctx context.Context, params listParams) ([]UserView, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Table("user_notifications AS un").
		Select(`n.id, n.post_id, n.title, n.message, n.image_url, n.is_urgent,
			un.is_read, un.read_at, un.created_at, un.id AS row_id`).
		Joins("JOIN notifications n ON n.id = un.notification_id").
		Where("un.user_key = ?", params.UserKey)
	if params.UnreadOnly {
		query = query.Where("un.is_read = ?", false)
	}
	if params.Cursor != nil {
		query = query.Where("(un.created_at, un.id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var views []UserView
	if err := query.Order("un.created_at DESC, un.id DESC").Limit(limit).Scan(&views).Error; err != nil {
		return nil, nil, err
	}

	if len(views) > normalized {
		next := views[normalized]
		views = views[:normalized]
		return views, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.RowID}, nil
	}
	return views, nil, nil
}

func (r *repositoryImpl) CountForUser(ctx context.Context, userKey string, unreadOnly bool) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.UserNotification{}).
		Where("user_key = ?", userKey)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repositoryImpl) MarkRead(ctx context.Context, userKey string, notificationID uuid.UUID, now time.Time) (markResult, error) {
	result := r.db.WithContext(ctx).
		Model(&models.UserNotification{}).
		Where("notification_id = ? AND user_key = ? AND is_read = ?", notificationID, userKey, false).
		UpdateColumns(map[string]any{"is_read": true, "read_at": now})
	if result.Error != nil {
		return markResult{}, result.Error
	}

	mark := markResult{Updated: result.RowsAffected > 0}
	if mark.Updated {
		mark.Found = true
		return mark, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.UserNotification{}).
		Where("notification_id = ? AND user_key = ?", notificationID, userKey).
		Count(&count).Error; err != nil {
		return markResult{}, err
	}
	mark.Found = count > 0
	return mark, nil
}

func (r *repositoryImpl) MarkAllRead(ctx context.Context, userKey string, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.UserNotification{}).
		Where("user_key = ? AND is_read = ?", userKey, false).
		UpdateColumns(map[string]any{"is_read": true, "read_at": now})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repositoryImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := r.db.WithContext(ctx).
		Where("notification_id IN (?)", r.db.
			Model(&models.Notification{}).
			Select("id").
			Where("expires_at <= ?", now)).
		Delete(&models.UserNotification{}).Error; err != nil {
		return 0, err
	}

	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
