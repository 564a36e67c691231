package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blogwatch/backend/pkg/db/models"
	pkgerrors "github.com/blogwatch/backend/pkg/errors"
	"github.com/blogwatch/backend/pkg/pagination"
)

// Retention for persisted notifications. Expired rows are swept by the
// cleanup job.
const defaultTTL = 30 * 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines notification persistence and per-user read operations.
type Service interface {
	Create(ctx context.Context, params CreateParams) (*models.Notification, error)
	AttachUsers(ctx context.Context, notificationID uuid.UUID, userKeys []string) error
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Count(ctx context.Context, userKey string, unreadOnly bool) (int64, error)
	MarkRead(ctx context.Context, userKey string, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userKey string) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type service struct {
	repo Repository
	tx   txRunner
	now  func() time.Time
}

// CreateParams describes a new notification.
type CreateParams struct {
	PostID   *string
	Title    string
	Message  string
	ImageURL *string
	IsUrgent bool
	// UserKeys are attached in the same transaction as the notification.
	UserKeys []string
}

// ListParams configures pagination for a user's notifications.
type ListParams struct {
	UserKey    string
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []UserView `json:"items"`
	Cursor string     `json:"cursor"`
}

// Params collects the dependencies for NewService.
type Params struct {
	Repo Repository
	Tx   txRunner
	Now  func() time.Time
}

// NewService wires notifications dependencies.
func NewService(params Params) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications tx runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, tx: params.Tx, now: now}, nil
}

func (s *service) Create(ctx context.Context, params CreateParams) (*models.Notification, error) {
	if params.Title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification title required")
	}

	now := s.now().UTC()
	notification := &models.Notification{
		ID:        uuid.New(),
		PostID:    params.PostID,
		Title:     params.Title,
		Message:   params.Message,
		ImageURL:  params.ImageURL,
		IsUrgent:  params.IsUrgent,
		CreatedAt: now,
		ExpiresAt: now.Add(defaultTTL),
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, notification); err != nil {
			return err
		}
		return repo.BulkInsertUserRows(ctx, s.userRows(notification.ID, params.UserKeys, now))
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
	}
	return notification, nil
}

func (s *service) AttachUsers(ctx context.Context, notificationID uuid.UUID, userKeys []string) error {
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	rows := s.userRows(notificationID, userKeys, s.now().UTC())
	if err := s.repo.BulkInsertUserRows(ctx, rows); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach notification users")
	}
	return nil
}

func (s *service) userRows(notificationID uuid.UUID, userKeys []string, now time.Time) []models.UserNotification {
	rows := make([]models.UserNotification, 0, len(userKeys))
	seen := map[string]bool{}
	for _, userKey := range userKeys {
		if userKey == "" || seen[userKey] {
			continue
		}
		seen[userKey] = true
		rows = append(rows, models.UserNotification{
			ID:             uuid.New(),
			UserKey:        userKey,
			NotificationID: notificationID,
			CreatedAt:      now,
		})
	}
	return rows
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.UserKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user key required")
	}

	query := listParams{
		UserKey:    params.UserKey,
		Limit:      params.Limit,
		UnreadOnly: params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListForUser(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) Count(ctx context.Context, userKey string, unreadOnly bool) (int64, error) {
	if userKey == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user key required")
	}
	count, err := s.repo.CountForUser(ctx, userKey, unreadOnly)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count notifications")
	}
	return count, nil
}

func (s *service) MarkRead(ctx context.Context, userKey string, notificationID uuid.UUID) error {
	if userKey == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "user key required")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, userKey, notificationID, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userKey string) (int64, error) {
	if userKey == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user key required")
	}
	count, err := s.repo.MarkAllRead(ctx, userKey, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

func (s *service) DeleteExpired(ctx context.Context) (int64, error) {
	count, err := s.repo.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete expired notifications")
	}
	return count, nil
}
