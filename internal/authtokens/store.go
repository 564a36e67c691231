// Package authtokens persists opaque session tokens for the upstream blog
// login. Tokens idle past the configured TTL are removed by the cleanup job.
package authtokens

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/blogwatch/backend/pkg/db/models"
	pkgerrors "github.com/blogwatch/backend/pkg/errors"
)

// Store exposes session token persistence.
type Store interface {
	Save(ctx context.Context, sessionID, userID, token string) error
	Get(ctx context.Context, sessionID string) (*models.AuthToken, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteInactiveSince(ctx context.Context, cutoff time.Time) (int64, error)
}

type storeImpl struct {
	db  *gorm.DB
	now func() time.Time
}

// Params collects the dependencies for NewStore.
type Params struct {
	DB  *gorm.DB
	Now func() time.Time
}

// NewStore validates the params and returns a token store.
func NewStore(params Params) (Store, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "authtokens db required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &storeImpl{db: params.DB, now: now}, nil
}

// Save upserts the token for a session and bumps last_accessed.
func (s *storeImpl) Save(ctx context.Context, sessionID, userID, token string) error {
	if sessionID == "" || token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id and token required")
	}

	now := s.now().UTC()
	row := models.AuthToken{
		SessionID:    sessionID,
		UserID:       userID,
		Token:        token,
		LastAccessed: now,
		UpdatedAt:    now,
	}

	var existing models.AuthToken
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&existing).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		row.CreatedAt = now
		return s.db.WithContext(ctx).Create(&row).Error
	case err != nil:
		return err
	}
	row.CreatedAt = existing.CreatedAt
	return s.db.WithContext(ctx).Save(&row).Error
}

// Get returns the token and bumps last_accessed so active sessions survive
// the idle cleanup.
func (s *storeImpl) Get(ctx context.Context, sessionID string) (*models.AuthToken, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}

	var row models.AuthToken
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
	}
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).
		Model(&models.AuthToken{}).
		Where("session_id = ?", sessionID).
		UpdateColumn("last_accessed", s.now().UTC()).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *storeImpl) Delete(ctx context.Context, sessionID string) error {
	return s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&models.AuthToken{}).Error
}

// DeleteInactiveSince removes sessions not accessed since the cutoff.
func (s *storeImpl) DeleteInactiveSince(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("last_accessed < ?", cutoff).
		Delete(&models.AuthToken{})
	return result.RowsAffected, result.Error
}
