// Package subscriptions manages browser push subscription lifecycle. Rows are
// keyed by endpoint: re-subscribing from the same browser updates the stored
// keys instead of inserting a duplicate.
package subscriptions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/blogwatch/backend/pkg/db"
	"github.com/blogwatch/backend/pkg/db/models"
	pkgerrors "github.com/blogwatch/backend/pkg/errors"
)

// Service exposes subscription lifecycle operations.
type Service interface {
	Subscribe(ctx context.Context, params SubscribeParams) (*models.PushSubscription, error)
	Unsubscribe(ctx context.Context, endpoint string) error
	Exists(ctx context.Context, endpoint string) (bool, error)
	ListForUsers(ctx context.Context, userKeys []string) ([]models.PushSubscription, error)
	ListAllActive(ctx context.Context) ([]models.PushSubscription, error)
	UpdateLastUsed(ctx context.Context, id uuid.UUID) error
	Remove(ctx context.Context, id uuid.UUID) error
	CountActive(ctx context.Context) (int64, error)
}

// SubscribeParams carries the browser subscription payload.
type SubscribeParams struct {
	Endpoint string
	Auth     string
	P256dh   string
	UserKey  *string
	DeviceID string
}

type service struct {
	repo Repository
	now  func() time.Time
}

// Params collects the dependencies for NewService.
type Params struct {
	Repo Repository
	Now  func() time.Time
}

// NewService validates the params and returns a subscriptions service.
func NewService(params Params) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "subscriptions repository required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, now: now}, nil
}

// Subscribe upserts by endpoint. An existing row is reactivated and its keys
// refreshed; the device id is derived from the endpoint when absent.
func (s *service) Subscribe(ctx context.Context, params SubscribeParams) (*models.PushSubscription, error) {
	if params.Endpoint == "" || params.Auth == "" || params.P256dh == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "endpoint, auth and p256dh are required")
	}

	deviceID := params.DeviceID
	if deviceID == "" {
		deviceID = DeriveDeviceID(params.Endpoint)
	}

	now := s.now().UTC()
	existing, err := s.repo.GetByEndpoint(ctx, params.Endpoint)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription")
	}

	sub := existing
	if sub == nil {
		sub = &models.PushSubscription{
			ID:        uuid.New(),
			Endpoint:  params.Endpoint,
			CreatedAt: now,
		}
	}
	sub.Auth = params.Auth
	sub.P256dh = params.P256dh
	sub.DeviceID = deviceID
	sub.IsActive = true
	sub.UpdatedAt = now
	if params.UserKey != nil {
		sub.UserKey = params.UserKey
	}

	if err := s.repo.Upsert(ctx, sub); err != nil {
		// Two browsers racing on the same endpoint: the loser hits the
		// unique constraint instead of duplicating the row.
		if db.IsUniqueViolation(err, "ux_push_subscriptions_endpoint") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "subscription already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save subscription")
	}
	return sub, nil
}

func (s *service) Unsubscribe(ctx context.Context, endpoint string) error {
	if endpoint == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "endpoint required")
	}
	affected, err := s.repo.DeleteByEndpoint(ctx, endpoint)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete subscription")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	return nil
}

func (s *service) Exists(ctx context.Context, endpoint string) (bool, error) {
	if endpoint == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "endpoint required")
	}
	sub, err := s.repo.GetByEndpoint(ctx, endpoint)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription")
	}
	return sub != nil && sub.IsActive, nil
}

func (s *service) ListForUsers(ctx context.Context, userKeys []string) ([]models.PushSubscription, error) {
	return s.repo.ListForUsers(ctx, userKeys)
}

func (s *service) ListAllActive(ctx context.Context) ([]models.PushSubscription, error) {
	return s.repo.ListAllActive(ctx)
}

func (s *service) UpdateLastUsed(ctx context.Context, id uuid.UUID) error {
	return s.repo.UpdateLastUsed(ctx, id, s.now().UTC())
}

func (s *service) Remove(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteByID(ctx, id)
}

func (s *service) CountActive(ctx context.Context) (int64, error) {
	return s.repo.CountActive(ctx)
}

// DeriveDeviceID returns a short stable identifier for an endpoint.
func DeriveDeviceID(endpoint string) string {
	digest := sha256.Sum256([]byte(endpoint))
	return hex.EncodeToString(digest[:])[:12]
}
