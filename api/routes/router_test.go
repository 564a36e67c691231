package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/blogwatch/backend/internal/notifications"
	"github.com/blogwatch/backend/internal/posts"
	"github.com/blogwatch/backend/internal/scheduler"
	"github.com/blogwatch/backend/internal/settings"
	"github.com/blogwatch/backend/internal/subscriptions"
	"github.com/blogwatch/backend/pkg/config"
	"github.com/blogwatch/backend/pkg/db/models"
	"github.com/blogwatch/backend/pkg/logger"
	"gorm.io/gorm"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubPostsRepo struct{}

func (stubPostsRepo) WithTx(tx *gorm.DB) posts.Repository { return stubPostsRepo{} }

func (stubPostsRepo) InsertNew(ctx context.Context, candidates []posts.Candidate, now time.Time) ([]models.Post, error) {
	return nil, nil
}

func (stubPostsRepo) GetByID(ctx context.Context, id string) (*models.Post, error) {
	return &models.Post{ID: id}, nil
}

func (stubPostsRepo) ListLatest(ctx context.Context, limit int) ([]models.Post, error) {
	return []models.Post{}, nil
}

func (stubPostsRepo) DistinctLocations(ctx context.Context) ([]string, error) {
	return []string{"Budapest"}, nil
}

type stubSettingsService struct{}

func (stubSettingsService) Get(ctx context.Context, userKey string) (settings.Settings, error) {
	return settings.Defaults(userKey), nil
}

func (stubSettingsService) GetAll(ctx context.Context) ([]settings.Settings, error) {
	return nil, nil
}

func (stubSettingsService) Update(ctx context.Context, userKey string, params settings.UpdateParams) (settings.Settings, error) {
	return settings.Defaults(userKey), nil
}

func (stubSettingsService) Keywords(ctx context.Context, userKey string) ([]string, error) {
	return nil, nil
}

func (stubSettingsService) AllKeywords(ctx context.Context) ([]string, error) {
	return []string{"outage"}, nil
}

type stubNotificationsService struct{}

func (stubNotificationsService) Create(ctx context.Context, params notifications.CreateParams) (*models.Notification, error) {
	return nil, nil
}

func (stubNotificationsService) AttachUsers(ctx context.Context, id uuid.UUID, userKeys []string) error {
	return nil
}

func (stubNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{Items: []notifications.UserView{}}, nil
}

func (stubNotificationsService) Count(ctx context.Context, userKey string, unreadOnly bool) (int64, error) {
	return 0, nil
}

func (stubNotificationsService) MarkRead(ctx context.Context, userKey string, id uuid.UUID) error {
	return nil
}

func (stubNotificationsService) MarkAllRead(ctx context.Context, userKey string) (int64, error) {
	return 0, nil
}

func (stubNotificationsService) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

type stubSubscriptionsService struct{}

func (stubSubscriptionsService) Subscribe(ctx context.Context, params subscriptions.SubscribeParams) (*models.PushSubscription, error) {
	return &models.PushSubscription{ID: uuid.New()}, nil
}

func (stubSubscriptionsService) Unsubscribe(ctx context.Context, endpoint string) error {
	return nil
}

func (stubSubscriptionsService) Exists(ctx context.Context, endpoint string) (bool, error) {
	return false, nil
}

func (stubSubscriptionsService) ListForUsers(ctx context.Context, userKeys []string) ([]models.PushSubscription, error) {
	return nil, nil
}

func (stubSubscriptionsService) ListAllActive(ctx context.Context) ([]models.PushSubscription, error) {
	return nil, nil
}

func (stubSubscriptionsService) UpdateLastUsed(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (stubSubscriptionsService) Remove(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (stubSubscriptionsService) CountActive(ctx context.Context) (int64, error) {
	return 0, nil
}

type stubFanoutService struct{}

func (stubFanoutService) CreatePostNotification(ctx context.Context, post *models.Post) *models.Notification {
	return nil
}

func (stubFanoutService) CreateBulkNotification(ctx context.Context, batch []models.Post) []*models.Notification {
	return nil
}

func (stubFanoutService) CreateTestNotification(ctx context.Context) *models.Notification {
	return &models.Notification{ID: uuid.New(), Title: "Test notification"}
}

type stubScheduler struct{}

func (stubScheduler) TriggerNow(name string) error { return nil }

func (stubScheduler) Status() scheduler.Status { return scheduler.Status{Running: true} }

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Env = "test"
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})

	return NewRouter(Deps{
		Config:        cfg,
		Logger:        logg,
		DB:            stubPinger{},
		Posts:         stubPostsRepo{},
		Settings:      stubSettingsService{},
		Notifications: stubNotificationsService{},
		Subscriptions: stubSubscriptionsService{},
		Fanout:        stubFanoutService{},
		Scheduler:     stubScheduler{},
	})
}

func TestHealthEndpointsBypassUserKey(t *testing.T) {
	router := testRouter(t)

	for _, path := range []string{"/health/live", "/health/ready", "/healthz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: unexpected status %d", path, resp.Code)
		}
	}
}

func TestProtectedRoutesRequireUserKey(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
	req.Header.Set("X-User-Key", "router-user")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data settings.Settings `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.UserKey != "router-user" {
		t.Fatalf("unexpected user key %q", envelope.Data.UserKey)
	}
}

func TestPublicRoutesSkipUserKey(t *testing.T) {
	router := testRouter(t)

	for _, path := range []string{"/api/v1/locations", "/api/v1/keywords"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: unexpected status %d", path, resp.Code)
		}
	}
}

func TestPollRoutes(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/poll", nil)
	req.Header.Set("X-User-Key", "router-user")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/poll/status", nil)
	req.Header.Set("X-User-Key", "router-user")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
