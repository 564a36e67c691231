package push

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blogwatch/backend/internal/settings"
	"github.com/blogwatch/backend/internal/subscriptions"
	"github.com/blogwatch/backend/pkg/config"
	"github.com/blogwatch/backend/pkg/db/models"
	"github.com/blogwatch/backend/pkg/logger"
)

type fakeTransport struct {
	mu       sync.Mutex
	statuses map[string]int
	err      map[string]error
	calls    []string
	payloads [][]byte
}

func (f *fakeTransport) Send(ctx context.Context, sub *models.PushSubscription, payload []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sub.Endpoint)
	f.payloads = append(f.payloads, payload)
	if err, ok := f.err[sub.Endpoint]; ok {
		return 0, err
	}
	if status, ok := f.statuses[sub.Endpoint]; ok {
		return status, nil
	}
	return http.StatusCreated, nil
}

func (f *fakeTransport) endpointCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeSubscriptions struct {
	mu       sync.Mutex
	active   []models.PushSubscription
	removed  []uuid.UUID
	lastUsed []uuid.UUID
}

func (f *fakeSubscriptions) Subscribe(ctx context.Context, params subscriptions.SubscribeParams) (*models.PushSubscription, error) {
	return nil, nil
}
func (f *fakeSubscriptions) Unsubscribe(ctx context.Context, endpoint string) error { return nil }
func (f *fakeSubscriptions) Exists(ctx context.Context, endpoint string) (bool, error) {
	return false, nil
}

func (f *fakeSubscriptions) ListForUsers(ctx context.Context, userKeys []string) ([]models.PushSubscription, error) {
	keys := map[string]bool{}
	for _, k := range userKeys {
		keys[k] = true
	}
	var out []models.PushSubscription
	for _, sub := range f.active {
		if sub.UserKey != nil && keys[*sub.UserKey] {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (f *fakeSubscriptions) ListAllActive(ctx context.Context) ([]models.PushSubscription, error) {
	return append([]models.PushSubscription(nil), f.active...), nil
}

func (f *fakeSubscriptions) UpdateLastUsed(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUsed = append(f.lastUsed, id)
	return nil
}

func (f *fakeSubscriptions) Remove(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeSubscriptions) CountActive(ctx context.Context) (int64, error) {
	return int64(len(f.active)), nil
}

func (f *fakeSubscriptions) removedIDs() []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uuid.UUID(nil), f.removed...)
}

func (f *fakeSubscriptions) lastUsedIDs() []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uuid.UUID(nil), f.lastUsed...)
}

type fakeSettings struct {
	all []settings.Settings
}

func (f *fakeSettings) GetAll(ctx context.Context) ([]settings.Settings, error) {
	return f.all, nil
}

func strPtr(v string) *string { return &v }

func subscription(endpoint, userKey string) models.PushSubscription {
	return models.PushSubscription{
		ID:       uuid.New(),
		Endpoint: endpoint,
		Auth:     "auth",
		P256dh:   "p256",
		UserKey:  strPtr(userKey),
		IsActive: true,
	}
}

func newTestService(t *testing.T, subs *fakeSubscriptions, setts *fakeSettings, transport *fakeTransport) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "push-test", Level: zerolog.ErrorLevel, Output: io.Discard})
	svc, err := NewService(Params{
		Subscriptions: subs,
		Settings:      setts,
		Transport:     transport,
		Logger:        logg,
		Config:        config.PushConfig{WorkerCap: 4},
	})
	require.NoError(t, err)
	return svc
}

func notificationFixture() *models.Notification {
	postID := "abcd1234-1756500000"
	return &models.Notification{
		ID:      uuid.New(),
		PostID:  &postID,
		Title:   "New post",
		Message: "Something happened",
	}
}

func TestDispatchSendsToNamedTargets(t *testing.T) {
	subs := &fakeSubscriptions{active: []models.PushSubscription{
		subscription("https://push.example/a", "push-user-a"),
		subscription("https://push.example/b", "push-user-b"),
	}}
	transport := &fakeTransport{}
	svc := newTestService(t, subs, &fakeSettings{}, transport)

	err := svc.Dispatch(context.Background(), notificationFixture(), []string{"push-user-a"}, "https://blog.example/post")
	require.NoError(t, err)
	svc.Wait()

	calls := transport.endpointCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "https://push.example/a", calls[0])
	assert.Len(t, subs.lastUsedIDs(), 1)

	var decoded payload
	require.NoError(t, json.Unmarshal(transport.payloads[0], &decoded))
	assert.Equal(t, "New post", decoded.Title)
	assert.Equal(t, "https://blog.example/post", decoded.URL)
	assert.Equal(t, "abcd1234-1756500000", decoded.Data.PostID)
}

func TestDispatchNilTargetsMeansEveryone(t *testing.T) {
	subs := &fakeSubscriptions{active: []models.PushSubscription{
		subscription("https://push.example/a", "push-all-a"),
		subscription("https://push.example/b", "push-all-b"),
	}}
	transport := &fakeTransport{}
	svc := newTestService(t, subs, &fakeSettings{}, transport)

	require.NoError(t, svc.Dispatch(context.Background(), notificationFixture(), nil, ""))
	svc.Wait()

	assert.Len(t, transport.endpointCalls(), 2)
}

func TestDispatchSkipsOptedOutUsers(t *testing.T) {
	subs := &fakeSubscriptions{active: []models.PushSubscription{
		subscription("https://push.example/on", "push-opt-on"),
		subscription("https://push.example/off", "push-opt-off"),
	}}
	off := settings.Defaults("push-opt-off")
	off.PushNotifications = false
	setts := &fakeSettings{all: []settings.Settings{settings.Defaults("push-opt-on"), off}}
	transport := &fakeTransport{}
	svc := newTestService(t, subs, setts, transport)

	require.NoError(t, svc.Dispatch(context.Background(), notificationFixture(), nil, ""))
	svc.Wait()

	calls := transport.endpointCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "https://push.example/on", calls[0])
}

func TestPermanentFailurePrunesSubscription(t *testing.T) {
	dead := subscription("https://push.example/gone", "push-prune-user")
	subs := &fakeSubscriptions{active: []models.PushSubscription{dead}}
	transport := &fakeTransport{statuses: map[string]int{dead.Endpoint: http.StatusGone}}
	svc := newTestService(t, subs, &fakeSettings{}, transport)

	require.NoError(t, svc.Dispatch(context.Background(), notificationFixture(), nil, ""))
	svc.Wait()

	removed := subs.removedIDs()
	require.Len(t, removed, 1)
	assert.Equal(t, dead.ID, removed[0])
}

func TestTransientFailureKeepsSubscription(t *testing.T) {
	flaky := subscription("https://push.example/flaky", "push-transient-user")
	subs := &fakeSubscriptions{active: []models.PushSubscription{flaky}}
	transport := &fakeTransport{statuses: map[string]int{flaky.Endpoint: http.StatusBadGateway}}
	svc := newTestService(t, subs, &fakeSettings{}, transport)

	require.NoError(t, svc.Dispatch(context.Background(), notificationFixture(), nil, ""))
	svc.Wait()

	assert.Empty(t, subs.removedIDs())
	assert.Empty(t, subs.lastUsedIDs())
}

func TestInvalidShapeNeverReachesTransport(t *testing.T) {
	broken := models.PushSubscription{ID: uuid.New(), Endpoint: "https://push.example/broken", IsActive: true}
	subs := &fakeSubscriptions{active: []models.PushSubscription{broken}}
	transport := &fakeTransport{}
	svc := newTestService(t, subs, &fakeSettings{}, transport)

	require.NoError(t, svc.Dispatch(context.Background(), notificationFixture(), nil, ""))
	svc.Wait()

	assert.Empty(t, transport.endpointCalls())
	assert.Empty(t, subs.removedIDs())
}

func TestPermanentFailureStatusSet(t *testing.T) {
	for _, status := range []int{400, 404, 410, 413} {
		assert.True(t, isPermanentFailure(status), "status %d", status)
	}
	for _, status := range []int{401, 429, 500, 502} {
		assert.False(t, isPermanentFailure(status), "status %d", status)
	}
}
