// Package fanout decides who gets notified about an ingested post and kicks
// off delivery. Callers never see an error from it: a post that fails to fan
// out still yields a notification value the caller can show, and the failure
// is logged.
package fanout

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blogwatch/backend/internal/notifications"
	"github.com/blogwatch/backend/internal/push"
	"github.com/blogwatch/backend/internal/settings"
	"github.com/blogwatch/backend/internal/subscriptions"
	"github.com/blogwatch/backend/pkg/db/models"
	pkgerrors "github.com/blogwatch/backend/pkg/errors"
	"github.com/blogwatch/backend/pkg/logger"
)

const (
	urgentPrefix      = "🚨 URGENT: "
	defaultMessageMax = 75
	ellipsis          = "..."

	testTitle   = "Test notification"
	testMessage = "Push delivery is working. You will be notified about new posts."
)

// Service turns ingested posts into notifications and dispatches them.
type Service interface {
	CreatePostNotification(ctx context.Context, post *models.Post) *models.Notification
	CreateBulkNotification(ctx context.Context, posts []models.Post) []*models.Notification
	CreateTestNotification(ctx context.Context) *models.Notification
}

type service struct {
	notifications notifications.Service
	subscriptions subscriptions.Service
	settings      settings.Service
	push          push.Service
	logger        *logger.Logger
	messageMax    int
	now           func() time.Time
}

// Params collects the dependencies for NewService.
type Params struct {
	Notifications notifications.Service
	Subscriptions subscriptions.Service
	Settings      settings.Service
	Push          push.Service
	Logger        *logger.Logger
	MessageMax    int
	Now           func() time.Time
}

// NewService validates the params and returns a fanout service.
func NewService(params Params) (Service, error) {
	if params.Notifications == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fanout notifications service required")
	}
	if params.Subscriptions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fanout subscriptions service required")
	}
	if params.Settings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fanout settings service required")
	}
	if params.Push == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fanout push service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fanout logger required")
	}
	messageMax := params.MessageMax
	if messageMax <= 0 {
		messageMax = defaultMessageMax
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		notifications: params.Notifications,
		subscriptions: params.Subscriptions,
		settings:      params.Settings,
		push:          params.Push,
		logger:        params.Logger,
		messageMax:    messageMax,
		now:           now,
	}, nil
}

// CreatePostNotification builds, persists and dispatches the notification for
// one post. It never returns nil and never returns an error: when
// persistence fails the constructed (unpersisted) notification comes back so
// the poll cycle can continue.
func (s *service) CreatePostNotification(ctx context.Context, post *models.Post) *models.Notification {
	now := s.now().UTC()
	notification := s.build(post, now)

	targets, err := s.resolveTargets(ctx, post)
	if err != nil {
		s.logger.Error(ctx, "fanout target resolution failed", err)
		return notification
	}

	if len(targets.userKeys) == 0 {
		// Nobody to deliver to: keep the notification for the history view
		// but skip user rows and push entirely.
		persisted, err := s.notifications.Create(ctx, s.createParams(post, notification, nil))
		if err != nil {
			s.logger.Error(ctx, "fanout notification persist failed", err)
			return notification
		}
		return persisted
	}

	persisted, err := s.notifications.Create(ctx, s.createParams(post, notification, targets.userKeys))
	if err != nil {
		s.logger.Error(ctx, "fanout notification persist failed", err)
		return notification
	}

	contextURL := ""
	if post.Link != nil {
		contextURL = *post.Link
	}
	dispatchTargets := targets.userKeys
	if targets.all {
		dispatchTargets = nil
	}
	if err := s.push.Dispatch(ctx, persisted, dispatchTargets, contextURL); err != nil {
		s.logger.Error(ctx, "fanout push dispatch failed", err)
	}
	return persisted
}

// CreateBulkNotification fans out each post independently; one post's failure
// never blocks the rest.
func (s *service) CreateBulkNotification(ctx context.Context, posts []models.Post) []*models.Notification {
	out := make([]*models.Notification, 0, len(posts))
	for i := range posts {
		out = append(out, s.CreatePostNotification(ctx, &posts[i]))
	}
	return out
}

// CreateTestNotification sends the fixed test payload to every active
// subscription without attaching user rows.
func (s *service) CreateTestNotification(ctx context.Context) *models.Notification {
	now := s.now().UTC()
	notification := &models.Notification{
		ID:        uuid.New(),
		Title:     testTitle,
		Message:   testMessage,
		CreatedAt: now,
	}

	persisted, err := s.notifications.Create(ctx, notifications.CreateParams{
		Title:   notification.Title,
		Message: notification.Message,
	})
	if err != nil {
		s.logger.Error(ctx, "test notification persist failed", err)
	} else {
		notification = persisted
	}

	if err := s.push.Dispatch(ctx, notification, nil, ""); err != nil {
		s.logger.Error(ctx, "test notification dispatch failed", err)
	}
	return notification
}

func (s *service) build(post *models.Post, now time.Time) *models.Notification {
	title := post.Title
	if post.IsUrgent {
		title = urgentPrefix + title
	}
	return &models.Notification{
		ID:        uuid.New(),
		PostID:    &post.ID,
		Title:     title,
		Message:   truncate(post.Content, s.messageMax),
		ImageURL:  post.ImageURL,
		IsUrgent:  post.IsUrgent,
		CreatedAt: now,
	}
}

func (s *service) createParams(post *models.Post, notification *models.Notification, userKeys []string) notifications.CreateParams {
	return notifications.CreateParams{
		PostID:   &post.ID,
		Title:    notification.Title,
		Message:  notification.Message,
		ImageURL: post.ImageURL,
		IsUrgent: post.IsUrgent,
		UserKeys: userKeys,
	}
}

type targetSet struct {
	userKeys []string
	// all marks an urgent broadcast: push goes to every active subscription
	// instead of a named list.
	all bool
}

// resolveTargets applies the decision rules: urgent posts go to everyone we
// know about; normal posts go through the location filter, then the keyword
// filter.
func (s *service) resolveTargets(ctx context.Context, post *models.Post) (targetSet, error) {
	allSettings, err := s.settings.GetAll(ctx)
	if err != nil {
		return targetSet{}, err
	}
	subs, err := s.subscriptions.ListAllActive(ctx)
	if err != nil {
		return targetSet{}, err
	}

	// Known users: anyone holding settings or an active subscription.
	settingsByUser := map[string]settings.Settings{}
	known := map[string]bool{}
	for _, st := range allSettings {
		settingsByUser[st.UserKey] = st
		known[st.UserKey] = true
	}
	for _, sub := range subs {
		if sub.UserKey != nil && *sub.UserKey != "" {
			known[*sub.UserKey] = true
		}
	}

	if post.IsUrgent {
		return targetSet{userKeys: sortedKeys(known), all: true}, nil
	}

	var userKeys []string
	for _, userKey := range sortedKeys(known) {
		st, ok := settingsByUser[userKey]
		if !ok {
			st = settings.Defaults(userKey)
		}
		if !matchesLocation(post, st) {
			continue
		}
		if !matchesKeywords(post, st) {
			continue
		}
		userKeys = append(userKeys, userKey)
	}
	return targetSet{userKeys: userKeys}, nil
}

// matchesLocation applies the location filter. A disabled filter, an empty
// location list, or a post without a location all pass.
func matchesLocation(post *models.Post, st settings.Settings) bool {
	if !st.LocationFilterEnabled || len(st.Locations) == 0 {
		return true
	}
	if post.Location == "" {
		return true
	}
	for _, location := range st.Locations {
		if strings.EqualFold(location, post.Location) {
			return true
		}
	}
	return false
}

// matchesKeywords applies the keyword filter against the post's title and
// content. A disabled filter or an empty keyword list passes.
func matchesKeywords(post *models.Post, st settings.Settings) bool {
	if !st.KeywordFilterEnabled || len(st.Keywords) == 0 {
		return true
	}
	haystack := strings.ToLower(post.Title + " " + post.Content)
	for _, keyword := range st.Keywords {
		if keyword != "" && strings.Contains(haystack, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

func truncate(message string, max int) string {
	runes := []rune(message)
	if len(runes) <= max {
		return message
	}
	return string(runes[:max]) + ellipsis
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
