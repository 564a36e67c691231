// Package push delivers persisted notifications to browser push endpoints.
// Delivery is best-effort: a batch runs on a small bounded worker pool,
// permanent endpoint failures prune the subscription row, transient failures
// are logged and kept for the next batch.
package push

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"go.uber.org/multierr"

	"github.com/blogwatch/backend/internal/settings"
	"github.com/blogwatch/backend/internal/subscriptions"
	"github.com/blogwatch/backend/pkg/config"
	"github.com/blogwatch/backend/pkg/db/models"
	pkgerrors "github.com/blogwatch/backend/pkg/errors"
	"github.com/blogwatch/backend/pkg/logger"
	"github.com/blogwatch/backend/pkg/metrics"
)

// Status codes that mean the endpoint will never accept this subscription
// again, so the row is pruned.
func isPermanentFailure(status int) bool {
	switch status {
	case http.StatusBadRequest,
		http.StatusNotFound,
		http.StatusGone,
		http.StatusRequestEntityTooLarge:
		return true
	}
	return false
}

type settingsReader interface {
	GetAll(ctx context.Context) ([]settings.Settings, error)
}

// Service dispatches notifications to subscribed browsers.
type Service interface {
	// Dispatch fans the notification out to the target users' subscriptions.
	// A nil targetUsers means every active subscription. The batch drains in
	// the background; Dispatch returns once it is enqueued.
	Dispatch(ctx context.Context, notification *models.Notification, targetUsers []string, contextURL string) error

	// Wait blocks until all in-flight batches have drained.
	Wait()
}

type service struct {
	subs      subscriptions.Service
	settings  settingsReader
	transport Transport
	logger    *logger.Logger
	metrics   *metrics.PushMetrics
	workerCap int
	wg        sync.WaitGroup
}

// Params collects the dependencies for NewService.
type Params struct {
	Subscriptions subscriptions.Service
	Settings      settingsReader
	Transport     Transport
	Logger        *logger.Logger
	Metrics       *metrics.PushMetrics
	Config        config.PushConfig
}

// NewService validates the params and returns a push service.
func NewService(params Params) (Service, error) {
	if params.Subscriptions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "push subscriptions service required")
	}
	if params.Settings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "push settings reader required")
	}
	if params.Transport == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "push transport required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "push logger required")
	}
	workerCap := params.Config.WorkerCap
	if workerCap <= 0 {
		workerCap = 10
	}
	return &service{
		subs:      params.Subscriptions,
		settings:  params.Settings,
		transport: params.Transport,
		logger:    params.Logger,
		metrics:   params.Metrics,
		workerCap: workerCap,
	}, nil
}

type payload struct {
	Title string      `json:"title"`
	Body  string      `json:"body"`
	Icon  string      `json:"icon"`
	URL   string      `json:"url"`
	Data  payloadData `json:"data"`
}

type payloadData struct {
	PostURL string `json:"post_url"`
	PostID  string `json:"post_id"`
}

func (s *service) Dispatch(ctx context.Context, notification *models.Notification, targetUsers []string, contextURL string) error {
	if notification == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification required")
	}

	targets, err := s.resolveTargets(ctx, targetUsers)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "resolving push targets")
	}
	if len(targets) == 0 {
		s.logger.Info(ctx, "push dispatch: no eligible subscriptions")
		return nil
	}

	body, err := s.encodePayload(notification, contextURL)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "encoding push payload")
	}

	batchCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runBatch(batchCtx, targets, body)
	}()
	return nil
}

// Wait blocks until all in-flight batches drain. Shutdown and tests use it.
func (s *service) Wait() {
	s.wg.Wait()
}

// resolveTargets loads the candidate subscriptions and drops users who have
// push notifications switched off.
func (s *service) resolveTargets(ctx context.Context, targetUsers []string) ([]models.PushSubscription, error) {
	var (
		subs []models.PushSubscription
		err  error
	)
	if targetUsers == nil {
		subs, err = s.subs.ListAllActive(ctx)
	} else {
		subs, err = s.subs.ListForUsers(ctx, targetUsers)
	}
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, nil
	}

	all, err := s.settings.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	optedOut := map[string]bool{}
	for _, st := range all {
		if !st.PushNotifications {
			optedOut[st.UserKey] = true
		}
	}

	eligible := subs[:0]
	for _, sub := range subs {
		if sub.UserKey != nil && optedOut[*sub.UserKey] {
			continue
		}
		eligible = append(eligible, sub)
	}
	return eligible, nil
}

func (s *service) encodePayload(notification *models.Notification, contextURL string) ([]byte, error) {
	icon := "/static/icons/notification.png"
	if notification.ImageURL != nil && *notification.ImageURL != "" {
		icon = *notification.ImageURL
	}
	postID := ""
	if notification.PostID != nil {
		postID = *notification.PostID
	}
	return json.Marshal(payload{
		Title: notification.Title,
		Body:  notification.Message,
		Icon:  icon,
		URL:   contextURL,
		Data: payloadData{
			PostURL: contextURL,
			PostID:  postID,
		},
	})
}

// runBatch drains the targets through a bounded pool and logs the summary.
func (s *service) runBatch(ctx context.Context, targets []models.PushSubscription, body []byte) {
	workers := s.workerCap
	if len(targets) < workers {
		workers = len(targets)
	}

	queue := make(chan models.PushSubscription, len(targets))
	for _, target := range targets {
		queue <- target
	}
	close(queue)

	var (
		mu       sync.Mutex
		sent     int
		failed   int
		failures error
	)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for target := range queue {
				ok, err := s.sendOne(ctx, &target, body)
				mu.Lock()
				if ok {
					sent++
				} else {
					failed++
					failures = multierr.Append(failures, err)
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	ctx = s.logger.WithFields(ctx, map[string]any{
		"targets": len(targets),
		"sent":    sent,
		"failed":  failed,
	})
	if failures != nil {
		s.logger.Error(ctx, "push batch finished with failures", failures)
		return
	}
	s.logger.Info(ctx, "push batch finished")
}

// sendOne delivers to a single subscription. It reports success and never
// panics; every failure path is classified and handled here.
func (s *service) sendOne(ctx context.Context, sub *models.PushSubscription, body []byte) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = pkgerrors.New(pkgerrors.CodeDelivery, "push send panicked")
			s.logger.Error(ctx, "push send panicked", err)
		}
	}()

	if sub.Endpoint == "" || sub.Auth == "" || sub.P256dh == "" {
		s.metrics.IncAttempt("invalid")
		return false, pkgerrors.New(pkgerrors.CodeValidation, "subscription missing endpoint or keys")
	}

	status, err := s.transport.Send(ctx, sub, body)
	if err != nil {
		s.metrics.IncAttempt("transient")
		s.logger.Warn(s.logger.WithField(ctx, "endpoint", truncateEndpoint(sub.Endpoint)), "push send failed, keeping subscription")
		return false, err
	}

	switch {
	case status >= 200 && status < 300:
		s.metrics.IncAttempt("sent")
		if err := s.subs.UpdateLastUsed(ctx, sub.ID); err != nil {
			s.logger.Warn(ctx, "failed to bump subscription last_used")
		}
		return true, nil

	case isPermanentFailure(status):
		s.metrics.IncAttempt("permanent")
		if err := s.subs.Remove(ctx, sub.ID); err != nil {
			s.logger.Error(ctx, "failed to prune dead subscription", err)
		} else {
			s.metrics.IncPruned()
		}
		return false, pkgerrors.New(pkgerrors.CodeDelivery, "endpoint rejected subscription permanently")

	default:
		s.metrics.IncAttempt("transient")
		s.logger.Warn(s.logger.WithField(ctx, "status", status), "push endpoint returned transient failure")
		return false, pkgerrors.New(pkgerrors.CodeDelivery, "push endpoint transient failure")
	}
}

func truncateEndpoint(endpoint string) string {
	if len(endpoint) > 50 {
		return endpoint[:50]
	}
	return endpoint
}
