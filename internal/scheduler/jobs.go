package scheduler

import (
	"context"
	"time"

	"go.uber.org/multierr"

	pkgerrors "github.com/blogwatch/backend/pkg/errors"
	"github.com/blogwatch/backend/pkg/logger"
	"github.com/blogwatch/backend/pkg/db/models"
)

// PollJobName is the registered name of the feed poll job.
const PollJobName = "feed-poll"

// CleanupJobName is the registered name of the retention sweep job.
const CleanupJobName = "retention-cleanup"

type poller interface {
	PollOnce(ctx context.Context) ([]models.Post, error)
}

type notifier interface {
	CreateBulkNotification(ctx context.Context, posts []models.Post) []*models.Notification
}

// PollJobParams configure the feed poll job.
type PollJobParams struct {
	Logger   *logger.Logger
	Ingest   poller
	Fanout   notifier
	Interval time.Duration
}

type pollJob struct {
	logg     *logger.Logger
	ingest   poller
	fanout   notifier
	interval time.Duration
}

// NewPollJob builds the job that pulls the feed and fans new posts out.
func NewPollJob(params PollJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "poll job logger required")
	}
	if params.Ingest == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "poll job ingest service required")
	}
	if params.Fanout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "poll job fanout service required")
	}
	if params.Interval <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "poll job interval must be positive")
	}
	return &pollJob{
		logg:     params.Logger,
		ingest:   params.Ingest,
		fanout:   params.Fanout,
		interval: params.Interval,
	}, nil
}

func (j *pollJob) Name() string { return PollJobName }

func (j *pollJob) Interval() time.Duration { return j.interval }

func (j *pollJob) Run(ctx context.Context) error {
	inserted, err := j.ingest.PollOnce(ctx)
	if err != nil {
		return err
	}
	if len(inserted) == 0 {
		return nil
	}
	notifications := j.fanout.CreateBulkNotification(ctx, inserted)
	j.logg.Info(j.logg.WithFields(ctx, map[string]interface{}{
		"inserted":      len(inserted),
		"notifications": len(notifications),
	}), "poll cycle fanned out")
	return nil
}

type notificationSweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

type sessionSweeper interface {
	DeleteInactiveSince(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupJobParams configure the retention sweep job.
type CleanupJobParams struct {
	Logger           *logger.Logger
	Notifications    notificationSweeper
	Sessions         sessionSweeper
	AuthTokenTTLDays int
	Interval         time.Duration
	Now              func() time.Time
}

type cleanupJob struct {
	logg          *logger.Logger
	notifications notificationSweeper
	sessions      sessionSweeper
	tokenTTL      time.Duration
	interval      time.Duration
	now           func() time.Time
}

// NewCleanupJob builds the job that sweeps expired notifications and stale
// auth sessions.
func NewCleanupJob(params CleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cleanup job logger required")
	}
	if params.Notifications == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cleanup job notifications service required")
	}
	if params.Sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cleanup job auth token store required")
	}
	if params.Interval <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cleanup job interval must be positive")
	}
	ttlDays := params.AuthTokenTTLDays
	if ttlDays <= 0 {
		ttlDays = 30
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &cleanupJob{
		logg:          params.Logger,
		notifications: params.Notifications,
		sessions:      params.Sessions,
		tokenTTL:      time.Duration(ttlDays) * 24 * time.Hour,
		interval:      params.Interval,
		now:           now,
	}, nil
}

func (j *cleanupJob) Name() string { return CleanupJobName }

func (j *cleanupJob) Interval() time.Duration { return j.interval }

func (j *cleanupJob) Run(ctx context.Context) error {
	var errs error

	notifications, err := j.notifications.DeleteExpired(ctx)
	if err != nil {
		errs = multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "expired notification sweep failed"))
	}

	cutoff := j.now().UTC().Add(-j.tokenTTL)
	sessions, err := j.sessions.DeleteInactiveSince(ctx, cutoff)
	if err != nil {
		errs = multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stale session sweep failed"))
	}

	if errs == nil {
		j.logg.Info(j.logg.WithFields(ctx, map[string]interface{}{
			"notifications_deleted": notifications,
			"sessions_deleted":      sessions,
		}), "retention sweep completed")
	}
	return errs
}
