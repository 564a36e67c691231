// Package ingest runs one poll cycle: rate-limit, fetch, parse, dedup,
// persist. The scheduler and the manual-poll endpoint both call PollOnce; a
// cycle already in flight makes the second caller return immediately.
package ingest

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/blogwatch/backend/internal/feed"
	"github.com/blogwatch/backend/internal/posts"
	"github.com/blogwatch/backend/pkg/db/models"
	pkgerrors "github.com/blogwatch/backend/pkg/errors"
	"github.com/blogwatch/backend/pkg/logger"
	"github.com/blogwatch/backend/pkg/ratelimit"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// StatusSink receives poll lifecycle events. The scheduler implements it to
// keep its status snapshot current.
type StatusSink interface {
	PollStarted(at time.Time)
	PollFinished(at time.Time, inserted int, err error)
}

// Service coordinates one ingestion cycle.
type Service interface {
	PollOnce(ctx context.Context) ([]models.Post, error)
	InFlight() bool
}

type service struct {
	source  feed.Source
	repo    posts.Repository
	tx      txRunner
	limiter *ratelimit.Limiter
	sink    StatusSink
	logger  *logger.Logger
	now     func() time.Time

	mu       sync.Mutex
	inFlight bool
}

// Params collects the dependencies for NewService.
type Params struct {
	Source  feed.Source
	Repo    posts.Repository
	Tx      txRunner
	Limiter *ratelimit.Limiter
	Sink    StatusSink
	Logger  *logger.Logger
	Now     func() time.Time
}

// NewService validates the params and returns an ingest service.
func NewService(params Params) (Service, error) {
	if params.Source == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ingest source required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ingest posts repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ingest tx runner required")
	}
	if params.Limiter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ingest rate limiter required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ingest logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		source:  params.Source,
		repo:    params.Repo,
		tx:      params.Tx,
		limiter: params.Limiter,
		sink:    params.Sink,
		logger:  params.Logger,
		now:     now,
	}, nil
}

// PollOnce runs a single cycle and returns the posts inserted by it, in feed
// order. A concurrent call while a cycle is running returns an empty slice
// and no error.
func (s *service) PollOnce(ctx context.Context) ([]models.Post, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		s.logger.Info(ctx, "poll already in flight, skipping")
		return []models.Post{}, nil
	}
	s.inFlight = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	started := s.now()
	if s.sink != nil {
		s.sink.PollStarted(started)
	}

	inserted, err := s.pollLocked(ctx)
	if s.sink != nil {
		s.sink.PollFinished(s.now(), len(inserted), err)
	}
	return inserted, err
}

func (s *service) pollLocked(ctx context.Context) ([]models.Post, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	candidates, err := s.source.FetchPosts(ctx)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		s.logger.Info(ctx, "feed returned no candidates")
		return []models.Post{}, nil
	}

	var inserted []models.Post
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		inserted, txErr = s.repo.WithTx(tx).InsertNew(ctx, candidates, s.now().UTC())
		return txErr
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeIngestion, err, "persisting feed candidates")
	}

	ctx = s.logger.WithFields(ctx, map[string]any{
		"candidates": len(candidates),
		"inserted":   len(inserted),
	})
	s.logger.Info(ctx, "poll cycle completed")
	return inserted, nil
}

// InFlight reports whether a poll cycle is currently running.
func (s *service) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}
