// Package scheduler drives the polling and cleanup jobs. Every job gets its
// own goroutine and timer, so a slow poll never delays the cleanup cadence.
package scheduler

import (
	"context"
	"sync"
	"time"

	pkgerrors "github.com/blogwatch/backend/pkg/errors"
	"github.com/blogwatch/backend/pkg/logger"
	"github.com/blogwatch/backend/pkg/metrics"
)

const minMisfireGrace = time.Minute

// misfireGrace bounds how late a tick may fire and still run. Waking beyond
// the grace (laptop sleep, VM pause) skips that run instead of executing a
// burst of stale ticks.
func misfireGrace(interval time.Duration) time.Duration {
	grace := interval / 2
	if grace < minMisfireGrace {
		grace = minMisfireGrace
	}
	return grace
}

// Status is a point-in-time snapshot of the scheduler.
type Status struct {
	Running      bool       `json:"running"`
	IsPolling    bool       `json:"is_polling"`
	LastPollTime *time.Time `json:"last_poll_time,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
}

// ServiceParams configure the scheduler.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Metrics  *metrics.JobMetrics
	Now      func() time.Time
}

// Service runs registered jobs until stopped.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	metrics  *metrics.JobMetrics
	now      func() time.Time

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	triggers map[string]chan struct{}

	statusMu     sync.Mutex
	isPolling    bool
	lastPollTime *time.Time
	lastError    error
}

// NewService builds a scheduler service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "scheduler logger required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		metrics:  params.Metrics,
		now:      now,
	}, nil
}

// Register adds a job. Jobs registered after Start are picked up on the
// next Start.
func (s *Service) Register(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry.Register(job)
}

// Start launches one goroutine per registered job. Starting a running
// scheduler warns and leaves the current loops untouched.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.logg.Warn(ctx, "scheduler already running, start ignored")
		return nil
	}

	s.stopCh = make(chan struct{})
	s.triggers = map[string]chan struct{}{}
	for _, job := range s.registry.Jobs() {
		trigger := make(chan struct{}, 1)
		s.triggers[job.Name()] = trigger
		go s.jobLoop(ctx, job, trigger, s.stopCh)
	}
	s.running = true
	s.logg.Info(ctx, "scheduler started")
	return nil
}

// Stop cancels the job loops. An in-flight run finishes on its own time;
// Stop does not wait for it.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
	s.logg.Info(ctx, "scheduler stopped")
}

// TriggerNow runs the named job immediately and pushes its next scheduled
// fire a full interval out.
func (s *Service) TriggerNow(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "scheduler is not running")
	}
	trigger, ok := s.triggers[name]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no such job")
	}
	select {
	case trigger <- struct{}{}:
	default:
		// A trigger is already pending; collapsing repeats is fine.
	}
	return nil
}

// Status returns the current snapshot.
func (s *Service) Status() Status {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	status := Status{
		Running:      running,
		IsPolling:    s.isPolling,
		LastPollTime: s.lastPollTime,
	}
	if s.lastError != nil {
		status.LastError = s.lastError.Error()
	}
	return status
}

// PollStarted implements ingest.StatusSink.
func (s *Service) PollStarted(at time.Time) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.isPolling = true
}

// PollFinished implements ingest.StatusSink.
func (s *Service) PollFinished(at time.Time, inserted int, err error) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.isPolling = false
	s.lastPollTime = &at
	s.lastError = err
}

func (s *Service) jobLoop(ctx context.Context, job Job, trigger chan struct{}, stop <-chan struct{}) {
	interval := job.Interval()
	grace := misfireGrace(interval)
	timer := time.NewTimer(interval)
	defer timer.Stop()
	scheduled := s.now().Add(interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-trigger:
			s.runJob(ctx, job)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(interval)
			scheduled = s.now().Add(interval)
		case <-timer.C:
			now := s.now()
			if now.After(scheduled.Add(grace)) {
				jobCtx := s.logg.WithJob(ctx, job.Name())
				jobCtx = s.logg.WithField(jobCtx, "late_by", now.Sub(scheduled).String())
				s.logg.Warn(jobCtx, "tick fired beyond misfire grace, skipping run")
			} else {
				s.runJob(ctx, job)
			}
			timer.Reset(interval)
			scheduled = s.now().Add(interval)
		}
	}
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithJob(ctx, job.Name())
	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(job.Name(), duration)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.metrics.IncFailure(job.Name())
		return
	}
	s.logg.Info(jobCtx, "job completed")
	s.metrics.IncSuccess(job.Name())
}
