// Package scheduler runs the daily rollup refresh.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/zeromicro/go-zero/core/logx"

	"stockpipe/internal/metrics"
	"stockpipe/internal/rollup"
)

// Refresher is satisfied by *rollup.Engine.
type Refresher interface {
	RefreshAll(ctx context.Context, asOf time.Time, opts ...rollup.RefreshOption) []rollup.Result
}

// Config controls when the refresh fires.
type Config struct {
	Enabled  bool   `json:",default=true"`
	At       string `json:",default=00:00"`
	Timezone string `json:",default=UTC"`
}

// Scheduler fires one refresh per day. Runs never overlap.
type Scheduler struct {
	cron      *gocron.Scheduler
	job       *gocron.Job
	refresher Refresher
	metrics   *metrics.Metrics
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
}

// New builds a stopped scheduler.
func New(cfg Config, refresher Refresher, m *metrics.Metrics) (*Scheduler, error) {
	if refresher == nil {
		return nil, errors.New("scheduler: nil refresher")
	}
	tz := cfg.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("scheduler: timezone %q: %w", tz, err)
	}
	at := cfg.At
	if at == "" {
		at = "00:00"
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:      gocron.NewScheduler(loc),
		refresher: refresher,
		metrics:   m,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
	}
	s.cron.SingletonModeAll()
	job, err := s.cron.Every(1).Day().At(at).Do(s.tick)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("scheduler: schedule at %q: %w", at, err)
	}
	s.job = job
	return s, nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.StartAsync()
	logx.Infof("scheduler: started next_run=%s", s.NextRun().Format(time.RFC3339))
}

// Stop halts the scheduler and cancels any refresh in flight.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
	if s.started {
		s.cron.Stop()
		s.started = false
		logx.Info("scheduler: stopped")
	}
}

// NextRun reports when the refresh fires next.
func (s *Scheduler) NextRun() time.Time {
	if s.job == nil {
		return time.Time{}
	}
	return s.job.NextRun()
}

func (s *Scheduler) tick() {
	if err := s.RunOnce(s.ctx); err != nil {
		logx.WithContext(s.ctx).Errorf("scheduler: refresh err=%v", err)
	}
}

// RunOnce performs a single refresh as of now. A panic in the refresh is
// recovered and returned as an error.
func (s *Scheduler) RunOnce(ctx context.Context) (err error) {
	start := s.now()
	defer func() {
		if r := recover(); r != nil {
			logx.WithContext(ctx).Errorf("scheduler: refresh panic=%v\n%s", r, debug.Stack())
			err = fmt.Errorf("scheduler: refresh panic: %v", r)
		}
		s.metrics.Job("refresh", s.now().Sub(start), err)
	}()

	results := s.refresher.RefreshAll(ctx, start)
	failed := rollup.Failed(results)
	if len(failed) == 0 {
		logx.WithContext(ctx).Infof("scheduler: refresh done views=%d", len(results))
		return nil
	}
	errs := make([]error, 0, len(failed))
	for _, r := range failed {
		errs = append(errs, fmt.Errorf("view=%s: %w", r.View, r.Err))
	}
	return errors.Join(errs...)
}
