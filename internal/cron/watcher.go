package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/guardguys-scheduler/internal/service"
	"github.com/noah-isme/guardguys-scheduler/pkg/jobs"
)

// JobRefreshWeek is the queue job type for a forced week reload.
const JobRefreshWeek = "refresh_week"

type weekFetcher interface {
	WeekEvents(ctx context.Context, anchor time.Time, force bool) (*service.WeekResult, error)
}

// UpdateFunc receives every successfully refreshed week.
type UpdateFunc func(*service.WeekResult)

// WatcherConfig controls the refresh cadence and retry policy.
type WatcherConfig struct {
	Schedule   string
	MaxRetries int
	RetryDelay time.Duration
}

// Watcher periodically reloads the week containing the current day.
type Watcher struct {
	cron     *cron.Cron
	queue    *jobs.Queue
	schedule string
	fetcher  weekFetcher
	onUpdate UpdateFunc
	logger   *zap.Logger
	now      func() time.Time
}

// NewWatcher creates a watcher; call Start to begin refreshing.
func NewWatcher(fetcher weekFetcher, cfg WatcherConfig, onUpdate UpdateFunc, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 30s"
	}
	w := &Watcher{
		cron:     cron.New(),
		schedule: cfg.Schedule,
		fetcher:  fetcher,
		onUpdate: onUpdate,
		logger:   logger,
		now:      time.Now,
	}
	w.queue = jobs.NewQueue("week-refresh", w.handle, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 1,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return w
}

// Start registers the refresh job and performs an initial refresh. The
// watcher stops when ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if _, err := w.cron.AddFunc(w.schedule, w.Trigger); err != nil {
		return fmt.Errorf("invalid watch schedule %q: %w", w.schedule, err)
	}
	w.queue.Start(ctx)
	w.cron.Start()
	w.Trigger()

	go func() {
		<-ctx.Done()
		w.Stop()
	}()
	w.logger.Info("week watcher started", zap.String("schedule", w.schedule))
	return nil
}

// Stop halts the schedule and waits for an in-flight refresh.
func (w *Watcher) Stop() {
	<-w.cron.Stop().Done()
	w.queue.Stop()
}

// Trigger queues a refresh of the current week. A tick that arrives while a
// refresh is still pending is dropped.
func (w *Watcher) Trigger() {
	err := w.queue.TryEnqueue(jobs.Job{Type: JobRefreshWeek, Anchor: w.now()})
	if errors.Is(err, jobs.ErrQueueFull) {
		w.logger.Debug("week refresh already pending")
		return
	}
	if err != nil {
		w.logger.Warn("week refresh not queued", zap.Error(err))
	}
}

func (w *Watcher) handle(ctx context.Context, job jobs.Job) error {
	week, err := w.fetcher.WeekEvents(ctx, job.Anchor, true)
	if err != nil {
		return err
	}
	w.logger.Debug("week refreshed", zap.String("job_id", job.ID), zap.Int("events", len(week.Events)))
	if w.onUpdate != nil {
		w.onUpdate(week)
	}
	return nil
}
