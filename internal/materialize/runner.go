// Package materialize keeps the derived collections (storage report and
// weather extremes) fresh on a schedule and publishes extremes downstream.
package materialize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/go-co-op/gocron"

	"github.com/couchcryptid/weather-report-store/internal/domain"
	"github.com/couchcryptid/weather-report-store/internal/observability"
)

// Job names used in logs and metrics.
const (
	JobStorageReport = "storage_report"
	JobExtremes      = "extremes"
)

// Materializer rebuilds the derived collections and reads extremes back.
type Materializer interface {
	RefreshStorageReport(ctx context.Context) error
	RefreshExtremes(ctx context.Context, stationID string) error
	ExtremeRecords(ctx context.Context, stationID string) ([]domain.ExtremeRecord, error)
}

// ExtremesPublisher forwards classified extremes to a sink.
type ExtremesPublisher interface {
	PublishExtremes(ctx context.Context, records []domain.ExtremeRecord) error
}

// Runner executes materialization runs one at a time. Derived collections are
// replaced or upserted wholesale, so two runs must never overlap.
type Runner struct {
	source    Materializer
	publisher ExtremesPublisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	mu        sync.Mutex

	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// New creates a Runner. publisher may be nil to skip publishing.
func New(source Materializer, publisher ExtremesPublisher, logger *slog.Logger, metrics *observability.Metrics) *Runner {
	return &Runner{
		source:         source,
		publisher:      publisher,
		logger:         logger,
		metrics:        metrics,
		maxAttempts:    3,
		initialBackoff: 200 * time.Millisecond,
		maxBackoff:     5 * time.Second,
	}
}

// CheckReadiness returns nil once one full run has succeeded.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("derived collections have not been materialized yet")
	}
	return nil
}

// RunOnce refreshes the storage report, then the extremes, publishing the
// extremes when a publisher is configured. Both jobs are attempted; their
// errors are joined.
func (r *Runner) RunOnce(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	storageErr := r.runJob(ctx, JobStorageReport, r.source.RefreshStorageReport)
	extremesErr := r.runJob(ctx, JobExtremes, r.refreshExtremes)

	err := errors.Join(storageErr, extremesErr)
	if err == nil {
		r.ready.Store(true)
	}
	return err
}

func (r *Runner) refreshExtremes(ctx context.Context) error {
	if err := r.source.RefreshExtremes(ctx, ""); err != nil {
		return err
	}
	if r.publisher == nil {
		return nil
	}
	records, err := r.source.ExtremeRecords(ctx, "")
	if err != nil {
		return fmt.Errorf("read extremes: %w", err)
	}
	if err := r.publisher.PublishExtremes(ctx, records); err != nil {
		return err
	}
	r.metrics.ExtremesPublished.Add(float64(len(records)))
	return nil
}

// runJob runs one job, retrying while the store is unavailable.
func (r *Runner) runJob(ctx context.Context, name string, job func(context.Context) error) error {
	start := time.Now()
	backoff := r.initialBackoff

	var err error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err = job(ctx)
		if err == nil || !errors.Is(err, domain.ErrStoreUnavailable) || attempt == r.maxAttempts {
			break
		}
		r.logger.Warn("materialization failed, retrying", "job", name, "attempt", attempt, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			err = errors.Join(err, ctx.Err())
			break
		}
		backoff = retry.NextBackoff(backoff, r.maxBackoff)
	}

	r.metrics.MaterializationDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		r.metrics.MaterializationRuns.WithLabelValues(name, "error").Inc()
		r.logger.Error("materialization failed", "job", name, "error", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	r.metrics.MaterializationRuns.WithLabelValues(name, "ok").Inc()
	r.logger.Info("materialization complete", "job", name, "duration", time.Since(start))
	return nil
}

// Run schedules RunOnce every interval, starting immediately, until ctx is
// cancelled. A run still in progress when the next tick fires is not doubled.
func (r *Runner) Run(ctx context.Context, interval time.Duration) error {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	_, err := s.Every(interval).Do(func() {
		if ctx.Err() != nil {
			return
		}
		if err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			r.logger.Warn("scheduled materialization incomplete", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule materialization: %w", err)
	}

	r.logger.Info("materialization scheduler started", "interval", interval)
	s.StartAsync()
	r.metrics.SchedulerRunning.Set(1)
	defer r.metrics.SchedulerRunning.Set(0)

	<-ctx.Done()
	r.logger.Info("materialization scheduler stopping", "reason", ctx.Err())
	s.Stop()
	return nil
}
