package materialize

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-report-store/internal/domain"
	"github.com/couchcryptid/weather-report-store/internal/observability"
)

// --- mocks ---

type mockSource struct {
	mu            sync.Mutex
	storageCalls  int
	extremesCalls int
	storageErrs   []error // consumed one per call
	extremesErr   error
	records       []domain.ExtremeRecord
}

func (m *mockSource) RefreshStorageReport(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storageCalls++
	if len(m.storageErrs) > 0 {
		err := m.storageErrs[0]
		m.storageErrs = m.storageErrs[1:]
		return err
	}
	return nil
}

func (m *mockSource) RefreshExtremes(_ context.Context, stationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extremesCalls++
	return m.extremesErr
}

func (m *mockSource) ExtremeRecords(context.Context, string) ([]domain.ExtremeRecord, error) {
	return m.records, nil
}

func (m *mockSource) calls() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.storageCalls, m.extremesCalls
}

type mockPublisher struct {
	published []domain.ExtremeRecord
	err       error
}

func (p *mockPublisher) PublishExtremes(_ context.Context, records []domain.ExtremeRecord) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, records...)
	return nil
}

func newTestRunner(src Materializer, pub ExtremesPublisher) (*Runner, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	r := New(src, pub, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics)
	r.initialBackoff = time.Millisecond
	r.maxBackoff = 2 * time.Millisecond
	return r, metrics
}

// --- tests ---

func TestRunner_RunOnce_HappyPath(t *testing.T) {
	cold := "Very Cold"
	src := &mockSource{records: []domain.ExtremeRecord{{ID: "WS-UNI001-20240105", ExtremeTemp: &cold}}}
	pub := &mockPublisher{}
	r, metrics := newTestRunner(src, pub)

	require.Error(t, r.CheckReadiness(context.Background()))
	require.NoError(t, r.RunOnce(context.Background()))

	assert.NoError(t, r.CheckReadiness(context.Background()))
	assert.Len(t, pub.published, 1)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ExtremesPublished), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.MaterializationRuns.WithLabelValues(JobStorageReport, "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.MaterializationRuns.WithLabelValues(JobExtremes, "ok")), 0)
}

func TestRunner_RunOnce_WithoutPublisher(t *testing.T) {
	src := &mockSource{records: []domain.ExtremeRecord{{ID: "x"}}}
	r, metrics := newTestRunner(src, nil)

	require.NoError(t, r.RunOnce(context.Background()))
	assert.Zero(t, testutil.ToFloat64(metrics.ExtremesPublished))
}

func TestRunner_RunOnce_RetriesUnavailableStore(t *testing.T) {
	src := &mockSource{storageErrs: []error{domain.ErrStoreUnavailable, domain.ErrStoreUnavailable}}
	r, _ := newTestRunner(src, nil)

	require.NoError(t, r.RunOnce(context.Background()))
	storage, _ := src.calls()
	assert.Equal(t, 3, storage)
}

func TestRunner_RunOnce_GivesUp(t *testing.T) {
	src := &mockSource{storageErrs: []error{
		domain.ErrStoreUnavailable, domain.ErrStoreUnavailable, domain.ErrStoreUnavailable, domain.ErrStoreUnavailable,
	}}
	r, metrics := newTestRunner(src, nil)

	err := r.RunOnce(context.Background())
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	storage, extremes := src.calls()
	assert.Equal(t, 3, storage)
	assert.Equal(t, 1, extremes, "extremes still attempted after storage failure")
	assert.Error(t, r.CheckReadiness(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.MaterializationRuns.WithLabelValues(JobStorageReport, "error")), 0)
}

func TestRunner_RunOnce_AggregationFailureNotRetried(t *testing.T) {
	src := &mockSource{extremesErr: domain.ErrAggregationFailure}
	r, _ := newTestRunner(src, nil)

	err := r.RunOnce(context.Background())
	require.ErrorIs(t, err, domain.ErrAggregationFailure)
	_, extremes := src.calls()
	assert.Equal(t, 1, extremes)
}

func TestRunner_RunOnce_PublishFailure(t *testing.T) {
	src := &mockSource{records: []domain.ExtremeRecord{{ID: "x"}}}
	r, metrics := newTestRunner(src, &mockPublisher{err: errors.New("broker down")})

	err := r.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), JobExtremes)
	assert.Zero(t, testutil.ToFloat64(metrics.ExtremesPublished))
}

func TestRunner_Run_SchedulesImmediatelyAndStops(t *testing.T) {
	src := &mockSource{}
	r, metrics := newTestRunner(src, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, time.Hour) }()

	require.Eventually(t, func() bool {
		storage, _ := src.calls()
		return storage >= 1
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return r.CheckReadiness(context.Background()) == nil }, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Zero(t, testutil.ToFloat64(metrics.SchedulerRunning))
}
