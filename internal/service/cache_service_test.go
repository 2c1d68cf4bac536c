package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingCacheRepo struct{}

func (failingCacheRepo) Get(context.Context, string, interface{}) error { return assert.AnError }
func (failingCacheRepo) Set(context.Context, string, interface{}, time.Duration) error {
	return assert.AnError
}
func (failingCacheRepo) Ping(context.Context) error { return assert.AnError }

func TestCacheServiceRecordsHitsAndMisses(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewCacheService(&stubCacheRepo{}, metrics, time.Minute, zap.NewNop(), true)
	ctx := context.Background()

	var dest map[string]int
	hit, err := svc.Get(ctx, "analytics:k", &dest)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "analytics:k", map[string]int{"a": 1}, 0))
	hit, err = svc.Get(ctx, "analytics:k", &dest)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, dest["a"])

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
	assert.InDelta(t, 0.5, snapshot.CacheHitRatio, 1e-9)
}

func TestCacheServiceDisabled(t *testing.T) {
	svc := NewCacheService(failingCacheRepo{}, nil, 0, nil, false)
	ctx := context.Background()

	var dest string
	hit, err := svc.Get(ctx, "key", &dest)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, svc.Set(ctx, "key", "value", 0))
	assert.NoError(t, svc.Ping(ctx))
}

func TestCacheServiceSurfacesBackendErrors(t *testing.T) {
	svc := NewCacheService(failingCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	ctx := context.Background()

	var dest string
	_, err := svc.Get(ctx, "key", &dest)
	assert.ErrorIs(t, err, assert.AnError)
	assert.ErrorIs(t, svc.Ping(ctx), assert.AnError)
}

func TestAnalyticsServiceToleratesCacheFailure(t *testing.T) {
	store := newFixtureStore()
	cacheSvc := NewCacheService(failingCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	svc := NewAnalyticsService(store, cacheSvc, nil, zap.NewNop(), AnalyticsConfig{})

	report, hit, err := svc.ClassExam(context.Background(), ClassExamQuery{ClassID: 1, ExamID: 1})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NotNil(t, report)
}

func TestMetricsServiceReportCounters(t *testing.T) {
	metrics := NewMetricsService()
	metrics.ObserveReport("class_exam", 5*time.Millisecond)
	metrics.ObserveReport("class_exam", 3*time.Millisecond)
	metrics.ObserveReport("student", time.Millisecond)
	metrics.RecordReportNotFound("student")

	snapshot := metrics.Snapshot()
	assert.Equal(t, map[string]uint64{"class_exam": 2, "student": 1}, snapshot.ReportsBuilt)
	assert.Equal(t, uint64(1), snapshot.ReportsNotFound)
}
