package stats

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/wallpaper-backend/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GroupUsersByEffectivePlan(ctx context.Context, now, periodStart time.Time) ([]models.PlanCount, error) {
	args := m.Called(ctx, now, periodStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PlanCount), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(ctx, key, result)
	if fill, ok := args.Get(2).(models.Stats); ok {
		*(result.(*models.Stats)) = fill
	}
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

var (
	now         = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	periodStart = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	discard     = slog.New(slog.NewTextHandler(io.Discard, nil))
)

func newTestService(repo Repository, cache Cache, ttl time.Duration) *Service {
	s := NewService(repo, cache, ttl, discard)
	s.now = func() time.Time { return now }
	return s
}

// Смешанная выборка: 3 free, 1 истёкший monthly (посчитан как free в SQL),
// 2 активных monthly, 1 yearly, 1 lifetime.
var mixed = []models.PlanCount{
	{Plan: "free", Count: 4, NewUsers: 2},
	{Plan: "monthly", Count: 2, NewUsers: 1},
	{Plan: "yearly", Count: 1, NewUsers: 0},
	{Plan: "lifetime", Count: 1, NewUsers: 1},
}

func TestOverview_TotalsAreConsistent(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GroupUsersByEffectivePlan", mock.Anything, now, periodStart).Return(mixed, nil)

	got, err := newTestService(repo, nil, 0).Overview(context.Background(), periodStart)
	require.NoError(t, err)

	assert.Equal(t, 8, got.TotalUsers)
	assert.Equal(t, 4, got.ProUsers)
	assert.Equal(t, 4, got.FreeUsers)
	assert.Equal(t, 4, got.NewUsersInPeriod)
	assert.Equal(t, got.TotalUsers, got.ProUsers+got.FreeUsers)

	sum := 0
	for _, n := range got.Breakdown {
		sum += n
	}
	assert.Equal(t, got.TotalUsers, sum)
	assert.Equal(t, map[string]int{"free": 4, "weekly": 0, "monthly": 2, "yearly": 1, "lifetime": 1}, got.Breakdown)
	assert.True(t, got.PeriodStart.Equal(periodStart))
}

func TestOverview_EmptyHasAllKeys(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GroupUsersByEffectivePlan", mock.Anything, now, periodStart).Return([]models.PlanCount{}, nil)

	got, err := newTestService(repo, nil, 0).Overview(context.Background(), periodStart)
	require.NoError(t, err)
	assert.Zero(t, got.TotalUsers)
	assert.Len(t, got.Breakdown, 5)
}

func TestOverview_StorageFailure(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GroupUsersByEffectivePlan", mock.Anything, now, periodStart).Return(nil, errors.New("timeout"))

	_, err := newTestService(repo, nil, 0).Overview(context.Background(), periodStart)
	var aggErr *models.AggregationError
	require.ErrorAs(t, err, &aggErr)
	assert.EqualError(t, aggErr.Err, "timeout")
}

func TestOverview_UnknownPlanIsAggregationError(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GroupUsersByEffectivePlan", mock.Anything, now, periodStart).
		Return([]models.PlanCount{{Plan: "gold", Count: 1}}, nil)

	_, err := newTestService(repo, nil, 0).Overview(context.Background(), periodStart)
	var aggErr *models.AggregationError
	assert.ErrorAs(t, err, &aggErr)
}

func TestOverview_Cache(t *testing.T) {
	key := models.StatsCachePrefix + "2024-06-01"

	t.Run("miss stores result", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		repo.On("GroupUsersByEffectivePlan", mock.Anything, now, periodStart).Return(mixed, nil)
		cache.On("Get", mock.Anything, key, mock.Anything).Return(false, nil, nil)
		cache.On("Set", mock.Anything, key, mock.AnythingOfType("models.Stats"), time.Minute).Return(nil)

		_, err := newTestService(repo, cache, time.Minute).Overview(context.Background(), periodStart)
		require.NoError(t, err)
		cache.AssertExpectations(t)
	})

	t.Run("hit skips storage", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		cached := models.Stats{TotalUsers: 42}
		cache.On("Get", mock.Anything, key, mock.Anything).Return(true, nil, cached)

		got, err := newTestService(repo, cache, time.Minute).Overview(context.Background(), periodStart)
		require.NoError(t, err)
		assert.Equal(t, 42, got.TotalUsers)
		repo.AssertNotCalled(t, "GroupUsersByEffectivePlan", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cache errors are ignored", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		repo.On("GroupUsersByEffectivePlan", mock.Anything, now, periodStart).Return(mixed, nil)
		cache.On("Get", mock.Anything, key, mock.Anything).Return(false, errors.New("redis down"), nil)
		cache.On("Set", mock.Anything, key, mock.Anything, time.Minute).Return(errors.New("redis down"))

		got, err := newTestService(repo, cache, time.Minute).Overview(context.Background(), periodStart)
		require.NoError(t, err)
		assert.Equal(t, 8, got.TotalUsers)
	})
}
