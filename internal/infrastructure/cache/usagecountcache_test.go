package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tollgate/internal/shared/logger"
)

type mockUsageCounter struct {
	mock.Mock
}

func (m *mockUsageCounter) Count(ctx context.Context, organizationID uint, windowStart, windowEnd time.Time) (int64, error) {
	args := m.Called(ctx, organizationID, windowStart, windowEnd)
	return args.Get(0).(int64), args.Error(1)
}

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return client
}

func newTestLogger() logger.Interface {
	return logger.NewLoggerWithSlog(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func window() (time.Time, time.Time) {
	return time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 9, 23, 59, 59, 999999999, time.UTC)
}

func TestCachedUsageCounter_MissReadsThroughAndCaches(t *testing.T) {
	client := setupTestRedis(t)
	backing := new(mockUsageCounter)
	counter := NewCachedUsageCounter(client, backing, 30*time.Second, newTestLogger())
	ctx := context.Background()
	start, end := window()

	backing.On("Count", mock.Anything, uint(1), start, end).Return(int64(42), nil).Once()

	count, err := counter.Count(ctx, 1, start, end)
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)

	// Second read is served from the cache.
	count, err = counter.Count(ctx, 1, start, end)
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)

	backing.AssertNumberOfCalls(t, "Count", 1)
}

func TestCachedUsageCounter_DistinctWindowsCachedSeparately(t *testing.T) {
	client := setupTestRedis(t)
	backing := new(mockUsageCounter)
	counter := NewCachedUsageCounter(client, backing, 30*time.Second, newTestLogger())
	ctx := context.Background()
	start, end := window()
	nextStart := end.Add(time.Nanosecond)
	nextEnd := nextStart.AddDate(0, 1, 0)

	backing.On("Count", mock.Anything, uint(1), start, end).Return(int64(10), nil).Once()
	backing.On("Count", mock.Anything, uint(1), nextStart, nextEnd).Return(int64(3), nil).Once()

	first, err := counter.Count(ctx, 1, start, end)
	require.NoError(t, err)
	second, err := counter.Count(ctx, 1, nextStart, nextEnd)
	require.NoError(t, err)

	assert.Equal(t, int64(10), first)
	assert.Equal(t, int64(3), second)
	backing.AssertExpectations(t)
}

func TestCachedUsageCounter_InvalidateDropsOrganizationKeys(t *testing.T) {
	client := setupTestRedis(t)
	backing := new(mockUsageCounter)
	counter := NewCachedUsageCounter(client, backing, 30*time.Second, newTestLogger())
	ctx := context.Background()
	start, end := window()

	backing.On("Count", mock.Anything, uint(1), start, end).Return(int64(42), nil).Once()
	backing.On("Count", mock.Anything, uint(2), start, end).Return(int64(7), nil).Once()

	_, err := counter.Count(ctx, 1, start, end)
	require.NoError(t, err)
	_, err = counter.Count(ctx, 2, start, end)
	require.NoError(t, err)

	require.NoError(t, counter.Invalidate(ctx, 1))

	// Organization 1 reads through again, organization 2 stays cached.
	backing.On("Count", mock.Anything, uint(1), start, end).Return(int64(43), nil).Once()

	count, err := counter.Count(ctx, 1, start, end)
	require.NoError(t, err)
	assert.Equal(t, int64(43), count)

	count, err = counter.Count(ctx, 2, start, end)
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
}

func TestCachedUsageCounter_BackingErrorPropagates(t *testing.T) {
	client := setupTestRedis(t)
	backing := new(mockUsageCounter)
	counter := NewCachedUsageCounter(client, backing, 30*time.Second, newTestLogger())
	start, end := window()

	backing.On("Count", mock.Anything, uint(1), start, end).Return(int64(0), assert.AnError)

	_, err := counter.Count(context.Background(), 1, start, end)
	assert.Error(t, err)
}

func TestCachedUsageCounter_InvalidateWithNoKeysIsNoop(t *testing.T) {
	client := setupTestRedis(t)
	counter := NewCachedUsageCounter(client, new(mockUsageCounter), 30*time.Second, newTestLogger())

	assert.NoError(t, counter.Invalidate(context.Background(), 9))
}
