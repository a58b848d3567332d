//go:build integration

package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/KarpovAlexandrGo/task-api/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheRepository(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR is not set")
	}

	ctx := context.Background()
	cache := NewCacheRepository(addr, "", 0)
	t.Cleanup(func() { cache.Close() })
	require.NoError(t, cache.Ping(ctx))
	require.NoError(t, cache.Invalidate(ctx))

	_, generation, ok, err := cache.GetTasks(ctx, "sort=priority")
	require.NoError(t, err)
	assert.False(t, ok)

	tasks := []entity.Task{{ID: 1, Name: "Cached", Priority: entity.PriorityLow, Status: entity.StatusPending, CreatedOn: entity.NewDate(2026, 10, 15)}}
	require.NoError(t, cache.SetTasks(ctx, generation, "sort=priority", tasks, time.Minute))

	got, gotGeneration, ok, err := cache.GetTasks(ctx, "sort=priority")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, tasks, got)
	assert.Equal(t, generation, gotGeneration)

	require.NoError(t, cache.Invalidate(ctx))
	_, _, ok, err = cache.GetTasks(ctx, "sort=priority")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheRepository_StaleGenerationIsNotStored(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR is not set")
	}

	ctx := context.Background()
	cache := NewCacheRepository(addr, "", 0)
	t.Cleanup(func() { cache.Close() })
	require.NoError(t, cache.Invalidate(ctx))

	_, generation, _, err := cache.GetTasks(ctx, "status=Pending")
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx))

	tasks := []entity.Task{{ID: 1, Name: "Stale", Priority: entity.PriorityLow, Status: entity.StatusPending, CreatedOn: entity.NewDate(2026, 10, 15)}}
	require.NoError(t, cache.SetTasks(ctx, generation, "status=Pending", tasks, time.Minute))

	_, current, ok, err := cache.GetTasks(ctx, "status=Pending")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, generation+1, current)
}
