//go:build integration

package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/KarpovAlexandrGo/task-api/internal/entity"
	"github.com/KarpovAlexandrGo/task-api/internal/repo/migrate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRepo(t *testing.T) *TaskRepository {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repo := NewTaskRepository(pool, 5*time.Second)
	require.NoError(t, repo.Migrate(ctx, migrate.CommandUp))

	_, err = pool.Exec(ctx, `TRUNCATE tasks RESTART IDENTITY`)
	require.NoError(t, err)
	return repo
}

func TestTaskRepository_Lifecycle(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, entity.Task{
		Name:      "Integration",
		Priority:  entity.PriorityHigh,
		Status:    entity.StatusPending,
		DueOn:     entity.NewDate(2030, time.January, 2),
		CreatedOn: entity.NewDate(2026, time.October, 15),
	})
	require.NoError(t, err)
	assert.Greater(t, created.ID, int64(0))
	assert.Equal(t, "2030-01-02", created.DueOn.String())

	exists, err := repo.ExistsByName(ctx, "Integration")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = repo.Create(ctx, created)
	assert.ErrorIs(t, err, entity.ErrTaskExists)

	created.Status = entity.StatusCompleted
	created.DueOn = entity.Date{}
	updated, err := repo.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCompleted, updated.Status)
	assert.True(t, updated.DueOn.IsZero())

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.Get(ctx, created.ID)
	assert.ErrorIs(t, err, entity.ErrTaskNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, created.ID), entity.ErrTaskNotFound)
}

func TestTaskRepository_ListOrdering(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	for _, task := range []entity.Task{
		{Name: "low", Priority: entity.PriorityLow, Status: entity.StatusCompleted},
		{Name: "high", Priority: entity.PriorityHigh, Status: entity.StatusPending},
		{Name: "medium", Priority: entity.PriorityMedium, Status: entity.StatusInProgress, DueOn: entity.NewDate(2030, 5, 5)},
	} {
		task.CreatedOn = entity.NewDate(2026, time.October, 15)
		_, err := repo.Create(ctx, task)
		require.NoError(t, err)
	}

	byPriority, err := repo.List(ctx, entity.TaskFilter{Sort: entity.SortPriority})
	require.NoError(t, err)
	require.Len(t, byPriority, 3)
	assert.Equal(t, []string{"low", "medium", "high"}, []string{byPriority[0].Name, byPriority[1].Name, byPriority[2].Name})

	byStatus, err := repo.List(ctx, entity.TaskFilter{Sort: entity.SortStatus})
	require.NoError(t, err)
	assert.Equal(t, []string{"high", "medium", "low"}, []string{byStatus[0].Name, byStatus[1].Name, byStatus[2].Name})

	byDate, err := repo.List(ctx, entity.TaskFilter{DueOn: entity.NewDate(2030, 5, 5)})
	require.NoError(t, err)
	require.Len(t, byDate, 1)
	assert.Equal(t, "medium", byDate[0].Name)

	searched, err := repo.List(ctx, entity.TaskFilter{Search: "IG"})
	require.NoError(t, err)
	require.Len(t, searched, 1)
	assert.Equal(t, "high", searched[0].Name)
}
