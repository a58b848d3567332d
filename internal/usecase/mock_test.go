package usecase

import (
	"context"
	"time"

	"github.com/KarpovAlexandrGo/task-api/internal/entity"
)

// mockTaskRepository routes every call to an optional Fn field and records
// which methods ran.
type mockTaskRepository struct {
	CreateFn       func(ctx context.Context, task entity.Task) (entity.Task, error)
	GetFn          func(ctx context.Context, id int64) (entity.Task, error)
	ExistsByNameFn func(ctx context.Context, name string) (bool, error)
	ListFn         func(ctx context.Context, filter entity.TaskFilter) ([]entity.Task, error)
	UpdateFn       func(ctx context.Context, task entity.Task) (entity.Task, error)
	DeleteFn       func(ctx context.Context, id int64) error

	calls []string
}

func (m *mockTaskRepository) Create(ctx context.Context, task entity.Task) (entity.Task, error) {
	m.calls = append(m.calls, "Create")
	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}
	task.ID = 1
	return task, nil
}

func (m *mockTaskRepository) Get(ctx context.Context, id int64) (entity.Task, error) {
	m.calls = append(m.calls, "Get")
	if m.GetFn != nil {
		return m.GetFn(ctx, id)
	}
	return entity.Task{}, entity.ErrTaskNotFound
}

func (m *mockTaskRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	m.calls = append(m.calls, "ExistsByName")
	if m.ExistsByNameFn != nil {
		return m.ExistsByNameFn(ctx, name)
	}
	return false, nil
}

func (m *mockTaskRepository) List(ctx context.Context, filter entity.TaskFilter) ([]entity.Task, error) {
	m.calls = append(m.calls, "List")
	if m.ListFn != nil {
		return m.ListFn(ctx, filter)
	}
	return nil, nil
}

func (m *mockTaskRepository) Update(ctx context.Context, task entity.Task) (entity.Task, error) {
	m.calls = append(m.calls, "Update")
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, task)
	}
	return task, nil
}

func (m *mockTaskRepository) Delete(ctx context.Context, id int64) error {
	m.calls = append(m.calls, "Delete")
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}

func (m *mockTaskRepository) called(name string) bool {
	for _, c := range m.calls {
		if c == name {
			return true
		}
	}
	return false
}

// memoryCache is an in-process CacheRepository.
type memoryCache struct {
	entries       map[string][]entity.Task
	generation    int64
	getErr        error
	invalidations int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]entity.Task)}
}

func (c *memoryCache) GetTasks(_ context.Context, key string) ([]entity.Task, int64, bool, error) {
	if c.getErr != nil {
		return nil, 0, false, c.getErr
	}
	tasks, ok := c.entries[key]
	return tasks, c.generation, ok, nil
}

func (c *memoryCache) SetTasks(_ context.Context, generation int64, key string, tasks []entity.Task, _ time.Duration) error {
	if generation != c.generation {
		return nil
	}
	c.entries[key] = tasks
	return nil
}

func (c *memoryCache) Invalidate(context.Context) error {
	c.invalidations++
	c.generation++
	c.entries = make(map[string][]entity.Task)
	return nil
}

type countingMetrics struct {
	hits, misses, errors int
}

func (m *countingMetrics) CacheHit()   { m.hits++ }
func (m *countingMetrics) CacheMiss()  { m.misses++ }
func (m *countingMetrics) CacheError() { m.errors++ }
