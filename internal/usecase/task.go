package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/KarpovAlexandrGo/task-api/internal/entity"
	"github.com/KarpovAlexandrGo/task-api/internal/schema"
	"github.com/KarpovAlexandrGo/task-api/pkg/logger"
	"github.com/sirupsen/logrus"
)

// DefaultCacheTTL is used when no TTL is configured.
const DefaultCacheTTL = 5 * time.Minute

// TaskUseCase takes request bodies unparsed so that Update can report an
// unknown id before it looks at the payload.
type TaskUseCase interface {
	Create(ctx context.Context, body io.Reader) (entity.Task, error)
	Get(ctx context.Context, id int64) (entity.Task, error)
	List(ctx context.Context, filter entity.TaskFilter) ([]entity.Task, error)
	Update(ctx context.Context, id int64, body io.Reader) (entity.Task, error)
	Delete(ctx context.Context, id int64) error
}

// TaskRepository persists tasks. Every mutating call is atomic: it either
// commits completely or leaves the store untouched.
type TaskRepository interface {
	Create(ctx context.Context, task entity.Task) (entity.Task, error)
	Get(ctx context.Context, id int64) (entity.Task, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	List(ctx context.Context, filter entity.TaskFilter) ([]entity.Task, error)
	Update(ctx context.Context, task entity.Task) (entity.Task, error)
	Delete(ctx context.Context, id int64) error
}

// CacheRepository holds list results under a generation number. Invalidate
// moves to a new generation, and SetTasks stores nothing unless the
// generation is still the one GetTasks reported. A listing read from the
// store before a write therefore never lands in the cache after it.
type CacheRepository interface {
	GetTasks(ctx context.Context, key string) (tasks []entity.Task, generation int64, ok bool, err error)
	SetTasks(ctx context.Context, generation int64, key string, tasks []entity.Task, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// CacheMetrics counts list cache lookups.
type CacheMetrics interface {
	CacheHit()
	CacheMiss()
	CacheError()
}

// NopCache never holds anything. It is used when no cache is configured.
type NopCache struct{}

func (NopCache) GetTasks(context.Context, string) ([]entity.Task, int64, bool, error) {
	return nil, 0, false, nil
}

func (NopCache) SetTasks(context.Context, int64, string, []entity.Task, time.Duration) error {
	return nil
}

func (NopCache) Invalidate(context.Context) error { return nil }

type nopMetrics struct{}

func (nopMetrics) CacheHit()   {}
func (nopMetrics) CacheMiss()  {}
func (nopMetrics) CacheError() {}

type Option func(*TaskUseCaseImpl)

// WithClock replaces time.Now for creation dates and due date checks.
func WithClock(now func() time.Time) Option {
	return func(uc *TaskUseCaseImpl) { uc.now = now }
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(uc *TaskUseCaseImpl) {
		if ttl > 0 {
			uc.cacheTTL = ttl
		}
	}
}

func WithCacheMetrics(m CacheMetrics) Option {
	return func(uc *TaskUseCaseImpl) {
		if m != nil {
			uc.metrics = m
		}
	}
}

type TaskUseCaseImpl struct {
	taskRepo  TaskRepository
	cacheRepo CacheRepository
	decoder   *schema.Decoder
	now       func() time.Time
	cacheTTL  time.Duration
	metrics   CacheMetrics
}

func NewTaskUseCase(taskRepo TaskRepository, cacheRepo CacheRepository, opts ...Option) *TaskUseCaseImpl {
	if cacheRepo == nil {
		cacheRepo = NopCache{}
	}
	uc := &TaskUseCaseImpl{
		taskRepo:  taskRepo,
		cacheRepo: cacheRepo,
		now:       time.Now,
		cacheTTL:  DefaultCacheTTL,
		metrics:   nopMetrics{},
	}
	for _, opt := range opts {
		opt(uc)
	}
	uc.decoder = schema.NewDecoder(uc.now)
	return uc
}

func (uc *TaskUseCaseImpl) Create(ctx context.Context, body io.Reader) (entity.Task, error) {
	log := logger.FromContext(ctx)

	fields, err := parseBody(log, body)
	if err != nil {
		return entity.Task{}, err
	}
	patch, err := uc.decoder.DecodeCreate(fields)
	if err != nil {
		logValidationFailure(log, "create", err)
		return entity.Task{}, err
	}
	task := patch.NewTask()

	exists, err := uc.taskRepo.ExistsByName(ctx, task.Name)
	if err != nil {
		log.WithError(err).WithField("operation", "create").Error("database_error")
		return entity.Task{}, err
	}
	if exists {
		log.WithFields(logrus.Fields{
			"task_name": task.Name,
			"reason":    "duplicate_name",
		}).Error("task_creation_failed")
		return entity.Task{}, entity.ErrTaskExists
	}

	task.CreatedOn = entity.DateOf(uc.now())

	created, err := uc.taskRepo.Create(ctx, task)
	if err != nil {
		if errors.Is(err, entity.ErrTaskExists) {
			log.WithFields(logrus.Fields{
				"task_name": task.Name,
				"reason":    "duplicate_name",
			}).Error("task_creation_failed")
			return entity.Task{}, err
		}
		log.WithError(err).WithField("operation", "create").Error("database_error")
		return entity.Task{}, err
	}

	uc.invalidate(ctx)

	log.WithFields(logrus.Fields{
		"task_id":   created.ID,
		"task_name": created.Name,
	}).Info("task_created")
	return created, nil
}

func (uc *TaskUseCaseImpl) Get(ctx context.Context, id int64) (entity.Task, error) {
	task, err := uc.taskRepo.Get(ctx, id)
	if err != nil {
		logLookupFailure(logger.FromContext(ctx), "get", id, err)
		return entity.Task{}, err
	}
	return task, nil
}

// List serves the filtered list from the cache when possible. An empty
// result is reported as entity.ErrTaskNotFound.
func (uc *TaskUseCaseImpl) List(ctx context.Context, filter entity.TaskFilter) ([]entity.Task, error) {
	log := logger.FromContext(ctx)
	key := filter.CacheKey()

	tasks, generation, ok, err := uc.cacheRepo.GetTasks(ctx, key)
	cacheable := err == nil
	switch {
	case err != nil:
		uc.metrics.CacheError()
		log.WithError(err).Warn("cache_read_failed")
	case ok:
		uc.metrics.CacheHit()
		return nonEmpty(log, tasks)
	default:
		uc.metrics.CacheMiss()
	}

	tasks, err = uc.taskRepo.List(ctx, filter)
	if err != nil {
		log.WithError(err).WithField("operation", "list").Error("database_error")
		return nil, err
	}

	if cacheable {
		if err := uc.cacheRepo.SetTasks(ctx, generation, key, tasks, uc.cacheTTL); err != nil {
			log.WithError(err).Warn("cache_write_failed")
		}
	}

	return nonEmpty(log, tasks)
}

func (uc *TaskUseCaseImpl) Update(ctx context.Context, id int64, body io.Reader) (entity.Task, error) {
	log := logger.FromContext(ctx)

	task, err := uc.taskRepo.Get(ctx, id)
	if err != nil {
		logLookupFailure(log, "update", id, err)
		return entity.Task{}, err
	}

	fields, err := parseBody(log.WithField("task_id", id), body)
	if err != nil {
		return entity.Task{}, err
	}
	patch, err := uc.decoder.DecodePatch(fields)
	if err != nil {
		logValidationFailure(log.WithField("task_id", id), "update", err)
		return entity.Task{}, err
	}
	patch.Apply(&task)

	updated, err := uc.taskRepo.Update(ctx, task)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrTaskExists):
			log.WithFields(logrus.Fields{
				"task_id":   id,
				"task_name": task.Name,
				"reason":    "duplicate_name",
			}).Error("task_update_failed")
		case errors.Is(err, entity.ErrTaskNotFound):
			logLookupFailure(log, "update", id, err)
		default:
			log.WithError(err).WithFields(logrus.Fields{
				"operation": "update",
				"task_id":   id,
			}).Error("database_error")
		}
		return entity.Task{}, err
	}

	uc.invalidate(ctx)

	log.WithField("task_id", id).Info("task_updated")
	return updated, nil
}

func (uc *TaskUseCaseImpl) Delete(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx)

	if _, err := uc.taskRepo.Get(ctx, id); err != nil {
		logLookupFailure(log, "delete", id, err)
		return err
	}

	if err := uc.taskRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, entity.ErrTaskNotFound) {
			logLookupFailure(log, "delete", id, err)
			return err
		}
		log.WithError(err).WithFields(logrus.Fields{
			"operation": "delete",
			"task_id":   id,
		}).Error("database_error")
		return err
	}

	uc.invalidate(ctx)

	log.WithField("task_id", id).Info("task_deleted")
	return nil
}

func (uc *TaskUseCaseImpl) invalidate(ctx context.Context) {
	if err := uc.cacheRepo.Invalidate(ctx); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("cache_invalidation_failed")
	}
}

func nonEmpty(log *logrus.Entry, tasks []entity.Task) ([]entity.Task, error) {
	if len(tasks) == 0 {
		log.Error("task_not_found")
		return nil, fmt.Errorf("list: %w", entity.ErrTaskNotFound)
	}
	return tasks, nil
}

func parseBody(log *logrus.Entry, body io.Reader) (schema.Fields, error) {
	fields, err := schema.ParseBody(body)
	if err != nil {
		log.WithError(err).Error("invalid_request_body")
		return nil, err
	}
	return fields, nil
}

func logValidationFailure(log *logrus.Entry, operation string, err error) {
	fields := logrus.Fields{"operation": operation}
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		fields["validation_errors"] = verr.Fields
	}
	log.WithFields(fields).Error("task_validation_failed")
}

func logLookupFailure(log *logrus.Entry, operation string, id int64, err error) {
	entry := log.WithFields(logrus.Fields{
		"operation": operation,
		"task_id":   id,
	})
	if errors.Is(err, entity.ErrTaskNotFound) {
		entry.Error("task_not_found")
		return
	}
	entry.WithError(err).Error("database_error")
}
