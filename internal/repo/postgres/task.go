package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/KarpovAlexandrGo/task-api/internal/entity"
	"github.com/KarpovAlexandrGo/task-api/internal/repo/migrate"
	"github.com/KarpovAlexandrGo/task-api/internal/repo/sqlquery"
	"github.com/KarpovAlexandrGo/task-api/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

// uniqueViolationCode is the PostgreSQL error code for unique constraint violations.
const uniqueViolationCode = "23505"

//go:embed migrations/*.sql
var migrationsFS embed.FS

type TaskRepository struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewTaskRepository(db *pgxpool.Pool, timeout time.Duration) *TaskRepository {
	return &TaskRepository{
		db:      db,
		timeout: timeout,
	}
}

// Migrate runs a goose command against the embedded PostgreSQL migrations.
func (r *TaskRepository) Migrate(ctx context.Context, command string) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	db := stdlib.OpenDBFromPool(r.db)
	defer db.Close()
	return migrate.Run(ctx, db, goose.DialectPostgres, fsys, command)
}

func (r *TaskRepository) Create(ctx context.Context, task entity.Task) (entity.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO tasks (name, priority, status, due_on, created_on)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + sqlquery.Columns

	var created entity.Task
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		created, err = scanTask(tx.QueryRow(ctx, query,
			task.Name,
			string(task.Priority),
			string(task.Status),
			toPgDate(task.DueOn),
			toPgDate(task.CreatedOn),
		))
		return err
	})
	if err != nil {
		logger.FromContext(ctx).WithFields(logrus.Fields{
			"method": "Create",
			"name":   task.Name,
		}).WithError(err).Error("Failed to create task")
		return entity.Task{}, mapError("create task", err)
	}

	return created, nil
}

func (r *TaskRepository) Get(ctx context.Context, id int64) (entity.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + sqlquery.Columns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.Task{}, entity.ErrTaskNotFound
		}
		logger.FromContext(ctx).WithFields(logrus.Fields{
			"method":  "Get",
			"task_id": id,
		}).WithError(err).Error("Failed to get task")
		return entity.Task{}, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

func (r *TaskRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check task name: %w", err)
	}
	return exists, nil
}

func (r *TaskRepository) List(ctx context.Context, filter entity.TaskFilter) ([]entity.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query, args := sqlquery.BuildList(filter, sqlquery.Dollar)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).WithFields(logrus.Fields{
			"method": "List",
		}).WithError(err).Error("Failed to list tasks")
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []entity.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			logger.FromContext(ctx).WithFields(logrus.Fields{
				"method": "List",
			}).WithError(err).Error("Failed to scan task row")
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		logger.FromContext(ctx).WithFields(logrus.Fields{
			"method": "List",
		}).WithError(err).Error("Error after scanning rows")
		return nil, fmt.Errorf("error after scanning rows: %w", err)
	}

	return tasks, nil
}

func (r *TaskRepository) Update(ctx context.Context, task entity.Task) (entity.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		UPDATE tasks
		SET name = $2, priority = $3, status = $4, due_on = $5
		WHERE id = $1
		RETURNING ` + sqlquery.Columns

	var updated entity.Task
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		updated, err = scanTask(tx.QueryRow(ctx, query,
			task.ID,
			task.Name,
			string(task.Priority),
			string(task.Status),
			toPgDate(task.DueOn),
		))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logger.FromContext(ctx).WithFields(logrus.Fields{
				"method":  "Update",
				"task_id": task.ID,
			}).Warn("Task not found for update")
			return entity.Task{}, entity.ErrTaskNotFound
		}
		logger.FromContext(ctx).WithFields(logrus.Fields{
			"method":  "Update",
			"task_id": task.ID,
			"name":    task.Name,
		}).WithError(err).Error("Failed to update task")
		return entity.Task{}, mapError("update task", err)
	}

	return updated, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return entity.ErrTaskNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, entity.ErrTaskNotFound) {
			logger.FromContext(ctx).WithFields(logrus.Fields{
				"method":  "Delete",
				"task_id": id,
			}).Warn("Task not found for deletion")
			return err
		}
		logger.FromContext(ctx).WithFields(logrus.Fields{
			"method":  "Delete",
			"task_id": id,
		}).WithError(err).Error("Failed to delete task")
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

func scanTask(row pgx.Row) (entity.Task, error) {
	var (
		task      entity.Task
		priority  string
		status    string
		dueOn     pgtype.Date
		createdOn pgtype.Date
	)
	if err := row.Scan(&task.ID, &task.Name, &priority, &status, &dueOn, &createdOn); err != nil {
		return entity.Task{}, err
	}
	task.Priority = entity.Priority(priority)
	task.Status = entity.Status(status)
	task.DueOn = fromPgDate(dueOn)
	task.CreatedOn = fromPgDate(createdOn)
	return task, nil
}

func toPgDate(d entity.Date) pgtype.Date {
	return pgtype.Date{Time: d.Time(), Valid: !d.IsZero()}
}

func fromPgDate(d pgtype.Date) entity.Date {
	if !d.Valid {
		return entity.Date{}
	}
	return entity.DateOf(d.Time)
}

// mapError turns unique constraint violations into entity.ErrTaskExists.
func mapError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return fmt.Errorf("failed to %s: %w", op, entity.ErrTaskExists)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
