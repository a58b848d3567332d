// Package sqlite stores tasks in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/KarpovAlexandrGo/task-api/internal/entity"
	"github.com/KarpovAlexandrGo/task-api/internal/repo/migrate"
	"github.com/KarpovAlexandrGo/task-api/internal/repo/sqlquery"
	"github.com/KarpovAlexandrGo/task-api/pkg/logger"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type TaskRepository struct {
	db      *sql.DB
	timeout time.Duration
}

// Open opens the database at path (":memory:" for a private in-memory
// database).
func Open(path string, timeout time.Duration) (*TaskRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One connection: SQLite serialises writers and every in-memory
	// connection would otherwise see its own empty database.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	return &TaskRepository{db: db, timeout: timeout}, nil
}

func (r *TaskRepository) Close() error {
	return r.db.Close()
}

func (r *TaskRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Migrate runs a goose command against the embedded SQLite migrations.
func (r *TaskRepository) Migrate(ctx context.Context, command string) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	return migrate.Run(ctx, r.db, goose.DialectSQLite3, fsys, command)
}

func (r *TaskRepository) Create(ctx context.Context, task entity.Task) (entity.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO tasks (name, priority, status, due_on, created_on)
		VALUES (?, ?, ?, ?, ?)
		RETURNING ` + sqlquery.Columns

	var created entity.Task
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, query,
			task.Name,
			string(task.Priority),
			string(task.Status),
			task.DueOn,
			task.CreatedOn,
		)
		var err error
		created, err = scanTask(row)
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

	query := `SELECT ` + sqlquery.Columns + ` FROM tasks WHERE id = ?`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE name = ?)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check task name: %w", err)
	}
	return exists, nil
}

func (r *TaskRepository) List(ctx context.Context, filter entity.TaskFilter) ([]entity.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query, args := sqlquery.BuildList(filter, sqlquery.Question)

	rows, err := r.db.QueryContext(ctx, query, args...)
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
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after scanning rows: %w", err)
	}

	return tasks, nil
}

func (r *TaskRepository) Update(ctx context.Context, task entity.Task) (entity.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		UPDATE tasks
		SET name = ?, priority = ?, status = ?, due_on = ?
		WHERE id = ?
		RETURNING ` + sqlquery.Columns

	var updated entity.Task
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, query,
			task.Name,
			string(task.Priority),
			string(task.Status),
			task.DueOn,
			task.ID,
		)
		var err error
		updated, err = scanTask(row)
		return err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Task{}, entity.ErrTaskNotFound
		}
		logger.FromContext(ctx).WithFields(logrus.Fields{
			"method":  "Update",
			"task_id": task.ID,
		}).WithError(err).Error("Failed to update task")
		return entity.Task{}, mapError("update task", err)
	}

	return updated, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return entity.ErrTaskNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, entity.ErrTaskNotFound) {
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

// withTx runs fn in a transaction that is rolled back unless fn succeeds.
func (r *TaskRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.FromContext(ctx).WithError(rbErr).Error("Failed to roll back transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (entity.Task, error) {
	var (
		task     entity.Task
		priority string
		status   string
	)
	if err := row.Scan(&task.ID, &task.Name, &priority, &status, &task.DueOn, &task.CreatedOn); err != nil {
		return entity.Task{}, err
	}
	task.Priority = entity.Priority(priority)
	task.Status = entity.Status(status)
	return task, nil
}

// mapError turns unique-index violations into entity.ErrTaskExists.
func mapError(op string, err error) error {
	var sqliteErr *sqlitedriver.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return fmt.Errorf("failed to %s: %w", op, entity.ErrTaskExists)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
