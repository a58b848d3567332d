package app

import (
	"context"
	"fmt"
	"time"

	"github.com/KarpovAlexandrGo/task-api/internal/config"
	"github.com/KarpovAlexandrGo/task-api/internal/repo/postgres"
	"github.com/KarpovAlexandrGo/task-api/internal/repo/sqlite"
	"github.com/KarpovAlexandrGo/task-api/internal/usecase"
	"github.com/KarpovAlexandrGo/task-api/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// Store is a task repository that owns its connection.
type Store interface {
	usecase.TaskRepository
	Migrate(ctx context.Context, command string) error
	Ping(ctx context.Context) error
	Close() error
}

// OpenStore connects to the database selected by cfg.DBDriver.
func OpenStore(cfg *config.Config) (Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		pool, err := initDB(cfg.PostgresDSN, cfg.DBTimeout)
		if err != nil {
			return nil, err
		}
		return &postgresStore{
			TaskRepository: postgres.NewTaskRepository(pool, cfg.DBTimeout),
			pool:           pool,
		}, nil
	case config.DriverSQLite:
		repo, err := sqlite.Open(cfg.SQLitePath, cfg.DBTimeout)
		if err != nil {
			return nil, err
		}
		logger.Log.WithField("path", cfg.SQLitePath).Info("Connected to database successfully")
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
}

type postgresStore struct {
	*postgres.TaskRepository
	pool *pgxpool.Pool
}

func (s *postgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *postgresStore) Close() error {
	s.pool.Close()
	return nil
}

func initDB(dsn string, timeout time.Duration) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*timeout)
	defer cancel()

	dbPool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	cfg := dbPool.Config().ConnConfig
	logger.Log.WithFields(logrus.Fields{
		"host":     cfg.Host,
		"database": cfg.Database,
	}).Info("Connected to database successfully")
	return dbPool, nil
}
