package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/KarpovAlexandrGo/task-api/internal/config"
	"github.com/KarpovAlexandrGo/task-api/internal/metrics"
	"github.com/KarpovAlexandrGo/task-api/internal/repo/migrate"
	"github.com/KarpovAlexandrGo/task-api/internal/repo/redis"
	"github.com/KarpovAlexandrGo/task-api/internal/usecase"
	"github.com/KarpovAlexandrGo/task-api/pkg/logger"
)

type App struct {
	Server          *http.Server
	wg              sync.WaitGroup
	store           Store
	closers         []io.Closer
	shutdownTimeout time.Duration
}

func NewApp(cfg *config.Config) (*App, error) {
	logFile, err := logger.Setup(logger.Options{
		FilePath:      cfg.LogFile,
		Level:         cfg.LogLevel,
		Stdout:        cfg.LogStdout,
		Service:       cfg.ServiceName,
		SchemaVersion: cfg.LogSchemaVersion,
	})
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(cfg)
	if err != nil {
		logFile.Close()
		return nil, err
	}

	a := &App{
		store:           store,
		closers:         []io.Closer{store},
		shutdownTimeout: cfg.ShutdownTimeout,
	}

	if cfg.MigrateOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := store.Migrate(ctx, migrate.CommandUp); err != nil {
			a.close()
			logFile.Close()
			return nil, err
		}
	}

	cacheRepo := initCache(cfg)
	if c, ok := cacheRepo.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}
	a.closers = append(a.closers, logFile)

	m := metrics.New()
	taskUseCase := usecase.NewTaskUseCase(store, cacheRepo,
		usecase.WithCacheTTL(cfg.CacheTTL),
		usecase.WithCacheMetrics(m),
	)

	a.Server = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           NewRouter(taskUseCase, m, store, cfg.RequestTimeout),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// initCache connects to Redis when REDIS_ADDR is set. An unreachable cache
// is not fatal: listings are then always read from the database.
func initCache(cfg *config.Config) usecase.CacheRepository {
	if cfg.RedisAddr == "" {
		return usecase.NopCache{}
	}

	cache := redis.NewCacheRepository(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DBTimeout)
	defer cancel()
	if err := cache.Ping(ctx); err != nil {
		logger.Log.WithError(err).WithField("addr", cfg.RedisAddr).Warn("Redis unavailable, caching disabled")
		cache.Close()
		return usecase.NopCache{}
	}

	logger.Log.WithField("addr", cfg.RedisAddr).Info("Connected to Redis successfully")
	return cache
}

func (a *App) Run() error {
	defer a.close()

	serverCtx, serverStopCtx := context.WithCancel(context.Background())
	defer serverStopCtx()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sig)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		select {
		case <-sig:
		case <-serverCtx.Done():
			return
		}
		logger.Log.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(serverCtx, a.shutdownTimeout)
		defer cancel()

		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				logger.Log.Error("Graceful shutdown timed out")
			}
			logger.Log.WithError(err).Error("HTTP server shutdown failed")
		}
		serverStopCtx()
	}()

	logger.Log.Info("Starting server on " + a.Server.Addr)
	if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		serverStopCtx()
		a.wg.Wait()
		return fmt.Errorf("server failed: %w", err)
	}

	a.wg.Wait()
	logger.Log.Info("Server stopped gracefully")
	return nil
}

func (a *App) close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			logger.Log.WithError(err).Error("Failed to release resource")
		}
	}
	a.closers = nil
}
