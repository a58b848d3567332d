package app

import (
	"context"
	"net/http"
	"time"

	_ "github.com/KarpovAlexandrGo/task-api/docs"
	httpcontroller "github.com/KarpovAlexandrGo/task-api/internal/controller/http"
	"github.com/KarpovAlexandrGo/task-api/internal/metrics"
	"github.com/KarpovAlexandrGo/task-api/internal/usecase"
	"github.com/KarpovAlexandrGo/task-api/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter assembles the middleware chain and every route of the service.
func NewRouter(taskUC usecase.TaskUseCase, m *metrics.Metrics, db Pinger, requestTimeout time.Duration) *chi.Mux {
	router := chi.NewRouter()

	router.Use(
		httpcontroller.RequestContext,
		m.Middleware,
		httpcontroller.Recoverer,
		middleware.Heartbeat("/health"),
		httpcontroller.Timeout(requestTimeout),
	)

	httpcontroller.NewTaskHandler(taskUC).RegisterRoutes(router)

	router.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})
	router.Get("/ready", readyHandler(db))
	router.Handle("/metrics", m.Handler())
	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return router
}

// readyHandler answers 200 only while the database accepts connections.
func readyHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			logger.FromContext(ctx).WithError(err).Error("readiness_check_failed")
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ready"))
	}
}
