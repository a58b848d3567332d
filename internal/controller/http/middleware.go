package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/KarpovAlexandrGo/task-api/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestContext gives every request a fresh correlation id, echoes it in
// the X-Request-ID header and logs the request lifecycle.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := uuid.NewString()

		ctx := logger.WithRequestID(r.Context(), id)
		r = r.WithContext(ctx)
		w.Header().Set(headerRequestID, id)

		log := logger.FromContext(ctx)
		log.WithFields(logrus.Fields{
			"method":       r.Method,
			"path":         r.URL.Path,
			"remote_addr":  r.RemoteAddr,
			"user_agent":   r.UserAgent(),
			"content_type": r.Header.Get("Content-Type"),
		}).Info("request_started")

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.WithFields(logrus.Fields{
			"method":        r.Method,
			"path":          r.URL.Path,
			"status_code":   statusOf(ww),
			"duration_ms":   float64(time.Since(start).Microseconds()) / 1000,
			"response_size": ww.BytesWritten(),
		}).Info("request_completed")
	})
}

// Recoverer turns a panic into a JSON 500 response.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}
			logger.FromContext(r.Context()).WithFields(logrus.Fields{
				"panic": fmt.Sprint(rvr),
				"stack": string(debug.Stack()),
			}).Error("unhandled_panic")
			respondWithError(w, http.StatusInternalServerError, msgInternal, nil)
		}()
		next.ServeHTTP(w, r)
	})
}

// Timeout cancels the request context after d. A handler that gives up on
// the cancelled context without writing a response gets a JSON 504.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			if ww.Status() == 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				logger.FromContext(ctx).WithField("timeout", d.String()).Error("request_timed_out")
				respondWithError(ww, http.StatusGatewayTimeout, msgTimeout, nil)
			}
		})
	}
}

// Action logs <name>_started before the handler and <name>_completed or
// <name>_failed after it. Panics are logged and re-raised.
func Action(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.FromContext(r.Context()).WithField("endpoint", name)
			log.WithField("path", r.URL.Path).Info(name + "_started")

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				if rvr := recover(); rvr != nil {
					log.WithFields(logrus.Fields{
						"error_type":    fmt.Sprintf("%T", rvr),
						"error_message": fmt.Sprint(rvr),
						"success":       false,
					}).Error(name + "_failed")
					panic(rvr)
				}
			}()

			next.ServeHTTP(ww, r)

			if status := statusOf(ww); status >= http.StatusBadRequest {
				log.WithField("status_code", status).Info(name + "_failed")
				return
			}
			log.WithField("success", true).Info(name + "_completed")
		})
	}
}

func statusOf(ww middleware.WrapResponseWriter) int {
	if status := ww.Status(); status != 0 {
		return status
	}
	return http.StatusOK
}
