// Package logger is the process-wide structured logger. Every record is one
// JSON object per line, stamped with the service identity and, inside a
// request, the request's correlation id.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the shared logger. It is usable before Setup and then writes to stderr.
var Log = newLogger()

// FieldRequestID is the key of the correlation id in every record.
const FieldRequestID = "request_id"

type Options struct {
	FilePath      string
	Level         string
	Stdout        bool
	Service       string
	SchemaVersion string
}

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&Formatter{Service: "task_api", SchemaVersion: "1.0"})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Setup points Log at an append-only JSON-lines file. The returned closer
// releases the file.
func Setup(opts Options) (io.Closer, error) {
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	f, err := os.OpenFile(opts.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	var out io.Writer = f
	if opts.Stdout {
		out = io.MultiWriter(f, os.Stdout)
	}

	Log.SetOutput(out)
	Log.SetLevel(level)
	Log.SetFormatter(&Formatter{Service: opts.Service, SchemaVersion: opts.SchemaVersion})
	return f, nil
}

type ctxKey struct{}

// WithRequestID stores the correlation id of the current request in ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestID returns the correlation id stored in ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// FromContext returns an entry carrying the request's correlation id when
// ctx belongs to a request.
func FromContext(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(Log).WithContext(ctx)
	if id := RequestID(ctx); id != "" {
		entry = entry.WithField(FieldRequestID, id)
	}
	return entry
}
