// Package migrate runs the embedded goose migrations of a task store.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/KarpovAlexandrGo/task-api/pkg/logger"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

const (
	CommandUp     = "up"
	CommandDown   = "down"
	CommandStatus = "status"
)

// Run executes command ("up", "down" or "status") against db.
func Run(ctx context.Context, db *sql.DB, dialect goose.Dialect, fsys fs.FS, command string) error {
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	log := logger.Log.WithFields(logrus.Fields{
		"component": "migrations",
		"dialect":   string(dialect),
		"command":   command,
	})

	switch command {
	case CommandUp:
		results, err := provider.Up(ctx)
		for _, res := range results {
			logResult(log, res)
		}
		if err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		if len(results) == 0 {
			log.Info("migrations_up_to_date")
		}
	case CommandDown:
		res, err := provider.Down(ctx)
		if res != nil {
			logResult(log, res)
		}
		if err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
	case CommandStatus:
		statuses, err := provider.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to read migration status: %w", err)
		}
		for _, st := range statuses {
			log.WithFields(logrus.Fields{
				"version":    st.Source.Version,
				"path":       st.Source.Path,
				"state":      string(st.State),
				"applied_at": st.AppliedAt,
			}).Info("migration_status")
		}
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
	return nil
}

func logResult(log *logrus.Entry, res *goose.MigrationResult) {
	entry := log.WithFields(logrus.Fields{
		"version":     res.Source.Version,
		"path":        res.Source.Path,
		"direction":   res.Direction,
		"duration_ms": res.Duration.Milliseconds(),
	})
	if res.Error != nil {
		entry.WithError(res.Error).Error("migration_failed")
		return
	}
	entry.Info("migration_applied")
}
