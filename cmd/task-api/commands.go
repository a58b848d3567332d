package main

import (
	"context"
	"fmt"

	"github.com/KarpovAlexandrGo/task-api/internal/app"
	"github.com/KarpovAlexandrGo/task-api/internal/config"
	"github.com/KarpovAlexandrGo/task-api/internal/repo/migrate"
	"github.com/KarpovAlexandrGo/task-api/pkg/logger"
	"github.com/spf13/cobra"
)

type cli struct {
	configDir string
	cfg       *config.Config
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "task-api",
		Short: "REST API for managing a to-do list",
		Long: `task-api serves the task list over HTTP.

Running it without a subcommand is the same as "task-api serve".

CONFIGURATION:
  Settings come from defaults, <config-dir>/config.yaml, a .env file
  (unless GO_ENV is set to something other than development) and the
  environment, in increasing order of precedence. See .env.example.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configDir)
			if err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve()
		},
	}
	root.PersistentFlags().StringVar(&c.configDir, "config-dir", "configs", "directory searched for config.yaml")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.serve()
			},
		},
		&cobra.Command{
			Use:       "migrate [up|down|status]",
			Short:     "Apply, roll back or list database migrations",
			Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
			ValidArgs: []string{migrate.CommandUp, migrate.CommandDown, migrate.CommandStatus},
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.migrate(cmd.Context(), args[0])
			},
		},
	)

	return root
}

func (c *cli) serve() error {
	a, err := app.NewApp(c.cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	return a.Run()
}

func (c *cli) migrate(ctx context.Context, command string) error {
	store, err := app.OpenStore(c.cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	logger.Log.WithField("driver", c.cfg.DBDriver).Info("Running migrations")
	return store.Migrate(ctx, command)
}
