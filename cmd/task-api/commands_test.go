package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateCommand_SQLite(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "tasks.db"))

	for _, args := range [][]string{
		{"migrate", "up"},
		{"migrate", "status"},
		{"migrate", "down"},
	} {
		root := newRootCommand()
		root.SetArgs(append(args, "--config-dir", t.TempDir()))
		require.NoError(t, root.Execute(), args)
	}
}

func TestMigrateCommand_RejectsUnknownAction(t *testing.T) {
	t.Setenv("GO_ENV", "test")

	root := newRootCommand()
	root.SetArgs([]string{"migrate", "sideways", "--config-dir", t.TempDir()})
	assert.Error(t, root.Execute())
}
