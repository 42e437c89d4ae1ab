package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/config"
)

func TestResolveTask(t *testing.T) {
	t.Run("from argument", func(t *testing.T) {
		taskFile = ""
		task, err := resolveTask([]string{"  what is the capital?  "})
		require.NoError(t, err)
		assert.Equal(t, "what is the capital?", task)
	})

	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "task.txt")
		require.NoError(t, os.WriteFile(path, []byte("solve this\n"), 0o644))

		taskFile = path
		defer func() { taskFile = "" }()

		task, err := resolveTask(nil)
		require.NoError(t, err)
		assert.Equal(t, "solve this", task)
	})

	t.Run("missing task", func(t *testing.T) {
		taskFile = ""
		_, err := resolveTask(nil)
		require.Error(t, err)
	})
}

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LoggingConfig
		verbose bool
		level   slog.Level
	}{
		{"default info", config.LoggingConfig{}, false, slog.LevelInfo},
		{"configured warn", config.LoggingConfig{Level: "warn"}, false, slog.LevelWarn},
		{"verbose overrides", config.LoggingConfig{Level: "error"}, true, slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verbose = tt.verbose
			defer func() { verbose = false }()

			logger := newLogger(tt.cfg)
			assert.True(t, logger.Enabled(context.Background(), tt.level))
			assert.False(t, logger.Enabled(context.Background(), tt.level-1))
		})
	}
}
