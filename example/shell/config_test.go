package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	t.Run("missing file gives defaults", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "none.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("values from file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "cmdshell.yaml")
		data := "delimiter: \"$ \"\ntheme: light\nmax_history: 10\nhistory:\n  - ls\n  - pwd\n"
		require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, &Config{
			Delimiter:  "$ ",
			Theme:      "light",
			MaxHistory: 10,
			History:    []string{"ls", "pwd"},
		}, cfg)

		options, err := cfg.Options()
		require.NoError(t, err)
		assert.Len(t, options, 4)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "cmdshell.yaml")
		require.NoError(t, os.WriteFile(path, []byte("history: [unterminated"), 0o600))

		_, err := LoadConfig(path)
		assert.ErrorContains(t, err, "failed to parse config file")
	})
}

func TestConfigOptions(t *testing.T) {
	t.Parallel()

	t.Run("unknown theme", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultConfig()
		cfg.Theme = "solarized"
		_, err := cfg.Options()
		assert.ErrorContains(t, err, "unknown theme")
	})

	t.Run("log file", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultConfig()
		cfg.LogFile = filepath.Join(t.TempDir(), "shell.log")
		options, err := cfg.Options()
		require.NoError(t, err)
		assert.Len(t, options, 5)
	})
}
