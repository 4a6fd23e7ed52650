package coachflow

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseArgs(t *testing.T, args ...string) (Command, *Config, error) {
	t.Helper()
	return parse(args, filepath.Join(t.TempDir(), "missing.env"), io.Discard)
}

func TestParseDefaults(t *testing.T) {
	cmd, config, err := parseArgs(t, "run")
	require.NoError(t, err)

	assert.IsType(t, &RunCommand{}, cmd)
	assert.Equal(t, "run", cmd.Name())
	assert.Equal(t, StoreMemory, config.Store)
	assert.Equal(t, "8080", config.Port)
	assert.False(t, config.ReadOnly)
	assert.Zero(t, config.Latency)
	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, "ws://localhost:8000/rpc", config.SurrealDB.URL)
	assert.Equal(t, "coachflow", config.SurrealDB.Namespace)
	assert.Equal(t, "coachflow", config.SurrealDB.Database)
}

func TestParseCommands(t *testing.T) {
	for name, want := range map[string]Command{
		"run":     &RunCommand{},
		"migrate": &MigrateCommand{},
		"seed":    &SeedCommand{},
	} {
		t.Run(name, func(t *testing.T) {
			cmd, _, err := parseArgs(t, name)
			require.NoError(t, err)
			assert.IsType(t, want, cmd)
			assert.Equal(t, name, cmd.Name())
		})
	}
}

func TestParseFlags(t *testing.T) {
	_, config, err := parseArgs(t,
		"-store", "surrealdb",
		"-port", "9090",
		"-read-only",
		"-latency", "250ms",
		"-log-level", "debug",
		"-log-console",
		"seed",
	)
	require.NoError(t, err)

	assert.Equal(t, StoreSurrealDB, config.Store)
	assert.Equal(t, "9090", config.Port)
	assert.True(t, config.ReadOnly)
	assert.Equal(t, 250*time.Millisecond, config.Latency)
	assert.Equal(t, "debug", config.LogLevel)
	assert.True(t, config.LogConsole)
}

func TestParseEnvironment(t *testing.T) {
	t.Setenv("COACHFLOW_PORT", "7000")
	t.Setenv("COACHFLOW_STORE", "postgres")
	t.Setenv("COACHFLOW_POSTGRES_DSN", "postgres://u:p@db:5432/coach")
	t.Setenv("COACHFLOW_SURREALDB_NS", "practice")

	_, config, err := parseArgs(t, "migrate")
	require.NoError(t, err)
	assert.Equal(t, "7000", config.Port)
	assert.Equal(t, StorePostgres, config.Store)
	assert.Equal(t, "postgres://u:p@db:5432/coach", config.PostgresDSN)
	assert.Equal(t, "practice", config.SurrealDB.Namespace)

	t.Run("flags win", func(t *testing.T) {
		_, config, err := parseArgs(t, "-port", "7100", "run")
		require.NoError(t, err)
		assert.Equal(t, "7100", config.Port)
	})
}

func TestParseDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("COACHFLOW_LOG_LEVEL=warn\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("COACHFLOW_LOG_LEVEL") })

	_, config, err := parse([]string{"run"}, path, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "warn", config.LogLevel)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no command", nil, "subcommand required"},
		{"unknown command", []string{"serve"}, "unknown command: serve"},
		{"unknown store", []string{"-store", "mongo", "run"}, "invalid store: mongo"},
		{"negative latency", []string{"-latency", "-1s", "run"}, "invalid latency"},
		{"unknown flag", []string{"-verbose", "run"}, "flag provided but not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseArgs(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
