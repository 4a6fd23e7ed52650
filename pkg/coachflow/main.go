package coachflow

import (
	"context"
	"fmt"

	"github.com/apper-apps/coachflow-optimal/pkg/logger"
)

// Main parses args, builds the application and executes the selected command.
// It can be called from tests without building the binary; cancelling ctx stops
// a running server.
//
// # Environment Variables
//
//	COACHFLOW_STORE          - memory (default), postgres or surrealdb
//	COACHFLOW_PORT           - HTTP port (default: 8080)
//	COACHFLOW_POSTGRES_DSN   - PostgreSQL connection string
//	COACHFLOW_SURREALDB_URL  - SurrealDB WebSocket URL (default: ws://localhost:8000/rpc)
//	COACHFLOW_SURREALDB_NS   - SurrealDB namespace (default: coachflow)
//	COACHFLOW_SURREALDB_DB   - SurrealDB database (default: coachflow)
//	COACHFLOW_SURREALDB_USER - SurrealDB username (default: root)
//	COACHFLOW_SURREALDB_PASS - SurrealDB password (default: root)
func Main(ctx context.Context, args []string) error {
	cmd, config, err := Parse(args)
	if err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}

	build := logger.New().WithLevel(config.LogLevel).Console(config.LogConsole)
	if config.LogFile != "" {
		build = build.FromPath(config.LogFile)
	}
	logData, err := build.Make()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logData.Close()

	app, err := New(ctx, config, logData.Logger)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer app.Close()

	return app.Execute(ctx, cmd)
}

// Execute runs cmd against the application.
func (a *App) Execute(ctx context.Context, cmd Command) error {
	switch c := cmd.(type) {
	case *MigrateCommand:
		if err := a.Migrate(ctx, c); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	case *SeedCommand:
		if _, err := a.Seed(ctx, c); err != nil {
			return fmt.Errorf("seed failed: %w", err)
		}
	case *RunCommand:
		if err := a.Run(ctx, c); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	default:
		return fmt.Errorf("unknown command type: %T", cmd)
	}
	return nil
}
