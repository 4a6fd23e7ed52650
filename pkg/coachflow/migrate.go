package coachflow

import (
	"context"
	"fmt"
)

// Migrate prepares the schema of the configured store: GORM AutoMigrate on
// PostgreSQL, index definitions on SurrealDB and nothing for the memory store.
func (a *App) Migrate(ctx context.Context, cmd *MigrateCommand) error {
	a.log.Info().Str("store", a.config.Store).Msg("running migrations")
	if err := a.store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	a.log.Info().Msg("migrations completed")
	return nil
}
