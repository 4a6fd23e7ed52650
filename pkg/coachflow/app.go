package coachflow

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/apper-apps/coachflow-optimal/pkg/coaching"
	"github.com/apper-apps/coachflow-optimal/pkg/store"
	"github.com/apper-apps/coachflow-optimal/pkg/store/memory"
	"github.com/apper-apps/coachflow-optimal/pkg/store/postgres"
	"github.com/apper-apps/coachflow-optimal/pkg/store/surrealdb"
)

// App holds the application state: the selected store behind the metrics and
// read-only wrappers, the services built on it, and the runtime read-only flag.
type App struct {
	config   *Config
	log      zerolog.Logger
	metrics  *Metrics
	store    store.Store
	services *coaching.Services
	readOnly atomic.Bool
}

// New connects to the store named by config and builds the application on it.
func New(ctx context.Context, config *Config, log zerolog.Logger) (*App, error) {
	base, err := openStore(ctx, config)
	if err != nil {
		return nil, err
	}
	log.Info().Str("store", config.Store).Msg("store connected")
	return NewWithStore(config, base, log), nil
}

// NewWithStore builds the application on an already opened store. The App takes
// ownership of base and closes it in Close.
func NewWithStore(config *Config, base store.Store, log zerolog.Logger) *App {
	app := &App{
		config:  config,
		log:     log,
		metrics: NewMetrics(),
	}
	app.readOnly.Store(config.ReadOnly)
	app.store = newMeteredStore(store.NewReadOnlyStore(base, app.IsReadOnly), app.metrics)
	app.services = coaching.New(app.store, log)
	return app
}

func openStore(ctx context.Context, config *Config) (store.Store, error) {
	switch config.Store {
	case StoreMemory:
		return memory.New(memory.WithLatency(config.Latency)), nil
	case StorePostgres:
		s, err := postgres.New(ctx, config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		return s, nil
	case StoreSurrealDB:
		s, err := surrealdb.New(ctx, config.SurrealDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store: %s", config.Store)
	}
}

// Close closes the application and its resources
func (a *App) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// Store returns the wrapped store the services use.
func (a *App) Store() store.Store {
	return a.store
}

func (a *App) Services() *coaching.Services {
	return a.services
}

func (a *App) Metrics() *Metrics {
	return a.metrics
}

// SetReadOnly switches read-only mode at runtime. While it is on, every write
// through the store fails with store.ErrReadOnly and reads keep working.
func (a *App) SetReadOnly(readOnly bool) {
	a.readOnly.Store(readOnly)
	a.log.Warn().Bool("read_only", readOnly).Msg("read-only mode changed")
}

func (a *App) IsReadOnly() bool {
	return a.readOnly.Load()
}
