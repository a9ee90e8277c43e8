// Package app wires the configured services into one application context
// shared by the command line tools.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"sync"
	"time"

	"github.com/mwantia/alder/internal/config"
	"github.com/mwantia/alder/pkg/db/migrations"
	"github.com/mwantia/alder/pkg/db/store"
	"github.com/mwantia/alder/pkg/ingest"
	"github.com/mwantia/alder/pkg/log"
	"github.com/mwantia/alder/pkg/opal"
	"github.com/mwantia/alder/pkg/records"
	"github.com/mwantia/fabric/pkg/container"
)

// App owns the store connection and the Opal client. Both are used
// sequentially by one command at a time.
type App struct {
	mutex sync.Mutex

	cfg *config.BaseConfig
	sc  *container.ServiceContainer
	log log.LoggerService

	store    *store.Store
	opal     *opal.Client
	repo     *records.Repository
	pipeline *ingest.Pipeline
}

func New(cfg *config.BaseConfig) *App {
	return &App{
		cfg: cfg,
		sc:  container.NewServiceContainer(),
		log: log.NewLoggerService("alder", cfg.Log),
	}
}

func (a *App) Config() *config.BaseConfig { return a.cfg }
func (a *App) Logger() log.LoggerService { return a.log }
func (a *App) Store() *store.Store { return a.store }
func (a *App) Opal() *opal.Client { return a.opal }
func (a *App) Repository() *records.Repository { return a.repo }
func (a *App) Pipeline() *ingest.Pipeline { return a.pipeline }

// Open connects the store and builds every service. The schema is
// migrated first when migrate is set.
func (a *App) Open(ctx context.Context, migrate bool) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.store != nil {
		return nil
	}

	if err := a.registerLogger(); err != nil {
		return err
	}

	s, err := store.NewSQLiteStore(store.SQLiteConfig{
		Path:       a.cfg.Database.SQLite.Path,
		LogQueries: a.cfg.Database.LogQueries,
		Logger:     a.componentLogger(ctx, "store"),
	})
	if err != nil {
		return err
	}
	if err := s.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to '%s': %w", a.cfg.Database.SQLite.Path, err)
	}

	if migrate {
		applied, err := migrations.NewMigrator(s.DB()).Migrate(ctx)
		if err != nil {
			_ = s.Close()
			return err
		}
		if applied > 0 {
			a.log.Info("Applied %d migrations", applied)
		}
	}

	client, err := opal.NewClient(a.cfg.Opal, opal.WithLogger(a.componentLogger(ctx, "opal")))
	if err != nil {
		_ = s.Close()
		return err
	}

	if err := a.setupServices(s, client); err != nil {
		_ = s.Close()
		return err
	}
	if err := a.buildServices(ctx); err != nil {
		_ = s.Close()
		return err
	}

	a.store = s
	a.opal = client
	return nil
}

func (a *App) registerLogger() error {
	a.log.Debug("Registering 'LoggerService'...")
	return container.Register[log.LoggerServiceImpl](a.sc,
		container.With[log.LoggerService](),
		container.WithInstance(a.log))
}

// componentLogger resolves the registered logger the way a
// `fabric:"logger:<name>"` field would receive it.
func (a *App) componentLogger(ctx context.Context, name string) log.LoggerService {
	field := reflect.StructField{Name: name}
	resolved, err := log.NewLoggerTagProcessor().Process(ctx, a.sc, field, "logger:"+name)
	if err != nil {
		a.log.Warn("Falling back to a local logger for '%s': %v", name, err)
		return a.log.Named(name)
	}
	return resolved.(log.LoggerService)
}

func (a *App) setupServices(s *store.Store, client *opal.Client) error {
	errs := container.Errors{}

	a.log.Debug("Registering 'Store'...")
	errs.Add(container.Register[*store.Store](a.sc,
		container.WithInstance(s)))

	a.log.Debug("Registering 'Client'...")
	errs.Add(container.Register[*opal.Client](a.sc,
		container.With[ingest.Remote](),
		container.WithInstance(client)))

	return errs.Errors()
}

// buildServices resolves the registered store and remote and builds the
// record repository and ingestion pipeline on top of them.
func (a *App) buildServices(ctx context.Context) error {
	s, err := container.Resolve[*store.Store](ctx, a.sc)
	if err != nil {
		return err
	}
	remote, err := container.Resolve[ingest.Remote](ctx, a.sc)
	if err != nil {
		return err
	}

	a.repo = records.NewRepository(s, a.cfg.Images.Root, a.componentLogger(ctx, "records"))
	a.pipeline = ingest.NewPipeline(a.repo, remote, a.componentLogger(ctx, "ingest"), a.cfg.Opal.PageSize)
	return nil
}

// Run opens the application and calls fn with a context cancelled on
// interrupt. Cancellation reaches the Opal client as an abort.
func (a *App) Run(ctx context.Context, migrate bool, fn func(ctx context.Context) error) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	if err := a.Open(ctx, migrate); err != nil {
		return err
	}

	runErr := fn(ctx)
	if opal.IsAborted(runErr) {
		a.log.Warn("Interrupted")
		runErr = nil
	}

	return errors.Join(runErr, a.Close())
}

// Close releases the container and the store connection.
func (a *App) Close() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.store == nil {
		return nil
	}

	timeout, err := time.ParseDuration(a.cfg.ShutdownTimeout)
	if err != nil {
		timeout = 10 * time.Second
	}

	shutdown, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := a.sc.Cleanup(shutdown); err != nil {
		errs = append(errs, fmt.Errorf("failed to complete service container cleanup: %w", err))
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, err)
	}

	a.store = nil
	return errors.Join(errs...)
}
