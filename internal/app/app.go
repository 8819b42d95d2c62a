// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/paste-harvester/internal/clock/system"
	"github.com/JakeFAU/paste-harvester/internal/config"
	"github.com/JakeFAU/paste-harvester/internal/crawler"
	goqueryextractor "github.com/JakeFAU/paste-harvester/internal/extractor/goquery"
	collyfetcher "github.com/JakeFAU/paste-harvester/internal/fetcher/colly"
	"github.com/JakeFAU/paste-harvester/internal/id/uuid"
	"github.com/JakeFAU/paste-harvester/internal/logging"
	"github.com/JakeFAU/paste-harvester/internal/model"
	"github.com/JakeFAU/paste-harvester/internal/normalize"
	"github.com/JakeFAU/paste-harvester/internal/scheduler"
	"github.com/JakeFAU/paste-harvester/internal/storage/sqlite"
)

// tableEnsurer is satisfied by every sqlite.Table instantiation.
type tableEnsurer interface {
	Name() string
	EnsureTable(ctx context.Context) error
}

// App holds all the shared, long-lived services for the application.
// It is built once at startup, handed to the commands that need it and
// closed when the process exits.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	ownsLogger bool
	db         *sqlite.DB
	pastes     *sqlite.Table[*model.Paste]
	tables     []tableEnsurer
	controller *crawler.Controller
	scheduler  *scheduler.Scheduler
}

// Option customizes New.
type Option func(*options)

type options struct {
	logger  *zap.Logger
	fetcher crawler.Fetcher
	sleeper crawler.Sleeper
}

// WithLogger replaces the logger built from cfg.Logging.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithFetcher replaces the proxied colly fetcher. Retries still apply.
func WithFetcher(f crawler.Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithSleeper replaces the wall-clock sleeper used for retry delays and the
// inter-cycle window.
func WithSleeper(s crawler.Sleeper) Option {
	return func(o *options) { o.sleeper = s }
}

// New creates and wires every service from cfg. It fails fast if any
// component cannot be built. The database is opened lazily on first use.
func New(cfg config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: cfg, logger: o.logger}
	if a.logger == nil {
		logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
		a.logger = logger
		a.ownsLogger = true
	}
	l := a.logger
	l.Info("initializing application services", zap.String("database", cfg.Database.Filepath))

	clock := system.New()
	sleeper := o.sleeper
	if sleeper == nil {
		sleeper = clock
	}

	fetcher := o.fetcher
	if fetcher == nil {
		f, err := collyfetcher.New(collyfetcher.Config{
			UserAgent: cfg.HTTP.UserAgent,
			Timeout:   cfg.RequestTimeout(),
			Proxy: collyfetcher.ProxyConfig{
				Host:      cfg.Tor.Host,
				HTTPPort:  cfg.Tor.HTTPPort,
				HTTPSPort: cfg.Tor.HTTPSPort,
			},
		}, l.Named("fetcher"))
		if err != nil {
			return nil, fmt.Errorf("init fetcher: %w", err)
		}
		fetcher = f
	}
	retrying := crawler.NewRetryingFetcher(
		fetcher,
		crawler.NewFixedDelayPolicy(cfg.HTTP.MaxRetries, cfg.RetryDelay()),
		sleeper,
		l.Named("fetcher"),
	)

	pipeline := normalize.ForPaste(normalize.PasteOptions{
		DateInputFormat:  cfg.Normalize.DateInputFormat,
		DateOutputFormat: cfg.Normalize.DateDBFormat,
		AuthorAliases:    cfg.AuthorAliases(),
		UnknownAuthor:    cfg.Normalize.UnknownAuthorName,
	}, l.Named("normalize"))

	a.db = sqlite.New(cfg.Database.Filepath, l.Named("sqlite"))
	pastes, err := sqlite.NewTable(a.db, model.PasteManifest, cfg.Database.IDField, model.NewEmptyPaste, pipeline)
	if err != nil {
		return nil, fmt.Errorf("init paste table: %w", err)
	}
	a.pastes = pastes
	a.tables = append(a.tables, pastes)

	a.controller, err = crawler.NewController(crawler.Config{
		MainURL:       cfg.Website.MainURL,
		PageURLPrefix: cfg.Website.PageURLPrefix,
		DateFormat:    cfg.Normalize.DateDBFormat,
	}, crawler.Dependencies{
		Fetcher:    retrying,
		Extractor:  goqueryextractor.New(cfg.Extractor),
		Store:      pastes,
		Normalizer: pipeline,
		Clock:      clock,
		IDs:        uuid.New(),
		Logger:     l.Named("crawler"),
	})
	if err != nil {
		return nil, fmt.Errorf("init controller: %w", err)
	}
	a.scheduler = scheduler.New(a.controller, sleeper, cfg.Interval(), l.Named("runtime"))

	l.Info("application services initialized")
	return a, nil
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Database exposes the SQLite handle owner.
func (a *App) Database() *sqlite.DB {
	return a.db
}

// Pastes exposes the paste table.
func (a *App) Pastes() *sqlite.Table[*model.Paste] {
	return a.pastes
}

// Controller returns the crawl cycle controller.
func (a *App) Controller() *crawler.Controller {
	return a.controller
}

// Scheduler returns the cycle loop.
func (a *App) Scheduler() *scheduler.Scheduler {
	return a.scheduler
}

// EnsureSchema creates the backing table of every registered record type.
func (a *App) EnsureSchema(ctx context.Context) error {
	var errs []error
	for _, t := range a.tables {
		if err := t.EnsureTable(ctx); err != nil {
			errs = append(errs, fmt.Errorf("ensure %s: %w", t.Name(), err))
			continue
		}
		a.logger.Info("table ready", zap.String("table", t.Name()))
	}
	return errors.Join(errs...)
}

// Status reports the last cycle and the number of stored pastes.
func (a *App) Status(ctx context.Context) (Status, error) {
	count, err := a.pastes.Count(ctx)
	if err != nil {
		return Status{}, err
	}
	st := Status{Cycles: a.scheduler.Cycles(), StoredRecords: count}
	if last, ok := a.scheduler.Last(); ok {
		st.LastCycle = &last
	}
	return st, nil
}

// Status is the ops snapshot served by the status endpoint.
type Status struct {
	Cycles        int                  `json:"cycles"`
	StoredRecords int64                `json:"stored_records"`
	LastCycle     *crawler.CycleReport `json:"last_cycle,omitempty"`
}

// Close shuts down all services in the App container.
// It is called by a Cobra hook after the command finishes execution.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	if err := a.db.Close(); err != nil {
		a.logger.Warn("error closing database", zap.Error(err))
	}
	if a.ownsLogger {
		// Syncing stderr-backed loggers can fail harmlessly.
		_ = a.logger.Sync()
	}
}
