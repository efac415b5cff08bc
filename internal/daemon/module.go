// Package daemon composes the engine's components into a running process.
package daemon

import (
	"context"

	"github.com/mrotondi/chatengine/internal/bus"
	"github.com/mrotondi/chatengine/internal/config"
	"github.com/mrotondi/chatengine/internal/fetch"
	"github.com/mrotondi/chatengine/internal/group"
	"github.com/mrotondi/chatengine/internal/ingest"
	"github.com/mrotondi/chatengine/internal/lock"
	"github.com/mrotondi/chatengine/internal/logging"
	"github.com/mrotondi/chatengine/internal/media"
	"github.com/mrotondi/chatengine/internal/notify"
	"github.com/mrotondi/chatengine/internal/outbox"
	"github.com/mrotondi/chatengine/internal/profile"
	"github.com/mrotondi/chatengine/internal/store"
	"github.com/mrotondi/chatengine/internal/tasks"
	"github.com/mrotondi/chatengine/internal/transport"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile string
}

// Module returns the fx module for the daemon, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideTasks,
			provideGate,
			provideDebouncer,
			provideProcessor,
			provideDownloader,
			providePreparer,
			provideLoopback,
			provideEngine,
			provideManager,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) *config.Config {
	// Missing or malformed config falls back to defaults; the logger is not
	// up yet at this point.
	cfg, err := config.Load(profile.ConfigPath())
	if err != nil {
		cfg = config.Default()
	}
	if cfg.Downloads.Dir == "" {
		cfg.Downloads.Dir = profile.DownloadDir(p.Profile)
	}
	return cfg
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.Profile), p.Profile)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.Profile))
	l, err := lock.Acquire(profile.Dir(p.Profile))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.DBPath(p.Profile)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideTasks(logger *zap.Logger) *tasks.Runner {
	return tasks.NewRunner(64, logger)
}

func provideGate(b *bus.Bus) notify.Gate {
	return notify.NewBusGate(b)
}

func provideDebouncer(gate notify.Gate, cfg *config.Config) *notify.Debouncer {
	return notify.NewDebouncer(gate, cfg.DebounceWindow())
}

func provideProcessor(db *store.DB, cfg *config.Config, logger *zap.Logger) *group.Processor {
	return group.NewProcessor(db, cfg.IsSelf, logger)
}

func provideDownloader(db *store.DB, runner *tasks.Runner, b *bus.Bus, cfg *config.Config, logger *zap.Logger) *fetch.Downloader {
	return fetch.NewDownloader(db, runner, b, cfg.Downloads.Dir, logger)
}

func providePreparer(runner *tasks.Runner, logger *zap.Logger) *media.Preparer {
	return media.NewPreparer(runner, logger)
}

func provideLoopback(b *bus.Bus, logger *zap.Logger) *transport.Loopback {
	return transport.NewLoopback(b, logger)
}

func provideEngine(db *store.DB, groups *group.Processor, b *bus.Bus, gate notify.Gate, debounce *notify.Debouncer, dl *fetch.Downloader, runner *tasks.Runner, cfg *config.Config, logger *zap.Logger) *ingest.Engine {
	return ingest.NewEngine(db, groups, b, gate, debounce, dl, runner, cfg, logger)
}

func provideManager(db *store.DB, dispatcher *transport.Loopback, preparer *media.Preparer, b *bus.Bus, cfg *config.Config, logger *zap.Logger) *outbox.Manager {
	return outbox.NewManager(db, dispatcher, preparer, b, cfg, logger)
}

func registerLifecycle(lc fx.Lifecycle, lk *lock.Lock, db *store.DB, runner *tasks.Runner, engine *ingest.Engine, manager *outbox.Manager, dispatcher *transport.Loopback, preparer *media.Preparer, debounce *notify.Debouncer, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Close the construction cycles before anything can send.
			dispatcher.SetAcker(manager)
			preparer.SetSink(manager)

			runner.Start(context.Background())
			engine.Start(context.Background())

			logger.Info("engine started")
			return nil
		},
		OnStop: func(_ context.Context) error {
			engine.Stop()
			debounce.Stop()
			runner.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
