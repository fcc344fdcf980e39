package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inventory-sync/core/clock"
	"inventory-sync/core/config"
	"inventory-sync/core/database"
	"inventory-sync/core/kv"
	"inventory-sync/core/logger"
	"inventory-sync/core/reconcile"
	"inventory-sync/core/storage"
	"inventory-sync/feature/archive"
	"inventory-sync/feature/health"
	"inventory-sync/feature/monitor"
	"inventory-sync/feature/netbox"
	"inventory-sync/feature/notify"
	"inventory-sync/feature/zabbix"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// healthTimeout bounds each connectivity check.
const healthTimeout = 15 * time.Second

// app holds the components shared by the commands. Fields are nil when the
// corresponding backend is disabled or failed to open in lenient mode.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	clock  clock.Clock

	db       *gorm.DB
	state    kv.Store
	source   *zabbix.Client
	registry *netbox.Registry
	sites    reconcile.SiteMap
	notifier *notify.Dispatcher
	objects  storage.Client
	archive  *archive.Archive
	engine   *reconcile.Engine

	// openErrs collects backend failures tolerated in lenient mode.
	openErrs map[string]error
}

// loadRuntime reads and validates the configuration and builds the logger.
func loadRuntime() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, l, nil
}

// newApp connects every backend. With lenient set, state and archive
// failures are recorded in openErrs instead of aborting, so diagnostics can
// still report on the rest.
func newApp(ctx context.Context, dryRun, lenient bool) (*app, error) {
	cfg, l, err := loadRuntime()
	if err != nil {
		return nil, err
	}
	if dryRun {
		cfg.Monitor.DryRun = true
	}

	a := &app{cfg: cfg, logger: l, clock: clock.Real(), openErrs: map[string]error{}}
	fail := func(component string, err error) error {
		if lenient {
			l.Warn("Component unavailable", zap.String("component", component), zap.Error(err))
			a.openErrs[component] = err
			return nil
		}
		a.close()
		return fmt.Errorf("%s: %w", component, err)
	}

	if err := a.openState(ctx); err != nil {
		if ferr := fail("state", err); ferr != nil {
			return nil, ferr
		}
	}

	a.source = zabbix.NewClient(cfg.Source, l.Named("zabbix"))
	a.registry = netbox.NewRegistry(netbox.NewClient(cfg.Registry, l.Named("netbox")), cfg.Registry, a.clock, l.Named("netbox"))

	sites, err := netbox.LoadSiteMap(cfg.Registry.SiteMapFile)
	if err != nil {
		a.close()
		return nil, err
	}
	a.sites = sites

	a.notifier, err = notify.New(ctx, cfg.Notify, l.Named("notify"))
	if err != nil {
		a.close()
		return nil, fmt.Errorf("notify: %w", err)
	}

	if cfg.Storage.Enabled {
		if err := a.openArchive(ctx); err != nil {
			if ferr := fail("storage", err); ferr != nil {
				return nil, ferr
			}
		}
	}

	if a.state != nil {
		policy, err := cfg.Monitor.Policy()
		if err != nil {
			a.close()
			return nil, err
		}
		a.engine = reconcile.NewEngine(reconcile.Deps{
			Source:   a.source,
			Registry: a.registry,
			Notifier: a.notifier,
			Store:    a.state,
			Sites:    a.sites,
			Clock:    a.clock,
			Logger:   l.Named("engine"),
		}, reconcile.Options{
			Prefix:        cfg.State.Prefix,
			TTL:           cfg.State.TTL,
			Policy:        policy,
			Workers:       cfg.Monitor.Workers,
			FetchTimeout:  cfg.Source.Timeout,
			EntityTimeout: cfg.Monitor.EntityTimeout,
			NotifyTimeout: cfg.Notify.Timeout,
			StoreTimeout:  cfg.State.Timeout,
			DryRun:        cfg.Monitor.DryRun,
		})
	}
	return a, nil
}

func (a *app) openState(ctx context.Context) error {
	if a.cfg.State.Backend == kv.BackendSQL || a.cfg.State.Backend == "" {
		db, err := database.Connect(a.cfg.Database)
		if err != nil {
			return err
		}
		a.db = db
	}
	store, err := kv.Open(ctx, a.cfg.State, a.db, a.clock)
	if err != nil {
		return err
	}
	a.state = store
	return nil
}

func (a *app) openArchive(ctx context.Context) error {
	client, err := storage.NewClient(a.cfg.Storage)
	if err != nil {
		return err
	}
	a.objects = client
	arch := archive.New(client, a.cfg.Storage.Bucket, a.cfg.Storage.Retention, a.clock, a.logger.Named("archive"))
	if err := arch.Ensure(ctx); err != nil {
		return err
	}
	a.archive = arch
	return nil
}

// monitorService wires the engine into a monitor. The archive is left out
// when storage is disabled.
func (a *app) monitorService() *monitor.Service {
	if a.engine == nil {
		return nil
	}
	var archiver monitor.Archiver
	if a.archive != nil {
		archiver = a.archive
	}
	return monitor.NewService(a.engine, archiver, a.cfg.Monitor, a.clock, a.logger.Named("monitor"))
}

// healthService builds the connectivity checks for the configured backends.
func (a *app) healthService() *health.Service {
	checks := []health.Check{
		health.SourceCheck(a.source),
		health.RegistryCheck(a.registry),
	}

	if a.state != nil {
		checks = append(checks, health.StateCheck(a.state, a.cfg.State.Prefix))
	} else {
		checks = append(checks, failedCheck("state", true, a.openErrs["state"]))
	}
	if a.db != nil {
		checks = append(checks, health.SchemaCheck(a.db))
	}

	if ch, ok := a.notifier.Channel(notify.ChannelTelegram); ok {
		if bot, ok := ch.(health.BotChecker); ok {
			checks = append(checks, health.TelegramCheck(bot))
		}
	}

	if a.cfg.Storage.Enabled {
		if a.objects != nil {
			checks = append(checks, health.StorageCheck(a.objects, a.cfg.Storage.Bucket))
		} else {
			checks = append(checks, failedCheck("storage", false, a.openErrs["storage"]))
		}
	}

	return health.NewService(healthTimeout, a.logger.Named("health"), checks...)
}

// failedCheck reports a component that could not be opened.
func failedCheck(name string, required bool, cause error) health.Check {
	if cause == nil {
		cause = errors.New("not initialized")
	}
	return health.Check{Name: name, Required: required, Run: func(context.Context) (string, error) {
		return "", cause
	}}
}

// close releases every opened backend.
func (a *app) close() {
	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			a.logger.Warn("Failed to close notifier", zap.Error(err))
		}
	}
	if a.state != nil {
		if err := a.state.Close(); err != nil {
			a.logger.Warn("Failed to close state store", zap.Error(err))
		}
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = a.logger.Sync()
}
