package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"hedgewatch/internal/alerting"
	"hedgewatch/internal/config"
	"hedgewatch/internal/fetcher"
	"hedgewatch/internal/scheduler"
	"hedgewatch/internal/service"
	"hedgewatch/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFutures() *fetcher.Futures {
	return fetcher.NewFutures(fetcher.FuturesOptions{
		BaseURL:   a.Config.Providers.Futures.BaseURL,
		Timeout:   a.Config.Providers.Futures.RequestTimeout,
		UserAgent: a.Config.Providers.Futures.UserAgent,
	}, a.Logger)
}

// newFuelSources returns the fuel domain's ordered source chain.
func (a *App) newFuelSources() []fetcher.FuelSource {
	return []fetcher.FuelSource{a.newFutures()}
}

// newCurrencySources returns the currency domain's ordered source chain:
// the rate-table provider first, direct pair quotes only if it fails.
func (a *App) newCurrencySources() []fetcher.CurrencySource {
	rateTable := fetcher.NewRateTable(fetcher.RateTableOptions{
		BaseURL:   a.Config.Providers.RateTable.BaseURL,
		Timeout:   a.Config.Providers.RateTable.RequestTimeout,
		UserAgent: a.Config.Providers.RateTable.UserAgent,
	}, a.Logger)

	return []fetcher.CurrencySource{rateTable, a.newFutures()}
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newService(store *storage.Store) *service.Service {
	var obsStore storage.ObservationStore
	var alertStore storage.AlertStore
	if store != nil {
		obsStore = store
		alertStore = store
	}

	return service.New(
		a.Config,
		a.newFuelSources(),
		a.newCurrencySources(),
		obsStore,
		alertStore,
		a.newNotifier(),
		a.Logger,
	)
}

// Watch runs scheduled collection cycles until interrupted.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot run collection")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	svc := a.newService(store)

	a.Logger.Info().Dur("interval", a.Config.Scheduler.Interval).Msg("starting collection watch")
	err = sched.Run(ctx, func(ctx context.Context) error {
		_, err := svc.RunCycle(ctx)
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch terminated with error")
		return err
	}

	a.Logger.Info().Msg("collection watch stopped")
	return nil
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting a series.
type ExportOptions struct {
	Series    string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}
