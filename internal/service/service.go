package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"hedgewatch/internal/alerting"
	"hedgewatch/internal/analysis"
	"hedgewatch/internal/config"
	"hedgewatch/internal/fetcher"
	"hedgewatch/internal/storage"
)

// Service orchestrates one collection cycle: ordered source chains with
// fallback, persistence, change classification, and signal alerting.
type Service struct {
	fuelSources     []fetcher.FuelSource
	currencySources []fetcher.CurrencySource
	store           storage.ObservationStore
	alertStore      storage.AlertStore
	notifier        alerting.Notifier
	logger          zerolog.Logger

	cycleTimeout time.Duration
	channels     []string
	alertsOn     bool
	locker       storage.AdvisoryLocker
	lockKey      int64
}

// CycleResult reports a completed collection cycle to the caller.
type CycleResult struct {
	Skipped        bool
	Fuel           storage.FuelObservation
	Currency       storage.CurrencyObservation
	FuelSignal     analysis.FuelSignal
	CurrencySignal analysis.CurrencySignal
	Message        string
}

// New constructs the collection service.
func New(cfg *config.Config, fuelSources []fetcher.FuelSource, currencySources []fetcher.CurrencySource, store storage.ObservationStore, alertStore storage.AlertStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		fuelSources:     fuelSources,
		currencySources: currencySources,
		store:           store,
		alertStore:      alertStore,
		notifier:        notifier,
		logger:          logger.With().Str("component", "service").Logger(),
		cycleTimeout:    cfg.Collector.CycleTimeout,
		channels:        cfg.Alerting.Channels,
		alertsOn:        cfg.Alerting.Enabled,
		locker:          locker,
		lockKey:         cfg.Scheduler.AdvisoryLockKey,
	}
}

// RunCycle 执行一次完整的采集周期。
func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	if s.store == nil {
		return CycleResult{}, fmt.Errorf("observation store not configured")
	}

	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return CycleResult{}, err
	}
	if !proceed {
		s.logger.Debug().Msg("skip cycle because advisory lock held elsewhere")
		return CycleResult{Skipped: true, Message: "collection skipped: another cycle is in progress"}, nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.executeCycle(ctx)
}

func (s *Service) executeCycle(ctx context.Context) (CycleResult, error) {
	// Each network call carries its own client timeout; the fetch phase as a
	// whole is additionally bounded so a cycle cannot hang past this deadline.
	fetchCtx, cancel := context.WithTimeout(ctx, s.cycleTimeout)
	fuelObs := s.resolveFuel(fetchCtx)
	currencyObs := s.resolveCurrency(fetchCtx)
	cancel()

	// Fetched values are not retried or re-queued on write failure; data for
	// the cycle is lost and the cycle reported failed.
	if err := s.store.InsertFuelObservation(ctx, fuelObs); err != nil {
		return CycleResult{}, fmt.Errorf("persist fuel observation: %w", err)
	}
	if err := s.store.InsertCurrencyObservation(ctx, currencyObs); err != nil {
		return CycleResult{}, fmt.Errorf("persist currency observation: %w", err)
	}

	fuelSignal, currencySignal := s.classifyAndAlert(ctx, fuelObs, currencyObs)

	s.logger.Info().
		Str("jet_fuel", fuelObs.JetFuel.String()).
		Str("usd_inr", currencyObs.USDINR.String()).
		Str("fuel_source", fuelObs.Source).
		Str("currency_source", currencyObs.Source).
		Str("fuel_signal", string(fuelSignal)).
		Str("currency_signal", string(currencySignal)).
		Msg("collection cycle completed")

	return CycleResult{
		Fuel:           fuelObs,
		Currency:       currencyObs,
		FuelSignal:     fuelSignal,
		CurrencySignal: currencySignal,
		Message: fmt.Sprintf("collection cycle completed: jet fuel $%s/gal (%s), USD/INR ₹%s (%s)",
			fuelObs.JetFuel.StringFixed(3), fuelObs.Source,
			currencyObs.USDINR.StringFixed(2), currencyObs.Source),
	}, nil
}

// resolveFuel tries each fuel source in order and falls back to a synthetic
// observation when every source is exhausted. It never fails.
func (s *Service) resolveFuel(ctx context.Context) storage.FuelObservation {
	for _, src := range s.fuelSources {
		obs, err := src.FetchFuel(ctx)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("domain", "fuel").
				Str("source", src.Name()).
				Msg("fuel source failed, falling through")
			continue
		}
		return obs
	}

	s.logger.Warn().Str("domain", "fuel").Msg("all fuel sources exhausted, generating fallback observation")
	return fetcher.FallbackFuel(time.Now().UTC())
}

func (s *Service) resolveCurrency(ctx context.Context) storage.CurrencyObservation {
	for _, src := range s.currencySources {
		obs, err := src.FetchCurrency(ctx)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("domain", "currency").
				Str("source", src.Name()).
				Msg("currency source failed, falling through")
			continue
		}
		return obs
	}

	s.logger.Warn().Str("domain", "currency").Msg("all currency sources exhausted, generating fallback observation")
	return fetcher.FallbackCurrency(time.Now().UTC())
}

// classifyAndAlert derives signals from the two newest records of each series
// (which now include this cycle's rows). Signals are advisory: read or alert
// failures here never fail the cycle.
func (s *Service) classifyAndAlert(ctx context.Context, fuelObs storage.FuelObservation, currencyObs storage.CurrencyObservation) (analysis.FuelSignal, analysis.CurrencySignal) {
	fuelSignal := analysis.FuelMonitor
	currencySignal := analysis.CurrencyStable

	fuelSeries, err := s.store.ListRecentFuel(ctx, 2)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load fuel series for classification")
	} else {
		changes := analysis.FuelChanges(fuelSeries)
		fuelSignal = analysis.ClassifyFuel(changes.Get(analysis.InstrumentJetFuel))
		if fuelSignal.Urgent() {
			s.dispatchAlert(ctx, alerting.Notification{
				Timestamp:   fuelObs.Timestamp,
				Domain:      "fuel",
				Instrument:  analysis.InstrumentJetFuel,
				Signal:      string(fuelSignal),
				Description: fuelSignal.Description(),
				ChangePct:   changes.Get(analysis.InstrumentJetFuel),
				LatestValue: fuelObs.JetFuel,
				Channels:    s.channels,
			})
		}
	}

	currencySeries, err := s.store.ListRecentCurrency(ctx, 2)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load currency series for classification")
	} else {
		changes := analysis.CurrencyChanges(currencySeries)
		currencySignal = analysis.ClassifyCurrency(changes.Get(analysis.InstrumentUSDINR))
		if currencySignal.Urgent() {
			s.dispatchAlert(ctx, alerting.Notification{
				Timestamp:   currencyObs.Timestamp,
				Domain:      "currency",
				Instrument:  analysis.InstrumentUSDINR,
				Signal:      string(currencySignal),
				Description: currencySignal.Description(),
				ChangePct:   changes.Get(analysis.InstrumentUSDINR),
				LatestValue: currencyObs.USDINR,
				Channels:    s.channels,
			})
		}
	}

	return fuelSignal, currencySignal
}

func (s *Service) dispatchAlert(ctx context.Context, note alerting.Notification) {
	if s.alertStore != nil {
		record := storage.AlertRecord{
			Domain:    note.Domain,
			Signal:    note.Signal,
			ChangePct: note.ChangePct,
			Channels:  note.Channels,
		}
		if _, err := s.alertStore.InsertAlert(ctx, record); err != nil {
			s.logger.Error().Err(err).Str("domain", note.Domain).Msg("failed to persist alert record")
		}
	}

	if !s.alertsOn || s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Str("domain", note.Domain).Msg("failed to dispatch alert")
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
