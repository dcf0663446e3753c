package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"hedgewatch/internal/analysis"
	"hedgewatch/internal/storage"
)

// Show renders the terminal dashboard: latest metrics with deltas, hedging
// recommendations, freshness, and recent rows per series. Read-only and
// idempotent; it never touches acquisition state.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show dashboard")
	}
	if closeStore != nil {
		defer closeStore()
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = a.Config.Dashboard.HistoryLimit
	}

	// Read failures are a distinct "cannot load" state, not an empty dashboard.
	fuelSeries, err := store.ListRecentFuel(ctx, limit)
	if err != nil {
		return fmt.Errorf("cannot load dashboard data: %w", err)
	}
	currencySeries, err := store.ListRecentCurrency(ctx, limit)
	if err != nil {
		return fmt.Errorf("cannot load dashboard data: %w", err)
	}

	if len(fuelSeries) == 0 || len(currencySeries) == 0 {
		fmt.Fprintln(os.Stdout, "no data available yet; run 'hedgewatch collect' to fetch market data")
		return nil
	}

	fuelChanges := analysis.FuelChanges(fuelSeries)
	currencyChanges := analysis.CurrencyChanges(currencySeries)
	fuelSignal := analysis.ClassifyFuel(fuelChanges.Get(analysis.InstrumentJetFuel))
	currencySignal := analysis.ClassifyCurrency(currencyChanges.Get(analysis.InstrumentUSDINR))

	latestFuel := fuelSeries[0]
	latestCurrency := currencySeries[0]

	fmt.Fprintln(os.Stdout, "MARKET METRICS")
	metrics := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(metrics, "Instrument\tLatest\tChange\tSource")
	fmt.Fprintf(metrics, "Jet Fuel\t$%s\t%s\t%s\n",
		latestFuel.JetFuel.StringFixed(3), formatDelta(fuelChanges.Get(analysis.InstrumentJetFuel)), latestFuel.Source)
	fmt.Fprintf(metrics, "Brent Crude\t$%s\t%s\t%s\n",
		latestFuel.BrentCrude.StringFixed(2), formatDelta(fuelChanges.Get(analysis.InstrumentBrentCrude)), latestFuel.Source)
	fmt.Fprintf(metrics, "WTI Crude\t$%s\t%s\t%s\n",
		latestFuel.WTICrude.StringFixed(2), formatDelta(fuelChanges.Get(analysis.InstrumentWTICrude)), latestFuel.Source)
	fmt.Fprintf(metrics, "USD/INR\t₹%s\t%s\t%s\n",
		latestCurrency.USDINR.StringFixed(2), formatDelta(currencyChanges.Get(analysis.InstrumentUSDINR)), latestCurrency.Source)
	fmt.Fprintf(metrics, "EUR/INR\t₹%s\t%s\t%s\n",
		latestCurrency.EURINR.StringFixed(2), formatDelta(currencyChanges.Get(analysis.InstrumentEURINR)), latestCurrency.Source)
	fmt.Fprintf(metrics, "GBP/INR\t₹%s\t%s\t%s\n",
		latestCurrency.GBPINR.StringFixed(2), formatDelta(currencyChanges.Get(analysis.InstrumentGBPINR)), latestCurrency.Source)
	fmt.Fprintf(metrics, "JPY/INR\t₹%s\t%s\t%s\n",
		latestCurrency.JPYINR.StringFixed(6), formatDelta(currencyChanges.Get(analysis.InstrumentJPYINR)), latestCurrency.Source)
	metrics.Flush()

	fmt.Fprintf(os.Stdout, "\n%s\n", freshnessLine(latestFuel.Timestamp, latestCurrency.Timestamp, a.Config.Dashboard.FreshWithin))

	fmt.Fprintln(os.Stdout, "\nHEDGING RECOMMENDATIONS")
	fmt.Fprintf(os.Stdout, "  Fuel:     %s\n", fuelSignal.Description())
	fmt.Fprintf(os.Stdout, "  Currency: %s\n", currencySignal.Description())

	rows := a.Config.Dashboard.TableRows
	printFuelTable(fuelSeries, rows)
	printCurrencyTable(currencySeries, rows)

	a.printRecentAlerts(ctx, store)

	fuelTotal, err := store.CountFuelObservations(ctx)
	if err != nil {
		a.Logger.Debug().Err(err).Msg("failed to count fuel observations")
		return nil
	}
	currencyTotal, err := store.CountCurrencyObservations(ctx)
	if err != nil {
		a.Logger.Debug().Err(err).Msg("failed to count currency observations")
		return nil
	}
	fmt.Fprintf(os.Stdout, "\n%d fuel / %d currency observations stored\n", fuelTotal, currencyTotal)

	return nil
}

func printFuelTable(series []storage.FuelObservation, rows int) {
	fmt.Fprintln(os.Stdout, "\nRECENT FUEL PRICES")
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tJet Fuel\tBrent\tWTI\tSource")
	for i, obs := range series {
		if i >= rows {
			break
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
			obs.Timestamp.UTC().Format(time.RFC3339),
			obs.JetFuel.StringFixed(3),
			obs.BrentCrude.StringFixed(2),
			obs.WTICrude.StringFixed(2),
			obs.Source,
		)
	}
	writer.Flush()
}

func printCurrencyTable(series []storage.CurrencyObservation, rows int) {
	fmt.Fprintln(os.Stdout, "\nRECENT CURRENCY RATES")
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tUSD/INR\tEUR/INR\tGBP/INR\tJPY/INR\tSource")
	for i, obs := range series {
		if i >= rows {
			break
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n",
			obs.Timestamp.UTC().Format(time.RFC3339),
			obs.USDINR.StringFixed(2),
			obs.EURINR.StringFixed(2),
			obs.GBPINR.StringFixed(2),
			obs.JPYINR.StringFixed(6),
			obs.Source,
		)
	}
	writer.Flush()
}

func (a *App) printRecentAlerts(ctx context.Context, store *storage.Store) {
	alerts, err := store.ListRecentAlerts(ctx, 5)
	if err != nil {
		a.Logger.Debug().Err(err).Msg("failed to load recent alerts")
		return
	}
	if len(alerts) == 0 {
		return
	}

	fmt.Fprintln(os.Stdout, "\nRECENT ALERTS")
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tDomain\tSignal\tChange%")
	for _, alert := range alerts {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
			alert.CreatedAt.UTC().Format(time.RFC3339),
			alert.Domain,
			alert.Signal,
			alert.ChangePct.StringFixed(2),
		)
	}
	writer.Flush()
}

func formatDelta(change decimal.Decimal) string {
	rounded := change.Round(2)
	if rounded.Sign() >= 0 {
		return "+" + rounded.StringFixed(2) + "%"
	}
	return rounded.StringFixed(2) + "%"
}

func freshnessLine(fuelTS, currencyTS time.Time, freshWithin time.Duration) string {
	latest := fuelTS
	if currencyTS.After(latest) {
		latest = currencyTS
	}

	age := time.Since(latest)
	switch {
	case age < freshWithin:
		return fmt.Sprintf("data is fresh (updated %dm ago)", int(age.Minutes()))
	case age < time.Hour:
		return fmt.Sprintf("data is %dm old", int(age.Minutes()))
	default:
		return fmt.Sprintf("data is %dh old", int(age.Hours()))
	}
}
