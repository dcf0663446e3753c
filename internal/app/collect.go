package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Collect runs exactly one collection cycle and prints a summary block.
// The process exit status is the cycle's success/failure signal.
func (a *App) Collect(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot collect")
	}
	if closeStore != nil {
		defer closeStore()
	}

	svc := a.newService(store)

	result, err := svc.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("collection cycle failed: %w", err)
	}
	if result.Skipped {
		fmt.Fprintln(os.Stdout, result.Message)
		return nil
	}

	rule := strings.Repeat("=", 60)
	fmt.Fprintln(os.Stdout, rule)
	fmt.Fprintln(os.Stdout, "COLLECTION CYCLE COMPLETED")
	fmt.Fprintln(os.Stdout, rule)
	fmt.Fprintf(os.Stdout, "Timestamp: %s\n", result.Fuel.Timestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(os.Stdout, "\nFuel Prices (source: %s):\n", result.Fuel.Source)
	fmt.Fprintf(os.Stdout, "  Jet Fuel:    $%s\n", result.Fuel.JetFuel.StringFixed(3))
	fmt.Fprintf(os.Stdout, "  Brent Crude: $%s\n", result.Fuel.BrentCrude.StringFixed(2))
	fmt.Fprintf(os.Stdout, "  WTI Crude:   $%s\n", result.Fuel.WTICrude.StringFixed(2))
	fmt.Fprintf(os.Stdout, "\nCurrency Rates (source: %s):\n", result.Currency.Source)
	fmt.Fprintf(os.Stdout, "  USD/INR: ₹%s\n", result.Currency.USDINR.StringFixed(2))
	fmt.Fprintf(os.Stdout, "  EUR/INR: ₹%s\n", result.Currency.EURINR.StringFixed(2))
	fmt.Fprintf(os.Stdout, "  GBP/INR: ₹%s\n", result.Currency.GBPINR.StringFixed(2))
	fmt.Fprintf(os.Stdout, "  JPY/INR: ₹%s\n", result.Currency.JPYINR.StringFixed(6))
	fmt.Fprintf(os.Stdout, "\nSignals:\n")
	fmt.Fprintf(os.Stdout, "  Fuel:     %s\n", result.FuelSignal)
	fmt.Fprintf(os.Stdout, "  Currency: %s\n", result.CurrencySignal)
	fmt.Fprintln(os.Stdout, rule)

	return nil
}
