package analysis

import (
	"github.com/shopspring/decimal"

	"hedgewatch/internal/storage"
)

// Instrument keys used in change sets, alert records, and display.
const (
	InstrumentJetFuel    = "jet_fuel"
	InstrumentBrentCrude = "brent_crude"
	InstrumentWTICrude   = "wti_crude"
	InstrumentUSDINR     = "usd_inr"
	InstrumentEURINR     = "eur_inr"
	InstrumentGBPINR     = "gbp_inr"
	InstrumentJPYINR     = "jpy_inr"
)

var decHundred = decimal.NewFromInt(100)

// ChangeSet maps an instrument name to its signed period-over-period
// percentage delta at full precision. An instrument whose series has fewer
// than two records, or whose previous value is zero, is simply absent.
type ChangeSet map[string]decimal.Decimal

// Get returns the delta for an instrument, zero when absent.
func (c ChangeSet) Get(name string) decimal.Decimal {
	if change, ok := c[name]; ok {
		return change
	}
	return decimal.Zero
}

// Has reports whether a delta was computable for the instrument.
func (c ChangeSet) Has(name string) bool {
	_, ok := c[name]
	return ok
}

// FuelChanges derives deltas from the two newest fuel observations. The
// series must be ordered newest-first.
func FuelChanges(series []storage.FuelObservation) ChangeSet {
	changes := ChangeSet{}
	if len(series) < 2 {
		return changes
	}

	latest, previous := series[0], series[1]
	changes.add(InstrumentJetFuel, latest.JetFuel, previous.JetFuel)
	changes.add(InstrumentBrentCrude, latest.BrentCrude, previous.BrentCrude)
	changes.add(InstrumentWTICrude, latest.WTICrude, previous.WTICrude)
	return changes
}

// CurrencyChanges derives deltas from the two newest currency observations.
// The series must be ordered newest-first.
func CurrencyChanges(series []storage.CurrencyObservation) ChangeSet {
	changes := ChangeSet{}
	if len(series) < 2 {
		return changes
	}

	latest, previous := series[0], series[1]
	changes.add(InstrumentUSDINR, latest.USDINR, previous.USDINR)
	changes.add(InstrumentEURINR, latest.EURINR, previous.EURINR)
	changes.add(InstrumentGBPINR, latest.GBPINR, previous.GBPINR)
	changes.add(InstrumentJPYINR, latest.JPYINR, previous.JPYINR)
	return changes
}

func (c ChangeSet) add(name string, latest, previous decimal.Decimal) {
	if previous.IsZero() {
		return
	}
	c[name] = latest.Sub(previous).Div(previous).Mul(decHundred)
}
