package analysis

import "github.com/shopspring/decimal"

// FuelSignal is a discrete fuel-hedging urgency category.
type FuelSignal string

// Fuel signal bands, most urgent first.
const (
	FuelHighHedge     FuelSignal = "HIGH_HEDGE"
	FuelModerateHedge FuelSignal = "MODERATE_HEDGE"
	FuelLowHedge      FuelSignal = "LOW_HEDGE"
	FuelMonitor       FuelSignal = "MONITOR"
)

// CurrencySignal is a discrete USD/INR volatility category.
type CurrencySignal string

// Currency signal bands.
const (
	CurrencyHighVolatility     CurrencySignal = "HIGH_VOLATILITY"
	CurrencyModerateVolatility CurrencySignal = "MODERATE_VOLATILITY"
	CurrencyStable             CurrencySignal = "STABLE"
)

var (
	fuelHighThreshold     = decimal.NewFromInt(2)
	fuelModerateThreshold = decimal.NewFromFloat(0.5)
	fuelLowThreshold      = decimal.NewFromInt(-1)

	currencyHighThreshold     = decimal.NewFromInt(1)
	currencyModerateThreshold = decimal.NewFromFloat(0.3)
)

// ClassifyFuel maps a jet-fuel percentage change onto a hedging signal.
// Bands are ordered; the first match wins.
func ClassifyFuel(change decimal.Decimal) FuelSignal {
	switch {
	case change.GreaterThan(fuelHighThreshold):
		return FuelHighHedge
	case change.GreaterThan(fuelModerateThreshold):
		return FuelModerateHedge
	case change.LessThan(fuelLowThreshold):
		return FuelLowHedge
	default:
		return FuelMonitor
	}
}

// ClassifyCurrency maps the absolute USD/INR percentage change onto a
// volatility signal.
func ClassifyCurrency(change decimal.Decimal) CurrencySignal {
	abs := change.Abs()
	switch {
	case abs.GreaterThan(currencyHighThreshold):
		return CurrencyHighVolatility
	case abs.GreaterThan(currencyModerateThreshold):
		return CurrencyModerateVolatility
	default:
		return CurrencyStable
	}
}

// Description renders the analyst-facing recommendation text.
func (s FuelSignal) Description() string {
	switch s {
	case FuelHighHedge:
		return "HIGH HEDGE RECOMMENDED - jet fuel prices rising rapidly"
	case FuelModerateHedge:
		return "MODERATE HEDGE - jet fuel prices trending up"
	case FuelLowHedge:
		return "LOW HEDGE - jet fuel prices declining"
	default:
		return "MONITOR - jet fuel prices stable"
	}
}

// Description renders the analyst-facing volatility text.
func (s CurrencySignal) Description() string {
	switch s {
	case CurrencyHighVolatility:
		return "HIGH VOLATILITY - USD/INR moving significantly"
	case CurrencyModerateVolatility:
		return "MODERATE VOLATILITY - USD/INR showing movement"
	default:
		return "STABLE - USD/INR relatively stable"
	}
}

// Urgent reports whether the signal warrants an alert dispatch.
func (s FuelSignal) Urgent() bool { return s == FuelHighHedge }

// Urgent reports whether the signal warrants an alert dispatch.
func (s CurrencySignal) Urgent() bool { return s == CurrencyHighVolatility }
