package fetcher

import (
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"hedgewatch/internal/storage"
)

// FallbackFuel produces a synthetic fuel observation with each field drawn
// uniformly from its fixed interval. It never fails and is used only when
// every live fuel source is exhausted.
func FallbackFuel(now time.Time) storage.FuelObservation {
	return storage.FuelObservation{
		Timestamp:  now,
		JetFuel:    uniform(2.3, 2.6, 6),
		BrentCrude: uniform(60, 70, 2),
		WTICrude:   uniform(55, 65, 2),
		Source:     storage.SourceFallback,
	}
}

// FallbackCurrency produces a synthetic currency observation within fixed
// bounds, used only when every live currency source is exhausted.
func FallbackCurrency(now time.Time) storage.CurrencyObservation {
	return storage.CurrencyObservation{
		Timestamp: now,
		USDINR:    uniform(88, 90, 2),
		EURINR:    uniform(102, 105, 2),
		GBPINR:    uniform(117, 120, 2),
		JPYINR:    uniform(0.57, 0.58, 6),
		Source:    storage.SourceFallback,
	}
}

func uniform(lo, hi float64, places int32) decimal.Decimal {
	return decimal.NewFromFloat(lo + rand.Float64()*(hi-lo)).Round(places)
}
