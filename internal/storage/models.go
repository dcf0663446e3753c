package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Observation provenance values for the source column.
const (
	SourceLive     = "live"
	SourceFallback = "fallback"
)

// FuelObservation is one persisted fuel-price row. JetFuel is always derived
// from the two crude benchmarks, never quoted directly.
type FuelObservation struct {
	Timestamp  time.Time
	JetFuel    decimal.Decimal
	BrentCrude decimal.Decimal
	WTICrude   decimal.Decimal
	Source     string
	CreatedAt  time.Time
}

// CurrencyObservation is one persisted INR cross-rate row.
type CurrencyObservation struct {
	Timestamp time.Time
	USDINR    decimal.Decimal
	EURINR    decimal.Decimal
	GBPINR    decimal.Decimal
	JPYINR    decimal.Decimal
	Source    string
	CreatedAt time.Time
}

// AlertRecord captures an emitted hedging-signal alert for auditing.
type AlertRecord struct {
	ID        int64
	Domain    string
	Signal    string
	ChangePct decimal.Decimal
	Channels  []string
	CreatedAt time.Time
}
