package fetcher

import (
	"context"

	"hedgewatch/internal/storage"
)

// FuelSource retrieves one complete fuel observation from a live provider.
type FuelSource interface {
	Name() string
	FetchFuel(ctx context.Context) (storage.FuelObservation, error)
}

// CurrencySource retrieves one complete set of INR cross-rates from a live provider.
type CurrencySource interface {
	Name() string
	FetchCurrency(ctx context.Context) (storage.CurrencyObservation, error)
}
