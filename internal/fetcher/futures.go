package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"hedgewatch/internal/storage"
)

const (
	chartPathFormat = "/v8/finance/chart/%s"

	symbolBrentCrude = "BZ=F"
	symbolWTICrude   = "CL=F"
	symbolUSDINR     = "USDINR=X"
	symbolEURINR     = "EURINR=X"
	symbolGBPINR     = "GBPINR=X"
	symbolJPYINR     = "JPYINR=X"
)

var (
	// Jet fuel is not exchange-quoted; it is proxied at 1.35x the mean of the
	// two crude benchmarks.
	jetFuelMultiplier = decimal.NewFromFloat(1.35)

	decTwo = decimal.NewFromInt(2)

	// Per-pair literal substitutes when a non-USD pair quote fails on its own.
	defaultEURINR = decimal.NewFromFloat(90.0)
	defaultGBPINR = decimal.NewFromFloat(105.0)
	defaultJPYINR = decimal.NewFromFloat(0.55)
)

// FuturesOptions parameterise the chart-quote provider.
type FuturesOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Futures fetches latest closes from a chart-style quote API. It backs the
// fuel domain (crude benchmarks) and doubles as the secondary currency source
// (direct X/INR pair quotes).
type Futures struct {
	opts    FuturesOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewFutures constructs a futures-quote fetcher.
func NewFutures(opts FuturesOptions, logger zerolog.Logger) *Futures {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}

	return &Futures{
		opts:    opts,
		logger:  logger.With().Str("component", "futures_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Name identifies this source in fallthrough logs.
func (f *Futures) Name() string { return "futures" }

// FetchFuel reads the latest Brent and WTI closes and derives the jet-fuel
// proxy. Either benchmark failing fails the whole source.
func (f *Futures) FetchFuel(ctx context.Context) (storage.FuelObservation, error) {
	brent, err := f.latestClose(ctx, symbolBrentCrude)
	if err != nil {
		return storage.FuelObservation{}, fmt.Errorf("brent close: %w", err)
	}

	wti, err := f.latestClose(ctx, symbolWTICrude)
	if err != nil {
		return storage.FuelObservation{}, fmt.Errorf("wti close: %w", err)
	}

	jet := brent.Add(wti).Div(decTwo).Mul(jetFuelMultiplier)

	return storage.FuelObservation{
		Timestamp:  time.Now().UTC(),
		JetFuel:    jet.Round(6),
		BrentCrude: brent.Round(2),
		WTICrude:   wti.Round(2),
		Source:     storage.SourceLive,
	}, nil
}

// FetchCurrency quotes the four INR pairs directly. USD/INR is mandatory;
// each of the other pairs failing on its own substitutes a literal default
// instead of failing the source.
func (f *Futures) FetchCurrency(ctx context.Context) (storage.CurrencyObservation, error) {
	usd, err := f.latestClose(ctx, symbolUSDINR)
	if err != nil {
		return storage.CurrencyObservation{}, fmt.Errorf("usd_inr close: %w", err)
	}

	eur := f.pairOrDefault(ctx, symbolEURINR, defaultEURINR)
	gbp := f.pairOrDefault(ctx, symbolGBPINR, defaultGBPINR)
	jpy := f.pairOrDefault(ctx, symbolJPYINR, defaultJPYINR)

	return storage.CurrencyObservation{
		Timestamp: time.Now().UTC(),
		USDINR:    usd.Round(2),
		EURINR:    eur.Round(2),
		GBPINR:    gbp.Round(2),
		JPYINR:    jpy.Round(6),
		Source:    storage.SourceLive,
	}, nil
}

func (f *Futures) pairOrDefault(ctx context.Context, symbol string, fallback decimal.Decimal) decimal.Decimal {
	rate, err := f.latestClose(ctx, symbol)
	if err != nil {
		f.logger.Warn().Err(err).Str("symbol", symbol).
			Str("default", fallback.String()).
			Msg("pair quote failed, substituting default")
		return fallback
	}
	return rate
}

func (f *Futures) latestClose(ctx context.Context, symbol string) (decimal.Decimal, error) {
	endpoint := f.baseURL + fmt.Sprintf(chartPathFormat, url.PathEscape(symbol))
	endpoint += "?range=1d&interval=5m"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Decimal{}, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(f.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "hedgewatch/1.0")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return decimal.Decimal{}, err
	}
	defer resp.Body.Close()

	payloadBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Decimal{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, parseChartHTTPError(resp.StatusCode, payloadBytes)
	}

	var chartRes chartResponse
	if err := json.Unmarshal(payloadBytes, &chartRes); err != nil {
		return decimal.Decimal{}, err
	}

	if chartRes.Chart.Error != nil {
		return decimal.Decimal{}, fmt.Errorf("chart api error: %s: %s",
			chartRes.Chart.Error.Code, chartRes.Chart.Error.Description)
	}
	if len(chartRes.Chart.Result) == 0 || len(chartRes.Chart.Result[0].Indicators.Quote) == 0 {
		return decimal.Decimal{}, errors.New("chart response missing quote data")
	}

	closes := chartRes.Chart.Result[0].Indicators.Quote[0].Close
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i] == nil || *closes[i] <= 0 {
			continue
		}
		return decimal.NewFromFloat(*closes[i]), nil
	}

	return decimal.Decimal{}, errors.New("chart response contained no usable close")
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func parseChartHTTPError(status int, payload []byte) error {
	var chartRes chartResponse
	if err := json.Unmarshal(payload, &chartRes); err == nil && chartRes.Chart.Error != nil {
		return fmt.Errorf("chart api error (%d): %s", status, chartRes.Chart.Error.Description)
	}
	if len(payload) > 0 {
		return fmt.Errorf("chart api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("chart api error (%d)", status)
}

var _ FuelSource = (*Futures)(nil)
var _ CurrencySource = (*Futures)(nil)
