package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"hedgewatch/internal/storage"
)

const rateTablePath = "/v4/latest/USD"

var (
	// Denominator substitutes when the table omits a currency. Values are
	// units of X per USD.
	defaultEURPerUSD = decimal.NewFromFloat(0.85)
	defaultGBPPerUSD = decimal.NewFromFloat(0.73)
	defaultJPYPerUSD = decimal.NewFromFloat(110.0)
)

// RateTableOptions parameterise the USD rate-table provider.
type RateTableOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// RateTable fetches a USD-based rate table and reconstructs the four INR
// cross-rates from it: X/INR = (INR per USD) / (X per USD).
type RateTable struct {
	opts    RateTableOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewRateTable constructs a rate-table fetcher.
func NewRateTable(opts RateTableOptions, logger zerolog.Logger) *RateTable {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.exchangerate-api.com"
	}

	return &RateTable{
		opts:    opts,
		logger:  logger.With().Str("component", "rate_table_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Name identifies this source in fallthrough logs.
func (r *RateTable) Name() string { return "rate_table" }

// FetchCurrency retrieves the rate table and derives the INR cross-rates.
func (r *RateTable) FetchCurrency(ctx context.Context) (storage.CurrencyObservation, error) {
	rates, err := r.fetchTable(ctx)
	if err != nil {
		return storage.CurrencyObservation{}, err
	}

	inr, ok := rates["INR"]
	if !ok || inr.IsZero() {
		return storage.CurrencyObservation{}, errors.New("rate table missing INR")
	}

	eur, err := crossRate(inr, rateOr(rates, "EUR", defaultEURPerUSD))
	if err != nil {
		return storage.CurrencyObservation{}, fmt.Errorf("eur_inr: %w", err)
	}
	gbp, err := crossRate(inr, rateOr(rates, "GBP", defaultGBPPerUSD))
	if err != nil {
		return storage.CurrencyObservation{}, fmt.Errorf("gbp_inr: %w", err)
	}
	jpy, err := crossRate(inr, rateOr(rates, "JPY", defaultJPYPerUSD))
	if err != nil {
		return storage.CurrencyObservation{}, fmt.Errorf("jpy_inr: %w", err)
	}

	return storage.CurrencyObservation{
		Timestamp: time.Now().UTC(),
		USDINR:    inr.Round(2),
		EURINR:    eur.Round(2),
		GBPINR:    gbp.Round(2),
		JPYINR:    jpy.Round(6),
		Source:    storage.SourceLive,
	}, nil
}

func (r *RateTable) fetchTable(ctx context.Context) (map[string]decimal.Decimal, error) {
	endpoint := r.baseURL + rateTablePath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(r.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "hedgewatch/1.0")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payloadBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseRateTableHTTPError(resp.StatusCode, payloadBytes)
	}

	var tableRes rateTableResponse
	if err := json.Unmarshal(payloadBytes, &tableRes); err != nil {
		return nil, err
	}

	if len(tableRes.Rates) == 0 {
		return nil, errors.New("rate table response contained no rates")
	}

	return tableRes.Rates, nil
}

func rateOr(rates map[string]decimal.Decimal, code string, fallback decimal.Decimal) decimal.Decimal {
	if rate, ok := rates[code]; ok {
		return rate
	}
	return fallback
}

func crossRate(inrPerUSD, perUSD decimal.Decimal) (decimal.Decimal, error) {
	if perUSD.IsZero() {
		return decimal.Decimal{}, errors.New("zero denominator rate")
	}
	return inrPerUSD.Div(perUSD), nil
}

type rateTableResponse struct {
	Base  string                     `json:"base"`
	Date  string                     `json:"date"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

type rateTableError struct {
	Result    string `json:"result"`
	ErrorType string `json:"error-type"`
}

func parseRateTableHTTPError(status int, payload []byte) error {
	var apiErr rateTableError
	if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.ErrorType != "" {
		return fmt.Errorf("rate table api error (%d): %s", status, apiErr.ErrorType)
	}
	if len(payload) > 0 {
		return fmt.Errorf("rate table api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("rate table api error (%d)", status)
}

var _ CurrencySource = (*RateTable)(nil)
