package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newRateTableServer(t *testing.T, rates map[string]float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"base":  "USD",
			"date":  "2026-08-23",
			"rates": rates,
		})
	}))
}

func newRateTableForTest(baseURL string) *RateTable {
	return NewRateTable(RateTableOptions{
		BaseURL:   baseURL,
		Timeout:   time.Second,
		UserAgent: "test",
	}, noopLogger())
}

func TestRateTableCrossRateReconstruction(t *testing.T) {
	srv := newRateTableServer(t, map[string]float64{
		"INR": 83.0,
		"EUR": 0.85,
		"GBP": 0.73,
		"JPY": 110.0,
	})
	defer srv.Close()

	rt := newRateTableForTest(srv.URL)

	obs, err := rt.FetchCurrency(context.Background())
	if err != nil {
		t.Fatalf("成功响应不应报错: %v", err)
	}

	if !obs.USDINR.Equal(decimal.NewFromInt(83)) {
		t.Fatalf("期望 usd_inr 83, 实际 %s", obs.USDINR.String())
	}
	// 83.0 / 0.85 = 97.6470... -> 97.65
	if !obs.EURINR.Equal(decimal.NewFromFloat(97.65)) {
		t.Fatalf("期望 eur_inr 97.65, 实际 %s", obs.EURINR.String())
	}
	// 83.0 / 0.73 = 113.6986... -> 113.70
	if !obs.GBPINR.Equal(decimal.NewFromFloat(113.70)) {
		t.Fatalf("期望 gbp_inr 113.70, 实际 %s", obs.GBPINR.String())
	}
	// 83.0 / 110.0 = 0.754545...
	if !obs.JPYINR.Equal(decimal.NewFromFloat(0.754545)) {
		t.Fatalf("期望 jpy_inr 0.754545, 实际 %s", obs.JPYINR.String())
	}
}

func TestRateTableMissingDenominatorsUseDefaults(t *testing.T) {
	srv := newRateTableServer(t, map[string]float64{
		"INR": 83.0,
	})
	defer srv.Close()

	rt := newRateTableForTest(srv.URL)

	obs, err := rt.FetchCurrency(context.Background())
	if err != nil {
		t.Fatalf("缺失分母时应使用默认值而非报错: %v", err)
	}
	if !obs.EURINR.Equal(decimal.NewFromFloat(97.65)) {
		t.Fatalf("期望默认 EUR 分母 0.85 -> 97.65, 实际 %s", obs.EURINR.String())
	}
	if !obs.GBPINR.Equal(decimal.NewFromFloat(113.70)) {
		t.Fatalf("期望默认 GBP 分母 0.73 -> 113.70, 实际 %s", obs.GBPINR.String())
	}
	if !obs.JPYINR.Equal(decimal.NewFromFloat(0.754545)) {
		t.Fatalf("期望默认 JPY 分母 110 -> 0.754545, 实际 %s", obs.JPYINR.String())
	}
}

func TestRateTableMissingINRFailsSource(t *testing.T) {
	srv := newRateTableServer(t, map[string]float64{
		"EUR": 0.85,
	})
	defer srv.Close()

	rt := newRateTableForTest(srv.URL)

	if _, err := rt.FetchCurrency(context.Background()); err == nil {
		t.Fatal("缺失 INR 应导致 source 失败")
	}
}

func TestRateTableZeroDenominatorFailsSource(t *testing.T) {
	srv := newRateTableServer(t, map[string]float64{
		"INR": 83.0,
		"EUR": 0,
	})
	defer srv.Close()

	rt := newRateTableForTest(srv.URL)

	if _, err := rt.FetchCurrency(context.Background()); err == nil {
		t.Fatal("分母为零应导致 source 失败")
	}
}

func TestRateTableEmptyRates(t *testing.T) {
	srv := newRateTableServer(t, map[string]float64{})
	defer srv.Close()

	rt := newRateTableForTest(srv.URL)

	if _, err := rt.FetchCurrency(context.Background()); err == nil {
		t.Fatal("空 rate table 应报错")
	}
}

func TestRateTableHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"result": "error", "error-type": "unavailable"})
	}))
	defer srv.Close()

	rt := newRateTableForTest(srv.URL)

	if _, err := rt.FetchCurrency(context.Background()); err == nil {
		t.Fatal("HTTP 503 应报错")
	}
}
