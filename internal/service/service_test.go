package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"hedgewatch/internal/alerting"
	"hedgewatch/internal/analysis"
	"hedgewatch/internal/config"
	"hedgewatch/internal/fetcher"
	"hedgewatch/internal/storage"
)

type memStore struct {
	fuel     []storage.FuelObservation
	currency []storage.CurrencyObservation
	alerts   []storage.AlertRecord

	failFuelInsert     bool
	failCurrencyInsert bool
}

func (m *memStore) InsertFuelObservation(ctx context.Context, obs storage.FuelObservation) error {
	if m.failFuelInsert {
		return errors.New("write rejected")
	}
	m.fuel = append(m.fuel, obs)
	return nil
}

func (m *memStore) InsertCurrencyObservation(ctx context.Context, obs storage.CurrencyObservation) error {
	if m.failCurrencyInsert {
		return errors.New("write rejected")
	}
	m.currency = append(m.currency, obs)
	return nil
}

func (m *memStore) ListRecentFuel(ctx context.Context, limit int) ([]storage.FuelObservation, error) {
	out := make([]storage.FuelObservation, 0, limit)
	for i := len(m.fuel) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.fuel[i])
	}
	return out, nil
}

func (m *memStore) ListRecentCurrency(ctx context.Context, limit int) ([]storage.CurrencyObservation, error) {
	out := make([]storage.CurrencyObservation, 0, limit)
	for i := len(m.currency) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.currency[i])
	}
	return out, nil
}

func (m *memStore) InsertAlert(ctx context.Context, alert storage.AlertRecord) (storage.AlertRecord, error) {
	alert.ID = int64(len(m.alerts) + 1)
	alert.CreatedAt = time.Now().UTC()
	m.alerts = append(m.alerts, alert)
	return alert, nil
}

func (m *memStore) ListRecentAlerts(ctx context.Context, limit int) ([]storage.AlertRecord, error) {
	out := make([]storage.AlertRecord, 0, limit)
	for i := len(m.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.alerts[i])
	}
	return out, nil
}

type countingNotifier struct {
	notes []alerting.Notification
}

func (n *countingNotifier) Notify(ctx context.Context, note alerting.Notification) error {
	n.notes = append(n.notes, note)
	return nil
}

type failingFuelSource struct{}

func (failingFuelSource) Name() string { return "failing_fuel" }
func (failingFuelSource) FetchFuel(ctx context.Context) (storage.FuelObservation, error) {
	return storage.FuelObservation{}, errors.New("unreachable")
}

type failingCurrencySource struct{}

func (failingCurrencySource) Name() string { return "failing_currency" }
func (failingCurrencySource) FetchCurrency(ctx context.Context) (storage.CurrencyObservation, error) {
	return storage.CurrencyObservation{}, errors.New("unreachable")
}

type staticFuelSource struct {
	obs storage.FuelObservation
}

func (s staticFuelSource) Name() string { return "static_fuel" }
func (s staticFuelSource) FetchFuel(ctx context.Context) (storage.FuelObservation, error) {
	return s.obs, nil
}

type staticCurrencySource struct {
	obs storage.CurrencyObservation
}

func (s staticCurrencySource) Name() string { return "static_currency" }
func (s staticCurrencySource) FetchCurrency(ctx context.Context) (storage.CurrencyObservation, error) {
	return s.obs, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Collector: config.CollectorConfig{CycleTimeout: time.Second},
		Alerting:  config.AlertingConfig{Enabled: true, Channels: []string{"test"}},
	}
}

func testFuelObs(jet float64) storage.FuelObservation {
	return storage.FuelObservation{
		Timestamp:  time.Now().UTC(),
		JetFuel:    decimal.NewFromFloat(jet),
		BrentCrude: decimal.NewFromFloat(65.0),
		WTICrude:   decimal.NewFromFloat(60.0),
		Source:     storage.SourceLive,
	}
}

func testCurrencyObs(usd float64) storage.CurrencyObservation {
	return storage.CurrencyObservation{
		Timestamp: time.Now().UTC(),
		USDINR:    decimal.NewFromFloat(usd),
		EURINR:    decimal.NewFromFloat(97.65),
		GBPINR:    decimal.NewFromFloat(113.70),
		JPYINR:    decimal.NewFromFloat(0.754545),
		Source:    storage.SourceLive,
	}
}

func within(t *testing.T, name string, v decimal.Decimal, lo, hi float64) {
	t.Helper()
	if v.LessThan(decimal.NewFromFloat(lo)) || v.GreaterThan(decimal.NewFromFloat(hi)) {
		t.Fatalf("%s = %s 超出区间 [%v, %v]", name, v.String(), lo, hi)
	}
}

func TestRunCycleAllSourcesDownFallsBack(t *testing.T) {
	store := &memStore{}
	svc := New(testConfig(),
		[]fetcher.FuelSource{failingFuelSource{}},
		[]fetcher.CurrencySource{failingCurrencySource{}, failingCurrencySource{}},
		store, store, nil, zerolog.Nop())

	result, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("全部 source 失败时周期仍应成功: %v", err)
	}
	if result.Skipped {
		t.Fatal("周期不应被跳过")
	}

	if result.Fuel.Source != storage.SourceFallback {
		t.Fatalf("fuel 来源应为 fallback, 实际 %s", result.Fuel.Source)
	}
	if result.Currency.Source != storage.SourceFallback {
		t.Fatalf("currency 来源应为 fallback, 实际 %s", result.Currency.Source)
	}

	within(t, "jet_fuel", result.Fuel.JetFuel, 2.3, 2.6)
	within(t, "brent_crude", result.Fuel.BrentCrude, 60, 70)
	within(t, "wti_crude", result.Fuel.WTICrude, 55, 65)
	within(t, "usd_inr", result.Currency.USDINR, 88, 90)
	within(t, "eur_inr", result.Currency.EURINR, 102, 105)
	within(t, "gbp_inr", result.Currency.GBPINR, 117, 120)
	within(t, "jpy_inr", result.Currency.JPYINR, 0.57, 0.58)

	if len(store.fuel) != 1 || len(store.currency) != 1 {
		t.Fatalf("应各持久化一行, 实际 fuel=%d currency=%d", len(store.fuel), len(store.currency))
	}
	if result.Message == "" {
		t.Fatal("result message 应非空")
	}
}

func TestRunCycleOrderedFallthrough(t *testing.T) {
	store := &memStore{}
	static := staticCurrencySource{obs: testCurrencyObs(83.0)}
	svc := New(testConfig(),
		[]fetcher.FuelSource{staticFuelSource{obs: testFuelObs(2.5)}},
		[]fetcher.CurrencySource{failingCurrencySource{}, static},
		store, store, nil, zerolog.Nop())

	result, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("第二个 source 可用时周期应成功: %v", err)
	}
	if result.Currency.Source != storage.SourceLive {
		t.Fatalf("应使用第二个 live source, 实际来源 %s", result.Currency.Source)
	}
	if !result.Currency.USDINR.Equal(decimal.NewFromFloat(83.0)) {
		t.Fatalf("期望 usd_inr 83, 实际 %s", result.Currency.USDINR.String())
	}
}

func TestRunCycleHighHedgeDispatchesAlert(t *testing.T) {
	store := &memStore{}
	store.fuel = append(store.fuel, testFuelObs(2.50))
	store.currency = append(store.currency, testCurrencyObs(83.0))

	notifier := &countingNotifier{}
	svc := New(testConfig(),
		[]fetcher.FuelSource{staticFuelSource{obs: testFuelObs(2.60)}},
		[]fetcher.CurrencySource{staticCurrencySource{obs: testCurrencyObs(83.0)}},
		store, store, notifier, zerolog.Nop())

	result, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("周期应成功: %v", err)
	}

	// (2.60 - 2.50) / 2.50 * 100 = +4% -> HIGH_HEDGE
	if result.FuelSignal != analysis.FuelHighHedge {
		t.Fatalf("期望 HIGH_HEDGE, 实际 %s", result.FuelSignal)
	}
	if result.CurrencySignal != analysis.CurrencyStable {
		t.Fatalf("USD/INR 未变化, 期望 STABLE, 实际 %s", result.CurrencySignal)
	}

	if len(notifier.notes) != 1 {
		t.Fatalf("应派发一条告警, 实际 %d", len(notifier.notes))
	}
	if notifier.notes[0].Domain != "fuel" {
		t.Fatalf("告警 domain 应为 fuel, 实际 %s", notifier.notes[0].Domain)
	}
	if len(store.alerts) != 1 {
		t.Fatalf("应持久化一条告警记录, 实际 %d", len(store.alerts))
	}
	if store.alerts[0].Signal != string(analysis.FuelHighHedge) {
		t.Fatalf("告警记录 signal 不正确: %s", store.alerts[0].Signal)
	}
}

func TestRunCycleQuietMarketNoAlert(t *testing.T) {
	store := &memStore{}
	store.fuel = append(store.fuel, testFuelObs(2.50))
	store.currency = append(store.currency, testCurrencyObs(83.0))

	notifier := &countingNotifier{}
	svc := New(testConfig(),
		[]fetcher.FuelSource{staticFuelSource{obs: testFuelObs(2.51)}},
		[]fetcher.CurrencySource{staticCurrencySource{obs: testCurrencyObs(83.1)}},
		store, store, notifier, zerolog.Nop())

	result, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("周期应成功: %v", err)
	}
	if result.FuelSignal != analysis.FuelMonitor {
		t.Fatalf("+0.4%% 应为 MONITOR, 实际 %s", result.FuelSignal)
	}
	if len(notifier.notes) != 0 || len(store.alerts) != 0 {
		t.Fatal("非紧急信号不应派发告警")
	}
}

func TestRunCyclePersistFailureFailsCycle(t *testing.T) {
	store := &memStore{failFuelInsert: true}
	svc := New(testConfig(),
		[]fetcher.FuelSource{staticFuelSource{obs: testFuelObs(2.5)}},
		[]fetcher.CurrencySource{staticCurrencySource{obs: testCurrencyObs(83.0)}},
		store, store, nil, zerolog.Nop())

	if _, err := svc.RunCycle(context.Background()); err == nil {
		t.Fatal("写入失败应导致周期失败")
	}
	if len(store.currency) != 0 {
		t.Fatal("fuel 写入失败后不应继续写 currency")
	}
}

func TestRunCycleWithoutStore(t *testing.T) {
	svc := New(testConfig(), nil, nil, nil, nil, nil, zerolog.Nop())

	if _, err := svc.RunCycle(context.Background()); err == nil {
		t.Fatal("未配置 store 应报错")
	}
}
