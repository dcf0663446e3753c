package analysis

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"hedgewatch/internal/storage"
)

func fuelObs(ts time.Time, jet, brent, wti float64) storage.FuelObservation {
	return storage.FuelObservation{
		Timestamp:  ts,
		JetFuel:    decimal.NewFromFloat(jet),
		BrentCrude: decimal.NewFromFloat(brent),
		WTICrude:   decimal.NewFromFloat(wti),
		Source:     storage.SourceLive,
	}
}

func currencyObs(ts time.Time, usd, eur, gbp, jpy float64) storage.CurrencyObservation {
	return storage.CurrencyObservation{
		Timestamp: ts,
		USDINR:    decimal.NewFromFloat(usd),
		EURINR:    decimal.NewFromFloat(eur),
		GBPINR:    decimal.NewFromFloat(gbp),
		JPYINR:    decimal.NewFromFloat(jpy),
		Source:    storage.SourceLive,
	}
}

func TestFuelChangesLiteralCase(t *testing.T) {
	now := time.Now()
	series := []storage.FuelObservation{
		fuelObs(now, 2.55, 66.0, 61.0),             // latest
		fuelObs(now.Add(-time.Hour), 2.50, 66.0, 61.0), // previous
	}

	changes := FuelChanges(series)

	// (2.55 - 2.50) / 2.50 * 100 = +2.00%
	if !changes.Get(InstrumentJetFuel).Equal(decimal.NewFromInt(2)) {
		t.Fatalf("期望 jet_fuel 变化 +2.00%%, 实际 %s", changes.Get(InstrumentJetFuel).String())
	}
	if !changes.Get(InstrumentBrentCrude).IsZero() {
		t.Fatalf("brent 未变化, 期望 0, 实际 %s", changes.Get(InstrumentBrentCrude).String())
	}
	if !changes.Has(InstrumentBrentCrude) {
		t.Fatal("brent 有两条记录, key 应存在")
	}
}

func TestFuelChangesShortSeries(t *testing.T) {
	series := []storage.FuelObservation{fuelObs(time.Now(), 2.5, 65, 60)}

	changes := FuelChanges(series)

	if len(changes) != 0 {
		t.Fatalf("少于两条记录时 change set 应为空, 实际 %d 个 key", len(changes))
	}
	if changes.Has(InstrumentJetFuel) {
		t.Fatal("jet_fuel key 不应存在")
	}
	if !changes.Get(InstrumentJetFuel).IsZero() {
		t.Fatal("缺失 key 的 Get 应返回零值")
	}
}

func TestFuelChangesEmptySeries(t *testing.T) {
	if changes := FuelChanges(nil); len(changes) != 0 {
		t.Fatalf("空序列应得到空 change set, 实际 %d 个 key", len(changes))
	}
}

func TestCurrencyChangesZeroPreviousOmitted(t *testing.T) {
	now := time.Now()
	series := []storage.CurrencyObservation{
		currencyObs(now, 83.5, 97.0, 113.0, 0.75),
		currencyObs(now.Add(-time.Hour), 0, 96.0, 112.0, 0.75),
	}

	changes := CurrencyChanges(series)

	if changes.Has(InstrumentUSDINR) {
		t.Fatal("previous 为零的 instrument 不应出现在 change set 中")
	}
	if !changes.Has(InstrumentEURINR) {
		t.Fatal("eur_inr 应正常计算")
	}
}

func TestCurrencyChangesSignedDelta(t *testing.T) {
	now := time.Now()
	series := []storage.CurrencyObservation{
		currencyObs(now, 82.0, 97.0, 113.0, 0.75),
		currencyObs(now.Add(-time.Hour), 83.0, 97.0, 113.0, 0.75),
	}

	changes := CurrencyChanges(series)

	usd := changes.Get(InstrumentUSDINR)
	if usd.Sign() >= 0 {
		t.Fatalf("下跌应产生负的 delta, 实际 %s", usd.String())
	}
	// (82 - 83) / 83 * 100 = -1.2048...
	if !usd.Round(2).Equal(decimal.NewFromFloat(-1.20)) {
		t.Fatalf("期望 -1.20, 实际 %s", usd.Round(2).String())
	}
}
