package analysis

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestClassifyFuel(t *testing.T) {
	cases := []struct {
		change float64
		want   FuelSignal
	}{
		{2.5, FuelHighHedge},
		{1.0, FuelModerateHedge},
		{-1.5, FuelLowHedge},
		{0.1, FuelMonitor},
		// band edges: first matching band wins
		{2.0, FuelModerateHedge},
		{0.5, FuelMonitor},
		{-1.0, FuelMonitor},
		{0, FuelMonitor},
	}

	for _, tc := range cases {
		got := ClassifyFuel(decimal.NewFromFloat(tc.change))
		if got != tc.want {
			t.Errorf("ClassifyFuel(%v) = %s, 期望 %s", tc.change, got, tc.want)
		}
	}
}

func TestClassifyCurrency(t *testing.T) {
	cases := []struct {
		change float64
		want   CurrencySignal
	}{
		{1.2, CurrencyHighVolatility},
		{-0.5, CurrencyModerateVolatility},
		{0.1, CurrencyStable},
		// classification is on |change|
		{-2.0, CurrencyHighVolatility},
		{1.0, CurrencyModerateVolatility},
		{0.3, CurrencyStable},
		{-0.3, CurrencyStable},
	}

	for _, tc := range cases {
		got := ClassifyCurrency(decimal.NewFromFloat(tc.change))
		if got != tc.want {
			t.Errorf("ClassifyCurrency(%v) = %s, 期望 %s", tc.change, got, tc.want)
		}
	}
}

func TestSignalUrgency(t *testing.T) {
	if !FuelHighHedge.Urgent() {
		t.Error("HIGH_HEDGE 应触发告警")
	}
	if FuelModerateHedge.Urgent() || FuelLowHedge.Urgent() || FuelMonitor.Urgent() {
		t.Error("非 HIGH_HEDGE 不应触发告警")
	}
	if !CurrencyHighVolatility.Urgent() {
		t.Error("HIGH_VOLATILITY 应触发告警")
	}
	if CurrencyModerateVolatility.Urgent() || CurrencyStable.Urgent() {
		t.Error("非 HIGH_VOLATILITY 不应触发告警")
	}
}
