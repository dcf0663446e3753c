package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"hedgewatch/internal/alerting"
	"hedgewatch/internal/analysis"
)

// SimulateSignals 用给定的百分比变化演练信号分类与告警链路，不触碰数据库。
func (a *App) SimulateSignals(ctx context.Context, jetChange, usdChange decimal.Decimal) error {
	fuelSignal := analysis.ClassifyFuel(jetChange)
	currencySignal := analysis.ClassifyCurrency(usdChange)

	fmt.Fprintf(os.Stdout, "jet fuel change %s%% -> %s\n", jetChange.StringFixed(2), fuelSignal)
	fmt.Fprintf(os.Stdout, "usd/inr change %s%% -> %s\n", usdChange.StringFixed(2), currencySignal)

	if !fuelSignal.Urgent() && !currencySignal.Urgent() {
		fmt.Fprintln(os.Stdout, "no urgent signal; nothing to dispatch")
		return nil
	}

	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}
	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	now := time.Now().UTC()

	if fuelSignal.Urgent() {
		note := alerting.Notification{
			Timestamp:     now,
			Domain:        "fuel",
			Instrument:    analysis.InstrumentJetFuel,
			Signal:        string(fuelSignal),
			Description:   fuelSignal.Description(),
			ChangePct:     jetChange,
			Channels:      a.Config.Alerting.Channels,
			AdditionalMsg: "simulated signal",
		}
		if err := notifier.Notify(ctx, note); err != nil {
			return fmt.Errorf("dispatch fuel alert: %w", err)
		}
	}

	if currencySignal.Urgent() {
		note := alerting.Notification{
			Timestamp:     now,
			Domain:        "currency",
			Instrument:    analysis.InstrumentUSDINR,
			Signal:        string(currencySignal),
			Description:   currencySignal.Description(),
			ChangePct:     usdChange,
			Channels:      a.Config.Alerting.Channels,
			AdditionalMsg: "simulated signal",
		}
		if err := notifier.Notify(ctx, note); err != nil {
			return fmt.Errorf("dispatch currency alert: %w", err)
		}
	}

	return nil
}
