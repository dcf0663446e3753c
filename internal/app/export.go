package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"hedgewatch/internal/storage"
)

// Export renders one series' history as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	if opts.Series != "fuel" && opts.Series != "currency" {
		return fmt.Errorf("unknown series %q (expected fuel or currency)", opts.Series)
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-time.Duration(opts.MaxPoints) * a.Config.Scheduler.Interval)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	if opts.Series == "fuel" {
		return a.exportFuel(ctx, store, from, to, opts)
	}
	return a.exportCurrency(ctx, store, from, to, opts)
}

func (a *App) exportFuel(ctx context.Context, store *storage.Store, from, to time.Time, opts ExportOptions) error {
	series, err := store.ListFuelBetween(ctx, from, to)
	if err != nil {
		return err
	}
	if len(series) == 0 {
		a.Logger.Info().Msg("no fuel observations found for export window")
		return nil
	}

	indices := downsampleIndices(len(series), opts.MaxPoints)
	a.Logger.Info().Int("total", len(series)).Int("exported", len(indices)).Msg("exporting fuel series")

	if opts.CSVPath != "" {
		if err := writeFuelCSV(opts.CSVPath, series, indices); err != nil {
			return err
		}
	}
	if opts.PNGPath != "" {
		if err := writeFuelPNG(opts.PNGPath, series, indices); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) exportCurrency(ctx context.Context, store *storage.Store, from, to time.Time, opts ExportOptions) error {
	series, err := store.ListCurrencyBetween(ctx, from, to)
	if err != nil {
		return err
	}
	if len(series) == 0 {
		a.Logger.Info().Msg("no currency observations found for export window")
		return nil
	}

	indices := downsampleIndices(len(series), opts.MaxPoints)
	a.Logger.Info().Int("total", len(series)).Int("exported", len(indices)).Msg("exporting currency series")

	if opts.CSVPath != "" {
		if err := writeCurrencyCSV(opts.CSVPath, series, indices); err != nil {
			return err
		}
	}
	if opts.PNGPath != "" {
		if err := writeCurrencyPNG(opts.PNGPath, series, indices); err != nil {
			return err
		}
	}
	return nil
}

// downsampleIndices picks at most max evenly spaced indices over n rows.
func downsampleIndices(n, max int) []int {
	if max <= 0 || n <= max {
		indices := make([]int, n)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}
	// max == 1 would divide by zero in the spacing step below; a single-point
	// export keeps the newest row.
	if max == 1 {
		return []int{n - 1}
	}

	indices := make([]int, 0, max)
	step := float64(n-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= n {
			idx = n - 1
		}
		indices = append(indices, idx)
	}
	return indices
}

func writeFuelCSV(path string, series []storage.FuelObservation, indices []int) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"observed_at", "jet_fuel", "brent_crude", "wti_crude", "source"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, idx := range indices {
		obs := series[idx]
		record := []string{
			obs.Timestamp.Format(time.RFC3339),
			obs.JetFuel.String(),
			obs.BrentCrude.String(),
			obs.WTICrude.String(),
			obs.Source,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeCurrencyCSV(path string, series []storage.CurrencyObservation, indices []int) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"observed_at", "usd_inr", "eur_inr", "gbp_inr", "jpy_inr", "source"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, idx := range indices {
		obs := series[idx]
		record := []string{
			obs.Timestamp.Format(time.RFC3339),
			obs.USDINR.String(),
			obs.EURINR.String(),
			obs.GBPINR.String(),
			obs.JPYINR.String(),
			obs.Source,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeFuelPNG(path string, series []storage.FuelObservation, indices []int) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(indices))
	jet := make([]float64, len(indices))
	brent := make([]float64, len(indices))
	wti := make([]float64, len(indices))

	for i, idx := range indices {
		obs := series[idx]
		x[i] = obs.Timestamp
		jet[i] = obs.JetFuel.InexactFloat64()
		brent[i] = obs.BrentCrude.InexactFloat64()
		wti[i] = obs.WTICrude.InexactFloat64()
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Price (USD)",
			ValueFormatter: priceFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Jet Fuel",
				XValues: x,
				YValues: jet,
			},
			chart.TimeSeries{
				Name:    "Brent Crude",
				XValues: x,
				YValues: brent,
			},
			chart.TimeSeries{
				Name:    "WTI Crude",
				XValues: x,
				YValues: wti,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return renderPNG(path, graph)
}

func writeCurrencyPNG(path string, series []storage.CurrencyObservation, indices []int) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(indices))
	usd := make([]float64, len(indices))
	eur := make([]float64, len(indices))
	gbp := make([]float64, len(indices))
	jpy := make([]float64, len(indices))

	for i, idx := range indices {
		obs := series[idx]
		x[i] = obs.Timestamp
		usd[i] = obs.USDINR.InexactFloat64()
		eur[i] = obs.EURINR.InexactFloat64()
		gbp[i] = obs.GBPINR.InexactFloat64()
		jpy[i] = obs.JPYINR.InexactFloat64()
	}

	rateFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	// JPY/INR lives near 0.57 while the majors sit near 100; it gets its own axis.
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Rate (INR)",
			ValueFormatter: rateFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name: "JPY/INR",
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.4f")
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "USD/INR",
				XValues: x,
				YValues: usd,
			},
			chart.TimeSeries{
				Name:    "EUR/INR",
				XValues: x,
				YValues: eur,
			},
			chart.TimeSeries{
				Name:    "GBP/INR",
				XValues: x,
				YValues: gbp,
			},
			chart.TimeSeries{
				Name:    "JPY/INR",
				XValues: x,
				YValues: jpy,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return renderPNG(path, graph)
}

func renderPNG(path string, graph chart.Chart) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
