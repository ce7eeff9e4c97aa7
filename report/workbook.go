package report

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/meenmo/shortrate/simulation"
)

const (
	sheetParameters = "Parameters"
	sheetStatistics = "Statistics"
	sheetPaths      = "Paths"

	// workbookPlaces is the number of decimals kept in workbook cells.
	workbookPlaces = 8
)

// Metric is one labelled statistic.
type Metric struct {
	Group string
	Name  string
	Value float64
}

// Metrics flattens the statistics bundle of r in a fixed order.
func Metrics(r *Report) []Metric {
	b := r.Statistics
	return []Metric{
		{"terminal", "mean", b.Terminal.Mean},
		{"terminal", "std", b.Terminal.Std},
		{"terminal", "min", b.Terminal.Min},
		{"terminal", "max", b.Terminal.Max},
		{"terminal", "median", b.Terminal.Median},
		{"terminal", "p05", b.Terminal.P05},
		{"terminal", "p25", b.Terminal.P25},
		{"terminal", "p75", b.Terminal.P75},
		{"terminal", "p95", b.Terminal.P95},
		{"paths", "mean_path_volatility", b.Paths.MeanPathVolatility},
		{"paths", "max_drawdown", b.Paths.MaxDrawdown},
		{"paths", "time_above_initial", b.Paths.TimeAboveInitial},
		{"paths", "negative_rates_prob", b.Paths.NegativeRatesProb},
		{"validation", "theoretical_terminal_mean", b.Validation.TheoreticalTerminalMean},
		{"validation", "theoretical_terminal_std", b.Validation.TheoreticalTerminalStd},
		{"validation", "mean_error", b.Validation.MeanError},
		{"validation", "std_error", b.Validation.StdError},
		{"simulation_info", "n_paths", float64(b.Info.NPaths)},
		{"simulation_info", "n_steps", float64(b.Info.NSteps)},
		{"simulation_info", "total_time_years", b.Info.TotalTimeYears},
		{"simulation_info", "dt", b.Info.Dt},
	}
}

func round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(workbookPlaces).InexactFloat64()
}

// SaveWorkbook writes Parameters, Statistics and Paths sheets to path. The Paths sheet
// holds the same columns as the paths CSV.
func SaveWorkbook(path string, r *Report, m *simulation.Matrix, opts PathsOptions) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetParameters); err != nil {
		return fmt.Errorf("SaveWorkbook: %w", err)
	}
	for _, name := range []string{sheetStatistics, sheetPaths} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("SaveWorkbook: %w", err)
		}
	}

	if err := writeParameters(f, r); err != nil {
		return fmt.Errorf("SaveWorkbook: parameters: %w", err)
	}
	if err := writeStatistics(f, r); err != nil {
		return fmt.Errorf("SaveWorkbook: statistics: %w", err)
	}
	if m != nil {
		if err := writePaths(f, m, opts); err != nil {
			return fmt.Errorf("SaveWorkbook: paths: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("SaveWorkbook: %w", err)
	}
	return nil
}

func writeParameters(f *excelize.File, r *Report) error {
	p := r.Parameters
	c := r.Calibration
	rows := [][]any{
		{"parameter", "value"},
		{"kappa", round(p.Kappa)},
		{"theta", round(p.Theta)},
		{"sigma", round(p.Sigma)},
		{"r0", round(p.R0)},
		{"half_life_years", round(c.HalfLifeYears)},
		{"long_rate", round(p.LongRate())},
		{"method", string(c.Method)},
		{"fallback", c.Fallback},
		{"slope_clamped", c.SlopeClamped},
		{"observations", c.Observations},
		{"dt", round(c.Dt)},
		{"run_id", r.RunID},
		{"generated_at", r.GeneratedAt.Format(time.RFC3339)},
		{},
		{"tenor", "discount_factor", "zero_rate"},
	}
	for _, pt := range r.ZeroCurve {
		rows = append(rows, []any{pt.Tenor, round(pt.DiscountFactor), round(pt.ZeroRate)})
	}
	if src := r.Metadata.DataSource; len(src) > 0 {
		rows = append(rows, []any{}, []any{"data_source", ""})
		for _, k := range []string{"source", "series_label", "url", "path", "last_date", "rate_range", "error_api"} {
			if v, ok := src[k]; ok {
				rows = append(rows, []any{k, v})
			}
		}
	}
	return setRows(f, sheetParameters, rows)
}

func writeStatistics(f *excelize.File, r *Report) error {
	rows := [][]any{{"group", "metric", "value"}}
	for _, m := range Metrics(r) {
		rows = append(rows, []any{m.Group, m.Name, round(m.Value)})
	}
	return setRows(f, sheetStatistics, rows)
}

func writePaths(f *excelize.File, m *simulation.Matrix, opts PathsOptions) error {
	k := opts.columns(m)
	withDates := !opts.Start.IsZero()
	var dates []time.Time
	if withDates {
		dates = ScenarioDates(opts.Start, m.Steps(), opts.Dt)
	}

	header := []any{"time_years"}
	if withDates {
		header = append(header, "date")
	}
	for j := 0; j < k; j++ {
		header = append(header, fmt.Sprintf("path_%d", j))
	}
	rows := [][]any{header}
	for t := 0; t <= m.Steps(); t++ {
		row := []any{round(float64(t) * opts.Dt)}
		if withDates {
			row = append(row, dates[t].Format(time.DateOnly))
		}
		states := m.Row(t)
		for j := 0; j < k; j++ {
			row = append(row, states[j])
		}
		rows = append(rows, row)
	}
	return setRows(f, sheetPaths, rows)
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
