package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/meenmo/shortrate/calendar"
	"github.com/meenmo/shortrate/simulation"
	"github.com/meenmo/shortrate/stats"
	"github.com/meenmo/shortrate/utils"
	"github.com/meenmo/shortrate/vasicek"
)

// DefaultSampleSize is the number of paths exported when AllPaths is off.
const DefaultSampleSize = 100

// PathsOptions controls which paths are exported and how rows are labelled.
type PathsOptions struct {
	Dt float64
	// Start dates row 0. A zero Start omits the date column.
	Start      time.Time
	AllPaths   bool
	SampleSize int
}

func (o PathsOptions) columns(m *simulation.Matrix) int {
	if o.AllPaths {
		return m.Paths()
	}
	n := o.SampleSize
	if n <= 0 {
		n = DefaultSampleSize
	}
	return min(n, m.Paths())
}

// ScenarioDates labels each simulation step with a calendar date. A one-business-day
// step walks the TARGET calendar; any other step advances round(t·dt·365) calendar days
// and rolls forward to the next TARGET business day.
func ScenarioDates(start time.Time, steps int, dt float64) []time.Time {
	if utils.IsDailyStep(dt) {
		return calendar.BusinessDays(calendar.TARGET, start, steps)
	}
	out := make([]time.Time, steps+1)
	out[0] = start
	for t := 1; t <= steps; t++ {
		d := start.AddDate(0, 0, int(math.Round(float64(t)*dt*365)))
		out[t] = calendar.AdjustFollowing(calendar.TARGET, d)
	}
	return out
}

// WritePathsCSV writes a commented header followed by one row per step: time in years,
// the scenario date and one column per exported path.
func WritePathsCSV(w io.Writer, m *simulation.Matrix, p vasicek.Params, term stats.Terminal, opts PathsOptions) error {
	if m == nil {
		return stats.ErrEmptyMatrix
	}
	k := opts.columns(m)

	header := []string{
		"# Vasicek Monte Carlo",
		"# Parameters: " + p.String(),
		fmt.Sprintf("# Terminal: mean=%.6f std=%.6f median=%.6f p05=%.6f p95=%.6f",
			term.Mean, term.Std, term.Median, term.P05, term.P95),
		fmt.Sprintf("# Paths: %d of %d, steps: %d, dt: %g", k, m.Paths(), m.Steps(), opts.Dt),
		"#",
	}
	if _, err := io.WriteString(w, strings.Join(header, "\n")+"\n"); err != nil {
		return fmt.Errorf("WritePathsCSV: %w", err)
	}

	withDates := !opts.Start.IsZero()
	var dates []time.Time
	if withDates {
		dates = ScenarioDates(opts.Start, m.Steps(), opts.Dt)
	}

	cw := csv.NewWriter(w)
	cols := []string{"time_years"}
	if withDates {
		cols = append(cols, "date")
	}
	for j := 0; j < k; j++ {
		cols = append(cols, "path_"+strconv.Itoa(j))
	}
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("WritePathsCSV: %w", err)
	}

	rec := make([]string, 0, len(cols))
	for t := 0; t <= m.Steps(); t++ {
		rec = rec[:0]
		rec = append(rec, strconv.FormatFloat(float64(t)*opts.Dt, 'f', -1, 64))
		if withDates {
			rec = append(rec, dates[t].Format(time.DateOnly))
		}
		row := m.Row(t)
		for j := 0; j < k; j++ {
			rec = append(rec, strconv.FormatFloat(row[j], 'g', -1, 64))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("WritePathsCSV: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("WritePathsCSV: %w", err)
	}
	return nil
}

// SavePathsCSV writes the paths CSV to path.
func SavePathsCSV(path string, m *simulation.Matrix, p vasicek.Params, term stats.Terminal, opts PathsOptions) error {
	return writeFile(path, func(w io.Writer) error { return WritePathsCSV(w, m, p, term, opts) })
}

// ReadPathsCSV parses a file written by WritePathsCSV back into a Matrix of the exported
// paths.
func ReadPathsCSV(r io.Reader) (*simulation.Matrix, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("ReadPathsCSV: header: %w", err)
	}
	var pathCols []int
	for i, h := range header {
		if strings.HasPrefix(h, "path_") {
			pathCols = append(pathCols, i)
		}
	}
	if len(pathCols) == 0 {
		return nil, fmt.Errorf("ReadPathsCSV: no path columns in %v", header)
	}

	var rows [][]float64
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ReadPathsCSV: %w", err)
		}
		row := make([]float64, len(pathCols))
		for j, c := range pathCols {
			if row[j], err = strconv.ParseFloat(rec[c], 64); err != nil {
				return nil, fmt.Errorf("ReadPathsCSV: row %d: %w", len(rows), err)
			}
		}
		rows = append(rows, row)
	}
	return simulation.FromRows(rows)
}
