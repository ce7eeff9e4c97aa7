package marketdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meenmo/shortrate/utils"
)

var (
	dateColumns = []string{"TIME_PERIOD", "DATE", "TIME"}
	rateColumns = []string{"OBS_VALUE", "VALUE", "RATE"}

	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
)

type row struct {
	date time.Time
	rate decimal.Decimal
}

// readTable reads a headered CSV table and extracts the first recognised date and rate
// columns (case-insensitive). Rows with a blank date or rate are dropped.
func readTable(r io.Reader) ([]row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty table", ErrNoData)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	dateIdx := findColumn(header, dateColumns)
	rateIdx := findColumn(header, rateColumns)
	if dateIdx < 0 || rateIdx < 0 {
		return nil, fmt.Errorf("%w: available columns %v", ErrMissingColumn, header)
	}

	var rows []row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if dateIdx >= len(rec) || rateIdx >= len(rec) {
			continue
		}
		ds, rs := strings.TrimSpace(rec[dateIdx]), strings.TrimSpace(rec[rateIdx])
		if ds == "" || rs == "" || strings.EqualFold(rs, "NaN") {
			continue
		}
		d, err := utils.ParseDate(ds)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		v, err := decimal.NewFromString(rs)
		if err != nil {
			return nil, fmt.Errorf("line %d: rate %q: %w", line, rs, err)
		}
		rows = append(rows, row{date: d, rate: v})
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}
	return rows, nil
}

func findColumn(header, names []string) int {
	for i, h := range header {
		h = strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		for _, n := range names {
			if h == n {
				return i
			}
		}
	}
	return -1
}

// percentToFraction rescales quotes published in percent. A maximum above 2 (200%) can
// only be a percent quote.
func percentToFraction(rows []row) {
	hi := rows[0].rate
	for _, r := range rows[1:] {
		hi = decimal.Max(hi, r.rate)
	}
	if !hi.GreaterThan(two) {
		return
	}
	for i := range rows {
		rows[i].rate = rows[i].rate.Div(hundred)
	}
}

func toSeries(rows []row) (*Series, error) {
	obs := make([]Observation, len(rows))
	for i, r := range rows {
		obs[i] = Observation{Date: r.date, Rate: r.rate.InexactFloat64()}
	}
	return NewSeries(obs)
}
