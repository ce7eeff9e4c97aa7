package marketdata

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ECBBaseURL is the SDMX REST root of the ECB Statistical Data Warehouse.
const ECBBaseURL = "https://sdw-wsrest.ecb.europa.eu/service/data"

// ECBSeries identifies one SDW series by dataflow and key.
type ECBSeries struct {
	Label   string
	Dataset string
	Key     string
}

// DefaultECBSeries are the Euribor 3M candidates, in the order they are tried.
var DefaultECBSeries = []ECBSeries{
	{Label: "Euribor 3M (FM)", Dataset: "FM", Key: "M.U2.EUR.RT.MM.EURIBOR3MD_.HSTA"},
	{Label: "Euribor 3M (MIR)", Dataset: "MIR", Key: "M.B.U2.EUR.4F.KR.MRR_FR.LEV"},
}

const (
	defaultLastN   = 600
	defaultTimeout = 15 * time.Second
)

// ECBSource downloads the most recent observations of the first candidate series that
// answers with a usable CSV table. Quotes above 2 are read as percent.
type ECBSource struct {
	baseURL string
	series  []ECBSeries
	lastN   int
	client  *resty.Client
	logger  *zap.Logger
}

// ECBOption configures an ECBSource.
type ECBOption func(*ECBSource)

// WithBaseURL overrides ECBBaseURL.
func WithBaseURL(u string) ECBOption {
	return func(e *ECBSource) { e.baseURL = u }
}

// WithSeries replaces DefaultECBSeries.
func WithSeries(s ...ECBSeries) ECBOption {
	return func(e *ECBSource) { e.series = s }
}

// WithLastN sets the lastNObservations query parameter.
func WithLastN(n int) ECBOption {
	return func(e *ECBSource) {
		if n > 0 {
			e.lastN = n
		}
	}
}

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) ECBOption {
	return func(e *ECBSource) {
		if d > 0 {
			e.client.SetTimeout(d)
		}
	}
}

// WithLogger sets the logger used for per-series diagnostics.
func WithLogger(l *zap.Logger) ECBOption {
	return func(e *ECBSource) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewECBSource returns a source with DefaultECBSeries, 600 observations and a 15s timeout
// unless overridden.
func NewECBSource(opts ...ECBOption) *ECBSource {
	e := &ECBSource{
		baseURL: ECBBaseURL,
		series:  DefaultECBSeries,
		lastN:   defaultLastN,
		client: resty.New().
			SetTimeout(defaultTimeout).
			SetHeader("Accept", "text/csv"),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *ECBSource) Name() string { return "ECB_SDW" }

func (e *ECBSource) Load(ctx context.Context) (*Series, Metadata, error) {
	if len(e.series) == 0 {
		return nil, nil, fmt.Errorf("%w: no ECB series configured", ErrNoData)
	}

	var errs []error
	for _, cand := range e.series {
		s, url, err := e.fetch(ctx, cand)
		if err != nil {
			e.logger.Debug("ECB series unavailable",
				zap.String("series", cand.Label),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", cand.Label, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		meta := describe(s)
		meta["source"] = e.Name()
		meta["series_label"] = cand.Label
		meta["url"] = url
		return s, meta, nil
	}
	return nil, nil, fmt.Errorf("ecb: every candidate series failed: %w", errors.Join(errs...))
}

func (e *ECBSource) fetch(ctx context.Context, cand ECBSeries) (*Series, string, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", e.baseURL, cand.Dataset, cand.Key)
	url := endpoint + "?lastNObservations=" + strconv.Itoa(e.lastN)

	resp, err := e.client.R().
		SetContext(ctx).
		SetQueryParam("lastNObservations", strconv.Itoa(e.lastN)).
		Get(endpoint)
	if err != nil {
		return nil, url, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, url, fmt.Errorf("HTTP %d", resp.StatusCode())
	}

	rows, err := readTable(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, url, err
	}
	percentToFraction(rows)
	s, err := toSeries(rows)
	if err != nil {
		return nil, url, err
	}
	return s, url, nil
}
