package marketdata

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Source loads a rate history.
type Source interface {
	Name() string
	Load(ctx context.Context) (*Series, Metadata, error)
}

// CSVSource reads a local table with date and rate columns. Percent quotes are rescaled
// to decimal fractions as for the ECB source.
type CSVSource struct {
	Path string
}

// NewCSVSource returns a CSVSource for path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

func (c *CSVSource) Name() string { return "csv" }

func (c *CSVSource) Load(ctx context.Context) (*Series, Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("csv %s: %w", c.Path, err)
	}
	defer f.Close()

	rows, err := readTable(f)
	if err != nil {
		return nil, nil, fmt.Errorf("csv %s: %w", c.Path, err)
	}
	percentToFraction(rows)
	s, err := toSeries(rows)
	if err != nil {
		return nil, nil, fmt.Errorf("csv %s: %w", c.Path, err)
	}

	meta := describe(s)
	meta["source"] = c.Name()
	meta["path"] = c.Path
	return s, meta, nil
}

// FallbackSource tries each source in order and returns the first success.
type FallbackSource struct {
	sources []Source
	logger  *zap.Logger
}

// Fallback chains sources. A nil logger disables logging.
func Fallback(logger *zap.Logger, sources ...Source) *FallbackSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackSource{sources: sources, logger: logger}
}

func (f *FallbackSource) Name() string { return "fallback" }

// Load returns the first source that succeeds. When it is not the first, its metadata
// source is prefixed with "fallback_" and error_api records why the earlier sources
// failed. When every source fails the errors are joined.
func (f *FallbackSource) Load(ctx context.Context) (*Series, Metadata, error) {
	if len(f.sources) == 0 {
		return nil, nil, fmt.Errorf("%w: no sources configured", ErrNoData)
	}

	var errs []error
	for i, src := range f.sources {
		s, meta, err := src.Load(ctx)
		if err != nil {
			f.logger.Warn("data source failed",
				zap.String("source", src.Name()),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if i > 0 {
			meta["source"] = "fallback_" + meta["source"]
			meta["error_api"] = errors.Join(errs...).Error()
		}
		f.logger.Info("rate history loaded",
			zap.String("source", meta["source"]),
			zap.Int("observations", s.Len()),
			zap.String("last_date", meta["last_date"]))
		return s, meta, nil
	}
	return nil, nil, errors.Join(errs...)
}
