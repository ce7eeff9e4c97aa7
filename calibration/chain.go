package calibration

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Estimator produces a Result from a rate column and step size.
type Estimator func(rates []float64, dt float64) (Result, error)

// Strategy is one entry of a Chain.
type Strategy struct {
	Method   Method
	Estimate Estimator
}

// Chain runs strategies in order and returns the first success.
//
// Input errors (insufficient data, invalid dt or series) stop the chain at once, since
// no later strategy could succeed on the same input. Otherwise every failure is logged
// and the next strategy runs; when all fail the errors are joined.
type Chain []Strategy

func (c Chain) Run(rates []float64, dt float64, logger *zap.Logger) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(c) == 0 {
		return Result{}, fmt.Errorf("%w: empty strategy chain", ErrInvalidMethod)
	}

	var errs []error
	for i, s := range c {
		res, err := s.Estimate(rates, dt)
		if err == nil {
			res.Fallback = i > 0
			if res.Fallback {
				logger.Warn("calibration degraded to fallback strategy",
					zap.String("requested", string(c[0].Method)),
					zap.String("used", string(s.Method)),
					zap.Error(errors.Join(errs...)))
			}
			return res, nil
		}
		if fatal(err) {
			return Result{}, err
		}
		logger.Debug("calibration strategy failed",
			zap.String("method", string(s.Method)),
			zap.Int("position", i),
			zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", s.Method, err))
	}
	return Result{}, errors.Join(errs...)
}
