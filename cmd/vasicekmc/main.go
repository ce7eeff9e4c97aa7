package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/meenmo/shortrate/calibration"
	"github.com/meenmo/shortrate/config"
	"github.com/meenmo/shortrate/internal/logging"
	"github.com/meenmo/shortrate/marketdata"
	"github.com/meenmo/shortrate/report"
	"github.com/meenmo/shortrate/stats"
)

type errorOutput struct {
	Error string `json:"error"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		exitError(err.Error())
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := config.NewFlagSet("vasicekmc")
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: vasicekmc [flags]")
		fmt.Fprintln(stderr, "Calibrate a Vasicek model to Euribor fixings and simulate Monte Carlo rate paths.")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	path, _ := fs.GetString("config")
	cfg, err := config.Load(path, fs)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel(), cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	return execute(ctx, cfg, logger, stdout)
}

// execute runs load → calibrate → simulate → export.
func execute(ctx context.Context, cfg *config.Config, logger *zap.Logger, stdout io.Writer) error {
	started := time.Now()

	series, meta, err := source(cfg, logger).Load(ctx)
	if err != nil {
		return fmt.Errorf("load data: %w", err)
	}

	if cfg.Data.InferDt {
		dt, err := marketdata.InferDt(series)
		if err != nil {
			return err
		}
		logger.Info("inferred step from data", zap.Float64("dt", dt))
		cfg.Calibration.Dt = dt
	}
	dt := cfg.Calibration.Dt

	cal := calibration.New(calibration.WithLogger(logger))
	rates := series.Values()
	res, err := cal.Calibrate(cfg.Method(), rates, dt)
	if err != nil {
		return fmt.Errorf("calibrate: %w", err)
	}
	logger.Info("calibrated",
		zap.Stringer("params", res.Params),
		zap.String("method", string(res.Method)),
		zap.Bool("fallback", res.Fallback),
		zap.Int("observations", len(rates)))

	var quality *calibration.QualityReport
	if cfg.Calibration.ShowQuality {
		q, err := cal.Quality(rates, res.Params, dt)
		if err != nil {
			return fmt.Errorf("quality: %w", err)
		}
		logger.Info("fit quality",
			zap.Float64("rmse", q.RMSE),
			zap.Float64("mean_residual", q.MeanResidual),
			zap.Float64("residual_autocorr", q.ResidualAutocorr))
		quality = &q
	}

	m, bundle, err := stats.Run(res.Params, cfg.SimulationConfig())
	if err != nil {
		return fmt.Errorf("simulate: %w", err)
	}
	logger.Info("simulated",
		zap.Int("paths", m.Paths()),
		zap.Int("steps", m.Steps()),
		zap.Float64("terminal_mean", bundle.Terminal.Mean),
		zap.Float64("mean_error", bundle.Validation.MeanError))

	rep := report.New(report.Input{
		Calibration:  res,
		Observations: len(rates),
		Dt:           dt,
		Quality:      quality,
		Statistics:   bundle,
		DataSource:   meta,
		Config:       cfg,
		Started:      started,
	})

	opts := report.PathsOptions{
		Dt:         dt,
		Start:      series.Last().Date,
		AllPaths:   cfg.Export.AllPaths,
		SampleSize: cfg.Export.SampleSize,
	}
	if p := cfg.Export.PathsCSV; p != "" {
		if err := report.SavePathsCSV(p, m, res.Params, bundle.Terminal, opts); err != nil {
			return err
		}
		logger.Info("paths exported", zap.String("file", p))
	}
	if p := cfg.Export.Workbook; p != "" {
		if err := report.SaveWorkbook(p, rep, m, opts); err != nil {
			return err
		}
		logger.Info("workbook exported", zap.String("file", p))
	}
	if p := cfg.Export.StatsJSON; p != "" {
		if err := report.SaveJSON(p, rep); err != nil {
			return err
		}
		logger.Info("report exported", zap.String("file", p))
		return nil
	}
	return report.WriteJSON(stdout, rep)
}

func source(cfg *config.Config, logger *zap.Logger) marketdata.Source {
	csv := marketdata.NewCSVSource(cfg.Data.CSVPath)
	if !cfg.Data.ECBEnabled {
		return csv
	}

	opts := []marketdata.ECBOption{
		marketdata.WithBaseURL(cfg.Data.ECBBaseURL),
		marketdata.WithLastN(cfg.Data.LastN),
		marketdata.WithTimeout(cfg.Data.Timeout),
		marketdata.WithLogger(logger),
	}
	if cfg.Data.ECBSeries != "" {
		// Validated by config.Load.
		s, _ := cfg.ECBSeries()
		opts = append(opts, marketdata.WithSeries(s))
	}
	return marketdata.Fallback(logger, marketdata.NewECBSource(opts...), csv)
}

func exitError(msg string) {
	b, _ := json.Marshal(errorOutput{Error: msg})
	fmt.Println(string(b))
	os.Exit(1)
}
