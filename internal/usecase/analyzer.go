package usecase

import (
	"context"
	"fmt"
	"time"

	"FundSignal/internal/domain/models"
	drepo "FundSignal/internal/domain/repository"
	"FundSignal/internal/signal"
	"FundSignal/pkg/logger"
)

// Analysis is the computed state of one fund.
type Analysis struct {
	Series     models.TimeSeries
	Indicators models.IndicatorFrame
	Signals    models.SignalFrame
	Fallback   bool
}

// Analyzer fetches one fund and runs the indicator and signal engines over it.
type Analyzer struct {
	fetcher    drepo.SeriesFetcher
	directory  drepo.FundDirectory
	thresholds signal.Thresholds
	metrics    drepo.Metrics
	log        *logger.Logger
}

// NewAnalyzer creates an Analyzer. directory may be nil.
func NewAnalyzer(
	fetcher drepo.SeriesFetcher,
	directory drepo.FundDirectory,
	thresholds signal.Thresholds,
	metrics drepo.Metrics,
	log *logger.Logger,
) *Analyzer {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Analyzer{
		fetcher:    fetcher,
		directory:  directory,
		thresholds: thresholds,
		metrics:    metrics,
		log:        log,
	}
}

// Analyze fetches and evaluates code. Failures wrap models.ErrFetchFailed or
// models.ErrComputeFailed.
func (a *Analyzer) Analyze(ctx context.Context, code string) (Analysis, error) {
	start := time.Now()
	series, err := a.fetcher.Fetch(ctx, code)
	a.metrics.RecordLatency("fetch", time.Since(start).Seconds())
	if err != nil {
		a.metrics.RecordError("fetch")
		return Analysis{}, fmt.Errorf("%w: %s: %w", models.ErrFetchFailed, code, err)
	}
	if series.Len() == 0 {
		a.metrics.RecordError("fetch")
		return Analysis{}, fmt.Errorf("%w: %s: %w", models.ErrFetchFailed, code, models.ErrEmptyResult)
	}
	if series.Code == "" {
		series.Code = code
	}

	if a.directory != nil && (series.Name == "" || series.Category == "") {
		info, err := a.directory.Lookup(ctx, series.Code)
		if err != nil {
			a.log.Warn("fund directory lookup failed", logger.String("code", series.Code), logger.Error(err))
		} else {
			series = series.WithInfo(info)
		}
	}

	start = time.Now()
	analysis, err := a.evaluate(series)
	a.metrics.RecordLatency("compute", time.Since(start).Seconds())
	if err != nil {
		a.metrics.RecordError("compute")
		return Analysis{}, err
	}
	if analysis.Fallback {
		a.metrics.RecordFallback()
	}
	last := series.Observations[series.Len()-1]
	a.metrics.RecordNetValue(series.Code, last.NetValue.InexactFloat64())
	return analysis, nil
}

// evaluate runs the engines, turning a panic into ErrComputeFailed so one bad
// series cannot take down a batch.
func (a *Analyzer) evaluate(series models.TimeSeries) (res Analysis, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", models.ErrComputeFailed, series.Code, r)
		}
	}()

	prices := series.Values()
	f, sf, fellBack := signal.Evaluate(prices, a.thresholds)
	if f.Len() != len(prices) || sf.Len() != len(prices) {
		return Analysis{}, fmt.Errorf("%w: %s: frame length %d/%d for %d observations",
			models.ErrComputeFailed, series.Code, f.Len(), sf.Len(), len(prices))
	}
	return Analysis{Series: series, Indicators: f, Signals: sf, Fallback: fellBack}, nil
}

// Records assembles the report rows of an analysis.
func (a Analysis) Records(reportDate string, retentionDays int) []models.SignalRecord {
	return Assemble(a.Series, a.Indicators, a.Signals, reportDate, retentionDays)
}

type noopMetrics struct{}

func (noopMetrics) RecordInstrument(string)          {}
func (noopMetrics) RecordFallback()                  {}
func (noopMetrics) RecordRecordsWritten(string, int) {}
func (noopMetrics) RecordError(string)               {}
func (noopMetrics) RecordLatency(string, float64)    {}
func (noopMetrics) RecordNetValue(string, float64)   {}
func (noopMetrics) RecordRunFinished(time.Time)      {}
