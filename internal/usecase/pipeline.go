package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"FundSignal/internal/domain/models"
	drepo "FundSignal/internal/domain/repository"
	"FundSignal/pkg/logger"

	"github.com/google/uuid"
)

// Pipeline runs the daily report over a list of funds. Funds are processed one
// at a time in input order; a failing fund is skipped without affecting the rest.
type Pipeline struct {
	analyzer      *Analyzer
	sinks         []drepo.SignalSink
	notifier      drepo.ReportNotifier
	metrics       drepo.Metrics
	log           *logger.Logger
	retentionDays int
	now           func() time.Time
}

// NewPipeline creates a Pipeline. notifier and metrics may be nil.
func NewPipeline(
	analyzer *Analyzer,
	sinks []drepo.SignalSink,
	notifier drepo.ReportNotifier,
	metrics drepo.Metrics,
	log *logger.Logger,
	retentionDays int,
) *Pipeline {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{
		analyzer:      analyzer,
		sinks:         sinks,
		notifier:      notifier,
		metrics:       metrics,
		log:           log,
		retentionDays: retentionDays,
		now:           time.Now,
	}
}

// Run processes codes and returns the batch report. Sinks are closed before the
// notifier is called so file artifacts are complete. The error is
// models.ErrBatchFailed when no fund succeeded, or the context error when the
// run was cancelled between funds.
func (p *Pipeline) Run(ctx context.Context, codes []string, reportDate string) (models.BatchReport, error) {
	report := models.BatchReport{
		RunID:      uuid.NewString(),
		ReportDate: reportDate,
		StartedAt:  p.now(),
		Outcomes:   make([]models.InstrumentOutcome, 0, len(codes)),
	}
	log := p.log.With(logger.String("run_id", report.RunID), logger.String("report_date", reportDate))
	log.Info("batch started", logger.Int("funds", len(codes)), logger.Int("retention_days", p.retentionDays))

	var runErr error
	for i, code := range codes {
		if err := ctx.Err(); err != nil {
			log.Warn("batch cancelled", logger.Int("processed", i), logger.Error(err))
			runErr = err
			break
		}

		outcome := p.process(ctx, log, code, reportDate)
		report.Outcomes = append(report.Outcomes, outcome)
		p.metrics.RecordInstrument(outcome.State)
		p.logProgress(log, report.StartedAt, i+1, len(codes))
	}

	p.closeSinks(log)
	report.Duration = p.now().Sub(report.StartedAt)
	p.metrics.RecordRunFinished(p.now())

	succeeded := len(report.Succeeded())
	log.Info("batch finished",
		logger.Int("succeeded", succeeded),
		logger.Int("skipped", report.Skipped()),
		logger.Int("records", len(report.Records())),
		logger.Duration("duration_ms", report.Duration),
	)

	if succeeded == 0 {
		if runErr != nil {
			return report, runErr
		}
		log.Error("batch failed", logger.Int("funds", len(codes)))
		return report, models.ErrBatchFailed
	}

	if p.notifier != nil {
		if err := p.notifier.Notify(ctx, report, p.attachments()); err != nil {
			p.metrics.RecordError("notify")
			log.Error("report notification failed", logger.Error(err))
		}
	}
	return report, runErr
}

func (p *Pipeline) process(ctx context.Context, log *logger.Logger, code, reportDate string) models.InstrumentOutcome {
	analysis, err := p.analyzer.Analyze(ctx, code)
	if err != nil {
		log.Error("fund skipped", logger.String("code", code), logger.Error(err))
		return models.InstrumentOutcome{Code: code, State: models.StateSkipped, Err: err}
	}
	if analysis.Fallback {
		log.Warn("short series, neutral signals used",
			logger.String("code", code), logger.Int("observations", analysis.Series.Len()))
	}

	records := analysis.Records(reportDate, p.retentionDays)
	p.logLatest(log, records)
	p.write(ctx, log, code, records)
	return models.InstrumentOutcome{Code: code, State: models.StateSuccess, Records: records}
}

// write hands records to every sink. A sink failure is logged and counted only.
func (p *Pipeline) write(ctx context.Context, log *logger.Logger, code string, records []models.SignalRecord) {
	if len(records) == 0 {
		return
	}
	for _, s := range p.sinks {
		if err := s.Write(ctx, records); err != nil {
			p.metrics.RecordError("sink_" + s.Name())
			log.Error("sink write failed", logger.String("sink", s.Name()), logger.String("code", code), logger.Error(err))
			continue
		}
		p.metrics.RecordRecordsWritten(s.Name(), len(records))
	}
}

func (p *Pipeline) closeSinks(log *logger.Logger) {
	for _, s := range p.sinks {
		if err := s.Close(); err != nil {
			p.metrics.RecordError("sink_" + s.Name())
			log.Error("sink close failed", logger.String("sink", s.Name()), logger.Error(err))
		}
	}
}

func (p *Pipeline) attachments() []string {
	var paths []string
	for _, s := range p.sinks {
		if fs, ok := s.(drepo.FileSink); ok && fs.Path() != "" {
			paths = append(paths, fs.Path())
		}
	}
	return paths
}

func (p *Pipeline) logProgress(log *logger.Logger, started time.Time, done, total int) {
	elapsed := p.now().Sub(started)
	var eta time.Duration
	if done < total {
		eta = elapsed / time.Duration(done) * time.Duration(total-done)
	}
	log.Info("progress",
		logger.String("done", fmt.Sprintf("%d/%d", done, total)),
		logger.Float("percent", float64(done)*100/float64(total)),
		logger.Duration("elapsed_ms", elapsed),
		logger.Duration("eta_ms", eta),
	)
}

// logLatest logs the labels of the most recent retained row.
func (p *Pipeline) logLatest(log *logger.Logger, records []models.SignalRecord) {
	if len(records) == 0 {
		return
	}
	r := records[len(records)-1]
	log.Info("latest signals",
		logger.String("code", r.Code),
		logger.String("name", r.Name),
		logger.String("date", r.Date.Format("2006-01-02")),
		logger.String("labels", strings.Join([]string{
			"ma=" + string(r.MASignal),
			"rsi=" + string(r.RSISignal),
			"macd=" + string(r.MACDSignal),
			"cci=" + string(r.CCISignal),
			"boll=" + string(r.BollSignal),
		}, " ")),
	)
}

// IsBatchFailure reports whether err means the whole run produced nothing.
func IsBatchFailure(err error) bool {
	return errors.Is(err, models.ErrBatchFailed)
}
