package repository

import (
	"context"
	"time"

	"FundSignal/internal/domain/models"
)

// SeriesFetcher obtains the NAV history of one fund.
type SeriesFetcher interface {
	Fetch(ctx context.Context, code string) (models.TimeSeries, error)
}

// FundDirectory resolves display metadata for a fund code.
type FundDirectory interface {
	Lookup(ctx context.Context, code string) (models.FundInfo, error)
}

// SignalSink receives the records of each successful fund as soon as they are
// assembled.
type SignalSink interface {
	Name() string
	Write(ctx context.Context, records []models.SignalRecord) error
	Close() error
}

// FileSink is a SignalSink backed by a local file that can be attached to a report.
type FileSink interface {
	SignalSink
	Path() string
}

// ReportNotifier delivers a finished batch report.
type ReportNotifier interface {
	Notify(ctx context.Context, report models.BatchReport, attachments []string) error
}

// Metrics defines metrics recording interface.
type Metrics interface {
	RecordInstrument(state string)
	RecordFallback()
	RecordRecordsWritten(sink string, n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordNetValue(code string, value float64)
	RecordRunFinished(at time.Time)
}
