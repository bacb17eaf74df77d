package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"FundSignal/internal/domain/models"
	"FundSignal/internal/signal"
)

type fakeFetcher struct {
	series map[string]models.TimeSeries
	calls  []string
	cancel context.CancelFunc
}

func (f *fakeFetcher) Fetch(_ context.Context, code string) (models.TimeSeries, error) {
	f.calls = append(f.calls, code)
	if f.cancel != nil {
		f.cancel()
	}
	s, ok := f.series[code]
	if !ok {
		return models.TimeSeries{}, errors.New("connection reset")
	}
	return s, nil
}

type fakeDirectory map[string]models.FundInfo

func (d fakeDirectory) Lookup(_ context.Context, code string) (models.FundInfo, error) {
	info, ok := d[code]
	if !ok {
		return models.FundInfo{}, errors.New("unknown fund")
	}
	return info, nil
}

type memorySink struct {
	name    string
	fail    bool
	records []models.SignalRecord
	closed  bool
}

func (s *memorySink) Name() string { return s.name }

func (s *memorySink) Write(_ context.Context, records []models.SignalRecord) error {
	if s.fail {
		return errors.New("disk full")
	}
	s.records = append(s.records, records...)
	return nil
}

func (s *memorySink) Close() error { s.closed = true; return nil }

type fileSink struct {
	memorySink
	path string
}

func (s *fileSink) Path() string { return s.path }

type fakeNotifier struct {
	reports     []models.BatchReport
	attachments []string
}

func (n *fakeNotifier) Notify(_ context.Context, r models.BatchReport, attachments []string) error {
	n.reports = append(n.reports, r)
	n.attachments = attachments
	return nil
}

func newPipeline(f *fakeFetcher, sinks []*memorySink, n *fakeNotifier) *Pipeline {
	a := NewAnalyzer(f, fakeDirectory{"110020": {Code: "110020", Name: "易方达消费行业", Category: "股票型"}},
		signal.DefaultThresholds(), nil, nil)
	p := NewPipeline(a, nil, nil, nil, nil, DefaultRetentionDays)
	for _, s := range sinks {
		p.sinks = append(p.sinks, s)
	}
	if n != nil {
		p.notifier = n
	}
	return p
}

func TestPipelineIsolatesFetchFailures(t *testing.T) {
	f := &fakeFetcher{series: map[string]models.TimeSeries{
		"110020": dailySeries("110020", ramp(30)),
		"161725": dailySeries("161725", ramp(12)),
	}}
	sink := &memorySink{name: "memory"}
	n := &fakeNotifier{}
	p := newPipeline(f, []*memorySink{sink}, n)

	report, err := p.Run(context.Background(), []string{"000000", "110020", "161725"}, "2024-03-30")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(f.calls) != 3 {
		t.Fatalf("fetch calls %v, want all three funds", f.calls)
	}
	if len(report.Outcomes) != 3 {
		t.Fatalf("outcomes %d, want 3", len(report.Outcomes))
	}
	first := report.Outcomes[0]
	if first.Code != "000000" || first.State != models.StateSkipped || !errors.Is(first.Err, models.ErrFetchFailed) {
		t.Fatalf("first outcome = %+v", first)
	}
	if report.Outcomes[1].State != models.StateSuccess || report.Outcomes[2].State != models.StateSuccess {
		t.Fatalf("later funds must succeed: %+v", report.Outcomes)
	}
	if report.Skipped() != 1 || len(report.Succeeded()) != 2 {
		t.Fatalf("succeeded/skipped = %d/%d", len(report.Succeeded()), report.Skipped())
	}
	if report.RunID == "" {
		t.Fatalf("run id not set")
	}

	// 30 daily points keep 11 rows; 12 points keep 11 as well.
	if len(sink.records) != 22 || len(report.Records()) != 22 {
		t.Fatalf("sink got %d records, report %d", len(sink.records), len(report.Records()))
	}
	if sink.records[0].Name != "易方达消费行业" {
		t.Fatalf("directory name not applied: %q", sink.records[0].Name)
	}
	if sink.records[len(sink.records)-1].Name != "基金161725" {
		t.Fatalf("default name not applied: %q", sink.records[len(sink.records)-1].Name)
	}
	if !sink.closed {
		t.Fatalf("sinks must be closed at the end of a run")
	}
	if len(n.reports) != 1 {
		t.Fatalf("notifier called %d times", len(n.reports))
	}
}

func TestPipelineBatchFailed(t *testing.T) {
	f := &fakeFetcher{series: map[string]models.TimeSeries{
		"110020": {Code: "110020"}, // empty history is a fetch failure
	}}
	n := &fakeNotifier{}
	p := newPipeline(f, nil, n)

	report, err := p.Run(context.Background(), []string{"110020", "001051"}, "2024-03-30")
	if !errors.Is(err, models.ErrBatchFailed) || !IsBatchFailure(err) {
		t.Fatalf("err = %v, want ErrBatchFailed", err)
	}
	if !errors.Is(report.Outcomes[0].Err, models.ErrEmptyResult) {
		t.Fatalf("empty series should be reported as empty result, got %v", report.Outcomes[0].Err)
	}
	if len(n.reports) != 0 {
		t.Fatalf("no report should be sent for a failed batch")
	}
}

func TestPipelineSinkFailureDoesNotFailFund(t *testing.T) {
	f := &fakeFetcher{series: map[string]models.TimeSeries{"110020": dailySeries("110020", ramp(25))}}
	bad := &memorySink{name: "bad", fail: true}
	good := &memorySink{name: "good"}
	p := newPipeline(f, []*memorySink{bad, good}, nil)

	report, err := p.Run(context.Background(), []string{"110020"}, "2024-03-25")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Outcomes[0].State != models.StateSuccess {
		t.Fatalf("sink failure must not skip the fund")
	}
	if len(good.records) == 0 {
		t.Fatalf("healthy sink should still receive records")
	}
}

func TestPipelineStopsBetweenFundsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeFetcher{
		series: map[string]models.TimeSeries{"110020": dailySeries("110020", ramp(25))},
		cancel: cancel,
	}
	p := newPipeline(f, nil, nil)

	report, err := p.Run(ctx, []string{"110020", "001051", "161725"}, "2024-03-25")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(f.calls) != 1 || len(report.Outcomes) != 1 {
		t.Fatalf("only the in-flight fund should be processed: calls=%v", f.calls)
	}
	if report.Outcomes[0].State != models.StateSuccess {
		t.Fatalf("in-flight fund should complete")
	}
}

func TestPipelineAttachesFileSinks(t *testing.T) {
	f := &fakeFetcher{series: map[string]models.TimeSeries{"110020": dailySeries("110020", ramp(25))}}
	n := &fakeNotifier{}
	p := newPipeline(f, nil, n)
	p.sinks = append(p.sinks, &fileSink{memorySink: memorySink{name: "csv"}, path: "/tmp/signals_2024-03-25.csv"})

	if _, err := p.Run(context.Background(), []string{"110020"}, "2024-03-25"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(n.attachments) != 1 || n.attachments[0] != "/tmp/signals_2024-03-25.csv" {
		t.Fatalf("attachments = %v", n.attachments)
	}
}

func TestPipelineProgressDoesNotDivideByZero(t *testing.T) {
	p := newPipeline(&fakeFetcher{}, nil, nil)
	p.now = func() time.Time { return day0 }
	report, err := p.Run(context.Background(), nil, "2024-03-25")
	if !errors.Is(err, models.ErrBatchFailed) || len(report.Outcomes) != 0 {
		t.Fatalf("empty input should fail the batch: %v", err)
	}
}
