package mailer

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"FundSignal/internal/domain/models"

	"gopkg.in/gomail.v2"
)

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

func report() models.BatchReport {
	labels := []models.Label{
		models.LabelBuy, models.LabelOpportunisticBuy, models.LabelSell,
		models.LabelRiskAlert, models.LabelRiskAlert, models.LabelHold,
	}
	recs := make([]models.SignalRecord, len(labels))
	for i, l := range labels {
		recs[i] = models.SignalRecord{Code: "110020", BollSignal: l}
	}
	return models.BatchReport{
		ReportDate: "2024-03-20",
		Outcomes: []models.InstrumentOutcome{
			{Code: "110020", State: models.StateSuccess, Records: recs[:3]},
			{Code: "001051", State: models.StateSuccess, Records: recs[3:]},
			{Code: "999999", State: models.StateSkipped, Err: models.ErrFetchFailed},
		},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(report())
	if s.Funds != 2 || s.Buy != 2 || s.Sell != 3 || s.Hold != 1 {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestNotifySkipsWithoutConfig(t *testing.T) {
	cases := []Config{
		{Recipients: []string{"a@example.com"}},
		{User: "u@example.com", Password: "p"},
	}
	for _, cfg := range cases {
		fs := &fakeSender{}
		m := NewWithSender(cfg, fs, nil)
		if err := m.Notify(context.Background(), report(), nil); !errors.Is(err, ErrNotConfigured) {
			t.Fatalf("expected ErrNotConfigured, got %v", err)
		}
		if len(fs.sent) != 0 {
			t.Fatalf("nothing should be sent")
		}
	}
}

func TestNotifyBuildsMessage(t *testing.T) {
	dir := t.TempDir()
	att := filepath.Join(dir, "signals_2024-03-20.csv")
	if err := os.WriteFile(att, []byte("a,b\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	fs := &fakeSender{}
	m := NewWithSender(Config{
		Server: "smtp.example.com", Port: 465, User: "bot@example.com", Password: "secret",
		Recipients: []string{"a@example.com", "b@example.com"},
	}, fs, nil)

	if err := m.Notify(context.Background(), report(), []string{att}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(fs.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(fs.sent))
	}
	msg := fs.sent[0]
	if got := msg.GetHeader("Subject"); len(got) != 1 || got[0] != "Fund Bollinger signal report - 2024-03-20" {
		t.Fatalf("unexpected subject %v", got)
	}
	if got := msg.GetHeader("To"); len(got) != 2 {
		t.Fatalf("unexpected recipients %v", got)
	}

	var sb strings.Builder
	if _, err := msg.WriteTo(&sb); err != nil {
		t.Fatalf("write message: %v", err)
	}
	raw := sb.String()
	if !strings.Contains(raw, "signals_2024-03-20.csv") {
		t.Fatalf("attachment missing")
	}
}

func TestNotifyWrapsSendError(t *testing.T) {
	fs := &fakeSender{err: io.ErrUnexpectedEOF}
	m := NewWithSender(Config{User: "u", Password: "p", Recipients: []string{"a@example.com"}}, fs, nil)
	if err := m.Notify(context.Background(), report(), nil); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestRenderBodyCounts(t *testing.T) {
	body, err := renderBody(Summary{ReportDate: "2024-03-20", Funds: 2, Buy: 2, Sell: 3, Hold: 1})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"2024-03-20", "买入信号：<span style=\"color: #27ae60;\">2个", "卖出信号：<span style=\"color: #e74c3c;\">3个"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q", want)
		}
	}
}

func TestSampleReport(t *testing.T) {
	s := Summarize(SampleReport("2024-03-20"))
	if s.Funds != 1 || s.Buy != 1 {
		t.Fatalf("unexpected sample summary %+v", s)
	}
}
