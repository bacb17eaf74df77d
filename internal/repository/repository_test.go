package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"FundSignal/internal/domain/models"
	pkgkafka "FundSignal/pkg/kafka"

	"github.com/xuri/excelize/v2"
)

func sampleRecords(code string, n int) []models.SignalRecord {
	out := make([]models.SignalRecord, n)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = models.SignalRecord{
			Code: code, Name: "基金" + code, Category: "混合型",
			Date: start.AddDate(0, 0, i), ReportDate: "2024-03-20",
			MASignal: models.LabelBuy, RSI: 55.5, RSISignal: models.LabelHold,
			CCI: -120, CCISignal: models.LabelBuy, MACD: 0.0123, MACDSignal: models.LabelSell,
			BollLower: 0.9, BollMid: 1, BollUpper: 1.1, BollSignal: models.LabelOpportunisticBuy,
		}
	}
	return out
}

func TestCSVWriterAppendsWithSingleHeader(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(filepath.Join(dir, "out"), "2024-03-20")
	ctx := context.Background()

	if err := w.Write(ctx, sampleRecords("110020", 2)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Write(ctx, sampleRecords("001051", 3)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	raw, err := os.ReadFile(w.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(raw, utf8BOM) {
		t.Fatalf("missing BOM")
	}
	rows, err := csv.NewReader(bytes.NewReader(raw[len(utf8BOM):])).ReadAll()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("expected header + 5 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(reportHeader, ",") {
		t.Fatalf("unexpected header %v", rows[0])
	}
	r := rows[3]
	if r[0] != "001051" || r[3] != "2024-03-01" || r[4] != "买入" || r[14] != "机会买入" || r[15] != "2024-03-20" {
		t.Fatalf("unexpected row %v", r)
	}
	if filepath.Base(w.Path()) != "signals_2024-03-20.csv" {
		t.Fatalf("unexpected path %s", w.Path())
	}
}

func TestCSVWriterWithoutRecordsLeavesNoFile(t *testing.T) {
	w := NewCSVWriter(t.TempDir(), "2024-03-20")
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(w.Path()); !os.IsNotExist(err) {
		t.Fatalf("expected no file, stat err=%v", err)
	}
}

func TestExcelWriterSavesOnClose(t *testing.T) {
	w := NewExcelWriter(t.TempDir(), "2024-03-20")
	if err := w.Write(context.Background(), sampleRecords("110020", 4)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(w.Path()); !os.IsNotExist(err) {
		t.Fatalf("workbook should not exist before close")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := excelize.OpenFile(w.Path())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(excelSheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(rows))
	}
	if rows[0][0] != "基金代码" || rows[1][0] != "110020" || rows[4][6] != "持有" {
		t.Fatalf("unexpected content %v", rows)
	}
}

func TestBuildInsertPlaceholders(t *testing.T) {
	q, args, err := buildInsert("funds.fund_signals", sampleRecords("110020", 3))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := strings.Count(q, "?"); got != 48 || len(args) != 48 {
		t.Fatalf("expected 48 placeholders and args, got %d/%d", got, len(args))
	}
	if !strings.HasPrefix(q, "INSERT INTO funds.fund_signals (code, name") {
		t.Fatalf("unexpected query %s", q)
	}
	if args[5] != "buy" {
		t.Fatalf("labels are stored by key, got %v", args[5])
	}

	bad := sampleRecords("110020", 1)
	bad[0].ReportDate = "20/03/2024"
	if _, _, err := buildInsert("t", bad); err == nil {
		t.Fatalf("expected report date error")
	}
}

func TestSignalStoreRejectsBadTableName(t *testing.T) {
	if _, err := NewClickHouseSignalStore(nil, "signals; DROP TABLE x", nil); err == nil {
		t.Fatalf("expected error")
	}
}

type fakeBatch struct {
	topic string
	msgs  []pkgkafka.Message
	err   error
}

func (f *fakeBatch) PublishBatch(_ context.Context, topic string, m []pkgkafka.Message) error {
	f.topic = topic
	f.msgs = append(f.msgs, m...)
	return f.err
}

func TestKafkaSignalPublisherKeysByCode(t *testing.T) {
	fb := &fakeBatch{}
	p := NewKafkaSignalPublisher(fb, "fund-signals")
	if err := p.Write(context.Background(), sampleRecords("001051", 2)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if fb.topic != "fund-signals" || len(fb.msgs) != 2 {
		t.Fatalf("unexpected publish %s %d", fb.topic, len(fb.msgs))
	}
	if string(fb.msgs[0].Key) != "001051" {
		t.Fatalf("unexpected key %s", fb.msgs[0].Key)
	}
	b, _ := json.Marshal(fb.msgs[1].Value)
	if !strings.Contains(string(b), `"boll_signal":"opportunistic_buy"`) {
		t.Fatalf("unexpected payload %s", b)
	}

	fb.err = errors.New("broker down")
	if err := p.Write(context.Background(), sampleRecords("001051", 1)); err == nil {
		t.Fatalf("expected error")
	}
}
