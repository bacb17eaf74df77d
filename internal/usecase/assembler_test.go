package usecase

import (
	"testing"
	"time"

	"FundSignal/internal/domain/models"
	"FundSignal/internal/signal"

	"github.com/shopspring/decimal"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func dailySeries(code string, values []float64) models.TimeSeries {
	obs := make([]models.Observation, len(values))
	for i, v := range values {
		obs[i] = models.Observation{Date: day0.AddDate(0, 0, i), NetValue: decimal.NewFromFloat(v)}
	}
	return models.TimeSeries{Code: code, Observations: obs}
}

func ramp(n int) []float64 {
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = 1 + float64(i%7)*0.01
	}
	return xs
}

func assemble(series models.TimeSeries, date string, days int) []models.SignalRecord {
	f, sf, _ := signal.Evaluate(series.Values(), signal.DefaultThresholds())
	return Assemble(series, f, sf, date, days)
}

func TestAssembleRetentionWindow(t *testing.T) {
	series := dailySeries("110020", ramp(30))
	records := assemble(series, "2024-03-31", 10)

	maxDate := series.LastDate()
	cutoff := maxDate.AddDate(0, 0, -10)
	if len(records) != 11 {
		t.Fatalf("got %d records, want 11", len(records))
	}
	for _, r := range records {
		if r.Date.Before(cutoff) {
			t.Fatalf("record dated %s is before cutoff %s", r.Date, cutoff)
		}
		if r.ReportDate != "2024-03-31" {
			t.Fatalf("report date %q not attached", r.ReportDate)
		}
	}
	if !records[len(records)-1].Date.Equal(maxDate) {
		t.Fatalf("last record should be the latest observation")
	}
}

func TestAssembleRetentionSkipsGaps(t *testing.T) {
	// Weekday-only series: calendar days, not observations, define the window.
	var obs []models.Observation
	for d := day0; len(obs) < 30; d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		obs = append(obs, models.Observation{Date: d, NetValue: decimal.NewFromFloat(1.1)})
	}
	series := models.TimeSeries{Code: "001051", Observations: obs}
	records := assemble(series, "2024-04-12", 10)

	cutoff := series.LastDate().AddDate(0, 0, -10)
	want := 0
	for _, o := range obs {
		if !o.Date.Before(cutoff) {
			want++
		}
	}
	if len(records) != want {
		t.Fatalf("got %d records, want %d", len(records), want)
	}
}

func TestAssembleZeroAndNegativeRetention(t *testing.T) {
	series := dailySeries("110020", ramp(25))
	for _, days := range []int{0, -3} {
		records := assemble(series, "2024-03-25", days)
		if len(records) != 1 || !records[0].Date.Equal(series.LastDate()) {
			t.Fatalf("days=%d: want only the latest row, got %d", days, len(records))
		}
	}
}

func TestAssembleEmptySeries(t *testing.T) {
	records := assemble(models.TimeSeries{Code: "110020"}, "2024-03-25", 10)
	if records == nil || len(records) != 0 {
		t.Fatalf("want empty non-nil slice, got %#v", records)
	}
}

func TestAssembleMetadata(t *testing.T) {
	series := dailySeries("110020", ramp(5))
	records := assemble(series, "2024-03-05", 10)
	if records[0].Name != "基金110020" || records[0].Category != "未知类型" {
		t.Fatalf("defaults not applied: %q / %q", records[0].Name, records[0].Category)
	}

	series = series.WithInfo(models.FundInfo{Name: "易方达沪深300ETF联接A", Category: "指数型-股票"})
	records = assemble(series, "2024-03-05", 10)
	if records[0].Name != "易方达沪深300ETF联接A" || records[0].Category != "指数型-股票" {
		t.Fatalf("metadata not carried: %q / %q", records[0].Name, records[0].Category)
	}
}

func TestAssembleProjectsColumns(t *testing.T) {
	series := dailySeries("110020", ramp(40))
	f, sf, _ := signal.Evaluate(series.Values(), signal.DefaultThresholds())
	records := Assemble(series, f, sf, "2024-04-09", 3)

	offset := series.Len() - len(records)
	for j, r := range records {
		i := offset + j
		if r.RSI != f.RSI[i] || r.CCI != f.CCI[i] || r.MACD != f.MACD[i] {
			t.Fatalf("row %d: indicator values misaligned", i)
		}
		if r.BollLower != f.BollLower[i] || r.BollMid != f.BollMid[i] || r.BollUpper != f.BollUpper[i] {
			t.Fatalf("row %d: band values misaligned", i)
		}
		if r.MASignal != sf.MA[i] || r.BollSignal != sf.Bollinger[i] || r.RSISignal != sf.RSI[i] {
			t.Fatalf("row %d: labels misaligned", i)
		}
	}
}
