package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	out := map[string]float64{}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range m.GetLabel() {
				key += "," + lp.GetName() + "=" + lp.GetValue()
			}
			switch {
			case m.Counter != nil:
				out[key] = m.Counter.GetValue()
			case m.Gauge != nil:
				out[key] = m.Gauge.GetValue()
			case m.Histogram != nil:
				out[key] = float64(m.Histogram.GetSampleCount())
			}
		}
	}
	return out
}

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordInstrument("success")
	r.RecordInstrument("success")
	r.RecordInstrument("skipped")
	r.RecordFallback()
	r.RecordRecordsWritten("csv", 10)
	r.RecordLatency("fetch", 0.2)
	r.RecordNetValue("110020", 1.2345)
	r.RecordRunFinished(time.Unix(1700000000, 0))

	got := gather(t, reg)
	want := map[string]float64{
		"fundsignal_instruments_total,state=success":           2,
		"fundsignal_instruments_total,state=skipped":           1,
		"fundsignal_short_series_total":                        1,
		"fundsignal_records_written_total,sink=csv":            10,
		"fundsignal_operation_duration_seconds,operation=fetch": 1,
		"fundsignal_last_net_value,code=110020":                1.2345,
		"fundsignal_last_run_timestamp_seconds":                1700000000,
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("%s = %v, want %v", k, got[k], v)
		}
	}
}
