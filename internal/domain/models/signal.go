package models

import "time"

// Label is a signal classification outcome.
type Label string

const (
	LabelHold             Label = "hold"
	LabelBuy              Label = "buy"
	LabelSell             Label = "sell"
	LabelOpportunisticBuy Label = "opportunistic_buy"
	LabelRiskAlert        Label = "risk_alert"
)

// Labels lists the whole vocabulary in report order.
var Labels = []Label{LabelBuy, LabelOpportunisticBuy, LabelHold, LabelSell, LabelRiskAlert}

// IsBuySide reports whether the label suggests adding to a position.
func (l Label) IsBuySide() bool { return l == LabelBuy || l == LabelOpportunisticBuy }

var labelDisplay = map[Label]string{
	LabelHold:             "持有",
	LabelBuy:              "买入",
	LabelSell:             "卖出",
	LabelOpportunisticBuy: "机会买入",
	LabelRiskAlert:        "提示风险",
}

// Display returns the label as printed in spreadsheets and mail.
func (l Label) Display() string {
	if s, ok := labelDisplay[l]; ok {
		return s
	}
	return string(l)
}

// IsSellSide reports whether the label suggests reducing a position.
func (l Label) IsSellSide() bool { return l == LabelSell || l == LabelRiskAlert }

// IndicatorFrame holds indicator values aligned index-for-index with a TimeSeries.
type IndicatorFrame struct {
	FastMA     []float64
	SlowMA     []float64
	RSI        []float64
	MACD       []float64
	MACDSignal []float64
	CCI        []float64
	BollMid    []float64
	BollUpper  []float64
	BollLower  []float64
}

// Len returns the number of rows in the frame.
func (f IndicatorFrame) Len() int { return len(f.RSI) }

// SignalFrame holds one label per indicator family for every observation.
type SignalFrame struct {
	MA        []Label
	RSI       []Label
	MACD      []Label
	CCI       []Label
	Bollinger []Label
}

// Len returns the number of rows in the frame.
func (f SignalFrame) Len() int { return len(f.MA) }

// SignalRecord is one row of the daily signal report.
type SignalRecord struct {
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Date       time.Time `json:"date"`
	ReportDate string    `json:"report_date"`

	MASignal   Label   `json:"ma_signal"`
	RSI        float64 `json:"rsi"`
	RSISignal  Label   `json:"rsi_signal"`
	CCI        float64 `json:"cci"`
	CCISignal  Label   `json:"cci_signal"`
	MACD       float64 `json:"macd"`
	MACDSignal Label   `json:"macd_signal"`
	BollLower  float64 `json:"boll_lower"`
	BollMid    float64 `json:"boll_mid"`
	BollUpper  float64 `json:"boll_upper"`
	BollSignal Label   `json:"boll_signal"`
}

// Outcome states of a single instrument in a batch.
const (
	StateSuccess = "success"
	StateSkipped = "skipped"
)

// InstrumentOutcome records how one instrument went through the pipeline.
type InstrumentOutcome struct {
	Code    string
	State   string
	Records []SignalRecord
	Err     error
}

// BatchReport summarizes a whole pipeline run.
type BatchReport struct {
	RunID      string
	ReportDate string
	StartedAt  time.Time
	Duration   time.Duration
	Outcomes   []InstrumentOutcome
}

// Succeeded returns the outcomes that produced records.
func (r BatchReport) Succeeded() []InstrumentOutcome {
	out := make([]InstrumentOutcome, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.State == StateSuccess {
			out = append(out, o)
		}
	}
	return out
}

// Skipped returns the number of skipped instruments.
func (r BatchReport) Skipped() int {
	return len(r.Outcomes) - len(r.Succeeded())
}

// Records flattens the records of all successful instruments in input order.
func (r BatchReport) Records() []SignalRecord {
	var out []SignalRecord
	for _, o := range r.Outcomes {
		out = append(out, o.Records...)
	}
	return out
}
