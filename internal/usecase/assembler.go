package usecase

import (
	"time"

	"FundSignal/internal/domain/models"
)

const (
	// DefaultRetentionDays is the trailing window kept in a report.
	DefaultRetentionDays = 10

	unknownCategory = "未知类型"
)

// DefaultName is the display name used when the directory has none for code.
func DefaultName(code string) string {
	return "基金" + code
}

// Assemble projects the rows of a computed series that fall within the last
// retentionDays calendar days before its latest observation into report
// records. The frames must be index-aligned with series. A negative retention
// counts as zero.
func Assemble(series models.TimeSeries, f models.IndicatorFrame, sf models.SignalFrame, reportDate string, retentionDays int) []models.SignalRecord {
	n := series.Len()
	if n == 0 {
		return []models.SignalRecord{}
	}
	if retentionDays < 0 {
		retentionDays = 0
	}

	name := series.Name
	if name == "" {
		name = DefaultName(series.Code)
	}
	category := series.Category
	if category == "" {
		category = unknownCategory
	}

	cutoff := series.LastDate().AddDate(0, 0, -retentionDays)
	start := firstOnOrAfter(series.Observations, cutoff)

	out := make([]models.SignalRecord, 0, n-start)
	for i := start; i < n; i++ {
		out = append(out, models.SignalRecord{
			Code:       series.Code,
			Name:       name,
			Category:   category,
			Date:       series.Observations[i].Date,
			ReportDate: reportDate,
			MASignal:   sf.MA[i],
			RSI:        f.RSI[i],
			RSISignal:  sf.RSI[i],
			CCI:        f.CCI[i],
			CCISignal:  sf.CCI[i],
			MACD:       f.MACD[i],
			MACDSignal: sf.MACD[i],
			BollLower:  f.BollLower[i],
			BollMid:    f.BollMid[i],
			BollUpper:  f.BollUpper[i],
			BollSignal: sf.Bollinger[i],
		})
	}
	return out
}

// firstOnOrAfter returns the index of the first observation dated on or after t.
func firstOnOrAfter(obs []models.Observation, t time.Time) int {
	for i, o := range obs {
		if !o.Date.Before(t) {
			return i
		}
	}
	return len(obs)
}
