package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Observation is one published net value of a fund.
type Observation struct {
	Date     time.Time
	NetValue decimal.Decimal
}

// FundInfo holds display metadata supplied by the fund directory.
type FundInfo struct {
	Code     string
	Name     string
	Category string
}

// TimeSeries is the ordered NAV history of one fund. Observations are ascending
// by date with no duplicates and strictly positive values.
type TimeSeries struct {
	Code         string
	Name         string
	Category     string
	Observations []Observation
}

// Len returns the number of observations.
func (s TimeSeries) Len() int { return len(s.Observations) }

// Values returns the net values as float64, index-aligned with Observations.
func (s TimeSeries) Values() []float64 {
	out := make([]float64, len(s.Observations))
	for i, o := range s.Observations {
		out[i] = o.NetValue.InexactFloat64()
	}
	return out
}

// LastDate returns the most recent observation date, or the zero time for an empty series.
func (s TimeSeries) LastDate() time.Time {
	if len(s.Observations) == 0 {
		return time.Time{}
	}
	return s.Observations[len(s.Observations)-1].Date
}

// WithInfo returns a copy of the series carrying the given metadata. Empty fields keep
// the current values.
func (s TimeSeries) WithInfo(info FundInfo) TimeSeries {
	if info.Name != "" {
		s.Name = info.Name
	}
	if info.Category != "" {
		s.Category = info.Category
	}
	return s
}
