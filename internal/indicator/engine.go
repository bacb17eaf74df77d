// Package indicator computes technical indicators over a NAV series.
//
// Every function is pure and returns slices aligned with its input. Rolling
// statistics use partial windows, so early indices are computed on the history
// available so far and are never undefined.
package indicator

import "FundSignal/internal/domain/models"

const (
	FastMAWindow   = 5
	SlowMAWindow   = 10
	RSIWindow      = 14
	MACDFastSpan   = 12
	MACDSlowSpan   = 26
	MACDSignalSpan = 9
	CCIWindow      = 20
	CCIConstant    = 0.015
	BollWindow     = 20
	BollWidth      = 2.0

	// NeutralRSI is reported when there were no losses in the window.
	NeutralRSI = 50.0
)

// Compute builds the full indicator frame for a series of net values.
func Compute(values []float64) models.IndicatorFrame {
	fast, slow := MovingAverages(values)
	macd, macdSignal := MACD(values)
	mid, upper, lower := Bollinger(values, BollWindow, BollWidth)
	return models.IndicatorFrame{
		FastMA:     fast,
		SlowMA:     slow,
		RSI:        RSI(values, RSIWindow),
		MACD:       macd,
		MACDSignal: macdSignal,
		CCI:        CCI(values, CCIWindow),
		BollMid:    mid,
		BollUpper:  upper,
		BollLower:  lower,
	}
}

// MovingAverages returns the fast (5) and slow (10) rolling means.
func MovingAverages(values []float64) (fast, slow []float64) {
	return RollingMean(values, FastMAWindow), RollingMean(values, SlowMAWindow)
}

// RSI returns the relative strength index rounded to 2 places. The first index
// has no delta and counts as zero gain and zero loss.
func RSI(values []float64, w int) []float64 {
	gains := make([]float64, len(values))
	losses := make([]float64, len(values))
	for i := 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		if d > 0 {
			gains[i] = d
		} else if d < 0 {
			losses[i] = -d
		}
	}
	avgGain := RollingMean(gains, w)
	avgLoss := RollingMean(losses, w)

	out := make([]float64, len(values))
	for i := range values {
		if avgLoss[i] == 0 {
			out[i] = NeutralRSI
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		out[i] = Round(100-100/(1+rs), 2)
	}
	return out
}

// MACD returns the EMA12-EMA26 line rounded to 4 places and its EMA9 signal line.
func MACD(values []float64) (line, signal []float64) {
	fast := EMA(values, MACDFastSpan)
	slow := EMA(values, MACDSlowSpan)
	line = make([]float64, len(values))
	for i := range values {
		line[i] = Round(fast[i]-slow[i], 4)
	}
	return line, EMA(line, MACDSignalSpan)
}

// CCI returns the commodity channel index rounded to 2 places, using the net value
// itself as the typical price. A zero mean deviation yields 0.
func CCI(values []float64, w int) []float64 {
	ma := RollingMean(values, w)
	md := RollingMeanDeviation(values, w)
	out := make([]float64, len(values))
	for i, x := range values {
		denom := CCIConstant * md[i]
		if denom == 0 {
			continue
		}
		out[i] = Round((x-ma[i])/denom, 2)
	}
	return out
}

// Bollinger returns the mid band and the upper/lower bands at width standard
// deviations, the outer bands rounded to 4 places.
func Bollinger(values []float64, w int, width float64) (mid, upper, lower []float64) {
	mid = RollingMean(values, w)
	std := RollingStd(values, w)
	upper = make([]float64, len(values))
	lower = make([]float64, len(values))
	for i := range values {
		upper[i] = Round(mid[i]+width*std[i], 4)
		lower[i] = Round(mid[i]-width*std[i], 4)
	}
	return mid, upper, lower
}
