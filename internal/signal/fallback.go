package signal

import (
	"FundSignal/internal/domain/models"
	"FundSignal/internal/indicator"
)

// MinObservations is the shortest series that gets full indicator treatment.
const MinObservations = 20

const (
	fallbackUpper = 1.10
	fallbackLower = 0.90
)

// Fallback builds the neutral frame used for series shorter than MinObservations:
// RSI 50, MACD and CCI 0, bands at +/-10% of the net value and hold everywhere.
func Fallback(prices []float64) (models.IndicatorFrame, models.SignalFrame) {
	n := len(prices)
	fast, slow := indicator.MovingAverages(prices)
	f := models.IndicatorFrame{
		FastMA:     fast,
		SlowMA:     slow,
		RSI:        make([]float64, n),
		MACD:       make([]float64, n),
		MACDSignal: make([]float64, n),
		CCI:        make([]float64, n),
		BollMid:    make([]float64, n),
		BollUpper:  make([]float64, n),
		BollLower:  make([]float64, n),
	}
	for i, p := range prices {
		f.RSI[i] = indicator.NeutralRSI
		f.BollMid[i] = p
		f.BollUpper[i] = p * fallbackUpper
		f.BollLower[i] = p * fallbackLower
	}
	return f, HoldFrame(n)
}

// Evaluate computes and classifies a series, switching to Fallback when it is too
// short. The boolean reports whether the fallback was used.
func Evaluate(prices []float64, th Thresholds) (models.IndicatorFrame, models.SignalFrame, bool) {
	if len(prices) < MinObservations {
		f, s := Fallback(prices)
		return f, s, true
	}
	f := indicator.Compute(prices)
	return f, Classify(prices, f, th), false
}
