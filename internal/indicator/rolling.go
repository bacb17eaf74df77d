package indicator

import (
	"math"

	"github.com/shopspring/decimal"
)

// window returns the first index of the partial rolling window of size w ending at i.
func window(i, w int) int {
	lo := i - w + 1
	if lo < 0 {
		return 0
	}
	return lo
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// RollingMean averages the last w values at each index, or all values seen so far
// while fewer than w are available.
func RollingMean(xs []float64, w int) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		out[i] = mean(xs[window(i, w) : i+1])
	}
	return out
}

// RollingStd is the sample standard deviation (n-1 denominator) over a partial
// window. A single-value window has zero deviation.
func RollingStd(xs []float64, w int) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		win := xs[window(i, w) : i+1]
		if len(win) < 2 {
			continue
		}
		m := mean(win)
		ss := 0.0
		for _, x := range win {
			ss += (x - m) * (x - m)
		}
		out[i] = math.Sqrt(ss / float64(len(win)-1))
	}
	return out
}

// RollingMeanDeviation is the mean absolute deviation of each partial window from
// that window's own mean.
func RollingMeanDeviation(xs []float64, w int) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		win := xs[window(i, w) : i+1]
		m := mean(win)
		dev := 0.0
		for _, x := range win {
			dev += math.Abs(x - m)
		}
		out[i] = dev / float64(len(win))
	}
	return out
}

// EMA is the non-adjusted exponential moving average: ema[0] = x[0],
// ema[i] = a*x[i] + (1-a)*ema[i-1] with a = 2/(span+1).
func EMA(xs []float64, span int) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	out[0] = xs[0]
	for i := 1; i < len(xs); i++ {
		out[i] = alpha*xs[i] + (1-alpha)*out[i-1]
	}
	return out
}

// Round rounds half to even to the given number of decimal places, so ties land
// where the report's reference figures do (12.125 -> 12.12).
// Non-finite input rounds to 0.
func Round(x float64, places int32) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return decimal.NewFromFloat(x).RoundBank(places).InexactFloat64()
}
