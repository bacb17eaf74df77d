// Package signal maps indicator frames to discrete trading labels.
package signal

import "FundSignal/internal/domain/models"

// Thresholds are the absolute levels whose crossing fires a buy or sell label.
type Thresholds struct {
	RSIOversold   float64 `yaml:"rsi_oversold" default:"30"`
	RSIOverbought float64 `yaml:"rsi_overbought" default:"70"`
	MACDLower     float64 `yaml:"macd_lower" default:"-100"`
	MACDUpper     float64 `yaml:"macd_upper" default:"100"`
	CCILower      float64 `yaml:"cci_lower" default:"-100"`
	CCIUpper      float64 `yaml:"cci_upper" default:"100"`
}

// DefaultThresholds returns the levels used by the daily report.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RSIOversold:   30,
		RSIOverbought: 70,
		MACDLower:     -100,
		MACDUpper:     100,
		CCILower:      -100,
		CCIUpper:      100,
	}
}

// crossedAbove reports x moving from at-or-below ref to strictly above it.
func crossedAbove(xPrev, x, refPrev, ref float64) bool {
	return x > ref && xPrev <= refPrev
}

// crossedBelow reports x moving from at-or-above ref to strictly below it.
func crossedBelow(xPrev, x, refPrev, ref float64) bool {
	return x < ref && xPrev >= refPrev
}

// levelLabel labels an oscillator leaving an oversold (buy) or overbought (sell) zone.
func levelLabel(xPrev, x, lower, upper float64) models.Label {
	switch {
	case crossedAbove(xPrev, x, lower, lower):
		return models.LabelBuy
	case crossedBelow(xPrev, x, upper, upper):
		return models.LabelSell
	}
	return models.LabelHold
}

// Classify labels every row of the frame. prices are the net values the frame was
// computed from. A label only depends on the current and previous row; the first
// row is always hold.
func Classify(prices []float64, f models.IndicatorFrame, th Thresholds) models.SignalFrame {
	n := f.Len()
	sf := HoldFrame(n)
	for i := 1; i < n; i++ {
		p := i - 1

		switch {
		case crossedAbove(f.FastMA[p], f.FastMA[i], f.SlowMA[p], f.SlowMA[i]):
			sf.MA[i] = models.LabelBuy
		case crossedBelow(f.FastMA[p], f.FastMA[i], f.SlowMA[p], f.SlowMA[i]):
			sf.MA[i] = models.LabelSell
		}

		sf.RSI[i] = levelLabel(f.RSI[p], f.RSI[i], th.RSIOversold, th.RSIOverbought)
		sf.MACD[i] = levelLabel(f.MACD[p], f.MACD[i], th.MACDLower, th.MACDUpper)
		sf.CCI[i] = levelLabel(f.CCI[p], f.CCI[i], th.CCILower, th.CCIUpper)
		sf.Bollinger[i] = bollingerLabel(prices, f, i)
	}
	return sf
}

// bollingerLabel applies band position first and lets a crossing overwrite it.
// Crossings need a previous band built from at least two values.
func bollingerLabel(prices []float64, f models.IndicatorFrame, i int) models.Label {
	p := i - 1
	label := models.LabelHold
	if prices[i] < f.BollLower[i] {
		label = models.LabelOpportunisticBuy
	}
	if prices[i] > f.BollUpper[i] {
		label = models.LabelRiskAlert
	}
	// Row 0 bands come from a one-value window and collapse onto the price.
	if p == 0 {
		return label
	}
	if crossedAbove(prices[p], prices[i], f.BollLower[p], f.BollLower[i]) {
		label = models.LabelBuy
	}
	if crossedBelow(prices[p], prices[i], f.BollUpper[p], f.BollUpper[i]) {
		label = models.LabelSell
	}
	return label
}

// HoldFrame returns a signal frame of n rows labelled hold.
func HoldFrame(n int) models.SignalFrame {
	hold := func() []models.Label {
		ls := make([]models.Label, n)
		for i := range ls {
			ls[i] = models.LabelHold
		}
		return ls
	}
	return models.SignalFrame{MA: hold(), RSI: hold(), MACD: hold(), CCI: hold(), Bollinger: hold()}
}
