package repository

import (
	"strconv"

	"FundSignal/internal/domain/models"
)

// reportHeader is the column order of the spreadsheet outputs.
var reportHeader = []string{
	"基金代码", "基金简称", "投资类型", "净值日期",
	"均线信号", "RSI", "RSI信号", "cci值", "cci信号",
	"macd值", "macd信号", "布林带下轨值", "布林带中轨值",
	"布林带上轨值", "布林带信号", "报告日期",
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// reportRow renders a record in reportHeader order.
func reportRow(r models.SignalRecord) []string {
	return []string{
		r.Code, r.Name, r.Category, r.Date.Format("2006-01-02"),
		r.MASignal.Display(), formatFloat(r.RSI), r.RSISignal.Display(),
		formatFloat(r.CCI), r.CCISignal.Display(),
		formatFloat(r.MACD), r.MACDSignal.Display(),
		formatFloat(r.BollLower), formatFloat(r.BollMid), formatFloat(r.BollUpper),
		r.BollSignal.Display(), r.ReportDate,
	}
}
