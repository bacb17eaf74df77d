// Package mailer delivers the daily signal report by SMTP.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"path/filepath"
	"time"

	"FundSignal/internal/domain/models"
	applogger "FundSignal/pkg/logger"

	"gopkg.in/gomail.v2"
)

// ErrNotConfigured is returned when credentials or recipients are missing.
var ErrNotConfigured = errors.New("smtp not configured")

type Config struct {
	Server     string
	Port       int
	User       string
	Password   string
	Recipients []string
}

// Sender is satisfied by *gomail.Dialer.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type Mailer struct {
	cfg    Config
	sender Sender
	log    *applogger.Logger
}

// New creates a Mailer dialing cfg.Server. Port 465 uses implicit TLS.
func New(cfg Config, log *applogger.Logger) *Mailer {
	return NewWithSender(cfg, gomail.NewDialer(cfg.Server, cfg.Port, cfg.User, cfg.Password), log)
}

func NewWithSender(cfg Config, s Sender, log *applogger.Logger) *Mailer {
	if log == nil {
		log = applogger.Nop()
	}
	return &Mailer{cfg: cfg, sender: s, log: log}
}

// Summary is the data rendered into the mail body.
type Summary struct {
	ReportDate string
	Funds      int
	Buy        int
	Sell       int
	Hold       int
}

// Summarize counts the Bollinger labels of every record in the report.
func Summarize(report models.BatchReport) Summary {
	s := Summary{ReportDate: report.ReportDate, Funds: len(report.Succeeded())}
	for _, r := range report.Records() {
		switch {
		case r.BollSignal.IsBuySide():
			s.Buy++
		case r.BollSignal.IsSellSide():
			s.Sell++
		case r.BollSignal == models.LabelHold:
			s.Hold++
		}
	}
	return s
}

// Subject returns the mail subject for a report date.
func Subject(date string) string {
	return "Fund Bollinger signal report - " + date
}

// Notify sends the summary of report with the given files attached.
func (m *Mailer) Notify(ctx context.Context, report models.BatchReport, attachments []string) error {
	if m.cfg.User == "" || m.cfg.Password == "" {
		m.log.Error("smtp credentials missing, report not sent")
		return ErrNotConfigured
	}
	if len(m.cfg.Recipients) == 0 {
		m.log.Error("recipient list empty, report not sent")
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	sum := Summarize(report)
	body, err := renderBody(sum)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage(gomail.SetCharset("UTF-8"))
	msg.SetHeader("From", m.cfg.User)
	msg.SetHeader("To", m.cfg.Recipients...)
	msg.SetHeader("Subject", Subject(report.ReportDate))
	msg.SetBody("text/html", body)
	for _, p := range attachments {
		msg.Attach(p, gomail.Rename(filepath.Base(p)))
	}

	start := time.Now()
	m.log.Info("sending report mail",
		applogger.String("server", fmt.Sprintf("%s:%d", m.cfg.Server, m.cfg.Port)),
		applogger.Strings("recipients", m.cfg.Recipients),
		applogger.Int("attachments", len(attachments)),
	)
	if err := m.sender.DialAndSend(msg); err != nil {
		m.log.Error("send report mail failed", applogger.Error(err))
		return fmt.Errorf("send mail: %w", err)
	}
	m.log.Info("report mail sent",
		applogger.Int("buy", sum.Buy), applogger.Int("sell", sum.Sell), applogger.Int("hold", sum.Hold),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// SampleReport is a one-fund report used to check SMTP settings.
func SampleReport(date string) models.BatchReport {
	d, _ := time.Parse("2006-01-02", date)
	rec := models.SignalRecord{
		Code: "000001", Name: "测试基金", Category: "混合型", Date: d, ReportDate: date,
		MASignal: models.LabelHold, RSISignal: models.LabelHold, CCISignal: models.LabelHold,
		MACDSignal: models.LabelHold, BollSignal: models.LabelBuy,
		RSI: 50, BollLower: 0.9, BollMid: 1, BollUpper: 1.1,
	}
	return models.BatchReport{
		RunID:      "sample",
		ReportDate: date,
		StartedAt:  time.Now(),
		Outcomes: []models.InstrumentOutcome{
			{Code: rec.Code, State: models.StateSuccess, Records: []models.SignalRecord{rec}},
		},
	}
}

var bodyTmpl = template.Must(template.New("report").Parse(`<html>
<body style="font-family: Arial, sans-serif;">
  <h2 style="color: #2c3e50;">基金布林带策略晨报</h2>
  <div style="margin-bottom: 20px;">
    <strong>报告日期：</strong>{{.ReportDate}}<br>
    <strong>分析基金数：</strong>{{.Funds}}<br>
    <strong>信号分布：</strong>
    <ul>
      <li>买入信号：<span style="color: #27ae60;">{{.Buy}}个</span></li>
      <li>卖出信号：<span style="color: #e74c3c;">{{.Sell}}个</span></li>
      <li>持有信号：<span style="color: #f39c12;">{{.Hold}}个</span></li>
    </ul>
  </div>
  <h3 style="color: #2c3e50;">操作建议</h3>
  <ol>
    <li>对于出现"买入"或"机会买入"信号的基金，建议关注其基本面，考虑逐步建仓</li>
    <li>对于出现"卖出"或"提示风险"信号的基金，建议评估持仓，考虑减仓或止盈</li>
    <li>对于"持有"信号的基金，建议继续观察，等待明确信号</li>
  </ol>
  <h3 style="color: #2c3e50;">风险提示</h3>
  <ol>
    <li>技术指标仅供参考，不构成投资建议</li>
    <li>基金投资有风险，入市需谨慎</li>
  </ol>
</body>
</html>`))

func renderBody(s Summary) (string, error) {
	var buf bytes.Buffer
	if err := bodyTmpl.Execute(&buf, s); err != nil {
		return "", fmt.Errorf("render mail body: %w", err)
	}
	return buf.String(), nil
}
