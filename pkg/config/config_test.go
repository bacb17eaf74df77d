package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Report.RetentionDays != 10 {
		t.Fatalf("retention_days = %d, want 10", c.Report.RetentionDays)
	}
	if len(c.Funds.Codes) != 2 || c.Funds.Codes[0] != "110020" || c.Funds.Codes[1] != "001051" {
		t.Fatalf("default funds = %v", c.Funds.Codes)
	}
	if c.SMTP.Server != "smtp.qq.com" || c.SMTP.Port != 465 {
		t.Fatalf("smtp defaults = %s:%d", c.SMTP.Server, c.SMTP.Port)
	}
	if c.Source.Timeout != 15*time.Second || c.Source.HistoryPageSize != 20 {
		t.Fatalf("source defaults = %+v", c.Source)
	}
	if c.Signal.RSIOversold != 30 || c.Signal.CCIUpper != 100 {
		t.Fatalf("signal defaults = %+v", c.Signal)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
environment: production
report:
  retention_days: 30
  output_dir: /tmp/out
funds:
  codes: ["161725"]
source:
  timeout: 5s
kafka:
  enabled: true
  brokers: ["localhost:9092"]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Environment != "production" || c.Report.RetentionDays != 30 || c.Report.OutputDir != "/tmp/out" {
		t.Fatalf("unexpected report section %+v", c.Report)
	}
	if len(c.Funds.Codes) != 1 || c.Funds.Codes[0] != "161725" {
		t.Fatalf("codes = %v", c.Funds.Codes)
	}
	if c.Source.Timeout != 5*time.Second || c.Source.MaxRetries != 3 {
		t.Fatalf("source = %+v", c.Source)
	}
	if c.Kafka.Topic != "fund-signals" {
		t.Fatalf("kafka topic default lost: %q", c.Kafka.Topic)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(c *Config){
		"kafka without brokers":   func(c *Config) { c.Kafka.Enabled = true },
		"clickhouse without host": func(c *Config) { c.ClickHouse.Enabled = true },
		"bad report date":         func(c *Config) { c.Report.ReportDate = "10/10/2024" },
		"bad recipient":           func(c *Config) { c.SMTP.Recipients = []string{"nobody"} },
		"no funds":                func(c *Config) { c.Funds.Codes = nil },
		"bad timezone":            func(c *Config) { c.Report.Timezone = "Mars/Olympus" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c, err := Load("")
			if err != nil {
				t.Fatal(err)
			}
			mutate(c)
			if err := c.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, _ := Load("")
	env := map[string]string{
		"FUND_CODES":     "110020.OF, 161725",
		"RETENTION_DAYS": "5",
		"SMTP":           "587",
		"SMTP_USER":      "bot@example.com",
		"RECIPIENTS":     "a@example.com; b@example.com",
		"KAFKA_BROKERS":  "k1:9092,k2:9092",
	}
	c.applyEnv(func(k string) string { return env[k] })

	if len(c.Funds.Codes) != 2 || c.Funds.Codes[1] != "161725" {
		t.Fatalf("codes = %v", c.Funds.Codes)
	}
	if c.Report.RetentionDays != 5 {
		t.Fatalf("retention = %d", c.Report.RetentionDays)
	}
	if c.SMTP.Port != 587 {
		t.Fatalf("SMTP fallback variable not used: %d", c.SMTP.Port)
	}
	if len(c.SMTP.Recipients) != 2 || c.SMTP.Recipients[1] != "b@example.com" {
		t.Fatalf("recipients = %v", c.SMTP.Recipients)
	}
	if !c.Kafka.Enabled || len(c.Kafka.Brokers) != 2 {
		t.Fatalf("kafka = %+v", c.Kafka)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}
