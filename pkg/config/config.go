package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"FundSignal/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Log         struct {
		Level        string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format       string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output       string `yaml:"output" default:"stdout"`
		CollectTopic string `yaml:"collect_topic"`
	} `yaml:"log"`
	Report struct {
		RetentionDays int    `yaml:"retention_days" default:"10"`
		OutputDir     string `yaml:"output_dir" default:"output"`
		ReportDate    string `yaml:"report_date" validate:"omitempty,datetime=2006-01-02"`
		Timezone      string `yaml:"timezone" default:"Asia/Shanghai"`
		CSV           bool   `yaml:"csv" default:"true"`
		Excel         bool   `yaml:"excel" default:"true"`
	} `yaml:"report"`
	Funds struct {
		Codes []string `yaml:"codes" default:"[\"110020\",\"001051\"]" validate:"min=1,dive,required"`
	} `yaml:"funds"`
	Source struct {
		Timeout         time.Duration `yaml:"timeout" default:"15s"`
		HistoryPageSize int           `yaml:"history_page_size" default:"20" validate:"gte=1,lte=100"`
		HistoryMaxPages int           `yaml:"history_max_pages" default:"15" validate:"gte=1"`
		MaxRetries      int           `yaml:"max_retries" default:"3" validate:"gte=1"`
		RetryBase       time.Duration `yaml:"retry_base" default:"1s"`
		RatePerSec      float64       `yaml:"rate_per_sec" default:"1"`
		Burst           int           `yaml:"burst" default:"1"`
		CacheTTL        time.Duration `yaml:"cache_ttl" default:"1h"`
		TrendURL        string        `yaml:"trend_url" default:"https://fund.eastmoney.com/pingzhongdata" validate:"url"`
		HistoryURL      string        `yaml:"history_url" default:"https://api.fund.eastmoney.com/f10/lsjz" validate:"url"`
		DirectoryURL    string        `yaml:"directory_url" default:"https://fund.eastmoney.com/js/fundcode_search.js" validate:"url"`
	} `yaml:"source"`
	Signal struct {
		RSIOversold   float64 `yaml:"rsi_oversold" default:"30"`
		RSIOverbought float64 `yaml:"rsi_overbought" default:"70"`
		MACDLower     float64 `yaml:"macd_lower" default:"-100"`
		MACDUpper     float64 `yaml:"macd_upper" default:"100"`
		CCILower      float64 `yaml:"cci_lower" default:"-100"`
		CCIUpper      float64 `yaml:"cci_upper" default:"100"`
	} `yaml:"signal"`
	Server struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	SMTP struct {
		Enabled    bool     `yaml:"enabled" default:"true"`
		Server     string   `yaml:"server" default:"smtp.qq.com"`
		Port       int      `yaml:"port" default:"465"`
		User       string   `yaml:"user"`
		Password   string   `yaml:"password"`
		Recipients []string `yaml:"recipients" validate:"dive,email"`
	} `yaml:"smtp"`
	Kafka struct {
		Enabled     bool     `yaml:"enabled"`
		Brokers     []string `yaml:"brokers" validate:"required_if=Enabled true"`
		Topic       string   `yaml:"topic" default:"fund-signals"`
		Compression string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd none"`
		MaxAttempts int      `yaml:"max_attempts" default:"3"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled     bool   `yaml:"enabled"`
		Host        string `yaml:"host" validate:"required_if=Enabled true"`
		Port        int    `yaml:"port" default:"9000"`
		Database    string `yaml:"database" default:"default"`
		User        string `yaml:"user" default:"default"`
		Password    string `yaml:"password"`
		Table       string `yaml:"table" default:"fund_signals"`
		UseHTTP     bool   `yaml:"use_http"`
		AsyncInsert bool   `yaml:"async_insert"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"fundsignal"`
		L1Size   int    `yaml:"l1_size" default:"256"`
		Queue    struct {
			Workers    int           `yaml:"workers" default:"1" validate:"gte=1"`
			RetryLimit int           `yaml:"retry_limit" default:"2"`
			RetryDelay time.Duration `yaml:"retry_delay" default:"1m"`
		} `yaml:"queue"`
	} `yaml:"redis"`
}

var validate = validator.New()

// Load reads a YAML file on top of the struct defaults and validates the result.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides it with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func parse(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if path == "" {
		return &c, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("FUND_CODES"); v != "" {
		c.Funds.Codes = util.SplitList(v, ",;")
	}
	if v := getenv("RETENTION_DAYS"); v != "" {
		c.Report.RetentionDays = util.ParseIntDefault(v, c.Report.RetentionDays)
	}
	if v := getenv("REPORT_DATE"); v != "" {
		c.Report.ReportDate = v
	}
	if v := getenv("SMTP_SERVER"); v != "" {
		c.SMTP.Server = v
	}
	port := getenv("SMTP_PORT")
	if port == "" {
		port = getenv("SMTP")
	}
	if p, err := strconv.Atoi(port); err == nil {
		c.SMTP.Port = p
	}
	if v := getenv("SMTP_USER"); v != "" {
		c.SMTP.User = v
	}
	if v := getenv("SMTP_PASSWORD"); v != "" {
		c.SMTP.Password = v
	}
	if v := getenv("RECIPIENTS"); v != "" {
		c.SMTP.Recipients = util.SplitList(v, ";")
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v, ",")
		c.Kafka.Enabled = true
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Report.Timezone); err != nil {
		return fmt.Errorf("report.timezone: %w", err)
	}
	return nil
}

// Location returns the report timezone; Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
